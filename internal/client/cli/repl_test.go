package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool

	calls    []string
	args     [][]string
	reported []error
	failWith error
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) help() string     { return "HELP" }
func (f *fakeExec) message(key string, args ...string) string {
	return key + strings.Join(args, ",")
}
func (f *fakeExec) report(ctx context.Context, err error) { f.reported = append(f.reported, err) }

func (f *fakeExec) command(name string) (command, bool) {
	record := func(ctx context.Context, args []string) error {
		f.calls = append(f.calls, name)
		f.args = append(f.args, args)
		return f.failWith
	}
	switch name {
	case "login":
		return command{run: func(ctx context.Context, args []string) error {
			f.loggedIn = true
			return record(ctx, args)
		}}, true
	case "boards":
		return command{auth: true, run: record}, true
	case "move":
		return command{usage: "move <a> <b> <c>", minArgs: 3, auth: true, run: record}, true
	}
	return command{}, false
}

// captureOutput redirects the REPL seams into a slice.
func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	origPrintln, origPrint := printlnFn, printFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	printFn = func(a ...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn, printFn = origPrintln, origPrint })
	return &lines
}

func TestRunREPL_GatesAndDispatches(t *testing.T) {
	out := captureOutput(t)
	input := strings.Join([]string{
		"help",
		"boards",
		"login",
		"BOARDS",
		"move 1 2",
		"move 1 2 3",
		"",
		"foobar",
		"exit",
		"boards",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, rdr(input))

	assert.Equal(t, []string{"login", "boards", "move"}, exec.calls)
	assert.Equal(t, []string{"1", "2", "3"}, exec.args[2])
	assert.Equal(t, []string{
		"HELP",
		"not.logged.in",
		"usageusage,move <a> <b> <c>",
		"unknown.commandcommand,foobar",
		"bye",
	}, *out)
}

func TestRunREPL_ReportsErrorsAndKeepsGoing(t *testing.T) {
	captureOutput(t)
	boom := errors.New("boom")
	exec := &fakeExec{loggedIn: true, failWith: boom}

	runREPL(context.Background(), exec, func() string { return "s" }, rdr("boards\nboards\n"))

	assert.Len(t, exec.calls, 2)
	assert.Equal(t, []error{boom, boom}, exec.reported)
}

func TestRunREPL_LastLineWithoutNewline(t *testing.T) {
	captureOutput(t)
	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, rdr("login"))
	assert.Equal(t, []string{"login"}, exec.calls)
}

func TestRunREPL_StopsOnCancelledContext(t *testing.T) {
	captureOutput(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec := &fakeExec{}
	runREPL(ctx, exec, func() string { return "" }, rdr("login\n"))
	assert.Empty(t, exec.calls)
}
