package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn and printFn are test seams for REPL output.
var (
	printlnFn = fmt.Println
	printFn   = fmt.Print
)

// execIface is the surface the REPL drives. *App satisfies it; tests can
// provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	command(name string) (command, bool)
	help() string
	message(key string, args ...string) string
	report(ctx context.Context, err error)
}

// runREPL reads one command per line from reader and dispatches it until
// EOF, "exit"/"quit", or ctx is done.
//
// Commands marked as requiring a session are refused while logged out, and
// commands given too few arguments print their usage. Errors returned by a
// command are passed to report; the loop itself never stops on them.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for ctx.Err() == nil {
		printFn(fmt.Sprintf("dome%s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			printlnFn()
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		name, args := strings.ToLower(parts[0]), parts[1:]

		switch name {
		case "help":
			printlnFn(a.help())
			continue
		case "exit", "quit":
			printlnFn(a.message("bye"))
			return
		}

		cmd, ok := a.command(name)
		switch {
		case !ok:
			printlnFn(a.message("unknown.command", "command", name))
		case cmd.auth && !a.isLoggedIn():
			printlnFn(a.message("not.logged.in"))
		case len(args) < cmd.minArgs:
			printlnFn(a.message("usage", "usage", cmd.usage))
		default:
			if err := cmd.run(ctx, args); err != nil {
				a.report(ctx, err)
			}
		}
	}
}
