package cli

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/dome/internal/common"
)

var errNameRequired = errors.New("name is required")

type usageError struct {
	usage string
}

func (e usageError) Error() string { return "usage: " + e.usage }

type command struct {
	usage   string
	minArgs int
	auth    bool
	run     func(ctx context.Context, args []string) error
}

// command looks up name in the shell's command table.
func (a *App) command(name string) (command, bool) {
	c, ok := a.commands()[name]
	return c, ok
}

func (a *App) commands() map[string]command {
	return map[string]command{
		"register": {usage: "register", run: a.register},
		"login":    {usage: "login", run: a.login},
		"logout":   {usage: "logout", auth: true, run: a.logout},
		"whoami":   {usage: "whoami", auth: true, run: a.whoami},
		"lang":     {usage: "lang <en|tr>", minArgs: 1, run: a.lang},

		"workspaces":   {usage: "workspaces", auth: true, run: a.listWorkspaces},
		"use":          {usage: "use <workspaceID>", minArgs: 1, auth: true, run: a.use},
		"addworkspace": {usage: "addworkspace [name]", auth: true, run: a.addWorkspace},
		"delworkspace": {usage: "delworkspace <workspaceID>", minArgs: 1, auth: true, run: a.deleteWorkspace},
		"boards":       {usage: "boards", auth: true, run: a.listBoards},
		"addboard":     {usage: "addboard [name]", auth: true, run: a.addBoard},
		"members":      {usage: "members", auth: true, run: a.members},
		"invite":       {usage: "invite [query]", auth: true, run: a.invite},

		"open":    {usage: "open <boardID>", minArgs: 1, auth: true, run: a.open},
		"show":    {usage: "show", auth: true, run: a.show},
		"addlist": {usage: "addlist [name]", auth: true, run: a.addList},
		"addcard": {usage: "addcard <listID> [name]", minArgs: 1, auth: true, run: a.addCard},
		"move":    {usage: "move <cardID> <toListID> <toIndex>", minArgs: 3, auth: true, run: a.move},
		"dellist": {usage: "dellist <listID>", minArgs: 1, auth: true, run: a.deleteList},
		"delcard": {usage: "delcard <cardID>", minArgs: 1, auth: true, run: a.deleteCard},
		"reload":  {usage: "reload", auth: true, run: a.reload},
		"export":  {usage: "export", auth: true, run: a.export},
	}
}

func parseID(s, usage string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, usageError{usage: usage}
	}
	return id, nil
}

func parseIndex(s, usage string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, usageError{usage: usage}
	}
	return n, nil
}

// nameArg returns the name given on the command line, or prompts for one.
func (a *App) nameArg(args []string, promptKey string) (string, error) {
	name := strings.Join(args, " ")
	if common.IsBlank(name) {
		var err error
		name, err = GetSimpleText(a.reader, a.message(promptKey), a.out)
		if err != nil {
			return "", err
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errNameRequired
	}
	return name, nil
}

// confirm asks for a yes before a destructive action.
func (a *App) confirm(question string) (bool, error) {
	ok, err := GetConfirmation(a.reader, question+"\n"+a.message("confirm.prompt"), a.out)
	if err != nil {
		return false, err
	}
	if !ok {
		a.println(a.message("confirm.cancelled"))
	}
	return ok, nil
}
