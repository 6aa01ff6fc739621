package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/dome/internal/client/live"
	"github.com/dmitrijs2005/dome/internal/client/models"
)

func (a *App) currentWorkspace() (models.Workspace, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.workspace.ID == 0 {
		return models.Workspace{}, errNoWorkspace
	}
	return a.workspace, nil
}

func (a *App) listWorkspaces(ctx context.Context, _ []string) error {
	all, err := a.workspaces.Workspaces(ctx)
	if err != nil {
		return err
	}
	a.println(a.message("workspaces.title"))
	if len(all) == 0 {
		a.println(a.message("workspaces.empty"))
		return nil
	}

	me, _ := a.session.User()
	a.mu.Lock()
	current := a.workspace.ID
	a.mu.Unlock()
	for _, w := range all {
		marker := " "
		if w.ID == current {
			marker = "*"
		}
		owner := ""
		if w.IsOwner(me.ID) {
			owner = " (owner)"
		}
		a.printf("%s %4d  %s%s\n", marker, w.ID, w.Name, owner)
	}
	return nil
}

// use selects a workspace, subscribes to its channel and lists its boards.
func (a *App) use(ctx context.Context, args []string) error {
	id, err := parseID(args[0], "use <workspaceID>")
	if err != nil {
		return err
	}
	w, err := a.workspaces.Workspace(ctx, id)
	if err != nil {
		return err
	}
	a.enterWorkspace(ctx, w)
	a.println(a.message("workspace.selected", "name", w.Name))
	return a.listBoards(ctx, nil)
}

func (a *App) addWorkspace(ctx context.Context, args []string) error {
	name, err := a.nameArg(args, "workspace.name.placeholder")
	if err != nil {
		return err
	}
	w, err := a.workspaces.CreateWorkspace(ctx, name)
	if err != nil {
		return err
	}
	a.println(a.message("workspace.created", "name", w.Name, "id", strconv.FormatInt(w.ID, 10)))
	return nil
}

func (a *App) deleteWorkspace(ctx context.Context, args []string) error {
	id, err := parseID(args[0], "delworkspace <workspaceID>")
	if err != nil {
		return err
	}
	ok, err := a.confirm(a.message("confirm.delete.workspace"))
	if err != nil || !ok {
		return err
	}
	if err := a.workspaces.DeleteWorkspace(ctx, id); err != nil {
		return err
	}

	a.mu.Lock()
	current := a.workspace.ID == id
	a.mu.Unlock()
	if current {
		a.leaveWorkspace()
	}
	a.println(a.message("workspace.deleted"))
	return nil
}

func (a *App) listBoards(ctx context.Context, _ []string) error {
	w, err := a.currentWorkspace()
	if err != nil {
		return err
	}
	if _, err := a.workspaces.Boards(ctx, w.ID); err != nil {
		return err
	}
	a.printBoards()
	return nil
}

// printBoards shows the cached board list, which live board_created
// notifications keep current.
func (a *App) printBoards() {
	_, boards := a.workspaces.CachedBoards()
	a.println(a.message("boards.title"))
	if len(boards) == 0 {
		a.println(a.message("boards.empty"))
		return
	}
	for _, b := range boards {
		a.printf("  %4d  %s\n", b.ID, b.Name)
	}
}

func (a *App) addBoard(ctx context.Context, args []string) error {
	w, err := a.currentWorkspace()
	if err != nil {
		return err
	}
	name, err := a.nameArg(args, "board.name.placeholder")
	if err != nil {
		return err
	}
	b, err := a.workspaces.CreateBoard(ctx, w.ID, name)
	if err != nil {
		return err
	}
	a.publish(ctx, live.BoardCreated{Board: b})
	a.println(a.message("board.created", "name", b.Name, "id", strconv.FormatInt(b.ID, 10)))
	return nil
}

func (a *App) members(ctx context.Context, _ []string) error {
	w, err := a.currentWorkspace()
	if err != nil {
		return err
	}
	users, err := a.workspaces.Members(ctx, w.ID)
	if err != nil {
		return err
	}
	a.println(a.message("members.title"))
	if len(users) == 0 {
		a.println(a.message("members.empty"))
		return nil
	}
	for _, u := range users {
		a.printf("  %4d  %s <%s>\n", u.ID, u.Username, u.Email)
	}
	return nil
}

// invite searches users matching a query and adds the chosen one.
func (a *App) invite(ctx context.Context, args []string) error {
	w, err := a.currentWorkspace()
	if err != nil {
		return err
	}
	query := strings.Join(args, " ")
	if strings.TrimSpace(query) == "" {
		if query, err = GetSimpleText(a.reader, a.message("search.placeholder"), a.out); err != nil {
			return err
		}
	}

	me, _ := a.session.User()
	candidates, err := a.workspaces.SearchCandidates(ctx, w.ID, me.ID, query)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		a.println(a.message("search.empty"))
		return nil
	}
	for _, u := range candidates {
		a.printf("  %4d  %s <%s>\n", u.ID, u.Username, u.Email)
	}

	answer, err := GetSimpleText(a.reader, a.message("invite.prompt"), a.out)
	if err != nil {
		return err
	}
	if answer == "" {
		a.println(a.message("confirm.cancelled"))
		return nil
	}
	userID, err := parseID(answer, "<userID>")
	if err != nil {
		return err
	}
	var chosen *models.User
	for i := range candidates {
		if candidates[i].ID == userID {
			chosen = &candidates[i]
		}
	}
	if chosen == nil {
		a.println(a.message("search.empty"))
		return nil
	}

	added, err := a.workspaces.AddMember(ctx, w.ID, chosen.ID)
	if err != nil {
		return err
	}
	a.println(a.message("member.added", "username", added.Username))
	return nil
}
