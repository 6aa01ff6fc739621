package cli

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/dome/internal/client/board"
	"github.com/dmitrijs2005/dome/internal/client/client"
	"github.com/dmitrijs2005/dome/internal/client/export"
	"github.com/dmitrijs2005/dome/internal/client/live"
	"github.com/dmitrijs2005/dome/internal/client/models"
)

// enterWorkspace makes w the current workspace with a fresh live channel.
// Any open board is closed.
func (a *App) enterWorkspace(ctx context.Context, w models.Workspace) {
	a.leaveWorkspace()
	sub := a.subscribe(ctx, w.ID)

	a.mu.Lock()
	a.workspace = w
	a.sub = sub
	a.mu.Unlock()
}

// leaveWorkspace closes the board and the live channel and clears the view.
func (a *App) leaveWorkspace() {
	a.mu.Lock()
	sub := a.sub
	a.sub = nil
	a.workspace = models.Workspace{}
	a.board = models.Board{}
	a.echoes = map[string]int{}
	a.mu.Unlock()

	a.engine.Close()
	if sub != nil {
		_ = sub.Close()
	}
}

// closeBoard returns to the workspace view.
func (a *App) closeBoard() {
	a.mu.Lock()
	a.board = models.Board{}
	a.mu.Unlock()
	a.engine.Close()
}

func (a *App) subscribe(ctx context.Context, workspaceID int64) *live.Subscription {
	if a.dial == nil {
		return nil
	}
	sub, err := a.dial(ctx, workspaceID, a.session.Token())
	if err != nil {
		a.log.Warn(ctx, "live updates unavailable", "workspace_id", workspaceID, "error", err)
		return nil
	}
	nctx := context.WithoutCancel(ctx)
	sub.OnNotification(func(n live.Notification) { a.onNotification(nctx, n, sub) })
	return sub
}

// publish tells the other members of the workspace about a change made here.
func (a *App) publish(ctx context.Context, n live.Notification) {
	a.mu.Lock()
	sub := a.sub
	if sub != nil {
		if key, err := live.Encode(n); err == nil {
			a.echoes[string(key)]++
		}
	}
	a.mu.Unlock()
	if sub == nil {
		return
	}
	if err := sub.Publish(n); err != nil {
		a.log.Warn(ctx, "publish failed", "kind", n.Kind(), "error", err)
	}
}

// ownEcho reports whether n is the relay echoing one of our own changes.
func (a *App) ownEcho(n live.Notification) bool {
	key, err := live.Encode(n)
	if err != nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.echoes[string(key)] == 0 {
		return false
	}
	a.echoes[string(key)]--
	return true
}

func (a *App) onNotification(ctx context.Context, n live.Notification, from *live.Subscription) {
	a.mu.Lock()
	current := a.sub == from
	a.mu.Unlock()
	if !current {
		return
	}
	own := a.ownEcho(n)

	if bc, ok := n.(live.BoardCreated); ok {
		if a.workspaces.MergeBoard(bc.Board) && !own {
			a.println(a.message("board.created", "name", bc.Board.Name, "id", strconv.FormatInt(bc.Board.ID, 10)))
		}
		return
	}

	reloaded, err := a.engine.HandleNotification(ctx, n)
	switch {
	case errors.Is(err, client.ErrNotFound):
		a.closeBoard()
		a.println(a.message("board.not.found"))
	case err != nil:
		a.println(a.message("request.failed", "error", err.Error()))
	case reloaded && !own:
		a.println(a.message("board.updated"))
	}
}

func (a *App) currentBoard() (models.Board, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.board.ID == 0 || a.engine.BoardID() != a.board.ID {
		return models.Board{}, board.ErrNoBoard
	}
	return a.board, nil
}

// open shows a board. The workspace channel is re-opened so that only the
// board on display receives notifications.
func (a *App) open(ctx context.Context, args []string) error {
	id, err := parseID(args[0], "open <boardID>")
	if err != nil {
		return err
	}

	b, err := a.workspaces.Board(ctx, id)
	if err != nil {
		return a.boardGone(err)
	}

	w, err := a.currentWorkspace()
	if err != nil || w.ID != b.WorkspaceID {
		if w, err = a.workspaces.Workspace(ctx, b.WorkspaceID); err != nil {
			return err
		}
	}
	a.enterWorkspace(ctx, w)

	a.mu.Lock()
	a.board = b
	a.mu.Unlock()

	if err := a.engine.Load(ctx, b.ID); err != nil {
		return a.boardGone(err)
	}
	a.println(a.message("board.opened", "name", b.Name))
	a.render()
	return nil
}

// boardGone returns to the workspace view when err says the board no
// longer exists, and passes other errors through.
func (a *App) boardGone(err error) error {
	if !errors.Is(err, client.ErrNotFound) {
		return err
	}
	a.closeBoard()
	a.println(a.message("board.not.found"))
	if _, werr := a.currentWorkspace(); werr == nil {
		a.printBoards()
	}
	return nil
}

func (a *App) show(ctx context.Context, _ []string) error {
	if _, err := a.currentBoard(); err != nil {
		return err
	}
	a.render()
	return nil
}

func (a *App) reload(ctx context.Context, _ []string) error {
	b, err := a.currentBoard()
	if err != nil {
		return err
	}
	if err := a.engine.Load(ctx, b.ID); err != nil {
		return a.boardGone(err)
	}
	a.render()
	return nil
}

func (a *App) render() {
	a.mu.Lock()
	b := a.board
	a.mu.Unlock()
	layout := a.engine.Snapshot()

	var sb strings.Builder
	sb.WriteString("== " + b.Name + " (#" + strconv.FormatInt(b.ID, 10) + ") ==\n")
	if len(layout.Lists) == 0 {
		sb.WriteString(a.message("board.empty") + "\n")
	}
	for _, l := range layout.Lists {
		sb.WriteString("[" + strconv.FormatInt(l.ID, 10) + "] " + a.message("list.name", "listName", l.Name) + "\n")
		cards := layout.Cards[l.ID]
		if len(cards) == 0 {
			sb.WriteString("    " + a.message("list.empty") + "\n")
		}
		for i, c := range cards {
			sb.WriteString("    " + strconv.Itoa(i) + ". #" + strconv.FormatInt(c.ID, 10) + " " + c.Name + "\n")
			if c.Description != "" {
				for _, line := range strings.Split(c.Description, "\n") {
					sb.WriteString("         " + line + "\n")
				}
			}
		}
	}

	a.outMu.Lock()
	defer a.outMu.Unlock()
	_, _ = a.out.Write([]byte(sb.String()))
}

func (a *App) addList(ctx context.Context, args []string) error {
	if _, err := a.currentBoard(); err != nil {
		return err
	}
	name, err := a.nameArg(args, "new.list.title")
	if err != nil {
		return err
	}
	l, err := a.engine.CreateList(ctx, name)
	if err != nil {
		return err
	}
	a.publish(ctx, live.ListCreated{List: l})
	a.println(a.message("list.created", "name", l.Name, "id", strconv.FormatInt(l.ID, 10)))
	return nil
}

func (a *App) addCard(ctx context.Context, args []string) error {
	if _, err := a.currentBoard(); err != nil {
		return err
	}
	listID, err := parseID(args[0], "addcard <listID> [name]")
	if err != nil {
		return err
	}
	name, err := a.nameArg(args[1:], "card.name.placeholder")
	if err != nil {
		return err
	}
	description, err := GetMultiline(a.reader, a.message("description.placeholder"), a.out)
	if err != nil {
		return err
	}

	c, err := a.engine.CreateCard(ctx, listID, name, description)
	if err != nil {
		return err
	}
	a.publish(ctx, live.CardCreated{Card: c})
	a.println(a.message("card.created", "name", c.Name, "id", strconv.FormatInt(c.ID, 10)))
	return nil
}

// move places a card at toIndex of toListID. The card's current position is
// taken from the board on display.
func (a *App) move(ctx context.Context, args []string) error {
	const usage = "move <cardID> <toListID> <toIndex>"
	if _, err := a.currentBoard(); err != nil {
		return err
	}
	cardID, err := parseID(args[0], usage)
	if err != nil {
		return err
	}
	toListID, err := parseID(args[1], usage)
	if err != nil {
		return err
	}
	toIndex, err := parseIndex(args[2], usage)
	if err != nil {
		return err
	}

	fromListID, fromIndex, ok := a.engine.Snapshot().FindCard(cardID)
	if !ok {
		return board.ErrInvalidMove
	}
	if err := a.engine.MoveCard(ctx, cardID, fromListID, fromIndex, toListID, toIndex); err != nil {
		return err
	}

	after := a.engine.Snapshot()
	if listID, idx, ok := after.FindCard(cardID); ok {
		a.publish(ctx, live.CardUpdated{Card: after.Cards[listID][idx]})
	}
	a.println(a.message("card.moved"))
	a.render()
	return nil
}

func (a *App) deleteList(ctx context.Context, args []string) error {
	b, err := a.currentBoard()
	if err != nil {
		return err
	}
	listID, err := parseID(args[0], "dellist <listID>")
	if err != nil {
		return err
	}
	if !a.engine.Snapshot().HasList(listID) {
		return client.ErrNotFound
	}
	ok, err := a.confirm(a.message("confirm.delete.list"))
	if err != nil || !ok {
		return err
	}

	if err := a.engine.DeleteList(ctx, listID); err != nil {
		return a.boardGone(err)
	}
	a.publish(ctx, live.ListDeleted{List: models.List{ID: listID, BoardID: b.ID}})
	a.println(a.message("deleted"))
	return nil
}

func (a *App) deleteCard(ctx context.Context, args []string) error {
	if _, err := a.currentBoard(); err != nil {
		return err
	}
	cardID, err := parseID(args[0], "delcard <cardID>")
	if err != nil {
		return err
	}
	layout := a.engine.Snapshot()
	listID, idx, found := layout.FindCard(cardID)
	if !found {
		return client.ErrNotFound
	}
	ok, err := a.confirm(a.message("confirm.delete.card", "cardName", layout.Cards[listID][idx].Name))
	if err != nil || !ok {
		return err
	}

	if err := a.engine.DeleteCard(ctx, cardID); err != nil {
		return a.boardGone(err)
	}
	a.publish(ctx, live.CardDeleted{Card: models.Card{ID: cardID, ListID: listID}})
	a.println(a.message("deleted"))
	return nil
}

func (a *App) export(ctx context.Context, _ []string) error {
	b, err := a.currentBoard()
	if err != nil {
		return err
	}
	location, err := a.exporter.Export(ctx, export.NewDocument(b, a.engine.Snapshot(), time.Now()))
	if err != nil {
		return err
	}
	a.println(a.message("export.done", "location", location))
	return nil
}
