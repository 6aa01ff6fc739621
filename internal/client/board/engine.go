// Package board keeps the working copy of one kanban board and applies card
// moves optimistically: the local layout changes first, the server is told
// second, and the change is undone if the server refuses it.
package board

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/dome/internal/client/client"
	"github.com/dmitrijs2005/dome/internal/client/live"
	"github.com/dmitrijs2005/dome/internal/client/models"
	"github.com/dmitrijs2005/dome/internal/logging"
	"github.com/dmitrijs2005/dome/internal/metrics"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentCardFetches = 8

var (
	ErrNoBoard     = errors.New("no board loaded")
	ErrInvalidMove = errors.New("move out of bounds")
)

// Gateway is the part of client.Client the engine needs.
type Gateway interface {
	ListLists(ctx context.Context, boardID int64) ([]models.List, error)
	ListCards(ctx context.Context, listID int64) ([]models.Card, error)
	CreateList(ctx context.Context, boardID int64, name string, position int) (models.List, error)
	CreateCard(ctx context.Context, listID int64, c models.CardCreate) (models.Card, error)
	UpdateCard(ctx context.Context, listID, cardID int64, u models.CardUpdate) (models.Card, error)
	DeleteList(ctx context.Context, boardID, listID int64) error
	DeleteCard(ctx context.Context, listID, cardID int64) error
}

type Option func(*Engine)

func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.log = logging.OrNop(l) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine owns the layout of the board on display. All methods are safe for
// concurrent use; the layout lock is never held across a gateway call.
type Engine struct {
	api     Gateway
	log     logging.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	boardID int64
	layout  models.Layout
	// gen is the generation of the latest started load; results of older
	// loads are dropped.
	gen uint64
	// installs counts layouts installed by loads.
	installs uint64
}

func NewEngine(api Gateway, opts ...Option) *Engine {
	e := &Engine{
		api:     api,
		log:     logging.Nop(),
		metrics: metrics.New(nil),
		layout:  models.NewLayout(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) BoardID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.boardID
}

// Lists returns the lists of the board in position order.
func (e *Engine) Lists() []models.List {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.layout.Lists)
}

// Cards returns the ordered cards of listID.
func (e *Engine) Cards(listID int64) []models.Card {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.layout.Cards[listID])
}

// Snapshot returns a deep copy of the layout.
func (e *Engine) Snapshot() models.Layout {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.layout.Clone()
}

// Load fetches the lists of boardID and the cards of every list, then
// installs them as the layout. If another Load starts, or Close is called,
// before this one finishes, its result is dropped and nil is returned.
func (e *Engine) Load(ctx context.Context, boardID int64) error {
	e.mu.Lock()
	e.gen++
	gen := e.gen
	if e.boardID != boardID {
		e.boardID = boardID
		e.layout = models.NewLayout()
	}
	e.mu.Unlock()

	return e.install(ctx, boardID, gen)
}

// reload refreshes the loaded board. A non-zero boardID must still be the
// loaded one; otherwise the board was closed or replaced and nothing is
// fetched. The board check and the generation bump share one lock so a
// concurrent Close cannot be undone.
func (e *Engine) reload(ctx context.Context, boardID int64) error {
	e.mu.Lock()
	if e.boardID == 0 || (boardID != 0 && e.boardID != boardID) {
		e.mu.Unlock()
		return ErrNoBoard
	}
	boardID = e.boardID
	e.gen++
	gen := e.gen
	e.mu.Unlock()

	return e.install(ctx, boardID, gen)
}

// install fetches boardID and installs it if gen is still the latest load.
func (e *Engine) install(ctx context.Context, boardID int64, gen uint64) error {
	layout, err := e.fetch(ctx, boardID)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		e.metrics.Loads.WithLabelValues("stale").Inc()
		e.log.Debug(ctx, "stale board load dropped", "board_id", boardID)
		return nil
	}
	if err != nil {
		e.metrics.Loads.WithLabelValues("error").Inc()
		return fmt.Errorf("load board %d: %w", boardID, err)
	}
	e.layout = layout
	e.installs++
	e.metrics.Loads.WithLabelValues("ok").Inc()
	return nil
}

func (e *Engine) fetch(ctx context.Context, boardID int64) (models.Layout, error) {
	lists, err := e.api.ListLists(ctx, boardID)
	if err != nil {
		return models.Layout{}, err
	}
	sort.SliceStable(lists, func(i, j int) bool { return lists[i].Position < lists[j].Position })

	cards := make([][]models.Card, len(lists))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentCardFetches)
	for i, l := range lists {
		g.Go(func() error {
			c, err := e.api.ListCards(gctx, l.ID)
			if err != nil {
				return fmt.Errorf("list %d cards: %w", l.ID, err)
			}
			sort.SliceStable(c, func(a, b int) bool { return c[a].Position < c[b].Position })
			cards[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.Layout{}, err
	}

	layout := models.NewLayout()
	layout.Lists = lists
	for i, l := range lists {
		layout.Cards[l.ID] = cards[i]
	}
	return layout, nil
}

// Reconcile reloads the current board.
func (e *Engine) Reconcile(ctx context.Context) error {
	return e.reload(ctx, 0)
}

// MoveCard moves cardID from fromIndex of fromListID to toIndex of toListID.
// The layout changes before the server is asked to store the new position;
// if that fails the card is put back, unless a load has replaced the layout
// in the meantime. Out-of-range indexes leave everything untouched and
// return ErrInvalidMove.
func (e *Engine) MoveCard(ctx context.Context, cardID, fromListID int64, fromIndex int, toListID int64, toIndex int) error {
	e.mu.Lock()
	if e.boardID == 0 {
		e.mu.Unlock()
		return ErrNoBoard
	}
	if !e.validMove(cardID, fromListID, fromIndex, toListID, toIndex) {
		e.mu.Unlock()
		e.log.Debug(ctx, "invalid move ignored", "card_id", cardID,
			"from_list", fromListID, "from_index", fromIndex, "to_list", toListID, "to_index", toIndex)
		return ErrInvalidMove
	}

	src := e.layout.Cards[fromListID]
	card := src[fromIndex]
	src = slices.Delete(slices.Clone(src), fromIndex, fromIndex+1)
	card.ListID = toListID
	card.Position = toIndex
	if fromListID == toListID {
		src = slices.Insert(src, toIndex, card)
		e.layout.Cards[fromListID] = renumber(src)
	} else {
		dst := slices.Insert(slices.Clone(e.layout.Cards[toListID]), toIndex, card)
		e.layout.Cards[fromListID] = renumber(src)
		e.layout.Cards[toListID] = renumber(dst)
	}
	installs := e.installs
	e.mu.Unlock()
	e.metrics.Moves.Inc()

	position := toIndex
	update := models.CardUpdate{Position: &position}
	if fromListID != toListID {
		listID := toListID
		update.ListID = &listID
	}

	if _, err := e.api.UpdateCard(ctx, fromListID, cardID, update); err != nil {
		e.rollback(ctx, cardID, fromListID, fromIndex, installs)
		return fmt.Errorf("move card %d: %w", cardID, err)
	}
	return nil
}

func (e *Engine) validMove(cardID, fromListID int64, fromIndex int, toListID int64, toIndex int) bool {
	if !e.layout.HasList(fromListID) || !e.layout.HasList(toListID) {
		return false
	}
	src := e.layout.Cards[fromListID]
	if fromIndex < 0 || fromIndex >= len(src) || src[fromIndex].ID != cardID {
		return false
	}
	limit := len(e.layout.Cards[toListID])
	if fromListID == toListID {
		limit = len(src) - 1
	}
	return toIndex >= 0 && toIndex <= limit
}

// rollback puts cardID back at fromIndex of fromListID. Only this card is
// touched, so moves made since stay in place.
func (e *Engine) rollback(ctx context.Context, cardID, fromListID int64, fromIndex int, installs uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.installs != installs {
		e.log.Debug(ctx, "move failed after reload, nothing to undo", "card_id", cardID)
		return
	}
	listID, idx, ok := e.layout.FindCard(cardID)
	if !ok || !e.layout.HasList(fromListID) {
		return
	}

	cur := slices.Clone(e.layout.Cards[listID])
	card := cur[idx]
	cur = slices.Delete(cur, idx, idx+1)
	e.layout.Cards[listID] = renumber(cur)

	back := slices.Clone(e.layout.Cards[fromListID])
	if fromIndex > len(back) {
		fromIndex = len(back)
	}
	card.ListID = fromListID
	back = slices.Insert(back, fromIndex, card)
	e.layout.Cards[fromListID] = renumber(back)

	e.metrics.Rollbacks.Inc()
	e.log.Warn(ctx, "card move rolled back", "card_id", cardID)
}

func renumber(cards []models.Card) []models.Card {
	for i := range cards {
		cards[i].Position = i
	}
	return cards
}

// CreateList appends a list named name to the board.
func (e *Engine) CreateList(ctx context.Context, name string) (models.List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.List{}, fmt.Errorf("list name is empty: %w", client.ErrValidation)
	}

	e.mu.Lock()
	boardID := e.boardID
	position := len(e.layout.Lists)
	e.mu.Unlock()
	if boardID == 0 {
		return models.List{}, ErrNoBoard
	}

	l, err := e.api.CreateList(ctx, boardID, name, position)
	if err != nil {
		return models.List{}, fmt.Errorf("create list: %w", err)
	}

	e.mu.Lock()
	if e.boardID == boardID && !e.layout.HasList(l.ID) {
		e.layout.Lists = append(e.layout.Lists, l)
		if _, ok := e.layout.Cards[l.ID]; !ok {
			e.layout.Cards[l.ID] = nil
		}
	}
	e.mu.Unlock()
	return l, nil
}

// CreateCard appends a card to listID.
func (e *Engine) CreateCard(ctx context.Context, listID int64, name, description string) (models.Card, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Card{}, fmt.Errorf("card name is empty: %w", client.ErrValidation)
	}

	e.mu.Lock()
	if !e.layout.HasList(listID) {
		e.mu.Unlock()
		return models.Card{}, fmt.Errorf("list %d: %w", listID, client.ErrNotFound)
	}
	position := len(e.layout.Cards[listID])
	e.mu.Unlock()

	c, err := e.api.CreateCard(ctx, listID, models.CardCreate{
		Name:        name,
		Description: strings.TrimSpace(description),
		Position:    position,
	})
	if err != nil {
		return models.Card{}, fmt.Errorf("create card: %w", err)
	}

	e.mu.Lock()
	if _, _, dup := e.layout.FindCard(c.ID); !dup && e.layout.HasList(listID) {
		e.layout.Cards[listID] = append(slices.Clone(e.layout.Cards[listID]), c)
	}
	e.mu.Unlock()
	return c, nil
}

// DeleteList deletes listID and its cards, then reloads the board.
func (e *Engine) DeleteList(ctx context.Context, listID int64) error {
	e.mu.Lock()
	boardID := e.boardID
	known := e.layout.HasList(listID)
	e.mu.Unlock()
	if boardID == 0 {
		return ErrNoBoard
	}
	if !known {
		return fmt.Errorf("list %d: %w", listID, client.ErrNotFound)
	}

	if err := e.api.DeleteList(ctx, boardID, listID); err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	return e.reload(ctx, boardID)
}

// DeleteCard deletes cardID, then reloads the board.
func (e *Engine) DeleteCard(ctx context.Context, cardID int64) error {
	e.mu.Lock()
	boardID := e.boardID
	listID, _, ok := e.layout.FindCard(cardID)
	e.mu.Unlock()
	if boardID == 0 {
		return ErrNoBoard
	}
	if !ok {
		return fmt.Errorf("card %d: %w", cardID, client.ErrNotFound)
	}

	if err := e.api.DeleteCard(ctx, listID, cardID); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return e.reload(ctx, boardID)
}

// HandleNotification reloads the board when n concerns it. It reports
// whether a reload was made. Reload failures are logged and returned.
func (e *Engine) HandleNotification(ctx context.Context, n live.Notification) (bool, error) {
	if !e.relevant(n) {
		return false, nil
	}
	if err := e.Reconcile(ctx); err != nil {
		e.log.Warn(ctx, "reconcile after notification failed", "kind", n.Kind(), "error", err)
		return true, err
	}
	return true, nil
}

func (e *Engine) relevant(n live.Notification) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.boardID == 0 {
		return false
	}

	cardRelevant := func(c models.Card) bool {
		if c.ListID == 0 {
			return true
		}
		if e.layout.HasList(c.ListID) {
			return true
		}
		_, _, ok := e.layout.FindCard(c.ID)
		return ok
	}
	listRelevant := func(l models.List) bool {
		return l.BoardID == 0 || l.BoardID == e.boardID || e.layout.HasList(l.ID)
	}

	switch v := n.(type) {
	case live.CardCreated:
		return cardRelevant(v.Card)
	case live.CardUpdated:
		return cardRelevant(v.Card)
	case live.CardDeleted:
		return cardRelevant(v.Card)
	case live.ListCreated:
		return listRelevant(v.List)
	case live.ListDeleted:
		return listRelevant(v.List)
	default:
		return false
	}
}

// Close forgets the board. Loads still in flight are dropped.
func (e *Engine) Close() {
	e.mu.Lock()
	e.gen++
	e.boardID = 0
	e.layout = models.NewLayout()
	e.mu.Unlock()
}
