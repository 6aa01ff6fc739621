package board

import (
	"context"
	"net/http"
	"sync"

	"github.com/dmitrijs2005/dome/internal/client/client"
	"github.com/dmitrijs2005/dome/internal/client/models"
)

type updateCall struct {
	ListID int64
	CardID int64
	Update models.CardUpdate
}

// fakeGateway is an in-memory server. Boards missing from lists answer 404.
type fakeGateway struct {
	mu sync.Mutex

	lists map[int64][]models.List
	cards map[int64][]models.Card

	listListsN int
	listCardsN int
	updates    []updateCall
	createList []models.List
	createCard []models.CardCreate
	deletes    []int64

	UpdateErr    error
	CreateErr    error
	DeleteErr    error
	ListCardsErr error
	nextID       int64
	onListLists  func(boardID int64)
	onUpdateCard func()
	onDeleteCard func()
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		lists:  map[int64][]models.List{},
		cards:  map[int64][]models.Card{},
		nextID: 1000,
	}
}

// seed installs a board whose lists hold the named cards, in order.
func (f *fakeGateway) seed(boardID int64, lists ...[]string) []models.List {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.List
	for i, names := range lists {
		f.nextID++
		l := models.List{ID: f.nextID, Name: "L", Position: i, BoardID: boardID}
		out = append(out, l)
		var cards []models.Card
		for j, n := range names {
			f.nextID++
			cards = append(cards, models.Card{ID: f.nextID, Name: n, Position: j, ListID: l.ID})
		}
		f.cards[l.ID] = cards
	}
	f.lists[boardID] = out
	return out
}

func (f *fakeGateway) ListLists(ctx context.Context, boardID int64) ([]models.List, error) {
	f.mu.Lock()
	f.listListsN++
	hook := f.onListLists
	f.mu.Unlock()
	if hook != nil {
		hook(boardID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	lists, ok := f.lists[boardID]
	if !ok {
		return nil, &client.StatusError{Code: http.StatusNotFound, Method: "GET", Detail: "Board not found"}
	}
	return append([]models.List(nil), lists...), nil
}

func (f *fakeGateway) ListCards(ctx context.Context, listID int64) ([]models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCardsN++
	if f.ListCardsErr != nil {
		return nil, f.ListCardsErr
	}
	return append([]models.Card(nil), f.cards[listID]...), nil
}

func (f *fakeGateway) CreateList(ctx context.Context, boardID int64, name string, position int) (models.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return models.List{}, f.CreateErr
	}
	f.nextID++
	l := models.List{ID: f.nextID, Name: name, Position: position, BoardID: boardID}
	f.createList = append(f.createList, l)
	f.lists[boardID] = append(f.lists[boardID], l)
	return l, nil
}

func (f *fakeGateway) CreateCard(ctx context.Context, listID int64, c models.CardCreate) (models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return models.Card{}, f.CreateErr
	}
	f.createCard = append(f.createCard, c)
	f.nextID++
	card := models.Card{ID: f.nextID, Name: c.Name, Description: c.Description, Position: c.Position, ListID: listID}
	f.cards[listID] = append(f.cards[listID], card)
	return card, nil
}

func (f *fakeGateway) UpdateCard(ctx context.Context, listID, cardID int64, u models.CardUpdate) (models.Card, error) {
	f.mu.Lock()
	f.updates = append(f.updates, updateCall{ListID: listID, CardID: cardID, Update: u})
	hook, err := f.onUpdateCard, f.UpdateErr
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return models.Card{}, err
	}
	return models.Card{ID: cardID}, nil
}

func (f *fakeGateway) DeleteList(ctx context.Context, boardID, listID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.deletes = append(f.deletes, listID)
	lists := f.lists[boardID][:0:0]
	for _, l := range f.lists[boardID] {
		if l.ID != listID {
			lists = append(lists, l)
		}
	}
	f.lists[boardID] = lists
	delete(f.cards, listID)
	return nil
}

func (f *fakeGateway) DeleteCard(ctx context.Context, listID, cardID int64) error {
	f.mu.Lock()
	hook := f.onDeleteCard
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.deletes = append(f.deletes, cardID)
	var kept []models.Card
	for _, c := range f.cards[listID] {
		if c.ID != cardID {
			c.Position = len(kept)
			kept = append(kept, c)
		}
	}
	f.cards[listID] = kept
	return nil
}

func (f *fakeGateway) loads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listListsN
}
