package live

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dome/internal/client/models"
)

// Wire names of the notification kinds.
const (
	KindCardCreated  = "card_created"
	KindCardUpdated  = "card_updated"
	KindCardDeleted  = "card_deleted"
	KindListCreated  = "list_created"
	KindListDeleted  = "list_deleted"
	KindBoardCreated = "board_created"
)

var ErrUnknownNotification = errors.New("unknown notification type")

// Notification is one change announced on a workspace channel. The set of
// implementations is closed: CardCreated, CardUpdated, CardDeleted,
// ListCreated, ListDeleted and BoardCreated.
type Notification interface {
	Kind() string
	notification()
}

type CardCreated struct{ Card models.Card }
type CardUpdated struct{ Card models.Card }
type CardDeleted struct{ Card models.Card }
type ListCreated struct{ List models.List }
type ListDeleted struct{ List models.List }
type BoardCreated struct{ Board models.Board }

func (CardCreated) Kind() string  { return KindCardCreated }
func (CardUpdated) Kind() string  { return KindCardUpdated }
func (CardDeleted) Kind() string  { return KindCardDeleted }
func (ListCreated) Kind() string  { return KindListCreated }
func (ListDeleted) Kind() string  { return KindListDeleted }
func (BoardCreated) Kind() string { return KindBoardCreated }

func (CardCreated) notification()  {}
func (CardUpdated) notification()  {}
func (CardDeleted) notification()  {}
func (ListCreated) notification()  {}
func (ListDeleted) notification()  {}
func (BoardCreated) notification() {}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode parses a {"type": ..., "payload": ...} text frame. The payload is
// optional; when absent the entity is left zero.
func Decode(b []byte) (Notification, error) {
	var f frame
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}

	var (
		n   Notification
		err error
	)
	switch f.Type {
	case KindCardCreated:
		var v CardCreated
		err = decodePayload(f, &v.Card)
		n = v
	case KindCardUpdated:
		var v CardUpdated
		err = decodePayload(f, &v.Card)
		n = v
	case KindCardDeleted:
		var v CardDeleted
		err = decodePayload(f, &v.Card)
		n = v
	case KindListCreated:
		var v ListCreated
		err = decodePayload(f, &v.List)
		n = v
	case KindListDeleted:
		var v ListDeleted
		err = decodePayload(f, &v.List)
		n = v
	case KindBoardCreated:
		var v BoardCreated
		err = decodePayload(f, &v.Board)
		n = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNotification, f.Type)
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func decodePayload(f frame, v any) error {
	if len(f.Payload) == 0 || string(f.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(f.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", f.Type, err)
	}
	return nil
}

// Encode renders n as a text frame understood by Decode.
func Encode(n Notification) ([]byte, error) {
	var payload any
	switch v := n.(type) {
	case CardCreated:
		payload = v.Card
	case CardUpdated:
		payload = v.Card
	case CardDeleted:
		payload = v.Card
	case ListCreated:
		payload = v.List
	case ListDeleted:
		payload = v.List
	case BoardCreated:
		payload = v.Board
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownNotification, n)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(frame{Type: n.Kind(), Payload: raw})
}
