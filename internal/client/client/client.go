package client

import (
	"context"

	"github.com/dmitrijs2005/dome/internal/client/models"
)

// Auth supplies the bearer token for outgoing calls and is told when the
// server rejects it. Unauthorized receives the token the rejected request
// carried, which may be empty.
type Auth interface {
	Token() string
	Unauthorized(ctx context.Context, token string)
}

// Client is the Remote Data Gateway: one method per resource action.
type Client interface {
	Login(ctx context.Context, username, password string) (models.Token, error)
	Register(ctx context.Context, r models.Registration) error
	Me(ctx context.Context) (models.User, error)

	ListWorkspaces(ctx context.Context) ([]models.Workspace, error)
	GetWorkspace(ctx context.Context, workspaceID int64) (models.Workspace, error)
	CreateWorkspace(ctx context.Context, name string) (models.Workspace, error)
	DeleteWorkspace(ctx context.Context, workspaceID int64) error
	ListMembers(ctx context.Context, workspaceID int64) ([]models.User, error)
	AddMember(ctx context.Context, workspaceID, userID int64) (models.User, error)
	SearchUsers(ctx context.Context, query string) ([]models.User, error)

	ListBoards(ctx context.Context, workspaceID int64) ([]models.Board, error)
	GetBoard(ctx context.Context, boardID int64) (models.Board, error)
	CreateBoard(ctx context.Context, workspaceID int64, name string) (models.Board, error)

	ListLists(ctx context.Context, boardID int64) ([]models.List, error)
	CreateList(ctx context.Context, boardID int64, name string, position int) (models.List, error)
	DeleteList(ctx context.Context, boardID, listID int64) error

	ListCards(ctx context.Context, listID int64) ([]models.Card, error)
	CreateCard(ctx context.Context, listID int64, c models.CardCreate) (models.Card, error)
	UpdateCard(ctx context.Context, listID, cardID int64, u models.CardUpdate) (models.Card, error)
	DeleteCard(ctx context.Context, listID, cardID int64) error
}
