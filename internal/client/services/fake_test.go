package services

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/dome/internal/client/client"
	"github.com/dmitrijs2005/dome/internal/client/models"
)

// fakeClient implements client.Client. Set the *Ret/*Err fields to control
// results; Last* fields record the arguments of the latest call.
type fakeClient struct {
	mu sync.Mutex

	auth client.Auth

	LoginRet models.Token
	LoginErr error
	LoginN   int

	RegisterErr  error
	LastRegister models.Registration

	MeRet models.User
	MeErr error
	// MeStatus, when set, makes Me behave like the gateway on a rejected
	// token: it calls auth.Unauthorized before failing.
	MeStatus int
	MeN      int

	WorkspacesRet []models.Workspace
	WorkspaceRet  models.Workspace
	WorkspaceErr  error
	DeleteWSErr   error
	LastDeleteWS  int64

	BoardsRet      []models.Board
	BoardsErr      error
	BoardRet       models.Board
	CreateBoardRet models.Board
	LastBoardsWS   int64

	MembersRet   []models.User
	MembersErr   error
	SearchRet    []models.User
	SearchErr    error
	SearchN      int
	LastSearch   string
	AddMemberRet models.User
	AddMemberErr error
	LastAddUser  int64
}

func (f *fakeClient) Login(ctx context.Context, username, password string) (models.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LoginN++
	return f.LoginRet, f.LoginErr
}

func (f *fakeClient) Register(ctx context.Context, r models.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastRegister = r
	return f.RegisterErr
}

func (f *fakeClient) Me(ctx context.Context) (models.User, error) {
	f.mu.Lock()
	f.MeN++
	status, auth, ret, err := f.MeStatus, f.auth, f.MeRet, f.MeErr
	f.mu.Unlock()

	if status != 0 {
		if client.IsAuthFailure(status) && auth != nil {
			auth.Unauthorized(ctx, auth.Token())
		}
		return models.User{}, &client.StatusError{Code: status, Method: "GET", Path: "/auth/me"}
	}
	return ret, err
}

func (f *fakeClient) ListWorkspaces(ctx context.Context) ([]models.Workspace, error) {
	return f.WorkspacesRet, nil
}

func (f *fakeClient) GetWorkspace(ctx context.Context, id int64) (models.Workspace, error) {
	return f.WorkspaceRet, f.WorkspaceErr
}

func (f *fakeClient) CreateWorkspace(ctx context.Context, name string) (models.Workspace, error) {
	return models.Workspace{ID: 1, Name: name}, nil
}

func (f *fakeClient) DeleteWorkspace(ctx context.Context, id int64) error {
	f.LastDeleteWS = id
	return f.DeleteWSErr
}

func (f *fakeClient) ListMembers(ctx context.Context, id int64) ([]models.User, error) {
	return f.MembersRet, f.MembersErr
}

func (f *fakeClient) AddMember(ctx context.Context, workspaceID, userID int64) (models.User, error) {
	f.LastAddUser = userID
	return f.AddMemberRet, f.AddMemberErr
}

func (f *fakeClient) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	f.SearchN++
	f.LastSearch = query
	return f.SearchRet, f.SearchErr
}

func (f *fakeClient) ListBoards(ctx context.Context, workspaceID int64) ([]models.Board, error) {
	f.LastBoardsWS = workspaceID
	return f.BoardsRet, f.BoardsErr
}

func (f *fakeClient) GetBoard(ctx context.Context, boardID int64) (models.Board, error) {
	return f.BoardRet, nil
}

func (f *fakeClient) CreateBoard(ctx context.Context, workspaceID int64, name string) (models.Board, error) {
	b := f.CreateBoardRet
	b.Name = name
	b.WorkspaceID = workspaceID
	return b, nil
}

func (f *fakeClient) ListLists(ctx context.Context, boardID int64) ([]models.List, error) {
	return nil, nil
}

func (f *fakeClient) CreateList(ctx context.Context, boardID int64, name string, position int) (models.List, error) {
	return models.List{}, nil
}

func (f *fakeClient) DeleteList(ctx context.Context, boardID, listID int64) error { return nil }

func (f *fakeClient) ListCards(ctx context.Context, listID int64) ([]models.Card, error) {
	return nil, nil
}

func (f *fakeClient) CreateCard(ctx context.Context, listID int64, c models.CardCreate) (models.Card, error) {
	return models.Card{}, nil
}

func (f *fakeClient) UpdateCard(ctx context.Context, listID, cardID int64, u models.CardUpdate) (models.Card, error) {
	return models.Card{}, nil
}

func (f *fakeClient) DeleteCard(ctx context.Context, listID, cardID int64) error { return nil }

// memStore is an in-memory TokenStore.
type memStore struct {
	Token, Email string
	LoadErr      error
	SaveErr      error
	Clears       int
}

func (s *memStore) Load(ctx context.Context) (string, string, error) {
	return s.Token, s.Email, s.LoadErr
}

func (s *memStore) Save(ctx context.Context, token, email string) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.Token, s.Email = token, email
	return nil
}

func (s *memStore) Clear(ctx context.Context) error {
	s.Clears++
	s.Token, s.Email = "", ""
	return nil
}
