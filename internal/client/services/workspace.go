package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/dmitrijs2005/dome/internal/client/client"
	"github.com/dmitrijs2005/dome/internal/client/models"
	"github.com/dmitrijs2005/dome/internal/logging"
)

// MinSearchLength is the shortest query sent to the user search endpoint.
const MinSearchLength = 3

// WorkspaceService wraps the workspace and board endpoints for the shell and
// keeps the board list of the selected workspace.
type WorkspaceService struct {
	api client.Client
	log logging.Logger

	mu          sync.Mutex
	workspaceID int64
	boards      []models.Board
}

func NewWorkspaceService(api client.Client, log logging.Logger) *WorkspaceService {
	return &WorkspaceService{api: api, log: logging.OrNop(log)}
}

func (s *WorkspaceService) Workspaces(ctx context.Context) ([]models.Workspace, error) {
	return s.api.ListWorkspaces(ctx)
}

func (s *WorkspaceService) Workspace(ctx context.Context, workspaceID int64) (models.Workspace, error) {
	return s.api.GetWorkspace(ctx, workspaceID)
}

func (s *WorkspaceService) CreateWorkspace(ctx context.Context, name string) (models.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Workspace{}, fmt.Errorf("workspace name is empty: %w", client.ErrValidation)
	}
	return s.api.CreateWorkspace(ctx, name)
}

// DeleteWorkspace removes a workspace. Only its owner may do so; the server
// answers others with not found.
func (s *WorkspaceService) DeleteWorkspace(ctx context.Context, workspaceID int64) error {
	if err := s.api.DeleteWorkspace(ctx, workspaceID); err != nil {
		return err
	}
	s.mu.Lock()
	if s.workspaceID == workspaceID {
		s.workspaceID = 0
		s.boards = nil
	}
	s.mu.Unlock()
	return nil
}

// Boards fetches the boards of workspaceID and caches them as the current
// board list.
func (s *WorkspaceService) Boards(ctx context.Context, workspaceID int64) ([]models.Board, error) {
	boards, err := s.api.ListBoards(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.workspaceID = workspaceID
	s.boards = append([]models.Board(nil), boards...)
	s.mu.Unlock()
	return boards, nil
}

// CachedBoards returns the last fetched board list and its workspace.
func (s *WorkspaceService) CachedBoards() (int64, []models.Board) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspaceID, append([]models.Board(nil), s.boards...)
}

func (s *WorkspaceService) Board(ctx context.Context, boardID int64) (models.Board, error) {
	return s.api.GetBoard(ctx, boardID)
}

func (s *WorkspaceService) CreateBoard(ctx context.Context, workspaceID int64, name string) (models.Board, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Board{}, fmt.Errorf("board name is empty: %w", client.ErrValidation)
	}
	b, err := s.api.CreateBoard(ctx, workspaceID, name)
	if err != nil {
		return models.Board{}, err
	}
	s.MergeBoard(b)
	return b, nil
}

// MergeBoard adds b to the cached list if it belongs to the current
// workspace and is not already there. It reports whether the list changed.
func (s *WorkspaceService) MergeBoard(b models.Board) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workspaceID == 0 || b.WorkspaceID != s.workspaceID {
		return false
	}
	for _, existing := range s.boards {
		if existing.ID == b.ID {
			return false
		}
	}
	s.boards = append(s.boards, b)
	return true
}

func (s *WorkspaceService) Members(ctx context.Context, workspaceID int64) ([]models.User, error) {
	return s.api.ListMembers(ctx, workspaceID)
}

// SearchCandidates returns users matching query that could be invited to
// workspaceID: existing members and self are left out. Queries shorter
// than MinSearchLength return nothing without a request.
func (s *WorkspaceService) SearchCandidates(ctx context.Context, workspaceID, selfID int64, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinSearchLength {
		return nil, nil
	}

	found, err := s.api.SearchUsers(ctx, query)
	if err != nil {
		return nil, err
	}
	members, err := s.api.ListMembers(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	skip := make(map[int64]struct{}, len(members)+1)
	skip[selfID] = struct{}{}
	for _, m := range members {
		skip[m.ID] = struct{}{}
	}

	out := make([]models.User, 0, len(found))
	for _, u := range found {
		if _, ok := skip[u.ID]; ok {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *WorkspaceService) AddMember(ctx context.Context, workspaceID, userID int64) (models.User, error) {
	u, err := s.api.AddMember(ctx, workspaceID, userID)
	if err != nil {
		return models.User{}, err
	}
	s.log.Info(ctx, "member added", "workspace", workspaceID, "user", u.Username)
	return u, nil
}
