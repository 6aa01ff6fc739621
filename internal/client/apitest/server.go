// Package apitest runs an in-memory kanban server for tests: the REST
// surface under /api and the workspace relay under /ws/{workspaceID}.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/dome/internal/client/models"
	"github.com/dmitrijs2005/dome/internal/common"
	"github.com/dmitrijs2005/dome/internal/cryptox"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const APIPrefix = "/api"

type account struct {
	user     models.User
	password cryptox.PasswordHash
}

type failure struct {
	method string
	path   string
	status int
}

// Server is a fake kanban backend. All state is in memory and guarded by mu.
type Server struct {
	*httptest.Server

	secret []byte
	now    func() time.Time

	mu         sync.Mutex
	nextID     int64
	accounts   map[int64]*account
	revoked    map[string]bool
	workspaces map[int64]*models.Workspace
	members    map[int64]map[int64]bool
	boards     map[int64]models.Board
	lists      map[int64]models.List
	cards      map[int64]models.Card
	failures   []failure
	requests   []*http.Request

	upgrader websocket.Upgrader
	relayMu  sync.Mutex
	peers    map[int64]map[*websocket.Conn]*sync.Mutex
}

// NewServer starts a server that is closed when t finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		secret:     []byte("apitest-" + strconv.FormatInt(time.Now().UnixNano(), 10)),
		now:        time.Now,
		accounts:   map[int64]*account{},
		revoked:    map[string]bool{},
		workspaces: map[int64]*models.Workspace{},
		members:    map[int64]map[int64]bool{},
		boards:     map[int64]models.Board{},
		lists:      map[int64]models.List{},
		cards:      map[int64]models.Card{},
		peers:      map[int64]map[*websocket.Conn]*sync.Mutex{},
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(func() {
		s.closePeers()
		s.Close()
	})
	return s
}

// APIURL is the root of the REST surface.
func (s *Server) APIURL() string { return s.URL + APIPrefix }

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.recordAndFail)

	r.HandleFunc("/ws/{workspaceID:[0-9]+}", s.relay)

	api := r.PathPrefix(APIPrefix).Subrouter()
	api.HandleFunc("/auth/token", s.login).Methods(http.MethodPost)
	api.HandleFunc("/auth/register", s.register).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(s.authenticate)
	authed.HandleFunc("/auth/me", s.me).Methods(http.MethodGet)
	authed.HandleFunc("/users/search/", s.searchUsers).Methods(http.MethodGet)

	authed.HandleFunc("/workspaces/", s.listWorkspaces).Methods(http.MethodGet)
	authed.HandleFunc("/workspaces/", s.createWorkspace).Methods(http.MethodPost)
	authed.HandleFunc("/workspaces/{id:[0-9]+}/", s.getWorkspace).Methods(http.MethodGet)
	authed.HandleFunc("/workspaces/{id:[0-9]+}/", s.deleteWorkspace).Methods(http.MethodDelete)
	authed.HandleFunc("/workspaces/{id:[0-9]+}/members/", s.listMembers).Methods(http.MethodGet)
	authed.HandleFunc("/workspaces/{id:[0-9]+}/members/", s.addMember).Methods(http.MethodPost)
	authed.HandleFunc("/workspaces/{id:[0-9]+}/boards/", s.listBoards).Methods(http.MethodGet)
	authed.HandleFunc("/workspaces/{id:[0-9]+}/boards/", s.createBoard).Methods(http.MethodPost)

	authed.HandleFunc("/boards/{id:[0-9]+}/", s.getBoard).Methods(http.MethodGet)
	authed.HandleFunc("/boards/{id:[0-9]+}/lists/", s.listLists).Methods(http.MethodGet)
	authed.HandleFunc("/boards/{id:[0-9]+}/lists/", s.createList).Methods(http.MethodPost)
	authed.HandleFunc("/boards/{id:[0-9]+}/lists/{listID:[0-9]+}/", s.deleteList).Methods(http.MethodDelete)

	authed.HandleFunc("/lists/{id:[0-9]+}/cards/", s.listCards).Methods(http.MethodGet)
	authed.HandleFunc("/lists/{id:[0-9]+}/cards/", s.createCard).Methods(http.MethodPost)
	authed.HandleFunc("/lists/{id:[0-9]+}/cards/{cardID:[0-9]+}", s.updateCard).Methods(http.MethodPatch)
	authed.HandleFunc("/lists/{id:[0-9]+}/cards/{cardID:[0-9]+}/", s.deleteCard).Methods(http.MethodDelete)

	return r
}

// Fixtures

// AddUser registers an account directly.
func (s *Server) AddUser(username, email, password string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, email, password)
}

func (s *Server) addUserLocked(username, email, password string) models.User {
	s.nextID++
	u := models.User{ID: s.nextID, Username: username, Email: email, IsActive: true, CreatedAt: s.now().UTC()}
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		panic(err)
	}
	s.accounts[u.ID] = &account{user: u, password: hash}
	return u
}

// IssueToken signs a token for userID that expires after ttl.
func (s *Server) IssueToken(userID int64, ttl time.Duration) string {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(s.now().Add(ttl)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return tok
}

// Revoke makes every later request carrying token fail with 401.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	s.revoked[token] = true
	s.mu.Unlock()
}

// AddWorkspace creates a workspace owned by ownerID.
func (s *Server) AddWorkspace(ownerID int64, name string) models.Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addWorkspaceLocked(ownerID, name)
}

func (s *Server) addWorkspaceLocked(ownerID int64, name string) models.Workspace {
	s.nextID++
	w := &models.Workspace{ID: s.nextID, Name: name, OwnerID: ownerID}
	s.workspaces[w.ID] = w
	s.members[w.ID] = map[int64]bool{}
	return *w
}

// AddBoard creates a board with one list per entry of lists, each holding
// the named cards in order.
func (s *Server) AddBoard(workspaceID int64, name string, lists map[string][]string, order ...string) (models.Board, []models.List) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	b := models.Board{ID: s.nextID, Name: name, WorkspaceID: workspaceID}
	s.boards[b.ID] = b

	var out []models.List
	for i, ln := range order {
		s.nextID++
		l := models.List{ID: s.nextID, Name: ln, Position: i, BoardID: b.ID}
		s.lists[l.ID] = l
		out = append(out, l)
		for j, cn := range lists[ln] {
			s.nextID++
			s.cards[s.nextID] = models.Card{ID: s.nextID, Name: cn, Position: j, ListID: l.ID}
		}
	}
	return b, out
}

// Cards returns the cards of listID in server order.
func (s *Server) Cards(listID int64) []models.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cardsOfLocked(listID)
}

// FailNext makes the next request whose method matches and whose path
// contains path answer with status.
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	s.failures = append(s.failures, failure{method: method, path: path, status: status})
	s.mu.Unlock()
}

// Requests returns every request received so far.
func (s *Server) Requests() []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*http.Request(nil), s.requests...)
}

// Middleware

type ctxKey struct{}

func (s *Server) recordAndFail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Clone(r.Context()))
		status := 0
		for i, f := range s.failures {
			if f.method == r.Method && strings.Contains(r.URL.Path, f.path) {
				status = f.status
				s.failures = append(s.failures[:i], s.failures[i+1:]...)
				break
			}
		}
		s.mu.Unlock()

		if status != 0 {
			writeDetail(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.userFromRequest(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", common.BearerScheme)
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), userID)))
	})
}

func (s *Server) userFromRequest(r *http.Request) (int64, bool) {
	h := r.Header.Get(common.AuthorizationHeaderName)
	token, ok := strings.CutPrefix(h, common.BearerScheme+" ")
	if !ok || token == "" {
		return 0, false
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now))
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revoked[token] {
		return 0, false
	}
	_, exists := s.accounts[id]
	return id, exists
}

// Helpers

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid body: %w", err)
	}
	return nil
}

// canAccessLocked reports whether userID owns or belongs to workspaceID.
func (s *Server) canAccessLocked(userID, workspaceID int64) bool {
	w, ok := s.workspaces[workspaceID]
	if !ok {
		return false
	}
	return w.OwnerID == userID || s.members[workspaceID][userID]
}

func (s *Server) boardForLocked(userID, boardID int64) (models.Board, bool) {
	b, ok := s.boards[boardID]
	if !ok || !s.canAccessLocked(userID, b.WorkspaceID) {
		return models.Board{}, false
	}
	return b, true
}

func (s *Server) listForLocked(userID, listID int64) (models.List, bool) {
	l, ok := s.lists[listID]
	if !ok {
		return models.List{}, false
	}
	if _, ok := s.boardForLocked(userID, l.BoardID); !ok {
		return models.List{}, false
	}
	return l, true
}

func (s *Server) cardsOfLocked(listID int64) []models.Card {
	out := []models.Card{}
	for _, c := range s.cards {
		if c.ListID == listID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}
