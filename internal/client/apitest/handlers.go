package apitest

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/dome/internal/client/models"
)

const tokenTTL = time.Hour

// Auth

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")

	s.mu.Lock()
	var found *account
	for _, a := range s.accounts {
		if a.user.Username == username || a.user.Email == username {
			found = a
			break
		}
	}
	s.mu.Unlock()

	if found == nil || !found.password.Verify(password) {
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	writeJSON(w, http.StatusOK, models.Token{AccessToken: s.IssueToken(found.user.ID, tokenTTL), TokenType: "bearer"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in models.Registration
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if in.Username == "" || in.Email == "" || in.Password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "username, email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.user.Email == in.Email || a.user.Username == in.Username {
			writeDetail(w, http.StatusBadRequest, "Email or username already registered")
			return
		}
	}
	writeJSON(w, http.StatusOK, s.addUserLocked(in.Username, in.Email, in.Password))
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	a := s.accounts[userID(r.Context())]
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, a.user)
}

func (s *Server) searchUsers(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))
	s.mu.Lock()
	out := []models.User{}
	for _, a := range s.accounts {
		if q != "" && (strings.Contains(strings.ToLower(a.user.Username), q) ||
			strings.Contains(strings.ToLower(a.user.Email), q)) {
			out = append(out, a.user)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

// Workspaces

func (s *Server) listWorkspaces(w http.ResponseWriter, r *http.Request) {
	uid := userID(r.Context())
	s.mu.Lock()
	out := []models.Workspace{}
	for id, ws := range s.workspaces {
		if s.canAccessLocked(uid, id) {
			out = append(out, *ws)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createWorkspace(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	if err := decode(r, &in); err != nil || in.Name == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	s.mu.Lock()
	ws := s.addWorkspaceLocked(userID(r.Context()), in.Name)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) getWorkspace(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canAccessLocked(userID(r.Context()), id) {
		writeDetail(w, http.StatusNotFound, "Workspace not found")
		return
	}
	ws := *s.workspaces[id]
	ws.Members = s.membersLocked(id)
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) deleteWorkspace(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	s.mu.Lock()
	ws, ok := s.workspaces[id]
	if !ok || ws.OwnerID != userID(r.Context()) {
		s.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Workspace not found or you are not the owner")
		return
	}
	delete(s.workspaces, id)
	delete(s.members, id)
	for bid, b := range s.boards {
		if b.WorkspaceID == id {
			s.deleteBoardLocked(bid)
		}
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) membersLocked(workspaceID int64) []models.User {
	out := []models.User{}
	for uid := range s.members[workspaceID] {
		out = append(out, s.accounts[uid].user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canAccessLocked(userID(r.Context()), id) {
		writeDetail(w, http.StatusNotFound, "Workspace not found")
		return
	}
	writeJSON(w, http.StatusOK, s.membersLocked(id))
}

func (s *Server) addMember(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	memberID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "user_id is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canAccessLocked(userID(r.Context()), id) {
		writeDetail(w, http.StatusNotFound, "Workspace not found")
		return
	}
	a, ok := s.accounts[memberID]
	if !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	if s.members[id][memberID] || s.workspaces[id].OwnerID == memberID {
		writeDetail(w, http.StatusBadRequest, "User is already a member")
		return
	}
	s.members[id][memberID] = true
	writeJSON(w, http.StatusOK, a.user)
}

// Boards

func (s *Server) listBoards(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canAccessLocked(userID(r.Context()), id) {
		writeDetail(w, http.StatusNotFound, "Workspace not found")
		return
	}
	out := []models.Board{}
	for _, b := range s.boards {
		if b.WorkspaceID == id {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createBoard(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	var in struct {
		Name string `json:"name"`
	}
	if err := decode(r, &in); err != nil || in.Name == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canAccessLocked(userID(r.Context()), id) {
		writeDetail(w, http.StatusNotFound, "Workspace not found")
		return
	}
	s.nextID++
	b := models.Board{ID: s.nextID, Name: in.Name, WorkspaceID: id}
	s.boards[b.ID] = b
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) getBoard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	b, ok := s.boardForLocked(userID(r.Context()), pathID(r, "id"))
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Board not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) deleteBoardLocked(boardID int64) {
	delete(s.boards, boardID)
	for lid, l := range s.lists {
		if l.BoardID == boardID {
			s.deleteListLocked(lid)
		}
	}
}

// Lists

func (s *Server) listLists(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boardForLocked(userID(r.Context()), id); !ok {
		writeDetail(w, http.StatusNotFound, "Board not found")
		return
	}
	out := []models.List{}
	for _, l := range s.lists {
		if l.BoardID == id {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createList(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	var in struct {
		Name     string `json:"name"`
		Position int    `json:"position"`
	}
	if err := decode(r, &in); err != nil || in.Name == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boardForLocked(userID(r.Context()), id); !ok {
		writeDetail(w, http.StatusNotFound, "Board not found")
		return
	}
	s.nextID++
	l := models.List{ID: s.nextID, Name: in.Name, Position: in.Position, BoardID: id}
	s.lists[l.ID] = l
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) deleteList(w http.ResponseWriter, r *http.Request) {
	boardID, listID := pathID(r, "id"), pathID(r, "listID")
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listForLocked(userID(r.Context()), listID)
	if !ok || l.BoardID != boardID {
		writeDetail(w, http.StatusNotFound, "List not found")
		return
	}
	s.deleteListLocked(listID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteListLocked(listID int64) {
	delete(s.lists, listID)
	for cid, c := range s.cards {
		if c.ListID == listID {
			delete(s.cards, cid)
		}
	}
}

// Cards

func (s *Server) listCards(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listForLocked(userID(r.Context()), id); !ok {
		writeDetail(w, http.StatusNotFound, "List not found")
		return
	}
	writeJSON(w, http.StatusOK, s.cardsOfLocked(id))
}

func (s *Server) createCard(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	var in models.CardCreate
	if err := decode(r, &in); err != nil || in.Name == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listForLocked(userID(r.Context()), id); !ok {
		writeDetail(w, http.StatusNotFound, "List not found")
		return
	}
	s.nextID++
	c := models.Card{ID: s.nextID, Name: in.Name, Description: in.Description, Position: in.Position, ListID: id}
	s.cards[c.ID] = c
	writeJSON(w, http.StatusOK, c)
}

// updateCard applies the fields present in the body. Positions of other
// cards are left alone.
func (s *Server) updateCard(w http.ResponseWriter, r *http.Request) {
	listID, cardID := pathID(r, "id"), pathID(r, "cardID")
	var in models.CardUpdate
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	uid := userID(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[cardID]
	if _, access := s.listForLocked(uid, listID); !ok || !access || c.ListID != listID {
		writeDetail(w, http.StatusNotFound, "Card not found")
		return
	}
	if in.ListID != nil && *in.ListID != listID {
		if _, ok := s.listForLocked(uid, *in.ListID); !ok {
			writeDetail(w, http.StatusNotFound, "Card not found")
			return
		}
		c.ListID = *in.ListID
	}
	if in.Position != nil {
		c.Position = *in.Position
	}
	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	s.cards[cardID] = c
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) deleteCard(w http.ResponseWriter, r *http.Request) {
	listID, cardID := pathID(r, "id"), pathID(r, "cardID")
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[cardID]
	if _, access := s.listForLocked(userID(r.Context()), listID); !ok || !access || c.ListID != listID {
		writeDetail(w, http.StatusNotFound, "Card not found")
		return
	}
	delete(s.cards, cardID)
	w.WriteHeader(http.StatusNoContent)
}
