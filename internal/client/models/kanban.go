// Package models defines the client-side view of the kanban resources served
// by the remote API.
package models

import "time"

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Workspace is the top-level container. Members is filled only by endpoints
// that return the full workspace.
type Workspace struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	OwnerID int64  `json:"owner_id"`
	Members []User `json:"members,omitempty"`
}

// IsOwner reports whether userID owns w.
func (w Workspace) IsOwner(userID int64) bool {
	return w.OwnerID == userID
}

type Board struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	WorkspaceID int64  `json:"workspace_id"`
}

type List struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
	BoardID  int64  `json:"board_id"`
}

type Card struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Position    int    `json:"position"`
	ListID      int64  `json:"list_id"`
}

// CardCreate is the body of a card creation request.
type CardCreate struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Position    int    `json:"position"`
}

// CardUpdate is a partial card update. Nil fields are not sent.
type CardUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Position    *int    `json:"position,omitempty"`
	ListID      *int64  `json:"list_id,omitempty"`
}

// Token is the bearer token issued by the login endpoint.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Registration is the body of a sign-up request.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}
