package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/dome/internal/client/apitest"
	"github.com/dmitrijs2005/dome/internal/client/client"
	"github.com/dmitrijs2005/dome/internal/client/models"
	"github.com/dmitrijs2005/dome/internal/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticAuth hands out a fixed token and counts rejections.
type staticAuth struct {
	token        string
	unauthorized atomic.Int32
	rejected     atomic.Value
}

func (a *staticAuth) Token() string { return a.token }
func (a *staticAuth) Unauthorized(ctx context.Context, token string) {
	a.unauthorized.Add(1)
	a.rejected.Store(token)
}

func newAuthed(t *testing.T, opts ...client.Option) (*apitest.Server, *client.HTTPClient, *staticAuth, models.User) {
	t.Helper()
	srv := apitest.NewServer(t)
	u := srv.AddUser("ada", "ada@example.com", "secret")
	c := client.NewHTTPClient(srv.APIURL(), opts...)
	auth := &staticAuth{token: srv.IssueToken(u.ID, time.Hour)}
	c.SetAuth(auth)
	return srv, c, auth, u
}

func TestLogin(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.AddUser("ada", "ada@example.com", "secret")
	c := client.NewHTTPClient(srv.APIURL())

	tok, err := c.Login(context.Background(), "ada", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, tok.AccessToken)
	assert.Equal(t, "bearer", tok.TokenType)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "application/x-www-form-urlencoded", reqs[0].Header.Get("Content-Type"))

	_, err = c.Login(context.Background(), "ada", "wrong")
	require.ErrorIs(t, err, client.ErrInvalidCredentials)
	require.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestRegisterAndMe(t *testing.T) {
	srv := apitest.NewServer(t)
	c := client.NewHTTPClient(srv.APIURL())

	reg := models.Registration{Email: "bo@example.com", Password: "pw", Username: "bo"}
	require.NoError(t, c.Register(context.Background(), reg))

	err := c.Register(context.Background(), reg)
	require.ErrorIs(t, err, client.ErrValidation)
	var serr *client.StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "Email or username already registered", serr.Detail)

	tok, err := c.Login(context.Background(), "bo@example.com", "pw")
	require.NoError(t, err)
	c.SetAuth(&staticAuth{token: tok.AccessToken})

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bo", me.Username)
	assert.Equal(t, "bo@example.com", me.Email)
}

func TestRequestHeaders(t *testing.T) {
	srv, c, auth, _ := newAuthed(t, client.WithLanguage("tr"))

	_, err := c.ListWorkspaces(context.Background())
	require.NoError(t, err)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	h := reqs[0].Header
	assert.Equal(t, "Bearer "+auth.token, h.Get("Authorization"))
	assert.Equal(t, "tr", h.Get("Accept-Language"))
	assert.Equal(t, "application/json", h.Get("Accept"))
	_, err = uuid.Parse(h.Get("X-Request-ID"))
	assert.NoError(t, err)
}

func TestSetLanguage(t *testing.T) {
	srv, c, _, _ := newAuthed(t)

	_, err := c.ListWorkspaces(context.Background())
	require.NoError(t, err)
	c.SetLanguage("tr")
	_, err = c.ListWorkspaces(context.Background())
	require.NoError(t, err)

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.Empty(t, reqs[0].Header.Get("Accept-Language"))
	assert.Equal(t, "tr", reqs[1].Header.Get("Accept-Language"))
}

func TestTokenReadAtSendTime(t *testing.T) {
	srv, c, auth, u := newAuthed(t)

	auth.token = ""
	_, err := c.ListWorkspaces(context.Background())
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Empty(t, srv.Requests()[0].Header.Get("Authorization"))

	auth.token = srv.IssueToken(u.ID, time.Hour)
	_, err = c.ListWorkspaces(context.Background())
	require.NoError(t, err)
}

func TestAuthFailureNotifiesProvider(t *testing.T) {
	srv, c, auth, _ := newAuthed(t)

	srv.Revoke(auth.token)
	_, err := c.Me(context.Background())
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, int32(1), auth.unauthorized.Load())
	assert.Equal(t, auth.token, auth.rejected.Load(), "the rejected token is reported")

	srv.FailNext(http.MethodGet, "/workspaces/", http.StatusForbidden)
	_, err = c.ListWorkspaces(context.Background())
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, int32(2), auth.unauthorized.Load())
}

func TestStatusMapping(t *testing.T) {
	srv, c, auth, _ := newAuthed(t)
	ctx := context.Background()

	_, err := c.GetBoard(ctx, 9999)
	require.ErrorIs(t, err, client.ErrNotFound)
	var serr *client.StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusNotFound, serr.Code)
	assert.Equal(t, "/boards/9999/", serr.Path)
	assert.Equal(t, "Board not found", serr.Detail)

	srv.FailNext(http.MethodGet, "/lists/", http.StatusBadGateway)
	_, err = c.ListCards(ctx, 1)
	require.ErrorIs(t, err, client.ErrUnavailable)

	srv.FailNext(http.MethodPost, "/workspaces/", http.StatusTeapot)
	_, err = c.CreateWorkspace(ctx, "x")
	require.ErrorAs(t, err, &serr)
	assert.Nil(t, errors.Unwrap(serr))

	assert.Equal(t, int32(0), auth.unauthorized.Load(), "only 401/403 reach the provider")
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := client.NewHTTPClient(url+"/api", client.WithTimeout(time.Second)).Me(context.Background())
	require.ErrorIs(t, err, client.ErrUnavailable)
}

func TestCancelledContext(t *testing.T) {
	_, c, _, _ := newAuthed(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ListWorkspaces(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRateLimitHonoursContext(t *testing.T) {
	_, c, _, _ := newAuthed(t, client.WithRateLimit(0.001, 1))

	_, err := c.ListWorkspaces(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.ListWorkspaces(ctx)
	require.Error(t, err)
}

func TestMetricsRecorded(t *testing.T) {
	m := metrics.New(nil)
	_, c, _, _ := newAuthed(t, client.WithMetrics(m))

	_, _ = c.ListWorkspaces(context.Background())
	_, _ = c.GetBoard(context.Background(), 12345)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "4xx")))
}

func TestWorkspaceBoardListCardFlow(t *testing.T) {
	srv, c, _, u := newAuthed(t)
	ctx := context.Background()
	other := srv.AddUser("grace", "grace@example.com", "pw")

	ws, err := c.CreateWorkspace(ctx, "Team")
	require.NoError(t, err)
	assert.Equal(t, u.ID, ws.OwnerID)

	all, err := c.ListWorkspaces(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	found, err := c.SearchUsers(ctx, "grac")
	require.NoError(t, err)
	require.Len(t, found, 1)
	added, err := c.AddMember(ctx, ws.ID, found[0].ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, added.ID)

	members, err := c.ListMembers(ctx, ws.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	full, err := c.GetWorkspace(ctx, ws.ID)
	require.NoError(t, err)
	assert.Len(t, full.Members, 1)

	b, err := c.CreateBoard(ctx, ws.ID, "Sprint")
	require.NoError(t, err)
	boards, err := c.ListBoards(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Board{b}, boards)
	got, err := c.GetBoard(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	todo, err := c.CreateList(ctx, b.ID, "Todo", 0)
	require.NoError(t, err)
	done, err := c.CreateList(ctx, b.ID, "Done", 1)
	require.NoError(t, err)
	lists, err := c.ListLists(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.List{todo, done}, lists)

	card, err := c.CreateCard(ctx, todo.ID, models.CardCreate{Name: "Write", Description: "docs", Position: 0})
	require.NoError(t, err)
	assert.Equal(t, "docs", card.Description)

	pos, to := 0, done.ID
	moved, err := c.UpdateCard(ctx, todo.ID, card.ID, models.CardUpdate{Position: &pos, ListID: &to})
	require.NoError(t, err)
	assert.Equal(t, done.ID, moved.ListID)
	assert.Equal(t, "Write", moved.Name)

	cards, err := c.ListCards(ctx, todo.ID)
	require.NoError(t, err)
	assert.Empty(t, cards)

	require.NoError(t, c.DeleteCard(ctx, done.ID, card.ID))
	require.NoError(t, c.DeleteList(ctx, b.ID, todo.ID))
	require.NoError(t, c.DeleteWorkspace(ctx, ws.ID))

	_, err = c.GetBoard(ctx, b.ID)
	require.ErrorIs(t, err, client.ErrNotFound)
}

func TestUpdateCardOmitsNilFields(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/lists/3/cards/8", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		_, _ = w.Write([]byte(`{"id":8,"name":"n","position":2,"list_id":3}`))
	}))
	defer srv.Close()

	pos := 2
	card, err := client.NewHTTPClient(srv.URL+"/api/").UpdateCard(context.Background(), 3, 8, models.CardUpdate{Position: &pos})
	require.NoError(t, err)
	assert.Equal(t, int64(8), card.ID)
	assert.Equal(t, map[string]any{"position": 2.0}, body)
}

func TestDeleteWorkspace_NotOwner(t *testing.T) {
	srv, c, _, _ := newAuthed(t)
	stranger := srv.AddUser("eve", "eve@example.com", "pw")
	ws := srv.AddWorkspace(stranger.ID, "Theirs")

	err := c.DeleteWorkspace(context.Background(), ws.ID)
	require.ErrorIs(t, err, client.ErrNotFound)
}
