package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/dome/internal/client/models"
	"github.com/dmitrijs2005/dome/internal/common"
	"github.com/dmitrijs2005/dome/internal/logging"
	"github.com/dmitrijs2005/dome/internal/metrics"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	defaultHTTPTimeout        = 15 * time.Second
	defaultHTTPConnectTimeout = 5 * time.Second
)

func defaultHTTPClient() *http.Client {
	dialer := &net.Dialer{Timeout: defaultHTTPConnectTimeout}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: defaultHTTPConnectTimeout,
		},
		Timeout: defaultHTTPTimeout,
	}
}

type HTTPClient struct {
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	metrics  *metrics.Metrics
	log      logging.Logger
	language string

	mu   sync.RWMutex
	auth Auth
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default transport.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit throttles outgoing requests to rps per second. rps <= 0
// disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *HTTPClient) { c.metrics = m }
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.log = l }
}

// WithLanguage sets the Accept-Language sent with every request.
func WithLanguage(lang string) Option {
	return func(c *HTTPClient) { c.language = lang }
}

// NewHTTPClient builds a gateway for the API rooted at baseURL, for example
// "http://localhost:8000/api".
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    defaultHTTPClient(),
		metrics: metrics.New(nil),
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetAuth installs the token provider. Requests already in flight keep the
// token they were sent with.
func (c *HTTPClient) SetAuth(a Auth) {
	c.mu.Lock()
	c.auth = a
	c.mu.Unlock()
}

// SetLanguage changes the Accept-Language of later requests.
func (c *HTTPClient) SetLanguage(lang string) {
	c.mu.Lock()
	c.language = lang
	c.mu.Unlock()
}

func (c *HTTPClient) currentLanguage() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.language
}

func (c *HTTPClient) currentAuth() Auth {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.auth
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}
	return c.do(ctx, method, path, "application/json", body, out)
}

func (c *HTTPClient) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeaderName, uuid.NewString())
	if lang := c.currentLanguage(); lang != "" {
		req.Header.Set(common.AcceptLanguageHeader, lang)
	}

	auth := c.currentAuth()
	var token string
	if auth != nil {
		if token = auth.Token(); token != "" {
			req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+token)
		}
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(method, 0, started)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s %s: %w: %v", method, path, ErrUnavailable, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveRequest(method, resp.StatusCode, started)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{
			Code:   resp.StatusCode,
			Method: method,
			Path:   path,
			Detail: readDetail(resp.Body),
		}
		c.log.Debug(ctx, "api request failed", "method", method, "path", path, "status", resp.StatusCode)
		if IsAuthFailure(resp.StatusCode) && auth != nil {
			auth.Unauthorized(ctx, token)
		}
		return serr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// readDetail extracts the "detail" field of an API error body, falling back
// to the raw text.
func readDetail(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(b) == 0 {
		return ""
	}
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(b, &payload); err == nil && payload.Detail != nil {
		if s, ok := payload.Detail.(string); ok {
			return s
		}
		if d, err := json.Marshal(payload.Detail); err == nil {
			return string(d)
		}
	}
	return strings.TrimSpace(string(b))
}

// Auth

func (c *HTTPClient) Login(ctx context.Context, username, password string) (models.Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var tok models.Token
	err := c.do(ctx, http.MethodPost, "/auth/token", "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()), &tok)
	if err != nil {
		var serr *StatusError
		if errors.As(err, &serr) && (IsAuthFailure(serr.Code) || serr.Code == http.StatusBadRequest) {
			return models.Token{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return models.Token{}, err
	}
	if tok.AccessToken == "" {
		return models.Token{}, fmt.Errorf("login: empty access token: %w", ErrInvalidCredentials)
	}
	return tok, nil
}

func (c *HTTPClient) Register(ctx context.Context, r models.Registration) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/register", r, nil)
}

func (c *HTTPClient) Me(ctx context.Context) (models.User, error) {
	var u models.User
	err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &u)
	return u, err
}

// Workspaces

func (c *HTTPClient) ListWorkspaces(ctx context.Context) ([]models.Workspace, error) {
	var out []models.Workspace
	err := c.doJSON(ctx, http.MethodGet, "/workspaces/", nil, &out)
	return out, err
}

func (c *HTTPClient) GetWorkspace(ctx context.Context, workspaceID int64) (models.Workspace, error) {
	var out models.Workspace
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/workspaces/%d/", workspaceID), nil, &out)
	return out, err
}

func (c *HTTPClient) CreateWorkspace(ctx context.Context, name string) (models.Workspace, error) {
	var out models.Workspace
	err := c.doJSON(ctx, http.MethodPost, "/workspaces/", map[string]string{"name": name}, &out)
	return out, err
}

func (c *HTTPClient) DeleteWorkspace(ctx context.Context, workspaceID int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/workspaces/%d/", workspaceID), nil, nil)
}

func (c *HTTPClient) ListMembers(ctx context.Context, workspaceID int64) ([]models.User, error) {
	var out []models.User
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/workspaces/%d/members/", workspaceID), nil, &out)
	return out, err
}

func (c *HTTPClient) AddMember(ctx context.Context, workspaceID, userID int64) (models.User, error) {
	var out models.User
	path := fmt.Sprintf("/workspaces/%d/members/?user_id=%d", workspaceID, userID)
	err := c.doJSON(ctx, http.MethodPost, path, nil, &out)
	return out, err
}

func (c *HTTPClient) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	var out []models.User
	path := "/users/search/?" + url.Values{"q": []string{query}}.Encode()
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Boards

func (c *HTTPClient) ListBoards(ctx context.Context, workspaceID int64) ([]models.Board, error) {
	var out []models.Board
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/workspaces/%d/boards/", workspaceID), nil, &out)
	return out, err
}

func (c *HTTPClient) GetBoard(ctx context.Context, boardID int64) (models.Board, error) {
	var out models.Board
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/boards/%d/", boardID), nil, &out)
	return out, err
}

func (c *HTTPClient) CreateBoard(ctx context.Context, workspaceID int64, name string) (models.Board, error) {
	var out models.Board
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/workspaces/%d/boards/", workspaceID),
		map[string]string{"name": name}, &out)
	return out, err
}

// Lists

func (c *HTTPClient) ListLists(ctx context.Context, boardID int64) ([]models.List, error) {
	var out []models.List
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/boards/%d/lists/", boardID), nil, &out)
	return out, err
}

func (c *HTTPClient) CreateList(ctx context.Context, boardID int64, name string, position int) (models.List, error) {
	var out models.List
	body := struct {
		Name     string `json:"name"`
		Position int    `json:"position"`
	}{name, position}
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/boards/%d/lists/", boardID), body, &out)
	return out, err
}

func (c *HTTPClient) DeleteList(ctx context.Context, boardID, listID int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/boards/%d/lists/%d/", boardID, listID), nil, nil)
}

// Cards

func (c *HTTPClient) ListCards(ctx context.Context, listID int64) ([]models.Card, error) {
	var out []models.Card
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/lists/%d/cards/", listID), nil, &out)
	return out, err
}

func (c *HTTPClient) CreateCard(ctx context.Context, listID int64, in models.CardCreate) (models.Card, error) {
	var out models.Card
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/lists/%d/cards/", listID), in, &out)
	return out, err
}

func (c *HTTPClient) UpdateCard(ctx context.Context, listID, cardID int64, u models.CardUpdate) (models.Card, error) {
	var out models.Card
	err := c.doJSON(ctx, http.MethodPatch, fmt.Sprintf("/lists/%d/cards/%d", listID, cardID), u, &out)
	return out, err
}

func (c *HTTPClient) DeleteCard(ctx context.Context, listID, cardID int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/lists/%d/cards/%d/", listID, cardID), nil, nil)
}
