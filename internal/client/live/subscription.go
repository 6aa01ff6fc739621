// Package live implements the workspace push channel: one websocket per
// open workspace delivering typed change notifications.
package live

import (
	"context"
	"errors"
	"fmt"
	mathrand "math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/dome/internal/common"
	"github.com/dmitrijs2005/dome/internal/logging"
	"github.com/dmitrijs2005/dome/internal/metrics"
	"github.com/dmitrijs2005/dome/internal/netx"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultReconnectAttempts  = 5
	DefaultReconnectBaseDelay = 500 * time.Millisecond
	DefaultReconnectMaxDelay  = 10 * time.Second

	defaultHandshakeTimeout = 10 * time.Second
	writeTimeout            = 5 * time.Second
)

var ErrClosed = errors.New("subscription closed")

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

func newID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

type Options struct {
	// ServerURL is the http(s) or ws(s) root of the server; the channel
	// lives at /ws/{WorkspaceID} under it.
	ServerURL   string
	WorkspaceID int64
	// Token, when set, is sent as a bearer Authorization header.
	Token string

	Logger  logging.Logger
	Metrics *metrics.Metrics
	Dialer  *websocket.Dialer

	// ReconnectAttempts bounds re-dials after a drop. Zero means the
	// default; a negative value disables reconnecting.
	ReconnectAttempts  int
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
}

func (o *Options) setDefaults() {
	o.Logger = logging.OrNop(o.Logger)
	if o.Metrics == nil {
		o.Metrics = metrics.New(nil)
	}
	if o.Dialer == nil {
		o.Dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: defaultHandshakeTimeout,
		}
	}
	if o.ReconnectAttempts == 0 {
		o.ReconnectAttempts = DefaultReconnectAttempts
	}
	if o.ReconnectBaseDelay <= 0 {
		o.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if o.ReconnectMaxDelay <= 0 {
		o.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
}

// Subscription is an open workspace channel. Handlers registered with
// OnNotification run one at a time on the reader goroutine.
type Subscription struct {
	id   string
	url  string
	opts Options
	log  logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers []func(Notification)
	err      error

	writeMu sync.Mutex
}

// Dial opens the channel of opts.WorkspaceID. The first connection attempt is
// made synchronously and its failure is returned; later drops are handled by
// the reconnect policy.
func Dial(ctx context.Context, opts Options) (*Subscription, error) {
	opts.setDefaults()

	u, err := netx.WebSocketURL(opts.ServerURL, fmt.Sprintf("/ws/%d", opts.WorkspaceID))
	if err != nil {
		return nil, err
	}

	id := newID()
	runCtx, cancel := context.WithCancel(context.Background())
	s := &Subscription{
		id:     id,
		url:    u,
		opts:   opts,
		log:    opts.Logger.With("subscription", id, "workspace_id", opts.WorkspaceID),
		ctx:    runCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	conn, err := s.dial(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	s.conn = conn
	s.log.Debug(ctx, "live channel connected", "url", u)

	go s.run(conn)
	return s, nil
}

func (s *Subscription) ID() string { return s.id }

// OnNotification registers fn for every decoded notification.
func (s *Subscription) OnNotification(fn func(Notification)) {
	s.mu.Lock()
	s.handlers = append(s.handlers, fn)
	s.mu.Unlock()
}

// Done is closed once the subscription has stopped, either through Close or
// because reconnecting gave up.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err returns why the subscription stopped on its own. It is nil while
// running and when stopped by Close.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Send writes a raw text frame to the channel.
func (s *Subscription) Send(text string) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil || s.ctx.Err() != nil {
		return ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Publish announces n to every subscriber of the workspace, this one
// included.
func (s *Subscription) Publish(n Notification) error {
	b, err := Encode(n)
	if err != nil {
		return err
	}
	return s.Send(string(b))
}

// Close releases the connection immediately. It is safe to call more than
// once.
func (s *Subscription) Close() error {
	s.cancel()

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	s.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.writeMu.Unlock()
	return conn.Close()
}

func (s *Subscription) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if s.opts.Token != "" {
		header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+s.opts.Token)
	}
	conn, resp, err := s.opts.Dialer.DialContext(ctx, s.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

func (s *Subscription) run(conn *websocket.Conn) {
	defer close(s.done)

	for {
		err := s.read(conn)
		if s.ctx.Err() != nil {
			return
		}
		s.log.Warn(s.ctx, "live channel dropped", "error", err)

		next, err := s.reconnect()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.log.Error(s.ctx, "live channel gave up reconnecting", "error", err)
			s.mu.Lock()
			s.err = err
			s.conn = nil
			s.mu.Unlock()
			return
		}
		conn = next
	}
}

// read pumps frames from conn until it fails.
func (s *Subscription) read(conn *websocket.Conn) error {
	defer conn.Close()
	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if kind != websocket.TextMessage || len(msg) == 0 {
			continue
		}

		n, err := Decode(msg)
		if err != nil {
			s.log.Debug(s.ctx, "notification dropped", "error", err)
			continue
		}
		s.opts.Metrics.Notifications.WithLabelValues(n.Kind()).Inc()
		s.dispatch(n)
	}
}

func (s *Subscription) dispatch(n Notification) {
	s.mu.Lock()
	handlers := s.handlers
	s.mu.Unlock()

	for _, fn := range handlers {
		fn(n)
	}
}

// reconnect re-dials with capped exponential backoff.
func (s *Subscription) reconnect() (*websocket.Conn, error) {
	if s.opts.ReconnectAttempts < 0 {
		return nil, fmt.Errorf("connection lost: %w", ErrClosed)
	}

	b := retry.NewExponential(s.opts.ReconnectBaseDelay)
	b = retry.WithCappedDuration(s.opts.ReconnectMaxDelay, b)
	b = retry.WithMaxRetries(uint64(s.opts.ReconnectAttempts-1), b)

	var conn *websocket.Conn
	attempt := 0
	err := retry.Do(s.ctx, b, func(ctx context.Context) error {
		attempt++
		s.opts.Metrics.Reconnects.Inc()
		c, err := s.dial(ctx)
		if err != nil {
			s.log.Warn(ctx, "live channel reconnect failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reconnect after %d attempts: %w", attempt, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		_ = conn.Close()
		return nil, ErrClosed
	}
	s.conn = conn
	s.log.Info(s.ctx, "live channel reconnected", "attempt", attempt)
	return conn, nil
}
