package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dmitrijs2005/dome/internal/buildinfo"
	"github.com/dmitrijs2005/dome/internal/client/board"
	"github.com/dmitrijs2005/dome/internal/client/client"
	"github.com/dmitrijs2005/dome/internal/client/config"
	"github.com/dmitrijs2005/dome/internal/client/export"
	"github.com/dmitrijs2005/dome/internal/client/i18n"
	"github.com/dmitrijs2005/dome/internal/client/live"
	"github.com/dmitrijs2005/dome/internal/client/models"
	"github.com/dmitrijs2005/dome/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/dome/internal/client/services"
	"github.com/dmitrijs2005/dome/internal/logging"
	"github.com/dmitrijs2005/dome/internal/metrics"
	"github.com/dmitrijs2005/dome/internal/netx"
	"github.com/prometheus/client_golang/prometheus"
)

var errNoWorkspace = errors.New("no workspace selected")

type languageStore interface {
	Language(ctx context.Context) (string, error)
	SetLanguage(ctx context.Context, lang string) error
}

type languageSetter interface {
	SetLanguage(lang string)
}

// dialFunc opens the live channel of a workspace.
type dialFunc func(ctx context.Context, workspaceID int64, token string) (*live.Subscription, error)

type appDeps struct {
	session    *services.SessionManager
	workspaces *services.WorkspaceService
	engine     *board.Engine
	catalog    *i18n.Catalog
	languages  languageStore
	gateway    languageSetter
	exporter   export.Exporter
	dial       dialFunc
	log        logging.Logger
	in         io.Reader
	out        io.Writer
}

// App is the interactive shell. View state (workspace, board, live
// subscription) is guarded by mu because live notifications arrive on the
// subscription's goroutine.
type App struct {
	session    *services.SessionManager
	workspaces *services.WorkspaceService
	engine     *board.Engine
	catalog    *i18n.Catalog
	languages  languageStore
	gateway    languageSetter
	exporter   export.Exporter
	dial       dialFunc
	log        logging.Logger
	reader     *bufio.Reader
	out        io.Writer
	closers    []func() error

	mu        sync.Mutex
	outMu     sync.Mutex
	workspace models.Workspace
	board     models.Board
	sub       *live.Subscription
	echoes    map[string]int
}

// NewApp wires the shell from cfg: local database, gateway, session,
// services, live channel and exporter.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.New(os.Stderr, cfg.LogLevel)

	db, err := client.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	store := metadata.NewSessionStore(db)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.SetBuildInfo(buildinfo.Version, buildinfo.Commit)
	metricsCtx, stopMetrics := context.WithCancel(context.Background())
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(metricsCtx, cfg.MetricsAddr, reg); err != nil {
				log.Error(metricsCtx, "metrics endpoint stopped", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
	}

	catalog, err := i18n.New(resolveLanguage(ctx, cfg.Language, store))
	if err != nil {
		stopMetrics()
		_ = db.Close()
		return nil, err
	}

	api := client.NewHTTPClient(netx.JoinURL(cfg.ServerURL, cfg.APIPrefix),
		client.WithTimeout(cfg.RequestTimeout),
		client.WithRateLimit(cfg.RequestsPerSecond, 1),
		client.WithMetrics(m),
		client.WithLogger(log),
		client.WithLanguage(catalog.Language()),
	)
	session := services.NewSessionManager(api, store, log)
	api.SetAuth(session)

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		stopMetrics()
		_ = db.Close()
		return nil, err
	}

	dial := func(ctx context.Context, workspaceID int64, token string) (*live.Subscription, error) {
		return live.Dial(ctx, live.Options{
			ServerURL:          cfg.ServerURL,
			WorkspaceID:        workspaceID,
			Token:              token,
			Logger:             log,
			Metrics:            m,
			ReconnectAttempts:  cfg.ReconnectAttempts,
			ReconnectBaseDelay: cfg.ReconnectBaseDelay,
			ReconnectMaxDelay:  cfg.ReconnectMaxDelay,
		})
	}

	a := newApp(appDeps{
		session:    session,
		workspaces: services.NewWorkspaceService(api, log),
		engine:     board.NewEngine(api, board.WithLogger(log), board.WithMetrics(m)),
		catalog:    catalog,
		languages:  store,
		gateway:    api,
		exporter:   exporter,
		dial:       dial,
		log:        log,
		in:         os.Stdin,
		out:        os.Stdout,
	})
	a.closers = append(a.closers, func() error { stopMetrics(); return nil }, db.Close)
	return a, nil
}

func newExporter(ctx context.Context, cfg *config.Config) (export.Exporter, error) {
	if cfg.ExportBucket == "" {
		return export.FileExporter{Dir: cfg.ExportDir}, nil
	}
	return export.NewS3Exporter(ctx, export.S3Options{
		Bucket:    cfg.ExportBucket,
		Prefix:    cfg.ExportPrefix,
		Region:    cfg.ExportRegion,
		Endpoint:  cfg.ExportEndpoint,
		AccessKey: cfg.ExportAccessKey,
		SecretKey: cfg.ExportSecretKey,
	})
}

func newApp(d appDeps) *App {
	a := &App{
		session:    d.session,
		workspaces: d.workspaces,
		engine:     d.engine,
		catalog:    d.catalog,
		languages:  d.languages,
		gateway:    d.gateway,
		exporter:   d.exporter,
		dial:       d.dial,
		log:        d.log,
		reader:     bufio.NewReader(d.in),
		out:        d.out,
		echoes:     map[string]int{},
	}
	a.log = logging.OrNop(a.log)
	a.session.OnChange(func(s services.State) {
		if s == services.StateAnonymous {
			a.leaveWorkspace()
		}
	})
	return a
}

// Run restores the previous session and blocks in the REPL until the user
// exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	a.println(a.message("app.title") + " (help)")
	if err := a.session.Restore(ctx); err != nil {
		a.report(ctx, err)
	}
	if u, ok := a.session.User(); ok {
		a.println(a.message("welcome"), u.Username)
		a.println(a.message("select.workspace"))
	}

	runREPL(ctx, a, a.status, a.reader)
}

// Close leaves the current workspace and releases local resources.
func (a *App) Close() error {
	a.leaveWorkspace()
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) isLoggedIn() bool {
	return a.session.State() == services.StateAuthenticated
}

func (a *App) message(key string, args ...string) string {
	return a.catalog.T(key, args...)
}

func (a *App) println(args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

// status is shown in the prompt: user, workspace and open board.
func (a *App) status() string {
	u, ok := a.session.User()
	if !ok {
		return ""
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	s := u.Username
	if a.workspace.ID != 0 {
		s += "@" + a.workspace.Name
	}
	if a.board.ID != 0 {
		s += "/" + a.board.Name
	}
	return " (" + s + ")"
}

func (a *App) help() string {
	if !a.isLoggedIn() {
		return a.message("help.anonymous")
	}
	return a.message("help.workspace") + "\n" + a.message("help.board")
}

// report prints err the way the user should see it.
func (a *App) report(ctx context.Context, err error) {
	a.log.Debug(ctx, "command failed", "error", err)

	var uerr usageError
	switch {
	case errors.As(err, &uerr):
		a.println(a.message("usage", "usage", uerr.usage))
	case errors.Is(err, client.ErrInvalidCredentials):
		a.println(a.message("invalid.credentials"))
	case errors.Is(err, client.ErrUnauthorized) && !a.isLoggedIn():
		a.println(a.message("session.expired"))
	case errors.Is(err, board.ErrInvalidMove):
		a.println(a.message("move.invalid"))
	case errors.Is(err, board.ErrNoBoard):
		a.println(a.message("board.required"))
	case errors.Is(err, errNoWorkspace):
		a.println(a.message("select.workspace"))
	case errors.Is(err, errNameRequired):
		a.println(a.message("name.required"))
	default:
		a.println(a.message("request.failed", "error", err.Error()))
	}
}
