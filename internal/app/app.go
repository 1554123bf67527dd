// Package app wires the lastman subsystems into a running service.
//
// New opens the settings backend, builds the event bus, the scene host and
// the plugin, applies the plugin overrides from the config and prepares the
// admin HTTP server. Run serves until the context is cancelled, and
// Shutdown stops the plugin and closes the backend.
//
// Tests inject doubles through the With* options; anything not injected is
// built from the config.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/lastman/internal/config"
	"github.com/MrWong99/lastman/internal/eventbus"
	"github.com/MrWong99/lastman/internal/health"
	"github.com/MrWong99/lastman/internal/host/scene"
	"github.com/MrWong99/lastman/internal/lists"
	"github.com/MrWong99/lastman/internal/observe"
	"github.com/MrWong99/lastman/internal/plugin"
	"github.com/MrWong99/lastman/internal/resilience"
	"github.com/MrWong99/lastman/internal/settings"
)

// shutdownTimeout bounds the admin server's graceful shutdown.
const shutdownTimeout = 5 * time.Second

// errNotStarted is reported by the plugin readiness check.
var errNotStarted = errors.New("plugin not started")

// errBreakerOpen is reported while the settings circuit breaker is open.
var errBreakerOpen = errors.New("settings circuit breaker is open")

// App owns the lifetime of every subsystem.
type App struct {
	cfg      *config.Config
	log      *slog.Logger
	level    *slog.LevelVar
	metrics  *observe.Metrics
	gatherer prometheus.Gatherer
	watcher  *config.Watcher

	backend settings.Store
	guard   *settings.Guarded
	store   *settings.Notifying
	bus     *eventbus.Bus
	scene   *scene.Scene
	plugin  *plugin.Plugin
	health  *health.Handler
	handler http.Handler
	server  *http.Server

	// closers run in order during Shutdown.
	closers  []func() error
	stopOnce sync.Once
}

// Option configures an [App].
type Option func(*App)

// WithSettingsStore injects the settings backend instead of opening the one
// named by the config. The app does not close an injected store.
func WithSettingsStore(s settings.Store) Option {
	return func(a *App) { a.backend = s }
}

// WithScene injects the host scene instead of loading cfg.Scene.
func WithScene(s *scene.Scene) Option {
	return func(a *App) { a.scene = s }
}

// WithLogger sets the logger. The default is [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.log = l }
}

// WithLevel hands the app the level variable behind the logger so that log
// level changes from the config take effect.
func WithLevel(v *slog.LevelVar) Option {
	return func(a *App) { a.level = v }
}

// WithMetrics sets the metric instruments. The default is
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithGatherer sets the registry served on /metrics. The default is
// [prometheus.DefaultGatherer].
func WithGatherer(g prometheus.Gatherer) Option {
	return func(a *App) { a.gatherer = g }
}

// WithWatcher makes Run poll w alongside the admin server.
func WithWatcher(w *config.Watcher) Option {
	return func(a *App) { a.watcher = w }
}

// New builds and starts the application. On error everything opened so far
// is closed again.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.gatherer == nil {
		a.gatherer = prometheus.DefaultGatherer
	}

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init settings: %w", err)
	}
	if err := a.initScene(); err != nil {
		a.close()
		return nil, fmt.Errorf("app: init scene: %w", err)
	}

	a.bus = eventbus.New()
	a.store = settings.NewNotifying(a.backend, a.bus)
	a.plugin = plugin.New(a.scene, a.scene, a.bus, a.store,
		plugin.WithLogger(a.log.With("component", "plugin")),
		plugin.WithMetrics(a.metrics),
	)
	a.plugin.StartUp(ctx)

	if err := plugin.ApplyOverrides(ctx, a.store, cfg.Plugin.Settings()); err != nil {
		a.plugin.ShutDown(ctx)
		a.close()
		return nil, fmt.Errorf("app: apply plugin overrides: %w", err)
	}

	a.initAdmin()
	return a, nil
}

func (a *App) initStore(ctx context.Context) error {
	if a.backend != nil {
		return nil
	}

	switch a.cfg.Storage.Backend {
	case config.StorageMemory:
		a.backend = settings.NewMemStore()
		a.log.Info("settings backend ready", "backend", a.cfg.Storage.Backend)
		return nil

	case config.StorageSQLite:
		s, err := settings.OpenSQLite(a.cfg.Storage.SQLitePath)
		if err != nil {
			return err
		}
		a.backend = s
		a.closers = append(a.closers, s.Close)

	case config.StoragePostgres:
		pool, err := pgxpool.New(ctx, a.cfg.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		s := settings.NewPostgresStore(pool, settings.WithCloser(pool.Close))
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return err
		}
		a.backend = s
		a.closers = append(a.closers, s.Close)

	default:
		return fmt.Errorf("unknown storage backend %q", a.cfg.Storage.Backend)
	}

	a.guard = settings.NewGuarded(a.backend, resilience.CircuitBreakerConfig{
		Name:   string(a.cfg.Storage.Backend),
		Logger: a.log,
	})
	a.backend = a.guard

	a.log.Info("settings backend ready", "backend", a.cfg.Storage.Backend)
	return nil
}

func (a *App) initScene() error {
	if a.scene != nil {
		return nil
	}
	if a.cfg.Scene == "" {
		a.scene = scene.New()
		return nil
	}
	s, err := scene.Load(a.cfg.Scene)
	if err != nil {
		return err
	}
	a.scene = s
	a.log.Info("scene loaded", "path", a.cfg.Scene, "npcs", len(s.NPCs()))
	return nil
}

func (a *App) initAdmin() {
	checkers := []health.Checker{
		health.PingChecker("settings", a.store),
		health.StateChecker("plugin", a.plugin.Started, errNotStarted),
	}
	if a.guard != nil {
		cb := a.guard.Breaker()
		checkers = append(checkers, health.StateChecker("settings_breaker", func() bool {
			return cb.State() != resilience.StateOpen
		}, errBreakerOpen))
	}
	a.health = health.New(checkers)

	mux := http.NewServeMux()
	a.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /state", a.serveState)
	a.handler = observe.Middleware(a.metrics, a.log)(mux)

	if a.cfg.Server.ListenAddr != "" {
		a.server = &http.Server{
			Addr:              a.cfg.Server.ListenAddr,
			Handler:           a.handler,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
}

// State is the plugin snapshot served on /state.
type State struct {
	Started   bool         `json:"started"`
	Flags     plugin.Flags `json:"flags"`
	Blacklist []int        `json:"blacklist"`
	Whitelist []int        `json:"whitelist"`
}

// State returns the current plugin snapshot.
func (a *App) State() State {
	return State{
		Started:   a.plugin.Started(),
		Flags:     a.plugin.Flags(),
		Blacklist: a.plugin.IDs(lists.Blacklist),
		Whitelist: a.plugin.IDs(lists.Whitelist),
	}
}

func (a *App) serveState(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(a.State())
}

// Handler returns the admin HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Plugin returns the running plugin.
func (a *App) Plugin() *plugin.Plugin { return a.plugin }

// Scene returns the host scene.
func (a *App) Scene() *scene.Scene { return a.scene }

// Reload applies a config change reported by the watcher. The log level and
// the plugin overrides are hot-reloaded; other changes are logged as
// needing a restart.
func (a *App) Reload(ctx context.Context, old, new *config.Config) {
	d := config.Diff(old, new)
	status := observe.StatusOK

	if d.LogLevelChanged {
		if a.level != nil {
			a.level.Set(d.NewLogLevel.Level())
		}
		a.log.Info("log level changed", "level", d.NewLogLevel)
	}

	changed := make(map[string]bool, len(d.PluginChanged))
	for _, key := range d.PluginChanged {
		v, ok := d.NewPlugin[key]
		if !ok {
			a.log.Info("plugin override removed; keeping persisted value", "key", key)
			continue
		}
		changed[key] = v
	}
	if err := plugin.ApplyOverrides(ctx, a.store, changed); err != nil {
		status = observe.StatusError
		a.log.Warn("failed to apply plugin overrides", "err", err)
	}

	if d.RestartRequired {
		a.log.Warn("storage, listen address or scene changed; restart to apply")
	}
	a.metrics.RecordConfigReload(ctx, status)
	a.cfg = new
}

// Run serves the admin endpoints and polls the config watcher until ctx is
// cancelled. A failing admin server ends Run with its error.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if a.watcher != nil {
		g.Go(func() error { return a.watcher.Run(gctx) })
	}

	if a.server != nil {
		g.Go(func() error {
			a.log.Info("admin server listening", "addr", a.server.Addr)
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: admin server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
			defer cancel()
			return a.server.Shutdown(sctx)
		})
	}

	return g.Wait()
}

// Shutdown stops the plugin and releases the backend. It is safe to call
// more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		a.plugin.ShutDown(ctx)
		err = a.close()
	})
	return err
}

func (a *App) close() error {
	var errs []error
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
