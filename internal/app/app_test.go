package app_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/lastman/internal/app"
	"github.com/MrWong99/lastman/internal/config"
	"github.com/MrWong99/lastman/internal/host"
	"github.com/MrWong99/lastman/internal/host/scene"
	"github.com/MrWong99/lastman/internal/observe"
	"github.com/MrWong99/lastman/internal/settings"
)

func ptr[T any](v T) *T { return &v }

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{LogLevel: config.LogInfo},
		Storage: config.StorageConfig{Backend: config.StorageMemory},
	}
}

func testScene() *scene.Scene {
	return scene.New(
		scene.NewNPC(1, "Hans", &host.NPCComposition{ID: 3105, Actions: []string{"Talk-to"}}),
		scene.NewNPC(2, "Goblin", &host.NPCComposition{ID: 3029, Actions: []string{"", "Attack"}}),
	)
}

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func newApp(t *testing.T, cfg *config.Config, opts ...app.Option) *app.App {
	t.Helper()
	opts = append([]app.Option{
		app.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		app.WithMetrics(testMetrics(t)),
		app.WithGatherer(prometheus.NewRegistry()),
	}, opts...)
	a, err := app.New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

func drawn(sc *scene.Scene) []string {
	var out []string
	for _, r := range sc.Render() {
		if r.Drawn {
			out = append(out, r.NPC.Name())
		}
	}
	return out
}

func TestNew_AppliesOverrides(t *testing.T) {
	t.Parallel()
	store := settings.NewMemStore()
	cfg := testConfig()
	cfg.Plugin.HideTalkNPCs = ptr(true)

	a := newApp(t, cfg, app.WithSettingsStore(store), app.WithScene(testScene()))

	if !a.Plugin().Started() {
		t.Fatal("plugin not started")
	}
	if v, _ := store.Get(context.Background(), "lastman", "hideTalkNPCs"); v != "true" {
		t.Errorf("persisted hideTalkNPCs = %q, want true", v)
	}
	if got := drawn(a.Scene()); !slices.Equal(got, []string{"Goblin"}) {
		t.Errorf("drawn = %v, want [Goblin]", got)
	}
}

func TestNew_SQLiteBackend(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.Storage = config.StorageConfig{
		Backend:    config.StorageSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "nested", "lastman.db"),
	}
	cfg.Plugin.EnableBlacklist = ptr(false)

	a := newApp(t, cfg)
	if a.Plugin().Flags().BlacklistEnabled {
		t.Error("override not applied through the sqlite backend")
	}

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "settings_breaker") {
		t.Errorf("GET /readyz = %d %s, want 200 with the breaker check", rec.Code, rec.Body.String())
	}
}

func TestNew_SceneFile(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.Scene = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := app.New(context.Background(), cfg,
		app.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		app.WithMetrics(testMetrics(t)),
	)
	if err == nil || !strings.Contains(err.Error(), "init scene") {
		t.Errorf("err = %v, want scene init failure", err)
	}
}

func TestReload(t *testing.T) {
	t.Parallel()
	store := settings.NewMemStore()
	level := new(slog.LevelVar)
	old := testConfig()
	a := newApp(t, old, app.WithSettingsStore(store), app.WithScene(testScene()), app.WithLevel(level))

	updated := testConfig()
	updated.Server.LogLevel = config.LogDebug
	updated.Plugin.HideTalkNPCs = ptr(true)
	updated.Plugin.ShowMenuOptions = ptr(false)

	a.Reload(context.Background(), old, updated)

	if level.Level() != slog.LevelDebug {
		t.Errorf("level = %v, want debug", level.Level())
	}
	f := a.Plugin().Flags()
	if !f.HideTalkable || f.ShowMenuActions {
		t.Errorf("flags = %+v, want overrides applied", f)
	}

	// Dropping an override leaves the persisted value in place.
	a.Reload(context.Background(), updated, old)
	if !a.Plugin().Flags().HideTalkable {
		t.Error("removed override reset the persisted value")
	}
}

func TestAdminHandler(t *testing.T) {
	t.Parallel()
	store := settings.NewMemStore()
	if err := store.Set(context.Background(), "lastman", "npcBlacklist", "5,3"); err != nil {
		t.Fatal(err)
	}
	a := newApp(t, testConfig(), app.WithSettingsStore(store), app.WithScene(testScene()))

	tests := []struct {
		path string
		want int
	}{
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/state", http.StatusOK},
		{"/nope", http.StatusNotFound},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != tc.want {
			t.Errorf("GET %s = %d, want %d", tc.path, rec.Code, tc.want)
		}
	}

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))
	var st app.State
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode /state: %v", err)
	}
	if !st.Started || !slices.Equal(st.Blacklist, []int{3, 5}) || len(st.Whitelist) != 0 {
		t.Errorf("state = %+v", st)
	}
}

func TestReadyz_FailsAfterShutdown(t *testing.T) {
	t.Parallel()
	a := newApp(t, testConfig())
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /readyz after shutdown = %d, want 503", rec.Code)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.Server.ListenAddr = "127.0.0.1:0"
	a := newApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
