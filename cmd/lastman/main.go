// Command lastman runs the NPC visibility filter against a scene and serves
// its admin endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/MrWong99/lastman/internal/app"
	"github.com/MrWong99/lastman/internal/config"
	"github.com/MrWong99/lastman/internal/host/scene"
	"github.com/MrWong99/lastman/internal/lists"
	"github.com/MrWong99/lastman/internal/observe"
	"github.com/MrWong99/lastman/internal/plugin"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "lastman.yaml", "path to the YAML configuration file")
	scenePath := flag.String("scene", "", "scene YAML to evaluate; overrides the scene set in the config")
	flag.Parse()

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Configuration ─────────────────────────────────────────────────────────
	// The watcher only polls once Run starts, by which time application is set.
	var application *app.App
	watcher, err := config.NewWatcher(*configPath,
		func(old, new *config.Config) { application.Reload(ctx, old, new) },
		config.WithErrorHandler(func(error) {
			observe.DefaultMetrics().RecordConfigReload(ctx, observe.StatusError)
		}),
	)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "lastman: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "lastman: %v\n", err)
		}
		return 1
	}
	cfg := watcher.Current()
	level.Set(cfg.Server.LogLevel.Level())

	slog.Info("lastman starting",
		"version", version,
		"config", *configPath,
		"backend", cfg.Storage.Backend,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	provider, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Application ───────────────────────────────────────────────────────────
	opts := []app.Option{
		app.WithLevel(level),
		app.WithWatcher(watcher),
	}
	if *scenePath != "" {
		sc, err := scene.Load(*scenePath)
		if err != nil {
			slog.Error("failed to load scene", "path", *scenePath, "err", err)
			return 1
		}
		opts = append(opts, app.WithScene(sc))
	}

	application, err = app.New(ctx, cfg, opts...)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	printStartupSummary(os.Stdout, cfg, application)
	printSceneReport(os.Stdout, application.Scene())

	slog.Info("ready, press Ctrl+C to shut down")
	runErr := application.Run(ctx)
	if runErr != nil {
		slog.Error("run error", "err", runErr)
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("stopping")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	if runErr != nil {
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(w io.Writer, cfg *config.Config, a *app.App) {
	p := a.Plugin()
	f := p.Flags()

	fmt.Fprintln(w, "╔═══════════════════════════════════════╗")
	fmt.Fprintf(w, "║  %-36s ║\n", plugin.Info.Name)
	fmt.Fprintln(w, "╠═══════════════════════════════════════╣")
	row(w, "Backend", string(cfg.Storage.Backend))
	row(w, "Hide talkable", onOff(f.HideTalkable))
	row(w, "Whitelist", fmt.Sprintf("%s (%d ids)", onOff(f.WhitelistEnabled), len(p.IDs(lists.Whitelist))))
	row(w, "Blacklist", fmt.Sprintf("%s (%d ids)", onOff(f.BlacklistEnabled), len(p.IDs(lists.Blacklist))))
	row(w, "Menu options", onOff(f.ShowMenuActions))
	row(w, "NPCs in scene", fmt.Sprint(len(a.Scene().NPCs())))
	if cfg.Server.ListenAddr != "" {
		row(w, "Listen addr", cfg.Server.ListenAddr)
	} else {
		row(w, "Listen addr", "(disabled)")
	}
	fmt.Fprintln(w, "╚═══════════════════════════════════════╝")
}

func row(w io.Writer, label, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Fprintf(w, "║  %-14s  : %-19s ║\n", label, value)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// ── Scene report ──────────────────────────────────────────────────────────────

func printSceneReport(w io.Writer, sc *scene.Scene) {
	results := sc.Render()
	if len(results) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tNAME\tID\tACTIONS\tDRAWN")
	for _, r := range results {
		id, actions := "-", "-"
		if comp := r.NPC.TransformedComposition(); comp != nil {
			id = fmt.Sprint(comp.ID)
			actions = strings.Join(nonEmpty(comp.Actions), ",")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.NPC.Index(), r.NPC.Name(), id, actions, yesNo(r.Drawn))
	}
	_ = tw.Flush()
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
