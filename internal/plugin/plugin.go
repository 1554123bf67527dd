// Package plugin wires the NPC visibility filter into a game client.
//
// A [Plugin] owns the two NPC lists and the current [Flags]. On start it
// loads both from the settings store, registers a render draw listener and
// subscribes to the menu and config events on the bus. Every list change
// made from a menu is written straight back to the store; the resulting
// config-changed event reloads the plugin state from the store, so the
// store stays the single persisted source.
package plugin

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/lastman/internal/eventbus"
	"github.com/MrWong99/lastman/internal/host"
	"github.com/MrWong99/lastman/internal/lists"
	"github.com/MrWong99/lastman/internal/menu"
	"github.com/MrWong99/lastman/internal/observe"
	"github.com/MrWong99/lastman/internal/settings"
	"github.com/MrWong99/lastman/internal/visibility"
)

// Descriptor is the metadata a plugin registry shows.
type Descriptor struct {
	Name             string
	Description      string
	Tags             []string
	EnabledByDefault bool
}

// Info describes this plugin.
var Info = Descriptor{
	Name: "Last Man on Gielinor",
	Description: "Created for YT Series, The Last Man on Gielinor, this plugin adds the ability " +
		"to make NPCs visible based on ID or interaction options.",
	Tags:             []string{"npcs"},
	EnabledByDefault: false,
}

// DefaultPersistTimeout bounds a single settings write from a menu click.
const DefaultPersistTimeout = 5 * time.Second

// Option configures a [Plugin].
type Option func(*Plugin)

// WithLogger sets the plugin logger. The default is [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(p *Plugin) {
		if l != nil {
			p.log = l
		}
	}
}

// WithMetrics sets the metric instruments. The default is
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Plugin) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithPersistTimeout overrides [DefaultPersistTimeout].
func WithPersistTimeout(d time.Duration) Option {
	return func(p *Plugin) {
		if d > 0 {
			p.persistTimeout = d
		}
	}
}

// Plugin is the NPC visibility filter. All methods are safe for concurrent
// use, though the host delivers render and menu callbacks on one thread.
type Plugin struct {
	client host.Client
	hooks  host.Hooks
	bus    *eventbus.Bus
	store  settings.Store

	log            *slog.Logger
	metrics        *observe.Metrics
	persistTimeout time.Duration

	lists *lists.Store
	flags atomic.Pointer[Flags]

	mu       sync.Mutex
	started  bool
	listener host.ListenerID
	unsubs   []func()

	// clickMu serializes menu clicks; click is only set while it is held.
	clickMu sync.Mutex
	click   *clickResult
}

type clickResult struct {
	ctx context.Context
	err error
}

// New creates a stopped plugin. store should be the notifying store posting
// to bus, otherwise list changes are persisted but not reloaded.
func New(client host.Client, hooks host.Hooks, bus *eventbus.Bus, store settings.Store, opts ...Option) *Plugin {
	p := &Plugin{
		client:         client,
		hooks:          hooks,
		bus:            bus,
		store:          store,
		log:            slog.Default(),
		persistTimeout: DefaultPersistTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	p.lists = lists.NewStore(lists.PersisterFunc(p.persist))
	def := DefaultFlags
	p.flags.Store(&def)
	return p
}

// StartUp loads the persisted state, registers the draw listener and
// subscribes to bus events. A store that cannot be read leaves the defaults
// in place. Calling StartUp on a started plugin does nothing.
func (p *Plugin) StartUp(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}

	p.reload(ctx)
	p.listener = p.hooks.RegisterRenderableDrawListener(p.ShouldDraw)
	p.unsubs = []func(){
		p.bus.OnMenuEntryAdded(p.onMenuEntryAdded),
		p.bus.OnMenuOptionClicked(p.onMenuOptionClicked),
		p.bus.OnConfigChanged(p.onConfigChanged),
	}
	p.started = true

	f := p.Flags()
	p.log.Info("plugin started",
		"name", Info.Name,
		"hide_talkable", f.HideTalkable,
		"whitelist_enabled", f.WhitelistEnabled,
		"blacklist_enabled", f.BlacklistEnabled,
		"show_menu_actions", f.ShowMenuActions,
		"blacklist_size", p.lists.Len(lists.Blacklist),
		"whitelist_size", p.lists.Len(lists.Whitelist),
	)
}

// ShutDown unregisters the draw listener and bus handlers and clears both
// lists. Nothing is persisted. Calling ShutDown on a stopped plugin does
// nothing.
func (p *Plugin) ShutDown(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}

	p.hooks.UnregisterRenderableDrawListener(p.listener)
	for _, unsub := range p.unsubs {
		unsub()
	}
	p.unsubs = nil
	p.lists.Clear()
	p.recordSizes(ctx)
	p.started = false
	p.log.Info("plugin stopped", "name", Info.Name)
}

// Started reports whether the plugin is running.
func (p *Plugin) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// Flags returns the current toggles.
func (p *Plugin) Flags() Flags {
	return *p.flags.Load()
}

// IDs returns the members of list in ascending order.
func (p *Plugin) IDs(list lists.Name) []int {
	return p.lists.IDs(list)
}

// ShouldDraw is the render draw listener. drawingUI is ignored.
func (p *Plugin) ShouldDraw(r host.Renderable, drawingUI bool) bool {
	draw, reason := visibility.Decide(visibility.FromRenderable(r), p.Flags().Visibility(), p.lists)
	p.metrics.RecordDecision(context.Background(), string(reason), draw)
	return draw
}

func (p *Plugin) onMenuEntryAdded(ctx context.Context, ev *eventbus.MenuEntryAdded) {
	if !p.Flags().ShowMenuActions {
		return
	}
	for _, entry := range menu.Augment(ev, p.client, p.lists) {
		p.client.AddMenuEntry(entry)
		a, _ := menu.Parse(entry.Option)
		p.metrics.RecordMenuEntry(ctx, string(a.List))
	}
}

func (p *Plugin) onMenuOptionClicked(ctx context.Context, ev *eventbus.MenuOptionClicked) {
	p.clickMu.Lock()
	defer p.clickMu.Unlock()

	ctx, span := observe.StartSpan(ctx, "lastman.menu.click",
		trace.WithAttributes(attribute.Int("npc_id", ev.ID)))
	defer span.End()

	res := &clickResult{ctx: ctx}
	p.click = res
	a, ok := menu.HandleClick(ev, p.lists)
	p.click = nil
	if !ok {
		return
	}

	status := observe.StatusOK
	if res.err != nil {
		status = observe.StatusError
		span.RecordError(res.err)
		span.SetStatus(codes.Error, "persist failed")
	}
	span.SetAttributes(attribute.String("list", string(a.List)), attribute.String("op", string(a.Op)))
	p.metrics.RecordMutation(ctx, string(a.List), string(a.Op), status)
	observe.Logger(ctx, p.log).Debug("npc list updated",
		"list", a.List, "op", a.Op, "npc_id", ev.ID, "size", p.lists.Len(a.List))
}

func (p *Plugin) onConfigChanged(ctx context.Context, ev *eventbus.ConfigChanged) {
	if ev.Group != Group {
		return
	}
	p.log.Debug("settings changed", "group", ev.Group, "key", ev.Key)
	p.reload(ctx)
}

// reload replaces flags and lists from the store. A failed read keeps the
// current state.
func (p *Plugin) reload(ctx context.Context) {
	ctx, span := observe.StartSpan(ctx, "lastman.reload")
	defer span.End()

	st, err := loadState(ctx, p.store, p.log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		observe.Logger(ctx, p.log).Warn("keeping previous plugin state", "err", err)
		return
	}
	p.flags.Store(&st.flags)
	p.lists.Rebuild(st.blacklist, st.whitelist)
	p.metrics.ListRebuilds.Add(ctx, 1)
	p.recordSizes(ctx)
}

// persist writes the serialized list to the store. During a click the
// outcome is reported back to the click handler.
func (p *Plugin) persist(list lists.Name, value string) {
	parent := context.Background()
	res := p.click
	if res != nil {
		parent = res.ctx
	}
	ctx, cancel := context.WithTimeout(parent, p.persistTimeout)
	defer cancel()

	start := time.Now()
	err := p.store.Set(ctx, Group, list.Key(), value)
	p.metrics.PersistDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		observe.Logger(ctx, p.log).Warn("failed to persist npc list", "list", list, "key", list.Key(), "err", err)
	}
	if res != nil {
		res.err = err
	}
}

func (p *Plugin) recordSizes(ctx context.Context) {
	for _, list := range []lists.Name{lists.Blacklist, lists.Whitelist} {
		p.metrics.RecordListSize(ctx, string(list), p.lists.Len(list))
	}
}
