// Package scene is an in-memory game client. It implements [host.Client]
// and [host.Hooks] over a fixed list of NPCs, and can drive the render and
// menu callbacks the real client would issue.
//
// A scene is usually loaded from YAML:
//
//	npcs:
//	  - index: 12
//	    name: Hans
//	    id: 3105
//	    actions: [Talk-to, null, null, null, null]
//	  - index: 13
//	    name: Goblin
//	    id: 3029
//	    actions: [null, Attack]
//	  - index: 14
//	    name: Shapeshifter   # no id: definition unresolved
package scene

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/lastman/internal/eventbus"
	"github.com/MrWong99/lastman/internal/host"
)

// NPCEntry is the YAML form of a single NPC.
type NPCEntry struct {
	Index int    `yaml:"index"`
	Name  string `yaml:"name"`

	// ID is the definition ID. A missing ID models an NPC whose
	// definition cannot be resolved.
	ID *int `yaml:"id"`

	// Actions are the interaction verbs in slot order. YAML nulls become
	// empty slots.
	Actions []*string `yaml:"actions"`
}

// File is the top-level structure of a scene YAML file.
type File struct {
	NPCs []NPCEntry `yaml:"npcs"`
}

// NPC is a static [host.NPC].
type NPC struct {
	index int
	name  string
	comp  *host.NPCComposition
}

var _ host.NPC = (*NPC)(nil)

// NewNPC returns an NPC instance. A nil comp models an unresolved definition.
func NewNPC(index int, name string, comp *host.NPCComposition) *NPC {
	return &NPC{index: index, name: name, comp: comp}
}

func (n *NPC) Index() int                                   { return n.index }
func (n *NPC) Name() string                                 { return n.name }
func (n *NPC) TransformedComposition() *host.NPCComposition { return n.comp }

// Scene is an in-memory client. It is safe for concurrent use.
type Scene struct {
	mu        sync.Mutex
	npcs      []host.NPC
	menu      []host.MenuEntry
	nextID    host.ListenerID
	listeners map[host.ListenerID]host.DrawListener
	order     []host.ListenerID
}

var (
	_ host.Client = (*Scene)(nil)
	_ host.Hooks  = (*Scene)(nil)
)

// New returns a scene containing npcs.
func New(npcs ...host.NPC) *Scene {
	return &Scene{
		npcs:      slices.Clone(npcs),
		listeners: make(map[host.ListenerID]host.DrawListener),
	}
}

// Load reads a scene YAML file from disk.
func Load(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scene: open %q: %w", path, err)
	}
	defer f.Close()

	s, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("scene: parse %q: %w", path, err)
	}
	return s, nil
}

// LoadFromReader decodes scene YAML from r. Duplicate indices are rejected.
func LoadFromReader(r io.Reader) (*Scene, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("scene: decode yaml: %w", err)
	}

	seen := make(map[int]bool, len(file.NPCs))
	npcs := make([]host.NPC, 0, len(file.NPCs))
	for i, e := range file.NPCs {
		if seen[e.Index] {
			return nil, fmt.Errorf("scene: npcs[%d]: duplicate index %d", i, e.Index)
		}
		seen[e.Index] = true

		var comp *host.NPCComposition
		if e.ID != nil {
			if *e.ID < 0 || *e.ID > math.MaxInt32 {
				return nil, fmt.Errorf("scene: npcs[%d]: id %d is out of range [0, %d]", i, *e.ID, math.MaxInt32)
			}
			comp = &host.NPCComposition{ID: *e.ID, Name: e.Name, Actions: derefActions(e.Actions)}
		}
		npcs = append(npcs, NewNPC(e.Index, e.Name, comp))
	}
	return New(npcs...), nil
}

func derefActions(in []*string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, a := range in {
		if a != nil {
			out[i] = *a
		}
	}
	return out
}

// NPCs implements [host.Client].
func (s *Scene) NPCs() []host.NPC {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.npcs)
}

// MenuEntries implements [host.Client].
func (s *Scene) MenuEntries() []host.MenuEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.menu)
}

// AddMenuEntry implements [host.Client].
func (s *Scene) AddMenuEntry(entry host.MenuEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.menu = append(s.menu, entry)
}

// RegisterRenderableDrawListener implements [host.Hooks].
func (s *Scene) RegisterRenderableDrawListener(l host.DrawListener) host.ListenerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.listeners[s.nextID] = l
	s.order = append(s.order, s.nextID)
	return s.nextID
}

// UnregisterRenderableDrawListener implements [host.Hooks].
func (s *Scene) UnregisterRenderableDrawListener(id host.ListenerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, id)
	s.order = slices.DeleteFunc(s.order, func(o host.ListenerID) bool { return o == id })
}

// Listeners returns the number of registered draw listeners.
func (s *Scene) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Draw asks every registered listener about r. The renderable is drawn only
// if all listeners agree.
func (s *Scene) Draw(r host.Renderable) bool {
	s.mu.Lock()
	ls := make([]host.DrawListener, 0, len(s.order))
	for _, id := range s.order {
		ls = append(ls, s.listeners[id])
	}
	s.mu.Unlock()

	for _, l := range ls {
		if !l(r, false) {
			return false
		}
	}
	return true
}

// RenderResult is the outcome of drawing one NPC.
type RenderResult struct {
	NPC   host.NPC
	Drawn bool
}

// Render draws one frame and reports the decision for every NPC.
func (s *Scene) Render() []RenderResult {
	npcs := s.NPCs()
	out := make([]RenderResult, len(npcs))
	for i, n := range npcs {
		out[i] = RenderResult{NPC: n, Drawn: s.Draw(n)}
	}
	return out
}

// npcSlots maps action slots to their menu action kinds.
var npcSlots = []host.MenuAction{
	host.NPCFirstOption,
	host.NPCSecondOption,
	host.NPCThirdOption,
	host.NPCFourthOption,
	host.NPCFifthOption,
}

// OpenMenu builds the right-click menu for the NPC with the given index, the
// way the client does: each native entry is staged and then announced on
// bus, so handlers see the entries staged so far. It returns the final menu.
func (s *Scene) OpenMenu(ctx context.Context, bus *eventbus.Bus, index int) []host.MenuEntry {
	s.mu.Lock()
	s.menu = nil
	var npc host.NPC
	for _, n := range s.npcs {
		if n.Index() == index {
			npc = n
			break
		}
	}
	s.mu.Unlock()

	s.stage(ctx, bus, host.MenuEntry{Option: "Walk here", Type: host.Walk})
	if npc == nil {
		return s.MenuEntries()
	}

	if comp := npc.TransformedComposition(); comp != nil {
		for i, action := range comp.Actions {
			if action == "" || i >= len(npcSlots) {
				continue
			}
			s.stage(ctx, bus, host.MenuEntry{
				Option:     action,
				Target:     "<col=ffff00>" + npc.Name(),
				Type:       npcSlots[i],
				Identifier: index,
			})
		}
	}
	s.stage(ctx, bus, host.MenuEntry{
		Option:     "Examine",
		Target:     "<col=ffff00>" + npc.Name(),
		Type:       host.Examine,
		Identifier: index,
	})
	return s.MenuEntries()
}

func (s *Scene) stage(ctx context.Context, bus *eventbus.Bus, entry host.MenuEntry) {
	s.AddMenuEntry(entry)
	if bus != nil {
		bus.PostMenuEntryAdded(ctx, &eventbus.MenuEntryAdded{
			Option:     entry.Option,
			Target:     entry.Target,
			Type:       entry.Type,
			Identifier: entry.Identifier,
		})
	}
}

// Click selects entry and reports whether a handler consumed it.
func (s *Scene) Click(ctx context.Context, bus *eventbus.Bus, entry host.MenuEntry) bool {
	return bus.PostMenuOptionClicked(ctx, &eventbus.MenuOptionClicked{
		Option: entry.Option,
		Target: entry.Target,
		Type:   entry.Type,
		ID:     entry.Identifier,
	})
}
