// Package host declares the slice of the game client API the plugin relies on.
//
// The game client owns rendering, the right-click menu and NPC metadata. The
// plugin only reads NPC definitions, inspects the menu entries staged for the
// current frame and appends its own entries. Everything here is an interface
// or a plain value type so that tests and the CLI can supply an in-memory host
// (see package scene).
package host

import "strings"

// MenuAction identifies the kind of a right-click menu entry.
type MenuAction int

const (
	// NPCFirstOption is the first interaction slot on an NPC (usually the
	// default left-click action such as "Talk-to" or "Attack").
	NPCFirstOption MenuAction = 9

	// NPCSecondOption is the second interaction slot on an NPC.
	NPCSecondOption MenuAction = 10

	NPCThirdOption  MenuAction = 11
	NPCFourthOption MenuAction = 12
	NPCFifthOption  MenuAction = 13

	// Examine is the examine action on an NPC.
	Examine MenuAction = 1003

	// Walk is the generic "Walk here" action.
	Walk MenuAction = 23

	// RuneLite marks entries created by client plugins. The client never
	// forwards these to the game server.
	RuneLite MenuAction = 1500
)

// IsPrimaryNPCOption reports whether a is one of the two NPC interaction
// slots the plugin decorates.
func (a MenuAction) IsPrimaryNPCOption() bool {
	return a == NPCFirstOption || a == NPCSecondOption
}

// NPCComposition is the shared definition of an NPC type. All instances of
// the same NPC reference the same composition.
type NPCComposition struct {
	// ID is the stable definition identifier.
	ID int

	// Name is the display name of the definition.
	Name string

	// Actions lists the interaction verbs in slot order. Empty slots are "".
	Actions []string
}

// NPC is a live NPC instance in the current scene.
type NPC interface {
	// Index is the transient per-scene index used by menu entries to refer
	// to this instance. It is not stable across sessions.
	Index() int

	// Name is the display name of the instance.
	Name() string

	// TransformedComposition returns the definition currently in effect,
	// after varbit/varp transforms. It returns nil when the definition
	// cannot be resolved.
	TransformedComposition() *NPCComposition
}

// Renderable is anything the client may draw in a frame. NPCs are one kind
// of renderable; players, projectiles and graphics objects are others.
type Renderable any

// MenuEntry is a single right-click menu entry as seen by plugins.
type MenuEntry struct {
	// Option is the action text, possibly containing colour tags.
	Option string

	// Target is the entity text shown after the option.
	Target string

	// Type is the action kind.
	Type MenuAction

	// Identifier carries the NPC index for NPC actions and the NPC
	// definition ID for plugin entries.
	Identifier int
}

// Client is the read/write view of the game client used by the plugin.
type Client interface {
	// NPCs returns the NPC instances currently loaded in the scene.
	NPCs() []NPC

	// MenuEntries returns the menu entries staged for the menu being built.
	MenuEntries() []MenuEntry

	// AddMenuEntry appends an entry to the staged menu.
	AddMenuEntry(entry MenuEntry)
}

// DrawListener decides whether a renderable is drawn this frame.
type DrawListener func(r Renderable, drawingUI bool) bool

// ListenerID is the handle returned when a [DrawListener] is registered.
type ListenerID int

// Hooks is the renderer hook registry.
type Hooks interface {
	RegisterRenderableDrawListener(l DrawListener) ListenerID
	UnregisterRenderableDrawListener(id ListenerID)
}

// RemoveTags strips client markup such as <col=ff0000> or <br> from s.
// An unterminated '<' is kept verbatim.
func RemoveTags(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for {
		open := strings.IndexByte(s, '<')
		if open < 0 {
			b.WriteString(s)
			break
		}
		end := strings.IndexByte(s[open:], '>')
		if end < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:open])
		s = s[open+end+1:]
	}
	return b.String()
}
