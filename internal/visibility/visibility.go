// Package visibility decides whether an NPC is drawn.
//
// The rules are evaluated in a fixed order and the first match wins:
//
//  1. Renderables without a resolved NPC definition are always drawn.
//  2. Whitelisted IDs are drawn (when the whitelist is enabled).
//  3. Blacklisted IDs are hidden (when the blacklist is enabled).
//  4. With talkable hiding off, everything else is drawn.
//  5. Otherwise NPCs offering "Talk-to" are hidden.
package visibility

import (
	"slices"
	"strings"

	"github.com/MrWong99/lastman/internal/host"
	"github.com/MrWong99/lastman/internal/lists"
)

// TalkVerb is the interaction verb that marks an NPC as talkable.
const TalkVerb = "Talk-to"

// Flags are the config toggles the evaluator reads.
type Flags struct {
	HideTalkable     bool
	WhitelistEnabled bool
	BlacklistEnabled bool
}

// Membership answers list lookups. [*lists.Store] satisfies it.
type Membership interface {
	Contains(list lists.Name, id int) bool
}

// Entity is the evaluator's view of a renderable.
type Entity struct {
	ID      int
	HasID   bool
	Actions []string
}

// FromRenderable projects r. Anything that is not an NPC, or an NPC whose
// definition cannot be resolved, yields an Entity without an ID.
func FromRenderable(r host.Renderable) Entity {
	npc, ok := r.(host.NPC)
	if !ok || npc == nil {
		return Entity{}
	}
	comp := npc.TransformedComposition()
	if comp == nil {
		return Entity{}
	}
	return Entity{ID: comp.ID, HasID: true, Actions: comp.Actions}
}

// Reason names the rule that produced a decision.
type Reason string

const (
	ReasonUnresolved   Reason = "unresolved"
	ReasonWhitelisted  Reason = "whitelisted"
	ReasonBlacklisted  Reason = "blacklisted"
	ReasonHeuristicOff Reason = "heuristic_off"
	ReasonTalkable     Reason = "talkable"
	ReasonDefault      Reason = "default"
)

// Decide evaluates the rules and returns the draw decision together with the
// rule that decided it.
func Decide(e Entity, f Flags, m Membership) (bool, Reason) {
	if !e.HasID {
		return true, ReasonUnresolved
	}
	if f.WhitelistEnabled && m.Contains(lists.Whitelist, e.ID) {
		return true, ReasonWhitelisted
	}
	if f.BlacklistEnabled && m.Contains(lists.Blacklist, e.ID) {
		return false, ReasonBlacklisted
	}
	if !f.HideTalkable {
		return true, ReasonHeuristicOff
	}
	if IsTalkable(e.Actions) {
		return false, ReasonTalkable
	}
	return true, ReasonDefault
}

// ShouldDraw reports whether e is drawn.
func ShouldDraw(e Entity, f Flags, m Membership) bool {
	draw, _ := Decide(e, f, m)
	return draw
}

// IsTalkable reports whether actions contains [TalkVerb], ignoring case.
// Nil entries in the host's action array arrive here as "".
func IsTalkable(actions []string) bool {
	return slices.ContainsFunc(actions, func(a string) bool {
		return strings.EqualFold(a, TalkVerb)
	})
}
