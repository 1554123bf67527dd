// Package menu injects and handles the "add to list" / "remove from list"
// right-click entries on NPCs.
//
// The label shown for a list is a pure function of the NPC's current
// membership: an absent NPC gets "(+) X", a present one gets "X (-)".
// Clicking the entry flips the membership.
package menu

import (
	"strings"

	"github.com/MrWong99/lastman/internal/lists"
)

// Canonical labels. The duplicate check and click matching compare against
// these exact strings after tag stripping.
const (
	LabelAddBlacklist    = "(+) Blacklist"
	LabelRemoveBlacklist = "Blacklist (-)"
	LabelAddWhitelist    = "(+) Whitelist"
	LabelRemoveWhitelist = "Whitelist (-)"
)

// Op is the mutation a label stands for.
type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
)

// Action is the decoded meaning of a canonical label.
type Action struct {
	List lists.Name
	Op   Op
}

var actions = map[string]Action{
	LabelAddBlacklist:    {List: lists.Blacklist, Op: OpAdd},
	LabelRemoveBlacklist: {List: lists.Blacklist, Op: OpRemove},
	LabelAddWhitelist:    {List: lists.Whitelist, Op: OpAdd},
	LabelRemoveWhitelist: {List: lists.Whitelist, Op: OpRemove},
}

// Label returns the entry text for list given whether the NPC is currently
// a member.
func Label(list lists.Name, present bool) string {
	switch list {
	case lists.Blacklist:
		if present {
			return LabelRemoveBlacklist
		}
		return LabelAddBlacklist
	case lists.Whitelist:
		if present {
			return LabelRemoveWhitelist
		}
		return LabelAddWhitelist
	}
	return ""
}

// Parse decodes an already tag-stripped label. Matching is exact.
func Parse(label string) (Action, bool) {
	a, ok := actions[label]
	return a, ok
}

// belongsTo reports whether label, ignoring case, is one of list's two labels.
func belongsTo(label string, list lists.Name) bool {
	return strings.EqualFold(label, Label(list, false)) || strings.EqualFold(label, Label(list, true))
}
