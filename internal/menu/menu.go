package menu

import (
	"github.com/MrWong99/lastman/internal/eventbus"
	"github.com/MrWong99/lastman/internal/host"
	"github.com/MrWong99/lastman/internal/lists"
)

// Lists is the list access the augmenter needs. [*lists.Store] satisfies it.
type Lists interface {
	Contains(list lists.Name, id int) bool
	Add(list lists.Name, id int)
	Remove(list lists.Name, id int)
}

// menuLists is the order entries are appended in.
var menuLists = []lists.Name{lists.Blacklist, lists.Whitelist}

// Augment returns the entries to append to the menu being built when the
// host adds ev. It returns nil unless ev is a primary NPC option whose NPC
// resolves to a definition with an ID [lists.ValidID] accepts. Lists that
// already have an entry for the NPC in the staged menu are skipped.
func Augment(ev *eventbus.MenuEntryAdded, client host.Client, l Lists) []host.MenuEntry {
	if ev == nil || !ev.Type.IsPrimaryNPCOption() {
		return nil
	}

	npc := findNPC(client.NPCs(), ev.Identifier)
	if npc == nil {
		return nil
	}
	comp := npc.TransformedComposition()
	if comp == nil {
		return nil
	}
	id := comp.ID
	if !lists.ValidID(id) {
		return nil
	}

	staged := make(map[lists.Name]bool, len(menuLists))
	for _, entry := range client.MenuEntries() {
		if entry.Identifier != id {
			continue
		}
		option := host.RemoveTags(entry.Option)
		for _, list := range menuLists {
			if belongsTo(option, list) {
				staged[list] = true
			}
		}
	}

	var out []host.MenuEntry
	for _, list := range menuLists {
		if staged[list] {
			continue
		}
		out = append(out, host.MenuEntry{
			Option:     Label(list, l.Contains(list, id)),
			Target:     npc.Name(),
			Type:       host.RuneLite,
			Identifier: id,
		})
	}
	return out
}

// HandleClick applies the list mutation named by the clicked label and
// consumes the event. Labels that are not one of the four canonical labels
// leave the event untouched and return false.
func HandleClick(ev *eventbus.MenuOptionClicked, l Lists) (Action, bool) {
	if ev == nil {
		return Action{}, false
	}
	a, ok := Parse(host.RemoveTags(ev.Option))
	if !ok {
		return Action{}, false
	}
	switch a.Op {
	case OpAdd:
		l.Add(a.List, ev.ID)
	case OpRemove:
		l.Remove(a.List, ev.ID)
	}
	ev.Consume()
	return a, true
}

func findNPC(npcs []host.NPC, index int) host.NPC {
	for _, n := range npcs {
		if n != nil && n.Index() == index {
			return n
		}
	}
	return nil
}
