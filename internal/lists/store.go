// Package lists holds the two user-curated NPC ID sets (blacklist and
// whitelist) and keeps them in sync with their persisted comma-separated
// form.
//
// The in-memory sets are the source of truth at runtime. [Store.Rebuild]
// replaces them from the persisted strings; every [Store.Add] and
// [Store.Remove] writes the affected list back through the [Persister]
// before returning.
package lists

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Name selects one of the two lists.
type Name string

const (
	Blacklist Name = "blacklist"
	Whitelist Name = "whitelist"
)

// MaxID is the largest definition ID a list can hold. Host IDs are 32-bit
// and the persisted form is parsed back as such.
const MaxID = math.MaxInt32

// ValidID reports whether id can be stored in a list.
func ValidID(id int) bool { return id >= 0 && id <= MaxID }

// Key returns the persisted setting key for the list.
func (n Name) Key() string {
	switch n {
	case Blacklist:
		return "npcBlacklist"
	case Whitelist:
		return "npcWhitelist"
	}
	return ""
}

// IsValid reports whether n is a known list.
func (n Name) IsValid() bool {
	return n == Blacklist || n == Whitelist
}

// Persister receives the serialized list after every mutation.
type Persister interface {
	Persist(list Name, value string)
}

// PersisterFunc adapts a function to [Persister].
type PersisterFunc func(list Name, value string)

// Persist implements [Persister].
func (f PersisterFunc) Persist(list Name, value string) { f(list, value) }

type set map[int]struct{}

// Store is the pair of ID sets. It is safe for concurrent use, although the
// host only ever calls it from its client thread.
type Store struct {
	mu        sync.RWMutex
	sets      map[Name]set
	persister Persister
}

// NewStore returns an empty store that writes mutations to p.
// A nil p disables persistence.
func NewStore(p Persister) *Store {
	return &Store{
		sets: map[Name]set{
			Blacklist: {},
			Whitelist: {},
		},
		persister: p,
	}
}

// Rebuild replaces both sets with the IDs parsed from the given strings.
// Malformed tokens are skipped.
func (s *Store) Rebuild(blacklistCSV, whitelistCSV string) {
	bl := toSet(ParseIDs(blacklistCSV))
	wl := toSet(ParseIDs(whitelistCSV))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[Blacklist] = bl
	s.sets[Whitelist] = wl
}

// Clear empties both sets without persisting.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[Blacklist] = set{}
	s.sets[Whitelist] = set{}
}

// Contains reports whether id is in the named list.
func (s *Store) Contains(list Name, id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sets[list][id]
	return ok
}

// Add inserts id into the named list and persists it. Adding a present id
// still persists, so a stale persisted value is corrected.
func (s *Store) Add(list Name, id int) {
	if !list.IsValid() || !ValidID(id) {
		return
	}
	s.mu.Lock()
	s.sets[list][id] = struct{}{}
	value := s.serializeLocked(list)
	s.mu.Unlock()

	s.persist(list, value)
}

// Remove deletes id from the named list and persists it. Removing an absent
// id leaves the set unchanged.
func (s *Store) Remove(list Name, id int) {
	if !list.IsValid() || !ValidID(id) {
		return
	}
	s.mu.Lock()
	delete(s.sets[list], id)
	value := s.serializeLocked(list)
	s.mu.Unlock()

	s.persist(list, value)
}

// Serialize returns the named list as comma-separated decimal IDs in
// ascending order.
func (s *Store) Serialize(list Name) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serializeLocked(list)
}

// IDs returns the members of the named list in ascending order.
func (s *Store) IDs(list Name) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idsLocked(list)
}

// Len returns the size of the named list.
func (s *Store) Len(list Name) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sets[list])
}

func (s *Store) idsLocked(list Name) []int {
	ids := make([]int, 0, len(s.sets[list]))
	for id := range s.sets[list] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *Store) serializeLocked(list Name) string {
	ids := s.idsLocked(list)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// persist runs outside the lock: the persister may trigger a config-changed
// round trip that calls back into Rebuild.
func (s *Store) persist(list Name, value string) {
	if s.persister != nil {
		s.persister.Persist(list, value)
	}
}

func toSet(ids []int) set {
	out := make(set, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
