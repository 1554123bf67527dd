package lists_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/lastman/internal/lists"
)

// recorder captures persisted values per list.
type recorder struct {
	calls  int
	values map[lists.Name]string
}

func newRecorder() *recorder {
	return &recorder{values: make(map[lists.Name]string)}
}

func (r *recorder) Persist(list lists.Name, value string) {
	r.calls++
	r.values[list] = value
}

func TestParseIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []int
	}{
		{"empty", "", nil},
		{"whitespace only", "   ", nil},
		{"single", "1234", []int{1234}},
		{"lenient", "3, foo ,5,,7", []int{3, 5, 7}},
		{"negative dropped", "-1,2", []int{2}},
		{"overflow dropped", "99999999999,4", []int{4}},
		{"max id kept", "2147483647", []int{2147483647}},
		{"beyond 32 bits dropped", "2147483648,5", []int{5}},
		{"decimal dropped", "1.5,6", []int{6}},
		{"trailing comma", "8,9,", []int{8, 9}},
		{"tabs and newlines", "\t10\n, 11 ", []int{10, 11}},
		{"explicit plus sign", "+12", []int{12}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := lists.ParseIDs(tc.in)
			if !slices.Equal(got, tc.want) {
				t.Errorf("ParseIDs(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestRebuild_Lenient(t *testing.T) {
	t.Parallel()
	s := lists.NewStore(nil)
	s.Rebuild("3, foo ,5,,7", "")

	if got := s.IDs(lists.Blacklist); !slices.Equal(got, []int{3, 5, 7}) {
		t.Errorf("blacklist = %v, want [3 5 7]", got)
	}
	if got := s.Len(lists.Whitelist); got != 0 {
		t.Errorf("whitelist len = %d, want 0", got)
	}
}

func TestRebuild_Replaces(t *testing.T) {
	t.Parallel()
	s := lists.NewStore(nil)
	s.Rebuild("1,2", "3")
	s.Rebuild("4", "")

	if s.Contains(lists.Blacklist, 1) || s.Contains(lists.Blacklist, 2) {
		t.Error("rebuild must not merge with previous contents")
	}
	if !s.Contains(lists.Blacklist, 4) {
		t.Error("expected 4 in blacklist")
	}
	if s.Contains(lists.Whitelist, 3) {
		t.Error("expected whitelist to be emptied")
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	sets := [][]int{
		{},
		{0},
		{42},
		{7, 3, 1000, 12},
		{2147483647, 0, 1},
	}

	for _, ids := range sets {
		src := lists.NewStore(nil)
		for _, id := range ids {
			src.Add(lists.Blacklist, id)
		}

		dst := lists.NewStore(nil)
		dst.Rebuild(src.Serialize(lists.Blacklist), "")

		want := slices.Clone(ids)
		slices.Sort(want)
		if got := dst.IDs(lists.Blacklist); !slices.Equal(got, want) {
			t.Errorf("round trip of %v = %v", ids, got)
		}
	}
}

func TestAdd_IdempotentAndPersists(t *testing.T) {
	t.Parallel()
	rec := newRecorder()
	s := lists.NewStore(rec)

	s.Add(lists.Whitelist, 1234)
	s.Add(lists.Whitelist, 1234)

	if got := s.IDs(lists.Whitelist); !slices.Equal(got, []int{1234}) {
		t.Errorf("whitelist = %v, want [1234]", got)
	}
	if rec.values[lists.Whitelist] != "1234" {
		t.Errorf("persisted whitelist = %q, want %q", rec.values[lists.Whitelist], "1234")
	}
	if rec.calls != 2 {
		t.Errorf("persist calls = %d, want 2 (no batching)", rec.calls)
	}
	if _, ok := rec.values[lists.Blacklist]; ok {
		t.Error("blacklist must not be persisted by a whitelist mutation")
	}
}

func TestRemove_AbsentIsNoop(t *testing.T) {
	t.Parallel()
	rec := newRecorder()
	s := lists.NewStore(rec)
	s.Rebuild("5,6", "")

	s.Remove(lists.Blacklist, 99)
	if got := s.IDs(lists.Blacklist); !slices.Equal(got, []int{5, 6}) {
		t.Errorf("blacklist = %v, want [5 6]", got)
	}

	s.Remove(lists.Blacklist, 5)
	if rec.values[lists.Blacklist] != "6" {
		t.Errorf("persisted blacklist = %q, want %q", rec.values[lists.Blacklist], "6")
	}

	s.Remove(lists.Blacklist, 6)
	if rec.values[lists.Blacklist] != "" {
		t.Errorf("persisted blacklist = %q, want empty", rec.values[lists.Blacklist])
	}
}

func TestBothListsMayContainID(t *testing.T) {
	t.Parallel()
	s := lists.NewStore(nil)
	s.Add(lists.Blacklist, 10)
	s.Add(lists.Whitelist, 10)

	if !s.Contains(lists.Blacklist, 10) || !s.Contains(lists.Whitelist, 10) {
		t.Error("an id may be in both lists")
	}
}

func TestInvalidInputsIgnored(t *testing.T) {
	t.Parallel()
	rec := newRecorder()
	s := lists.NewStore(rec)

	s.Add(lists.Name("greylist"), 1)
	s.Add(lists.Blacklist, -3)
	s.Remove(lists.Name("greylist"), 1)
	s.Remove(lists.Blacklist, -3)

	if rec.calls != 0 {
		t.Errorf("persist calls = %d, want 0", rec.calls)
	}
	if s.Len(lists.Blacklist) != 0 {
		t.Error("negative id must not be stored")
	}
}

func TestClear(t *testing.T) {
	t.Parallel()
	rec := newRecorder()
	s := lists.NewStore(rec)
	s.Rebuild("1", "2")
	s.Clear()

	if s.Len(lists.Blacklist) != 0 || s.Len(lists.Whitelist) != 0 {
		t.Error("Clear must empty both lists")
	}
	if rec.calls != 0 {
		t.Error("Clear must not persist")
	}
}

func TestName_Key(t *testing.T) {
	t.Parallel()
	if got := lists.Blacklist.Key(); got != "npcBlacklist" {
		t.Errorf("Blacklist.Key() = %q", got)
	}
	if got := lists.Whitelist.Key(); got != "npcWhitelist" {
		t.Errorf("Whitelist.Key() = %q", got)
	}
	if got := lists.Name("x").Key(); got != "" {
		t.Errorf("unknown Key() = %q, want empty", got)
	}
}

func TestPersisterFunc(t *testing.T) {
	t.Parallel()
	var got string
	s := lists.NewStore(lists.PersisterFunc(func(list lists.Name, value string) { got = string(list) + "=" + value }))
	s.Add(lists.Blacklist, 3)
	if got != "blacklist=3" {
		t.Errorf("persisted %q", got)
	}
}

func TestIDsBeyond32BitsRejected(t *testing.T) {
	t.Parallel()
	rec := newRecorder()
	s := lists.NewStore(rec)

	s.Add(lists.Blacklist, lists.MaxID+1)
	s.Remove(lists.Whitelist, lists.MaxID+1)
	if rec.calls != 0 {
		t.Errorf("persist calls = %d, want 0", rec.calls)
	}
	if s.Contains(lists.Blacklist, lists.MaxID+1) {
		t.Error("id beyond MaxID must not be stored")
	}

	s.Add(lists.Blacklist, lists.MaxID)
	dst := lists.NewStore(nil)
	dst.Rebuild(rec.values[lists.Blacklist], "")
	if !dst.Contains(lists.Blacklist, lists.MaxID) {
		t.Errorf("persisted %q lost MaxID on rebuild", rec.values[lists.Blacklist])
	}
}

func TestValidID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		id   int
		want bool
	}{
		{-1, false},
		{0, true},
		{lists.MaxID, true},
		{lists.MaxID + 1, false},
	}
	for _, tc := range tests {
		if got := lists.ValidID(tc.id); got != tc.want {
			t.Errorf("ValidID(%d) = %v, want %v", tc.id, got, tc.want)
		}
	}
}
