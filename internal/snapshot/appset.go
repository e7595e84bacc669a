package snapshot

import (
	"encoding/json"
	"slices"
)

// AppSet is an immutable set of application names. Members are kept sorted
// and deduplicated, so two sets built from the same names in any order are
// equal and serialize identically.
type AppSet struct {
	names []string
}

// NewAppSet builds a set from names. Empty strings are dropped.
func NewAppSet(names ...string) AppSet {
	if len(names) == 0 {
		return AppSet{}
	}
	sorted := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" {
			sorted = append(sorted, n)
		}
	}
	slices.Sort(sorted)
	return AppSet{names: slices.Compact(sorted)}
}

// Len returns the number of members.
func (s AppSet) Len() int { return len(s.names) }

// Contains reports whether name is a member.
func (s AppSet) Contains(name string) bool {
	_, found := slices.BinarySearch(s.names, name)
	return found
}

// Names returns a sorted copy of the members. Never nil.
func (s AppSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Equal compares membership, ignoring the order the names were added in.
func (s AppSet) Equal(other AppSet) bool {
	return slices.Equal(s.names, other.names)
}

func (s AppSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

func (s *AppSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*s = NewAppSet(names...)
	return nil
}
