package election

import (
	"encoding/json"
	"sort"
)

// RefKind tells base tables and views apart
type RefKind string

const (
	KindTable RefKind = "table"
	KindView  RefKind = "view"
)

// ColumnFamilyRef identifies an elected table or view
type ColumnFamilyRef struct {
	Keyspace  string  `json:"keyspace"`
	Name      string  `json:"name"`
	Kind      RefKind `json:"kind"`
	BaseTable string  `json:"base_table,omitempty"`
}

// ColumnFamilySet is the unordered result of an election. Membership is the
// contract; Refs and Names return sorted copies for display only.
type ColumnFamilySet struct {
	refs map[string]ColumnFamilyRef
}

// NewColumnFamilySet returns an empty set
func NewColumnFamilySet() ColumnFamilySet {
	return ColumnFamilySet{refs: make(map[string]ColumnFamilyRef)}
}

func (s *ColumnFamilySet) add(ref ColumnFamilyRef) {
	if s.refs == nil {
		s.refs = make(map[string]ColumnFamilyRef)
	}
	s.refs[ref.Name] = ref
}

// Contains reports whether a table or view with the given name was elected
func (s ColumnFamilySet) Contains(name string) bool {
	_, ok := s.refs[name]
	return ok
}

// Get returns the elected column family with the given name
func (s ColumnFamilySet) Get(name string) (ColumnFamilyRef, bool) {
	ref, ok := s.refs[name]
	return ref, ok
}

func (s ColumnFamilySet) Len() int {
	return len(s.refs)
}

// Refs returns the members sorted by name
func (s ColumnFamilySet) Refs() []ColumnFamilyRef {
	refs := make([]ColumnFamilyRef, 0, len(s.refs))
	for _, r := range s.refs {
		refs = append(refs, r)
	}
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].Name < refs[j].Name
	})
	return refs
}

// Names returns the member names sorted
func (s ColumnFamilySet) Names() []string {
	names := make([]string, 0, len(s.refs))
	for name := range s.refs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Views returns the elected views sorted by name
func (s ColumnFamilySet) Views() []ColumnFamilyRef {
	var views []ColumnFamilyRef
	for _, r := range s.Refs() {
		if r.Kind == KindView {
			views = append(views, r)
		}
	}
	return views
}

// MarshalJSON encodes the set as a name-sorted array
func (s ColumnFamilySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Refs())
}
