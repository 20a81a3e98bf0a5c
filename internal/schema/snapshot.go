package schema

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Snapshot is one immutable schema generation. Everything reachable from a
// Snapshot is read-only: callers must not modify the keyspaces, tables or
// views it hands out.
type Snapshot struct {
	generation uuid.UUID
	keyspaces  map[string]*Keyspace
}

// NewSnapshot builds a generation from the given keyspaces. The input is deep
// copied, so the caller may keep mutating its own values afterwards.
func NewSnapshot(generation uuid.UUID, keyspaces ...Keyspace) (*Snapshot, error) {
	s := &Snapshot{
		generation: generation,
		keyspaces:  make(map[string]*Keyspace, len(keyspaces)),
	}

	for _, ks := range keyspaces {
		if ks.Name == "" {
			return nil, fmt.Errorf("keyspace name is required")
		}
		if _, dup := s.keyspaces[ks.Name]; dup {
			return nil, fmt.Errorf("duplicate keyspace %s", ks.Name)
		}

		copied := copyKeyspace(ks)
		// tables and views share one namespace per keyspace
		seen := make(map[string]bool, len(copied.Tables))
		for i := range copied.Tables {
			t := &copied.Tables[i]
			if t.Name == "" {
				return nil, fmt.Errorf("table name is required in keyspace %s", ks.Name)
			}
			if seen[t.Name] {
				return nil, fmt.Errorf("duplicate column family %s.%s", ks.Name, t.Name)
			}
			seen[t.Name] = true
			for j := range t.Views {
				v := &t.Views[j]
				if v.Name == "" {
					return nil, fmt.Errorf("view name is required on table %s.%s", ks.Name, t.Name)
				}
				if seen[v.Name] {
					return nil, fmt.Errorf("duplicate column family %s.%s", ks.Name, v.Name)
				}
				seen[v.Name] = true
			}
			if t.Keyspace == "" {
				t.Keyspace = ks.Name
			}
			if !t.FastStream.Valid() {
				return nil, fmt.Errorf("table %s.%s has invalid mv_fast_stream policy %d", ks.Name, t.Name, int(t.FastStream))
			}
		}
		s.keyspaces[ks.Name] = copied
	}

	return s, nil
}

// Generation identifies the schema version this snapshot was taken at
func (s *Snapshot) Generation() uuid.UUID {
	return s.generation
}

// Keyspace returns the named keyspace
func (s *Snapshot) Keyspace(name string) (*Keyspace, bool) {
	ks, ok := s.keyspaces[name]
	return ks, ok
}

// KeyspaceNames returns the keyspace names in sorted order
func (s *Snapshot) KeyspaceNames() []string {
	names := make([]string, 0, len(s.keyspaces))
	for name := range s.keyspaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func copyKeyspace(ks Keyspace) *Keyspace {
	out := &Keyspace{Name: ks.Name, Tables: make([]Table, len(ks.Tables))}
	for i, t := range ks.Tables {
		t.PartitionKey = copyStrings(t.PartitionKey)
		t.ClusteringKey = copyStrings(t.ClusteringKey)
		t.Columns = copyColumns(t.Columns)
		views := make([]View, len(t.Views))
		for j, v := range t.Views {
			v.PartitionKey = copyStrings(v.PartitionKey)
			v.ClusteringKey = copyStrings(v.ClusteringKey)
			v.Columns = copyColumns(v.Columns)
			views[j] = v
		}
		t.Views = views
		out.Tables[i] = t
	}
	return out
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func copyColumns(in []Column) []Column {
	if in == nil {
		return nil
	}
	return append([]Column(nil), in...)
}
