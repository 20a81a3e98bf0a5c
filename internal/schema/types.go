package schema

import (
	"github.com/google/uuid"
)

// ColumnKind describes the role a column plays in a table or view
type ColumnKind string

const (
	KindPartitionKey ColumnKind = "partition_key"
	KindClustering   ColumnKind = "clustering"
	KindRegular      ColumnKind = "regular"
	KindStatic       ColumnKind = "static"
)

// Keyspace represents the tables of one keyspace
type Keyspace struct {
	Name   string
	Tables []Table
}

// Table represents a base table and the views attached to it
type Table struct {
	ID            uuid.UUID
	Keyspace      string
	Name          string
	PartitionKey  []string
	ClusteringKey []string
	Columns       []Column
	Views         []View
	FastStream    FastStreamPolicy
}

// View represents a materialized view derived from a base table
type View struct {
	ID            uuid.UUID
	Name          string
	BaseTableID   uuid.UUID
	BaseTableName string
	PartitionKey  []string
	ClusteringKey []string
	Columns       []Column
}

// Column represents a table or view column
type Column struct {
	Name string
	Type string
	Kind ColumnKind
}

// PrimaryKey returns the partition key followed by the clustering columns
func (t *Table) PrimaryKey() []string {
	return primaryKey(t.PartitionKey, t.ClusteringKey)
}

// PrimaryKey returns the partition key followed by the clustering columns
func (v *View) PrimaryKey() []string {
	return primaryKey(v.PartitionKey, v.ClusteringKey)
}

// View returns the attached view with the given name
func (t *Table) View(name string) (*View, bool) {
	for i := range t.Views {
		if t.Views[i].Name == name {
			return &t.Views[i], true
		}
	}
	return nil, false
}

// Table returns the table with the given name
func (k *Keyspace) Table(name string) (*Table, bool) {
	for i := range k.Tables {
		if k.Tables[i].Name == name {
			return &k.Tables[i], true
		}
	}
	return nil, false
}

// FindView returns a view by name together with the table it is attached to
func (k *Keyspace) FindView(name string) (*View, *Table, bool) {
	for i := range k.Tables {
		if v, ok := k.Tables[i].View(name); ok {
			return v, &k.Tables[i], true
		}
	}
	return nil, nil, false
}

func primaryKey(partition, clustering []string) []string {
	pk := make([]string, 0, len(partition)+len(clustering))
	pk = append(pk, partition...)
	return append(pk, clustering...)
}
