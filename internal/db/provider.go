// Package db reads schema snapshots out of schema catalogs.
//
// A catalog is a small set of tables modelled on system_schema (see
// CatalogDDL) held in PostgreSQL, MySQL or SQLite, or a YAML document on
// disk. Every snapshot is read in a single read-only transaction so a
// concurrent schema change is either fully visible or not visible at all.
package db

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/tordrt/cfelect/internal/schema"
)

// ErrTableNotFound is returned when a table is absent from the catalog
var ErrTableNotFound = errors.New("table not found")

// Provider supplies immutable schema snapshots
type Provider interface {
	// KeyspaceSnapshot returns the current generation of keyspace. A keyspace
	// that does not exist yields a snapshot without it rather than an error.
	KeyspaceSnapshot(ctx context.Context, keyspace string) (*schema.Snapshot, error)

	// Keyspaces lists the keyspaces currently in the catalog, sorted
	Keyspaces(ctx context.Context) ([]string, error)

	// FastStreamPolicy returns the current mv_fast_stream setting of a table
	FastStreamPolicy(ctx context.Context, keyspace, table string) (schema.FastStreamPolicy, error)

	// SchemaVersion returns the current schema version, or uuid.Nil when the
	// catalog does not track one
	SchemaVersion(ctx context.Context) (uuid.UUID, error)

	Close() error
}
