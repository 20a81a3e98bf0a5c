package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tordrt/cfelect/internal/logger"
	"github.com/tordrt/cfelect/internal/metrics"
	"github.com/tordrt/cfelect/internal/schema"
)

// SQLCatalog reads a catalog through database/sql (MySQL and SQLite)
type SQLCatalog struct {
	db     *sql.DB
	closer func() error
	source string
	txOpts *sql.TxOptions
	log    *zap.Logger
}

// NewMySQLCatalog reads the catalog held in the client's database
func NewMySQLCatalog(client *MySQLClient) *SQLCatalog {
	return &SQLCatalog{
		db:     client.GetDB(),
		closer: client.Close,
		source: "mysql",
		txOpts: &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
		log:    logger.Named("catalog").With(logger.Source("mysql")),
	}
}

// NewSQLiteCatalog reads the catalog held in the client's database file
func NewSQLiteCatalog(client *SQLiteClient) *SQLCatalog {
	return &SQLCatalog{
		db:     client.GetDB(),
		closer: client.Close,
		source: "sqlite",
		// SQLite transactions are serializable; the driver takes no options
		txOpts: nil,
		log:    logger.Named("catalog").With(logger.Source("sqlite")),
	}
}

// KeyspaceSnapshot implements Provider
func (c *SQLCatalog) KeyspaceSnapshot(ctx context.Context, keyspace string) (*schema.Snapshot, error) {
	var snap *schema.Snapshot
	err := c.inTx(ctx, func(query queryFunc) error {
		var err error
		snap, err = readKeyspace(ctx, query, keyspace)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load keyspace %s from %s catalog: %w", keyspace, c.source, err)
	}

	metrics.SnapshotLoads.WithLabelValues(c.source).Inc()
	c.log.Debug("loaded keyspace snapshot", logger.Keyspace(keyspace), logger.Generation(snap.Generation()))
	return snap, nil
}

// Keyspaces implements Provider
func (c *SQLCatalog) Keyspaces(ctx context.Context) ([]string, error) {
	return readKeyspaces(ctx, c.query(c.db))
}

// FastStreamPolicy implements Provider
func (c *SQLCatalog) FastStreamPolicy(ctx context.Context, keyspace, table string) (schema.FastStreamPolicy, error) {
	return readPolicy(ctx, c.query(c.db), keyspace, table)
}

// SchemaVersion implements Provider
func (c *SQLCatalog) SchemaVersion(ctx context.Context) (uuid.UUID, error) {
	return readVersion(ctx, c.query(c.db))
}

// Close closes the underlying client
func (c *SQLCatalog) Close() error {
	return c.closer()
}

type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (c *SQLCatalog) query(q sqlQuerier) queryFunc {
	return func(ctx context.Context, query string, args ...any) (rows, func(), error) {
		r, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { _ = r.Close() }, nil
	}
}

func (c *SQLCatalog) inTx(ctx context.Context, fn func(queryFunc) error) error {
	tx, err := c.db.BeginTx(ctx, c.txOpts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(c.query(tx)); err != nil {
		return err
	}
	return tx.Commit()
}
