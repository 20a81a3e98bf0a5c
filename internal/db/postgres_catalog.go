package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/tordrt/cfelect/internal/logger"
	"github.com/tordrt/cfelect/internal/metrics"
	"github.com/tordrt/cfelect/internal/schema"
)

// PostgresCatalog reads a catalog held in PostgreSQL
type PostgresCatalog struct {
	client *PostgresClient
	schema string
	log    *zap.Logger
}

// NewPostgresCatalog reads the catalog tables of the given PostgreSQL schema
// ("public" if empty)
func NewPostgresCatalog(client *PostgresClient, schemaName string) *PostgresCatalog {
	if schemaName == "" {
		schemaName = "public"
	}
	return &PostgresCatalog{
		client: client,
		schema: schemaName,
		log:    logger.Named("catalog").With(logger.Source("postgres")),
	}
}

// KeyspaceSnapshot implements Provider
func (c *PostgresCatalog) KeyspaceSnapshot(ctx context.Context, keyspace string) (*schema.Snapshot, error) {
	tx, err := c.client.GetPool().BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := c.setSearchPath(ctx, tx); err != nil {
		return nil, err
	}

	snap, err := readKeyspace(ctx, c.query(tx), keyspace)
	if err != nil {
		return nil, fmt.Errorf("failed to load keyspace %s from postgres catalog: %w", keyspace, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	metrics.SnapshotLoads.WithLabelValues("postgres").Inc()
	c.log.Debug("loaded keyspace snapshot", logger.Keyspace(keyspace), logger.Generation(snap.Generation()))
	return snap, nil
}

// Keyspaces implements Provider
func (c *PostgresCatalog) Keyspaces(ctx context.Context) ([]string, error) {
	var names []string
	err := c.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		names, err = readKeyspaces(ctx, c.query(tx))
		return err
	})
	return names, err
}

// FastStreamPolicy implements Provider
func (c *PostgresCatalog) FastStreamPolicy(ctx context.Context, keyspace, table string) (schema.FastStreamPolicy, error) {
	var policy schema.FastStreamPolicy
	err := c.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		policy, err = readPolicy(ctx, c.query(tx), keyspace, table)
		return err
	})
	return policy, err
}

// SchemaVersion implements Provider
func (c *PostgresCatalog) SchemaVersion(ctx context.Context) (uuid.UUID, error) {
	var version uuid.UUID
	err := c.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		version, err = readVersion(ctx, c.query(tx))
		return err
	})
	return version, err
}

// Close closes the underlying client
func (c *PostgresCatalog) Close() error {
	return c.client.Close()
}

func (c *PostgresCatalog) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := c.client.GetPool().BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := c.setSearchPath(ctx, tx); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// setSearchPath scopes unqualified catalog table names to c.schema for the
// rest of the transaction
func (c *PostgresCatalog) setSearchPath(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, "SELECT set_config('search_path', $1, true)", c.schema); err != nil {
		return fmt.Errorf("failed to set search_path: %w", err)
	}
	return nil
}

func (c *PostgresCatalog) query(tx pgx.Tx) queryFunc {
	return func(ctx context.Context, query string, args ...any) (rows, func(), error) {
		r, err := tx.Query(ctx, rebind(query), args...)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	}
}
