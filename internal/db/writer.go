package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tordrt/cfelect/internal/schema"
)

type execFunc func(ctx context.Context, query string, args ...any) error

// WriteSQLCatalog creates the catalog tables if needed and replaces the
// keyspaces of snap in a single transaction. The catalog's schema version
// becomes snap's generation, or a fresh one if the generation is nil.
func WriteSQLCatalog(ctx context.Context, db *sql.DB, snap *schema.Snapshot) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exec := func(ctx context.Context, query string, args ...any) error {
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	}
	if err := writeCatalog(ctx, exec, snap); err != nil {
		return err
	}
	return tx.Commit()
}

// WritePostgresCatalog is WriteSQLCatalog for PostgreSQL
func WritePostgresCatalog(ctx context.Context, client *PostgresClient, schemaName string, snap *schema.Snapshot) error {
	if schemaName == "" {
		schemaName = "public"
	}
	tx, err := client.GetPool().BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SELECT set_config('search_path', $1, true)", schemaName); err != nil {
		return fmt.Errorf("failed to set search_path: %w", err)
	}

	exec := func(ctx context.Context, query string, args ...any) error {
		_, err := tx.Exec(ctx, rebind(query), args...)
		return err
	}
	if err := writeCatalog(ctx, exec, snap); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func writeCatalog(ctx context.Context, exec execFunc, snap *schema.Snapshot) error {
	for _, stmt := range CatalogDDL {
		if err := exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create catalog tables: %w", err)
		}
	}

	for _, name := range snap.KeyspaceNames() {
		ks, _ := snap.Keyspace(name)
		if err := writeKeyspace(ctx, exec, ks); err != nil {
			return fmt.Errorf("failed to write keyspace %s: %w", name, err)
		}
	}

	version := snap.Generation()
	if version == uuid.Nil {
		version = uuid.New()
	}
	if err := exec(ctx, `DELETE FROM schema_version`); err != nil {
		return fmt.Errorf("failed to clear schema version: %w", err)
	}
	if err := exec(ctx, `INSERT INTO schema_version (version) VALUES (?)`, version.String()); err != nil {
		return fmt.Errorf("failed to write schema version: %w", err)
	}
	return nil
}

func writeKeyspace(ctx context.Context, exec execFunc, ks *schema.Keyspace) error {
	for _, table := range []string{"schema_columns", "schema_views", "schema_tables", "schema_keyspaces"} {
		if err := exec(ctx, `DELETE FROM `+table+` WHERE keyspace_name = ?`, ks.Name); err != nil {
			return err
		}
	}
	if err := exec(ctx, `INSERT INTO schema_keyspaces (keyspace_name) VALUES (?)`, ks.Name); err != nil {
		return err
	}

	for i := range ks.Tables {
		t := &ks.Tables[i]
		err := exec(ctx,
			`INSERT INTO schema_tables (keyspace_name, table_name, id, mv_fast_stream) VALUES (?, ?, ?, ?)`,
			ks.Name, t.Name, t.ID.String(), t.FastStream.String())
		if err != nil {
			return err
		}
		if err := writeColumns(ctx, exec, ks.Name, t.Name, t.PartitionKey, t.ClusteringKey, t.Columns); err != nil {
			return err
		}

		for j := range t.Views {
			v := &t.Views[j]
			err := exec(ctx,
				`INSERT INTO schema_views (keyspace_name, view_name, id, base_table_id, base_table_name) VALUES (?, ?, ?, ?, ?)`,
				ks.Name, v.Name, v.ID.String(), v.BaseTableID.String(), baseName(v, t))
			if err != nil {
				return err
			}
			if err := writeColumns(ctx, exec, ks.Name, v.Name, v.PartitionKey, v.ClusteringKey, v.Columns); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeColumns stores key columns with their key position and every other
// column as regular (or static) after them
func writeColumns(ctx context.Context, exec execFunc, keyspace, table string, partition, clustering []string, columns []schema.Column) error {
	types := make(map[string]string, len(columns))
	for _, c := range columns {
		types[c.Name] = c.Type
	}

	const insert = `INSERT INTO schema_columns (keyspace_name, table_name, column_name, kind, position, column_type) VALUES (?, ?, ?, ?, ?, ?)`
	written := make(map[string]bool)
	position := 0
	for _, key := range []struct {
		kind    schema.ColumnKind
		columns []string
	}{{schema.KindPartitionKey, partition}, {schema.KindClustering, clustering}} {
		for _, name := range key.columns {
			if err := exec(ctx, insert, keyspace, table, name, string(key.kind), position, types[name]); err != nil {
				return err
			}
			written[name] = true
			position++
		}
	}

	for _, c := range columns {
		if written[c.Name] {
			continue
		}
		kind := c.Kind
		if kind != schema.KindStatic {
			kind = schema.KindRegular
		}
		if err := exec(ctx, insert, keyspace, table, c.Name, string(kind), position, c.Type); err != nil {
			return err
		}
		written[c.Name] = true
		position++
	}
	return nil
}

func baseName(v *schema.View, t *schema.Table) string {
	if v.BaseTableName != "" {
		return v.BaseTableName
	}
	return t.Name
}
