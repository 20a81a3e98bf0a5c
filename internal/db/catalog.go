package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tordrt/cfelect/internal/schema"
)

// CatalogDDL creates the catalog tables. The statements are portable across
// PostgreSQL, MySQL and SQLite.
var CatalogDDL = []string{
	`CREATE TABLE IF NOT EXISTS schema_version (
		version VARCHAR(36) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS schema_keyspaces (
		keyspace_name VARCHAR(255) NOT NULL,
		PRIMARY KEY (keyspace_name)
	)`,
	`CREATE TABLE IF NOT EXISTS schema_tables (
		keyspace_name  VARCHAR(255) NOT NULL,
		table_name     VARCHAR(255) NOT NULL,
		id             VARCHAR(36)  NOT NULL,
		mv_fast_stream VARCHAR(16),
		PRIMARY KEY (keyspace_name, table_name)
	)`,
	`CREATE TABLE IF NOT EXISTS schema_views (
		keyspace_name   VARCHAR(255) NOT NULL,
		view_name       VARCHAR(255) NOT NULL,
		id              VARCHAR(36)  NOT NULL,
		base_table_id   VARCHAR(36)  NOT NULL,
		base_table_name VARCHAR(255) NOT NULL,
		PRIMARY KEY (keyspace_name, view_name)
	)`,
	`CREATE TABLE IF NOT EXISTS schema_columns (
		keyspace_name VARCHAR(255) NOT NULL,
		table_name    VARCHAR(255) NOT NULL,
		column_name   VARCHAR(255) NOT NULL,
		kind          VARCHAR(16)  NOT NULL,
		position      INTEGER      NOT NULL,
		column_type   VARCHAR(255) NOT NULL,
		PRIMARY KEY (keyspace_name, table_name, column_name)
	)`,
}

// Queries are written with '?' placeholders and rebound for PostgreSQL
const (
	queryVersion   = `SELECT version FROM schema_version`
	queryKeyspace  = `SELECT COUNT(*) FROM schema_keyspaces WHERE keyspace_name = ?`
	queryKeyspaces = `SELECT keyspace_name FROM schema_keyspaces ORDER BY keyspace_name`
	queryTables    = `
		SELECT table_name, id, mv_fast_stream
		FROM schema_tables
		WHERE keyspace_name = ?
		ORDER BY table_name
	`
	queryViews = `
		SELECT view_name, id, base_table_id, base_table_name
		FROM schema_views
		WHERE keyspace_name = ?
		ORDER BY view_name
	`
	queryColumns = `
		SELECT table_name, column_name, kind, position, column_type
		FROM schema_columns
		WHERE keyspace_name = ?
		ORDER BY table_name, position, column_name
	`
	queryPolicy = `
		SELECT mv_fast_stream
		FROM schema_tables
		WHERE keyspace_name = ? AND table_name = ?
	`
)

// rows is the subset of *sql.Rows and pgx.Rows the readers need
type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// queryFunc runs a query and returns its rows along with a release function
type queryFunc func(ctx context.Context, query string, args ...any) (rows, func(), error)

type tableRow struct {
	name       string
	id         string
	fastStream sql.NullString
}

type viewRow struct {
	name          string
	id            string
	baseTableID   string
	baseTableName string
}

type columnRow struct {
	table    string
	name     string
	kind     string
	position int
	typ      string
}

// readKeyspace loads one keyspace generation. query must run inside a single
// transaction so the rows belong to one schema version.
func readKeyspace(ctx context.Context, query queryFunc, keyspace string) (*schema.Snapshot, error) {
	version, err := readVersion(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}

	var count int
	if err := queryOne(ctx, query, queryKeyspace, []any{keyspace}, &count); err != nil {
		return nil, fmt.Errorf("failed to read keyspace: %w", err)
	}
	if count == 0 {
		return schema.NewSnapshot(version)
	}

	var tables []tableRow
	err = queryEach(ctx, query, queryTables, []any{keyspace}, func(r rows) error {
		var t tableRow
		if err := r.Scan(&t.name, &t.id, &t.fastStream); err != nil {
			return err
		}
		tables = append(tables, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read tables: %w", err)
	}

	var views []viewRow
	err = queryEach(ctx, query, queryViews, []any{keyspace}, func(r rows) error {
		var v viewRow
		if err := r.Scan(&v.name, &v.id, &v.baseTableID, &v.baseTableName); err != nil {
			return err
		}
		views = append(views, v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read views: %w", err)
	}

	var columns []columnRow
	err = queryEach(ctx, query, queryColumns, []any{keyspace}, func(r rows) error {
		var c columnRow
		if err := r.Scan(&c.table, &c.name, &c.kind, &c.position, &c.typ); err != nil {
			return err
		}
		columns = append(columns, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	ks, err := assembleKeyspace(keyspace, tables, views, columns)
	if err != nil {
		return nil, err
	}
	return schema.NewSnapshot(version, *ks)
}

func readVersion(ctx context.Context, query queryFunc) (uuid.UUID, error) {
	var versions []string
	err := queryEach(ctx, query, queryVersion, nil, func(r rows) error {
		var v string
		if err := r.Scan(&v); err != nil {
			return err
		}
		versions = append(versions, v)
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	switch len(versions) {
	case 0:
		return uuid.Nil, nil
	case 1:
		return uuid.Parse(versions[0])
	default:
		return uuid.Nil, fmt.Errorf("schema_version holds %d rows, expected one", len(versions))
	}
}

func readKeyspaces(ctx context.Context, query queryFunc) ([]string, error) {
	var names []string
	err := queryEach(ctx, query, queryKeyspaces, nil, func(r rows) error {
		var name string
		if err := r.Scan(&name); err != nil {
			return err
		}
		names = append(names, name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list keyspaces: %w", err)
	}
	return names, nil
}

func readPolicy(ctx context.Context, query queryFunc, keyspace, table string) (schema.FastStreamPolicy, error) {
	var policies []sql.NullString
	err := queryEach(ctx, query, queryPolicy, []any{keyspace, table}, func(r rows) error {
		var p sql.NullString
		if err := r.Scan(&p); err != nil {
			return err
		}
		policies = append(policies, p)
		return nil
	})
	if err != nil {
		return schema.DefaultFastStreamPolicy, fmt.Errorf("failed to read mv_fast_stream: %w", err)
	}
	if len(policies) == 0 {
		return schema.DefaultFastStreamPolicy, fmt.Errorf("%w: %s.%s", ErrTableNotFound, keyspace, table)
	}
	return schema.ParseFastStreamPolicy(policies[0].String)
}

func queryEach(ctx context.Context, query queryFunc, q string, args []any, fn func(rows) error) error {
	r, release, err := query(ctx, q, args...)
	if err != nil {
		return err
	}
	defer release()

	for r.Next() {
		if err := fn(r); err != nil {
			return err
		}
	}
	return r.Err()
}

func queryOne(ctx context.Context, query queryFunc, q string, args []any, dest ...any) error {
	found := false
	err := queryEach(ctx, query, q, args, func(r rows) error {
		found = true
		return r.Scan(dest...)
	})
	if err != nil {
		return err
	}
	if !found {
		return sql.ErrNoRows
	}
	return nil
}

// assembleKeyspace turns catalog rows into a keyspace. Views are attached to
// the table named by base_table_name; base_table_id is kept as recorded so an
// inconsistent catalog surfaces as a schema mismatch during election.
func assembleKeyspace(keyspace string, tables []tableRow, views []viewRow, columns []columnRow) (*schema.Keyspace, error) {
	byTable := make(map[string][]columnRow)
	for _, c := range columns {
		byTable[c.table] = append(byTable[c.table], c)
	}

	ks := &schema.Keyspace{Name: keyspace}
	index := make(map[string]int, len(tables))
	for _, t := range tables {
		id, err := uuid.Parse(t.id)
		if err != nil {
			return nil, fmt.Errorf("invalid id for table %s.%s: %w", keyspace, t.name, err)
		}
		policy, err := schema.ParseFastStreamPolicy(t.fastStream.String)
		if err != nil {
			return nil, fmt.Errorf("table %s.%s: %w", keyspace, t.name, err)
		}

		table := schema.Table{ID: id, Keyspace: keyspace, Name: t.name, FastStream: policy}
		table.PartitionKey, table.ClusteringKey, table.Columns, err = splitColumns(byTable[t.name])
		if err != nil {
			return nil, fmt.Errorf("table %s.%s: %w", keyspace, t.name, err)
		}
		index[t.name] = len(ks.Tables)
		ks.Tables = append(ks.Tables, table)
	}

	for _, v := range views {
		id, err := uuid.Parse(v.id)
		if err != nil {
			return nil, fmt.Errorf("invalid id for view %s.%s: %w", keyspace, v.name, err)
		}
		baseID, err := uuid.Parse(v.baseTableID)
		if err != nil {
			return nil, fmt.Errorf("invalid base table id for view %s.%s: %w", keyspace, v.name, err)
		}
		i, ok := index[v.baseTableName]
		if !ok {
			return nil, fmt.Errorf("view %s.%s references missing base table %s", keyspace, v.name, v.baseTableName)
		}

		view := schema.View{ID: id, Name: v.name, BaseTableID: baseID, BaseTableName: v.baseTableName}
		view.PartitionKey, view.ClusteringKey, view.Columns, err = splitColumns(byTable[v.name])
		if err != nil {
			return nil, fmt.Errorf("view %s.%s: %w", keyspace, v.name, err)
		}
		ks.Tables[i].Views = append(ks.Tables[i].Views, view)
	}

	return ks, nil
}

// splitColumns orders key columns by position and returns the partition key,
// the clustering key and every column.
func splitColumns(rows []columnRow) (partition, clustering []string, columns []schema.Column, err error) {
	sorted := append([]columnRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].position < sorted[j].position
	})

	for _, c := range sorted {
		kind := schema.ColumnKind(strings.ToLower(c.kind))
		switch kind {
		case schema.KindPartitionKey:
			partition = append(partition, c.name)
		case schema.KindClustering:
			clustering = append(clustering, c.name)
		case schema.KindRegular, schema.KindStatic:
		default:
			return nil, nil, nil, fmt.Errorf("column %s has unknown kind %q", c.name, c.kind)
		}
		columns = append(columns, schema.Column{Name: c.name, Type: c.typ, Kind: kind})
	}
	return partition, clustering, columns, nil
}

// rebind rewrites '?' placeholders into PostgreSQL's $n form
func rebind(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
