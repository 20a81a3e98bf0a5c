package db

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/tordrt/cfelect/internal/logger"
	"github.com/tordrt/cfelect/internal/metrics"
	"github.com/tordrt/cfelect/internal/schema"
)

// idNamespace derives stable ids for tables and views declared without one
var idNamespace = uuid.MustParse("6ba7b812-9dad-11d1-80b4-00c04fd430c8")

// Document is the YAML form of a catalog:
//
//	version: 3f1c...            # optional, derived from the content if absent
//	keyspaces:
//	  - name: ks
//	    tables:
//	      - name: t
//	        mv_fast_stream: auto
//	        partition_key: [k]
//	        clustering_key: [c1]
//	        columns:
//	          - {name: val1, type: text}
//	        views:
//	          - name: mv1
//	            partition_key: [c1]
//	            clustering_key: [k]
type Document struct {
	Version   string             `yaml:"version,omitempty"`
	Keyspaces []DocumentKeyspace `yaml:"keyspaces"`
}

type DocumentKeyspace struct {
	Name   string          `yaml:"name"`
	Tables []DocumentTable `yaml:"tables"`
}

type DocumentTable struct {
	Name          string                  `yaml:"name"`
	ID            string                  `yaml:"id,omitempty"`
	FastStream    schema.FastStreamPolicy `yaml:"mv_fast_stream,omitempty"`
	PartitionKey  []string                `yaml:"partition_key"`
	ClusteringKey []string                `yaml:"clustering_key,omitempty"`
	Columns       []DocumentColumn        `yaml:"columns,omitempty"`
	Views         []DocumentView          `yaml:"views,omitempty"`
}

type DocumentView struct {
	Name          string           `yaml:"name"`
	ID            string           `yaml:"id,omitempty"`
	PartitionKey  []string         `yaml:"partition_key"`
	ClusteringKey []string         `yaml:"clustering_key,omitempty"`
	Columns       []DocumentColumn `yaml:"columns,omitempty"`
}

type DocumentColumn struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Static bool   `yaml:"static,omitempty"`
}

// ParseDocument decodes a YAML catalog into a snapshot holding every keyspace
func ParseDocument(data []byte) (*schema.Snapshot, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog document: %w", err)
	}

	version := uuid.NewSHA1(idNamespace, data)
	if doc.Version != "" {
		v, err := uuid.Parse(doc.Version)
		if err != nil {
			return nil, fmt.Errorf("invalid catalog version: %w", err)
		}
		version = v
	}

	keyspaces := make([]schema.Keyspace, 0, len(doc.Keyspaces))
	for _, dk := range doc.Keyspaces {
		ks := schema.Keyspace{Name: dk.Name}
		for _, dt := range dk.Tables {
			id, err := documentID(dt.ID, dk.Name, dt.Name)
			if err != nil {
				return nil, fmt.Errorf("table %s.%s: %w", dk.Name, dt.Name, err)
			}
			table := schema.Table{
				ID:            id,
				Keyspace:      dk.Name,
				Name:          dt.Name,
				PartitionKey:  dt.PartitionKey,
				ClusteringKey: dt.ClusteringKey,
				Columns:       documentColumns(dt.Columns, dt.PartitionKey, dt.ClusteringKey),
				FastStream:    dt.FastStream,
			}
			for _, dv := range dt.Views {
				viewID, err := documentID(dv.ID, dk.Name, dv.Name)
				if err != nil {
					return nil, fmt.Errorf("view %s.%s: %w", dk.Name, dv.Name, err)
				}
				table.Views = append(table.Views, schema.View{
					ID:            viewID,
					Name:          dv.Name,
					BaseTableID:   id,
					BaseTableName: dt.Name,
					PartitionKey:  dv.PartitionKey,
					ClusteringKey: dv.ClusteringKey,
					Columns:       documentColumns(dv.Columns, dv.PartitionKey, dv.ClusteringKey),
				})
			}
			ks.Tables = append(ks.Tables, table)
		}
		keyspaces = append(keyspaces, ks)
	}

	return schema.NewSnapshot(version, keyspaces...)
}

func documentID(text, keyspace, name string) (uuid.UUID, error) {
	if text == "" {
		return uuid.NewSHA1(idNamespace, []byte(keyspace+"."+name)), nil
	}
	return uuid.Parse(text)
}

func documentColumns(cols []DocumentColumn, partition, clustering []string) []schema.Column {
	out := make([]schema.Column, 0, len(cols))
	for _, name := range partition {
		out = append(out, schema.Column{Name: name, Type: columnType(cols, name), Kind: schema.KindPartitionKey})
	}
	for _, name := range clustering {
		out = append(out, schema.Column{Name: name, Type: columnType(cols, name), Kind: schema.KindClustering})
	}

	key := make(map[string]bool, len(out))
	for _, c := range out {
		key[c.Name] = true
	}
	for _, c := range cols {
		if key[c.Name] {
			continue
		}
		kind := schema.KindRegular
		if c.Static {
			kind = schema.KindStatic
		}
		out = append(out, schema.Column{Name: c.Name, Type: c.Type, Kind: kind})
	}
	return out
}

func columnType(cols []DocumentColumn, name string) string {
	for _, c := range cols {
		if c.Name == name {
			return c.Type
		}
	}
	return ""
}

// FileCatalog serves snapshots from a YAML document. The file is read on
// every call, so edits become visible as a new generation.
type FileCatalog struct {
	path string
	log  *zap.Logger
}

// NewFileCatalog creates a catalog backed by the YAML file at path
func NewFileCatalog(path string) *FileCatalog {
	return &FileCatalog{
		path: path,
		log:  logger.Named("catalog").With(logger.Source("file")),
	}
}

func (c *FileCatalog) load() (*schema.Snapshot, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseDocument(data)
}

// KeyspaceSnapshot implements Provider
func (c *FileCatalog) KeyspaceSnapshot(ctx context.Context, keyspace string) (*schema.Snapshot, error) {
	all, err := c.load()
	if err != nil {
		return nil, err
	}

	metrics.SnapshotLoads.WithLabelValues("file").Inc()
	c.log.Debug("loaded keyspace snapshot", logger.Keyspace(keyspace), logger.Generation(all.Generation()))

	ks, ok := all.Keyspace(keyspace)
	if !ok {
		return schema.NewSnapshot(all.Generation())
	}
	return schema.NewSnapshot(all.Generation(), *ks)
}

// Keyspaces implements Provider
func (c *FileCatalog) Keyspaces(ctx context.Context) ([]string, error) {
	all, err := c.load()
	if err != nil {
		return nil, err
	}
	return all.KeyspaceNames(), nil
}

// FastStreamPolicy implements Provider
func (c *FileCatalog) FastStreamPolicy(ctx context.Context, keyspace, table string) (schema.FastStreamPolicy, error) {
	all, err := c.load()
	if err != nil {
		return schema.DefaultFastStreamPolicy, err
	}
	if ks, ok := all.Keyspace(keyspace); ok {
		if t, ok := ks.Table(table); ok {
			return t.FastStream, nil
		}
	}
	return schema.DefaultFastStreamPolicy, fmt.Errorf("%w: %s.%s", ErrTableNotFound, keyspace, table)
}

// SchemaVersion implements Provider
func (c *FileCatalog) SchemaVersion(ctx context.Context) (uuid.UUID, error) {
	all, err := c.load()
	if err != nil {
		return uuid.Nil, err
	}
	return all.Generation(), nil
}

// Snapshot returns every keyspace in the file
func (c *FileCatalog) Snapshot() (*schema.Snapshot, error) {
	return c.load()
}

func (c *FileCatalog) Close() error {
	return nil
}
