package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/tordrt/cfelect/internal/logger"
	"github.com/tordrt/cfelect/internal/metrics"
	"github.com/tordrt/cfelect/internal/schema"
)

// CachedProvider keeps recently read snapshots keyed by keyspace and schema
// version. A snapshot is only served while the catalog still reports the
// version it was read at, so a schema change is visible on the next call.
// Catalogs that report no version are never cached.
type CachedProvider struct {
	inner Provider
	c     *gocache.Cache
	log   *zap.Logger
}

// NewCachedProvider wraps inner, expiring entries after ttl
func NewCachedProvider(inner Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		c:     gocache.New(ttl, 2*ttl),
		log:   logger.Named("catalog").With(logger.Source("cache")),
	}
}

func cacheKey(keyspace string, version uuid.UUID) string {
	return version.String() + "/" + keyspace
}

// KeyspaceSnapshot implements Provider
func (p *CachedProvider) KeyspaceSnapshot(ctx context.Context, keyspace string) (*schema.Snapshot, error) {
	version, err := p.inner.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	if version != uuid.Nil {
		if v, ok := p.c.Get(cacheKey(keyspace, version)); ok {
			metrics.SnapshotLoads.WithLabelValues("cache").Inc()
			return v.(*schema.Snapshot), nil
		}
	}

	snap, err := p.inner.KeyspaceSnapshot(ctx, keyspace)
	if err != nil {
		return nil, err
	}
	// keyed by the generation actually read, which may be newer than version
	if snap.Generation() != uuid.Nil {
		p.c.SetDefault(cacheKey(keyspace, snap.Generation()), snap)
		p.log.Debug("cached keyspace snapshot", logger.Keyspace(keyspace), logger.Generation(snap.Generation()))
	}
	return snap, nil
}

// Keyspaces implements Provider
func (p *CachedProvider) Keyspaces(ctx context.Context) ([]string, error) {
	return p.inner.Keyspaces(ctx)
}

// FastStreamPolicy implements Provider. It always asks the catalog.
func (p *CachedProvider) FastStreamPolicy(ctx context.Context, keyspace, table string) (schema.FastStreamPolicy, error) {
	return p.inner.FastStreamPolicy(ctx, keyspace, table)
}

// SchemaVersion implements Provider
func (p *CachedProvider) SchemaVersion(ctx context.Context) (uuid.UUID, error) {
	return p.inner.SchemaVersion(ctx)
}

// Close flushes the cache and closes the wrapped provider
func (p *CachedProvider) Close() error {
	p.c.Flush()
	return p.inner.Close()
}
