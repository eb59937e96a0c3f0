package resolve

import (
	"context"
	"encoding/json"
	"time"

	"github.com/depfuse/depfuse/pkg/cache"
	"github.com/depfuse/depfuse/pkg/depgraph"
)

// DefaultTTL is how long persisted package metadata stays valid.
const DefaultTTL = 24 * time.Hour

// CachingResolver persists resolved package metadata through a byte cache
// so repeated runs skip the metadata I/O entirely. It wraps an inner
// resolver; the in-memory memoization per run is still the job of [Cache].
//
// Only successful resolutions are persisted. Failures are re-attempted on
// the next run; within one run the memoizing cache retains them.
type CachingResolver struct {
	inner Resolver
	store cache.Cache
	keyer cache.Keyer
	ttl   time.Duration
	hooks CacheHooks
}

// CachingOption configures a CachingResolver.
type CachingOption func(*CachingResolver)

// WithTTL overrides the persistence TTL.
func WithTTL(ttl time.Duration) CachingOption {
	return func(r *CachingResolver) { r.ttl = ttl }
}

// WithKeyer overrides the cache key scheme.
func WithKeyer(k cache.Keyer) CachingOption {
	return func(r *CachingResolver) { r.keyer = k }
}

// WithCacheHooks attaches observability hooks for hit/miss events.
func WithCacheHooks(h CacheHooks) CachingOption {
	return func(r *CachingResolver) { r.hooks = h }
}

// NewCachingResolver wraps inner with persistence through store.
func NewCachingResolver(inner Resolver, store cache.Cache, opts ...CachingOption) *CachingResolver {
	r := &CachingResolver{
		inner: inner,
		store: store,
		keyer: cache.NewDefaultKeyer(),
		ttl:   DefaultTTL,
		hooks: NopCacheHooks{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns persisted metadata when present, otherwise resolves
// through the inner resolver and persists the result. Cache read and write
// failures degrade to a plain resolution; they are never fatal.
func (r *CachingResolver) Resolve(ctx context.Context, id depgraph.Identifier) (Package, error) {
	key := r.keyer.PackageKey(id.Type, id.String())

	if data, ok, err := r.store.Get(ctx, key); err == nil && ok {
		var pkg Package
		if err := json.Unmarshal(data, &pkg); err == nil {
			r.hooks.OnCacheHit(id)
			return pkg, nil
		}
		// Corrupt entry: drop it and resolve fresh.
		_ = r.store.Delete(ctx, key)
	}
	r.hooks.OnCacheMiss(id)

	pkg, err := r.inner.Resolve(ctx, id)
	if err != nil {
		return Package{}, err
	}

	if data, err := json.Marshal(pkg); err == nil {
		_ = r.store.Set(ctx, key, data, r.ttl)
	}
	return pkg, nil
}

// CacheHooks receives persistence-cache events.
type CacheHooks interface {
	// OnCacheHit records a persisted-metadata hit.
	OnCacheHit(id depgraph.Identifier)

	// OnCacheMiss records a persisted-metadata miss.
	OnCacheMiss(id depgraph.Identifier)
}

// NopCacheHooks is the default no-op implementation.
type NopCacheHooks struct{}

// OnCacheHit does nothing.
func (NopCacheHooks) OnCacheHit(depgraph.Identifier) {}

// OnCacheMiss does nothing.
func (NopCacheHooks) OnCacheMiss(depgraph.Identifier) {}

var _ CacheHooks = NopCacheHooks{}
