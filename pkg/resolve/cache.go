package resolve

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/depfuse/depfuse/pkg/depgraph"
)

// Cache memoizes package-metadata resolution per identifier. It guarantees
// at-most-one execution of the underlying resolver per identifier: the
// first caller runs the resolution, concurrent callers for the same
// identifier block on the entry's latch until it completes, and every later
// caller gets the retained result. Success and definitive failure are both
// retained for the cache lifetime and never recomputed; a resolution cut
// short by context cancellation is not retained and the next caller retries.
//
// One cache instance is shared by the whole multi-project run. Caches are
// explicit, constructed values: independent runs never share state.
type Cache struct {
	resolver Resolver
	hooks    Hooks

	mu      sync.Mutex
	entries map[depgraph.Identifier]*entry
}

// entry is a latched future for one identifier's resolution.
type entry struct {
	done chan struct{}
	pkg  Package
	err  error
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithHooks attaches observability hooks for resolution events.
func WithHooks(h Hooks) CacheOption {
	return func(c *Cache) { c.hooks = h }
}

// NewCache creates a memoizing cache around the given resolver.
func NewCache(r Resolver, opts ...CacheOption) *Cache {
	c := &Cache{
		resolver: r,
		hooks:    NopHooks{},
		entries:  make(map[depgraph.Identifier]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns the package metadata for id, running the underlying
// resolver on first request and the retained result on every later one.
// Blocks until the first caller for id finishes. The context only guards
// the caller's wait and the resolver invocation it may own; a cancelled
// waiter does not disturb the in-flight resolution.
func (c *Cache) Resolve(ctx context.Context, id depgraph.Identifier) (Package, error) {
	c.mu.Lock()
	e, ok := c.entries[id]
	if ok {
		c.mu.Unlock()
		select {
		case <-e.done:
			return e.pkg, e.err
		case <-ctx.Done():
			return Package{}, ctx.Err()
		}
	}

	e = &entry{done: make(chan struct{})}
	c.entries[id] = e
	c.mu.Unlock()

	e.pkg, e.err = c.resolver.Resolve(ctx, id)
	if errors.Is(e.err, context.Canceled) || errors.Is(e.err, context.DeadlineExceeded) {
		// An abandoned attempt is not a definitive failure. Drop the entry
		// so a later caller with a live context resolves afresh.
		c.mu.Lock()
		delete(c.entries, id)
		c.mu.Unlock()
		close(e.done)
		return e.pkg, e.err
	}
	c.hooks.OnResolve(id, e.err)
	close(e.done)
	return e.pkg, e.err
}

// Warm resolves id and reports only the resolution error. It matches the
// builder's resolve trigger signature (depgraph.ResolveFunc).
func (c *Cache) Warm(ctx context.Context, id depgraph.Identifier) error {
	_, err := c.Resolve(ctx, id)
	return err
}

// Packages returns every successfully resolved package so far, sorted by
// identifier. Callable incrementally during a run and again after it.
func (c *Cache) Packages() []Package {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Package
	for _, e := range c.entries {
		select {
		case <-e.done:
		default:
			continue // still resolving
		}
		if e.err == nil {
			out = append(out, e.pkg)
		}
	}
	slices.SortFunc(out, func(a, b Package) int {
		return a.Identifier.Compare(b.Identifier)
	})
	return out
}

// Failed returns the identifiers whose resolution definitively failed,
// sorted. Failures surface as node issues during traversal; this accessor
// exists so reports can list unresolved packages explicitly rather than
// silently dropping them.
func (c *Cache) Failed() []depgraph.Identifier {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []depgraph.Identifier
	for id, e := range c.entries {
		select {
		case <-e.done:
		default:
			continue
		}
		if e.err != nil {
			out = append(out, id)
		}
	}
	slices.SortFunc(out, depgraph.Identifier.Compare)
	return out
}

// Hooks receives resolution events. Implementations must be safe for
// concurrent use.
type Hooks interface {
	// OnResolve is called once per identifier after its single resolution
	// completed, with the resolution error if it failed.
	OnResolve(id depgraph.Identifier, err error)
}

// NopHooks is the default no-op implementation.
type NopHooks struct{}

// OnResolve does nothing.
func (NopHooks) OnResolve(depgraph.Identifier, error) {}

var _ Hooks = NopHooks{}
