package resolve

import (
	"context"

	"github.com/depfuse/depfuse/pkg/depgraph"
)

// Resolver produces package metadata for an identifier. Implementations
// perform whatever I/O they need (registry lookups, manifest reads,
// checksum computation); the engine only ever calls them through the
// memoizing [Cache], so each identifier is resolved at most once per run.
type Resolver interface {
	Resolve(ctx context.Context, id depgraph.Identifier) (Package, error)
}

// ResolverFunc adapts a plain function to the Resolver interface.
type ResolverFunc func(ctx context.Context, id depgraph.Identifier) (Package, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, id depgraph.Identifier) (Package, error) {
	return f(ctx, id)
}
