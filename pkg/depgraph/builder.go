package depgraph

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	// ErrAlreadyBuilt is returned by [Builder.AddDependency] after
	// [Builder.Build] has been called. The builder is single-use per
	// analysis run; the frozen graph is never mutated.
	ErrAlreadyBuilt = errors.New("builder is already built")

	// ErrEmptyScope is returned by [Builder.AddDependency] when the
	// qualified scope name is empty.
	ErrEmptyScope = errors.New("qualified scope name must not be empty")
)

// ResolveFunc triggers package-metadata resolution for an identifier,
// returning the resolution error if it definitively failed. The builder
// converts failures into node issues; it never aborts traversal on them.
// Implementations are expected to memoize (see the resolve package) so the
// builder can call it for every newly interned identifier.
type ResolveFunc func(ctx context.Context, id Identifier) error

// BuilderOption configures a [Builder].
type BuilderOption func(*builderConfig)

type builderConfig struct {
	resolve ResolveFunc
	hooks   BuilderHooks
}

// WithResolve attaches a resolution trigger that is invoked once per node
// occurrence during traversal. Pair it with the memoizing cache from the
// resolve package so each identifier is resolved at most once.
func WithResolve(fn ResolveFunc) BuilderOption {
	return func(c *builderConfig) { c.resolve = fn }
}

// WithHooks attaches observability hooks for intern events.
func WithHooks(h BuilderHooks) BuilderOption {
	return func(c *builderConfig) { c.hooks = h }
}

// Builder constructs a deduplicated dependency graph from native dependency
// trees. One builder instance is shared by all concurrent project
// traversals of an ecosystem for a whole multi-project run.
//
// The builder moves through two states: accumulating (AddDependency allowed)
// and built (terminal, reached by Build). There is no way back.
type Builder[N any] struct {
	handler DependencyHandler[N]
	resolve ResolveFunc
	hooks   BuilderHooks

	table *nodeTable

	mu         sync.Mutex
	scopes     map[string][]int
	scopeOrder []string
	built      *Graph
}

// NewBuilder creates a builder for the native node type handled by h.
func NewBuilder[N any](h DependencyHandler[N], opts ...BuilderOption) *Builder[N] {
	cfg := builderConfig{hooks: NopBuilderHooks{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Builder[N]{
		handler: h,
		resolve: cfg.resolve,
		hooks:   cfg.hooks,
		table:   newNodeTable(),
		scopes:  make(map[string][]int),
	}
}

// QualifyScope combines a project identifier with a scope name into the
// globally unique qualified scope name used by the builder.
func QualifyScope(project Identifier, scope string) string {
	return project.String() + ":" + scope
}

// AddDependency walks the native subtree rooted at root in post-order,
// interning each visited node bottom-up, and appends the resulting
// top-level node index to the qualified scope's root list (creating the
// scope on first use). Call it once per direct dependency of a scope, in
// declaration order; root indices preserve that order.
//
// Cyclic native graphs do not recurse unboundedly: a node revisited within
// one call reuses its already interned index, and a back-edge to a node
// still being processed is recorded once the target has been interned.
//
// Returns ErrAlreadyBuilt after Build, or the context error if the
// traversal was cancelled. Already interned state from a cancelled call
// stays valid.
func (b *Builder[N]) AddDependency(ctx context.Context, qualifiedScope string, root N) error {
	if qualifiedScope == "" {
		return ErrEmptyScope
	}
	if b.isBuilt() {
		return ErrAlreadyBuilt
	}

	tr := &traversal[N]{
		b:       b,
		memo:    make(map[any]int),
		onPath:  make(map[any]bool),
		pending: make(map[any][]int),
	}
	idx, backref, err := tr.visit(ctx, root)
	if err != nil {
		return err
	}
	if backref != nil {
		// Cannot happen for a fresh traversal: the root is never on the path.
		return fmt.Errorf("root node resolved to a back-reference %v", backref)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.built != nil {
		return ErrAlreadyBuilt
	}
	if _, ok := b.scopes[qualifiedScope]; !ok {
		b.scopeOrder = append(b.scopeOrder, qualifiedScope)
	}
	b.scopes[qualifiedScope] = append(b.scopes[qualifiedScope], idx)
	return nil
}

// Scopes returns all qualified scope names in first-use order.
func (b *Builder[N]) Scopes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.scopeOrder...)
}

// ScopesFor returns the qualified scope names belonging to the given
// project, in first-use order. Usable while still accumulating.
func (b *Builder[N]) ScopesFor(project Identifier) []string {
	prefix := project.String() + ":"
	var out []string
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, name := range b.scopeOrder {
		if len(name) > len(prefix) && name[:len(prefix)] == prefix {
			out = append(out, name)
		}
	}
	return out
}

// Identifiers returns the distinct package identifiers interned so far.
// Callable incrementally; plugins use it to detect newly discovered
// packages for issue attribution.
func (b *Builder[N]) Identifiers() []Identifier {
	return b.table.identifiers()
}

// NodeCount returns the number of distinct fragments interned so far.
func (b *Builder[N]) NodeCount() int {
	return b.table.len()
}

// Build freezes the node table and scope map into an immutable Graph.
// After Build, AddDependency fails with ErrAlreadyBuilt. Calling Build
// again returns the same graph.
func (b *Builder[N]) Build() *Graph {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.built != nil {
		return b.built
	}
	scopes := make(map[string][]int, len(b.scopes))
	for name, roots := range b.scopes {
		scopes[name] = append([]int(nil), roots...)
	}
	b.built = &Graph{
		Nodes:  b.table.snapshot(),
		Scopes: scopes,
	}
	return b.built
}

func (b *Builder[N]) isBuilt() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.built != nil
}

// traversal holds the per-AddDependency state: the memo of completed nodes,
// the set of native nodes on the current DFS path, and back-edge patches
// waiting for their target to be interned. It is confined to one goroutine;
// only the node table is shared.
type traversal[N any] struct {
	b       *Builder[N]
	memo    map[any]int   // node key -> interned index, completed this call
	onPath  map[any]bool  // node keys on the current DFS path
	pending map[any][]int // node key -> node indices awaiting a back-edge patch
}

// key returns node's identity within one traversal call. Comparable node
// values key by the node itself, so two occurrences of the same identifier
// with different child sets stay distinct fragments (both shipped
// ecosystems use pointer nodes, where this is object identity).
// Non-comparable node types fall back to identifier and linkage.
func (t *traversal[N]) key(node N, id Identifier, linkage Linkage) any {
	if v := reflect.ValueOf(node); v.IsValid() && v.Comparable() {
		return node
	}
	return id.String() + "|" + linkage.String()
}

// visit interns the subtree rooted at node and returns its index. When node
// is an on-path ancestor, it returns (0, backref) instead: the caller drops
// the child for now and the edge is patched in once the ancestor exists.
func (t *traversal[N]) visit(ctx context.Context, node N) (int, any, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	id := t.b.handler.Identifier(node)
	linkage := t.b.handler.Linkage(node)
	identity := t.key(node, id, linkage)

	if t.onPath[identity] {
		return 0, identity, nil
	}
	if idx, ok := t.memo[identity]; ok {
		return idx, nil, nil
	}

	t.onPath[identity] = true
	defer delete(t.onPath, identity)

	var children []int
	var deferred []any
	for _, child := range t.b.handler.Children(node) {
		cidx, backref, err := t.visit(ctx, child)
		if err != nil {
			return 0, nil, err
		}
		if backref != nil {
			deferred = append(deferred, backref)
			continue
		}
		children = append(children, cidx)
	}

	issues := append([]Issue(nil), t.b.handler.Issues(node)...)
	if t.b.resolve != nil {
		if err := t.b.resolve(ctx, id); err != nil {
			issues = append(issues, Error("resolver", "could not resolve metadata for %s: %v", id, err))
		}
	}

	var idx int
	if len(deferred) > 0 {
		// The child list is incomplete until the cycle target is interned,
		// so this fragment must never be shared.
		idx = t.b.table.internUnique(id, linkage, children, issues)
		t.b.hooks.OnIntern(id, idx, false)
		for _, target := range deferred {
			t.pending[target] = append(t.pending[target], idx)
		}
	} else {
		before := t.b.table.len()
		idx = t.b.table.intern(id, linkage, children, issues)
		t.b.hooks.OnIntern(id, idx, idx < before)
	}

	t.memo[identity] = idx
	for _, waiting := range t.pending[identity] {
		t.b.table.appendChild(waiting, idx)
	}
	delete(t.pending, identity)

	return idx, nil, nil
}
