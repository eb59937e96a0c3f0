package depgraph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// testNode is a minimal native dependency tree for exercising the builder.
type testNode struct {
	name     string
	version  string
	linkage  Linkage
	children []*testNode
	issues   []Issue
}

func dep(name, version string, children ...*testNode) *testNode {
	return &testNode{name: name, version: version, linkage: LinkageDynamic, children: children}
}

type testHandler struct{}

func (testHandler) Identifier(n *testNode) Identifier {
	return Identifier{Type: "Test", Name: n.name, Version: n.version}
}

func (testHandler) Linkage(n *testNode) Linkage { return n.linkage }

func (testHandler) Children(n *testNode) []*testNode { return n.children }

func (testHandler) Issues(n *testNode) []Issue { return n.issues }

func newTestBuilder(opts ...BuilderOption) *Builder[*testNode] {
	return NewBuilder[*testNode](testHandler{}, opts...)
}

func scope(name string) string {
	return QualifyScope(Identifier{Type: "Test", Name: "proj", Version: "1.0.0"}, name)
}

func TestAddDependencyDeduplicatesIdenticalSubtrees(t *testing.T) {
	b := newTestBuilder()
	ctx := context.Background()

	// Two projects depend on the same c@1 -> d@1 subtree.
	first := dep("c", "1", dep("d", "1"))
	second := dep("c", "1", dep("d", "1"))

	if err := b.AddDependency(ctx, scope("compile"), first); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	if err := b.AddDependency(ctx, "Test::other:2.0.0:compile", second); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}

	if got := b.NodeCount(); got != 2 {
		t.Errorf("NodeCount = %d, want 2 (shared subtree)", got)
	}

	g := b.Build()
	rootsA, _ := g.Roots(scope("compile"))
	rootsB, _ := g.Roots("Test::other:2.0.0:compile")
	if rootsA[0] != rootsB[0] {
		t.Errorf("identical subtrees got distinct roots %d and %d", rootsA[0], rootsB[0])
	}
}

func TestAddDependencyKeepsDistinctVersionsApart(t *testing.T) {
	b := newTestBuilder()
	ctx := context.Background()

	if err := b.AddDependency(ctx, scope("compile"), dep("c", "1")); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	if err := b.AddDependency(ctx, scope("compile"), dep("c", "2")); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}

	if got := b.NodeCount(); got != 2 {
		t.Errorf("NodeCount = %d, want 2", got)
	}
}

func TestSameIdentifierDifferentChildrenAreDistinctNodes(t *testing.T) {
	b := newTestBuilder()
	ctx := context.Background()

	// c@1 with child d vs c@1 with child e: same identifier, different
	// fragments.
	if err := b.AddDependency(ctx, scope("a"), dep("c", "1", dep("d", "1"))); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	if err := b.AddDependency(ctx, scope("b"), dep("c", "1", dep("e", "1"))); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}

	if got := b.NodeCount(); got != 4 {
		t.Errorf("NodeCount = %d, want 4", got)
	}

	ids := b.Identifiers()
	if len(ids) != 3 {
		t.Errorf("Identifiers = %d distinct, want 3", len(ids))
	}
}

func TestSameIdentifierDifferentChildrenWithinOneTree(t *testing.T) {
	b := newTestBuilder()
	ctx := context.Background()

	// One root lists x@1 twice, once over d and once over e. Both
	// occurrences are distinct fragments and both must survive traversal.
	root := dep("r", "1",
		dep("x", "1", dep("d", "1")),
		dep("x", "1", dep("e", "1")),
	)
	if err := b.AddDependency(ctx, scope("compile"), root); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}

	if got := b.NodeCount(); got != 5 {
		t.Fatalf("NodeCount = %d, want 5 (r, two x fragments, d, e)", got)
	}

	g := b.Build()
	roots, _ := g.Roots(scope("compile"))
	rootNode, _ := g.Node(roots[0])
	if len(rootNode.Children) != 2 {
		t.Fatalf("root children = %v, want two", rootNode.Children)
	}
	if rootNode.Children[0] == rootNode.Children[1] {
		t.Errorf("root children = %v, want distinct x fragments", rootNode.Children)
	}

	leaves := make(map[string]bool)
	for _, c := range rootNode.Children {
		x, _ := g.Node(c)
		if x.Identifier.Name != "x" || len(x.Children) != 1 {
			t.Fatalf("child %d = %v, want x with one child", c, x.Identifier)
		}
		leaf, _ := g.Node(x.Children[0])
		leaves[leaf.Identifier.Name] = true
	}
	if !leaves["d"] || !leaves["e"] {
		t.Errorf("leaves = %v, want both d and e", leaves)
	}
}

func TestSharedPointerSubtreeVisitedOnce(t *testing.T) {
	b := newTestBuilder()
	ctx := context.Background()

	// The same native node appears under both branches, as the npm
	// materializer produces for a shared install path.
	shared := dep("shared", "1")
	root := dep("r", "1", dep("a", "1", shared), dep("b", "1", shared))

	if err := b.AddDependency(ctx, scope("compile"), root); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	if got := b.NodeCount(); got != 4 {
		t.Errorf("NodeCount = %d, want 4 (shared leaf interned once)", got)
	}
}

func TestRootOrderIsPreserved(t *testing.T) {
	b := newTestBuilder()
	ctx := context.Background()

	names := []string{"zeta", "alpha", "mid"}
	for _, n := range names {
		if err := b.AddDependency(ctx, scope("compile"), dep(n, "1")); err != nil {
			t.Fatalf("AddDependency(%s): %v", n, err)
		}
	}

	g := b.Build()
	roots, ok := g.Roots(scope("compile"))
	if !ok || len(roots) != 3 {
		t.Fatalf("Roots = %v, %v", roots, ok)
	}
	for i, n := range names {
		node, _ := g.Node(roots[i])
		if node.Identifier.Name != n {
			t.Errorf("root %d = %s, want %s", i, node.Identifier.Name, n)
		}
	}
}

func TestCycleInternsBothNodesWithBackEdge(t *testing.T) {
	b := newTestBuilder()
	ctx := context.Background()

	// a@1 -> b@1 -> a@1
	a := dep("a", "1")
	bNode := dep("b", "1", a)
	a.children = []*testNode{bNode}

	if err := b.AddDependency(ctx, scope("compile"), a); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}

	if got := b.NodeCount(); got != 2 {
		t.Fatalf("NodeCount = %d, want 2", got)
	}

	g := b.Build()
	roots, _ := g.Roots(scope("compile"))
	root, _ := g.Node(roots[0])
	if root.Identifier.Name != "a" {
		t.Fatalf("root = %s, want a", root.Identifier.Name)
	}
	if len(root.Children) != 1 {
		t.Fatalf("root children = %v, want one", root.Children)
	}
	child, _ := g.Node(root.Children[0])
	if child.Identifier.Name != "b" {
		t.Fatalf("child = %s, want b", child.Identifier.Name)
	}
	if len(child.Children) != 1 || child.Children[0] != root.Index {
		t.Errorf("back-edge = %v, want [%d]", child.Children, root.Index)
	}
}

func TestSelfCycle(t *testing.T) {
	b := newTestBuilder()
	ctx := context.Background()

	a := dep("a", "1")
	a.children = []*testNode{a}

	if err := b.AddDependency(ctx, scope("compile"), a); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	g := b.Build()
	if len(g.Nodes) != 1 {
		t.Fatalf("nodes = %d, want 1", len(g.Nodes))
	}
	if len(g.Nodes[0].Children) != 1 || g.Nodes[0].Children[0] != 0 {
		t.Errorf("self edge = %v, want [0]", g.Nodes[0].Children)
	}
}

func TestAddDependencyAfterBuildFails(t *testing.T) {
	b := newTestBuilder()
	ctx := context.Background()

	if err := b.AddDependency(ctx, scope("compile"), dep("c", "1")); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	b.Build()

	err := b.AddDependency(ctx, scope("compile"), dep("d", "1"))
	if !errors.Is(err, ErrAlreadyBuilt) {
		t.Errorf("err = %v, want ErrAlreadyBuilt", err)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	b := newTestBuilder()
	if err := b.AddDependency(context.Background(), scope("compile"), dep("c", "1")); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	if g1, g2 := b.Build(), b.Build(); g1 != g2 {
		t.Error("Build returned different graphs on repeated calls")
	}
}

func TestEmptyScopeRejected(t *testing.T) {
	b := newTestBuilder()
	err := b.AddDependency(context.Background(), "", dep("c", "1"))
	if !errors.Is(err, ErrEmptyScope) {
		t.Errorf("err = %v, want ErrEmptyScope", err)
	}
}

func TestResolveFailureBecomesNodeIssue(t *testing.T) {
	resolveErr := errors.New("registry unreachable")
	b := newTestBuilder(WithResolve(func(_ context.Context, id Identifier) error {
		if id.Name == "broken" {
			return resolveErr
		}
		return nil
	}))

	root := dep("ok", "1", dep("broken", "1"))
	if err := b.AddDependency(context.Background(), scope("compile"), root); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}

	g := b.Build()
	var found bool
	for _, n := range g.Nodes {
		if n.Identifier.Name != "broken" {
			continue
		}
		for _, issue := range n.Issues {
			if issue.Severity == SeverityError && issue.Source == "resolver" {
				found = true
			}
		}
	}
	if !found {
		t.Error("resolution failure was not recorded as an error issue")
	}
}

func TestDuplicateIssuesSuppressedOnReuse(t *testing.T) {
	b := newTestBuilder()
	ctx := context.Background()

	issue := Warning("test", "deprecated upstream")
	for range 3 {
		n := dep("c", "1")
		n.issues = []Issue{issue}
		if err := b.AddDependency(ctx, scope("compile"), n); err != nil {
			t.Fatalf("AddDependency: %v", err)
		}
	}

	g := b.Build()
	if got := len(g.Nodes[0].Issues); got != 1 {
		t.Errorf("issues = %d, want 1 (exact duplicates merged)", got)
	}
}

func TestScopesForFiltersByProject(t *testing.T) {
	b := newTestBuilder()
	ctx := context.Background()
	proj := Identifier{Type: "Test", Name: "proj", Version: "1.0.0"}

	for _, sc := range []string{"compile", "runtime"} {
		if err := b.AddDependency(ctx, QualifyScope(proj, sc), dep("c", "1")); err != nil {
			t.Fatalf("AddDependency: %v", err)
		}
	}
	if err := b.AddDependency(ctx, "Test::other:9:compile", dep("c", "1")); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}

	got := b.ScopesFor(proj)
	want := []string{QualifyScope(proj, "compile"), QualifyScope(proj, "runtime")}
	if len(got) != len(want) {
		t.Fatalf("ScopesFor = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ScopesFor[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestConcurrentAddDependency(t *testing.T) {
	b := newTestBuilder()
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sc := fmt.Sprintf("Test::proj%d:1:compile", i)
			// Everyone shares the same leaf subtree.
			errs[i] = b.AddDependency(ctx, sc, dep("shared", "1", dep("leaf", "1")))
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
	}
	if got := b.NodeCount(); got != 2 {
		t.Errorf("NodeCount = %d, want 2", got)
	}
	if got := len(b.Scopes()); got != workers {
		t.Errorf("Scopes = %d, want %d", got, workers)
	}
}

func TestCancelledContextAbortsTraversal(t *testing.T) {
	b := newTestBuilder()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.AddDependency(ctx, scope("compile"), dep("c", "1"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// countingHooks records intern events.
type countingHooks struct {
	mu     sync.Mutex
	fresh  int
	reused int
}

func (h *countingHooks) OnIntern(_ Identifier, _ int, reused bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if reused {
		h.reused++
	} else {
		h.fresh++
	}
}

func TestBuilderHooksObserveInterning(t *testing.T) {
	hooks := &countingHooks{}
	b := newTestBuilder(WithHooks(hooks))
	ctx := context.Background()

	if err := b.AddDependency(ctx, scope("compile"), dep("c", "1")); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	if err := b.AddDependency(ctx, scope("compile"), dep("c", "1")); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}

	if hooks.fresh != 1 || hooks.reused != 1 {
		t.Errorf("hooks = %d fresh, %d reused; want 1, 1", hooks.fresh, hooks.reused)
	}
}

func TestBuilderHooksObserveCycleNodes(t *testing.T) {
	hooks := &countingHooks{}
	b := newTestBuilder(WithHooks(hooks))
	ctx := context.Background()

	a := dep("a", "1")
	bNode := dep("b", "1", a)
	a.children = []*testNode{bNode}

	if err := b.AddDependency(ctx, scope("compile"), a); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	if hooks.fresh != 2 || hooks.reused != 0 {
		t.Errorf("hooks = %d fresh, %d reused; want 2, 0", hooks.fresh, hooks.reused)
	}
}
