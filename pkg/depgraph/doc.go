// Package depgraph builds a single, deduplicated dependency graph from the
// heterogeneous native dependency trees that ecosystem plugins produce.
//
// Projects in a large source tree frequently share identical dependency
// subtrees. The builder walks each native tree once per scope, interns
// every node in a fragment-keyed table (identifier + linkage + ordered
// child indices), and records scope roots. Structurally identical subtrees
// are stored once no matter how many projects reference them, while
// occurrences of the same package with different child sets remain
// distinct nodes.
//
// # Usage
//
// An ecosystem plugin adapts its native node type through a
// [DependencyHandler] and feeds one shared [Builder]:
//
//	b := depgraph.NewBuilder[*mytree.Node](handler,
//	    depgraph.WithResolve(cache.Warm))
//
//	scope := depgraph.QualifyScope(projectID, "compile")
//	for _, dep := range tree.Direct {
//	    if err := b.AddDependency(ctx, scope, dep); err != nil {
//	        return err
//	    }
//	}
//
//	g := b.Build()
//	refs, _ := g.ReferenceTreeFor(scope)
//
// The builder is safe for concurrent AddDependency calls from parallel
// project traversals; the node table is the single shared-mutation point.
// After Build the graph is immutable and AddDependency fails with
// [ErrAlreadyBuilt].
package depgraph
