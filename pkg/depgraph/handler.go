package depgraph

// DependencyHandler adapts one ecosystem's native dependency-tree node type
// to the generic builder. The native type N stays fully opaque to the
// engine; the four accessors are the only contract.
//
// All four methods must be pure with respect to the builder: no I/O and no
// mutation of the node. Expensive metadata lookups belong behind the
// resolution cache, not in tree traversal.
type DependencyHandler[N any] interface {
	// Identifier returns the package identifier for the node.
	Identifier(node N) Identifier
	// Linkage returns how the node is attached to its parent.
	Linkage(node N) Linkage
	// Children returns the node's direct dependencies in declaration order.
	Children(node N) []N
	// Issues returns diagnostics discovered while inspecting the node,
	// in the order they were found.
	Issues(node N) []Issue
}
