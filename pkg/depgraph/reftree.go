package depgraph

import "fmt"

// PackageReference is one node of the reconstructed per-project reference
// tree used for reporting. It is produced lazily from the immutable graph;
// reconstruction is pure and can be repeated.
type PackageReference struct {
	Identifier   Identifier          `json:"identifier" bson:"identifier"`
	Linkage      Linkage             `json:"linkage" bson:"linkage"`
	Issues       []Issue             `json:"issues,omitempty" bson:"issues,omitempty"`
	Dependencies []*PackageReference `json:"dependencies,omitempty" bson:"dependencies,omitempty"`

	// Cycle marks a back-reference: the same node already occurred on the
	// path from the root. A cycle reference carries no dependencies.
	Cycle bool `json:"cycle,omitempty" bson:"cycle,omitempty"`
}

// ReferenceTreeFor reconstructs the nested reference structure rooted at a
// scope's root nodes, expanding children on demand. A node index repeated
// within one root-to-leaf path stops expanding and is represented as a
// back-reference marker, so reconstruction terminates on cyclic graphs.
func (g *Graph) ReferenceTreeFor(scope string) ([]*PackageReference, error) {
	roots, ok := g.Scopes[scope]
	if !ok {
		return nil, fmt.Errorf("unknown scope %q", scope)
	}

	out := make([]*PackageReference, 0, len(roots))
	onPath := make(map[int]bool)
	for _, r := range roots {
		ref, err := g.expand(r, onPath)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}

func (g *Graph) expand(idx int, onPath map[int]bool) (*PackageReference, error) {
	n, ok := g.Node(idx)
	if !ok {
		return nil, fmt.Errorf("missing node %d", idx)
	}

	ref := &PackageReference{
		Identifier: n.Identifier,
		Linkage:    n.Linkage,
		Issues:     n.Issues,
	}
	if onPath[idx] {
		ref.Cycle = true
		return ref, nil
	}

	onPath[idx] = true
	defer delete(onPath, idx)

	for _, c := range n.Children {
		child, err := g.expand(c, onPath)
		if err != nil {
			return nil, err
		}
		ref.Dependencies = append(ref.Dependencies, child)
	}
	return ref, nil
}
