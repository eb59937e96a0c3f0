package depgraph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
)

// =============================================================================
// Graph - Immutable Build Output
// =============================================================================

// Graph is the immutable output of [Builder.Build]: the deduplicated node
// table plus the mapping from qualified scope name to root node indices.
// It is shared read-only with all consumers and round-trips through JSON
// and BSON without references back to any native ecosystem type.
type Graph struct {
	Nodes  []Node           `json:"nodes" bson:"nodes"`
	Scopes map[string][]int `json:"scopes" bson:"scopes"`
}

// Node is one deduplicated graph node. Children reference nodes by index;
// indices are stable and never renumbered.
type Node struct {
	Index      int        `json:"index" bson:"index"`
	Identifier Identifier `json:"identifier" bson:"identifier"`
	Linkage    Linkage    `json:"linkage" bson:"linkage"`
	Issues     []Issue    `json:"issues,omitempty" bson:"issues,omitempty"`
	Children   []int      `json:"children,omitempty" bson:"children,omitempty"`
}

// Node returns the node at index i.
func (g *Graph) Node(i int) (Node, bool) {
	if i < 0 || i >= len(g.Nodes) {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// Roots returns the root node indices of the qualified scope in their
// original declaration order.
func (g *Graph) Roots(scope string) ([]int, bool) {
	roots, ok := g.Scopes[scope]
	return roots, ok
}

// ScopeNames returns all qualified scope names in sorted order.
func (g *Graph) ScopeNames() []string {
	names := make([]string, 0, len(g.Scopes))
	for name := range g.Scopes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Issues collects every issue recorded on any node, tagged with the node's
// identifier via the issue source ordering of the table.
func (g *Graph) Issues() []Issue {
	var out []Issue
	for _, n := range g.Nodes {
		out = append(out, n.Issues...)
	}
	return out
}

// Validate checks internal consistency: every child index and every scope
// root must reference an existing node, and node indices must match their
// positions. Useful after deserialization from untrusted input.
func (g *Graph) Validate() error {
	for i, n := range g.Nodes {
		if n.Index != i {
			return fmt.Errorf("node at position %d has index %d", i, n.Index)
		}
		for _, c := range n.Children {
			if c < 0 || c >= len(g.Nodes) {
				return fmt.Errorf("node %d references missing child %d", i, c)
			}
		}
	}
	for name, roots := range g.Scopes {
		for _, r := range roots {
			if r < 0 || r >= len(g.Nodes) {
				return fmt.Errorf("scope %q references missing root %d", name, r)
			}
		}
	}
	return nil
}

// =============================================================================
// Graph Serialization API
// =============================================================================

// MarshalGraph converts a graph to indented JSON bytes.
// Output is deterministic: nodes are index-ordered and scope keys sort.
func MarshalGraph(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteGraph(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraph writes a graph as JSON to w.
func WriteGraph(g *Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteGraphFile writes a graph to a JSON file with 0644 permissions.
func WriteGraphFile(g *Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteGraph(g, f)
}

// ReadGraph decodes a JSON graph from r and validates it.
func ReadGraph(r io.Reader) (*Graph, error) {
	var g Graph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if g.Scopes == nil {
		g.Scopes = make(map[string][]int)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// ReadGraphFile reads a JSON file and returns the decoded graph.
func ReadGraphFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadGraph(f)
}

// UnmarshalGraph deserializes JSON bytes into a graph.
func UnmarshalGraph(data []byte) (*Graph, error) {
	return ReadGraph(bytes.NewReader(data))
}
