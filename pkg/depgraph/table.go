package depgraph

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// tableNode is the mutable, table-owned form of a graph node. Nodes are
// referenced by index everywhere else and never copied out until Build.
type tableNode struct {
	index    int
	id       Identifier
	linkage  Linkage
	children []int
	issues   []Issue
}

// nodeTable is the deduplicating store of graph nodes. A node's identity is
// its fragment: identifier, linkage and the ordered indices of its children.
// Children must therefore be interned bottom-up before their parent.
//
// The table is the single shared-mutation point of the engine. All access
// goes through one mutex; intern is a hash lookup plus at most one append,
// so a table-wide lock is cheap even under parallel project traversals.
type nodeTable struct {
	mu    sync.Mutex
	nodes []*tableNode
	byKey map[string]int
}

func newNodeTable() *nodeTable {
	return &nodeTable{byKey: make(map[string]int)}
}

// fragmentKey builds the structural fingerprint of a node.
func fragmentKey(id Identifier, linkage Linkage, children []int) string {
	var sb strings.Builder
	sb.WriteString(id.String())
	sb.WriteByte('|')
	sb.WriteString(linkage.String())
	sb.WriteByte('|')
	for i, c := range children {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(c))
	}
	return sb.String()
}

// intern returns the index of the node with the given fragment, inserting a
// new node if no structurally identical one exists. The check-and-insert is
// a single atomic unit: no two callers can insert two nodes for the same
// fragment. Issue lists are merged on reuse, suppressing exact duplicates
// so the same issue reached through different paths is recorded once.
//
// Indices are stable: once returned for a fragment, an index never changes
// and is never reused.
func (t *nodeTable) intern(id Identifier, linkage Linkage, children []int, issues []Issue) int {
	key := fragmentKey(id, linkage, children)

	t.mu.Lock()
	defer t.mu.Unlock()

	if idx, ok := t.byKey[key]; ok {
		t.nodes[idx].issues = mergeIssues(t.nodes[idx].issues, issues)
		return idx
	}
	return t.insertLocked(key, id, linkage, children, issues)
}

// internUnique inserts a node without consulting the fragment index. Nodes
// that carry a cycle back-edge are context-dependent: their child list is
// patched after the enclosing ancestor is interned, so they can never be
// shared between occurrences.
func (t *nodeTable) internUnique(id Identifier, linkage Linkage, children []int, issues []Issue) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := fmt.Sprintf("!cycle:%d", len(t.nodes))
	return t.insertLocked(key, id, linkage, children, issues)
}

func (t *nodeTable) insertLocked(key string, id Identifier, linkage Linkage, children []int, issues []Issue) int {
	n := &tableNode{
		index:    len(t.nodes),
		id:       id,
		linkage:  linkage,
		children: append([]int(nil), children...),
		issues:   append([]Issue(nil), issues...),
	}
	t.nodes = append(t.nodes, n)
	t.byKey[key] = n.index
	return n.index
}

// appendChild patches a back-edge onto an already interned node. Only valid
// for nodes inserted with internUnique.
func (t *nodeTable) appendChild(idx, child int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes[idx].children = append(t.nodes[idx].children, child)
}

// addIssues merges issues onto an existing node, suppressing exact duplicates.
func (t *nodeTable) addIssues(idx int, issues []Issue) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes[idx].issues = mergeIssues(t.nodes[idx].issues, issues)
}

// len returns the current node count.
func (t *nodeTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.nodes)
}

// snapshot copies the table into immutable export nodes.
func (t *nodeTable) snapshot() []Node {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Node, len(t.nodes))
	for i, n := range t.nodes {
		out[i] = Node{
			Index:      n.index,
			Identifier: n.id,
			Linkage:    n.linkage,
			Issues:     append([]Issue(nil), n.issues...),
			Children:   append([]int(nil), n.children...),
		}
	}
	return out
}

// identifiers returns the distinct identifiers present in the table.
func (t *nodeTable) identifiers() []Identifier {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[Identifier]struct{}, len(t.nodes))
	var out []Identifier
	for _, n := range t.nodes {
		if _, ok := seen[n.id]; ok {
			continue
		}
		seen[n.id] = struct{}{}
		out = append(out, n.id)
	}
	return out
}

func mergeIssues(existing, incoming []Issue) []Issue {
	for _, in := range incoming {
		dup := false
		for _, have := range existing {
			if have.Equal(in) {
				dup = true
				break
			}
		}
		if !dup {
			existing = append(existing, in)
		}
	}
	return existing
}
