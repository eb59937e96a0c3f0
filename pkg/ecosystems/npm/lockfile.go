package npm

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/depfuse/depfuse/pkg/errors"
)

// lockFile is the package-lock.json v2/v3 shape, reduced to the fields
// dependency analysis needs. The "packages" map is keyed by install path
// ("" for the root project, "node_modules/x", nested
// "node_modules/x/node_modules/y" for conflicting versions).
type lockFile struct {
	Name            string               `json:"name"`
	Version         string               `json:"version"`
	LockfileVersion int                  `json:"lockfileVersion"`
	Packages        map[string]lockEntry `json:"packages"`
}

type lockEntry struct {
	Name                 string            `json:"name"` // set for the root and for links
	Version              string            `json:"version"`
	Resolved             string            `json:"resolved"`
	Integrity            string            `json:"integrity"`
	License              string            `json:"license"`
	Dev                  bool              `json:"dev"`
	Optional             bool              `json:"optional"`
	Link                 bool              `json:"link"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
}

// LockPackage is the native dependency node for the npm ecosystem. The
// node graph mirrors the installed tree and may legitimately contain
// cycles (circular dev dependencies); the builder handles those.
type LockPackage struct {
	Name      string
	Version   string
	Resolved  string
	Integrity string
	License   string
	Dev       bool
	Optional  bool
	Link      bool
	Deps      []*LockPackage
}

// lockTree is the materialized native graph of one lockfile.
type lockTree struct {
	name    string
	version string
	// direct and dev are the root's dependency scopes in declaration order.
	direct []*LockPackage
	dev    []*LockPackage
}

// parseLockFile reads a package-lock.json and materializes its installed
// tree into native nodes. Dependency names resolve against the nearest
// enclosing node_modules directory, mirroring npm's loading rule, so
// conflicting nested versions become distinct nodes.
func parseLockFile(path string) (*lockTree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var lf lockFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if lf.Packages == nil {
		return nil, fmt.Errorf("%s: lockfile version %d has no packages map (npm v7+ required)",
			path, lf.LockfileVersion)
	}

	m := &materializer{entries: lf.Packages, nodes: make(map[string]*LockPackage)}

	root, ok := lf.Packages[""]
	if !ok {
		return nil, fmt.Errorf("%s: lockfile has no root entry", path)
	}

	tree := &lockTree{name: lf.Name, version: lf.Version}
	if tree.name == "" {
		tree.name = root.Name
	}
	if tree.version == "" {
		tree.version = root.Version
	}

	for _, name := range sortedKeys(root.Dependencies) {
		if n := m.materialize("", name); n != nil {
			tree.direct = append(tree.direct, n)
		}
	}
	for _, name := range sortedKeys(root.OptionalDependencies) {
		if n := m.materialize("", name); n != nil {
			tree.direct = append(tree.direct, n)
		}
	}
	for _, name := range sortedKeys(root.DevDependencies) {
		if n := m.materialize("", name); n != nil {
			tree.dev = append(tree.dev, n)
		}
	}

	return tree, nil
}

type materializer struct {
	entries map[string]lockEntry
	nodes   map[string]*LockPackage // install path -> node
}

// materialize returns the node for dependency name required from the
// package installed at fromPath, creating it and its subtree on first use.
// Shared install paths produce shared nodes, so diamonds and cycles in the
// lockfile become diamonds and cycles in the native graph.
func (m *materializer) materialize(fromPath, name string) *LockPackage {
	// A name that fails validation cannot map to a real install path;
	// treat it like a missing entry.
	if errors.ValidateNpmPackageName(name) != nil {
		return nil
	}
	key, entry, ok := m.lookup(fromPath, name)
	if !ok {
		return nil
	}

	if n, ok := m.nodes[key]; ok {
		return n
	}

	n := &LockPackage{
		Name:      name,
		Version:   entry.Version,
		Resolved:  entry.Resolved,
		Integrity: entry.Integrity,
		License:   entry.License,
		Dev:       entry.Dev,
		Optional:  entry.Optional,
		Link:      entry.Link,
	}
	// Register before descending: a cycle back to this package must find
	// the same node, not recurse.
	m.nodes[key] = n

	for _, dep := range sortedKeys(entry.Dependencies) {
		if child := m.materialize(key, dep); child != nil {
			n.Deps = append(n.Deps, child)
		}
	}
	for _, dep := range sortedKeys(entry.OptionalDependencies) {
		if child := m.materialize(key, dep); child != nil {
			n.Deps = append(n.Deps, child)
		}
	}

	return n
}

// lookup finds the install path serving dependency name for the package at
// fromPath: first the deepest nested node_modules, then each enclosing one
// up to the top level.
func (m *materializer) lookup(fromPath, name string) (string, lockEntry, bool) {
	search := fromPath
	for {
		var key string
		if search == "" {
			key = "node_modules/" + name
		} else {
			key = search + "/node_modules/" + name
		}
		if entry, ok := m.entries[key]; ok {
			return key, entry, true
		}
		if search == "" {
			return "", lockEntry{}, false
		}
		idx := strings.LastIndex(search, "/node_modules/")
		if idx < 0 {
			search = ""
		} else {
			search = search[:idx]
		}
	}
}

func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// JSON maps lose declaration order; sorted order keeps scope root
	// lists deterministic across runs.
	slices.Sort(keys)
	return keys
}
