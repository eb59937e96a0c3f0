package depgraph

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Identifier is the stable natural key for a package release across all
// ecosystems. Two nodes with equal identifiers may still be structurally
// different subtrees; see the fragment fingerprint in the node table.
type Identifier struct {
	Type      string `json:"type" bson:"type"`           // Ecosystem type (e.g., "Go", "NPM", "Maven")
	Namespace string `json:"namespace" bson:"namespace"` // Group/scope (e.g., Maven groupId, npm @scope)
	Name      string `json:"name" bson:"name"`
	Version   string `json:"version" bson:"version"`
}

// NewIdentifier creates an Identifier from its four components.
func NewIdentifier(ecoType, namespace, name, version string) Identifier {
	return Identifier{Type: ecoType, Namespace: namespace, Name: name, Version: version}
}

// ParseIdentifier parses the "type:namespace:name:version" form produced
// by [Identifier.String]. Missing trailing components are left empty.
func ParseIdentifier(s string) Identifier {
	parts := strings.SplitN(s, ":", 4)
	var id Identifier
	switch len(parts) {
	case 4:
		id.Version = parts[3]
		fallthrough
	case 3:
		id.Name = parts[2]
		fallthrough
	case 2:
		id.Namespace = parts[1]
		fallthrough
	case 1:
		id.Type = parts[0]
	}
	return id
}

// String renders the identifier as "type:namespace:name:version".
// An empty namespace keeps its colon so the form stays parseable.
func (id Identifier) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", id.Type, id.Namespace, id.Name, id.Version)
}

// IsEmpty reports whether all components are empty.
func (id Identifier) IsEmpty() bool {
	return id == Identifier{}
}

// Coordinates returns the identifier without its version, for display and
// for grouping different versions of the same package.
func (id Identifier) Coordinates() string {
	return fmt.Sprintf("%s:%s:%s", id.Type, id.Namespace, id.Name)
}

// Compare orders identifiers by type, namespace and name, then by version.
// Versions that both parse as semantic versions are compared semantically,
// so "1.10.0" sorts after "1.9.0"; anything else falls back to a lexical
// comparison. Returns -1, 0 or 1.
func (id Identifier) Compare(other Identifier) int {
	if c := strings.Compare(id.Type, other.Type); c != 0 {
		return c
	}
	if c := strings.Compare(id.Namespace, other.Namespace); c != 0 {
		return c
	}
	if c := strings.Compare(id.Name, other.Name); c != 0 {
		return c
	}
	return compareVersions(id.Version, other.Version)
}

func compareVersions(a, b string) int {
	if a == b {
		return 0
	}
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return strings.Compare(a, b)
}
