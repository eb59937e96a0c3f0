package depgraph

import "fmt"

// Linkage describes how a dependency is attached to its parent. The same
// package linked differently in different contexts produces distinct graph
// nodes, so linkage is part of a node's structural identity.
type Linkage int

const (
	// LinkageDynamic is an external dependency resolved at run time.
	// This is the default for most ecosystems.
	LinkageDynamic Linkage = iota
	// LinkageStatic is an external dependency compiled or bundled in.
	LinkageStatic
	// LinkageProjectDynamic is a dynamic reference to another project
	// inside the same analyzed source tree.
	LinkageProjectDynamic
	// LinkageProjectStatic is a static reference to another project
	// inside the same analyzed source tree.
	LinkageProjectStatic
)

var linkageNames = map[Linkage]string{
	LinkageDynamic:        "dynamic",
	LinkageStatic:         "static",
	LinkageProjectDynamic: "project-dynamic",
	LinkageProjectStatic:  "project-static",
}

var linkageValues = map[string]Linkage{
	"dynamic":         LinkageDynamic,
	"static":          LinkageStatic,
	"project-dynamic": LinkageProjectDynamic,
	"project-static":  LinkageProjectStatic,
}

// IsProject reports whether the linkage points at another project in the
// same source tree rather than an external package.
func (l Linkage) IsProject() bool {
	return l == LinkageProjectDynamic || l == LinkageProjectStatic
}

// String returns the serialized name of the linkage.
func (l Linkage) String() string {
	if s, ok := linkageNames[l]; ok {
		return s
	}
	return fmt.Sprintf("linkage(%d)", int(l))
}

// ParseLinkage converts a serialized linkage name back to its value.
func ParseLinkage(s string) (Linkage, error) {
	if l, ok := linkageValues[s]; ok {
		return l, nil
	}
	return 0, fmt.Errorf("unknown linkage %q", s)
}

// MarshalText implements encoding.TextMarshaler so linkages serialize as
// their names in JSON and BSON documents.
func (l Linkage) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Linkage) UnmarshalText(text []byte) error {
	v, err := ParseLinkage(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
