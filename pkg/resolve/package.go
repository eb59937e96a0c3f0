package resolve

import "github.com/depfuse/depfuse/pkg/depgraph"

// Artifact locates a downloadable package artifact together with its
// integrity hash.
type Artifact struct {
	URL       string `json:"url,omitempty" bson:"url,omitempty"`
	HashAlgo  string `json:"hash_algo,omitempty" bson:"hash_algo,omitempty"` // e.g. "sha512"
	HashValue string `json:"hash_value,omitempty" bson:"hash_value,omitempty"`
}

// VCSInfo describes the version control location of a package's source.
type VCSInfo struct {
	Type     string `json:"type,omitempty" bson:"type,omitempty"` // e.g. "git"
	URL      string `json:"url,omitempty" bson:"url,omitempty"`
	Revision string `json:"revision,omitempty" bson:"revision,omitempty"`
	Path     string `json:"path,omitempty" bson:"path,omitempty"` // Subpath inside the repository
}

// Package is the resolved metadata for one identifier. It is created on
// first successful resolution and immutable thereafter; downstream license,
// vulnerability and policy evaluation consumes it.
type Package struct {
	Identifier       depgraph.Identifier `json:"identifier" bson:"identifier"`
	DeclaredLicenses []string            `json:"declared_licenses,omitempty" bson:"declared_licenses,omitempty"`
	Description      string              `json:"description,omitempty" bson:"description,omitempty"`
	Authors          []string            `json:"authors,omitempty" bson:"authors,omitempty"`
	Homepage         string              `json:"homepage,omitempty" bson:"homepage,omitempty"`
	SourceArtifact   Artifact            `json:"source_artifact,omitempty" bson:"source_artifact,omitempty"`
	BinaryArtifact   Artifact            `json:"binary_artifact,omitempty" bson:"binary_artifact,omitempty"`
	VCS              VCSInfo             `json:"vcs,omitempty" bson:"vcs,omitempty"`
}
