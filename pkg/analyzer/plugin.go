package analyzer

import (
	"context"

	"github.com/depfuse/depfuse/pkg/depgraph"
	"github.com/depfuse/depfuse/pkg/resolve"
)

// Plugin is one ecosystem's adapter to the engine. A plugin instance is
// created per run and owns that ecosystem's shared graph builder and
// resolution cache; Analyze may be called concurrently for different
// definition files.
//
// Native node types differ per ecosystem, so each plugin internally holds
// its own depgraph.Builder over its node type. The engine contract is
// unchanged: one builder instance per ecosystem for the whole run.
type Plugin interface {
	// Name returns the ecosystem identifier (e.g., "go", "npm").
	Name() string

	// Supports reports whether this plugin handles the given definition
	// filename (basename, not path).
	Supports(filename string) bool

	// Analyze resolves one project definition file and feeds every scope's
	// direct dependencies into the plugin's shared builder. Issues found
	// along the way are attached to the returned result; Analyze returns a
	// non-nil error only when the project produced no usable result at all.
	Analyze(ctx context.Context, path string) (*ProjectResult, error)

	// Build freezes the plugin's dependency graph. Called once, after all
	// of the plugin's projects were processed.
	Build() *depgraph.Graph

	// Packages returns the resolved package metadata accumulated so far.
	// Callable mid-run and after Build.
	Packages() []resolve.Package
}
