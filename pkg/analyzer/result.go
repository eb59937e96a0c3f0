package analyzer

import (
	"time"

	"github.com/depfuse/depfuse/pkg/depgraph"
	"github.com/depfuse/depfuse/pkg/resolve"
)

// ProjectResult is the per-definition-file outcome of a run. A project
// with issues still carries its scopes and contributes to the graph; only
// a hard failure of the underlying ecosystem tooling leaves Scopes empty.
type ProjectResult struct {
	Project        depgraph.Identifier `json:"project" bson:"project"`
	Ecosystem      string              `json:"ecosystem" bson:"ecosystem"`
	DefinitionFile string              `json:"definition_file" bson:"definition_file"`
	Scopes         []string            `json:"scopes,omitempty" bson:"scopes,omitempty"`
	Issues         []depgraph.Issue    `json:"issues,omitempty" bson:"issues,omitempty"`
}

// Run is the complete result of one multi-project analysis: one
// deduplicated graph per ecosystem plus the canonical resolved package set.
// It is the unit of persistence (see the store package) and of the JSON
// file the CLI writes.
type Run struct {
	ID         string                     `json:"id" bson:"_id"`
	RootDir    string                     `json:"root_dir" bson:"root_dir"`
	StartedAt  time.Time                  `json:"started_at" bson:"started_at"`
	FinishedAt time.Time                  `json:"finished_at" bson:"finished_at"`
	Projects   []ProjectResult            `json:"projects" bson:"projects"`
	Graphs     map[string]*depgraph.Graph `json:"graphs" bson:"graphs"`
	Packages   []resolve.Package          `json:"packages,omitempty" bson:"packages,omitempty"`
}

// Graph returns the graph for one ecosystem.
func (r *Run) Graph(ecosystem string) (*depgraph.Graph, bool) {
	g, ok := r.Graphs[ecosystem]
	return g, ok
}

// IssueCount returns the total number of project and node issues.
func (r *Run) IssueCount() int {
	n := 0
	for _, p := range r.Projects {
		n += len(p.Issues)
	}
	for _, g := range r.Graphs {
		n += len(g.Issues())
	}
	return n
}
