package cli

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/depfuse/depfuse/pkg/analyzer"
	"github.com/depfuse/depfuse/pkg/depgraph"
)

func TestRunFileRoundTrip(t *testing.T) {
	run := &analyzer.Run{
		ID:         "run-abc",
		RootDir:    "/work/app",
		StartedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 8, 1, 12, 0, 3, 0, time.UTC),
		Projects: []analyzer.ProjectResult{
			{
				Project:        depgraph.Identifier{Type: "Go", Name: "example.com/app", Version: "1.23"},
				Ecosystem:      "Go",
				DefinitionFile: "/work/app/go.mod",
				Scopes:         []string{"Go::example.com/app:1.23:requires"},
			},
		},
		Graphs: map[string]*depgraph.Graph{
			"Go": {
				Nodes: []depgraph.Node{{
					Index:      0,
					Identifier: depgraph.Identifier{Type: "Go", Namespace: "github.com/google", Name: "uuid", Version: "v1.6.0"},
					Linkage:    depgraph.LinkageStatic,
				}},
				Scopes: map[string][]int{"Go::example.com/app:1.23:requires": {0}},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "run.json")
	if err := writeRunFile(run, path); err != nil {
		t.Fatalf("writeRunFile() error = %v", err)
	}
	got, err := readRunFile(path)
	if err != nil {
		t.Fatalf("readRunFile() error = %v", err)
	}

	if got.ID != run.ID || got.RootDir != run.RootDir {
		t.Errorf("round trip changed run header: got %s at %s", got.ID, got.RootDir)
	}
	if len(got.Projects) != 1 || got.Projects[0].Project != run.Projects[0].Project {
		t.Errorf("round trip changed projects: %+v", got.Projects)
	}
	g, ok := got.Graph("Go")
	if !ok || len(g.Nodes) != 1 {
		t.Fatalf("round trip lost graph: ok=%v", ok)
	}
	if g.Nodes[0].Linkage != depgraph.LinkageStatic {
		t.Errorf("Linkage = %v, want %v", g.Nodes[0].Linkage, depgraph.LinkageStatic)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() after round trip = %v", err)
	}
}

func TestReadRunFileMissing(t *testing.T) {
	if _, err := readRunFile(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("readRunFile() on missing file returned nil error")
	}
}

func TestCountProjects(t *testing.T) {
	run := &analyzer.Run{
		Projects: []analyzer.ProjectResult{
			{Ecosystem: "Go"}, {Ecosystem: "Go"}, {Ecosystem: "NPM"},
		},
	}
	if got := countProjects(run, "Go"); got != 2 {
		t.Errorf("countProjects(Go) = %d, want 2", got)
	}
	if got := countProjects(run, "NPM"); got != 1 {
		t.Errorf("countProjects(NPM) = %d, want 1", got)
	}
}
