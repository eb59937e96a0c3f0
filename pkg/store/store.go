// Package store persists completed analysis runs so reports and the serve
// API can read them later. Backends: in-memory (tests, single invocations)
// and MongoDB (shared deployments; the run document round-trips through
// the bson tags on the result types).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/depfuse/depfuse/pkg/analyzer"
)

// ErrNotFound is returned when the requested run does not exist.
var ErrNotFound = errors.New("run not found")

// RunSummary is the listing view of a persisted run.
type RunSummary struct {
	ID         string    `json:"id" bson:"_id"`
	RootDir    string    `json:"root_dir" bson:"root_dir"`
	StartedAt  time.Time `json:"started_at" bson:"started_at"`
	FinishedAt time.Time `json:"finished_at" bson:"finished_at"`
	Projects   int       `json:"projects" bson:"projects"`
}

// Store is the interface for run persistence backends.
type Store interface {
	// Save persists a run, overwriting any run with the same ID.
	Save(ctx context.Context, run *analyzer.Run) error

	// Get retrieves a run by ID. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*analyzer.Run, error)

	// List returns summaries of all persisted runs, newest first.
	List(ctx context.Context) ([]RunSummary, error)

	// Delete removes a run. Deleting a missing run is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}

func summarize(run *analyzer.Run) RunSummary {
	return RunSummary{
		ID:         run.ID,
		RootDir:    run.RootDir,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Projects:   len(run.Projects),
	}
}
