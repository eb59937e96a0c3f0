package analyzer

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/depfuse/depfuse/pkg/depgraph"
	pkgerrors "github.com/depfuse/depfuse/pkg/errors"
	"github.com/depfuse/depfuse/pkg/resolve"
)

// Directories that never contain project definition files worth analyzing.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"testdata":     true,
}

// Options configures a run.
type Options struct {
	Workers int                  // Parallel project analyses (default: GOMAXPROCS)
	Logger  func(string, ...any) // Progress/error callback (optional)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Logger == nil {
		opts.Logger = func(string, ...any) {}
	}
	return opts
}

// Runner analyzes every supported project definition file under a root
// directory, one worker per file bounded by Options.Workers, all files of
// one ecosystem feeding that ecosystem's shared builder.
type Runner struct {
	plugins []Plugin
	opts    Options
}

// NewRunner creates a runner over the given per-run plugin instances.
func NewRunner(plugins []Plugin, opts Options) *Runner {
	return &Runner{plugins: plugins, opts: opts.WithDefaults()}
}

// Discover walks root and returns the definition files each plugin
// supports, in deterministic path order.
func (r *Runner) Discover(root string) (map[Plugin][]string, error) {
	found := make(map[Plugin][]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if pkgerrors.ValidateDefinitionFilename(d.Name()) != nil {
			return nil
		}
		for _, p := range r.plugins {
			if p.Supports(d.Name()) {
				found[p] = append(found[p], path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, files := range found {
		slices.Sort(files)
	}
	return found, nil
}

// Run discovers and analyzes all projects under root and assembles the
// frozen per-ecosystem graphs and the deduplicated package set.
//
// A project whose analysis fails is recorded with an error-severity issue
// and the run continues; only cancellation of ctx stops the run early.
// On cancellation the partially accumulated run is still returned next to
// the context error: graphs built from completed projects remain valid.
func (r *Runner) Run(ctx context.Context, root string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		RootDir:   root,
		StartedAt: time.Now().UTC(),
		Graphs:    make(map[string]*depgraph.Graph),
	}

	files, err := r.Discover(root)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for plugin, paths := range files {
		for _, path := range paths {
			g.Go(func() error {
				res, err := r.analyzeProject(gctx, plugin, path)
				if err != nil {
					// Only cancellation aborts the run.
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return err
					}
					r.opts.Logger("analyze failed: %s: %v", path, err)
					res = &ProjectResult{
						Ecosystem:      plugin.Name(),
						DefinitionFile: path,
						Issues: []depgraph.Issue{
							depgraph.Error(plugin.Name(), "analysis of %s failed: %v", path, err),
						},
					}
				}
				mu.Lock()
				run.Projects = append(run.Projects, *res)
				mu.Unlock()
				return nil
			})
		}
	}

	waitErr := g.Wait()

	slices.SortFunc(run.Projects, func(a, b ProjectResult) int {
		return strings.Compare(a.DefinitionFile, b.DefinitionFile)
	})

	seen := make(map[depgraph.Identifier]bool)
	for plugin := range files {
		run.Graphs[plugin.Name()] = plugin.Build()
		for _, pkg := range plugin.Packages() {
			if !seen[pkg.Identifier] {
				seen[pkg.Identifier] = true
				run.Packages = append(run.Packages, pkg)
			}
		}
	}
	slices.SortFunc(run.Packages, func(a, b resolve.Package) int {
		return a.Identifier.Compare(b.Identifier)
	})
	run.FinishedAt = time.Now().UTC()

	return run, waitErr
}

func (r *Runner) analyzeProject(ctx context.Context, p Plugin, path string) (res *ProjectResult, err error) {
	start := time.Now()
	res, err = p.Analyze(ctx, path)
	if err == nil {
		r.opts.Logger("analyzed %s (%s)", path, time.Since(start).Round(time.Millisecond))
	}
	return res, err
}
