package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/depfuse/depfuse/pkg/analyzer"
	"github.com/depfuse/depfuse/pkg/cache"
	"github.com/depfuse/depfuse/pkg/depgraph"
	"github.com/depfuse/depfuse/pkg/ecosystems/golang"
	"github.com/depfuse/depfuse/pkg/ecosystems/npm"
	"github.com/depfuse/depfuse/pkg/metrics"
	"github.com/depfuse/depfuse/pkg/registry"
	"github.com/depfuse/depfuse/pkg/resolve"
)

// analyzeOpts holds the command-line flags for the analyze command.
type analyzeOpts struct {
	output      string // run file path
	workers     int    // parallel project analyses, 0 means config/GOMAXPROCS
	noCache     bool   // disable the persistent metadata cache
	online      bool   // resolve metadata from registries over the network
	save        bool   // persist the run to the configured store
	metricsAddr string // expose Prometheus metrics during the run
	tui         bool   // live progress display
}

// newAnalyzeCmd creates the analyze command.
//
// Default options:
//   - output: depfuse-run.json in the current directory
//   - workers: from config, falling back to GOMAXPROCS
//   - cache: the backend configured in config.toml
func newAnalyzeCmd() *cobra.Command {
	opts := analyzeOpts{output: "depfuse-run.json"}

	cmd := &cobra.Command{
		Use:   "analyze <dir>",
		Short: "Analyze a source tree and build deduplicated dependency graphs",
		Long: `Analyze walks a directory tree, finds every supported project definition
file (go.mod, package-lock.json), and fuses the dependency trees of all
projects into one deduplicated graph per ecosystem.

Examples:
  depfuse analyze .                         # Analyze the current tree
  depfuse analyze ~/src/monorepo -o run.json
  depfuse analyze . --save                  # Also persist to the run store
  depfuse analyze . --metrics-addr :9090    # Expose live Prometheus metrics`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runAnalyze(c.Context(), &opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", opts.output, "run file to write")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "parallel project analyses (default: GOMAXPROCS)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the persistent metadata cache")
	cmd.Flags().BoolVar(&opts.online, "online", false, "resolve package metadata from registries")
	cmd.Flags().BoolVar(&opts.save, "save", false, "persist the run to the configured store")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "address to expose Prometheus metrics on during the run")
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "live per-project progress display")

	return cmd
}

func runAnalyze(ctx context.Context, opts *analyzeOpts, root string) error {
	logger := loggerFromContext(ctx)
	cfg := configFromContext(ctx)
	prog := newProgress(logger)

	metaCache, err := analyzeCache(ctx, opts, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := metaCache.Close(); err != nil {
			logger.Warnf("closing cache: %v", err)
		}
	}()

	hooks := metrics.NewHooks()
	if opts.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", hooks.Handler())
		srv := &http.Server{Addr: opts.metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warnf("metrics server: %v", err)
			}
		}()
		defer srv.Close()
		logger.Debugf("metrics on http://%s/metrics", opts.metricsAddr)
	}

	ttl := cfg.Cache.TTL()
	goOpts := []golang.PluginOption{
		golang.WithBuilderOptions(depgraph.WithHooks(hooks)),
		golang.WithCacheOptions(resolve.WithHooks(hooks)),
		golang.WithCachingOptions(resolve.WithTTL(ttl), resolve.WithCacheHooks(hooks)),
	}
	npmOpts := []npm.PluginOption{
		npm.WithBuilderOptions(depgraph.WithHooks(hooks)),
		npm.WithCacheOptions(resolve.WithHooks(hooks)),
		npm.WithCachingOptions(resolve.WithTTL(ttl), resolve.WithCacheHooks(hooks)),
	}
	if opts.online {
		goOpts = append(goOpts, golang.WithResolver(registry.NewGoProxy("")))
		npmOpts = append(npmOpts, npm.WithFallback(registry.NewNpmjs("")))
	}
	plugins := []analyzer.Plugin{
		golang.NewPlugin(metaCache, goOpts...),
		npm.NewPlugin(metaCache, npmOpts...),
	}

	workers := opts.workers
	if workers == 0 {
		workers = cfg.Analyze.Workers
	}

	var run *analyzer.Run
	if opts.tui {
		run, err = runWithTUI(ctx, plugins, workers, root)
	} else {
		runner := analyzer.NewRunner(plugins, analyzer.Options{
			Workers: workers,
			Logger:  func(format string, args ...any) { logger.Debugf(format, args...) },
		})
		spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Analyzing %s", root))
		spinner.Start()
		run, err = runner.Run(ctx, root)
		spinner.Stop()
	}
	if err != nil {
		return err
	}

	if err := writeRunFile(run, opts.output); err != nil {
		return err
	}

	if opts.save {
		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		if st == nil {
			printWarning("--save requested but no store configured; skipping")
		} else {
			defer closeStore(ctx, st)
			if err := st.Save(ctx, run); err != nil {
				return err
			}
			printSuccess("Saved run %s to store", run.ID)
		}
	}

	prog.done(fmt.Sprintf("Analyzed %d projects", len(run.Projects)))
	printRunSummary(run, opts.output)
	return nil
}

// analyzeCache picks the metadata cache for one run, honoring --no-cache.
func analyzeCache(ctx context.Context, opts *analyzeOpts, cfg *Config) (cache.Cache, error) {
	if opts.noCache {
		return cache.NewNullCache(), nil
	}
	return openCache(ctx, cfg.Cache)
}

// writeRunFile writes a run as indented JSON.
func writeRunFile(run *analyzer.Run, path string) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// readRunFile reads a run file written by writeRunFile.
func readRunFile(path string) (*analyzer.Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run file %s: %w", path, err)
	}
	var run analyzer.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parse run file %s: %w", path, err)
	}
	return &run, nil
}

// printRunSummary prints per-ecosystem graph statistics and issues.
func printRunSummary(run *analyzer.Run, output string) {
	for _, eco := range sortedGraphKeys(run) {
		g := run.Graphs[eco]
		edges := 0
		for _, n := range g.Nodes {
			edges += len(n.Children)
		}
		printInfo("%s: %d projects, %d distinct packages", eco, countProjects(run, eco), len(g.Nodes))
		printStats(len(g.Nodes), edges)
	}

	if n := run.IssueCount(); n > 0 {
		printWarning("%d issues recorded; inspect with: depfuse export %s --format json", n, output)
	}
	printFile(output)
}

func countProjects(run *analyzer.Run, ecosystem string) int {
	n := 0
	for _, p := range run.Projects {
		if p.Ecosystem == ecosystem {
			n++
		}
	}
	return n
}

func sortedGraphKeys(run *analyzer.Run) []string {
	keys := make([]string, 0, len(run.Graphs))
	for k := range run.Graphs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
