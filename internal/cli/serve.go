package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/depfuse/depfuse/pkg/analyzer"
	"github.com/depfuse/depfuse/pkg/depgraph"
	"github.com/depfuse/depfuse/pkg/errors"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr  string // listen address, falls back to config
	runID string // load the run from the store instead of a file
}

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve [run-file]",
		Short: "Serve a run's dependency graphs over HTTP",
		Long: `Serve exposes an analysis run over a small JSON API.

The run is loaded from a run file, or with --run from the configured store.

Examples:
  depfuse serve run.json
  depfuse serve run.json --addr :9000
  depfuse serve --run 4f1c2d…   # requires a store backend in config`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runServe(c.Context(), &opts, path)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config, :8420)")
	cmd.Flags().StringVar(&opts.runID, "run", "", "run ID to load from the store")

	return cmd
}

func runServe(ctx context.Context, opts *serveOpts, path string) error {
	logger := loggerFromContext(ctx)
	cfg := configFromContext(ctx)

	run, err := loadRun(ctx, opts, cfg, path)
	if err != nil {
		return err
	}

	addr := opts.addr
	if addr == "" {
		addr = cfg.Serve.Addr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(run),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Infof("serving run %s on http://%s", run.ID, addr)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// loadRun loads the run to serve from either the store or a run file.
func loadRun(ctx context.Context, opts *serveOpts, cfg *Config, path string) (*analyzer.Run, error) {
	if opts.runID != "" {
		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		if st == nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "--run requires a store backend in config")
		}
		defer closeStore(ctx, st)
		return st.Get(ctx, opts.runID)
	}
	if path == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "pass a run file or --run <id>")
	}
	return readRunFile(path)
}

// newRouter builds the API for one loaded run.
func newRouter(run *analyzer.Run) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/run", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, runSummaryPayload(run))
		})
		r.Get("/projects", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, run.Projects)
		})
		r.Get("/packages", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, run.Packages)
		})
		r.Route("/graphs", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, graphIndexPayload(run))
			})
			r.Route("/{ecosystem}", func(r chi.Router) {
				r.Use(graphCtx(run))
				r.Get("/", serveGraph)
				r.Get("/scopes", serveScopes)
				r.Get("/tree", serveTree)
			})
		})
	})

	return r
}

// graphCtxKey carries the selected graph through the request context.
type graphCtxKey struct{}

// graphCtx resolves the {ecosystem} URL parameter to a graph.
func graphCtx(run *analyzer.Run) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			eco := chi.URLParam(r, "ecosystem")
			g, ok := run.Graph(eco)
			if !ok {
				writeAPIError(w, http.StatusNotFound, errors.New(errors.ErrCodeInvalidEcosystem, "run has no %s graph", eco))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), graphCtxKey{}, g)))
		})
	}
}

func serveGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, graphFromCtx(r))
}

func serveScopes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, graphFromCtx(r).ScopeNames())
}

func serveTree(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		writeAPIError(w, http.StatusBadRequest, errors.New(errors.ErrCodeInvalidScope, "missing scope query parameter"))
		return
	}
	refs, err := graphFromCtx(r).ReferenceTreeFor(scope)
	if err != nil {
		writeAPIError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, refs)
}

func graphFromCtx(r *http.Request) *depgraph.Graph {
	return r.Context().Value(graphCtxKey{}).(*depgraph.Graph)
}

// apiError is the JSON error envelope.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeAPIError(w http.ResponseWriter, status int, err error) {
	code := string(errors.GetCode(err))
	if code == "" {
		code = string(errors.ErrCodeInternal)
	}
	writeJSON(w, status, apiError{Code: code, Message: errors.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// runSummaryPayload is the /api/run response.
func runSummaryPayload(run *analyzer.Run) map[string]any {
	return map[string]any{
		"id":          run.ID,
		"root_dir":    run.RootDir,
		"started_at":  run.StartedAt,
		"finished_at": run.FinishedAt,
		"projects":    len(run.Projects),
		"ecosystems":  sortedGraphKeys(run),
		"issues":      run.IssueCount(),
	}
}

// graphIndexPayload is the /api/graphs response.
func graphIndexPayload(run *analyzer.Run) []map[string]any {
	out := make([]map[string]any, 0, len(run.Graphs))
	for _, eco := range sortedGraphKeys(run) {
		g := run.Graphs[eco]
		out = append(out, map[string]any{
			"ecosystem": eco,
			"nodes":     len(g.Nodes),
			"scopes":    len(g.Scopes),
		})
	}
	return out
}
