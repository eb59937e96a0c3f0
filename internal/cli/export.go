package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/depfuse/depfuse/pkg/depgraph"
	"github.com/depfuse/depfuse/pkg/errors"
	"github.com/depfuse/depfuse/pkg/render"
)

// exportOpts holds the command-line flags for the export command.
type exportOpts struct {
	format    string // json, dot, or svg
	ecosystem string // which graph to export
	scope     string // restrict to one qualified scope
	tree      bool   // emit the reconstructed reference tree instead of the flat graph
	detailed  bool   // verbose DOT labels
	output    string // output file (stdout if empty)
}

// newExportCmd creates the export command.
func newExportCmd() *cobra.Command {
	opts := exportOpts{format: "json"}

	cmd := &cobra.Command{
		Use:   "export <run-file>",
		Short: "Export a run's dependency graphs as JSON, DOT, or SVG",
		Long: `Export converts a run file written by "depfuse analyze" into other formats.

Without --ecosystem, the full run is exported (JSON only). With
--ecosystem, one graph is exported and --format may select DOT or SVG.

Examples:
  depfuse export run.json                              # Whole run as JSON
  depfuse export run.json --ecosystem Go --format dot  # Go graph as DOT
  depfuse export run.json --ecosystem NPM --format svg -o deps.svg
  depfuse export run.json --ecosystem Go --tree --scope "Go::acme:1.0:requires"`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runExport(c.Context(), &opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: json, dot, or svg")
	cmd.Flags().StringVarP(&opts.ecosystem, "ecosystem", "e", "", "graph to export (e.g. Go, NPM)")
	cmd.Flags().StringVarP(&opts.scope, "scope", "s", "", "restrict to one qualified scope")
	cmd.Flags().BoolVar(&opts.tree, "tree", false, "emit the expanded reference tree (requires --scope)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include linkage and issue counts in DOT labels")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")

	return cmd
}

func runExport(ctx context.Context, opts *exportOpts, path string) error {
	run, err := readRunFile(path)
	if err != nil {
		return err
	}

	if opts.ecosystem == "" {
		if opts.format != "json" {
			return errors.New(errors.ErrCodeInvalidFormat, "--format %s requires --ecosystem", opts.format)
		}
		return writeOutput(opts.output, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		})
	}

	g, ok := run.Graph(opts.ecosystem)
	if !ok {
		return errors.New(errors.ErrCodeInvalidEcosystem, "run has no %s graph (has: %v)", opts.ecosystem, sortedGraphKeys(run))
	}

	if opts.tree {
		return exportTree(opts, g)
	}

	switch opts.format {
	case "json":
		return writeOutput(opts.output, func(w io.Writer) error {
			return depgraph.WriteGraph(g, w)
		})
	case "dot":
		dot, err := render.ToDOT(g, render.Options{Scope: opts.scope, Detailed: opts.detailed})
		if err != nil {
			return err
		}
		return writeOutput(opts.output, func(w io.Writer) error {
			_, err := io.WriteString(w, dot)
			return err
		})
	case "svg":
		dot, err := render.ToDOT(g, render.Options{Scope: opts.scope, Detailed: opts.detailed})
		if err != nil {
			return err
		}
		svg, err := render.RenderSVG(ctx, dot)
		if err != nil {
			return err
		}
		return writeOutput(opts.output, func(w io.Writer) error {
			_, err := w.Write(svg)
			return err
		})
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unknown format %q (want json, dot, or svg)", opts.format)
	}
}

// exportTree expands one scope back into its per-project reference tree.
func exportTree(opts *exportOpts, g *depgraph.Graph) error {
	if opts.scope == "" {
		return errors.New(errors.ErrCodeInvalidScope, "--tree requires --scope")
	}
	refs, err := g.ReferenceTreeFor(opts.scope)
	if err != nil {
		return err
	}
	return writeOutput(opts.output, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(refs)
	})
}

// writeOutput writes to the output file, or stdout if path is empty.
func writeOutput(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := write(f); err != nil {
		return err
	}
	printFile(path)
	return nil
}
