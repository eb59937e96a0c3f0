// Package render converts built dependency graphs to Graphviz DOT and
// renders them to SVG for quick visual inspection of an analysis run.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/depfuse/depfuse/pkg/depgraph"
)

// Options configures DOT conversion.
type Options struct {
	// Scope restricts output to the nodes reachable from one qualified
	// scope. Empty renders the whole graph.
	Scope string

	// Detailed includes linkage and issue counts in node labels.
	Detailed bool
}

// ToDOT converts a graph to Graphviz DOT format. Nodes carrying
// error-severity issues are filled red so resolution failures stand out.
func ToDOT(g *depgraph.Graph, opts Options) (string, error) {
	include, err := selectNodes(g, opts.Scope)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	buf.WriteString("digraph deps {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes {
		if !include[n.Index] {
			continue
		}
		fmt.Fprintf(&buf, "  n%d [%s];\n", n.Index, strings.Join(nodeAttrs(n, opts.Detailed), ", "))
	}

	buf.WriteString("\n")
	for _, n := range g.Nodes {
		if !include[n.Index] {
			continue
		}
		for _, c := range n.Children {
			fmt.Fprintf(&buf, "  n%d -> n%d;\n", n.Index, c)
		}
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	parsed, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, parsed, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render SVG: %w", err)
	}
	return buf.Bytes(), nil
}

// selectNodes returns the set of node indices to render: everything, or
// the closure of one scope's roots.
func selectNodes(g *depgraph.Graph, scope string) (map[int]bool, error) {
	include := make(map[int]bool, len(g.Nodes))
	if scope == "" {
		for _, n := range g.Nodes {
			include[n.Index] = true
		}
		return include, nil
	}

	roots, ok := g.Roots(scope)
	if !ok {
		return nil, fmt.Errorf("unknown scope %q", scope)
	}
	var visit func(int)
	visit = func(idx int) {
		if include[idx] {
			return
		}
		include[idx] = true
		if n, ok := g.Node(idx); ok {
			for _, c := range n.Children {
				visit(c)
			}
		}
	}
	for _, r := range roots {
		visit(r)
	}
	return include, nil
}

func nodeAttrs(n depgraph.Node, detailed bool) []string {
	label := displayName(n.Identifier)
	if detailed {
		parts := []string{label, n.Linkage.String()}
		if len(n.Issues) > 0 {
			parts = append(parts, fmt.Sprintf("issues: %d", len(n.Issues)))
		}
		label = strings.Join(parts, "\n")
	}

	attrs := []string{fmt.Sprintf("label=%q", label)}
	for _, issue := range n.Issues {
		if issue.Severity == depgraph.SeverityError {
			attrs = append(attrs, "fillcolor=mistyrose", "color=red")
			break
		}
	}
	return attrs
}

func displayName(id depgraph.Identifier) string {
	name := id.Name
	if id.Namespace != "" {
		name = id.Namespace + "/" + id.Name
	}
	if id.Version != "" {
		name += "@" + id.Version
	}
	return name
}
