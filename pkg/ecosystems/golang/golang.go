// Package golang analyzes Go projects. It parses go.mod files into native
// module nodes and adapts them to the generic graph builder. Dependency
// trees are shallow (go.mod only declares requirements, not the module
// graph), but direct and indirect requirements map to separate scopes so
// reports can tell them apart.
package golang

import (
	"context"
	"fmt"
	"strings"

	"github.com/depfuse/depfuse/pkg/analyzer"
	"github.com/depfuse/depfuse/pkg/cache"
	"github.com/depfuse/depfuse/pkg/depgraph"
	"github.com/depfuse/depfuse/pkg/resolve"
)

// Ecosystem is the identifier type recorded for Go modules.
const Ecosystem = "Go"

// Module is the native dependency node for the Go ecosystem.
type Module struct {
	Path     string
	Version  string
	Deps     []*Module
	Problems []depgraph.Issue
}

// handler adapts Module nodes to the generic builder.
type handler struct{}

func (handler) Identifier(m *Module) depgraph.Identifier {
	namespace, name := splitModulePath(m.Path)
	return depgraph.Identifier{Type: Ecosystem, Namespace: namespace, Name: name, Version: m.Version}
}

// Go modules compile into the importing binary.
func (handler) Linkage(*Module) depgraph.Linkage { return depgraph.LinkageStatic }

func (handler) Children(m *Module) []*Module { return m.Deps }

func (handler) Issues(m *Module) []depgraph.Issue { return m.Problems }

// splitModulePath separates a module path into host namespace and name:
// "github.com/foo/bar" -> ("github.com/foo", "bar").
func splitModulePath(path string) (namespace, name string) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

// Plugin implements analyzer.Plugin for Go projects. One plugin instance
// owns the shared builder and resolution cache for a whole run.
type Plugin struct {
	builder *depgraph.Builder[*Module]
	memo    *resolve.Cache
}

// PluginOption configures a Plugin.
type PluginOption func(*pluginConfig)

type pluginConfig struct {
	builderOpts []depgraph.BuilderOption
	cacheOpts   []resolve.CacheOption
	cachingOpts []resolve.CachingOption
	resolver    resolve.Resolver
}

// WithBuilderOptions forwards options to the underlying graph builder.
func WithBuilderOptions(opts ...depgraph.BuilderOption) PluginOption {
	return func(c *pluginConfig) { c.builderOpts = append(c.builderOpts, opts...) }
}

// WithCacheOptions forwards options to the memoizing resolution cache.
func WithCacheOptions(opts ...resolve.CacheOption) PluginOption {
	return func(c *pluginConfig) { c.cacheOpts = append(c.cacheOpts, opts...) }
}

// WithCachingOptions forwards options to the persistence layer.
func WithCachingOptions(opts ...resolve.CachingOption) PluginOption {
	return func(c *pluginConfig) { c.cachingOpts = append(c.cachingOpts, opts...) }
}

// WithResolver replaces the default offline module resolver, typically
// with a module proxy client.
func WithResolver(r resolve.Resolver) PluginOption {
	return func(c *pluginConfig) { c.resolver = r }
}

// NewPlugin creates a per-run Go plugin. Resolved module metadata persists
// through store across runs; pass a NullCache to disable persistence.
func NewPlugin(store cache.Cache, opts ...PluginOption) *Plugin {
	var cfg pluginConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	resolver := cfg.resolver
	if resolver == nil {
		resolver = resolve.ResolverFunc(resolveModule)
	}
	persisted := resolve.NewCachingResolver(resolver, store, cfg.cachingOpts...)
	memo := resolve.NewCache(persisted, cfg.cacheOpts...)
	builderOpts := append([]depgraph.BuilderOption{depgraph.WithResolve(memo.Warm)}, cfg.builderOpts...)
	return &Plugin{
		builder: depgraph.NewBuilder[*Module](handler{}, builderOpts...),
		memo:    memo,
	}
}

// Name returns the ecosystem identifier.
func (p *Plugin) Name() string { return Ecosystem }

// Supports reports whether filename is a go.mod file.
func (p *Plugin) Supports(filename string) bool { return filename == "go.mod" }

// Analyze parses one go.mod and feeds its requirement scopes into the
// shared builder: "requires" for direct requirements and "indirect" for
// transitively pinned ones, each in declaration order.
func (p *Plugin) Analyze(ctx context.Context, path string) (*analyzer.ProjectResult, error) {
	mod, err := ParseGoMod(path)
	if err != nil {
		return nil, err
	}

	project := depgraph.Identifier{Type: Ecosystem, Name: mod.Module, Version: mod.GoVersion}
	res := &analyzer.ProjectResult{
		Project:        project,
		Ecosystem:      p.Name(),
		DefinitionFile: path,
	}
	if mod.Module == "" {
		res.Issues = append(res.Issues, depgraph.Warning(p.Name(), "%s has no module directive", path))
	}

	scopes := []struct {
		name     string
		requires []Require
	}{
		{"requires", mod.Direct},
		{"indirect", mod.Indirect},
	}
	for _, sc := range scopes {
		if len(sc.requires) == 0 {
			continue
		}
		qualified := depgraph.QualifyScope(project, sc.name)
		for _, req := range sc.requires {
			node := &Module{Path: req.Path, Version: req.Version}
			if req.Version == "" {
				node.Problems = append(node.Problems,
					depgraph.Warning(p.Name(), "requirement %s has no version", req.Path))
			}
			if err := p.builder.AddDependency(ctx, qualified, node); err != nil {
				return nil, err
			}
		}
		res.Scopes = append(res.Scopes, qualified)
	}

	return res, nil
}

// Build freezes the plugin's graph.
func (p *Plugin) Build() *depgraph.Graph { return p.builder.Build() }

// Packages returns the resolved package metadata accumulated so far.
func (p *Plugin) Packages() []resolve.Package { return p.memo.Packages() }

// resolveModule synthesizes package metadata for a Go module without
// network access: the VCS location follows from the module path and the
// source artifact from the public module proxy layout.
func resolveModule(_ context.Context, id depgraph.Identifier) (resolve.Package, error) {
	path := id.Name
	if id.Namespace != "" {
		path = id.Namespace + "/" + id.Name
	}
	if path == "" {
		return resolve.Package{}, fmt.Errorf("module path is empty")
	}

	pkg := resolve.Package{
		Identifier: id,
		Homepage:   "https://" + path,
		VCS: resolve.VCSInfo{
			Type: "git",
			URL:  "https://" + vcsRoot(path),
		},
	}
	if id.Version != "" {
		pkg.SourceArtifact = resolve.Artifact{
			URL: fmt.Sprintf("https://proxy.golang.org/%s/@v/%s.zip", strings.ToLower(path), id.Version),
		}
	}
	return pkg, nil
}

// vcsRoot trims a module path down to its repository root for the common
// three-segment hosts (github.com, gitlab.com, bitbucket.org).
func vcsRoot(path string) string {
	parts := strings.Split(path, "/")
	switch parts[0] {
	case "github.com", "gitlab.com", "bitbucket.org":
		if len(parts) > 3 {
			return strings.Join(parts[:3], "/")
		}
	}
	return path
}

var _ analyzer.Plugin = (*Plugin)(nil)
