// Package npm analyzes JavaScript projects from their package-lock.json
// files (npm v7+ lockfile versions 2 and 3). Lockfiles carry the full
// installed tree, so the resulting graphs include transitive dependencies,
// nested version conflicts and, occasionally, legitimate cycles.
package npm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/depfuse/depfuse/pkg/analyzer"
	"github.com/depfuse/depfuse/pkg/cache"
	"github.com/depfuse/depfuse/pkg/depgraph"
	"github.com/depfuse/depfuse/pkg/resolve"
)

// Ecosystem is the identifier type recorded for npm packages.
const Ecosystem = "NPM"

// handler adapts LockPackage nodes to the generic builder.
type handler struct{}

func (handler) Identifier(p *LockPackage) depgraph.Identifier {
	namespace, name := splitScopedName(p.Name)
	return depgraph.Identifier{Type: Ecosystem, Namespace: namespace, Name: name, Version: p.Version}
}

// Workspace links are project-internal; everything else loads at run time.
func (handler) Linkage(p *LockPackage) depgraph.Linkage {
	if p.Link {
		return depgraph.LinkageProjectDynamic
	}
	return depgraph.LinkageDynamic
}

func (handler) Children(p *LockPackage) []*LockPackage { return p.Deps }

func (handler) Issues(p *LockPackage) []depgraph.Issue {
	if p.Version == "" && !p.Link {
		return []depgraph.Issue{depgraph.Warning("npm", "package %s has no version in lockfile", p.Name)}
	}
	return nil
}

// splitScopedName separates an npm scope from the package name:
// "@babel/core" -> ("@babel", "core").
func splitScopedName(name string) (namespace, short string) {
	if strings.HasPrefix(name, "@") {
		if idx := strings.Index(name, "/"); idx > 0 {
			return name[:idx], name[idx+1:]
		}
	}
	return "", name
}

// Plugin implements analyzer.Plugin for npm projects. Lock entries double
// as the metadata source: the resolver reads license, tarball location and
// integrity hash from the entry recorded at parse time, so resolution
// needs no network access.
type Plugin struct {
	builder  *depgraph.Builder[*LockPackage]
	memo     *resolve.Cache
	fallback resolve.Resolver

	mu   sync.RWMutex
	meta map[depgraph.Identifier]*LockPackage
}

// PluginOption configures a Plugin.
type PluginOption func(*pluginConfig)

type pluginConfig struct {
	builderOpts []depgraph.BuilderOption
	cacheOpts   []resolve.CacheOption
	cachingOpts []resolve.CachingOption
	fallback    resolve.Resolver
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

// WithFallback sets a resolver consulted for identifiers that have no
// recorded lock entry, typically a registry client.
func WithFallback(r resolve.Resolver) PluginOption {
	return func(c *pluginConfig) { c.fallback = r }
}

// NewPlugin creates a per-run npm plugin. Resolved metadata persists
// through store across runs; pass a NullCache to disable persistence.
func NewPlugin(store cache.Cache, opts ...PluginOption) *Plugin {
	var cfg pluginConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	p := &Plugin{meta: make(map[depgraph.Identifier]*LockPackage), fallback: cfg.fallback}
	persisted := resolve.NewCachingResolver(resolve.ResolverFunc(p.resolvePackage), store, cfg.cachingOpts...)
	p.memo = resolve.NewCache(persisted, cfg.cacheOpts...)
	builderOpts := append([]depgraph.BuilderOption{depgraph.WithResolve(p.memo.Warm)}, cfg.builderOpts...)
	p.builder = depgraph.NewBuilder[*LockPackage](handler{}, builderOpts...)
	return p
}

// Name returns the ecosystem identifier.
func (p *Plugin) Name() string { return Ecosystem }

// Supports reports whether filename is a package-lock.json file.
func (p *Plugin) Supports(filename string) bool {
	return strings.EqualFold(filename, "package-lock.json")
}

// Analyze parses one lockfile and feeds the root's "dependencies" and
// "devDependencies" scopes into the shared builder.
func (p *Plugin) Analyze(ctx context.Context, path string) (*analyzer.ProjectResult, error) {
	tree, err := parseLockFile(path)
	if err != nil {
		return nil, err
	}

	project := depgraph.Identifier{Type: Ecosystem, Name: tree.name, Version: tree.version}
	res := &analyzer.ProjectResult{
		Project:        project,
		Ecosystem:      p.Name(),
		DefinitionFile: path,
	}
	if tree.name == "" {
		res.Issues = append(res.Issues, depgraph.Warning(p.Name(), "%s has no project name", path))
	}

	scopes := []struct {
		name  string
		roots []*LockPackage
	}{
		{"dependencies", tree.direct},
		{"devDependencies", tree.dev},
	}
	for _, sc := range scopes {
		if len(sc.roots) == 0 {
			continue
		}
		qualified := depgraph.QualifyScope(project, sc.name)
		for _, root := range sc.roots {
			p.record(root, make(map[*LockPackage]bool))
			if err := p.builder.AddDependency(ctx, qualified, root); err != nil {
				return nil, err
			}
		}
		res.Scopes = append(res.Scopes, qualified)
	}

	return res, nil
}

// record indexes lock entries by identifier so the resolver can find them.
// First writer wins: identical identifiers from different lockfiles carry
// the same registry metadata.
func (p *Plugin) record(n *LockPackage, seen map[*LockPackage]bool) {
	if seen[n] {
		return
	}
	seen[n] = true

	id := handler{}.Identifier(n)
	p.mu.Lock()
	if _, ok := p.meta[id]; !ok {
		p.meta[id] = n
	}
	p.mu.Unlock()

	for _, dep := range n.Deps {
		p.record(dep, seen)
	}
}

// Build freezes the plugin's graph.
func (p *Plugin) Build() *depgraph.Graph { return p.builder.Build() }

// Packages returns the resolved package metadata accumulated so far.
func (p *Plugin) Packages() []resolve.Package { return p.memo.Packages() }

// resolvePackage turns a recorded lock entry into package metadata,
// falling back to the configured registry resolver for unrecorded
// identifiers.
func (p *Plugin) resolvePackage(ctx context.Context, id depgraph.Identifier) (resolve.Package, error) {
	p.mu.RLock()
	entry, ok := p.meta[id]
	p.mu.RUnlock()
	if !ok {
		if p.fallback != nil {
			return p.fallback.Resolve(ctx, id)
		}
		return resolve.Package{}, fmt.Errorf("no lockfile entry recorded for %s", id)
	}

	pkg := resolve.Package{
		Identifier: id,
		Homepage:   "https://www.npmjs.com/package/" + entry.Name,
	}
	if entry.License != "" {
		pkg.DeclaredLicenses = []string{entry.License}
	}
	if entry.Resolved != "" {
		pkg.BinaryArtifact = Artifact(entry)
	}
	return pkg, nil
}

// Artifact converts a lock entry's resolved URL and integrity field into
// an artifact record, splitting "sha512-..." into algorithm and value.
func Artifact(entry *LockPackage) resolve.Artifact {
	a := resolve.Artifact{URL: entry.Resolved}
	if algo, value, ok := strings.Cut(entry.Integrity, "-"); ok {
		a.HashAlgo = algo
		a.HashValue = value
	}
	return a
}

var _ analyzer.Plugin = (*Plugin)(nil)
