package npm

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/depfuse/depfuse/pkg/cache"
	"github.com/depfuse/depfuse/pkg/depgraph"
	"github.com/depfuse/depfuse/pkg/resolve"
)

func TestHandlerIdentifierSplitsScope(t *testing.T) {
	tests := []struct {
		name          string
		wantNamespace string
		wantName      string
	}{
		{"@babel/core", "@babel", "core"},
		{"lodash", "", "lodash"},
		{"@types/node", "@types", "node"},
	}
	for _, tt := range tests {
		id := handler{}.Identifier(&LockPackage{Name: tt.name, Version: "1.0.0"})
		if id.Namespace != tt.wantNamespace || id.Name != tt.wantName {
			t.Errorf("Identifier(%q) = %s/%s, want %s/%s",
				tt.name, id.Namespace, id.Name, tt.wantNamespace, tt.wantName)
		}
		if id.Type != Ecosystem {
			t.Errorf("Identifier(%q).Type = %q, want %q", tt.name, id.Type, Ecosystem)
		}
	}
}

func TestHandlerLinkage(t *testing.T) {
	if got := (handler{}).Linkage(&LockPackage{Name: "lodash"}); got != depgraph.LinkageDynamic {
		t.Errorf("Linkage(package) = %v, want %v", got, depgraph.LinkageDynamic)
	}
	if got := (handler{}).Linkage(&LockPackage{Name: "ws", Link: true}); got != depgraph.LinkageProjectDynamic {
		t.Errorf("Linkage(link) = %v, want %v", got, depgraph.LinkageProjectDynamic)
	}
}

func TestArtifactSplitsIntegrity(t *testing.T) {
	a := Artifact(&LockPackage{
		Resolved:  "https://registry.npmjs.org/lodash/-/lodash-4.17.21.tgz",
		Integrity: "sha512-v2kDEe57lecTulaDIuNTPy3Ry4gLGJ6Z1O3vE1krgXZNrsQ+LFTGHVxVjcXPs17LhbZVGedAJv8XZ1tvj5FvSg==",
	})
	if a.HashAlgo != "sha512" {
		t.Errorf("HashAlgo = %q, want sha512", a.HashAlgo)
	}
	if a.HashValue == "" || a.URL == "" {
		t.Error("artifact missing hash value or URL")
	}

	bare := Artifact(&LockPackage{Resolved: "https://example.com/pkg.tgz"})
	if bare.HashAlgo != "" || bare.HashValue != "" {
		t.Errorf("no-integrity artifact = %+v, want empty hash fields", bare)
	}
}

func writePluginLock(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "package-lock.json")
	content := `{
  "name": "webapp",
  "version": "1.0.0",
  "lockfileVersion": 3,
  "packages": {
    "": {
      "name": "webapp",
      "version": "1.0.0",
      "dependencies": {"@babel/core": "^7.0.0"},
      "devDependencies": {"jest": "^29.0.0"}
    },
    "node_modules/@babel/core": {
      "version": "7.26.0",
      "resolved": "https://registry.npmjs.org/@babel/core/-/core-7.26.0.tgz",
      "integrity": "sha512-deadbeef",
      "license": "MIT"
    },
    "node_modules/jest": {"version": "29.7.0", "dev": true}
  }
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPluginAnalyzeBuildsScopedGraph(t *testing.T) {
	p := NewPlugin(cache.NewNullCache())
	res, err := p.Analyze(context.Background(), writePluginLock(t))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	project := depgraph.Identifier{Type: Ecosystem, Name: "webapp", Version: "1.0.0"}
	if res.Project != project {
		t.Errorf("Project = %v, want %v", res.Project, project)
	}
	wantScopes := []string{
		depgraph.QualifyScope(project, "dependencies"),
		depgraph.QualifyScope(project, "devDependencies"),
	}
	if !reflect.DeepEqual(res.Scopes, wantScopes) {
		t.Errorf("Scopes = %v, want %v", res.Scopes, wantScopes)
	}

	g := p.Build()
	if len(g.Nodes) != 2 {
		t.Errorf("len(g.Nodes) = %d, want 2", len(g.Nodes))
	}
	roots, ok := g.Roots(wantScopes[0])
	if !ok || len(roots) != 1 {
		t.Fatalf("dependencies roots = %v (ok=%v), want one root", roots, ok)
	}
	n, _ := g.Node(roots[0])
	if n.Identifier.Namespace != "@babel" || n.Identifier.Name != "core" {
		t.Errorf("root = %v, want @babel/core", n.Identifier)
	}
}

func TestPluginResolvesFromLockEntry(t *testing.T) {
	p := NewPlugin(cache.NewNullCache())
	ctx := context.Background()
	if _, err := p.Analyze(ctx, writePluginLock(t)); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	p.Build()

	pkgs := p.Packages()
	var babel *resolve.Package
	for i := range pkgs {
		if pkgs[i].Identifier.Name == "core" {
			babel = &pkgs[i]
		}
	}
	if babel == nil {
		t.Fatal("no resolved metadata for @babel/core")
	}
	if got, want := babel.DeclaredLicenses, []string{"MIT"}; !reflect.DeepEqual(got, want) {
		t.Errorf("DeclaredLicenses = %v, want %v", got, want)
	}
	if babel.BinaryArtifact.HashAlgo != "sha512" {
		t.Errorf("BinaryArtifact.HashAlgo = %q, want sha512", babel.BinaryArtifact.HashAlgo)
	}
}

func TestPluginFallbackResolver(t *testing.T) {
	called := false
	fb := resolve.ResolverFunc(func(_ context.Context, id depgraph.Identifier) (resolve.Package, error) {
		called = true
		return resolve.Package{Identifier: id, Homepage: "https://fallback.example"}, nil
	})

	p := NewPlugin(cache.NewNullCache(), WithFallback(fb))
	id := depgraph.Identifier{Type: Ecosystem, Name: "unrecorded", Version: "1.0.0"}
	pkg, err := p.resolvePackage(context.Background(), id)
	if err != nil {
		t.Fatalf("resolvePackage() error = %v", err)
	}
	if !called {
		t.Error("fallback resolver was not consulted")
	}
	if pkg.Homepage != "https://fallback.example" {
		t.Errorf("Homepage = %q, want fallback value", pkg.Homepage)
	}

	bare := NewPlugin(cache.NewNullCache())
	if _, err := bare.resolvePackage(context.Background(), id); err == nil {
		t.Error("want error for unrecorded identifier without fallback")
	}
}

type countingHooks struct {
	interns  atomic.Int64
	resolves atomic.Int64
}

func (h *countingHooks) OnIntern(depgraph.Identifier, int, bool) { h.interns.Add(1) }
func (h *countingHooks) OnResolve(depgraph.Identifier, error)    { h.resolves.Add(1) }

func TestPluginForwardsHookOptions(t *testing.T) {
	hooks := &countingHooks{}
	p := NewPlugin(cache.NewNullCache(),
		WithBuilderOptions(depgraph.WithHooks(hooks)),
		WithCacheOptions(resolve.WithHooks(hooks)),
	)

	if _, err := p.Analyze(context.Background(), writePluginLock(t)); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if got := hooks.interns.Load(); got != 2 {
		t.Errorf("intern events = %d, want 2", got)
	}
	if got := hooks.resolves.Load(); got != 2 {
		t.Errorf("resolve events = %d, want 2", got)
	}
}

func TestPluginSupports(t *testing.T) {
	p := NewPlugin(cache.NewNullCache())
	if !p.Supports("package-lock.json") || !p.Supports("Package-Lock.JSON") {
		t.Error("Supports() rejected a lockfile name")
	}
	if p.Supports("package.json") || p.Supports("yarn.lock") {
		t.Error("Supports() accepted a non-lockfile")
	}
}
