package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/depfuse/depfuse/pkg/depgraph"
)

func TestNpmjsResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/@babel/core/7.26.0" {
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{
			"description": "Babel compiler core.",
			"license": "MIT",
			"homepage": "https://babel.dev",
			"author": {"name": "The Babel Team"},
			"repository": {"type": "git", "url": "git+https://github.com/babel/babel.git"},
			"dist": {
				"tarball": "https://registry.npmjs.org/@babel/core/-/core-7.26.0.tgz",
				"integrity": "sha512-deadbeef"
			}
		}`))
	}))
	defer srv.Close()

	n := NewNpmjs(srv.URL)
	id := depgraph.Identifier{Type: "NPM", Namespace: "@babel", Name: "core", Version: "7.26.0"}
	pkg, err := n.Resolve(context.Background(), id)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(pkg.DeclaredLicenses) != 1 || pkg.DeclaredLicenses[0] != "MIT" {
		t.Errorf("DeclaredLicenses = %v, want [MIT]", pkg.DeclaredLicenses)
	}
	if len(pkg.Authors) != 1 || pkg.Authors[0] != "The Babel Team" {
		t.Errorf("Authors = %v, want [The Babel Team]", pkg.Authors)
	}
	if pkg.VCS.URL != "https://github.com/babel/babel" {
		t.Errorf("VCS.URL = %q, want normalized https URL", pkg.VCS.URL)
	}
	if pkg.SourceArtifact.HashAlgo != "sha512" || pkg.SourceArtifact.HashValue != "deadbeef" {
		t.Errorf("SourceArtifact hash = %s-%s, want sha512-deadbeef",
			pkg.SourceArtifact.HashAlgo, pkg.SourceArtifact.HashValue)
	}
}

func TestNpmjsResolveShasumFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"dist": {
				"tarball": "https://registry.npmjs.org/left-pad/-/left-pad-1.3.0.tgz",
				"shasum": "5b8a3a7765dfe001261dde915589e782f8c94d1e"
			}
		}`))
	}))
	defer srv.Close()

	n := NewNpmjs(srv.URL)
	id := depgraph.Identifier{Type: "NPM", Name: "left-pad", Version: "1.3.0"}
	pkg, err := n.Resolve(context.Background(), id)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if pkg.SourceArtifact.HashAlgo != "sha1" {
		t.Errorf("HashAlgo = %q, want sha1 from shasum", pkg.SourceArtifact.HashAlgo)
	}
}

func TestNpmjsResolveRequiresVersion(t *testing.T) {
	n := NewNpmjs("http://unused.invalid")
	id := depgraph.Identifier{Type: "NPM", Name: "lodash"}
	if _, err := n.Resolve(context.Background(), id); err == nil {
		t.Error("Resolve() without version returned nil error")
	}
}

func TestNpmjsRetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"dist": {"tarball": "https://example.com/a.tgz"}}`))
	}))
	defer srv.Close()

	n := NewNpmjs(srv.URL)
	id := depgraph.Identifier{Type: "NPM", Name: "flaky", Version: "1.0.0"}
	if _, err := n.Resolve(context.Background(), id); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("registry called %d times, want 2 (one retry)", got)
	}
}

func TestNormalizeRepoURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"git+https://github.com/babel/babel.git", "https://github.com/babel/babel"},
		{"git@github.com:lodash/lodash.git", "https://github.com/lodash/lodash"},
		{"git://github.com/expressjs/express.git", "https://github.com/expressjs/express"},
		{"https://gitlab.com/group/repo", "https://gitlab.com/group/repo"},
	}
	for _, tt := range tests {
		if got := normalizeRepoURL(tt.in); got != tt.want {
			t.Errorf("normalizeRepoURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
