package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/depfuse/depfuse/pkg/depgraph"
)

func TestGoProxyResolvePinnedVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/github.com/google/uuid/@v/v1.6.0.info" {
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{
			"Version": "v1.6.0",
			"Origin": {"VCS": "git", "URL": "https://github.com/google/uuid", "Hash": "abc123"}
		}`))
	}))
	defer srv.Close()

	p := NewGoProxy(srv.URL)
	id := depgraph.Identifier{Type: "Go", Namespace: "github.com/google", Name: "uuid", Version: "v1.6.0"}
	pkg, err := p.Resolve(context.Background(), id)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if pkg.Identifier != id {
		t.Errorf("Identifier = %v, want %v", pkg.Identifier, id)
	}
	if pkg.VCS.Revision != "abc123" {
		t.Errorf("VCS.Revision = %q, want abc123", pkg.VCS.Revision)
	}
	wantZip := srv.URL + "/github.com/google/uuid/@v/v1.6.0.zip"
	if pkg.SourceArtifact.URL != wantZip {
		t.Errorf("SourceArtifact.URL = %q, want %q", pkg.SourceArtifact.URL, wantZip)
	}
}

func TestGoProxyResolveLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/golang.org/x/sync/@latest" {
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"Version": "v0.17.0"}`))
	}))
	defer srv.Close()

	p := NewGoProxy(srv.URL)
	id := depgraph.Identifier{Type: "Go", Namespace: "golang.org/x", Name: "sync"}
	pkg, err := p.Resolve(context.Background(), id)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if pkg.Identifier.Version != "v0.17.0" {
		t.Errorf("resolved version = %q, want v0.17.0", pkg.Identifier.Version)
	}
	if pkg.VCS.URL != "https://golang.org/x/sync" {
		t.Errorf("VCS.URL = %q", pkg.VCS.URL)
	}
}

func TestGoProxyResolveNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p := NewGoProxy(srv.URL)
	id := depgraph.Identifier{Type: "Go", Name: "nonexistent", Version: "v1.0.0"}
	if _, err := p.Resolve(context.Background(), id); err == nil {
		t.Error("Resolve() for missing module returned nil error")
	}
}

func TestGoProxyEmptyPath(t *testing.T) {
	p := NewGoProxy("http://unused.invalid")
	if _, err := p.Resolve(context.Background(), depgraph.Identifier{Type: "Go"}); err == nil {
		t.Error("Resolve() with empty path returned nil error")
	}
}

func TestEscapePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"github.com/BurntSushi/toml", "github.com/!burnt!sushi/toml"},
		{"github.com/google/uuid", "github.com/google/uuid"},
		{"github.com/Azure/azure-sdk", "github.com/!azure/azure-sdk"},
	}
	for _, tt := range tests {
		if got := escapePath(tt.in); got != tt.want {
			t.Errorf("escapePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
