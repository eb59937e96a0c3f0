package registry

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/depfuse/depfuse/pkg/depgraph"
	"github.com/depfuse/depfuse/pkg/resolve"
)

// GoProxy resolves Go module metadata from a module proxy.
// It implements resolve.Resolver.
type GoProxy struct {
	client  *Client
	baseURL string
}

// NewGoProxy creates a resolver against the given proxy base URL,
// defaulting to the public proxy.golang.org.
func NewGoProxy(baseURL string) *GoProxy {
	if baseURL == "" {
		baseURL = "https://proxy.golang.org"
	}
	return &GoProxy{
		client:  NewClient(nil),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// versionInfo is the @v/{version}.info response.
type versionInfo struct {
	Version string `json:"Version"`
	Origin  *struct {
		VCS  string `json:"VCS"`
		URL  string `json:"URL"`
		Hash string `json:"Hash"`
	} `json:"Origin"`
}

// Resolve fetches module metadata from the proxy. A missing version
// resolves to @latest. The proxy's Origin block, when present, carries the
// upstream VCS location and revision.
func (p *GoProxy) Resolve(ctx context.Context, id depgraph.Identifier) (resolve.Package, error) {
	path := id.Name
	if id.Namespace != "" {
		path = id.Namespace + "/" + id.Name
	}
	if path == "" {
		return resolve.Package{}, fmt.Errorf("module path is empty")
	}
	escaped := escapePath(path)

	endpoint := fmt.Sprintf("%s/%s/@latest", p.baseURL, escaped)
	if id.Version != "" {
		endpoint = fmt.Sprintf("%s/%s/@v/%s.info", p.baseURL, escaped, id.Version)
	}

	var info versionInfo
	if err := p.client.GetJSON(ctx, endpoint, &info); err != nil {
		return resolve.Package{}, fmt.Errorf("fetch %s: %w", endpoint, err)
	}

	resolved := id
	if resolved.Version == "" {
		resolved.Version = info.Version
	}

	pkg := resolve.Package{
		Identifier: resolved,
		Homepage:   "https://" + path,
		SourceArtifact: resolve.Artifact{
			URL: fmt.Sprintf("%s/%s/@v/%s.zip", p.baseURL, escaped, resolved.Version),
		},
		VCS: resolve.VCSInfo{Type: "git", URL: "https://" + path},
	}
	if o := info.Origin; o != nil {
		if o.VCS != "" {
			pkg.VCS.Type = o.VCS
		}
		if o.URL != "" {
			pkg.VCS.URL = o.URL
		}
		pkg.VCS.Revision = o.Hash
	}
	return pkg, nil
}

// escapePath applies the module proxy path escaping: uppercase letters
// become "!" followed by the lowercase letter.
func escapePath(path string) string {
	var b strings.Builder
	for _, r := range path {
		if unicode.IsUpper(r) {
			b.WriteByte('!')
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var _ resolve.Resolver = (*GoProxy)(nil)
