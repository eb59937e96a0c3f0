package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/depfuse/depfuse/pkg/depgraph"
	"github.com/depfuse/depfuse/pkg/resolve"
)

// Npmjs resolves package metadata from an npm registry.
// It implements resolve.Resolver.
type Npmjs struct {
	client  *Client
	baseURL string
}

// NewNpmjs creates a resolver against the given registry base URL,
// defaulting to the public registry.npmjs.org.
func NewNpmjs(baseURL string) *Npmjs {
	if baseURL == "" {
		baseURL = "https://registry.npmjs.org"
	}
	return &Npmjs{
		client:  NewClient(map[string]string{"Accept": "application/json"}),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// npmVersion is the registry's per-version document, reduced to the fields
// metadata resolution needs.
type npmVersion struct {
	Description string `json:"description"`
	License     string `json:"license"`
	Homepage    string `json:"homepage"`
	Author      struct {
		Name string `json:"name"`
	} `json:"author"`
	Repository struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"repository"`
	Dist struct {
		Tarball   string `json:"tarball"`
		Integrity string `json:"integrity"`
		Shasum    string `json:"shasum"`
	} `json:"dist"`
}

// Resolve fetches one package version's metadata from the registry.
func (n *Npmjs) Resolve(ctx context.Context, id depgraph.Identifier) (resolve.Package, error) {
	name := id.Name
	if id.Namespace != "" {
		name = id.Namespace + "/" + id.Name
	}
	if name == "" {
		return resolve.Package{}, fmt.Errorf("package name is empty")
	}
	if id.Version == "" {
		return resolve.Package{}, fmt.Errorf("package %s has no version", name)
	}

	endpoint := fmt.Sprintf("%s/%s/%s", n.baseURL, name, id.Version)
	var doc npmVersion
	if err := n.client.GetJSON(ctx, endpoint, &doc); err != nil {
		return resolve.Package{}, fmt.Errorf("fetch %s: %w", endpoint, err)
	}

	pkg := resolve.Package{
		Identifier:  id,
		Description: doc.Description,
		Homepage:    doc.Homepage,
	}
	if doc.License != "" {
		pkg.DeclaredLicenses = []string{doc.License}
	}
	if doc.Author.Name != "" {
		pkg.Authors = []string{doc.Author.Name}
	}
	if doc.Repository.URL != "" {
		vcsType := doc.Repository.Type
		if vcsType == "" {
			vcsType = "git"
		}
		pkg.VCS = resolve.VCSInfo{Type: vcsType, URL: normalizeRepoURL(doc.Repository.URL)}
	}
	pkg.SourceArtifact = tarballArtifact(doc)
	return pkg, nil
}

func tarballArtifact(doc npmVersion) resolve.Artifact {
	a := resolve.Artifact{URL: doc.Dist.Tarball}
	if algo, value, ok := strings.Cut(doc.Dist.Integrity, "-"); ok {
		a.HashAlgo = algo
		a.HashValue = value
	} else if doc.Dist.Shasum != "" {
		a.HashAlgo = "sha1"
		a.HashValue = doc.Dist.Shasum
	}
	return a
}

var repoURLReplacer = strings.NewReplacer(
	"git@github.com:", "https://github.com/",
	"git://github.com/", "https://github.com/",
)

// normalizeRepoURL converts various repository URL formats to canonical
// HTTPS form. Handles git@, git://, and git+ prefixes, and removes .git
// suffixes.
func normalizeRepoURL(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "git+")
	s = repoURLReplacer.Replace(s)
	return strings.TrimSuffix(s, ".git")
}

var _ resolve.Resolver = (*Npmjs)(nil)
