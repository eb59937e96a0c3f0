package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// validateName applies the safety rules shared by every package-name
// validator: non-empty, bounded length, no control characters, no path
// traversal fragments. Ecosystem-specific shape checks build on top.
func validateName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	}
	if len(name) > 256 {
		return New(ErrCodeInvalidPackage, "package name too long (max 256 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPackage, "package name contains control characters")
		}
	}
	for _, fragment := range []string{"..", "//", "\\"} {
		if strings.Contains(name, fragment) {
			return New(ErrCodeInvalidPackage, "package name contains %q", fragment)
		}
	}
	return nil
}

// ValidateDefinitionFilename checks that filename is a plain basename the
// discovery walk may hand to a plugin: no path separators, not hidden.
func ValidateDefinitionFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidDefinition, "definition filename cannot be empty")
	}
	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidDefinition, "definition filename cannot contain path separators")
	}
	if strings.HasPrefix(filename, ".") {
		return New(ErrCodeInvalidDefinition, "definition filename cannot be a hidden file")
	}
	return nil
}

// npmNameRegex is npm's published naming rule for new packages, scope
// prefix included. Lowercase only; the rule rejects legacy mixed-case
// names, which cannot appear in a v2+ lockfile's install paths anyway.
var npmNameRegex = regexp.MustCompile(`^(@[a-z0-9-~][a-z0-9-._~]*/)?[a-z0-9-~][a-z0-9-._~]*$`)

// ValidateNpmPackageName checks a lockfile dependency name before it is
// materialized into a graph node.
func ValidateNpmPackageName(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if !npmNameRegex.MatchString(name) {
		return New(ErrCodeInvalidPackage, "invalid npm package name: %q", name)
	}
	return nil
}

// goModulePathRegex covers the module path shapes the proxy protocol
// accepts, without the per-element rules full toolchain validation applies.
var goModulePathRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._/-]*$`)

// ValidateGoModulePath checks a require path before it becomes a module
// node. Hand-edited go.mod files carry the occasional garbage line; the
// parser skips paths failing this check instead of aborting the project.
func ValidateGoModulePath(path string) error {
	if err := validateName(path); err != nil {
		return err
	}
	if !goModulePathRegex.MatchString(path) {
		return New(ErrCodeInvalidPackage, "invalid Go module path: %q", path)
	}
	return nil
}
