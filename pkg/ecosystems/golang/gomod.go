package golang

import (
	"bufio"
	"os"
	"strings"

	"github.com/depfuse/depfuse/pkg/errors"
)

// Require is one requirement line from a go.mod file.
type Require struct {
	Path    string
	Version string
}

// GoMod holds the parsed content of a go.mod file.
type GoMod struct {
	Module    string
	GoVersion string
	Direct    []Require // requirements without the "// indirect" marker
	Indirect  []Require // requirements pinned for transitive dependencies
}

// ParseGoMod reads and parses the go.mod file at path. The parser is a
// line scanner covering the directives that matter for dependency
// analysis: module, go, and require (block and single-line forms).
func ParseGoMod(path string) (*GoMod, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mod := &GoMod{}
	seen := make(map[string]bool)
	inRequire := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		if strings.HasPrefix(line, "module ") {
			mod.Module = strings.TrimSpace(strings.TrimPrefix(line, "module "))
			continue
		}
		if strings.HasPrefix(line, "go ") {
			mod.GoVersion = strings.TrimSpace(strings.TrimPrefix(line, "go "))
			continue
		}

		// Handle require block
		if strings.HasPrefix(line, "require (") || line == "require(" {
			inRequire = true
			continue
		}
		if inRequire && line == ")" {
			inRequire = false
			continue
		}

		// Single-line require
		if strings.HasPrefix(line, "require ") && !strings.Contains(line, "(") {
			line = strings.TrimPrefix(line, "require ")
		} else if !inRequire {
			continue
		}

		req, indirect, ok := parseRequireLine(line)
		if !ok || seen[req.Path] {
			continue
		}
		// Garbage lines in hand-edited files are skipped, not fatal.
		if errors.ValidateGoModulePath(req.Path) != nil {
			continue
		}
		seen[req.Path] = true
		if indirect {
			mod.Indirect = append(mod.Indirect, req)
		} else {
			mod.Direct = append(mod.Direct, req)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return mod, nil
}

func parseRequireLine(line string) (req Require, indirect bool, ok bool) {
	indirect = strings.Contains(line, "// indirect")

	// Remove inline comments
	if idx := strings.Index(line, "//"); idx != -1 {
		line = line[:idx]
	}

	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return Require{}, false, false
	}
	req.Path = fields[0]
	if len(fields) > 1 {
		req.Version = fields[1]
	}
	return req, indirect, true
}
