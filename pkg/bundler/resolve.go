package bundler

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Resolver maps (requester, specifier) pairs to canonical file paths.
// Resolution is requester-relative: the same specifier can resolve to
// different files depending on which file imports it.
type Resolver struct{}

// Resolve maps an import specifier to the canonical path of the file it
// denotes. Relative specifiers are joined against the requester's directory;
// bare specifiers walk the requester's ancestor directories and check the
// node_modules directory at each level, closest ancestor first.
func (r *Resolver) Resolve(requesterPath, specifier string) (string, error) {
	if isRelative(specifier) {
		base := filepath.Join(filepath.Dir(requesterPath), filepath.FromSlash(specifier))
		if found, ok := probeFile(base); ok {
			return canonicalPath(found)
		}
		return "", &ResolutionError{Requester: requesterPath, Specifier: specifier}
	}

	dir := filepath.Dir(requesterPath)
	for {
		candidate := filepath.Join(dir, "node_modules", filepath.FromSlash(specifier))
		if found, ok := resolvePackage(candidate); ok {
			return canonicalPath(found)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", &ResolutionError{Requester: requesterPath, Specifier: specifier}
}

func isRelative(specifier string) bool {
	return specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}

// probeFile checks the literal path first and then the path with a .js
// extension appended.
func probeFile(path string) (string, bool) {
	if isFile(path) {
		return path, true
	}
	if isFile(path + ".js") {
		return path + ".js", true
	}
	return "", false
}

// resolvePackage applies the package-resolution convention to a node_modules
// candidate: a file wins as-is, a directory resolves through its
// package.json main entry and falls back to index.js.
func resolvePackage(path string) (string, bool) {
	if found, ok := probeFile(path); ok {
		return found, true
	}

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return "", false
	}

	if main := packageMain(filepath.Join(path, "package.json")); main != "" {
		if found, ok := probeFile(filepath.Join(path, filepath.FromSlash(main))); ok {
			return found, true
		}
	}

	return probeFile(filepath.Join(path, "index.js"))
}

// packageMain reads the main entry from a package.json. A missing or
// malformed manifest falls back to the index.js convention, it's not an
// error.
func packageMain(manifestPath string) string {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return ""
	}

	var manifest struct {
		Main string `json:"main"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return ""
	}
	return manifest.Main
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// canonicalPath normalizes a path into the unique identity used as a module's
// cache key.
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", eris.Wrapf(err, "failed to canonicalize %s", path)
	}
	return filepath.Clean(abs), nil
}
