package bundler

import (
	"github.com/ngld/webbundle/pkg/jsparse"
)

// Module is one loaded source file. A Module is uniquely identified by its
// canonical path; the cache guarantees no two instances exist for the same
// path within one build. Deps references Modules (never raw paths) once
// initialization completes and follows the order the import statements appear
// in the source.
type Module struct {
	// Path is the canonical absolute file path, the unique key for this
	// module.
	Path string

	// Kind names the registered module kind that loaded this file, fixed at
	// load time.
	Kind string

	// Raw is the file content as read from disk.
	Raw []byte

	// Parsed is the front-end tree; only populated for the script kind.
	Parsed *jsparse.File

	// ImportSpecifiers lists the module specifiers this file references, in
	// source order. Populated by the kind handler's Load; empty for kinds
	// that don't participate in dependency discovery.
	ImportSpecifiers []string

	// Resolved maps each import specifier to the canonical path it resolved
	// to. The transform uses this to rewrite specifiers into runtime module
	// keys, decoupling a module's on-disk location from its original
	// specifier text.
	Resolved map[string]string

	// Deps holds the direct dependencies, one entry per import statement.
	Deps []*Module

	transformed    string
	transformedSet bool
}
