package bundler

import (
	"fmt"
)

// ResolutionError indicates that an import specifier could not be mapped to a
// file. It names the requesting file so the faulting import statement can be
// located.
type ResolutionError struct {
	Requester string
	Specifier string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve %q imported from %s", e.Specifier, e.Requester)
}

// UnsupportedKindError indicates that a file's extension has no registered
// module kind.
type UnsupportedKindError struct {
	Path string
	Ext  string
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("no module kind registered for extension %q (%s)", e.Ext, e.Path)
}
