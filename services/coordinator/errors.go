package coordinator

import (
	"errors"
	"fmt"
)

var (
	// ErrAssignmentRejected means no user could be resolved for an
	// unassigned reading. The reading is dropped, nothing is written.
	ErrAssignmentRejected = errors.New("no user resolvable for reading")

	// ErrNoSelectedUser is returned by operations that need a selected user
	// when none is configured.
	ErrNoSelectedUser = errors.New("no user selected")

	// Import parse failure causes. An ImportError wraps exactly one of them.
	ErrBadColumnCount = errors.New("column number mismatch")
	ErrBadDate        = errors.New(`bad date format, expected <31.12.2014 05:23>`)
	ErrBadNumber      = errors.New("bad float number")
)

// ImportError reports the line at which a CSV import failed and why. Rows
// inserted before the failing line stay in the store.
type ImportError struct {
	Line int
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import line %d: %v", e.Line, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }
