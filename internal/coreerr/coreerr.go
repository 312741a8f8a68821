// Package coreerr defines the closed set of error kinds the core
// recognizes, modeled as an explicit result type rather than
// control-flow panics.
package coreerr

import "fmt"

// Kind classifies a core error for propagation-policy decisions: per-file
// Format/Integrity errors let a workflow continue with remaining files;
// Contract/External/Collision errors abort the current workflow.
type Kind int

const (
	Format Kind = iota
	Integrity
	Contract
	Collision
	External
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case Format:
		return "format"
	case Integrity:
		return "integrity"
	case Contract:
		return "contract"
	case Collision:
		return "collision"
	case External:
		return "external"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Fatal reports whether an error of this kind should abort the current
// workflow rather than being recorded and skipped.
func (k Kind) Fatal() bool {
	switch k {
	case Contract, Collision, External, Cancelled:
		return true
	default:
		return false
	}
}

// Error is a single classified core error, optionally scoped to a path.
type Error struct {
	Kind    Kind
	Path    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a classified error.
func New(kind Kind, path, message string, err error) *Error {
	return &Error{Kind: kind, Path: path, Message: message, Err: err}
}

// Wrapf wraps err with a Kind and a formatted "doing X: %w" message.
func Wrapf(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}
