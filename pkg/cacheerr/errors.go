// Package cacheerr defines the closed error taxonomy used across the cache
// core. Every fallible operation in pkg/ode, pkg/vc and
// pkg/rangeengine returns one of these kinds, wrapped with enough context to
// log the object key and fragment index at the propagation boundary.
package cacheerr

import "fmt"

// Kind is one of the closed set of error kinds the cache core can return.
type Kind int

const (
	// NotReady indicates the subsystem (ODE registry, cache) has not
	// finished initializing.
	NotReady Kind = iota
	// NoDoc indicates the requested key was not found.
	NoDoc
	// AltMiss indicates no alternate matched the request.
	AltMiss
	// DocBusy indicates the lookup would block on a writer.
	DocBusy
	// BadMetaData indicates a serialization inconsistency in the alt vector
	// or header block.
	BadMetaData
	// UnsatisfiableRange indicates every requested range fell outside the
	// object.
	UnsatisfiableRange
	// Truncated indicates a disk read returned less data than the metadata
	// claimed.
	Truncated
	// Corrupt indicates a magic or checksum mismatch.
	Corrupt
	// WriterGone indicates a waiting reader's writer disappeared before
	// completing the fragment.
	WriterGone
)

func (k Kind) String() string {
	switch k {
	case NotReady:
		return "NotReady"
	case NoDoc:
		return "NoDoc"
	case AltMiss:
		return "AltMiss"
	case DocBusy:
		return "DocBusy"
	case BadMetaData:
		return "BadMetaData"
	case UnsatisfiableRange:
		return "UnsatisfiableRange"
	case Truncated:
		return "Truncated"
	case Corrupt:
		return "Corrupt"
	case WriterGone:
		return "WriterGone"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by the cache core. It carries
// the taxonomy kind plus an optional wrapped cause (e.g. an I/O error from a
// collaborator) so callers can both branch on Kind and unwrap to the root
// cause.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "ode.OpenRead"
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *Error with the same Kind, so callers can
// use errors.Is(err, cacheerr.New(cacheerr.AltMiss, "", "")) style checks.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error for the given kind.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap constructs an *Error for the given kind with a wrapped cause.
func Wrap(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// Of returns a sentinel *Error of the given kind suitable for use with
// errors.Is when the caller doesn't need Op/Message/Cause detail.
func Of(kind Kind) *Error {
	return &Error{Kind: kind}
}
