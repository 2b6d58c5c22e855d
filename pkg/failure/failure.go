// Package failure defines the typed failures every pipeline stage reports.
//
// A *Error keeps the original diagnostic of the library call that failed so the
// presentation layer can show it verbatim.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	Unknown Kind = iota
	NotFound
	Empty
	SchemaViolation
	ParseFailure
	JoinIntegrityViolation
	ModelNotFit
	PersistenceFailure
)

var kindNames = map[Kind]string{
	Unknown:                "Unknown",
	NotFound:               "NotFound",
	Empty:                  "Empty",
	SchemaViolation:        "SchemaViolation",
	ParseFailure:           "ParseFailure",
	JoinIntegrityViolation: "JoinIntegrityViolation",
	ModelNotFit:            "ModelNotFit",
	PersistenceFailure:     "PersistenceFailure",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a failure raised by one stage. Op names the operation, Err is the
// underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err as a failure of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a failure from a formatted message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
