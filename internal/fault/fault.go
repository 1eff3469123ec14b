// Package fault defines the error taxonomy shared across the module.
package fault

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// Configuration: a required credential or setting is missing and the
	// operation cannot run at all.
	Configuration Kind = iota + 1
	// Validation: caller-supplied input is insufficient; nothing was attempted.
	Validation
	// Embedding: the embedding provider failed to initialize or to embed.
	Embedding
	// Storage: the memory or novel store failed; distinct from an empty result.
	Storage
	// Stream: the completion stream broke mid-flight; applied deltas stand.
	Stream
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Validation:
		return "validation"
	case Embedding:
		return "embedding"
	case Storage:
		return "storage"
	case Stream:
		return "stream"
	}
	return "unknown"
}

// Error carries a kind, the failing operation, and an optional cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error from a formatted message.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches a kind and operation to an underlying error.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsKind reports whether any error in err's chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}
