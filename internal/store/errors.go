package store

import (
	"errors"
	"fmt"
)

// Kind classifies every error a Store returns.
type Kind uint8

const (
	// KindNotFound: a category has no backing namespace. A missing key is
	// not an error.
	KindNotFound Kind = iota + 1
	// KindInvalidData: caller input violates a structural precondition.
	KindInvalidData
	// KindInternal: the engine or the filesystem failed.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalidData:
		return "invalid data"
	case KindInternal:
		return "internal error"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by Store implementations.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrInvalidData = &Error{Kind: KindInvalidData}
	ErrInternal    = &Error{Kind: KindInternal}
)

func (e *Error) Error() string {
	switch {
	case e.Detail != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a sentinel of the same kind. A target carrying a detail only
// matches an error with the same detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Detail == "" || t.Detail == e.Detail
}

// NotFound reports a category with no backing namespace.
func NotFound(cat Category) error {
	return &Error{Kind: KindNotFound, Detail: fmt.Sprintf("no namespace for category %s", cat)}
}

// InvalidData reports a structural precondition violation.
func InvalidData(detail string) error {
	return &Error{Kind: KindInvalidData, Detail: detail}
}

// Internal wraps an engine or filesystem failure. cause may be nil.
func Internal(detail string, cause error) error {
	return &Error{Kind: KindInternal, Detail: detail, Err: cause}
}

// KindOf returns the Kind of err, or 0 when err is nil or not a store error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
