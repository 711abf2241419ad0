package object

import (
	"context"
	"errors"
	"fmt"
)

// Common errors returned by implementations. Backends wrap them together with
// the underlying cause, so both errors.Is(err, ErrNotFound) and errors.As on
// the SDK error keep working.
var (
	ErrNotFound         = errors.New("object not found")
	ErrConflict         = errors.New("object already exists")
	ErrPermissionDenied = errors.New("permission denied")
	ErrTransient        = errors.New("transient backend failure")
	ErrInvalidArgument  = errors.New("invalid argument")
)

// Kind is the coarse class of a storage failure.
type Kind int

const (
	KindNone Kind = iota
	KindNotFound
	KindPermissionDenied
	KindTransient
	KindConflict
	KindInvalid
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindTransient:
		return "transient"
	case KindConflict:
		return "conflict"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// KindOf classifies err. A nil error is KindNone.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrTransient),
		errors.Is(err, context.DeadlineExceeded):
		return KindTransient
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalid
	default:
		return KindUnknown
	}
}

// Tag joins a sentinel with its cause: "object not found: <cause>".
func Tag(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}
