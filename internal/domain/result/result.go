// Package result defines the outcome type returned by domain operations.
//
// Expected conditions (missing entities, failed business preconditions) are
// reported through a Result instead of an error so callers have to branch on
// the Kind before touching the value.
package result

import (
	"context"

	"github.com/go-faster/errors"
)

// Kind identifies the active variant of a Result.
type Kind uint8

const (
	kindUnset Kind = iota
	// KindSuccess carries a value.
	KindSuccess
	// KindNotFound reports that a referenced entity does not exist.
	KindNotFound
	// KindInvalid reports caller input that fails a business precondition.
	KindInvalid
	// KindError reports an unexpected or internal failure.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid"
	case KindError:
		return "error"
	default:
		return "unset"
	}
}

// FieldError is a machine-readable validation failure, e.g. "missing_cart".
type FieldError struct {
	Code    string
	Message string
}

// Result is a tagged outcome. Exactly one Kind is active; Value is only
// meaningful when Kind is KindSuccess.
type Result[T any] struct {
	kind    Kind
	value   T
	message string
	fields  []FieldError
	cause   error
}

// Success wraps v.
func Success[T any](v T) Result[T] {
	return Result[T]{kind: KindSuccess, value: v}
}

// NotFound reports a missing entity.
func NotFound[T any]() Result[T] {
	return Result[T]{kind: KindNotFound, message: "not found"}
}

// Invalid reports a failed business precondition with optional field errors.
func Invalid[T any](message string, fields ...FieldError) Result[T] {
	return Result[T]{kind: KindInvalid, message: message, fields: fields}
}

// Fail reports an unexpected failure. The cause may be nil.
func Fail[T any](message string, cause error) Result[T] {
	return Result[T]{kind: KindError, message: message, cause: cause}
}

// Canceled reports that ctx ended before the operation could finish.
func Canceled[T any](ctx context.Context) Result[T] {
	return Fail[T]("operation canceled", ctx.Err())
}

// Kind returns the active variant.
func (r Result[T]) Kind() Kind { return r.kind }

// OK reports whether r is a success.
func (r Result[T]) OK() bool { return r.kind == KindSuccess }

// Value returns the success value, or the zero value of T for other kinds.
func (r Result[T]) Value() T { return r.value }

// Message returns the human-readable description of a non-success outcome.
func (r Result[T]) Message() string { return r.message }

// Fields returns field errors attached to an Invalid result.
func (r Result[T]) Fields() []FieldError { return r.fields }

// Err returns nil for successes and a descriptive error otherwise.
func (r Result[T]) Err() error {
	switch r.kind {
	case KindSuccess:
		return nil
	case KindError:
		if r.cause != nil {
			return errors.Wrap(r.cause, r.message)
		}
		return errors.New(r.message)
	case kindUnset:
		return errors.New("unset result")
	default:
		return errors.New(r.message)
	}
}

// Canceled reports whether the failure was caused by context cancellation or
// deadline expiry.
func (r Result[T]) Canceled() bool {
	if r.kind != KindError || r.cause == nil {
		return false
	}
	return errors.Is(r.cause, context.Canceled) || errors.Is(r.cause, context.DeadlineExceeded)
}
