// Package result defines the outcome type threaded through every stage of
// the evaluation pipeline.
//
// A Res is one of five variants. Success carries a value; every other
// variant short-circuits the remaining pipeline stages. Failures are always
// handed back as data; no stage converts a Failure into a panic.
package result

import "fmt"

// Kind enumerates the variants of Res.
type Kind int

const (
	// Success indicates that the stage produced a value.
	Success Kind = iota
	// Failure indicates that the stage failed. The fragment is abandoned
	// but the session continues.
	Failure
	// Exit indicates that clean session termination was requested.
	Exit
	// Skip indicates that the fragment intentionally produced nothing,
	// such as blank input.
	Skip
	// Buffer indicates that the fragment is syntactically incomplete and
	// must be concatenated with the next input before retrying.
	Buffer
)

// String returns the name of the kind, for error messages and tests.
func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Exit:
		return "exit"
	case Skip:
		return "skip"
	case Buffer:
		return "buffer"
	}
	return fmt.Sprintf("bad kind %d", int(k))
}

// Res is a five-way outcome. The zero value is a Success carrying the zero
// value of T.
type Res[T any] struct {
	kind Kind
	val  T
	err  error
	buf  string
}

// OK returns a Success carrying v.
func OK[T any](v T) Res[T] { return Res[T]{kind: Success, val: v} }

// Fail returns a Failure carrying err.
func Fail[T any](err error) Res[T] { return Res[T]{kind: Failure, err: err} }

// Exited returns an Exit.
func Exited[T any]() Res[T] { return Res[T]{kind: Exit} }

// Skipped returns a Skip.
func Skipped[T any]() Res[T] { return Res[T]{kind: Skip} }

// Buffered returns a Buffer carrying the partial text accumulated so far.
func Buffered[T any](partial string) Res[T] {
	return Res[T]{kind: Buffer, buf: partial}
}

// Kind returns the variant of r.
func (r Res[T]) Kind() Kind { return r.kind }

// Value returns the value of a Success and whether r is a Success.
func (r Res[T]) Value() (T, bool) { return r.val, r.kind == Success }

// Must returns the value of a Success and panics otherwise. It is intended
// for tests.
func (r Res[T]) Must() T {
	if r.kind != Success {
		panic(fmt.Sprintf("Must called on %v", r.kind))
	}
	return r.val
}

// Err returns the reason of a Failure, or nil for any other variant.
func (r Res[T]) Err() error { return r.err }

// Partial returns the partial text of a Buffer, or "" for any other
// variant.
func (r Res[T]) Partial() string { return r.buf }

// Map applies f to the value of a Success, and passes any other variant
// through unchanged.
func Map[A, B any](r Res[A], f func(A) B) Res[B] {
	if r.kind != Success {
		return carry[A, B](r)
	}
	return OK(f(r.val))
}

// FlatMap sequences two stages: if r is a Success, it applies f to the
// value; any other variant is passed through unchanged and f is never
// called.
func FlatMap[A, B any](r Res[A], f func(A) Res[B]) Res[B] {
	if r.kind != Success {
		return carry[A, B](r)
	}
	return f(r.val)
}

// carry transports a non-Success variant across value types.
func carry[A, B any](r Res[A]) Res[B] {
	return Res[B]{kind: r.kind, err: r.err, buf: r.buf}
}
