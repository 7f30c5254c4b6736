// Package aierrors implements the typed error sum used across the
// active inference core. Each numerical kernel or subsystem returns an
// *Error carrying a Kind so callers can recover locally instead of
// unwinding the stack.
package aierrors

import "fmt"

// Kind discriminates the error categories named in spec.md §7.
type Kind string

const (
	// InvariantViolation is fatal for the calling operation: a tensor
	// wrote a non-stochastic row/column, a negative probability, or a
	// non-finite value.
	InvariantViolation Kind = "invariant_violation"

	// DegenerateObservation marks an observation that is incompatible
	// with the current belief (a zero-probability event). Recovered
	// locally by falling back to a uniform belief.
	DegenerateObservation Kind = "degenerate_observation"

	// BudgetExceeded marks a best-effort result returned after an
	// inference or planning budget (time or iterations) ran out.
	BudgetExceeded Kind = "budget_exceeded"

	// InvalidTransition marks a state-machine rule violation.
	InvalidTransition Kind = "invalid_transition"

	// ResourceExhausted marks insufficient energy or memory; the
	// caller substitutes a cheaper action.
	ResourceExhausted Kind = "resource_exhausted"

	// ExternalFailure marks an error surfaced by the world, messaging,
	// or persistence collaborators.
	ExternalFailure Kind = "external_failure"

	// ParseError marks a malformed model-definition file.
	ParseError Kind = "parse_error"
)

// Error is the concrete error type returned by core operations. It
// always carries a Kind so callers can switch on category without
// string matching.
type Error struct {
	Kind Kind
	Op   string // the operation that failed, e.g. "genmodel.Discrete.UpdateParams"
	Err  error  // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs an *Error of the given Kind.
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Is reports whether err (or anything it wraps) is an *Error of kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Err
			continue
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
