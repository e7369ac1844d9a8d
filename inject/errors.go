package inject

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateBinding is returned when a provider for an already-bound
	// target is registered without going through [Graph.Override].
	ErrDuplicateBinding = errors.New("duplicate binding")

	// ErrImplicitBinding is returned when resolution reaches a target that
	// has no registered provider and does not opt into [Implicit]
	// construction. The error message names the target and, when resolved
	// as a dependency, the callable that requested it.
	ErrImplicitBinding = errors.New("no binding for target")

	// ErrCyclicDependency is returned when a target depends, directly or
	// transitively, on itself. The error message includes the full chain.
	ErrCyclicDependency = errors.New("cyclic dependency detected")

	// ErrScopeClosed is returned when operating on a graph or scope that
	// has already been closed. Closed is terminal.
	ErrScopeClosed = errors.New("scope closed")

	// ErrNotOpened is returned when Resolve, Chain or Close is called on a
	// graph that was never opened.
	ErrNotOpened = errors.New("graph not opened")

	// ErrAlreadyOpened is returned when Open is called twice, or when a
	// binding is registered after the graph has opened.
	ErrAlreadyOpened = errors.New("graph already opened")

	// ErrInvalidProvider is returned when a registered provider or resolved
	// callable does not have a supported function signature.
	ErrInvalidProvider = errors.New("invalid provider")
)

// TeardownError aggregates every failure encountered while running a scope's
// teardown stack. All pending teardown actions execute regardless of earlier
// failures; nothing is silently dropped. Failures appear in execution order,
// so Failures[0] is the primary cause.
type TeardownError struct {
	Failures []error
}

// Error implements the error interface.
func (e *TeardownError) Error() string {
	switch len(e.Failures) {
	case 0:
		return "teardown failed"
	case 1:
		return fmt.Sprintf("teardown failed: %v", e.Failures[0])
	default:
		msgs := make([]string, len(e.Failures))
		for i, f := range e.Failures {
			msgs[i] = f.Error()
		}
		return fmt.Sprintf("teardown failed (%d errors): %s", len(e.Failures), strings.Join(msgs, "; "))
	}
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *TeardownError) Unwrap() []error { return e.Failures }

// mergeTeardownErrors folds the non-nil errors into a single *TeardownError,
// flattening nested TeardownErrors so Close reports one aggregate.
func mergeTeardownErrors(errs ...error) error {
	var failures []error
	for _, err := range errs {
		if err == nil {
			continue
		}
		var te *TeardownError
		if errors.As(err, &te) {
			failures = append(failures, te.Failures...)
		} else {
			failures = append(failures, err)
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return &TeardownError{Failures: failures}
}
