package inject

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"sync"
)

// ── Scope levels ─────────────────────────────────────────────────────────────

// ScopeLevel names a lifetime boundary in the scope chain.
type ScopeLevel int

const (
	// Application is the outermost level: instances live until the graph
	// that opened the application scope closes.
	Application ScopeLevel = iota

	// Request is the innermost level: instances live until the chained
	// graph (or the throwaway scope wrapping a single resolution) closes.
	Request
)

// String returns the human-readable name of the level.
func (l ScopeLevel) String() string {
	switch l {
	case Application:
		return "application"
	case Request:
		return "request"
	default:
		return "unknown"
	}
}

// ── Scope ────────────────────────────────────────────────────────────────────

type scopeState int

const (
	scopePending scopeState = iota
	scopeOpen
	scopeClosed
)

// scope owns an instance cache and a teardown stack for one lifetime
// boundary. Scopes form a chain (request → application); resolution walks
// the chain to find the level a binding belongs to.
//
// A scope is entered exactly once and exited exactly once. The per-target
// locks make the shared application scope safe when several chained graphs
// resolve into it at the same time: each singleton is constructed exactly
// once.
type scope struct {
	level  ScopeLevel
	parent *scope

	mu        sync.Mutex
	locks     map[reflect.Type]*sync.Mutex
	instances map[reflect.Type]reflect.Value
	order     []reflect.Type
	teardowns []scopeTeardown
	state     scopeState
}

// scopeTeardown is one entry on the teardown stack.
type scopeTeardown struct {
	target  reflect.Type
	release Teardown
}

func newScope(level ScopeLevel, parent *scope) *scope {
	return &scope{level: level, parent: parent}
}

// enter allocates the cache and teardown stack, then constructs every eager
// binding declared at this scope's level, in registration order. Teardowns
// of partially-constructed eager chains are already on the stack when enter
// fails, so a subsequent exit releases them.
func (s *scope) enter(ctx context.Context, r *resolver) error {
	s.mu.Lock()
	switch s.state {
	case scopeOpen:
		s.mu.Unlock()
		return fmt.Errorf("%w: %s scope entered twice", ErrAlreadyOpened, s.level)
	case scopeClosed:
		s.mu.Unlock()
		return fmt.Errorf("%w: %s scope", ErrScopeClosed, s.level)
	}
	s.locks = make(map[reflect.Type]*sync.Mutex)
	s.instances = make(map[reflect.Type]reflect.Value)
	s.state = scopeOpen
	s.mu.Unlock()

	for _, b := range r.reg.eager(s.level) {
		if _, err := r.resolveTarget(ctx, b.target); err != nil {
			return err
		}
	}
	return nil
}

// getOrCreate returns the cached instance for target, or invokes build,
// pushes the yielded teardown, caches the result and returns it. The
// teardown is on the stack before getOrCreate returns, so no constructed
// resource is ever left untracked, even when a later sibling dependency
// fails.
func (s *scope) getOrCreate(ctx context.Context, target reflect.Type, build func(context.Context) (reflect.Value, Teardown, error)) (reflect.Value, error) {
	lk, err := s.lockFor(target)
	if err != nil {
		return reflect.Value{}, err
	}
	lk.Lock()
	defer lk.Unlock()

	s.mu.Lock()
	v, ok := s.instances[target]
	s.mu.Unlock()
	if ok {
		return v, nil
	}

	v, td, err := build(ctx)
	if err != nil {
		return reflect.Value{}, err
	}

	if td == nil {
		if closer, ok := v.Interface().(io.Closer); ok {
			td = func(context.Context) error { return closer.Close() }
		}
	}

	s.mu.Lock()
	if td != nil {
		s.teardowns = append(s.teardowns, scopeTeardown{target: target, release: td})
	}
	s.instances[target] = v
	s.order = append(s.order, target)
	s.mu.Unlock()

	return v, nil
}

// pushTeardown records a release action for a resource created outside the
// instance cache (an ephemeral callable's own teardown).
func (s *scope) pushTeardown(target reflect.Type, td Teardown) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != scopeOpen {
		return fmt.Errorf("%w: %s scope", ErrScopeClosed, s.level)
	}
	s.teardowns = append(s.teardowns, scopeTeardown{target: target, release: td})
	return nil
}

// lockFor returns the per-target construction lock, creating it on first
// use. Double-checked so concurrent chained graphs sharing this scope do not
// race on lock creation.
func (s *scope) lockFor(target reflect.Type) (*sync.Mutex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != scopeOpen {
		return nil, fmt.Errorf("%w: %s scope", ErrScopeClosed, s.level)
	}
	lk, ok := s.locks[target]
	if !ok {
		lk = &sync.Mutex{}
		s.locks[target] = lk
	}
	return lk, nil
}

// exit pops and runs the teardown stack from most recently created to
// oldest. A failing teardown is recorded and execution continues; every
// registered resource gets its chance to release. Failures aggregate into a
// single *TeardownError with the first failure as primary cause.
func (s *scope) exit(ctx context.Context) error {
	s.mu.Lock()
	if s.state != scopeOpen {
		state := s.state
		s.mu.Unlock()
		if state == scopeClosed {
			return fmt.Errorf("%w: %s scope exited twice", ErrScopeClosed, s.level)
		}
		return fmt.Errorf("%w: %s scope never entered", ErrNotOpened, s.level)
	}
	tds := s.teardowns
	s.teardowns = nil
	s.instances = nil
	s.order = nil
	s.state = scopeClosed
	s.mu.Unlock()

	var failures []error
	for i := len(tds) - 1; i >= 0; i-- {
		if err := tds[i].release(ctx); err != nil {
			failures = append(failures, fmt.Errorf("releasing %s: %w", tds[i].target, err))
		}
	}
	if len(failures) > 0 {
		return &TeardownError{Failures: failures}
	}
	return nil
}

// find walks the chain from this scope outwards looking for the given
// level. Falls back to the innermost scope so dependencies of an
// application-scoped binding resolve into the application scope rather than
// straddling levels.
func (s *scope) find(level ScopeLevel) *scope {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.level == level {
			return cur
		}
	}
	return s
}
