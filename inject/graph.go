package inject

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ── State machine ────────────────────────────────────────────────────────────

type graphState int

const (
	stateUnopened graphState = iota
	stateOpen
	stateClosed // terminal
)

// ── Graph ────────────────────────────────────────────────────────────────────

// Graph owns an ordered chain of scopes (application → request) over a
// binding [Registry] and is the engine's façade: register, open, resolve,
// chain, close.
//
// Lifecycle is Unopened → Open → Closed, and Closed is terminal: every
// operation on a closed graph fails with [ErrScopeClosed].
//
// A Graph is not designed for concurrent use. Concurrent units of work each
// call [Graph.Chain] for their own graph; chained graphs share the parent's
// application-scoped instances safely.
type Graph struct {
	reg *Registry

	app     *scope
	req     *scope // owned request scope; nil on a root graph
	ownsApp bool

	mu       sync.Mutex
	state    graphState
	restores []func()
}

// New creates an unopened graph with a fresh registry.
func New() *Graph {
	return &Graph{reg: NewRegistry(), ownsApp: true}
}

// NewWithRegistry creates an unopened graph over an existing registry. The
// graph references the registry, it does not own it: several graphs may be
// opened (sequentially or side by side) over the same set of bindings, each
// with independent scopes.
func NewWithRegistry(reg *Registry) *Graph {
	return &Graph{reg: reg, ownsApp: true}
}

// Registry returns the graph's binding registry.
func (g *Graph) Registry() *Registry { return g.reg }

// ── Registration ─────────────────────────────────────────────────────────────

// Register adds a provider to the underlying registry. Valid only before
// the graph opens.
func (g *Graph) Register(provider any, opts ...Option) error {
	if err := g.requireUnopened(); err != nil {
		return err
	}
	return g.reg.Register(provider, opts...)
}

// RegisterValue binds an already-built value. Valid only before the graph
// opens.
func (g *Graph) RegisterValue(value any, opts ...Option) error {
	if err := g.requireUnopened(); err != nil {
		return err
	}
	return g.reg.RegisterValue(value, opts...)
}

// ── Lifecycle ────────────────────────────────────────────────────────────────

// Open enters the application scope, eagerly constructing every eager
// application-scoped binding in registration order.
func (g *Graph) Open() error { return g.OpenContext(context.Background()) }

// OpenContext is Open driven by the caller's context; eager providers that
// accept a context receive ctx.
//
// If an eager provider fails, everything constructed up to that point is
// torn down and the graph transitions to Closed.
func (g *Graph) OpenContext(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case stateOpen:
		return ErrAlreadyOpened
	case stateClosed:
		return fmt.Errorf("%w: graph", ErrScopeClosed)
	}

	g.reg.freeze()
	g.app = newScope(Application, nil)

	if err := g.app.enter(ctx, newResolver(g.reg, g.app)); err != nil {
		g.state = stateClosed
		if cerr := g.app.exit(ctx); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return err
	}

	g.state = stateOpen
	return nil
}

// Close exits the graph's scopes from innermost to outermost, running their
// teardown stacks in reverse creation order, and transitions to Closed.
// Outstanding overrides are reverted first. Teardown failures aggregate into
// a single *TeardownError; every pending action still runs.
//
// A chained graph closes only the request scope it owns; the parent alone
// closes the shared application scope.
func (g *Graph) Close() error { return g.CloseContext(context.Background()) }

// CloseContext is Close driven by the caller's context, passed through to
// every teardown action.
func (g *Graph) CloseContext(ctx context.Context) error {
	g.mu.Lock()
	if err := g.stateErr(); err != nil {
		g.mu.Unlock()
		return err
	}
	g.state = stateClosed
	restores := g.restores
	g.restores = nil
	g.mu.Unlock()

	for i := len(restores) - 1; i >= 0; i-- {
		restores[i]()
	}

	var reqErr, appErr error
	if g.req != nil {
		reqErr = g.req.exit(ctx)
	}
	if g.ownsApp {
		appErr = g.app.exit(ctx)
	}
	return mergeTeardownErrors(reqErr, appErr)
}

// ── Resolution ───────────────────────────────────────────────────────────────

// Resolve resolves a callable's dependencies, invokes it and returns its
// result. It drives the same core as [Graph.ResolveContext] to completion
// with a background context.
func (g *Graph) Resolve(fn any) (any, error) {
	return g.ResolveContext(context.Background(), fn)
}

// ResolveContext resolves fn under the caller's context. Cancellation is
// observed between provider invocations; everything constructed before the
// cancellation already has its teardown registered, so Close still releases
// it.
//
// A callable that is itself a registered provider resolves inside its
// declared scope and is cached there. Any other callable resolves
// ephemerally: its own result is never cached, while its dependencies cache
// normally per their declared scopes. On a graph without a chained request
// scope, a throwaway request scope wraps the call and is torn down before
// ResolveContext returns.
func (g *Graph) ResolveContext(ctx context.Context, fn any) (any, error) {
	if err := g.requireOpen(); err != nil {
		return nil, err
	}
	if g.req != nil {
		return newResolver(g.reg, g.req).resolveCallable(ctx, fn)
	}
	return g.inThrowawayScope(ctx, func(r *resolver) (any, error) {
		return r.resolveCallable(ctx, fn)
	})
}

// resolveTargetAny resolves a target type through the scope chain; backing
// for the generic Resolve[T] helpers.
func (g *Graph) resolveTargetAny(ctx context.Context, target reflect.Type) (any, error) {
	if err := g.requireOpen(); err != nil {
		return nil, err
	}
	if g.req != nil {
		v, err := newResolver(g.reg, g.req).resolveTarget(ctx, target)
		if err != nil {
			return nil, err
		}
		return v.Interface(), nil
	}
	return g.inThrowawayScope(ctx, func(r *resolver) (any, error) {
		v, err := r.resolveTarget(ctx, target)
		if err != nil {
			return nil, err
		}
		return v.Interface(), nil
	})
}

// inThrowawayScope runs f inside a request scope that lives only for this
// call. Request-scoped dependencies created by f are torn down before the
// result is returned.
func (g *Graph) inThrowawayScope(ctx context.Context, f func(*resolver) (any, error)) (any, error) {
	req := newScope(Request, g.app)
	r := newResolver(g.reg, req)

	if err := req.enter(ctx, r); err != nil {
		if cerr := req.exit(ctx); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return nil, err
	}

	out, err := f(r)
	if terr := req.exit(ctx); terr != nil {
		err = errors.Join(err, terr)
	}
	return out, err
}

// ── Chaining ─────────────────────────────────────────────────────────────────

// Chain spawns a child graph that shares this graph's registry and
// application scope by reference and owns a freshly entered request scope.
// Application-scoped instances keep their identity across chains;
// request-scoped instances are per chain. Close the child when its unit of
// work completes — it never closes the shared application scope.
func (g *Graph) Chain() (*Graph, error) { return g.ChainContext(context.Background()) }

// ChainContext is Chain driven by the caller's context; eager request-scoped
// providers run as the child's request scope is entered.
func (g *Graph) ChainContext(ctx context.Context) (*Graph, error) {
	if err := g.requireOpen(); err != nil {
		return nil, err
	}

	child := &Graph{
		reg:   g.reg,
		app:   g.app,
		req:   newScope(Request, g.app),
		state: stateOpen,
	}
	if err := child.req.enter(ctx, newResolver(g.reg, child.req)); err != nil {
		child.state = stateClosed
		if cerr := child.req.exit(ctx); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return nil, err
	}
	return child, nil
}

// ── Overrides ────────────────────────────────────────────────────────────────

// Override temporarily replaces (or adds) a binding, the only registration
// allowed on an open graph. It is intended for tests. The returned restore
// reinstates the previous binding and may be called directly; any override
// not yet restored is reverted automatically when the graph closes.
//
// Overriding inherits the original binding's scope and eagerness unless
// options say otherwise. Instances already cached for the target keep being
// served; override before the target's first resolution, or resolve through
// a fresh chained graph.
func (g *Graph) Override(provider any, opts ...Option) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == stateClosed {
		return nil, fmt.Errorf("%w: graph", ErrScopeClosed)
	}
	restore, err := g.reg.override(provider, opts...)
	if err != nil {
		return nil, err
	}
	g.restores = append(g.restores, restore)
	return restore, nil
}

// ── State helpers ────────────────────────────────────────────────────────────

// stateErr must be called with g.mu held.
func (g *Graph) stateErr() error {
	switch g.state {
	case stateUnopened:
		return ErrNotOpened
	case stateClosed:
		return fmt.Errorf("%w: graph", ErrScopeClosed)
	}
	return nil
}

func (g *Graph) requireOpen() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateErr()
}

func (g *Graph) requireUnopened() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.state {
	case stateOpen:
		return ErrAlreadyOpened
	case stateClosed:
		return fmt.Errorf("%w: graph", ErrScopeClosed)
	}
	return nil
}

// ── Generic helpers ──────────────────────────────────────────────────────────

// Resolve resolves the binding for type T and returns the typed instance:
//
//	db, err := inject.Resolve[*Database](g)
func Resolve[T any](g *Graph) (T, error) {
	return ResolveContext[T](context.Background(), g)
}

// ResolveContext is the context-driven form of [Resolve].
func ResolveContext[T any](ctx context.Context, g *Graph) (T, error) {
	var zero T
	target := reflect.TypeOf((*T)(nil)).Elem()

	out, err := g.resolveTargetAny(ctx, target)
	if err != nil {
		return zero, err
	}
	typed, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("%s resolved to %T", target, out)
	}
	return typed, nil
}

// Call resolves fn through the graph and type-asserts its result:
//
//	report, err := inject.Call[*Report](g, buildReport)
func Call[T any](g *Graph, fn any) (T, error) {
	return CallContext[T](context.Background(), g, fn)
}

// CallContext is the context-driven form of [Call].
func CallContext[T any](ctx context.Context, g *Graph, fn any) (T, error) {
	var zero T
	out, err := g.ResolveContext(ctx, fn)
	if err != nil {
		return zero, err
	}
	typed, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("callable returned %T, want %s", out, reflect.TypeOf((*T)(nil)).Elem())
	}
	return typed, nil
}
