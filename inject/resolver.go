package inject

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// resolver drives one resolution: a depth-first walk of a callable's
// dependency tree over the scope chain. Sibling dependencies resolve
// sequentially; suspension only ever happens inside provider bodies, so the
// resolver's own bookkeeping needs no synchronization beyond the scopes'.
type resolver struct {
	reg *Registry

	// at is the scope the walk currently constructs into. Dependencies of
	// an application-scoped binding resolve relative to the application
	// scope, never into a shorter-lived one.
	at *scope

	// path holds the targets currently under construction, for cycle
	// detection.
	path []reflect.Type
}

func newResolver(reg *Registry, at *scope) *resolver {
	return &resolver{reg: reg, at: at}
}

// resolveTarget resolves a single target type through its owning scope.
func (r *resolver) resolveTarget(ctx context.Context, target reflect.Type) (reflect.Value, error) {
	for _, t := range r.path {
		if t == target {
			return reflect.Value{}, r.cycleError(target)
		}
	}

	b, err := r.reg.lookup(target)
	if err != nil {
		return reflect.Value{}, err
	}

	owner := r.at.find(b.scope)

	r.path = append(r.path, target)
	saved := r.at
	r.at = owner
	v, err := owner.getOrCreate(ctx, target, func(ctx context.Context) (reflect.Value, Teardown, error) {
		return r.construct(ctx, b)
	})
	r.at = saved
	r.path = r.path[:len(r.path)-1]

	return v, err
}

// construct resolves a binding's dependencies and invokes its provider.
// The context is checked before invocation so a cancelled resolution stops
// at the next provider boundary; everything built so far already has its
// teardown registered.
func (r *resolver) construct(ctx context.Context, b *binding) (reflect.Value, Teardown, error) {
	args, err := r.resolveDeps(ctx, b.provider)
	if err != nil {
		return reflect.Value{}, nil, err
	}
	if err := ctx.Err(); err != nil {
		return reflect.Value{}, nil, err
	}

	v, td, err := b.provider.call(ctx, args)
	if err != nil {
		return reflect.Value{}, nil, fmt.Errorf("constructing %s: %w", b.target, err)
	}
	if td == nil {
		td = b.teardown
	}
	return v, td, nil
}

// resolveDeps resolves each declared parameter of a provider or callable.
func (r *resolver) resolveDeps(ctx context.Context, p *providerFunc) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(p.deps))
	for i, dep := range p.deps {
		v, err := r.resolveTarget(ctx, dep)
		if err != nil {
			if errors.Is(err, ErrImplicitBinding) {
				return nil, fmt.Errorf("%w (required by %s)", err, p.name)
			}
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// resolveCallable satisfies Graph.Resolve: a callable that is itself a
// registered provider resolves through its declared scope and is cached
// there; any other callable resolves ephemerally — its dependencies cached
// per their scopes, its own result never cached. An ephemeral teardown is
// pushed onto the innermost scope.
func (r *resolver) resolveCallable(ctx context.Context, fn any) (any, error) {
	val := reflect.ValueOf(fn)
	if val.Kind() == reflect.Func {
		if b := r.reg.byProvider(val); b != nil {
			out, err := r.resolveTarget(ctx, b.target)
			if err != nil {
				return nil, err
			}
			return out.Interface(), nil
		}
	}

	p, err := parseProvider(fn)
	if err != nil {
		return nil, err
	}

	args, err := r.resolveDeps(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, td, err := p.call(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("invoking %s: %w", p.name, err)
	}
	if td != nil {
		target := p.out
		if target == nil {
			target = val.Type()
		}
		if err := r.at.pushTeardown(target, td); err != nil {
			return nil, err
		}
	}

	if !out.IsValid() {
		return nil, nil
	}
	return out.Interface(), nil
}

// cycleError formats the active resolution path, e.g. "A -> B -> A".
func (r *resolver) cycleError(target reflect.Type) error {
	names := make([]string, 0, len(r.path)+1)
	for _, t := range r.path {
		names = append(names, t.String())
	}
	names = append(names, target.String())
	return fmt.Errorf("%w: %s", ErrCyclicDependency, strings.Join(names, " -> "))
}
