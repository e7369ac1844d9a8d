package inject

import (
	"fmt"
	"reflect"
	"sync"
)

// ── Binding ──────────────────────────────────────────────────────────────────

// binding holds a registered provider together with its lifetime policy.
type binding struct {
	target   reflect.Type
	provider *providerFunc
	scope    ScopeLevel
	eager    bool
	implicit bool
	teardown Teardown // release action for value bindings, see WithTeardown
}

// ── Registry ─────────────────────────────────────────────────────────────────

// Registry maps target types to providers. Targets are unique: registering a
// second provider for a bound target fails with [ErrDuplicateBinding] unless
// it goes through the explicit override surface.
//
// A registry freezes once a graph opens over it; only [Graph.Override]
// mutates bindings afterwards.
type Registry struct {
	mu       sync.RWMutex
	bindings map[reflect.Type]*binding
	order    []reflect.Type
	frozen   bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[reflect.Type]*binding),
	}
}

// Register adds a provider function. The target is inferred from the first
// result type and can be redirected with [As]. Providers default to the
// request scope, non-eager.
//
//	reg.Register(NewDatabase, inject.InApplicationScope(), inject.Eager())
func (r *Registry) Register(provider any, opts ...Option) error {
	p, err := parseProvider(provider)
	if err != nil {
		return err
	}
	if p.out == nil {
		return fmt.Errorf("%w: %s returns no value", ErrInvalidProvider, p.name)
	}

	b := &binding{target: p.out, provider: p, scope: Request}
	for _, opt := range opts {
		opt(b)
	}
	return r.add(b)
}

// RegisterValue binds an already-built value. Value bindings default to the
// application scope and are eager, mirroring the fact that the value exists
// before the graph opens. Attach a release action with [WithTeardown].
//
//	reg.RegisterValue(cfg)
//	reg.RegisterValue(conn, inject.WithTeardown(conn.Shutdown))
func (r *Registry) RegisterValue(value any, opts ...Option) error {
	if value == nil {
		return fmt.Errorf("%w: nil value", ErrInvalidProvider)
	}

	b := &binding{target: reflect.TypeOf(value), scope: Application, eager: true}
	for _, opt := range opts {
		opt(b)
	}

	val := reflect.ValueOf(value)
	if val.Type() != b.target {
		if !val.Type().AssignableTo(b.target) {
			return fmt.Errorf("%w: value of type %s is not assignable to %s", ErrInvalidProvider, val.Type(), b.target)
		}
		conv := reflect.New(b.target).Elem()
		conv.Set(val)
		val = conv
	}
	b.provider = valueProvider(b.target, val)
	return r.add(b)
}

func (r *Registry) add(b *binding) error {
	if out := b.provider.out; out != b.target && !out.AssignableTo(b.target) {
		return fmt.Errorf("%w: %s produces %s, not assignable to %s", ErrInvalidProvider, b.provider.name, out, b.target)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: cannot register %s", ErrAlreadyOpened, b.target)
	}
	if _, exists := r.bindings[b.target]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateBinding, b.target)
	}
	r.bindings[b.target] = b
	r.order = append(r.order, b.target)
	return nil
}

// Bound reports whether a provider is registered for the target type.
func (r *Registry) Bound(target reflect.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bindings[target]
	return ok
}

// Targets returns the registered target types in registration order.
func (r *Registry) Targets() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]reflect.Type, len(r.order))
	copy(out, r.order)
	return out
}

// lookup returns the binding for target. Unbound targets that opt into
// [Implicit] construction get a synthetic request-scoped binding; anything
// else fails with ErrImplicitBinding.
func (r *Registry) lookup(target reflect.Type) (*binding, error) {
	r.mu.RLock()
	b, ok := r.bindings[target]
	r.mu.RUnlock()

	if ok {
		return b, nil
	}
	if sb := synthesizeImplicit(target); sb != nil {
		return sb, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrImplicitBinding, target)
}

// eager returns the eager bindings declared at the given scope level, in
// registration order.
func (r *Registry) eager(level ScopeLevel) []*binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*binding
	for _, t := range r.order {
		if b := r.bindings[t]; b.eager && b.scope == level {
			out = append(out, b)
		}
	}
	return out
}

// byProvider returns the binding whose provider is the given function, used
// to detect callables that are themselves registered providers.
func (r *Registry) byProvider(fn reflect.Value) *binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ptr := fn.Pointer()
	for _, t := range r.order {
		if b := r.bindings[t]; b.provider.fn.Pointer() == ptr {
			return b
		}
	}
	return nil
}

// freeze stops further registration. Idempotent.
func (r *Registry) freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// override replaces (or adds) a binding, bypassing duplicate detection and
// the freeze. The returned restore reinstates the prior state and is safe to
// call more than once; the owning graph also runs it at close.
func (r *Registry) override(provider any, opts ...Option) (func(), error) {
	p, err := parseProvider(provider)
	if err != nil {
		return nil, err
	}
	if p.out == nil {
		return nil, fmt.Errorf("%w: %s returns no value", ErrInvalidProvider, p.name)
	}

	b := &binding{target: p.out, provider: p, scope: Request}
	for _, opt := range opts {
		opt(b)
	}
	if p.out != b.target && !p.out.AssignableTo(b.target) {
		return nil, fmt.Errorf("%w: %s produces %s, not assignable to %s", ErrInvalidProvider, p.name, p.out, b.target)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prev, existed := r.bindings[b.target]
	if existed {
		b.scope = prev.scope // overrides inherit the original lifetime
		b.eager = prev.eager
		for _, opt := range opts {
			opt(b)
		}
	} else {
		r.order = append(r.order, b.target)
	}
	r.bindings[b.target] = b

	var once sync.Once
	restore := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if existed {
				r.bindings[b.target] = prev
				return
			}
			delete(r.bindings, b.target)
			for i, t := range r.order {
				if t == b.target {
					r.order = append(r.order[:i], r.order[i+1:]...)
					break
				}
			}
		})
	}
	return restore, nil
}
