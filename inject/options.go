package inject

import "reflect"

// Option configures a binding during registration.
type Option func(*binding)

// InApplicationScope binds the target into the application scope: one
// instance for the lifetime of the graph, shared with every chained graph.
func InApplicationScope() Option {
	return func(b *binding) { b.scope = Application }
}

// InRequestScope binds the target into the request scope: one instance per
// chained graph (or per throwaway resolution scope). This is the default.
func InRequestScope() Option {
	return func(b *binding) { b.scope = Request }
}

// Eager marks the binding for construction when its scope is entered rather
// than on first use. Eager bindings construct in registration order.
func Eager() Option {
	return func(b *binding) { b.eager = true }
}

// As overrides the target the provider binds to. Use it to bind a concrete
// provider to an interface:
//
//	g.Register(NewPostgresStore, inject.As[Store]())
func As[T any]() Option {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return func(b *binding) { b.target = t }
}

// WithTeardown attaches a deferred release action to a value binding
// registered with [Registry.RegisterValue]. Providers that construct their
// own value return the teardown directly instead.
func WithTeardown(td Teardown) Option {
	return func(b *binding) { b.teardown = td }
}
