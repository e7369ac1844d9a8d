package inject

import "reflect"

// Implicit marks a type as safe to construct without a registered provider.
//
// A type opts in by declaring the marker method:
//
//	type Clock struct{}
//
//	func (*Clock) ImplicitBinding() {}
//
// When resolution reaches an unbound target that implements Implicit and is
// a struct or pointer to struct, the registry synthesizes a request-scoped,
// non-eager binding that constructs the zero value. Once created, the
// instance is cached in its resolving scope exactly like an explicit
// binding. Targets without the marker fail with [ErrImplicitBinding].
type Implicit interface {
	ImplicitBinding()
}

var implicitType = reflect.TypeOf((*Implicit)(nil)).Elem()

// synthesizeImplicit builds the on-the-fly binding for a marked target, or
// returns nil when the target does not qualify.
func synthesizeImplicit(target reflect.Type) *binding {
	if !target.Implements(implicitType) {
		return nil
	}

	var fn func() reflect.Value
	switch {
	case target.Kind() == reflect.Pointer && target.Elem().Kind() == reflect.Struct:
		elem := target.Elem()
		fn = func() reflect.Value { return reflect.New(elem) }
	case target.Kind() == reflect.Struct:
		fn = func() reflect.Value { return reflect.Zero(target) }
	default:
		return nil
	}

	fnType := reflect.FuncOf(nil, []reflect.Type{target}, false)
	ctor := reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		return []reflect.Value{fn()}
	})

	return &binding{
		target: target,
		provider: &providerFunc{
			fn:         ctor,
			name:       target.String(),
			out:        target,
			teardownAt: -1,
			errAt:      -1,
		},
		scope:    Request,
		implicit: true,
	}
}
