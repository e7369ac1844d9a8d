package inject

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
)

// Teardown releases a resource created by a provider. Providers may return a
// plain closure with this signature; it is pushed onto the owning scope's
// teardown stack the moment the instance is created.
type Teardown func(ctx context.Context) error

var (
	ctxType      = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType      = reflect.TypeOf((*error)(nil)).Elem()
	teardownType = reflect.TypeOf(Teardown(nil))
)

// providerFunc is the parsed form of a provider or resolved callable.
//
// Accepted signatures:
//
//	func([ctx context.Context,] deps...)
//	func([ctx context.Context,] deps...) T
//	func([ctx context.Context,] deps...) (T, error)
//	func([ctx context.Context,] deps...) (T, inject.Teardown)
//	func([ctx context.Context,] deps...) (T, inject.Teardown, error)
//	func([ctx context.Context,] deps...) error
//
// The no-value forms are only valid for callables passed to Resolve; a
// registered provider must produce a value.
type providerFunc struct {
	fn         reflect.Value
	name       string
	deps       []reflect.Type
	wantsCtx   bool
	out        reflect.Type // nil when the function returns no value
	teardownAt int          // result index of the Teardown, or -1
	errAt      int          // result index of the error, or -1
}

// parseProvider validates fn and extracts its dependency and result layout.
func parseProvider(fn any) (*providerFunc, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: nil function", ErrInvalidProvider)
	}

	val := reflect.ValueOf(fn)
	typ := val.Type()

	if typ.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %T is not a function", ErrInvalidProvider, fn)
	}
	if typ.IsVariadic() {
		return nil, fmt.Errorf("%w: %s is variadic", ErrInvalidProvider, funcName(val))
	}

	p := &providerFunc{
		fn:         val,
		name:       funcName(val),
		teardownAt: -1,
		errAt:      -1,
	}

	start := 0
	if typ.NumIn() > 0 && typ.In(0) == ctxType {
		p.wantsCtx = true
		start = 1
	}
	for i := start; i < typ.NumIn(); i++ {
		if typ.In(i) == ctxType {
			return nil, fmt.Errorf("%w: %s declares context.Context after the first parameter", ErrInvalidProvider, p.name)
		}
		p.deps = append(p.deps, typ.In(i))
	}

	switch typ.NumOut() {
	case 0:
		// Side-effect callable.
	case 1:
		if typ.Out(0).Implements(errType) {
			p.errAt = 0
		} else {
			p.out = typ.Out(0)
		}
	case 2:
		p.out = typ.Out(0)
		switch {
		case isTeardown(typ.Out(1)):
			p.teardownAt = 1
		case typ.Out(1).Implements(errType):
			p.errAt = 1
		default:
			return nil, fmt.Errorf("%w: %s must return (T, error) or (T, Teardown)", ErrInvalidProvider, p.name)
		}
	case 3:
		p.out = typ.Out(0)
		if !isTeardown(typ.Out(1)) || !typ.Out(2).Implements(errType) {
			return nil, fmt.Errorf("%w: %s must return (T, Teardown, error)", ErrInvalidProvider, p.name)
		}
		p.teardownAt = 1
		p.errAt = 2
	default:
		return nil, fmt.Errorf("%w: %s returns too many values", ErrInvalidProvider, p.name)
	}

	return p, nil
}

// call invokes the function with the resolved dependencies, splitting the
// results into value, teardown and error.
func (p *providerFunc) call(ctx context.Context, args []reflect.Value) (reflect.Value, Teardown, error) {
	in := args
	if p.wantsCtx {
		in = make([]reflect.Value, 0, len(args)+1)
		in = append(in, reflect.ValueOf(ctx))
		in = append(in, args...)
	}

	out := p.fn.Call(in)

	if p.errAt >= 0 && !out[p.errAt].IsNil() {
		return reflect.Value{}, nil, out[p.errAt].Interface().(error)
	}

	var td Teardown
	if p.teardownAt >= 0 && !out[p.teardownAt].IsNil() {
		td = out[p.teardownAt].Convert(teardownType).Interface().(Teardown)
	}

	var val reflect.Value
	if p.out != nil {
		val = out[0]
	}
	return val, td, nil
}

// valueProvider wraps a pre-built value as a zero-dependency provider so the
// resolution pipeline treats value bindings uniformly.
func valueProvider(target reflect.Type, value reflect.Value) *providerFunc {
	fnType := reflect.FuncOf(nil, []reflect.Type{target}, false)
	fn := reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		return []reflect.Value{value}
	})
	return &providerFunc{
		fn:         fn,
		name:       fmt.Sprintf("value(%s)", target),
		out:        target,
		teardownAt: -1,
		errAt:      -1,
	}
}

func isTeardown(t reflect.Type) bool {
	return t.AssignableTo(teardownType)
}

func funcName(fn reflect.Value) string {
	if rf := runtime.FuncForPC(fn.Pointer()); rf != nil {
		return rf.Name()
	}
	return fn.Type().String()
}
