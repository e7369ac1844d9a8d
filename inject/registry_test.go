package inject_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-inject/inject"
)

// ── target inference ─────────────────────────────────────────────────────────

func TestRegistry_Register_InfersTargetFromResult(t *testing.T) {
	reg := inject.NewRegistry()
	require.NoError(t, reg.Register(func() *Foo { return &Foo{} }))

	require.True(t, reg.Bound(reflect.TypeOf(&Foo{})))
}

func TestRegistry_Register_AsRedirectsTarget(t *testing.T) {
	reg := inject.NewRegistry()
	require.NoError(t, reg.Register(func() *widget { return &widget{id: 1} }, inject.As[Widget]()))

	require.True(t, reg.Bound(reflect.TypeOf((*Widget)(nil)).Elem()))
	require.False(t, reg.Bound(reflect.TypeOf(&widget{})))
}

func TestRegistry_Register_AsRejectsUnassignable(t *testing.T) {
	reg := inject.NewRegistry()
	err := reg.Register(func() *Foo { return &Foo{} }, inject.As[Widget]())
	require.ErrorIs(t, err, inject.ErrInvalidProvider)
}

// ── duplicates ───────────────────────────────────────────────────────────────

func TestRegistry_Register_DuplicateTargetFails(t *testing.T) {
	reg := inject.NewRegistry()
	require.NoError(t, reg.Register(func() *Foo { return &Foo{} }))

	err := reg.Register(func() *Foo { return &Foo{n: 2} })
	require.ErrorIs(t, err, inject.ErrDuplicateBinding)
}

// ── invalid providers ────────────────────────────────────────────────────────

func TestRegistry_Register_RejectsNonFunction(t *testing.T) {
	reg := inject.NewRegistry()
	require.ErrorIs(t, reg.Register(42), inject.ErrInvalidProvider)
	require.ErrorIs(t, reg.Register(nil), inject.ErrInvalidProvider)
}

func TestRegistry_Register_RejectsNoValueProvider(t *testing.T) {
	reg := inject.NewRegistry()
	require.ErrorIs(t, reg.Register(func() {}), inject.ErrInvalidProvider)
	require.ErrorIs(t, reg.Register(func() error { return nil }), inject.ErrInvalidProvider)
}

func TestRegistry_Register_RejectsVariadic(t *testing.T) {
	reg := inject.NewRegistry()
	err := reg.Register(func(extras ...int) *Foo { return &Foo{} })
	require.ErrorIs(t, err, inject.ErrInvalidProvider)
}

func TestRegistry_Register_RejectsMisplacedContext(t *testing.T) {
	reg := inject.NewRegistry()
	err := reg.Register(func(foo *Foo, ctx context.Context) *Bar { return &Bar{foo: foo} })
	require.ErrorIs(t, err, inject.ErrInvalidProvider)
}

// ── value bindings ───────────────────────────────────────────────────────────

func TestRegistry_RegisterValue_SharedAcrossResolutions(t *testing.T) {
	foo := &Foo{n: 7}

	g := inject.New()
	require.NoError(t, g.RegisterValue(foo))
	require.NoError(t, g.Open())
	defer func() { require.NoError(t, g.Close()) }()

	first, err := inject.Resolve[*Foo](g)
	require.NoError(t, err)
	second, err := inject.Resolve[*Foo](g)
	require.NoError(t, err)

	require.Same(t, foo, first)
	require.Same(t, foo, second)
}

func TestRegistry_RegisterValue_TeardownRunsAtClose(t *testing.T) {
	rec := newRecorder()
	foo := &Foo{}

	g := inject.New()
	require.NoError(t, g.RegisterValue(foo, inject.WithTeardown(func(context.Context) error {
		rec.add("Ending Foo")
		return nil
	})))
	require.NoError(t, g.Open())

	require.Empty(t, rec.list())
	require.NoError(t, g.Close())
	require.Equal(t, []string{"Ending Foo"}, rec.list())
}

func TestRegistry_RegisterValue_NilFails(t *testing.T) {
	reg := inject.NewRegistry()
	require.ErrorIs(t, reg.RegisterValue(nil), inject.ErrInvalidProvider)
}

// ── freeze ───────────────────────────────────────────────────────────────────

func TestRegistry_FrozenOnceGraphOpens(t *testing.T) {
	reg := inject.NewRegistry()
	require.NoError(t, reg.Register(func() *Foo { return &Foo{} }))

	g := inject.NewWithRegistry(reg)
	require.NoError(t, g.Open())
	defer func() { require.NoError(t, g.Close()) }()

	err := reg.Register(func() *Bar { return &Bar{} })
	require.ErrorIs(t, err, inject.ErrAlreadyOpened)
}

// ── introspection ────────────────────────────────────────────────────────────

func TestRegistry_Targets_RegistrationOrder(t *testing.T) {
	reg := inject.NewRegistry()
	require.NoError(t, reg.Register(func() *Foo { return &Foo{} }))
	require.NoError(t, reg.Register(func(foo *Foo) *Bar { return &Bar{foo: foo} }))

	want := []reflect.Type{reflect.TypeOf(&Foo{}), reflect.TypeOf(&Bar{})}
	require.Equal(t, want, reg.Targets())
}
