package inject_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-inject/inject"
)

type fixturePack struct{ n int }

func (p *fixturePack) Install(reg *inject.Registry) error {
	if err := reg.Register(func() *Foo { return &Foo{n: p.n} }, inject.InApplicationScope()); err != nil {
		return err
	}
	return reg.Register(func(foo *Foo) *Bar { return &Bar{foo: foo} })
}

func TestPack_InstallBindsServices(t *testing.T) {
	g := inject.New()
	require.NoError(t, g.Install(&fixturePack{n: 11}))
	require.NoError(t, g.Open())
	defer func() { require.NoError(t, g.Close()) }()

	bar, err := inject.Resolve[*Bar](g)
	require.NoError(t, err)
	require.Equal(t, 11, bar.foo.n)
}

func TestPack_InstallStopsAtFirstFailure(t *testing.T) {
	boom := errors.New("install failed")

	g := inject.New()
	err := g.Install(
		inject.PackFunc(func(reg *inject.Registry) error {
			return reg.Register(func() *Foo { return &Foo{} })
		}),
		inject.PackFunc(func(*inject.Registry) error { return boom }),
		inject.PackFunc(func(reg *inject.Registry) error {
			return reg.Register(func() *Bar { return &Bar{} })
		}),
	)
	require.ErrorIs(t, err, boom)

	// The first pack's bindings landed; the pack after the failure never ran.
	require.True(t, g.Registry().Bound(fooType()))
	require.False(t, g.Registry().Bound(barType()))
}

func TestPack_InstallAfterOpenFails(t *testing.T) {
	g := inject.New()
	require.NoError(t, g.Open())
	defer func() { require.NoError(t, g.Close()) }()

	err := g.Install(&fixturePack{})
	require.ErrorIs(t, err, inject.ErrAlreadyOpened)
}

func TestPack_DuplicateAcrossPacksFails(t *testing.T) {
	bindFoo := inject.PackFunc(func(reg *inject.Registry) error {
		return reg.Register(func() *Foo { return &Foo{} })
	})

	g := inject.New()
	err := g.Install(bindFoo, bindFoo)
	require.ErrorIs(t, err, inject.ErrDuplicateBinding)
}
