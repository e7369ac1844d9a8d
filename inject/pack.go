package inject

// Pack bundles related registrations so libraries can ship reusable binding
// sets.
//
//	type StoragePack struct{ DSN string }
//
//	func (p *StoragePack) Install(reg *inject.Registry) error {
//	    if err := reg.RegisterValue(p.DSN); err != nil {
//	        return err
//	    }
//	    return reg.Register(NewPool, inject.InApplicationScope(), inject.Eager())
//	}
type Pack interface {
	// Install binds the pack's services into the registry. Packs must not
	// resolve anything; the graph is not open yet.
	Install(reg *Registry) error
}

// PackFunc adapts a plain function to the Pack interface.
type PackFunc func(reg *Registry) error

// Install implements Pack.
func (f PackFunc) Install(reg *Registry) error { return f(reg) }

// Install applies packs in order, stopping at the first failure. Valid only
// before the graph opens.
func (g *Graph) Install(packs ...Pack) error {
	if err := g.requireUnopened(); err != nil {
		return err
	}
	for _, p := range packs {
		if err := p.Install(g.reg); err != nil {
			return err
		}
	}
	return nil
}
