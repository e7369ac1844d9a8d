package inject

import (
	"context"
	"errors"
)

// Entrypoint wraps one callable in the graph's full lifecycle: open the
// graph, resolve the callable, close the graph. Close runs on every exit
// path — including panics and resolution failures — so application-scoped
// resources never leak.
//
//	g := inject.New()
//	g.Register(NewDatabase, inject.InApplicationScope())
//
//	out, err := g.Entrypoint(run).Run()
type Entrypoint struct {
	graph *Graph
	fn    any
}

// Entrypoint returns the open/resolve/close wrapper for fn. The graph must
// still be unopened; Run performs the open itself.
func (g *Graph) Entrypoint(fn any) *Entrypoint {
	return &Entrypoint{graph: g, fn: fn}
}

// Run opens the graph, resolves the callable and closes the graph, driving
// the context-aware core to completion itself. Use [Entrypoint.RunContext]
// from code that already manages a context.
func (e *Entrypoint) Run() (any, error) {
	return e.RunContext(context.Background())
}

// RunContext is Run under the caller's context. If both resolution and
// close fail, the errors are joined so neither masks the other.
func (e *Entrypoint) RunContext(ctx context.Context) (out any, err error) {
	if err := e.graph.OpenContext(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := e.graph.CloseContext(ctx); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	out, err = e.graph.ResolveContext(ctx, e.fn)
	return out, err
}
