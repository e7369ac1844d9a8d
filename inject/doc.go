// Package inject resolves a declared graph of typed providers into concrete
// instances on demand, manages the lifetime of instances that need teardown,
// and supports nested lifetime scopes so long-running processes reuse
// expensive singletons while isolating per-request state.
//
// # Overview
//
// Providers are plain functions. Their parameters declare their
// dependencies, resolved by type; their first result is the target type they
// bind. A provider may additionally return an error and a [Teardown] that
// releases the instance when its scope closes:
//
//	func NewPool(cfg *Config) (*Pool, inject.Teardown, error) {
//	    pool, err := dial(cfg.Addr)
//	    if err != nil {
//	        return nil, nil, err
//	    }
//	    return pool, func(ctx context.Context) error { return pool.Drain(ctx) }, nil
//	}
//
// # Graph lifecycle
//
//  1. Create: g := inject.New()
//  2. Register: g.Register(NewConfig, inject.InApplicationScope(), inject.Eager())
//  3. Open: g.Open() — eager application bindings construct now
//  4. Resolve: out, err := g.Resolve(run)
//  5. Close: g.Close() — teardown runs in reverse creation order
//
// The lifecycle is Unopened → Open → Closed, and Closed is terminal.
//
// # Scopes
//
// Bindings declare a [ScopeLevel]. [Application]-scoped instances live until
// the graph closes and are shared with every chained graph.
// [Request]-scoped instances (the default) live in the request scope of a
// chained graph, or in a throwaway scope wrapping a single Resolve call.
// Within one open scope, resolving the same target twice yields the
// identical instance.
//
// # Chaining
//
// A server handles each unit of work on its own chained graph:
//
//	child, err := g.Chain()
//	defer child.Close()
//	svc, err := inject.Resolve[*Service](child)
//
// Chained graphs share the parent's application-scoped instances by
// reference; each owns its request scope and tears down only that.
//
// # Teardown ordering
//
// Teardown order is the exact reverse of creation order, scoped strictly
// within the scope that created the instance. A teardown failure never
// stops the remaining stack; failures aggregate into a [TeardownError].
//
// # Context
//
// Every lifecycle operation has a Context form (OpenContext, ResolveContext,
// ChainContext, CloseContext). The plain forms drive the same core with
// context.Background(). Cancellation is observed between provider
// invocations only; the resolver's own bookkeeping never blocks.
//
// # Testing
//
// [Graph.Override] temporarily replaces a binding and returns a restore
// function; outstanding overrides are reverted automatically when the graph
// closes:
//
//	restore, _ := g.Override(func() Clock { return fakeClock })
//	defer restore()
package inject
