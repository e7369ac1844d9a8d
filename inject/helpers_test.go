package inject_test

import (
	"context"
	"reflect"
	"sync"

	"github.com/km-arc/go-inject/inject"
)

// ── event recorder ───────────────────────────────────────────────────────────

// recorder captures lifecycle events so tests can assert on exact
// construction and teardown order.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func newRecorder() *recorder { return &recorder{} }

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

// ── fixture types ────────────────────────────────────────────────────────────

type Foo struct{ n int }

type Bar struct{ foo *Foo }

func fooType() reflect.Type { return reflect.TypeOf(&Foo{}) }

func barType() reflect.Type { return reflect.TypeOf(&Bar{}) }

// Widget / widget exercise interface targets bound via inject.As.
type Widget interface{ ID() int }

type widget struct{ id int }

func (w *widget) ID() int { return w.id }

// provideFoo builds a Foo provider that records its lifecycle.
func provideFoo(rec *recorder) func() (*Foo, inject.Teardown) {
	return func() (*Foo, inject.Teardown) {
		rec.add("Starting Foo")
		f := &Foo{}
		return f, func(context.Context) error {
			rec.add("Ending Foo")
			return nil
		}
	}
}

// provideBar builds a Bar provider depending on Foo.
func provideBar(rec *recorder) func(*Foo) (*Bar, inject.Teardown) {
	return func(foo *Foo) (*Bar, inject.Teardown) {
		rec.add("Starting Bar")
		b := &Bar{foo: foo}
		return b, func(context.Context) error {
			rec.add("Ending Bar")
			return nil
		}
	}
}
