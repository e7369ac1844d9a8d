package inject_test

import (
	"context"
	"fmt"

	"github.com/km-arc/go-inject/inject"
)

type exampleConfig struct{ addr string }

type exampleConn struct{ cfg *exampleConfig }

type exampleService struct{ conn *exampleConn }

func Example() {
	g := inject.New()

	_ = g.Register(func() *exampleConfig {
		return &exampleConfig{addr: "localhost:5432"}
	}, inject.InApplicationScope())

	_ = g.Register(func(cfg *exampleConfig) (*exampleConn, inject.Teardown) {
		fmt.Println("connecting to", cfg.addr)
		conn := &exampleConn{cfg: cfg}
		return conn, func(context.Context) error {
			fmt.Println("disconnecting")
			return nil
		}
	}, inject.InApplicationScope())

	_ = g.Register(func(conn *exampleConn) *exampleService {
		return &exampleService{conn: conn}
	})

	_ = g.Open()
	_, _ = g.Resolve(func(svc *exampleService) error {
		fmt.Println("serving")
		return nil
	})
	_ = g.Close()

	// Output:
	// connecting to localhost:5432
	// serving
	// disconnecting
}

func ExampleGraph_Chain() {
	g := inject.New()

	_ = g.Register(func() *exampleConfig {
		fmt.Println("config built once")
		return &exampleConfig{}
	}, inject.InApplicationScope())

	_ = g.Register(func(cfg *exampleConfig) (*exampleService, inject.Teardown) {
		fmt.Println("service built")
		return &exampleService{}, func(context.Context) error {
			fmt.Println("service released")
			return nil
		}
	})

	_ = g.Open()

	for i := 0; i < 2; i++ {
		child, _ := g.Chain()
		_, _ = inject.Resolve[*exampleService](child)
		_ = child.Close()
	}

	_ = g.Close()

	// Output:
	// config built once
	// service built
	// service released
	// service built
	// service released
}

func ExampleGraph_Entrypoint() {
	g := inject.New()

	_ = g.Register(func() (*exampleConn, inject.Teardown) {
		fmt.Println("open")
		return &exampleConn{}, func(context.Context) error {
			fmt.Println("close")
			return nil
		}
	}, inject.InApplicationScope())

	_, _ = g.Entrypoint(func(conn *exampleConn) error {
		fmt.Println("work")
		return nil
	}).Run()

	// Output:
	// open
	// work
	// close
}

func ExampleGraph_Override() {
	reg := inject.NewRegistry()
	_ = reg.Register(func() *exampleConfig {
		return &exampleConfig{addr: "prod:5432"}
	}, inject.InApplicationScope())

	g := inject.NewWithRegistry(reg)
	restore, _ := g.Override(func() *exampleConfig {
		return &exampleConfig{addr: "test:5432"}
	})
	defer restore()

	_ = g.Open()
	cfg, _ := inject.Resolve[*exampleConfig](g)
	fmt.Println(cfg.addr)
	_ = g.Close()

	// Output:
	// test:5432
}
