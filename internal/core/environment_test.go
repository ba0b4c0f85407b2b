package core

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/bailuo/redspot/internal/config"
	"github.com/bailuo/redspot/internal/globals"
	"github.com/bailuo/redspot/internal/params"
	"github.com/bailuo/redspot/internal/provider"
)

func testConfig() *config.Config {
	return &config.Config{
		DefaultNetwork: "development",
		Networks: map[string]config.NetworkConfig{
			"development": {Endpoint: "ws://127.0.0.1:9944"},
			"substrate":   {Endpoint: "ws://127.0.0.1:9945"},
		},
	}
}

func newTestEnv(t *testing.T, reg *Registry, extenders ...Extender) (*Environment, *globals.Map) {
	t.Helper()
	ns := globals.NewMap()
	env, err := NewEnvironment(testConfig(), RuntimeArguments{}, reg, extenders, WithNamespaces(ns))
	if err != nil {
		t.Fatalf("NewEnvironment: %v", err)
	}
	return env, ns
}

// countingNamespace records every Set so tests can assert nothing was published.
type countingNamespace struct {
	*globals.Map
	sets int
}

func (c *countingNamespace) Set(key string, value interface{}) {
	c.sets++
	c.Map.Set(key, value)
}

func TestGreetScenario(t *testing.T) {
	reg := NewRegistry()
	var observed interface{}
	reg.DefineTask("greet", "Greets someone", func(ctx context.Context, args Arguments, env *Environment, runSuper *RunSuper) (interface{}, error) {
		observed = args["name"]
		return "hello " + args["name"].(string), nil
	}).AddPositionalParam("name", "Who to greet", nil, params.String, false)

	env, _ := newTestEnv(t, reg)

	_, err := env.Run(context.Background(), "greet", Arguments{})
	var missing *params.MissingArgumentError
	if !errors.As(err, &missing) || missing.Param != "name" {
		t.Fatalf("expected MissingArgument{name}, got %v", err)
	}

	res, err := env.Run(context.Background(), "greet", Arguments{"name": "Ada"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if observed != "Ada" {
		t.Errorf("action observed name = %v, want Ada", observed)
	}
	if res != "hello Ada" {
		t.Errorf("result = %v", res)
	}
}

func TestBuildOverrideChainScenario(t *testing.T) {
	reg := NewRegistry()
	var calls []string
	var seen []Arguments

	reg.DefineTask("build", "Builds contracts", func(ctx context.Context, args Arguments, env *Environment, runSuper *RunSuper) (interface{}, error) {
		calls = append(calls, "base")
		seen = append(seen, args)
		if runSuper.IsDefined() {
			t.Error("base runSuper should not be defined")
		}
		return "built", nil
	}).AddOptionalParam("release", "Release build", false, params.Boolean)

	reg.DefineTask("build", "", func(ctx context.Context, args Arguments, env *Environment, runSuper *RunSuper) (interface{}, error) {
		calls = append(calls, "override1")
		seen = append(seen, args)
		return runSuper.Run(ctx, nil)
	})

	reg.DefineTask("build", "", func(ctx context.Context, args Arguments, env *Environment, runSuper *RunSuper) (interface{}, error) {
		calls = append(calls, "override2")
		seen = append(seen, args)
		if !runSuper.IsDefined() {
			t.Error("override runSuper should be defined")
		}
		return runSuper.Run(ctx, nil)
	})

	def, _ := reg.Lookup("build")
	if def.Depth() != 3 {
		t.Fatalf("chain depth = %d, want 3", def.Depth())
	}
	if def.Description() != "Builds contracts" {
		t.Errorf("description should be inherited, got %q", def.Description())
	}

	env, _ := newTestEnv(t, reg)
	res, err := env.Run(context.Background(), "build", Arguments{"release": true, "extra": 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res != "built" {
		t.Errorf("result = %v, want built", res)
	}

	want := []string{"override2", "override1", "base"}
	if !reflect.DeepEqual(calls, want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := 1; i < len(seen); i++ {
		if reflect.ValueOf(seen[i]).Pointer() != reflect.ValueOf(seen[0]).Pointer() {
			t.Errorf("step %d received different arguments than step 0", i)
		}
	}
	if seen[0]["release"] != true || seen[0]["extra"] != 1 {
		t.Errorf("unexpected resolved arguments %v", seen[0])
	}
}

func TestRunSuperWithExplicitArguments(t *testing.T) {
	reg := NewRegistry()
	var baseArgs Arguments
	reg.DefineTask("deploy", "", func(ctx context.Context, args Arguments, env *Environment, runSuper *RunSuper) (interface{}, error) {
		baseArgs = args
		return nil, nil
	})
	reg.DefineTask("deploy", "", func(ctx context.Context, args Arguments, env *Environment, runSuper *RunSuper) (interface{}, error) {
		return runSuper.Run(ctx, Arguments{"contract": "erc20"})
	})

	env, _ := newTestEnv(t, reg)
	if _, err := env.Run(context.Background(), "deploy", Arguments{"contract": "flipper"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if baseArgs["contract"] != "erc20" {
		t.Errorf("base received %v, want explicit erc20", baseArgs["contract"])
	}
}

func TestRunSuperNotAvailableOnBase(t *testing.T) {
	reg := NewRegistry()
	reg.DefineTask("compile", "", func(ctx context.Context, args Arguments, env *Environment, runSuper *RunSuper) (interface{}, error) {
		return runSuper.Run(ctx, nil)
	})

	env, _ := newTestEnv(t, reg)
	_, err := env.Run(context.Background(), "compile", nil)
	var notAvail *RunSuperNotAvailableError
	if !errors.As(err, &notAvail) || notAvail.TaskName != "compile" {
		t.Fatalf("expected RunSuperNotAvailable{compile}, got %v", err)
	}
	if !errors.Is(err, ErrRunSuperNotAvailable) {
		t.Error("error should match ErrRunSuperNotAvailable")
	}
}

func TestOverrideChainDepthN(t *testing.T) {
	const n = 5
	reg := NewRegistry()
	depth := 0
	for i := 0; i < n; i++ {
		reg.DefineTask("chain", "", func(ctx context.Context, args Arguments, env *Environment, runSuper *RunSuper) (interface{}, error) {
			depth++
			if runSuper.IsDefined() {
				return runSuper.Run(ctx, nil)
			}
			_, err := runSuper.Run(ctx, nil)
			return nil, err
		})
	}
	def, _ := reg.Lookup("chain")
	if def.Depth() != n {
		t.Fatalf("depth = %d, want %d", def.Depth(), n)
	}

	env, _ := newTestEnv(t, reg)
	_, err := env.Run(context.Background(), "chain", nil)
	if !errors.Is(err, ErrRunSuperNotAvailable) {
		t.Fatalf("expected base runSuper to fail, got %v", err)
	}
	if depth != n {
		t.Errorf("visited %d definitions, want %d", depth, n)
	}
}

func TestUnrecognizedTaskPublishesNothing(t *testing.T) {
	ns := &countingNamespace{Map: globals.NewMap()}
	env, err := NewEnvironment(testConfig(), RuntimeArguments{}, NewRegistry(), nil, WithNamespaces(ns))
	if err != nil {
		t.Fatal(err)
	}

	_, err = env.Run(context.Background(), "missing-task", nil)
	var unrecognized *UnrecognizedTaskError
	if !errors.As(err, &unrecognized) || unrecognized.Name != "missing-task" {
		t.Fatalf("expected UnrecognizedTask{missing-task}, got %v", err)
	}
	if ns.sets != 0 {
		t.Errorf("namespace received %d writes, want 0", ns.sets)
	}
}

func TestPublicationRestoredAfterRun(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("boom")
	reg.DefineTask("ok", "", func(ctx context.Context, args Arguments, env *Environment, runSuper *RunSuper) (interface{}, error) {
		return nil, nil
	})
	reg.DefineTask("fail", "", func(ctx context.Context, args Arguments, env *Environment, runSuper *RunSuper) (interface{}, error) {
		return nil, boom
	})
	reg.DefineTask("panic", "", func(ctx context.Context, args Arguments, env *Environment, runSuper *RunSuper) (interface{}, error) {
		panic("kaboom")
	})

	env, ns := newTestEnv(t, reg, func(env *Environment) error {
		return env.Set("artifacts", "/tmp/artifacts")
	})
	ns.Set(MemberConfig, "previous-config")
	ns.Set(MemberRunSuper, nil)

	check := func(label string) {
		t.Helper()
		if v, _ := ns.Lookup(MemberConfig); v != "previous-config" {
			t.Errorf("%s: config = %v, want previous-config", label, v)
		}
		if v, ok := ns.Lookup(MemberRunSuper); !ok || v != nil {
			t.Errorf("%s: runSuper = %v (bound %v), want bound nil", label, v, ok)
		}
		for _, key := range []string{MemberNetwork, MemberTasks, MemberRun, MemberRuntimeArguments, "artifacts"} {
			if _, ok := ns.Lookup(key); ok {
				t.Errorf("%s: %s still bound", label, key)
			}
		}
		if ns.Len() != 2 {
			t.Errorf("%s: namespace has %d keys, want 2: %v", label, ns.Len(), ns.Keys())
		}
	}

	if _, err := env.Run(context.Background(), "ok", nil); err != nil {
		t.Fatalf("ok: %v", err)
	}
	check("success")

	if _, err := env.Run(context.Background(), "fail", nil); err != boom {
		t.Fatalf("fail: got %v, want the action's error unchanged", err)
	}
	check("error")

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		env.Run(context.Background(), "panic", nil)
	}()
	check("panic")
}

func TestPublicationVisibleDuringAction(t *testing.T) {
	reg := NewRegistry()
	ns := globals.NewMap()

	reg.DefineTask("inspect", "", func(ctx context.Context, args Arguments, env *Environment, runSuper *RunSuper) (interface{}, error) {
		if v, _ := ns.Lookup(MemberRunSuper); v != runSuper {
			t.Errorf("published runSuper is not the step's binding")
		}
		if v, _ := ns.Lookup(MemberNetwork); v != env.Network {
			t.Errorf("network not published")
		}
		if v, _ := ns.Lookup("helper"); v != "value" {
			t.Errorf("extension not published, got %v", v)
		}
		if _, ok := ns.Lookup("injectToGlobal"); ok {
			t.Errorf("excluded member published")
		}
		return nil, nil
	})
	reg.DefineTask("inspect", "", func(ctx context.Context, args Arguments, env *Environment, runSuper *RunSuper) (interface{}, error) {
		outer, _ := ns.Lookup(MemberRunSuper)
		if outer != runSuper {
			t.Errorf("outer runSuper not published")
		}
		_, err := runSuper.Run(ctx, nil)
		if v, _ := ns.Lookup(MemberRunSuper); v != outer {
			t.Errorf("runSuper binding not restored after nested step")
		}
		return nil, err
	})

	env, err := NewEnvironment(testConfig(), RuntimeArguments{}, reg, []Extender{
		func(env *Environment) error { return env.Set("helper", "value") },
		func(env *Environment) error { return env.Set("injectToGlobal", "x") },
	}, WithNamespaces(ns))
	if !errors.Is(err, ErrReservedMember) {
		t.Fatalf("expected reserved member error, got %v", err)
	}

	env, err = NewEnvironment(testConfig(), RuntimeArguments{}, reg, []Extender{
		func(env *Environment) error { return env.Set("helper", "value") },
	}, WithNamespaces(ns))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Run(context.Background(), "inspect", nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ns.Len() != 0 {
		t.Errorf("namespace not empty after run: %v", ns.Keys())
	}
}

func TestExtendersRunInOrderOnceAtConstruction(t *testing.T) {
	var order []string
	mk := func(name string) Extender {
		return func(env *Environment) error {
			order = append(order, name)
			if env.Ready() {
				t.Errorf("extender %s ran on a ready environment", name)
			}
			if name == "B" {
				if _, ok := env.Get("a"); !ok {
					t.Error("B should observe A's addition")
				}
			}
			return env.Set(toLower(name), name)
		}
	}

	reg := NewRegistry()
	reg.DefineTask("noop", "", func(ctx context.Context, args Arguments, env *Environment, runSuper *RunSuper) (interface{}, error) {
		return nil, nil
	})

	env, _ := newTestEnv(t, reg, mk("A"), mk("B"), mk("C"))
	if !reflect.DeepEqual(order, []string{"A", "B", "C"}) {
		t.Fatalf("extender order = %v", order)
	}

	for i := 0; i < 2; i++ {
		if _, err := env.Run(context.Background(), "noop", nil); err != nil {
			t.Fatal(err)
		}
	}
	if len(order) != 3 {
		t.Errorf("extenders ran %d times, want 3", len(order))
	}
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func TestRunBeforeReady(t *testing.T) {
	reg := NewRegistry()
	reg.DefineTask("noop", "", func(ctx context.Context, args Arguments, env *Environment, runSuper *RunSuper) (interface{}, error) {
		return nil, nil
	})
	_, err := NewEnvironment(testConfig(), RuntimeArguments{}, reg, []Extender{
		func(env *Environment) error {
			_, err := env.Run(context.Background(), "noop", nil)
			return err
		},
	}, WithNamespaces(globals.NewMap()))
	if !errors.Is(err, ErrEnvironmentNotReady) {
		t.Fatalf("expected ErrEnvironmentNotReady, got %v", err)
	}
}

func TestNetworkSelection(t *testing.T) {
	reg := NewRegistry()

	env, err := NewEnvironment(testConfig(), RuntimeArguments{}, reg, nil, WithNamespaces(globals.NewMap()))
	if err != nil {
		t.Fatal(err)
	}
	if env.Network.Name != "development" {
		t.Errorf("default network = %q", env.Network.Name)
	}

	env, err = NewEnvironment(testConfig(), RuntimeArguments{Network: "substrate"}, reg, nil, WithNamespaces(globals.NewMap()))
	if err != nil {
		t.Fatal(err)
	}
	if env.Network.Name != "substrate" || env.Network.Config.Endpoint != "ws://127.0.0.1:9945" {
		t.Errorf("explicit network not selected: %+v", env.Network)
	}

	_, err = NewEnvironment(testConfig(), RuntimeArguments{Network: "kusama"}, reg, nil)
	var notFound *NetworkConfigNotFoundError
	if !errors.As(err, &notFound) || notFound.Network != "kusama" {
		t.Fatalf("expected NetworkConfigNotFound{kusama}, got %v", err)
	}
}

func TestProviderBuiltLazily(t *testing.T) {
	built := 0
	factory := func(name string, cfg config.NetworkConfig) (provider.Provider, error) {
		built++
		return provider.NewRPC(cfg.Endpoint, 0)
	}

	reg := NewRegistry()
	reg.DefineTask("offline", "", func(ctx context.Context, args Arguments, env *Environment, runSuper *RunSuper) (interface{}, error) {
		return nil, nil
	})
	reg.DefineTask("online", "", func(ctx context.Context, args Arguments, env *Environment, runSuper *RunSuper) (interface{}, error) {
		return env.Network.Provider.Get()
	})

	env, err := NewEnvironment(testConfig(), RuntimeArguments{}, reg, nil, WithProviderFactory(factory), WithNamespaces(globals.NewMap()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Run(context.Background(), "offline", nil); err != nil {
		t.Fatal(err)
	}
	if built != 0 {
		t.Fatalf("provider built by a task that never used it")
	}
	for i := 0; i < 2; i++ {
		if _, err := env.Run(context.Background(), "online", nil); err != nil {
			t.Fatal(err)
		}
	}
	if built != 1 {
		t.Errorf("provider built %d times, want 1", built)
	}
}

func TestDefinitionErrorsFailConstruction(t *testing.T) {
	reg := NewRegistry()
	reg.DefineTask("bad", "", nil).AddParam("x", "", "default", params.String, false)

	_, err := NewEnvironment(testConfig(), RuntimeArguments{}, reg, nil)
	if !errors.Is(err, ErrInvalidDefinition) {
		t.Fatalf("expected ErrInvalidDefinition, got %v", err)
	}
}

func TestActionNotSet(t *testing.T) {
	reg := NewRegistry()
	reg.DefineTask("empty", "Has no action", nil)
	env, _ := newTestEnv(t, reg)
	if _, err := env.Run(context.Background(), "empty", nil); !errors.Is(err, ErrActionNotSet) {
		t.Fatalf("expected ErrActionNotSet, got %v", err)
	}
}

func TestNestedRunOfAnotherTask(t *testing.T) {
	reg := NewRegistry()
	reg.DefineTask("compile", "", func(ctx context.Context, args Arguments, env *Environment, runSuper *RunSuper) (interface{}, error) {
		return "artifact", nil
	})
	reg.DefineTask("test", "", func(ctx context.Context, args Arguments, env *Environment, runSuper *RunSuper) (interface{}, error) {
		run, _ := env.Get(MemberRun)
		return run.(RunFunc)(ctx, "compile", nil)
	})

	env, ns := newTestEnv(t, reg)
	res, err := env.Run(context.Background(), "test", nil)
	if err != nil || res != "artifact" {
		t.Fatalf("Run = %v, %v", res, err)
	}
	if ns.Len() != 0 {
		t.Errorf("namespace not restored: %v", ns.Keys())
	}
}
