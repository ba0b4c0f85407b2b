// Package core implements the redspot task runtime: task definitions and
// their override chains, argument resolution, and the Environment that runs
// tasks.
//
// # Defining tasks
//
// Tasks are registered on a Registry. Defining a name twice overrides it:
//
//	reg := core.NewRegistry()
//	reg.DefineTask("greet", "Greets someone", greet).
//	    AddPositionalParam("name", "Who to greet", nil, params.String, false)
//
//	reg.DefineTask("greet", "", func(ctx context.Context, args core.Arguments, env *core.Environment, super *core.RunSuper) (interface{}, error) {
//	    fmt.Println("before")
//	    return super.Run(ctx, nil)
//	})
//
// # Running tasks
//
// Environment.Run looks the task up, resolves its arguments and runs the most
// specific definition. While an action runs, the environment's members and
// the step's runSuper binding are published to the environment's namespaces
// (see package globals) and restored afterwards.
//
// A single top-level Run is expected to be in flight per process; nested
// calls made from inside an action (runSuper, or Run of another task) unwind
// their publications in reverse order.
package core
