package core

import (
	"context"
	"fmt"

	"github.com/bailuo/redspot/internal/globals"
)

// RunSuper invokes the definition overridden by the one currently running.
// Each dispatch step gets its own binding.
type RunSuper struct {
	taskName string
	defined  bool
	call     func(ctx context.Context, args Arguments) (interface{}, error)
}

// IsDefined reports whether there is an overridden definition to run.
func (r *RunSuper) IsDefined() bool { return r.defined }

// TaskName returns the name of the task the binding belongs to.
func (r *RunSuper) TaskName() string { return r.taskName }

// Run executes the parent definition's action. A nil args reuses the
// arguments the current definition received, without resolving them again.
// On a base definition it fails with *RunSuperNotAvailableError.
func (r *RunSuper) Run(ctx context.Context, args Arguments) (interface{}, error) {
	return r.call(ctx, args)
}

func (e *Environment) newRunSuper(def *TaskDefinition, args Arguments) *RunSuper {
	if def.parent == nil {
		return &RunSuper{
			taskName: def.name,
			call: func(context.Context, Arguments) (interface{}, error) {
				return nil, &RunSuperNotAvailableError{TaskName: def.name}
			},
		}
	}

	return &RunSuper{
		taskName: def.name,
		defined:  true,
		call: func(ctx context.Context, superArgs Arguments) (interface{}, error) {
			if superArgs == nil {
				superArgs = args
			}
			e.log.Debugf("Running %s's super", def.name)
			return e.runTaskDefinition(ctx, def.parent, superArgs)
		},
	}
}

// runTaskDefinition runs one step of an override chain. The step's runSuper
// and the environment members are published for the duration of the action
// and restored on every exit path, including panics.
func (e *Environment) runTaskDefinition(ctx context.Context, def *TaskDefinition, args Arguments) (interface{}, error) {
	action := def.Action()
	if action == nil {
		return nil, fmt.Errorf("%w %s", ErrActionNotSet, def.name)
	}

	runSuper := e.newRunSuper(def, args)

	restoreRunSuper := globals.Publish([]globals.Entry{{Key: MemberRunSuper, Value: runSuper}}, nil, e.namespaces...)
	defer restoreRunSuper()

	uninject := e.InjectToGlobal(nil)
	defer uninject()

	return action(ctx, args, e, runSuper)
}
