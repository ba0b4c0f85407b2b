package core

import (
	"context"

	"github.com/bailuo/redspot/internal/params"
)

// Arguments maps parameter names to values.
type Arguments map[string]interface{}

// Clone returns a shallow copy of a.
func (a Arguments) Clone() Arguments {
	out := make(Arguments, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Action is the body of a task. It receives the resolved arguments, the
// environment it runs in, and the runSuper binding for its definition.
type Action func(ctx context.Context, args Arguments, env *Environment, runSuper *RunSuper) (interface{}, error)

// TaskDefinition is one link of a task's override chain.
//
// A definition without a parent is a base definition. A definition with a
// parent is an override: it owns the parent exclusively and stores only its
// delta (description, action, extra parameters); everything it omits is read
// from the parent at dispatch time.
type TaskDefinition struct {
	name       string
	isInternal bool
	parent     *TaskDefinition

	description    string
	hasDescription bool
	action         Action

	paramDefinitions           map[string]*params.ParamDefinition
	positionalParamDefinitions []*params.ParamDefinition

	errs []error
}

func newTaskDefinition(name string, isInternal bool, parent *TaskDefinition) *TaskDefinition {
	return &TaskDefinition{
		name:             name,
		isInternal:       isInternal,
		parent:           parent,
		paramDefinitions: make(map[string]*params.ParamDefinition),
	}
}

// Name returns the task name.
func (d *TaskDefinition) Name() string { return d.name }

// IsInternal reports whether the task is hidden from listings.
func (d *TaskDefinition) IsInternal() bool { return d.isInternal }

// Parent returns the definition this one overrides, or nil for a base definition.
func (d *TaskDefinition) Parent() *TaskDefinition { return d.parent }

// IsOverride reports whether d overrides another definition.
func (d *TaskDefinition) IsOverride() bool { return d.parent != nil }

// Depth returns the number of definitions in the chain ending at d.
func (d *TaskDefinition) Depth() int {
	n := 0
	for cur := d; cur != nil; cur = cur.parent {
		n++
	}
	return n
}

// Description returns the nearest description set in the chain.
func (d *TaskDefinition) Description() string {
	for cur := d; cur != nil; cur = cur.parent {
		if cur.hasDescription {
			return cur.description
		}
	}
	return ""
}

// Action returns the nearest action set in the chain, or nil.
func (d *TaskDefinition) Action() Action {
	for cur := d; cur != nil; cur = cur.parent {
		if cur.action != nil {
			return cur.action
		}
	}
	return nil
}

// ParamDefinitions returns the named parameters of the chain. Parameters an
// override adds take precedence over its parent's.
func (d *TaskDefinition) ParamDefinitions() map[string]*params.ParamDefinition {
	out := make(map[string]*params.ParamDefinition)
	if d.parent != nil {
		for k, v := range d.parent.ParamDefinitions() {
			out[k] = v
		}
	}
	for k, v := range d.paramDefinitions {
		out[k] = v
	}
	return out
}

// PositionalParamDefinitions returns the ordered positional parameters.
// Only a base definition declares them.
func (d *TaskDefinition) PositionalParamDefinitions() []*params.ParamDefinition {
	base := d
	for base.parent != nil {
		base = base.parent
	}
	out := make([]*params.ParamDefinition, len(base.positionalParamDefinitions))
	copy(out, base.positionalParamDefinitions)
	return out
}

// Err returns the definition errors recorded while configuring d.
func (d *TaskDefinition) Err() error {
	if len(d.errs) == 0 {
		return nil
	}
	return d.errs[0]
}

// Errs returns every definition error recorded while configuring d.
func (d *TaskDefinition) Errs() []error {
	out := make([]error, len(d.errs))
	copy(out, d.errs)
	return out
}

func (d *TaskDefinition) fail(param, reason string) *TaskDefinition {
	d.errs = append(d.errs, &DefinitionError{Task: d.name, Param: param, Reason: reason})
	return d
}
