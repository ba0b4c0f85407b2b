package core

import (
	"errors"
	"sort"
	"sync"
)

// Registry maps task names to their current, most specific definition.
//
// Defining a name that already exists wraps the existing definition in an
// override rather than replacing it, so the previous definition stays
// reachable through runSuper.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*TaskDefinition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*TaskDefinition)}
}

// DefineTask creates a task, or overrides it if the name is taken. An empty
// description or nil action leaves that part unset; an override then
// inherits it from its parent.
func (r *Registry) DefineTask(name, description string, action Action) *TaskDefinition {
	return r.define(name, description, action, false)
}

// DefineInternalTask is DefineTask for tasks hidden from listings.
func (r *Registry) DefineInternalTask(name, description string, action Action) *TaskDefinition {
	return r.define(name, description, action, true)
}

func (r *Registry) define(name, description string, action Action, isInternal bool) *TaskDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()

	def := newTaskDefinition(name, isInternal, r.tasks[name])
	if name == "" {
		def.fail("", "task name must not be empty")
	}
	if description != "" {
		def.SetDescription(description)
	}
	if action != nil {
		def.SetAction(action)
	}
	r.tasks[name] = def
	return def
}

// Lookup returns the current definition of name.
func (r *Registry) Lookup(name string) (*TaskDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tasks[name]
	return def, ok
}

// Names returns every task name, sorted. Internal tasks are included only
// when includeInternal is true.
func (r *Registry) Names(includeInternal bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tasks))
	for name, def := range r.tasks {
		if def.isInternal && !includeInternal {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered task names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Err returns every definition error recorded on any definition in any
// chain, joined, or nil.
func (r *Registry) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		for cur := r.tasks[name]; cur != nil; cur = cur.parent {
			errs = append(errs, cur.errs...)
		}
	}
	return errors.Join(errs...)
}
