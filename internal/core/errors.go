package core

import (
	"errors"
	"fmt"
)

// Sentinel errors. The typed errors below match them through errors.Is.
var (
	// ErrUnrecognizedTask indicates Run was called with an unknown task name.
	ErrUnrecognizedTask = errors.New("unrecognized task")

	// ErrRunSuperNotAvailable indicates runSuper was invoked on a base definition.
	ErrRunSuperNotAvailable = errors.New("runSuper not available")

	// ErrNetworkConfigNotFound indicates the selected network isn't configured.
	ErrNetworkConfigNotFound = errors.New("network config not found")

	// ErrInvalidDefinition indicates a task or parameter was defined incorrectly.
	ErrInvalidDefinition = errors.New("invalid task definition")

	// ErrActionNotSet indicates a task in the chain has no action to run.
	ErrActionNotSet = errors.New("no action set for task")

	// ErrEnvironmentNotReady indicates Run was called while extenders were
	// still being applied.
	ErrEnvironmentNotReady = errors.New("environment is still being constructed")

	// ErrReservedMember indicates an extender tried to replace a built-in member.
	ErrReservedMember = errors.New("reserved environment member")
)

// UnrecognizedTaskError is returned by Run for unknown task names.
type UnrecognizedTaskError struct {
	Name string
}

func (e *UnrecognizedTaskError) Error() string {
	return fmt.Sprintf("unrecognized task %s", e.Name)
}

func (e *UnrecognizedTaskError) Is(target error) bool { return target == ErrUnrecognizedTask }

// RunSuperNotAvailableError is returned when runSuper is invoked from a task
// that doesn't override another one.
type RunSuperNotAvailableError struct {
	TaskName string
}

func (e *RunSuperNotAvailableError) Error() string {
	return fmt.Sprintf("tried to call runSuper from a non-overridden definition of task %s", e.TaskName)
}

func (e *RunSuperNotAvailableError) Is(target error) bool { return target == ErrRunSuperNotAvailable }

// NetworkConfigNotFoundError is returned at environment construction when
// the selected network has no configuration entry.
type NetworkConfigNotFoundError struct {
	Network string
}

func (e *NetworkConfigNotFoundError) Error() string {
	return fmt.Sprintf("network %s doesn't exist", e.Network)
}

func (e *NetworkConfigNotFoundError) Is(target error) bool { return target == ErrNetworkConfigNotFound }

// DefinitionError describes a mistake in a task or parameter definition.
type DefinitionError struct {
	Task   string
	Param  string
	Reason string
}

func (e *DefinitionError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("task %s, param %s: %s", e.Task, e.Param, e.Reason)
	}
	return fmt.Sprintf("task %s: %s", e.Task, e.Reason)
}

func (e *DefinitionError) Is(target error) bool { return target == ErrInvalidDefinition }
