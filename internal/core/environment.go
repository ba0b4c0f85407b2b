package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bailuo/redspot/internal/config"
	"github.com/bailuo/redspot/internal/globals"
	"github.com/bailuo/redspot/internal/logging"
	"github.com/bailuo/redspot/internal/provider"
)

var log = logging.New("core:rse")

// Names of the built-in environment members, as published to namespaces.
const (
	MemberConfig           = "config"
	MemberRuntimeArguments = "redspotArguments"
	MemberTasks            = "tasks"
	MemberNetwork          = "network"
	MemberRun              = "run"
	MemberRunSuper         = "runSuper"
)

// ExcludedMembers are never published, so a task can't reach the dispatch
// internals through a namespace.
var ExcludedMembers = []string{"injectToGlobal", "runTaskDefinition"}

var reservedMembers = map[string]bool{
	MemberConfig:           true,
	MemberRuntimeArguments: true,
	MemberTasks:            true,
	MemberNetwork:          true,
	MemberRun:              true,
	MemberRunSuper:         true,
	"injectToGlobal":       true,
	"runTaskDefinition":    true,
}

// RuntimeArguments are the global command-line arguments.
type RuntimeArguments struct {
	// Network overrides the config's default network when non-empty.
	Network string
	// LogLevel, when set, is applied at environment construction.
	LogLevel string
	Config   string
	Verbose  bool
	LogFile  string
}

// Network is the network selected for a run.
type Network struct {
	Name     string
	Config   config.NetworkConfig
	Provider *provider.Lazy
}

// Extender is applied once to every new environment, in registration order.
type Extender func(env *Environment) error

// RunFunc is the signature of Environment.Run.
type RunFunc func(ctx context.Context, name string, args Arguments) (interface{}, error)

// Option configures an Environment.
type Option func(*Environment)

// WithProviderFactory sets how the network provider is built.
func WithProviderFactory(f provider.Factory) Option {
	return func(e *Environment) { e.providerFactory = f }
}

// WithNamespaces sets the namespaces members are published to while a task
// runs. The default is the process-wide globals.Shared namespace.
func WithNamespaces(ns ...globals.Namespace) Option {
	return func(e *Environment) { e.namespaces = ns }
}

// Environment is the context a run executes in. Actions and extenders
// receive it explicitly.
type Environment struct {
	Config           *config.Config
	RuntimeArguments RuntimeArguments
	Tasks            *Registry
	Network          *Network
	// RunID identifies the environment in log output.
	RunID string

	extensions      map[string]interface{}
	extensionOrder  []string
	namespaces      []globals.Namespace
	providerFactory provider.Factory
	ready           bool
	log             *logging.Logger
}

// NewEnvironment builds an environment and applies extenders in order.
//
// The network is args.Network, or cfg.DefaultNetwork when empty. A network
// without a configuration entry fails construction with
// *NetworkConfigNotFoundError; the provider itself is only built on first use.
func NewEnvironment(cfg *config.Config, args RuntimeArguments, tasks *Registry, extenders []Extender, opts ...Option) (*Environment, error) {
	runID := uuid.New().String()[:8]
	log.Debugf("Creating RedspotRuntimeEnvironment %s", runID)

	if args.LogLevel != "" {
		lvl, err := logging.ParseLevel(args.LogLevel)
		if err != nil {
			log.Warnf("ignoring log level: %v", err)
		} else {
			logging.SetLevel(lvl)
		}
	}

	if err := tasks.Err(); err != nil {
		return nil, err
	}

	networkName := args.Network
	if networkName == "" {
		networkName = cfg.DefaultNetwork
	}
	networkConfig, ok := cfg.Network(networkName)
	if !ok {
		return nil, &NetworkConfigNotFoundError{Network: networkName}
	}

	e := &Environment{
		Config:           cfg,
		RuntimeArguments: args,
		Tasks:            tasks,
		RunID:            runID,
		extensions:       make(map[string]interface{}),
		namespaces:       []globals.Namespace{globals.Shared()},
		log:              log.With(runID),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.Network = &Network{
		Name:     networkName,
		Config:   networkConfig,
		Provider: provider.NewLazy(networkName, networkConfig, e.providerFactory),
	}

	for i, extend := range extenders {
		if err := extend(e); err != nil {
			return nil, fmt.Errorf("apply environment extender %d: %w", i, err)
		}
	}

	e.ready = true
	return e, nil
}

// Ready reports whether construction has finished.
func (e *Environment) Ready() bool { return e.ready }

// Set adds or replaces an extension member. Built-in member names are reserved.
func (e *Environment) Set(key string, value interface{}) error {
	if reservedMembers[key] {
		return fmt.Errorf("%w: %s", ErrReservedMember, key)
	}
	if _, exists := e.extensions[key]; !exists {
		e.extensionOrder = append(e.extensionOrder, key)
	}
	e.extensions[key] = value
	return nil
}

// Get returns a member by name, built-in or extension.
func (e *Environment) Get(key string) (interface{}, bool) {
	switch key {
	case MemberConfig:
		return e.Config, true
	case MemberRuntimeArguments:
		return e.RuntimeArguments, true
	case MemberTasks:
		return e.Tasks, true
	case MemberNetwork:
		return e.Network, true
	case MemberRun:
		return RunFunc(e.Run), true
	}
	v, ok := e.extensions[key]
	return v, ok
}

// Members returns every member in publication order: built-ins first, then
// extensions in the order they were added.
func (e *Environment) Members() []globals.Entry {
	entries := []globals.Entry{
		{Key: MemberConfig, Value: e.Config},
		{Key: MemberRuntimeArguments, Value: e.RuntimeArguments},
		{Key: MemberTasks, Value: e.Tasks},
		{Key: MemberNetwork, Value: e.Network},
		{Key: MemberRun, Value: RunFunc(e.Run)},
	}
	for _, key := range e.extensionOrder {
		entries = append(entries, globals.Entry{Key: key, Value: e.extensions[key]})
	}
	return entries
}

// MemberNames returns the names Members would publish, plus runSuper.
func (e *Environment) MemberNames() []string {
	members := e.Members()
	names := make([]string, 0, len(members)+1)
	for _, m := range members {
		names = append(names, m.Key)
	}
	return append(names, MemberRunSuper)
}

// Namespaces returns the namespaces members are published to.
func (e *Environment) Namespaces() []globals.Namespace {
	return e.namespaces
}

// AddNamespace adds a namespace to publish members to.
func (e *Environment) AddNamespace(ns globals.Namespace) {
	e.namespaces = append(e.namespaces, ns)
}

// InjectToGlobal publishes every member not in exclude to the environment's
// namespaces and returns the function that restores them. A nil exclude
// means ExcludedMembers.
func (e *Environment) InjectToGlobal(exclude []string) (restore func()) {
	if exclude == nil {
		exclude = ExcludedMembers
	}
	return globals.Publish(e.Members(), exclude, e.namespaces...)
}

// Run executes the task called name with args.
//
// It fails with *UnrecognizedTaskError for unknown names and with the
// argument resolution error if args don't satisfy the task's parameters.
// Errors from the action are returned unchanged.
func (e *Environment) Run(ctx context.Context, name string, args Arguments) (interface{}, error) {
	if !e.ready {
		return nil, ErrEnvironmentNotReady
	}

	def, ok := e.Tasks.Lookup(name)
	e.log.Debugf("Running task %s", name)
	if !ok {
		return nil, &UnrecognizedTaskError{Name: name}
	}

	resolved, err := ResolveArguments(def, args)
	if err != nil {
		return nil, err
	}

	return e.runTaskDefinition(ctx, def, resolved)
}
