// Package lifecycle manages the process-wide redspot context: the task
// registry and extenders collected before an environment exists, and the
// environment once it has been built.
package lifecycle

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/bailuo/redspot/internal/config"
	"github.com/bailuo/redspot/internal/core"
	"github.com/bailuo/redspot/internal/globals"
	"github.com/bailuo/redspot/internal/logging"
	"github.com/bailuo/redspot/internal/plugin"
)

var log = logging.New("context")

var (
	// ErrAlreadyCreated is returned by Create while a context exists.
	ErrAlreadyCreated = errors.New("redspot context is already created")

	// ErrNotCreated is returned by Get when no context exists.
	ErrNotCreated = errors.New("redspot context is not created")

	// ErrEnvironmentAlreadySet is returned by SetEnvironment on a context
	// that already has one.
	ErrEnvironmentAlreadySet = errors.New("redspot environment is already defined in the context")

	// ErrEnvironmentNotSet is returned by GetEnvironment before one is attached.
	ErrEnvironmentNotSet = errors.New("redspot environment is not defined in the context")
)

// Context holds everything a process collects while setting up a run.
type Context struct {
	Tasks                *core.Registry
	EnvironmentExtenders []core.Extender
	ConfigExtenders      []config.Extender
	Plugins              *plugin.Host

	environment *core.Environment
}

var (
	mu      sync.Mutex
	current *Context
)

// Create makes the process context. Only one may exist at a time.
func Create() (*Context, error) {
	mu.Lock()
	defer mu.Unlock()

	if current != nil {
		return nil, ErrAlreadyCreated
	}

	c := &Context{Tasks: core.NewRegistry()}
	c.Plugins = plugin.NewHost(plugin.Hooks{
		Registry:          c.Tasks,
		ExtendEnvironment: c.ExtendEnvironment,
		ExtendConfig:      c.ExtendConfig,
	})
	current = c
	log.Debugf("context created")
	return c, nil
}

// Get returns the process context.
func Get() (*Context, error) {
	mu.Lock()
	defer mu.Unlock()

	if current == nil {
		return nil, ErrNotCreated
	}
	return current, nil
}

// IsCreated reports whether a process context exists.
func IsCreated() bool {
	mu.Lock()
	defer mu.Unlock()
	return current != nil
}

// ExtendEnvironment registers an extender applied to the environment when
// it is built.
func (c *Context) ExtendEnvironment(e core.Extender) {
	c.EnvironmentExtenders = append(c.EnvironmentExtenders, e)
}

// ExtendConfig registers an extender applied to the loaded config before
// the environment is built.
func (c *Context) ExtendConfig(e config.Extender) {
	c.ConfigExtenders = append(c.ConfigExtenders, e)
}

// UsePlugin loads a Lua plugin into the context. A plugin file is only
// loaded once.
func (c *Context) UsePlugin(path string) error {
	return c.Plugins.LoadFile(path)
}

// SetEnvironment attaches env to the context.
func (c *Context) SetEnvironment(env *core.Environment) error {
	if c.environment != nil {
		return ErrEnvironmentAlreadySet
	}
	c.environment = env
	return nil
}

// GetEnvironment returns the attached environment.
func (c *Context) GetEnvironment() (*core.Environment, error) {
	if c.environment == nil {
		return nil, ErrEnvironmentNotSet
	}
	return c.environment, nil
}

// CreateEnvironment finishes setup: it loads the plugins the config lists,
// applies config extenders in order, builds the environment publishing to
// both the shared namespace and the plugins' globals, and attaches it.
func (c *Context) CreateEnvironment(cfg *config.Config, args core.RuntimeArguments, opts ...core.Option) (*core.Environment, error) {
	for _, p := range cfg.Plugins {
		if err := c.UsePlugin(p); err != nil {
			return nil, err
		}
	}

	for i, extend := range c.ConfigExtenders {
		if err := extend(cfg); err != nil {
			return nil, fmt.Errorf("apply config extender %d: %w", i, err)
		}
	}

	opts = append([]core.Option{core.WithNamespaces(globals.Shared(), c.Plugins.Namespace())}, opts...)
	env, err := core.NewEnvironment(cfg, args, c.Tasks, c.EnvironmentExtenders, opts...)
	if err != nil {
		return nil, err
	}
	if err := c.SetEnvironment(env); err != nil {
		return nil, err
	}
	return env, nil
}

// Reset tears the process context down so the next run starts clean.
//
// With an environment attached, every key the environment may have
// published is cleared and its config file is unloaded from the cache.
// Without one, for example when loading the config failed, the config found
// from the working directory is unloaded if there is one. Reset is a no-op
// when no context exists.
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	if current == nil {
		return
	}

	if env := current.environment; env != nil {
		globals.Clear(env.MemberNames(), env.Namespaces()...)
		if env.Config != nil && env.Config.Paths.ConfigFile != "" {
			config.Unload(env.Config.Paths.ConfigFile)
		}
		if env.Network != nil && env.Network.Provider != nil {
			if err := env.Network.Provider.Close(); err != nil {
				log.Debugf("closing provider: %v", err)
			}
		}
	} else if wd, err := os.Getwd(); err == nil {
		if path, err := config.FindConfigPath(wd); err == nil {
			config.Unload(path)
		}
	}

	if err := current.Plugins.Close(); err != nil {
		log.Debugf("closing plugin host: %v", err)
	}
	current = nil
	log.Debugf("context reset")
}
