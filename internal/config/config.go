// Package config loads the redspot project configuration.
// It supports project file discovery, built-in defaults, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
)

// FileBaseName is the base name of the project configuration file.
const FileBaseName = "redspot.config"

// configExtensions lists the file extensions searched for, in order.
var configExtensions = []string{".yaml", ".yml", ".json", ".toml"}

// ErrNotInProject is returned when no configuration file can be found.
var ErrNotInProject = errors.New("not inside a redspot project: no " + FileBaseName + ".yaml found")

// Config is the resolved project configuration.
type Config struct {
	DefaultNetwork string                   `mapstructure:"defaultNetwork" yaml:"defaultNetwork"`
	Networks       map[string]NetworkConfig `mapstructure:"networks" yaml:"networks"`
	Rust           RustConfig               `mapstructure:"rust" yaml:"rust"`
	// Plugins lists Lua plugin files, relative to the config file, in load order.
	Plugins []string `mapstructure:"plugins" yaml:"plugins,omitempty"`
	Paths   Paths    `mapstructure:"paths" yaml:"paths"`
	// Extra holds tool-specific sections redspot itself doesn't interpret.
	Extra map[string]interface{} `mapstructure:",remain" yaml:",inline"`
}

// Extender mutates a loaded configuration before an environment is built.
type Extender func(cfg *Config) error

// NetworkConfig describes how to reach one network.
type NetworkConfig struct {
	Endpoint    string                 `mapstructure:"endpoint" yaml:"endpoint"`
	Types       map[string]interface{} `mapstructure:"types" yaml:"types,omitempty"`
	ExplorerURL string                 `mapstructure:"explorerUrl" yaml:"explorerUrl,omitempty"`
	Timeout     time.Duration          `mapstructure:"timeout" yaml:"timeout"`
}

// RustConfig holds toolchain settings for contract builds.
type RustConfig struct {
	Toolchain string `mapstructure:"toolchain" yaml:"toolchain"`
}

// Paths holds absolute project paths.
type Paths struct {
	Root       string `mapstructure:"root" yaml:"root"`
	ConfigFile string `mapstructure:"configFile" yaml:"configFile"`
	Sources    string `mapstructure:"sources" yaml:"sources"`
	Artifacts  string `mapstructure:"artifacts" yaml:"artifacts"`
}

// Network returns the configuration for the named network.
// Viper folds map keys to lower case, so a case-insensitive match is tried
// when there's no exact one.
func (c *Config) Network(name string) (NetworkConfig, bool) {
	if n, ok := c.Networks[name]; ok {
		return n, true
	}
	n, ok := c.Networks[strings.ToLower(name)]
	return n, ok
}

// NetworkNames returns the configured network names.
func (c *Config) NetworkNames() []string {
	names := make([]string, 0, len(c.Networks))
	for name := range c.Networks {
		names = append(names, name)
	}
	return names
}

// ToMap returns the configuration as generic maps, keyed as in the YAML file.
func (c *Config) ToMap() (map[string]interface{}, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	m := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return m, nil
}

// FromMap builds a configuration from generic maps shaped like ToMap's output.
func FromMap(m map[string]interface{}) (*Config, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Load loads the configuration file at path. Results are cached by absolute
// path until Unload is called for it.
// Precedence (highest to lowest):
// 1. Environment variables (REDSPOT_DEFAULT_NETWORK, REDSPOT_RUST_TOOLCHAIN)
// 2. The config file
// 3. Built-in defaults
func Load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	if cfg, ok := Cached(abs); ok {
		return cfg, nil
	}

	v := newViper()
	v.SetConfigFile(abs)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", abs, err)
	}

	cfg, err := decode(v, abs)
	if err != nil {
		return nil, err
	}
	store(abs, cfg)
	return cfg, nil
}

// Default returns a configuration made only of defaults and environment
// overrides, rooted at dir. It is used outside of a project.
func Default(dir string) (*Config, error) {
	return decode(newViper(), filepath.Join(dir, FileBaseName+".yaml"))
}

// FindConfigPath searches for the config file in dir and its parents.
func FindConfigPath(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve directory: %w", err)
	}

	for {
		for _, ext := range configExtensions {
			candidate := filepath.Join(dir, FileBaseName+ext)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotInProject
		}
		dir = parent
	}
}

// newViper returns a viper instance with defaults and env bindings set.
func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.BindEnv("defaultNetwork", "REDSPOT_DEFAULT_NETWORK")
	v.BindEnv("rust.toolchain", "REDSPOT_RUST_TOOLCHAIN")
	return v
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("defaultNetwork", "development")
	v.SetDefault("networks.development.endpoint", "ws://127.0.0.1:9944")
	v.SetDefault("rust.toolchain", "nightly")
	v.SetDefault("paths.sources", "contracts")
	v.SetDefault("paths.artifacts", "artifacts")
}

func decode(v *viper.Viper, configFile string) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	for name, n := range cfg.Networks {
		n.Endpoint = os.ExpandEnv(n.Endpoint)
		if n.Timeout <= 0 {
			n.Timeout = 30 * time.Second
		}
		cfg.Networks[name] = n
	}

	root := filepath.Dir(configFile)
	if cfg.Paths.Root != "" {
		root = resolvePath(filepath.Dir(configFile), cfg.Paths.Root)
	}
	cfg.Paths.Root = root
	cfg.Paths.ConfigFile = configFile
	cfg.Paths.Sources = resolvePath(root, cfg.Paths.Sources)
	cfg.Paths.Artifacts = resolvePath(root, cfg.Paths.Artifacts)

	for i, p := range cfg.Plugins {
		cfg.Plugins[i] = resolvePath(filepath.Dir(configFile), p)
	}

	return cfg, nil
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
