package config

import (
	"path/filepath"
	"sync"
)

// cache holds loaded configurations keyed by absolute config file path.
var cache = struct {
	mu      sync.RWMutex
	configs map[string]*Config
}{configs: make(map[string]*Config)}

func store(path string, cfg *Config) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.configs[path] = cfg
}

// Cached returns the cached configuration for path, if any.
func Cached(path string) (*Config, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}
	cache.mu.RLock()
	defer cache.mu.RUnlock()
	cfg, ok := cache.configs[abs]
	return cfg, ok
}

// Unload discards the cached configuration for path so the next Load reads
// the file again. It reports whether anything was cached.
func Unload(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	cache.mu.Lock()
	defer cache.mu.Unlock()
	_, ok := cache.configs[abs]
	delete(cache.configs, abs)
	return ok
}
