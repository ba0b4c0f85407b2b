// Package globals implements the shared namespace a running task's environment
// is published into, and the scoped publish/restore discipline around it.
//
// Task actions receive their environment explicitly; the namespace exists for
// code that looks members up by name, such as Lua plugins reading the
// "network" or "runSuper" globals.
package globals

import "sync"

// Namespace is a mutable mapping from global names to values.
type Namespace interface {
	// Lookup returns the value bound to key and whether it is bound at all.
	Lookup(key string) (interface{}, bool)
	// Set binds key to value.
	Set(key string, value interface{})
	// Delete unbinds key.
	Delete(key string)
}

// Map is a goroutine-safe Namespace backed by a Go map.
type Map struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

// NewMap creates an empty namespace.
func NewMap() *Map {
	return &Map{values: make(map[string]interface{})}
}

func (m *Map) Lookup(key string) (interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *Map) Set(key string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *Map) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

// Keys returns the currently bound keys in no particular order.
func (m *Map) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of bound keys.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

var shared = NewMap()

// Shared returns the process-wide namespace.
func Shared() *Map {
	return shared
}
