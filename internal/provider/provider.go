// Package provider builds the network provider tasks use to talk to a node.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/bailuo/redspot/internal/config"
	"github.com/bailuo/redspot/internal/logging"
)

var log = logging.New("core:provider")

// ErrProviderClosed is returned when calling a closed provider.
var ErrProviderClosed = errors.New("provider is closed")

// Provider sends requests to a node of a configured network.
type Provider interface {
	// Call invokes an RPC method and returns its result.
	Call(ctx context.Context, method string, params ...interface{}) (gjson.Result, error)
	// Endpoint returns the address the provider talks to.
	Endpoint() string
	// Close releases the provider's resources.
	Close() error
}

// Factory creates a provider for a network. It is called lazily, at most
// once per environment.
type Factory func(networkName string, cfg config.NetworkConfig) (Provider, error)

// DefaultFactory creates JSON-RPC providers.
func DefaultFactory(networkName string, cfg config.NetworkConfig) (Provider, error) {
	return NewRPC(cfg.Endpoint, cfg.Timeout)
}

// Lazy defers provider construction until first use and caches the result,
// including a construction error, for its lifetime.
type Lazy struct {
	networkName string
	cfg         config.NetworkConfig
	factory     Factory

	mu       sync.Mutex
	built    bool
	provider Provider
	err      error
}

// NewLazy returns a provider handle for the network. Nothing is constructed
// until Get is called.
func NewLazy(networkName string, cfg config.NetworkConfig, factory Factory) *Lazy {
	if factory == nil {
		factory = DefaultFactory
	}
	return &Lazy{networkName: networkName, cfg: cfg, factory: factory}
}

// Get returns the provider, constructing it on first call.
func (l *Lazy) Get() (Provider, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.built {
		log.Debugf("Creating provider for network %s", l.networkName)
		l.provider, l.err = l.factory(l.networkName, l.cfg)
		if l.err != nil {
			l.err = fmt.Errorf("create provider for network %s: %w", l.networkName, l.err)
		}
		l.built = true
	}
	return l.provider, l.err
}

// Built reports whether construction has been attempted.
func (l *Lazy) Built() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.built
}

// Call constructs the provider if needed and forwards the call.
func (l *Lazy) Call(ctx context.Context, method string, params ...interface{}) (gjson.Result, error) {
	p, err := l.Get()
	if err != nil {
		return gjson.Result{}, err
	}
	return p.Call(ctx, method, params...)
}

// Endpoint returns the configured endpoint without constructing the provider.
func (l *Lazy) Endpoint() string {
	return l.cfg.Endpoint
}

// Close closes the provider if it was constructed. A Close racing with the
// first Get waits for construction to finish.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.built || l.provider == nil {
		return nil
	}
	return l.provider.Close()
}

var _ Provider = (*Lazy)(nil)
