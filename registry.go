package chorus

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shillcollin/chorus/core"
)

// ConnectorConfig holds configuration for constructing a connector.
type ConnectorConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Headers    map[string]string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// ConnectorFactory builds connector instances from configuration.
type ConnectorFactory interface {
	// New creates an unconnected connector with the given configuration.
	New(config ConnectorConfig) (core.Connector, error)

	// DefaultConfig returns default configuration, typically from environment variables.
	DefaultConfig() ConnectorConfig
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]ConnectorFactory)
)

// RegisterConnector registers a connector factory. This is typically called
// from a provider package's init() function to enable self-registration on
// import.
//
// Example:
//
//	func init() {
//	    chorus.RegisterConnector("openai", &Factory{})
//	}
//
// Panics if a connector with the same name is already registered.
func RegisterConnector(name string, factory ConnectorFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("chorus: connector %q already registered", name))
	}
	registry[name] = factory
}

// GetConnectorFactory returns the factory for a registered connector.
func GetConnectorFactory(name string) (ConnectorFactory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := registry[name]
	return factory, ok
}

// RegisteredProviders returns the names of all registered connector factories.
func RegisteredProviders() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// IsProviderRegistered checks if a connector factory is registered.
func IsProviderRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// clearRegistry removes all registered factories. For testing only.
func clearRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]ConnectorFactory)
}
