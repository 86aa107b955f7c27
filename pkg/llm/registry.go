package llm

import (
	"scholar/pkg/config"
)

// ProviderGroupConfig defines the configuration of one model group,
// the standard input for provider factories.
type ProviderGroupConfig struct {
	Type    string         `json:"type"`
	APIKeys []string       `json:"api_keys,omitempty"`
	Models  []string       `json:"models"`
	BaseURL string         `json:"base_url,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// ProviderFactory defines the factory interface for building LLM clients.
type ProviderFactory interface {
	// Create builds a set of atomic clients from the group config.
	Create(groupConfig ProviderGroupConfig, systemConfig *config.SystemConfig) ([]Client, error)
}

// Global provider registry
var providerRegistry = make(map[string]ProviderFactory)

// RegisterProvider registers a provider factory.
func RegisterProvider(name string, factory ProviderFactory) {
	providerRegistry[name] = factory
}

// GetProviderFactory returns the factory registered under the given name.
func GetProviderFactory(name string) (ProviderFactory, bool) {
	f, ok := providerRegistry[name]
	return f, ok
}
