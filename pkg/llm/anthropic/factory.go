package anthropic

import (
	"scholar/pkg/config"
	"scholar/pkg/llm"
)

// AnthropicFactory handles creation of Anthropic Clients
type AnthropicFactory struct{}

// Create implements ProviderFactory
func (f *AnthropicFactory) Create(cfg llm.ProviderGroupConfig, sys *config.SystemConfig) ([]llm.Client, error) {
	var clients []llm.Client

	// Cartesian product: Models x Keys (prioritize models)
	for _, model := range cfg.Models {
		for _, key := range cfg.APIKeys {
			client := NewClient(key, model, cfg.BaseURL, cfg.Options)
			clients = append(clients, client)
		}
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider("anthropic", &AnthropicFactory{})
}
