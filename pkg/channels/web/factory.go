package web

import (
	"fmt"

	"scholar/pkg/api"
	"scholar/pkg/channels"
	"scholar/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

// WebFactory handles creation of Web Channels
type WebFactory struct{}

// Create implements ChannelFactory
func (f *WebFactory) Create(rawConfig jsoniter.RawMessage, _ *config.SystemConfig) (api.Channel, error) {
	var pCfg WebConfig
	pCfg.Port = 8080

	if err := json.Unmarshal(rawConfig, &pCfg); err != nil {
		return nil, fmt.Errorf("failed to parse web config: %w", err)
	}

	return NewWebChannel(pCfg), nil
}

func init() {
	channels.RegisterChannel("web", &WebFactory{})
}
