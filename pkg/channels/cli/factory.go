package cli

import (
	"scholar/pkg/api"
	"scholar/pkg/channels"
	"scholar/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

// CLIFactory handles creation of CLI Channels
type CLIFactory struct{}

// Create implements ChannelFactory. The CLI channel takes no options.
func (f *CLIFactory) Create(_ jsoniter.RawMessage, _ *config.SystemConfig) (api.Channel, error) {
	return NewCLIChannel(), nil
}

func init() {
	channels.RegisterChannel("cli", &CLIFactory{})
}
