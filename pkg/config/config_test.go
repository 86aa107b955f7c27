package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FullConfig(t *testing.T) {
	data := []byte(`{
		"mcpServers": {
			"research": {
				"command": "uv",
				"args": ["run", "research_server.py"],
				"env": {"PAPER_DIR": "./papers"}
			}
		},
		"llm": [{"type": "ollama", "models": ["qwen3:8b"]}],
		"channels": {"cli": {}},
		"system_prompt": "You are helpful."
	}`)

	cfg, err := Parse(data)
	require.NoError(t, err)

	require.Contains(t, cfg.MCPServers, "research")
	srv := cfg.MCPServers["research"]
	assert.Equal(t, "uv", srv.Command)
	assert.Equal(t, []string{"run", "research_server.py"}, srv.Args)
	assert.Equal(t, "./papers", srv.Env["PAPER_DIR"])
	assert.Equal(t, "You are helpful.", cfg.SystemPrompt)
	assert.Contains(t, cfg.Channels, "cli")
}

func TestParse_MalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"mcpServers": `))
	assert.Error(t, err)
}

func TestParse_MissingLLMSection(t *testing.T) {
	_, err := Parse([]byte(`{"mcpServers": {}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm")
}

func TestParse_ServerWithoutCommand(t *testing.T) {
	data := []byte(`{
		"mcpServers": {"broken": {"args": ["x"]}},
		"llm": [{"type": "ollama", "models": ["m"]}]
	}`)
	_, err := Parse(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestParse_UnknownKeysIgnored(t *testing.T) {
	data := []byte(`{
		"mcpServers": {},
		"llm": [{"type": "ollama", "models": ["m"]}],
		"someFutureOption": true
	}`)
	_, err := Parse(data)
	assert.NoError(t, err)
}

func TestDefaultSystemConfig(t *testing.T) {
	cfg := DefaultSystemConfig()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 16, cfg.MaxTurns)
	assert.Equal(t, 2024, cfg.MaxTokens)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.EnableTools)
}

func TestLoadSystemConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg := LoadSystemConfig("does_not_exist.json")
	assert.Equal(t, DefaultSystemConfig(), cfg)
}
