package config

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

// ServerConfig describes how to launch one MCP tool server over stdio.
type ServerConfig struct {
	// Command is the executable to spawn (e.g., "uv", "npx", "python").
	Command string `json:"command"`
	// Args are the command-line arguments passed to the executable.
	Args []string `json:"args"`
	// Env holds extra environment variables for the child process.
	Env map[string]string `json:"env,omitempty"`
}

// Config defines the global application configuration structure.
// This structure maps directly to the server_config.json file and holds
// business-level settings: the MCP server launch table, LLM provider
// choices, and chat channel credentials.
type Config struct {
	// MCPServers maps a server name (e.g., "research", "filesystem") to
	// the stdio launch configuration for that server.
	MCPServers map[string]ServerConfig `json:"mcpServers"`
	// Channels contains a map of channel identifiers (e.g., "cli", "telegram")
	// to their specific configuration payloads in raw JSON format.
	Channels map[string]jsoniter.RawMessage `json:"channels"`
	// LLM holds the configuration for the LLM provider groups in raw JSON.
	LLM jsoniter.RawMessage `json:"llm"`
	// SystemPrompt is the global persona/instruction string sent to the AI
	// as the initial system message in every conversation.
	SystemPrompt string `json:"system_prompt"`
}

// Validate ensures the configuration structure contains all mandatory fields.
// It acts as a primary guard before the system proceeds to initialization.
func (c *Config) Validate() error {
	if len(c.LLM) == 0 {
		return fmt.Errorf("mandatory 'llm' configuration is missing or empty")
	}
	for name, srv := range c.MCPServers {
		if srv.Command == "" {
			return fmt.Errorf("mcp server %q is missing the 'command' field", name)
		}
	}
	return nil
}

// SystemConfig defines engine-level technical parameters.
// These settings are usually stored in system.json and control the
// performance, reliability, and technical behavior of the engine.
type SystemConfig struct {
	// MaxRetries is the number of times the system will attempt to
	// recover from a transient LLM or network error before giving up.
	MaxRetries int `json:"max_retries"`
	// MaxTurns caps the number of model requests one query may issue.
	// Each tool round costs one turn; when the budget runs out the query
	// ends with whatever partial answer has accumulated.
	MaxTurns int `json:"max_turns"`
	// MaxTokens is the per-request output token budget sent to the model.
	MaxTokens int `json:"max_tokens"`
	// RetryDelayMs is the duration to wait (in milliseconds) between
	// consecutive retry attempts.
	RetryDelayMs int `json:"retry_delay_ms"`
	// LLMTimeoutMs is the hard cutoff time (in milliseconds) for a full
	// query, tool rounds included. The context is cancelled if exceeded.
	LLMTimeoutMs int `json:"llm_timeout_ms"`
	// ConnectTimeoutMs bounds the stdio handshake with one MCP server.
	ConnectTimeoutMs int `json:"connect_timeout_ms"`
	// OllamaDefaultURL is the fallback endpoint used when connecting
	// to a local Ollama instance if no specific URL is provided.
	OllamaDefaultURL string `json:"ollama_default_url"`
	// TelegramMessageLimit is the maximum character count for a single
	// Telegram message. Longer responses will be split into multiple chunks.
	TelegramMessageLimit int `json:"telegram_message_limit"`
	// DebugLLM enables saving every model request/response exchange to the
	// /debug folder for inspection and troubleshooting purposes.
	DebugLLM bool `json:"debug_llm"`
	// LogLevel sets the minimum severity for log output.
	// Accepted values: "debug", "info", "warn", "error". Default: "info".
	LogLevel string `json:"log_level"`
	// EnableTools globally toggles tool calling. If false, the AI is not
	// offered any of the aggregated MCP tools.
	EnableTools bool `json:"enable_tools"`
}

// DefaultSystemConfig returns a SystemConfig pointer initialized with hardcoded
// safe default values. This is used as a fallback when the system.json file
// is missing or corrupt, ensuring the engine can always start.
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		MaxRetries:           3,
		MaxTurns:             16,
		MaxTokens:            2024,
		RetryDelayMs:         500,
		LLMTimeoutMs:         600000,
		ConnectTimeoutMs:     15000,
		OllamaDefaultURL:     "http://localhost:11434",
		TelegramMessageLimit: 4000,
		LogLevel:             "info",
		EnableTools:          true,
	}
}

// Load reads and parses the JSON configuration files from the current working directory.
// It first attempts to load 'server_config.json' (app config). If this file is
// missing or malformed, it returns an error; startup cannot proceed without it.
// Then it calls LoadSystemConfig to load 'system.json'.
func Load() (*Config, *SystemConfig, error) {
	appPath := "server_config.json"
	if _, err := os.Stat(appPath); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("config file '%s' not found. please create one", appPath)
	}

	appFile, err := os.ReadFile(appPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(appFile)
	if err != nil {
		return nil, nil, err
	}

	sysCfg := LoadSystemConfig("system.json")

	return cfg, sysCfg, nil
}

// Parse decodes and validates the application config payload.
// Unknown keys are ignored; missing mandatory sections are errors.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadSystemConfig attempts to load system settings, returns defaults if it fails
func LoadSystemConfig(path string) *SystemConfig {
	cfg := DefaultSystemConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		return cfg // File not found, use defaults
	}

	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(file, cfg); err != nil {
		return cfg // Parse failed, use defaults
	}

	return cfg
}
