package llm

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ExchangeDebugger writes full request/response pairs to disk for
// troubleshooting. It centralizes directory creation, file naming,
// and safe writing so provider clients stay small.
type ExchangeDebugger struct {
	provider string
	enabled  bool
}

// NewExchangeDebugger creates a debugger for the given provider.
func NewExchangeDebugger(provider string) *ExchangeDebugger {
	return &ExchangeDebugger{provider: provider}
}

// SetEnabled toggles dumping.
func (d *ExchangeDebugger) SetEnabled(enabled bool) {
	d.enabled = enabled
}

// Dump persists one exchange under debug/llm/<provider>/<timestamp>.json.
// Failures are logged and otherwise ignored; debugging must never break
// the conversation.
func (d *ExchangeDebugger) Dump(req Request, completion *Completion, callErr error) {
	if !d.enabled {
		return
	}

	debugDir := filepath.Join("debug", "llm", d.provider)
	if err := os.MkdirAll(debugDir, 0755); err != nil {
		slog.Error("Failed to create debug directory", "dir", debugDir, "error", err)
		return
	}

	entry := map[string]any{
		"time":     time.Now().Format(time.RFC3339),
		"request":  req,
		"response": completion,
	}
	if callErr != nil {
		entry["error"] = callErr.Error()
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		slog.Warn("Failed to marshal debug exchange", "error", err)
		return
	}

	filename := filepath.Join(debugDir, fmt.Sprintf("%s.json", time.Now().Format("20060102_150405.000")))
	if err := os.WriteFile(filename, data, 0644); err != nil {
		slog.Warn("Failed to write debug file", "file", filename, "error", err)
		return
	}

	slog.Debug("Exchange dumped", "provider", d.provider, "file", filename)
}
