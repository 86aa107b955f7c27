// Package autoload registers every built-in LLM provider factory via
// blank imports. Importing this package from main is all it takes to
// make the providers available to llm.NewFromConfig.
package autoload

import (
	_ "scholar/pkg/llm/anthropic"
	_ "scholar/pkg/llm/gemini"
	_ "scholar/pkg/llm/ollama"
	_ "scholar/pkg/llm/openailm"
)
