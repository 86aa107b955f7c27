package llm

// StopReason constants define normalized reasons for LLM generation termination.
// All providers must normalize their native stop reasons to these values.
const (
	StopReasonStop    = "stop"     // Normal completion
	StopReasonToolUse = "tool_use" // Model paused to request tool execution
	StopReasonLength  = "length"   // Output truncated due to token limit
)

// ContentBlock Type constants define the supported content block formats
// used throughout the message pipeline.
const (
	BlockTypeText       = "text"        // Plain text content
	BlockTypeToolUse    = "tool_use"    // Tool invocation requested by the model
	BlockTypeToolResult = "tool_result" // Tool outcome fed back to the model
)
