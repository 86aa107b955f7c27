package llm

import (
	"time"
)

//----------------------------------------------------------------
// Message - provider-neutral conversation unit
//----------------------------------------------------------------

// Message represents one entry in an ordered conversation history.
// Roles are "user", "assistant" and "system". Tool activity is carried
// inside Content: the assistant requests work with tool_use blocks and
// the following user message answers with tool_result blocks.
type Message struct {
	ID        string         `json:"id,omitempty"`
	Role      string         `json:"role"`
	Content   []ContentBlock `json:"content"`
	Timestamp int64          `json:"timestamp,omitempty"`
}

//----------------------------------------------------------------
// ContentBlock - closed content variant
//----------------------------------------------------------------

// ContentBlock is a tagged variant with exactly three shapes. Type selects
// which field group is meaningful; every consumer switches exhaustively on
// it so an unknown tag is caught at the conversion boundary, not deep
// inside a provider call.
//
//	text        -> Text
//	tool_use    -> ID, Name, Input
//	tool_result -> ToolUseID, Name, Content, IsError
type ContentBlock struct {
	Type string `json:"type"`

	// Text payload (type: "text")
	Text string `json:"text,omitempty"`

	// Tool invocation request (type: "tool_use")
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// Tool invocation outcome (type: "tool_result")
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

//----------------------------------------------------------------
// Helper Functions - Message
//----------------------------------------------------------------

// NewTextMessage builds a plain text message for the given role.
func NewTextMessage(role, text string) Message {
	return Message{
		Role: role,
		Content: []ContentBlock{{
			Type: BlockTypeText,
			Text: text,
		}},
		Timestamp: time.Now().Unix(),
	}
}

// NewSystemMessage builds a system message.
func NewSystemMessage(text string) Message {
	return NewTextMessage("system", text)
}

// NewUserMessage builds a user message.
func NewUserMessage(text string) Message {
	return NewTextMessage("user", text)
}

// NewAssistantMessage builds an assistant message.
func NewAssistantMessage(text string) Message {
	return NewTextMessage("assistant", text)
}

// AddContentBlock appends a content block to the message.
func (m *Message) AddContentBlock(block ContentBlock) {
	m.Content = append(m.Content, block)
}

// GetTextContent concatenates the text blocks of the message.
func (m *Message) GetTextContent() string {
	var result string
	for _, block := range m.Content {
		if block.Type == BlockTypeText {
			result += block.Text
		}
	}
	return result
}

// ToolUses returns the tool_use blocks of the message in order.
func (m *Message) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, block := range m.Content {
		if block.Type == BlockTypeToolUse {
			uses = append(uses, block)
		}
	}
	return uses
}

//----------------------------------------------------------------
// Helper Functions - ContentBlock
//----------------------------------------------------------------

// NewTextBlock builds a text block.
func NewTextBlock(text string) ContentBlock {
	return ContentBlock{
		Type: BlockTypeText,
		Text: text,
	}
}

// NewToolUseBlock builds a tool invocation request block.
func NewToolUseBlock(id, name string, input map[string]any) ContentBlock {
	return ContentBlock{
		Type:  BlockTypeToolUse,
		ID:    id,
		Name:  name,
		Input: input,
	}
}

// NewToolResultBlock builds a tool outcome block answering the tool_use
// with the given id. Name carries the tool name for providers that need
// it when replaying history (Gemini function responses).
func NewToolResultBlock(toolUseID, name, content string, isError bool) ContentBlock {
	return ContentBlock{
		Type:      BlockTypeToolResult,
		ToolUseID: toolUseID,
		Name:      name,
		Content:   content,
		IsError:   isError,
	}
}
