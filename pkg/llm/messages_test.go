package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageHelpers(t *testing.T) {
	msg := NewUserMessage("hello")
	assert.Equal(t, "user", msg.Role)
	assert.Equal(t, "hello", msg.GetTextContent())

	sys := NewSystemMessage("persona")
	assert.Equal(t, "system", sys.Role)

	asst := NewAssistantMessage("reply")
	assert.Equal(t, "assistant", asst.Role)
}

func TestMessage_GetTextContentSkipsToolBlocks(t *testing.T) {
	msg := Message{Role: "assistant"}
	msg.AddContentBlock(NewTextBlock("part one "))
	msg.AddContentBlock(NewToolUseBlock("call_1", "search_papers", map[string]any{"topic": "ai"}))
	msg.AddContentBlock(NewTextBlock("part two"))

	assert.Equal(t, "part one part two", msg.GetTextContent())
}

func TestMessage_ToolUsesKeepsOrder(t *testing.T) {
	msg := Message{Role: "assistant"}
	msg.AddContentBlock(NewToolUseBlock("call_1", "search_papers", nil))
	msg.AddContentBlock(NewTextBlock("and then"))
	msg.AddContentBlock(NewToolUseBlock("call_2", "extract_info", nil))

	uses := msg.ToolUses()
	require.Len(t, uses, 2)
	assert.Equal(t, "call_1", uses[0].ID)
	assert.Equal(t, "call_2", uses[1].ID)
}

func TestNewToolResultBlock(t *testing.T) {
	block := NewToolResultBlock("call_1", "search_papers", "output", true)
	assert.Equal(t, BlockTypeToolResult, block.Type)
	assert.Equal(t, "call_1", block.ToolUseID)
	assert.Equal(t, "search_papers", block.Name)
	assert.Equal(t, "output", block.Content)
	assert.True(t, block.IsError)
}
