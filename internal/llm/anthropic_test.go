package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfateev/yada-go/internal/models"
	"github.com/mfateev/yada-go/internal/tools"
)

// --- Unit tests for request builders ---

func TestBuildSystemBlocks_CacheControl(t *testing.T) {
	c := &AnthropicClient{}
	blocks := c.buildSystemBlocks(LLMRequest{
		BaseInstructions: "You are YADA.",
		UserInstructions: "Be concise.",
	})

	require.Len(t, blocks, 2)
	for i, block := range blocks {
		assert.Equal(t, "ephemeral", string(block.CacheControl.Type),
			"system block %d must have cache_control.type=ephemeral", i)
	}
}

func TestBuildSystemBlocks_Empty(t *testing.T) {
	c := &AnthropicClient{}
	assert.Empty(t, c.buildSystemBlocks(LLMRequest{}))
}

// TestBuildToolDefinitions_CacheControl verifies that only the last tool
// definition carries the cache breakpoint.
func TestBuildToolDefinitions_CacheControl(t *testing.T) {
	c := &AnthropicClient{}
	specs := []tools.ToolSpec{
		{Name: "list_directory", Description: "List a directory", Parameters: []tools.ToolParameter{
			{Name: "directory", Type: "string", Default: "."},
		}},
		{Name: "delete_directory", Description: "Delete a directory", Parameters: []tools.ToolParameter{
			{Name: "directory", Type: "string", Required: true},
		}},
	}

	defs := c.buildToolDefinitions(specs)

	require.Len(t, defs, 2)
	require.NotNil(t, defs[0].OfTool)
	assert.Equal(t, "", string(defs[0].OfTool.CacheControl.Type))
	require.NotNil(t, defs[1].OfTool)
	assert.Equal(t, "ephemeral", string(defs[1].OfTool.CacheControl.Type))
	assert.Equal(t, []string{"directory"}, defs[1].OfTool.InputSchema.Required)
	assert.Empty(t, defs[0].OfTool.InputSchema.Required)
}

func TestBuildToolDefinitions_NoTools(t *testing.T) {
	c := &AnthropicClient{}
	assert.Empty(t, c.buildToolDefinitions(nil))
}

// TestBuildMessages_MergesRoles verifies tool_use blocks share the assistant
// message and tool results share the following user message.
func TestBuildMessages_MergesRoles(t *testing.T) {
	c := &AnthropicClient{}
	a := models.ToolCall{ID: "toolu_1", Name: "list_directory", Arguments: map[string]any{"directory": "."}}
	b := models.ToolCall{ID: "toolu_2", Name: "list_capabilities"}
	messages, err := c.buildMessages(LLMRequest{History: []models.Turn{
		models.NewHumanTurn("what is here?"),
		models.NewAssistantTurn("Checking.", []models.ToolCall{a, b}),
		models.NewToolResultTurn(a, "[]", false),
		models.NewToolResultTurn(b, "boom", true),
	}})
	require.NoError(t, err)

	require.Len(t, messages, 3)
	assert.Equal(t, anthropic.MessageParamRoleUser, messages[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, messages[1].Role)
	require.Len(t, messages[1].Content, 3)
	assert.NotNil(t, messages[1].Content[0].OfText)
	require.NotNil(t, messages[1].Content[1].OfToolUse)
	assert.Equal(t, "toolu_1", messages[1].Content[1].OfToolUse.ID)
	assert.Equal(t, anthropic.MessageParamRoleUser, messages[2].Role)
	require.Len(t, messages[2].Content, 2)
	require.NotNil(t, messages[2].Content[1].OfToolResult)
	assert.Equal(t, "toolu_2", messages[2].Content[1].OfToolResult.ToolUseID)
}

func TestBuildMessages_OmitsUnansweredCalls(t *testing.T) {
	c := &AnthropicClient{}
	a := models.ToolCall{ID: "toolu_1", Name: "delete_directory"}
	b := models.ToolCall{ID: "toolu_2", Name: "delete_directory"}
	messages, err := c.buildMessages(LLMRequest{History: []models.Turn{
		models.NewHumanTurn("remove both"),
		models.NewAssistantTurn("", []models.ToolCall{a, b}),
		models.NewToolResultTurn(a, "denied", false),
	}})
	require.NoError(t, err)

	require.Len(t, messages, 3)
	require.Len(t, messages[1].Content, 1, "only the answered call is sent")
	assert.Equal(t, "toolu_1", messages[1].Content[0].OfToolUse.ID)
}

func TestBuildMessages_CacheBreakpointOnPenultimate(t *testing.T) {
	c := &AnthropicClient{}
	messages, err := c.buildMessages(LLMRequest{
		DeveloperInstructions: "you are an agent",
		History: []models.Turn{
			models.NewAssistantTurn("I will help.", nil),
			models.NewHumanTurn("Do the thing."),
		},
	})
	require.NoError(t, err)

	require.Len(t, messages, 3)
	penultimate := messages[len(messages)-2]
	cc := penultimate.Content[len(penultimate.Content)-1].GetCacheControl()
	require.NotNil(t, cc)
	assert.Equal(t, "ephemeral", string(cc.Type))
}

func TestBuildMessages_EmptyHistory(t *testing.T) {
	c := &AnthropicClient{}
	_, err := c.buildMessages(LLMRequest{})
	assert.Error(t, err)
}

// --- Unit tests for response parsing ---

func TestParseContent_ToolUse(t *testing.T) {
	c := &AnthropicClient{}
	out := c.parseContent(&anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "Let me look."},
			{Type: "tool_use", ID: "toolu_9", Name: "list_directory", Input: json.RawMessage(`{"directory":"src"}`)},
		},
		StopReason: anthropic.StopReasonToolUse,
	})

	assert.Equal(t, "Let me look.", out.Text)
	require.Len(t, out.ToolCalls, 1)
	assert.Equal(t, "toolu_9", out.ToolCalls[0].ID)
	assert.Equal(t, map[string]any{"directory": "src"}, out.ToolCalls[0].Arguments)
	assert.Equal(t, models.FinishReasonToolCalls, out.FinishReason)
}

func TestParseContent_MaxTokens(t *testing.T) {
	c := &AnthropicClient{}
	out := c.parseContent(&anthropic.Message{
		Content:    []anthropic.ContentBlockUnion{{Type: "text", Text: "truncated"}},
		StopReason: anthropic.StopReasonMaxTokens,
	})
	assert.Equal(t, models.FinishReasonLength, out.FinishReason)
}

// --- HTTP interception tests ---

// fakeAnthropicResponse returns a minimal valid Anthropic Messages API JSON response.
func fakeAnthropicResponse() string {
	return `{
		"id": "msg_test123",
		"type": "message",
		"role": "assistant",
		"model": "claude-haiku-4-5-20251001",
		"content": [{"type": "text", "text": "Hello!"}],
		"stop_reason": "end_turn",
		"stop_sequence": null,
		"usage": {
			"input_tokens": 20,
			"output_tokens": 5,
			"cache_creation_input_tokens": 0,
			"cache_read_input_tokens": 80,
			"cache_creation": {
				"ephemeral_5m_input_tokens": 0,
				"ephemeral_1h_input_tokens": 0
			}
		}
	}`
}

func newCapturingAnthropicClient(t *testing.T, status int, body string) (*AnthropicClient, *map[string]interface{}) {
	t.Helper()
	captured := map[string]interface{}{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &captured))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)

	return NewAnthropicClient("test-key", option.WithBaseURL(server.URL), option.WithMaxRetries(0)), &captured
}

func TestAnthropicCall_WireRequest(t *testing.T) {
	c, captured := newCapturingAnthropicClient(t, http.StatusOK, fakeAnthropicResponse())

	resp, err := c.Call(context.Background(), LLMRequest{
		ModelConfig:      models.ModelConfig{Model: "claude-haiku-4-5-20251001"},
		BaseInstructions: "You are helpful.",
		History: []models.Turn{
			models.NewHumanTurn("first turn"),
			models.NewAssistantTurn("I'll help.", nil),
			models.NewHumanTurn("second turn"),
		},
		ToolSpecs: []tools.ToolSpec{{Name: "list_capabilities", Description: "List tools"}},
	})
	require.NoError(t, err)

	body := *captured
	assert.Equal(t, "claude-haiku-4-5-20251001", body["model"])
	assert.EqualValues(t, defaultAnthropicMaxTokens, body["max_tokens"])

	system, ok := body["system"].([]interface{})
	require.True(t, ok)
	require.Len(t, system, 1)

	messages, ok := body["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 3)
	penultimate := messages[1].(map[string]interface{})
	content := penultimate["content"].([]interface{})
	last := content[len(content)-1].(map[string]interface{})
	cc, ok := last["cache_control"].(map[string]interface{})
	require.True(t, ok, "penultimate message's last block must carry cache_control")
	assert.Equal(t, "ephemeral", cc["type"])

	assert.Equal(t, "Hello!", resp.Text)
	assert.Equal(t, "msg_test123", resp.ResponseID)
	assert.Equal(t, 80, resp.TokenUsage.CachedTokens)
	assert.Equal(t, 20, resp.TokenUsage.PromptTokens)
	assert.Equal(t, 5, resp.TokenUsage.CompletionTokens)
	assert.Equal(t, 25, resp.TokenUsage.TotalTokens)
}

func TestAnthropicCall_ErrorClassified(t *testing.T) {
	c, _ := newCapturingAnthropicClient(t, http.StatusTooManyRequests,
		`{"type": "error", "error": {"type": "rate_limit_error", "message": "Number of requests has exceeded your rate limit"}}`)

	_, err := c.Call(context.Background(), LLMRequest{
		ModelConfig: models.ModelConfig{Model: "claude-haiku-4-5-20251001"},
		History:     []models.Turn{models.NewHumanTurn("hi")},
	})
	require.ErrorIs(t, err, ErrModelUnavailable)

	var modelErr *ModelError
	require.ErrorAs(t, err, &modelErr)
	assert.Equal(t, ErrorTypeAPILimit, modelErr.Type)
	assert.True(t, modelErr.Retryable)
}
