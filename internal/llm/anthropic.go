package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mfateev/yada-go/internal/models"
	"github.com/mfateev/yada-go/internal/tools"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
}

// NewAnthropicClient creates a client. An empty apiKey falls back to the
// ANTHROPIC_API_KEY environment variable read by the SDK.
func NewAnthropicClient(apiKey string, opts ...option.RequestOption) *AnthropicClient {
	if apiKey != "" {
		opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	}
	return &AnthropicClient{client: anthropic.NewClient(opts...)}
}

// Call sends the conversation and returns the model's answer.
func (c *AnthropicClient) Call(ctx context.Context, request LLMRequest) (LLMResponse, error) {
	messages, err := c.buildMessages(request)
	if err != nil {
		return LLMResponse{}, err
	}

	maxTokens := int64(request.ModelConfig.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(request.ModelConfig.Model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if system := c.buildSystemBlocks(request); len(system) > 0 {
		params.System = system
	}
	if defs := c.buildToolDefinitions(request.ToolSpecs); len(defs) > 0 {
		params.Tools = defs
	}
	if request.ModelConfig.Temperature > 0 {
		params.Temperature = anthropic.Float(request.ModelConfig.Temperature)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return LLMResponse{}, ctx.Err()
		}
		return LLMResponse{}, classifyError(err)
	}

	out := c.parseContent(resp)
	out.ResponseID = resp.ID
	out.TokenUsage = models.TokenUsage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		CachedTokens:     int(resp.Usage.CacheReadInputTokens),
		TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}
	return out, nil
}

// buildSystemBlocks turns base and user instructions into cached system blocks.
func (c *AnthropicClient) buildSystemBlocks(request LLMRequest) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, s := range []string{request.BaseInstructions, request.UserInstructions} {
		if strings.TrimSpace(s) == "" {
			continue
		}
		blocks = append(blocks, anthropic.TextBlockParam{
			Text:         s,
			CacheControl: anthropic.NewCacheControlEphemeralParam(),
		})
	}
	return blocks
}

// buildToolDefinitions converts ToolSpecs. The last tool carries the cache
// breakpoint so the whole tool list is cached.
func (c *AnthropicClient) buildToolDefinitions(specs []tools.ToolSpec) []anthropic.ToolUnionParam {
	defs := make([]anthropic.ToolUnionParam, 0, len(specs))
	for i, spec := range specs {
		schema := spec.JSONSchema()
		required, _ := schema["required"].([]string)
		tool := &anthropic.ToolParam{
			Name:        spec.Name,
			Description: anthropic.String(spec.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema["properties"],
				Required:   required,
			},
		}
		if i == len(specs)-1 {
			tool.CacheControl = anthropic.NewCacheControlEphemeralParam()
		}
		defs = append(defs, anthropic.ToolUnionParam{OfTool: tool})
	}
	return defs
}

// buildMessages converts Turns into alternating user/assistant messages.
// Consecutive blocks of the same role are merged, so tool results land in
// a single user message after the assistant's tool_use blocks.
func (c *AnthropicClient) buildMessages(request LLMRequest) ([]anthropic.MessageParam, error) {
	var messages []anthropic.MessageParam
	add := func(role anthropic.MessageParamRole, block anthropic.ContentBlockParamUnion) {
		if n := len(messages); n > 0 && messages[n-1].Role == role {
			messages[n-1].Content = append(messages[n-1].Content, block)
			return
		}
		messages = append(messages, anthropic.MessageParam{
			Role:    role,
			Content: []anthropic.ContentBlockParamUnion{block},
		})
	}

	if strings.TrimSpace(request.DeveloperInstructions) != "" {
		add(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(request.DeveloperInstructions))
	}
	for _, t := range answeredHistory(request.History) {
		switch t.Kind {
		case models.TurnHuman:
			add(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(t.Text))
		case models.TurnAssistant:
			if t.Text != "" {
				add(anthropic.MessageParamRoleAssistant, anthropic.NewTextBlock(t.Text))
			}
			for _, call := range t.ToolCalls {
				input := call.Arguments
				if input == nil {
					input = map[string]any{}
				}
				add(anthropic.MessageParamRoleAssistant, anthropic.NewToolUseBlock(call.ID, input, call.Name))
			}
		case models.TurnToolResult:
			add(anthropic.MessageParamRoleUser, anthropic.NewToolResultBlock(t.ToolCallID, t.Text, t.IsError))
		}
	}
	if len(messages) == 0 {
		return nil, errors.New("anthropic: conversation has no messages")
	}

	// Cache everything before the newest message.
	if n := len(messages); n >= 2 {
		prev := messages[n-2]
		if len(prev.Content) > 0 {
			if cc := prev.Content[len(prev.Content)-1].GetCacheControl(); cc != nil {
				*cc = anthropic.NewCacheControlEphemeralParam()
			}
		}
	}
	return messages, nil
}

// parseContent collects the text and tool_use blocks of a response.
func (c *AnthropicClient) parseContent(resp *anthropic.Message) LLMResponse {
	var (
		text  strings.Builder
		calls []models.ToolCall
	)
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			args := map[string]any{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					slog.Debug("Malformed tool_use input", "input", string(block.Input), "error", err)
					args = map[string]any{}
				}
			}
			calls = append(calls, models.ToolCall{ID: block.ID, Name: block.Name, Arguments: args})
		}
	}

	out := LLMResponse{Text: text.String(), ToolCalls: calls, FinishReason: models.FinishReasonStop}
	switch {
	case len(calls) > 0:
		out.FinishReason = models.FinishReasonToolCalls
	case resp.StopReason == anthropic.StopReasonMaxTokens:
		out.FinishReason = models.FinishReasonLength
	}
	return out
}
