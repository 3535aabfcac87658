package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"

	"github.com/mfateev/yada-go/internal/models"
	"github.com/mfateev/yada-go/internal/tools"
)

// OpenAIClient calls the OpenAI Responses API.
type OpenAIClient struct {
	client openai.Client
}

// NewOpenAIClient creates a client. An empty apiKey falls back to the
// OPENAI_API_KEY environment variable read by the SDK.
func NewOpenAIClient(apiKey string, opts ...option.RequestOption) *OpenAIClient {
	if apiKey != "" {
		opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	}
	return &OpenAIClient{client: openai.NewClient(opts...)}
}

// Call sends the conversation and returns the model's answer.
func (c *OpenAIClient) Call(ctx context.Context, request LLMRequest) (LLMResponse, error) {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(request.ModelConfig.Model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: c.buildInput(answeredHistory(request.History)),
		},
	}
	if instructions := c.buildInstructions(request); instructions != "" {
		params.Instructions = openai.String(instructions)
	}
	if defs := c.buildToolDefinitions(request.ToolSpecs); len(defs) > 0 {
		params.Tools = defs
	}
	if request.ModelConfig.Temperature > 0 {
		params.Temperature = openai.Float(request.ModelConfig.Temperature)
	}
	if request.ModelConfig.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(request.ModelConfig.MaxTokens))
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return LLMResponse{}, ctx.Err()
		}
		return LLMResponse{}, classifyError(err)
	}

	out := c.parseOutput(resp)
	out.ResponseID = resp.ID
	out.TokenUsage = models.TokenUsage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		CachedTokens:     int(resp.Usage.InputTokensDetails.CachedTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	return out, nil
}

func (c *OpenAIClient) buildInstructions(request LLMRequest) string {
	return combinedInstructions(request)
}

// buildInput converts Turns into Responses API input items.
func (c *OpenAIClient) buildInput(history []models.Turn) responses.ResponseInputParam {
	items := make(responses.ResponseInputParam, 0, len(history))
	for _, t := range history {
		switch t.Kind {
		case models.TurnHuman:
			items = append(items, easyMessage(responses.EasyInputMessageRoleUser, t.Text))
		case models.TurnAssistant:
			if t.Text != "" {
				items = append(items, easyMessage(responses.EasyInputMessageRoleAssistant, t.Text))
			}
			for _, call := range t.ToolCalls {
				items = append(items, responses.ResponseInputItemUnionParam{
					OfFunctionCall: &responses.ResponseFunctionToolCallParam{
						CallID:    call.ID,
						Name:      call.Name,
						Arguments: encodeArguments(call.Arguments),
					},
				})
			}
		case models.TurnToolResult:
			items = append(items, responses.ResponseInputItemUnionParam{
				OfFunctionCallOutput: &responses.ResponseInputItemFunctionCallOutputParam{
					CallID: t.ToolCallID,
					Output: responses.ResponseInputItemFunctionCallOutputOutputUnionParam{
						OfString: openai.String(t.Text),
					},
				},
			})
		}
	}
	return items
}

func easyMessage(role responses.EasyInputMessageRole, text string) responses.ResponseInputItemUnionParam {
	return responses.ResponseInputItemUnionParam{
		OfMessage: &responses.EasyInputMessageParam{
			Role:    role,
			Content: responses.EasyInputMessageContentUnionParam{OfString: openai.String(text)},
		},
	}
}

// buildToolDefinitions converts ToolSpecs into function tool definitions.
func (c *OpenAIClient) buildToolDefinitions(specs []tools.ToolSpec) []responses.ToolUnionParam {
	defs := make([]responses.ToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		defs = append(defs, responses.ToolUnionParam{
			OfFunction: &responses.FunctionToolParam{
				Name:        spec.Name,
				Description: openai.String(spec.Description),
				Parameters:  spec.JSONSchema(),
				Strict:      openai.Bool(false),
			},
		})
	}
	return defs
}

// parseOutput collects the text and tool calls of a response.
func (c *OpenAIClient) parseOutput(resp *responses.Response) LLMResponse {
	var (
		text  strings.Builder
		calls []models.ToolCall
	)
	for _, item := range resp.Output {
		switch item.Type {
		case "message":
			for _, part := range item.Content {
				if part.Type == "output_text" {
					text.WriteString(part.Text)
				}
			}
		case "function_call":
			calls = append(calls, models.ToolCall{
				ID:        item.CallID,
				Name:      item.Name,
				Arguments: decodeArguments(string(item.Arguments)),
			})
		}
	}

	out := LLMResponse{Text: text.String(), ToolCalls: calls, FinishReason: models.FinishReasonStop}
	switch {
	case len(calls) > 0:
		out.FinishReason = models.FinishReasonToolCalls
	case resp.Status == "incomplete":
		out.FinishReason = models.FinishReasonLength
	}
	return out
}

func encodeArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// decodeArguments parses a JSON argument object. Malformed input yields an
// empty map so argument validation reports what is missing.
func decodeArguments(raw string) map[string]any {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		slog.Debug("Malformed tool call arguments", "arguments", raw, "error", err)
		return map[string]any{}
	}
	return args
}
