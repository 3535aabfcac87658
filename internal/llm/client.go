// Package llm adapts chat model providers to the agent's Turn-based history.
package llm

import (
	"context"
	"strings"

	"github.com/mfateev/yada-go/internal/models"
	"github.com/mfateev/yada-go/internal/tools"
)

// LLMClient is a model that can answer a conversation, optionally asking
// for tool calls.
type LLMClient interface {
	Call(ctx context.Context, request LLMRequest) (LLMResponse, error)
}

// LLMRequest is one model invocation.
type LLMRequest struct {
	ModelConfig models.ModelConfig

	// BaseInstructions is the system prompt.
	BaseInstructions string
	// UserInstructions come from the user's environment (custom tool
	// directories, project notes).
	UserInstructions string
	// DeveloperInstructions are appended for the current session only.
	DeveloperInstructions string

	History   []models.Turn
	ToolSpecs []tools.ToolSpec
}

// LLMResponse is the model's answer to an LLMRequest.
type LLMResponse struct {
	Text         string
	ToolCalls    []models.ToolCall
	FinishReason models.FinishReason
	TokenUsage   models.TokenUsage
	ResponseID   string
}

// combinedInstructions joins the non-empty instruction layers.
func combinedInstructions(request LLMRequest) string {
	var parts []string
	for _, s := range []string{request.BaseInstructions, request.UserInstructions, request.DeveloperInstructions} {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// answeredHistory drops tool calls that never received a result. A denial
// answers only the first pending call, and providers reject requests that
// leave a call unanswered. Assistant turns left with neither text nor
// calls are dropped too.
func answeredHistory(history []models.Turn) []models.Turn {
	answered := make(map[string]bool)
	for _, t := range history {
		if t.Kind == models.TurnToolResult {
			answered[t.ToolCallID] = true
		}
	}

	out := make([]models.Turn, 0, len(history))
	for _, t := range history {
		if t.Kind != models.TurnAssistant || len(t.ToolCalls) == 0 {
			out = append(out, t)
			continue
		}
		kept := t
		kept.ToolCalls = nil
		for _, c := range t.ToolCalls {
			if answered[c.ID] {
				kept.ToolCalls = append(kept.ToolCalls, c)
			}
		}
		if kept.Text == "" && len(kept.ToolCalls) == 0 {
			continue
		}
		out = append(out, kept)
	}
	return out
}
