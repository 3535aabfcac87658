// Package models holds the data types shared by the agent, its tools and
// the interactive front end.
package models

import (
	"github.com/google/uuid"
)

// TurnKind discriminates the three kinds of conversation turns.
type TurnKind string

const (
	TurnHuman      TurnKind = "human"
	TurnAssistant  TurnKind = "assistant"
	TurnToolResult TurnKind = "tool_result"
)

// ToolCall is a single tool invocation requested by the assistant.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Clone returns a deep copy of the call.
func (c ToolCall) Clone() ToolCall {
	c.Arguments = CloneArguments(c.Arguments)
	return c
}

// Turn is one entry of a conversation. Which fields are meaningful depends
// on Kind: human turns carry Text, assistant turns carry Text and ToolCalls,
// tool results carry ToolCallID, ToolName, Text and IsError.
type Turn struct {
	ID         string     `json:"id"`
	Kind       TurnKind   `json:"kind"`
	Text       string     `json:"text,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
}

// NewTurnID returns a fresh, never reused turn id.
func NewTurnID() string {
	return uuid.NewString()
}

// NewHumanTurn creates a human turn with a fresh id.
func NewHumanTurn(text string) Turn {
	return Turn{ID: NewTurnID(), Kind: TurnHuman, Text: text}
}

// NewAssistantTurn creates an assistant turn with a fresh id.
func NewAssistantTurn(text string, calls []ToolCall) Turn {
	return Turn{ID: NewTurnID(), Kind: TurnAssistant, Text: text, ToolCalls: calls}
}

// NewToolResultTurn creates the result turn answering call.
func NewToolResultTurn(call ToolCall, text string, isError bool) Turn {
	return Turn{
		ID:         NewTurnID(),
		Kind:       TurnToolResult,
		Text:       text,
		ToolCallID: call.ID,
		ToolName:   call.Name,
		IsError:    isError,
	}
}

// HasToolCalls reports whether the turn is an assistant turn requesting tools.
func (t Turn) HasToolCalls() bool {
	return t.Kind == TurnAssistant && len(t.ToolCalls) > 0
}

// Clone returns a deep copy of the turn.
func (t Turn) Clone() Turn {
	if t.ToolCalls != nil {
		calls := make([]ToolCall, len(t.ToolCalls))
		for i, c := range t.ToolCalls {
			calls[i] = c.Clone()
		}
		t.ToolCalls = calls
	}
	return t
}

// CloneArguments deep-copies a JSON-shaped argument map.
func CloneArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneArguments(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}
