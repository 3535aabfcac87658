// Package llmtest provides a deterministic LLMClient for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/mfateev/yada-go/internal/llm"
	"github.com/mfateev/yada-go/internal/models"
)

// Step configures one model call in a scripted sequence.
type Step struct {
	Response llm.LLMResponse
	Err      error
}

// Reply is a step answering with plain text.
func Reply(text string) Step {
	return Step{Response: llm.LLMResponse{Text: text, FinishReason: models.FinishReasonStop}}
}

// CallTools is a step requesting the given tool calls.
func CallTools(calls ...models.ToolCall) Step {
	return Step{Response: llm.LLMResponse{ToolCalls: calls, FinishReason: models.FinishReasonToolCalls}}
}

// Fail is a step returning err.
func Fail(err error) Step {
	return Step{Err: err}
}

// Call builds a tool call for CallTools.
func Call(id, name string, args map[string]any) models.ToolCall {
	return models.ToolCall{ID: id, Name: name, Arguments: args}
}

// ScriptedClient answers calls from a fixed script and records every request.
type ScriptedClient struct {
	mu       sync.Mutex
	index    int
	steps    []Step
	requests []llm.LLMRequest
}

func NewScriptedClient(steps ...Step) *ScriptedClient {
	cloned := make([]Step, len(steps))
	copy(cloned, steps)
	return &ScriptedClient{steps: cloned}
}

var _ llm.LLMClient = (*ScriptedClient)(nil)

func (c *ScriptedClient) Call(ctx context.Context, request llm.LLMRequest) (llm.LLMResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return llm.LLMResponse{}, err
	}
	history := make([]models.Turn, len(request.History))
	for i, t := range request.History {
		history[i] = t.Clone()
	}
	request.History = history
	c.requests = append(c.requests, request)

	if c.index >= len(c.steps) {
		return llm.LLMResponse{}, fmt.Errorf("script exhausted at step %d", c.index+1)
	}
	current := c.steps[c.index]
	c.index++
	if current.Err != nil {
		return llm.LLMResponse{}, current.Err
	}
	resp := current.Response
	if resp.ToolCalls != nil {
		calls := make([]models.ToolCall, len(resp.ToolCalls))
		for i, call := range resp.ToolCalls {
			calls[i] = call.Clone()
		}
		resp.ToolCalls = calls
	}
	return resp, nil
}

// Requests returns the requests received so far.
func (c *ScriptedClient) Requests() []llm.LLMRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]llm.LLMRequest(nil), c.requests...)
}

// Remaining reports how many scripted steps have not been consumed.
func (c *ScriptedClient) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.steps) - c.index
}
