// Package tools describes tools: their parameters, the handler contract and the
// registry the agent resolves tool calls through.
package tools

import (
	"context"
	"errors"
)

// ToolParameter describes one argument of a tool. Type is a JSON schema
// type name: string, boolean, integer, number, array or object.
type ToolParameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Default     any    `json:"default,omitempty"`
	// Items is the element type for array parameters.
	Items string `json:"items,omitempty"`
}

// ToolSpec is the model-facing description of a tool. Parameter order is
// the declared order and is preserved everywhere arguments are displayed.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters,omitempty"`
}

// Parameter looks up a declared parameter by name.
func (s ToolSpec) Parameter(name string) (ToolParameter, bool) {
	for _, p := range s.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ToolParameter{}, false
}

// JSONSchema renders the parameters as a JSON schema object, the shape
// both model providers expect.
func (s ToolSpec) JSONSchema() map[string]any {
	properties := make(map[string]interface{}, len(s.Parameters))
	required := []string{}
	for _, p := range s.Parameters {
		prop := map[string]interface{}{}
		if p.Type != "" && p.Type != "any" {
			prop["type"] = p.Type
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Type == "array" {
			items := p.Items
			if items == "" {
				items = "string"
			}
			prop["items"] = map[string]interface{}{"type": items}
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// ToolInvocation carries one call into a handler. Arguments have already
// been validated against the ToolSpec and had declared defaults applied.
type ToolInvocation struct {
	CallID    string
	ToolName  string
	Arguments map[string]interface{}
	Cwd       string
}

// ToolOutput is the result of a tool call. A nil Success is treated as
// success; an explicit false marks the output as an error result.
type ToolOutput struct {
	Content string
	Success *bool
}

// Failed reports whether the output is an error result.
func (o *ToolOutput) Failed() bool {
	return o != nil && o.Success != nil && !*o.Success
}

// Succeeded builds a successful output.
func Succeeded(content string) *ToolOutput {
	ok := true
	return &ToolOutput{Content: content, Success: &ok}
}

// Failure builds an error output.
func Failure(content string) *ToolOutput {
	ok := false
	return &ToolOutput{Content: content, Success: &ok}
}

// ToolHandler is implemented by every tool.
type ToolHandler interface {
	Spec() ToolSpec
	Handle(ctx context.Context, invocation *ToolInvocation) (*ToolOutput, error)
}

// FuncTool adapts a plain function into a ToolHandler.
type FuncTool struct {
	spec ToolSpec
	fn   func(ctx context.Context, invocation *ToolInvocation) (*ToolOutput, error)
}

// NewFuncTool wraps fn as a handler for spec.
func NewFuncTool(spec ToolSpec, fn func(ctx context.Context, invocation *ToolInvocation) (*ToolOutput, error)) *FuncTool {
	return &FuncTool{spec: spec, fn: fn}
}

// Spec returns the tool spec.
func (t *FuncTool) Spec() ToolSpec { return t.spec }

// Handle calls the wrapped function.
func (t *FuncTool) Handle(ctx context.Context, invocation *ToolInvocation) (*ToolOutput, error) {
	return t.fn(ctx, invocation)
}

// ValidationError reports arguments that do not match a tool's spec.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid arguments: " + e.Message
}

// NewValidationError creates a ValidationError.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
