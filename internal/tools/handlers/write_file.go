package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mfateev/yada-go/internal/tools"
)

// WriteFileTool creates or overwrites a file. It is registered as sensitive.
type WriteFileTool struct{}

// NewWriteFileTool creates a write_file handler.
func NewWriteFileTool() *WriteFileTool {
	return &WriteFileTool{}
}

// Spec describes write_file.
func (t *WriteFileTool) Spec() tools.ToolSpec {
	return tools.ToolSpec{
		Name:        "write_file",
		Description: "Create or overwrite a file with the given content. Parent directories are created as needed.",
		Parameters: []tools.ToolParameter{
			{Name: "path", Type: "string", Description: "Path of the file to write.", Required: true},
			{Name: "content", Type: "string", Description: "Full content of the file.", Required: true},
		},
	}
}

// Handle writes the content to disk.
func (t *WriteFileTool) Handle(_ context.Context, invocation *tools.ToolInvocation) (*tools.ToolOutput, error) {
	path, err := requireString(invocation.Arguments, "path")
	if err != nil {
		return nil, err
	}
	content, ok := invocation.Arguments["content"].(string)
	if !ok {
		return nil, tools.NewValidationError("content must be a string")
	}

	full := resolvePath(invocation, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return tools.Failure(fmt.Sprintf("Failed to create directory %s: %v", filepath.Dir(path), err)), nil
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return tools.Failure(fmt.Sprintf("Failed to write file: %v", err)), nil
	}
	return tools.Succeeded(fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path)), nil
}
