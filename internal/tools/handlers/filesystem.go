package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mfateev/yada-go/internal/tools"
)

var directoryParam = tools.ToolParameter{
	Name:        "directory",
	Type:        "string",
	Description: "The directory path.",
	Required:    true,
}

// NewListDirectoryTool lists the entries of a directory as a JSON array.
func NewListDirectoryTool() tools.ToolHandler {
	spec := tools.ToolSpec{
		Name:        "list_directory",
		Description: "List the contents of a directory.",
		Parameters: []tools.ToolParameter{{
			Name:        "directory",
			Type:        "string",
			Description: `The directory to list, default ".".`,
			Default:     ".",
		}},
	}
	return tools.NewFuncTool(spec, func(_ context.Context, inv *tools.ToolInvocation) (*tools.ToolOutput, error) {
		dir := stringArg(inv.Arguments, "directory", ".")
		entries, err := os.ReadDir(resolvePath(inv, dir))
		if err != nil {
			return tools.Failure(fmt.Sprintf("Failed to list directory %s: %v", dir, err)), nil
		}
		paths := make([]string, 0, len(entries))
		for _, e := range entries {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
		data, err := json.MarshalIndent(paths, "", "  ")
		if err != nil {
			return nil, err
		}
		return tools.Succeeded(string(data)), nil
	})
}

// NewCreateDirectoryTool creates a directory and any missing parents.
func NewCreateDirectoryTool() tools.ToolHandler {
	spec := tools.ToolSpec{
		Name:        "create_directory",
		Description: "Create a directory.",
		Parameters:  []tools.ToolParameter{withDescription(directoryParam, "The directory to create.")},
	}
	return tools.NewFuncTool(spec, func(_ context.Context, inv *tools.ToolInvocation) (*tools.ToolOutput, error) {
		dir, err := requireString(inv.Arguments, "directory")
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(resolvePath(inv, dir), 0o755); err != nil {
			return tools.Failure(fmt.Sprintf("Failed to create directory %s: %v", dir, err)), nil
		}
		return tools.Succeeded(fmt.Sprintf("Created directory %s.", dir)), nil
	})
}

// NewDeleteDirectoryTool removes a directory tree.
func NewDeleteDirectoryTool() tools.ToolHandler {
	spec := tools.ToolSpec{
		Name:        "delete_directory",
		Description: "Delete a directory and everything in it.",
		Parameters:  []tools.ToolParameter{withDescription(directoryParam, "The directory to delete.")},
	}
	return tools.NewFuncTool(spec, func(_ context.Context, inv *tools.ToolInvocation) (*tools.ToolOutput, error) {
		dir, err := requireString(inv.Arguments, "directory")
		if err != nil {
			return nil, err
		}
		path := resolvePath(inv, dir)
		info, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			return tools.Succeeded(fmt.Sprintf("Directory does not exist: %s", dir)), nil
		}
		if err != nil {
			return tools.Failure(fmt.Sprintf("Failed to inspect %s: %v", dir, err)), nil
		}
		if !info.IsDir() {
			return tools.Failure(fmt.Sprintf("Not a directory: %s", dir)), nil
		}
		if err := os.RemoveAll(path); err != nil {
			return tools.Failure(fmt.Sprintf("Failed to delete directory %s: %v", dir, err)), nil
		}
		return tools.Succeeded(fmt.Sprintf("Deleted directory and its contents: %s", dir)), nil
	})
}

func withDescription(p tools.ToolParameter, desc string) tools.ToolParameter {
	p.Description = desc
	return p
}
