// Package workflow runs the agent graph.
//
// util.go contains small utility functions used across the workflow package.
package workflow

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/mfateev/yada-go/internal/models"
)

// truncate returns s truncated to n bytes with "..." appended if it was longer.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// toolNames lists the names of calls, for logging.
func toolNames(calls []models.ToolCall) string {
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Name
	}
	return strings.Join(names, ",")
}

// argumentsPreview renders call arguments compactly for debug logs.
func argumentsPreview(args map[string]any) string {
	data, err := json.Marshal(args)
	if err != nil {
		return "?"
	}
	return truncate(string(data), 200)
}

// ensureCallIDs gives every call an id so its result can be paired with it.
func ensureCallIDs(calls []models.ToolCall) {
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = "call_" + uuid.NewString()
		}
	}
}

func cloneCalls(calls []models.ToolCall) []models.ToolCall {
	if calls == nil {
		return nil
	}
	out := make([]models.ToolCall, len(calls))
	for i, c := range calls {
		out[i] = c.Clone()
	}
	return out
}
