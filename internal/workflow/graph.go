// Package workflow runs the agent graph.
//
// graph.go holds the pure routing rule between nodes.
package workflow

import (
	"github.com/mfateev/yada-go/internal/models"
)

// SafetyCatalog reports whether a tool needs human confirmation.
// Unknown tools must report false.
type SafetyCatalog interface {
	IsSensitive(name string) bool
}

// Transition picks the node that handles an assistant turn.
//
// A batch containing any sensitive call is routed to NodeSensitiveTools as
// a whole, wherever the sensitive call sits in the batch. Calls to unknown
// tools are treated as safe; they fail at execution.
func Transition(turn models.Turn, catalog SafetyCatalog) models.Node {
	if !turn.HasToolCalls() {
		return models.NodeEnd
	}
	for _, call := range turn.ToolCalls {
		if catalog.IsSensitive(call.Name) {
			return models.NodeSensitiveTools
		}
	}
	return models.NodeSafeTools
}
