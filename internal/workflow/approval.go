// Package workflow runs the agent graph.
//
// approval.go encapsulates the human decision on suspended tool calls.
package workflow

import (
	"fmt"

	"github.com/mfateev/yada-go/internal/models"
)

// DefaultDenialReason is the reason recorded when the user simply answers "n".
const DefaultDenialReason = "No, I don't want to execute those tools."

// Decision is the human's answer to a confirmation prompt.
type Decision struct {
	Approved bool
	Reason   string
}

// Approve runs every pending call.
func Approve() Decision { return Decision{Approved: true} }

// Deny runs none of the pending calls and tells the model why.
func Deny(reason string) Decision { return Decision{Reason: reason} }

func (d Decision) String() string {
	if d.Approved {
		return "approve"
	}
	return fmt.Sprintf("deny(%q)", d.Reason)
}

// DenialMessage is the tool result text the model sees after a denial.
func DenialMessage(reason string) string {
	return fmt.Sprintf("Tool call denied by user. Reasoning: '%s'. Continue assisting, accounting for the user's input.", reason)
}

// ApprovalGate encapsulates tool approval classification and decision logic.
type ApprovalGate struct {
	catalog SafetyCatalog
}

// NewApprovalGate creates an ApprovalGate backed by catalog.
func NewApprovalGate(catalog SafetyCatalog) *ApprovalGate {
	return &ApprovalGate{catalog: catalog}
}

// Classify returns the calls that need confirmation.
func (g *ApprovalGate) Classify(calls []models.ToolCall) []models.ToolCall {
	var sensitive []models.ToolCall
	for _, c := range calls {
		if g.catalog.IsSensitive(c.Name) {
			sensitive = append(sensitive, c)
		}
	}
	return sensitive
}

// ApplyDecision splits pending calls by the user's decision.
//
// Approval returns every pending call in order. Denial returns no calls and a
// single result turn answering the first pending call; the others stay
// unanswered.
func (g *ApprovalGate) ApplyDecision(pending []models.ToolCall, d Decision) (approved []models.ToolCall, denied []models.Turn) {
	if d.Approved {
		return pending, nil
	}
	if len(pending) == 0 {
		return nil, nil
	}
	return nil, []models.Turn{models.NewToolResultTurn(pending[0], DenialMessage(d.Reason), false)}
}
