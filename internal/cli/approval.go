package cli

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/mfateev/yada-go/internal/models"
	"github.com/mfateev/yada-go/internal/tools"
	"github.com/mfateev/yada-go/internal/workflow"
)

// ConfirmationHeader opens every confirmation prompt.
const ConfirmationHeader = "I want to execute the following tools. Reply 'y' to continue or 'n' to cancel. Otherwise you can explain your requested changes."

// ToolCatalog is what the controller needs to know about tools.
// *tools.Registry satisfies it.
type ToolCatalog interface {
	IsSensitive(name string) bool
	Spec(name string) (tools.ToolSpec, bool)
}

// ParseDecision interprets a reply to a confirmation prompt. ok is false for
// blank input, which should re-prompt.
//
//   - "y" approves every pending call
//   - "n" denies with the default reason
//   - anything else denies, using the reply verbatim as the reason
func ParseDecision(line string) (d workflow.Decision, ok bool) {
	trimmed := strings.TrimSpace(line)
	switch strings.ToLower(trimmed) {
	case "":
		return workflow.Decision{}, false
	case "y":
		return workflow.Approve(), true
	case "n":
		return workflow.Deny(workflow.DefaultDenialReason), true
	}
	return workflow.Deny(line), true
}

// IsExitResponse reports whether line asks to end the session.
func IsExitResponse(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "q", "quit", "exit":
		return true
	}
	return false
}

// FormatConfirmation renders the markdown prompt listing calls and their
// arguments. Arguments follow the tool's declared parameter order; any
// undeclared ones come after, sorted by name.
func FormatConfirmation(calls []models.ToolCall, catalog ToolCatalog) string {
	var b strings.Builder
	b.WriteString(ConfirmationHeader)
	b.WriteString("\n\n**Calling tool(s)**\n")
	for _, call := range calls {
		fmt.Fprintf(&b, "- **Tool:** %s\n\t- **Args**\n", call.Name)
		spec, _ := catalog.Spec(call.Name)
		for _, key := range argumentOrder(spec, call.Arguments) {
			fmt.Fprintf(&b, "\t\t- %s=%s\n", key, formatArgValue(call.Arguments[key]))
		}
	}
	return b.String()
}

func argumentOrder(spec tools.ToolSpec, args map[string]any) []string {
	keys := make([]string, 0, len(args))
	for _, p := range spec.Parameters {
		if _, ok := args[p.Name]; ok {
			keys = append(keys, p.Name)
		}
	}
	var extra []string
	for k := range args {
		if _, declared := spec.Parameter(k); !declared {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	return append(keys, extra...)
}

func formatArgValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case string:
		return val
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
	return fmt.Sprint(v)
}

// lastPendingCalls finds the calls a paused snapshot is waiting on.
func lastPendingCalls(snap models.Snapshot) []models.ToolCall {
	if len(snap.Pending) > 0 {
		return snap.Pending
	}
	for i := len(snap.Conversation) - 1; i >= 0; i-- {
		if t := snap.Conversation[i]; t.HasToolCalls() {
			return t.ToolCalls
		}
	}
	return nil
}
