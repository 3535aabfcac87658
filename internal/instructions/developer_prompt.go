package instructions

import (
	"fmt"
	"strings"
)

// ComposeDeveloperInstructions describes the session environment to the
// model: working directory and host platform.
func ComposeDeveloperInstructions(cwd, platform string) string {
	var parts []string

	if cwd != "" {
		parts = append(parts, fmt.Sprintf("Working directory: %s", cwd))
		parts = append(parts, "Relative paths in tool calls are resolved against this directory.")
	}
	if platform != "" {
		parts = append(parts, fmt.Sprintf("Platform: %s", platform))
	}

	return strings.Join(parts, "\n")
}
