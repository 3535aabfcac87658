package instructions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetBaseInstructions(t *testing.T) {
	assert.Contains(t, GetBaseInstructions(""), "YADA")
	assert.Equal(t, "custom", GetBaseInstructions("custom"))
}

func TestComposeDeveloperInstructions(t *testing.T) {
	assert.Empty(t, ComposeDeveloperInstructions("", ""))
	assert.Equal(t, "Platform: darwin/arm64", ComposeDeveloperInstructions("", "darwin/arm64"))

	got := ComposeDeveloperInstructions("/work", "linux/amd64")
	assert.Equal(t, "Working directory: /work\n"+
		"Relative paths in tool calls are resolved against this directory.\n"+
		"Platform: linux/amd64", got)
}
