package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderer_Answer(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, true, true)

	r.Answer("Hello, world!")

	assert.Equal(t, "YADA: Hello, world!\n", buf.String())
}

func TestRenderer_IndicatorAndError(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, true, true)

	r.Indicator(ThinkingIndicator)
	r.Error(errors.New("model unavailable"))

	assert.Equal(t, "Thinking...\nYADA: Error: model unavailable\n", buf.String())
}

func TestRenderer_Title(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, true, true)

	r.Title()

	out := buf.String()
	assert.Contains(t, out, "Yet Another Dev Assistant")
	assert.Contains(t, out, "**Examples of what you can ask me**")
	for _, example := range []string{
		"What can you do?",
		"What are all the inputs to run a Docker container?",
		`Create the dir "foo"`,
		"Install Homebrew",
		"Install python@3.12 using Homebrew",
		`Clone "Git URL" to path "bar"`,
	} {
		assert.Contains(t, out, "- "+example)
	}
}

func TestRenderer_NoColorHasNoANSI(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, true, false)

	r.Answer("**bold** and `code`")
	r.Error(errors.New("bad"))
	r.Indicator(WorkingIndicator)

	assert.NotContains(t, buf.String(), "\x1b[", "noColor output should have no ANSI codes")
}

func TestRenderer_MarkdownListsSurvive(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, true, false)

	r.Answer("**Calling tool(s)**\n- **Tool:** delete_directory\n\t- **Args**\n\t\t- directory=foo\n")

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, AnswerPrefix))
	assert.Contains(t, out, "delete_directory")
	assert.Contains(t, out, "directory=foo")
}
