// Package handlers contains the built-in tool implementations.
package handlers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mfateev/yada-go/internal/execsession"
	"github.com/mfateev/yada-go/internal/tools"
)

// ---------------------------------------------------------------------------
// Argument helpers
// ---------------------------------------------------------------------------

// stringArg returns the string argument key, or def when absent or empty.
func stringArg(args map[string]interface{}, key, def string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return def
}

// requireString returns a non-empty string argument or a validation error.
func requireString(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", tools.NewValidationError("missing required argument: " + key)
	}
	s, ok := v.(string)
	if !ok {
		return "", tools.NewValidationError(key + " must be a string")
	}
	if strings.TrimSpace(s) == "" {
		return "", tools.NewValidationError(key + " cannot be empty")
	}
	return s, nil
}

// parseBoolArg returns a boolean argument, defaulting when absent or mistyped.
func parseBoolArg(args map[string]interface{}, key string, defaultVal bool) bool {
	if b, ok := args[key].(bool); ok {
		return b
	}
	return defaultVal
}

// resolvePath makes p absolute relative to the invocation's working directory.
func resolvePath(invocation *tools.ToolInvocation, p string) string {
	if filepath.IsAbs(p) || invocation.Cwd == "" {
		return p
	}
	return filepath.Join(invocation.Cwd, p)
}

// ---------------------------------------------------------------------------
// External command tools
// ---------------------------------------------------------------------------

// commandTool runs an external program whose argv is derived from the
// call's arguments. Docker, git and Homebrew tools are all commandTools.
type commandTool struct {
	spec   tools.ToolSpec
	runner execsession.Runner
	build  func(invocation *tools.ToolInvocation) (execsession.Command, error)
	// format turns a successful run into the tool's reply. Nil returns the
	// raw output.
	format func(invocation *tools.ToolInvocation, res execsession.Result) string
}

func (t *commandTool) Spec() tools.ToolSpec { return t.spec }

func (t *commandTool) Handle(ctx context.Context, invocation *tools.ToolInvocation) (*tools.ToolOutput, error) {
	cmd, err := t.build(invocation)
	if err != nil {
		return nil, err
	}
	if cmd.Dir == "" {
		cmd.Dir = invocation.Cwd
	}
	res, err := t.runner.Run(ctx, cmd)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return tools.Failure(fmt.Sprintf("An error occurred: %v", err)), nil
	}
	if !res.Success() {
		return tools.Failure(fmt.Sprintf("An error occurred: %s exited with status %d\n%s",
			cmd.Argv[0], res.ExitCode, strings.TrimSpace(res.Output))), nil
	}
	if t.format != nil {
		return tools.Succeeded(t.format(invocation, res)), nil
	}
	out := strings.TrimSpace(res.Output)
	if out == "" {
		out = "(no output)"
	}
	return tools.Succeeded(out), nil
}

// fixed returns a build function for a command without arguments.
func fixed(argv ...string) func(*tools.ToolInvocation) (execsession.Command, error) {
	return func(*tools.ToolInvocation) (execsession.Command, error) {
		return execsession.Command{Argv: argv}, nil
	}
}

// reply returns a format function that ignores output and says msg, with
// %s verbs filled from the named arguments.
func reply(msg string, keys ...string) func(*tools.ToolInvocation, execsession.Result) string {
	return func(inv *tools.ToolInvocation, _ execsession.Result) string {
		vals := make([]interface{}, len(keys))
		for i, k := range keys {
			vals[i] = stringArg(inv.Arguments, k, "")
		}
		return fmt.Sprintf(msg, vals...)
	}
}
