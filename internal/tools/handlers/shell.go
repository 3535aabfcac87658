package handlers

import (
	"github.com/mfateev/yada-go/internal/execsession"
	"github.com/mfateev/yada-go/internal/shell"
	"github.com/mfateev/yada-go/internal/tools"
)

// NewShellCommandTool runs a command string through the user's login shell.
// It is registered as sensitive.
func NewShellCommandTool(runner execsession.Runner) tools.ToolHandler {
	return &commandTool{
		spec: tools.ToolSpec{
			Name:        "run_shell_command",
			Description: "Run a command string in the user's shell and return its combined output.",
			Parameters: []tools.ToolParameter{
				{Name: "command", Type: "string", Description: "The shell command to run.", Required: true},
				{Name: "workdir", Type: "string", Description: "Working directory, default the current directory."},
			},
		},
		runner: runner,
		build: func(inv *tools.ToolInvocation) (execsession.Command, error) {
			command, err := requireString(inv.Arguments, "command")
			if err != nil {
				return execsession.Command{}, err
			}
			userShell := shell.Detect()
			return execsession.Command{
				Argv: userShell.Argv(command, true),
				Dir:  resolvePath(inv, stringArg(inv.Arguments, "workdir", "")),
			}, nil
		},
	}
}
