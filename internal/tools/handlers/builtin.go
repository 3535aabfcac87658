package handlers

import (
	"fmt"
	"io"
	"os"

	"github.com/mfateev/yada-go/internal/execsession"
	"github.com/mfateev/yada-go/internal/tools"
)

const (
	safe      = tools.Safe
	sensitive = tools.Sensitive
)

type registration struct {
	safety  tools.SafetyTag
	handler tools.ToolHandler
}

// Options configures the built-in tool set.
type Options struct {
	// Runner executes external commands. Defaults to a ProcessRunner.
	Runner execsession.Runner
	// Echo receives live output of long-running installers. Defaults to stderr.
	Echo io.Writer
	// Platform defaults to the host platform.
	Platform *Platform
}

// RegisterBuiltins adds every built-in tool to reg.
func RegisterBuiltins(reg *tools.Registry, opts Options) error {
	runner := opts.Runner
	if runner == nil {
		runner = execsession.NewProcessRunner()
	}
	echo := opts.Echo
	if echo == nil {
		echo = os.Stderr
	}
	platform := HostPlatform()
	if opts.Platform != nil {
		platform = *opts.Platform
	}

	all := []registration{
		{safe, NewListCapabilitiesTool(reg.Names)},
		{safe, NewListDirectoryTool()},
		{safe, NewCreateDirectoryTool()},
		{sensitive, NewDeleteDirectoryTool()},
		{sensitive, NewWriteFileTool()},
	}
	all = append(all, dockerTools(runner)...)
	all = append(all, gitTools(runner)...)
	all = append(all, homebrewTools(runner, echo)...)
	all = append(all, systemTools(runner, platform)...)
	all = append(all, registration{sensitive, NewShellCommandTool(runner)})

	for _, r := range all {
		if err := reg.Register(r.handler, r.safety); err != nil {
			return fmt.Errorf("register built-in tool: %w", err)
		}
	}
	return nil
}
