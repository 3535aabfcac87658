package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/mfateev/yada-go/internal/execsession"
	"github.com/mfateev/yada-go/internal/tools"
)

// Platform identifies the host. It is a value so tests can pin it.
type Platform struct {
	GOOS   string
	GOARCH string
}

// HostPlatform returns the platform the binary runs on.
func HostPlatform() Platform {
	return Platform{GOOS: runtime.GOOS, GOARCH: runtime.GOARCH}
}

// SystemName returns the operating system the way uname reports it.
func (p Platform) SystemName() string {
	switch p.GOOS {
	case "darwin":
		return "Darwin"
	case "linux":
		return "Linux"
	case "windows":
		return "Windows"
	case "freebsd":
		return "FreeBSD"
	default:
		return p.GOOS
	}
}

// Machine returns the chip architecture the way uname -m reports it.
func (p Platform) Machine() string {
	switch p.GOARCH {
	case "amd64":
		return "x86_64"
	case "386":
		return "i386"
	case "arm64":
		if p.GOOS == "linux" {
			return "aarch64"
		}
		return "arm64"
	default:
		return p.GOARCH
	}
}

func (p Platform) openerArgv(url string) []string {
	switch p.GOOS {
	case "darwin":
		return []string{"open", url}
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler", url}
	default:
		return []string{"xdg-open", url}
	}
}

func systemTools(runner execsession.Runner, platform Platform) []registration {
	return []registration{
		{safe, tools.NewFuncTool(tools.ToolSpec{
			Name:        "get_system_operating_system",
			Description: "Get the operating system of the system.",
		}, func(context.Context, *tools.ToolInvocation) (*tools.ToolOutput, error) {
			return tools.Succeeded(platform.SystemName()), nil
		})},
		{safe, tools.NewFuncTool(tools.ToolSpec{
			Name:        "get_system_chip_architecture",
			Description: "Get the chip architecture (for example x86_64 or arm64) of the system.",
		}, func(context.Context, *tools.ToolInvocation) (*tools.ToolOutput, error) {
			return tools.Succeeded(platform.Machine()), nil
		})},
		{safe, &commandTool{
			spec: tools.ToolSpec{
				Name:        "open_url_in_browser",
				Description: "Open a URL in the default web browser.",
				Parameters: []tools.ToolParameter{
					{Name: "url", Type: "string", Description: "The URL to open.", Required: true},
					{Name: "new_window", Type: "boolean", Description: "Open the URL in a new window, default false.", Default: false},
					{Name: "new_tab", Type: "boolean", Description: "Open the URL in a new tab, default false.", Default: false},
				},
			},
			runner: runner,
			build: func(inv *tools.ToolInvocation) (execsession.Command, error) {
				url, err := requireString(inv.Arguments, "url")
				if err != nil {
					return execsession.Command{}, err
				}
				return execsession.Command{Argv: platform.openerArgv(url)}, nil
			},
			format: reply("Opened %s in the default web browser.", "url"),
		}},
	}
}

// NewListCapabilitiesTool reports the names of every registered tool.
func NewListCapabilitiesTool(names func() []string) tools.ToolHandler {
	spec := tools.ToolSpec{
		Name:        "list_capabilities",
		Description: "List the capabilities of the tools available in YADA.",
	}
	return tools.NewFuncTool(spec, func(context.Context, *tools.ToolInvocation) (*tools.ToolOutput, error) {
		data, err := json.MarshalIndent(names(), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode capabilities: %w", err)
		}
		return tools.Succeeded(string(data)), nil
	})
}
