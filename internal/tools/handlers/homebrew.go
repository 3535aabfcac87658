package handlers

import (
	"io"
	"strings"

	"github.com/mfateev/yada-go/internal/execsession"
	"github.com/mfateev/yada-go/internal/tools"
)

// homebrewInstallScript is the official installer entry point.
const homebrewInstallScript = `/bin/bash -c "$(curl -fsSL https://raw.githubusercontent.com/Homebrew/install/HEAD/install.sh)"`

var packageParam = tools.ToolParameter{
	Name:        "package",
	Type:        "string",
	Description: "The Homebrew package (formula or cask).",
	Required:    true,
}

// homebrewTools returns the brew tools. echo receives the installer's live
// output, since it can run for minutes.
func homebrewTools(runner execsession.Runner, echo io.Writer) []registration {
	return []registration{
		{sensitive, &commandTool{
			spec: tools.ToolSpec{
				Name:        "install_homebrew",
				Description: "Install the Homebrew package manager.",
			},
			runner: runner,
			build: func(*tools.ToolInvocation) (execsession.Command, error) {
				return execsession.Command{
					Argv: []string{"/bin/bash", "-c", homebrewInstallScript},
					Env:  []string{"NONINTERACTIVE=1"},
					TTY:  true,
					Echo: echo,
				}, nil
			},
			format: reply("Homebrew installation complete."),
		}},
		{safe, &commandTool{
			spec: tools.ToolSpec{
				Name:        "list_homebrew_packages",
				Description: "List the installed Homebrew packages.",
			},
			runner: runner,
			build:  fixed("brew", "list"),
		}},
		{safe, brewPackageCommand(runner, "install_homebrew_package", "Install a Homebrew package.",
			"install", "Installed Homebrew package: %s")},
		{sensitive, brewPackageCommand(runner, "uninstall_homebrew_package", "Uninstall a Homebrew package.",
			"uninstall", "Uninstalled Homebrew package: %s")},
		{safe, &commandTool{
			spec: tools.ToolSpec{
				Name:        "homebrew_doctor",
				Description: "Run the Homebrew doctor command.",
			},
			runner: runner,
			build:  fixed("brew", "doctor"),
			format: func(_ *tools.ToolInvocation, res execsession.Result) string {
				return "BREW DOCTOR OUTPUT:\n```\n" + strings.TrimSpace(res.Output) + "\n```"
			},
		}},
	}
}

func brewPackageCommand(runner execsession.Runner, name, desc, verb, msg string) *commandTool {
	return &commandTool{
		spec: tools.ToolSpec{
			Name:        name,
			Description: desc,
			Parameters:  []tools.ToolParameter{packageParam},
		},
		runner: runner,
		build: func(inv *tools.ToolInvocation) (execsession.Command, error) {
			pkg, err := requireString(inv.Arguments, "package")
			if err != nil {
				return execsession.Command{}, err
			}
			return execsession.Command{Argv: []string{"brew", verb, pkg}}, nil
		},
		format: reply(msg, "package"),
	}
}
