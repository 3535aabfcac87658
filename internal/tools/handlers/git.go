package handlers

import (
	"context"
	"fmt"

	"github.com/mfateev/yada-go/internal/execsession"
	"github.com/mfateev/yada-go/internal/tools"
)

var repositoryPathParam = tools.ToolParameter{
	Name:        "repository_path",
	Type:        "string",
	Description: `The path to the repository, default ".".`,
	Default:     ".",
}

func gitTools(runner execsession.Runner) []registration {
	return []registration{
		{sensitive, &commandTool{
			spec: tools.ToolSpec{
				Name:        "clone_github_repository_by_git_url",
				Description: "Clone a GitHub repository by its git URL.",
				Parameters: []tools.ToolParameter{
					{Name: "git_url", Type: "string", Description: "The git URL of the repository.", Required: true},
					{Name: "to_path", Type: "string", Description: "The path to clone the repository to.", Default: "."},
					{Name: "branch", Type: "string", Description: `The branch to clone, default "main".`, Default: "main"},
				},
			},
			runner: runner,
			build: func(inv *tools.ToolInvocation) (execsession.Command, error) {
				url, err := requireString(inv.Arguments, "git_url")
				if err != nil {
					return execsession.Command{}, err
				}
				return execsession.Command{Argv: []string{
					"git", "clone", "--branch", stringArg(inv.Arguments, "branch", "main"),
					url, resolvePath(inv, stringArg(inv.Arguments, "to_path", ".")),
				}}, nil
			},
			format: reply("Cloned the %s branch of the repository to %s.", "branch", "to_path"),
		}},
		{sensitive, &checkoutTool{runner: runner}},
		{sensitive, &commandTool{
			spec: tools.ToolSpec{
				Name:        "delete_local_github_repository_branch",
				Description: "Delete a branch in a local GitHub repository.",
				Parameters: []tools.ToolParameter{
					{Name: "branch", Type: "string", Description: "The branch to delete.", Required: true},
					repositoryPathParam,
				},
			},
			runner: runner,
			build: func(inv *tools.ToolInvocation) (execsession.Command, error) {
				branch, err := requireString(inv.Arguments, "branch")
				if err != nil {
					return execsession.Command{}, err
				}
				repo := resolvePath(inv, stringArg(inv.Arguments, "repository_path", "."))
				return execsession.Command{Argv: []string{"git", "-C", repo, "branch", "-D", branch}}, nil
			},
			format: reply("Deleted local branch %s.", "branch"),
		}},
	}
}

// checkoutTool switches to a branch, creating it first when it does not exist.
type checkoutTool struct {
	runner execsession.Runner
}

func (t *checkoutTool) Spec() tools.ToolSpec {
	return tools.ToolSpec{
		Name:        "checkout_github_repository_branch",
		Description: "Checkout a branch in a GitHub repository. This will create a new branch if it doesn't exist.",
		Parameters: []tools.ToolParameter{
			{Name: "branch", Type: "string", Description: "The branch to checkout.", Required: true},
			repositoryPathParam,
		},
	}
}

func (t *checkoutTool) Handle(ctx context.Context, inv *tools.ToolInvocation) (*tools.ToolOutput, error) {
	branch, err := requireString(inv.Arguments, "branch")
	if err != nil {
		return nil, err
	}
	repo := resolvePath(inv, stringArg(inv.Arguments, "repository_path", "."))

	probe, err := t.runner.Run(ctx, execsession.Command{
		Argv: []string{"git", "-C", repo, "rev-parse", "--verify", "--quiet", "refs/heads/" + branch},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return tools.Failure(fmt.Sprintf("An error occurred: %v", err)), nil
	}

	argv := []string{"git", "-C", repo, "checkout", branch}
	msg := fmt.Sprintf("Checked out existing %s branch.", branch)
	if !probe.Success() {
		argv = []string{"git", "-C", repo, "checkout", "-b", branch}
		msg = fmt.Sprintf("Created and checked out new %s branch.", branch)
	}

	res, err := t.runner.Run(ctx, execsession.Command{Argv: argv})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return tools.Failure(fmt.Sprintf("An error occurred: %v", err)), nil
	}
	if !res.Success() {
		return tools.Failure(fmt.Sprintf("An error occurred: %s", res.Output)), nil
	}
	return tools.Succeeded(msg), nil
}
