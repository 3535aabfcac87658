package handlers

import (
	"fmt"
	"strings"

	"github.com/mfateev/yada-go/internal/execsession"
	"github.com/mfateev/yada-go/internal/tools"
)

// Docker tools drive the docker CLI, so they work against whatever context
// the user's docker client is configured for.

var containerIDParam = tools.ToolParameter{
	Name:        "container_id",
	Type:        "string",
	Description: "The ID or name of the Docker container.",
	Required:    true,
}

func dockerTools(runner execsession.Runner) []registration {
	return []registration{
		{sensitive, &commandTool{
			spec: tools.ToolSpec{
				Name:        "run_docker_container_image",
				Description: "Run a Docker container image.",
				Parameters: []tools.ToolParameter{
					{Name: "image", Type: "string", Description: "The image to run.", Required: true},
					{Name: "command", Type: "string", Description: "The command to run in the container."},
					{Name: "detach", Type: "boolean", Description: "Whether to run the container in detached mode.", Default: false},
				},
			},
			runner: runner,
			build: func(inv *tools.ToolInvocation) (execsession.Command, error) {
				image, err := requireString(inv.Arguments, "image")
				if err != nil {
					return execsession.Command{}, err
				}
				argv := []string{"docker", "run"}
				if parseBoolArg(inv.Arguments, "detach", false) {
					argv = append(argv, "--detach")
				}
				argv = append(argv, image)
				if command := stringArg(inv.Arguments, "command", ""); command != "" {
					argv = append(argv, "sh", "-c", command)
				}
				return execsession.Command{Argv: argv}, nil
			},
			format: func(inv *tools.ToolInvocation, res execsession.Result) string {
				image := stringArg(inv.Arguments, "image", "")
				out := strings.TrimSpace(res.Output)
				if parseBoolArg(inv.Arguments, "detach", false) {
					return fmt.Sprintf("Ran Docker container %s from image %s.", out, image)
				}
				return fmt.Sprintf("Ran Docker container from image %s.\nLOGS\n---\n%s", image, out)
			},
		}},
		{safe, &commandTool{
			spec: tools.ToolSpec{
				Name:        "list_all_running_docker_containers",
				Description: "List all running Docker containers.",
			},
			runner: runner,
			build:  fixed("docker", "ps", "--format", "{{.ID}}\t{{.Image}}\t{{.Names}}\t{{.Status}}"),
		}},
		{safe, &commandTool{
			spec: tools.ToolSpec{
				Name:        "list_all_docker_images",
				Description: "List all Docker images.",
			},
			runner: runner,
			build:  fixed("docker", "images", "--format", "{{.ID}}\t{{.Repository}}:{{.Tag}}\t{{.Size}}"),
		}},
		{sensitive, &commandTool{
			spec: tools.ToolSpec{
				Name:        "build_docker_image_from_dockerfile",
				Description: "Build a Docker image from a Dockerfile.",
				Parameters: []tools.ToolParameter{
					{Name: "directory", Type: "string", Description: "The directory containing the Dockerfile.", Default: "."},
					{Name: "tag", Type: "string", Description: "The tag to assign to the image."},
				},
			},
			runner: runner,
			build: func(inv *tools.ToolInvocation) (execsession.Command, error) {
				argv := []string{"docker", "build"}
				if tag := stringArg(inv.Arguments, "tag", ""); tag != "" {
					argv = append(argv, "--tag", tag)
				}
				argv = append(argv, resolvePath(inv, stringArg(inv.Arguments, "directory", ".")))
				return execsession.Command{Argv: argv}, nil
			},
			format: func(_ *tools.ToolInvocation, res execsession.Result) string {
				return "Built Docker image.\nLOGS\n---\n" + strings.TrimSpace(res.Output)
			},
		}},
		{safe, &commandTool{
			spec: tools.ToolSpec{
				Name:        "execute_command_in_docker_container",
				Description: "Execute a command in a running Docker container.",
				Parameters: []tools.ToolParameter{
					containerIDParam,
					{Name: "command", Type: "string", Description: "The command to execute.", Required: true},
				},
			},
			runner: runner,
			build: func(inv *tools.ToolInvocation) (execsession.Command, error) {
				id, err := requireString(inv.Arguments, "container_id")
				if err != nil {
					return execsession.Command{}, err
				}
				command, err := requireString(inv.Arguments, "command")
				if err != nil {
					return execsession.Command{}, err
				}
				return execsession.Command{Argv: []string{"docker", "exec", id, "sh", "-c", command}}, nil
			},
			format: func(inv *tools.ToolInvocation, res execsession.Result) string {
				return fmt.Sprintf("Executed command in Docker container %s.\nOutput: %s",
					stringArg(inv.Arguments, "container_id", ""), strings.TrimSpace(res.Output))
			},
		}},
		{safe, containerCommand(runner, "stop_docker_container", "Stop a Docker container.",
			"stop", "Stopped Docker container %s.")},
		{sensitive, containerCommand(runner, "remove_docker_container", "Remove a Docker container.",
			"rm", "Removed Docker container %s.")},
		{sensitive, &commandTool{
			spec: tools.ToolSpec{
				Name:        "remove_docker_image",
				Description: "Remove a Docker image.",
				Parameters: []tools.ToolParameter{
					{Name: "image_id", Type: "string", Description: "The ID of the Docker image.", Required: true},
					{Name: "force", Type: "boolean", Description: "Whether to force removal.", Default: false},
				},
			},
			runner: runner,
			build: func(inv *tools.ToolInvocation) (execsession.Command, error) {
				id, err := requireString(inv.Arguments, "image_id")
				if err != nil {
					return execsession.Command{}, err
				}
				argv := []string{"docker", "rmi"}
				if parseBoolArg(inv.Arguments, "force", false) {
					argv = append(argv, "--force")
				}
				return execsession.Command{Argv: append(argv, id)}, nil
			},
			format: reply("Removed Docker image %s.", "image_id"),
		}},
		{safe, &commandTool{
			spec: tools.ToolSpec{
				Name:        "docker_logs",
				Description: "Get the logs of a Docker container.",
				Parameters:  []tools.ToolParameter{containerIDParam},
			},
			runner: runner,
			build: func(inv *tools.ToolInvocation) (execsession.Command, error) {
				id, err := requireString(inv.Arguments, "container_id")
				if err != nil {
					return execsession.Command{}, err
				}
				return execsession.Command{Argv: []string{"docker", "logs", id}}, nil
			},
		}},
		{safe, &commandTool{
			spec: tools.ToolSpec{
				Name:        "docker_compose_up",
				Description: "Run `docker compose up` in detached mode.",
				Parameters: []tools.ToolParameter{
					{Name: "compose_file", Type: "string", Description: "The Docker Compose file to use.", Default: "docker-compose.yml"},
				},
			},
			runner: runner,
			build: func(inv *tools.ToolInvocation) (execsession.Command, error) {
				file := resolvePath(inv, stringArg(inv.Arguments, "compose_file", "docker-compose.yml"))
				return execsession.Command{Argv: []string{"docker", "compose", "-f", file, "up", "--detach"}}, nil
			},
			format: reply("Ran docker compose up."),
		}},
	}
}

func containerCommand(runner execsession.Runner, name, desc, verb, msg string) *commandTool {
	return &commandTool{
		spec: tools.ToolSpec{
			Name:        name,
			Description: desc,
			Parameters:  []tools.ToolParameter{containerIDParam},
		},
		runner: runner,
		build: func(inv *tools.ToolInvocation) (execsession.Command, error) {
			id, err := requireString(inv.Arguments, "container_id")
			if err != nil {
				return execsession.Command{}, err
			}
			return execsession.Command{Argv: []string{"docker", verb, id}}, nil
		},
		format: reply(msg, "container_id"),
	}
}
