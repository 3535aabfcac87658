package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mfateev/yada-go/internal/checkpoint"
	"github.com/mfateev/yada-go/internal/cli"
	"github.com/mfateev/yada-go/internal/config"
	"github.com/mfateev/yada-go/internal/instructions"
	"github.com/mfateev/yada-go/internal/llm"
	"github.com/mfateev/yada-go/internal/tools"
	"github.com/mfateev/yada-go/internal/tools/handlers"
	"github.com/mfateev/yada-go/internal/tools/mcptools"
	"github.com/mfateev/yada-go/internal/tools/starlarktools"
	"github.com/mfateev/yada-go/internal/workflow"
)

var version = "dev"

// errFailed makes the process exit 1 after the cause was already shown.
var errFailed = errors.New("command failed")

// environment is what the command needs from the outside world.
type environment struct {
	lookupEnv   func(string) (string, bool)
	newPrompter func(context.Context) (cli.Prompter, error)
	newModel    func(apiKey string) llm.LLMClient
	// plain disables color and markdown rendering.
	plain bool
}

func defaultEnvironment() environment {
	return environment{
		lookupEnv:   os.LookupEnv,
		newPrompter: cli.NewPrompter,
		newModel: func(apiKey string) llm.LLMClient {
			return llm.NewMultiProviderClient(apiKey)
		},
		plain: !term.IsTerminal(int(os.Stdout.Fd())),
	}
}

type rootOptions struct {
	editConfig   bool
	configFile   string
	threadID     string
	debug        bool
	checkpointDB string
}

func newRootCmd(env environment) *cobra.Command {
	var opts rootOptions
	cmd := &cobra.Command{
		Use:   "yada [command...]",
		Short: "Yet Another Dev Assistant",
		Long: `YADA (Yet Another Dev Assistant) is a chat assistant for developer
chores: Docker, git, Homebrew, files and shell commands.

Run without arguments to chat, or pass a request to run it once:
  yada                               # interactive chat
  yada create the dir foo            # one-shot command
  yada --config                      # edit settings

Tools that change your system ask for confirmation before they run.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, env, opts, args)
		},
	}
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	flags := cmd.Flags()
	flags.BoolP("version", "V", false, "Print the version and exit")
	flags.BoolVar(&opts.editConfig, "config", false, "Edit the configuration interactively")
	flags.StringVarP(&opts.threadID, "thread-id", "t", "", "Conversation thread to use (default: a new one)")
	flags.BoolVarP(&opts.debug, "debug", "D", false, "Enable debug logging")
	flags.StringVar(&opts.checkpointDB, "checkpoint-db", "", "SQLite file that keeps threads across runs")
	flags.StringVar(&opts.configFile, "config-file", "", "Configuration file (default: ~/.config/yada/yada.config)")
	_ = flags.MarkHidden("config-file")
	return cmd
}

func run(cmd *cobra.Command, env environment, opts rootOptions, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(cmd.ErrOrStderr(), opts.debug, env.plain)
	slog.SetDefault(logger)

	path := opts.configFile
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	fileCfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if opts.editConfig {
		return cli.RunConfigEditor(fileCfg, func(c *config.Config) error { return config.Save(path, c) })
	}

	cfg := fileCfg.WithEnv(env.lookupEnv)
	if opts.checkpointDB != "" {
		cfg.CheckpointDB = opts.checkpointDB
	}
	threadID := opts.threadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	renderer := cli.NewRenderer(cmd.OutOrStdout(), env.plain, env.plain)
	prompter, err := env.newPrompter(ctx)
	if err != nil {
		return err
	}
	defer prompter.Close()

	if cfg.APIKey == "" {
		key, ok, err := cli.PromptAPIKey(prompter)
		if err != nil {
			return err
		}
		if !ok {
			renderer.Farewell()
			return nil
		}
		if err := config.SetAPIKey(path, key); err != nil {
			return err
		}
		cfg.APIKey = key
	}

	reg, closeTools, err := buildRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeTools()

	store, closeStore, err := openCheckpointer(ctx, cfg.CheckpointDB)
	if err != nil {
		return err
	}
	defer closeStore()

	cwd, _ := os.Getwd()
	platform := handlers.HostPlatform()
	machine := workflow.New(env.newModel(cfg.APIKey), reg, store, workflow.Config{
		Model:                 cfg.ModelConfig(),
		BaseInstructions:      instructions.GetBaseInstructions(""),
		DeveloperInstructions: instructions.ComposeDeveloperInstructions(cwd, platform.GOOS+"/"+platform.GOARCH),
		MaxSteps:              cfg.MaxSteps,
		Cwd:                   cwd,
		Logger:                logger,
	})
	app := cli.NewApp(machine, reg, renderer, prompter, cli.Config{ThreadID: threadID, Logger: logger})
	logger.Debug("Session started", "thread_id", threadID, "model", cfg.ModelConfig().Model, "tools", len(reg.Names()))

	if len(args) > 0 {
		if err := app.RunCommand(ctx, strings.Join(args, " ")); err != nil {
			var reported *cli.ReportedError
			if errors.As(err, &reported) {
				return errFailed
			}
			return err
		}
		return nil
	}
	return app.RunChat(ctx)
}

// buildRegistry collects the built-in, script and MCP tools.
func buildRegistry(ctx context.Context, cfg config.Config, logger *slog.Logger) (*tools.Registry, func(), error) {
	reg := tools.NewRegistry()
	if err := handlers.RegisterBuiltins(reg, handlers.Options{}); err != nil {
		return nil, nil, fmt.Errorf("register built-in tools: %w", err)
	}
	if _, err := starlarktools.LoadDir(cfg.CustomToolsDir, reg, starlarktools.Options{Logger: logger}); err != nil {
		return nil, nil, err
	}

	bridge := mcptools.NewBridge(version, logger)
	closeBridge := func() {
		if err := bridge.Close(); err != nil {
			logger.Warn("Closing MCP sessions failed", "error", err)
		}
	}
	if err := bridge.ConnectAll(ctx, cfg.MCPServers, reg); err != nil {
		closeBridge()
		return nil, nil, err
	}
	return reg, closeBridge, nil
}

func openCheckpointer(ctx context.Context, path string) (checkpoint.Checkpointer, func(), error) {
	if path == "" {
		return checkpoint.NewMemory(), func() {}, nil
	}
	db, err := checkpoint.OpenSQLite(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = db.Close() }, nil
}

// exitCode maps a command error to the process status.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	if !errors.Is(err, errFailed) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return 1
}
