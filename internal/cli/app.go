// Package cli is the interactive front end: it renders conversation turns,
// reads requests and drives the confirmation loop for sensitive tools.
package cli

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/mfateev/yada-go/internal/models"
	"github.com/mfateev/yada-go/internal/workflow"
)

// Agent is the state machine surface the controller drives.
// *workflow.Machine satisfies it.
type Agent interface {
	Stream(ctx context.Context, threadID, humanText string) iter.Seq2[models.Turn, error]
	Resume(ctx context.Context, threadID string, d workflow.Decision) iter.Seq2[models.Turn, error]
	CurrentSnapshot(ctx context.Context, threadID string) (models.Snapshot, error)
}

// Config holds CLI configuration.
type Config struct {
	ThreadID string
	Logger   *slog.Logger
}

// ReportedError wraps an error that has already been shown to the user.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string { return e.Err.Error() }
func (e *ReportedError) Unwrap() error { return e.Err }

// App is the interaction controller for one thread.
type App struct {
	agent    Agent
	catalog  ToolCatalog
	renderer *Renderer
	prompter Prompter
	threadID string
	logger   *slog.Logger

	// printed holds the ids of every turn already observed, so a turn is
	// rendered at most once however often it is seen.
	printed map[string]struct{}
}

// NewApp creates a controller.
func NewApp(agent Agent, catalog ToolCatalog, renderer *Renderer, prompter Prompter, config Config) *App {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		agent:    agent,
		catalog:  catalog,
		renderer: renderer,
		prompter: prompter,
		threadID: config.ThreadID,
		logger:   logger,
		printed:  make(map[string]struct{}),
	}
}

// ThreadID returns the thread this controller drives.
func (a *App) ThreadID() string { return a.threadID }

// RunCommand runs one request to completion, asking for confirmations as
// needed. Errors are rendered before being returned as *ReportedError.
func (a *App) RunCommand(ctx context.Context, command string) error {
	if err := a.resumePending(ctx); err != nil {
		return a.report(err)
	}
	if err := a.consume(a.agent.Stream(ctx, a.threadID, command)); err != nil {
		return a.report(err)
	}
	if err := a.confirmationLoop(ctx); err != nil {
		return a.report(err)
	}
	return nil
}

// RunChat runs the interactive session until the user leaves.
func (a *App) RunChat(ctx context.Context) error {
	a.renderer.Title()

	if err := a.resumePending(ctx); err != nil {
		if endsSession(err) {
			a.renderer.Farewell()
			return nil
		}
		a.renderer.Error(err)
	}

	a.renderer.Answer(Greeting)
	for {
		line, err := a.prompter.Prompt(ChatPrompt)
		if err != nil {
			if endsSession(err) {
				a.renderer.Farewell()
				return nil
			}
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if IsExitResponse(line) {
			a.renderer.Farewell()
			return nil
		}

		a.renderer.Indicator(ThinkingIndicator)
		err = a.consume(a.agent.Stream(ctx, a.threadID, line))
		if err == nil {
			err = a.confirmationLoop(ctx)
		}
		if err != nil {
			if endsSession(err) {
				a.renderer.Farewell()
				return nil
			}
			a.logger.Debug("Request failed", "thread_id", a.threadID, "error", err)
			a.renderer.Error(err)
		}
	}
}

// confirmationLoop answers suspensions until the thread has nothing left
// to run.
func (a *App) confirmationLoop(ctx context.Context) error {
	for {
		snap, err := a.agent.CurrentSnapshot(ctx, a.threadID)
		if err != nil {
			return err
		}
		if snap.Quiescent() {
			return nil
		}
		if !snap.Paused() {
			a.logger.Warn("Thread stopped mid-run", "thread_id", a.threadID, "next", snap.NextNode())
			return nil
		}

		d, err := a.readDecision()
		if err != nil {
			return err
		}
		a.logger.Debug("Confirmation answered", "thread_id", a.threadID, "decision", d.String())
		if d.Approved {
			a.renderer.Indicator(WorkingIndicator)
		} else {
			a.renderer.Indicator(ThinkingIndicator)
		}
		if err := a.consume(a.agent.Resume(ctx, a.threadID, d)); err != nil {
			return err
		}
	}
}

func (a *App) readDecision() (workflow.Decision, error) {
	for {
		line, err := a.prompter.Prompt(ConfirmPrompt)
		if err != nil {
			return workflow.Decision{}, err
		}
		if d, ok := ParseDecision(line); ok {
			return d, nil
		}
	}
}

// resumePending picks up a thread left waiting for a confirmation by an
// earlier session: history is marked as seen, the prompt is shown again
// and the confirmation loop runs.
func (a *App) resumePending(ctx context.Context) error {
	snap, err := a.agent.CurrentSnapshot(ctx, a.threadID)
	if err != nil {
		return err
	}
	for _, t := range snap.Conversation {
		a.printed[t.ID] = struct{}{}
	}
	if !snap.Paused() {
		return nil
	}
	a.logger.Debug("Resuming paused thread", "thread_id", a.threadID, "pending", len(snap.Pending))
	a.renderer.Answer(FormatConfirmation(lastPendingCalls(snap), a.catalog))
	return a.confirmationLoop(ctx)
}

// consume renders every turn of seq and returns the first error.
func (a *App) consume(seq iter.Seq2[models.Turn, error]) error {
	for turn, err := range seq {
		if err != nil {
			return err
		}
		a.observe(turn)
	}
	return nil
}

// observe renders turn if it is a final message not seen before, and records
// its id either way.
func (a *App) observe(turn models.Turn) {
	if _, seen := a.printed[turn.ID]; seen {
		return
	}
	a.printed[turn.ID] = struct{}{}

	if turn.Kind != models.TurnAssistant {
		return
	}
	if !turn.HasToolCalls() {
		a.renderer.Answer(turn.Text)
		return
	}
	for _, call := range turn.ToolCalls {
		if a.catalog.IsSensitive(call.Name) {
			a.renderer.Answer(FormatConfirmation(turn.ToolCalls, a.catalog))
			return
		}
	}
	a.renderer.Indicator(WorkingIndicator)
}

func (a *App) report(err error) error {
	if endsSession(err) {
		a.renderer.Farewell()
		return nil
	}
	a.renderer.Error(err)
	return &ReportedError{Err: err}
}

func endsSession(err error) bool {
	return errors.Is(err, ErrInterrupted) || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled)
}
