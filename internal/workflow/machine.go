// Package workflow runs the agent graph.
//
// machine.go drives a thread through agent, safe_tools and sensitive_tools,
// suspending before sensitive tools until a human decision arrives.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/mfateev/yada-go/internal/checkpoint"
	"github.com/mfateev/yada-go/internal/llm"
	"github.com/mfateev/yada-go/internal/models"
	"github.com/mfateev/yada-go/internal/tools"
)

// DefaultMaxSteps bounds the model calls made for one human turn.
const DefaultMaxSteps = 12

// StepLimitMessage replaces a tool request made on the last allowed step.
const StepLimitMessage = "Sorry, need more steps to process this request."

var (
	// ErrConfirmationPending is returned when new input is submitted to a
	// thread that is waiting for a decision.
	ErrConfirmationPending = errors.New("thread is waiting for tool confirmation")
	// ErrNotPaused is returned when resuming a thread that is not waiting.
	ErrNotPaused = errors.New("thread is not waiting for tool confirmation")
	// ErrEmptyThreadID is returned for operations without a thread id.
	ErrEmptyThreadID = errors.New("thread id is required")
)

// ToolRegistry is the tool surface the machine needs.
// *tools.Registry satisfies it.
type ToolRegistry interface {
	SafetyCatalog
	Execute(ctx context.Context, invocation *tools.ToolInvocation) (*tools.ToolOutput, error)
	Specs() []tools.ToolSpec
	Names() []string
}

// Config holds the per-session settings of a Machine.
type Config struct {
	Model models.ModelConfig

	BaseInstructions      string
	UserInstructions      string
	DeveloperInstructions string

	// MaxSteps bounds model calls per human turn. Zero means DefaultMaxSteps.
	MaxSteps int
	// Cwd is the working directory handed to tools.
	Cwd string

	Logger *slog.Logger
}

// Machine is the agent state machine. All thread state lives in the
// checkpointer; a Machine can serve any number of threads, one call at a time.
type Machine struct {
	model    llm.LLMClient
	registry ToolRegistry
	store    checkpoint.Checkpointer
	gate     *ApprovalGate
	cfg      Config
	logger   *slog.Logger
}

// New creates a Machine.
func New(model llm.LLMClient, registry ToolRegistry, store checkpoint.Checkpointer, cfg Config) *Machine {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.Model.Model == "" {
		cfg.Model = models.DefaultModelConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		model:    model,
		registry: registry,
		store:    store,
		gate:     NewApprovalGate(registry),
		cfg:      cfg,
		logger:   logger,
	}
}

// Stream appends a human turn to the thread and runs the graph until it
// ends or suspends, yielding every produced turn in order, starting with
// the human turn. Errors are yielded once with a zero Turn, and end the
// sequence.
func (m *Machine) Stream(ctx context.Context, threadID, humanText string) iter.Seq2[models.Turn, error] {
	return func(yield func(models.Turn, error) bool) {
		snap, err := m.load(ctx, threadID)
		if err != nil {
			yield(models.Turn{}, err)
			return
		}
		if snap.Paused() {
			yield(models.Turn{}, ErrConfirmationPending)
			return
		}

		human := models.NewHumanTurn(humanText)
		snap.Conversation = append(snap.Conversation, human)
		snap.Step = 0
		snap.Pending = nil
		snap.Next = []models.Node{models.NodeAgent}
		if err := m.store.Save(ctx, &snap); err != nil {
			yield(models.Turn{}, fmt.Errorf("save thread %s: %w", threadID, err))
			return
		}
		m.logger.Debug("Human turn submitted", "thread_id", threadID, "turn_id", human.ID)

		if !yield(human, nil) {
			m.abandon(ctx, &snap)
			return
		}
		m.run(ctx, &snap, yield)
	}
}

// Invoke drains Stream and returns the produced turns. On error the turns
// produced before the failure are returned with it.
func (m *Machine) Invoke(ctx context.Context, threadID, humanText string) ([]models.Turn, error) {
	return collect(m.Stream(ctx, threadID, humanText))
}

// Resume applies a decision to a suspended thread and continues the graph.
func (m *Machine) Resume(ctx context.Context, threadID string, d Decision) iter.Seq2[models.Turn, error] {
	return func(yield func(models.Turn, error) bool) {
		snap, err := m.load(ctx, threadID)
		if err != nil {
			yield(models.Turn{}, err)
			return
		}
		if !snap.Paused() {
			yield(models.Turn{}, ErrNotPaused)
			return
		}

		approved, produced := m.gate.ApplyDecision(snap.Pending, d)
		m.logger.Debug("Resuming thread", "thread_id", threadID, "decision", d.String(),
			"pending", len(snap.Pending))
		if len(approved) > 0 {
			results, err := m.executeTools(ctx, &snap, approved)
			produced = append(produced, results...)
			if err != nil {
				// Keep what already ran so the model sees it; do not ask again.
				snap.Conversation = append(snap.Conversation, produced...)
				snap.Next = nil
				m.abandon(ctx, &snap)
				for _, t := range produced {
					if !yield(t, nil) {
						return
					}
				}
				yield(models.Turn{}, err)
				return
			}
		}
		snap.Conversation = append(snap.Conversation, produced...)
		snap.Pending = nil
		snap.Next = []models.Node{models.NodeAgent}
		if err := m.store.Save(ctx, &snap); err != nil {
			yield(models.Turn{}, fmt.Errorf("save thread %s: %w", threadID, err))
			return
		}

		for _, t := range produced {
			if !yield(t, nil) {
				m.abandon(ctx, &snap)
				return
			}
		}
		m.run(ctx, &snap, yield)
	}
}

// ResumeAll drains Resume.
func (m *Machine) ResumeAll(ctx context.Context, threadID string, d Decision) ([]models.Turn, error) {
	return collect(m.Resume(ctx, threadID, d))
}

// CurrentSnapshot returns the last persisted state of the thread. A thread
// that was never saved yields an empty, quiescent snapshot.
func (m *Machine) CurrentSnapshot(ctx context.Context, threadID string) (models.Snapshot, error) {
	return m.load(ctx, threadID)
}

func (m *Machine) load(ctx context.Context, threadID string) (models.Snapshot, error) {
	if threadID == "" {
		return models.Snapshot{}, ErrEmptyThreadID
	}
	snap, err := m.store.Load(ctx, threadID)
	if errors.Is(err, checkpoint.ErrThreadNotFound) {
		return models.Snapshot{ThreadID: threadID}, nil
	}
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("load thread %s: %w", threadID, err)
	}
	return snap, nil
}

// run executes nodes until the thread ends or suspends. Every node's
// output is saved before it is yielded.
func (m *Machine) run(ctx context.Context, snap *models.Snapshot, yield func(models.Turn, error) bool) {
	for {
		node := snap.NextNode()
		var (
			produced []models.Turn
			err      error
		)
		switch node {
		case models.NodeEnd:
			return
		case models.NodeSensitiveTools:
			m.logger.Info("Waiting for tool confirmation",
				"thread_id", snap.ThreadID,
				"tools", toolNames(snap.Pending),
				"sensitive", toolNames(m.gate.Classify(snap.Pending)))
			return
		case models.NodeAgent:
			produced, err = m.agentNode(ctx, snap)
		case models.NodeSafeTools:
			produced, err = m.executeTools(ctx, snap, snap.Pending)
			snap.Conversation = append(snap.Conversation, produced...)
			if err == nil {
				snap.Pending = nil
				snap.Next = []models.Node{models.NodeAgent}
			}
		default:
			err = fmt.Errorf("unknown node %q", node)
		}
		if err != nil {
			m.abandon(ctx, snap)
			for _, t := range produced {
				if !yield(t, nil) {
					return
				}
			}
			yield(models.Turn{}, err)
			return
		}

		if err := m.store.Save(ctx, snap); err != nil {
			yield(models.Turn{}, fmt.Errorf("save thread %s: %w", snap.ThreadID, err))
			return
		}
		m.logger.Debug("Node finished", "thread_id", snap.ThreadID, "node", node,
			"step", snap.Step, "next", snap.NextNode())

		for _, t := range produced {
			if !yield(t, nil) {
				m.abandon(ctx, snap)
				return
			}
		}
	}
}

// agentNode calls the model and routes its answer.
func (m *Machine) agentNode(ctx context.Context, snap *models.Snapshot) ([]models.Turn, error) {
	snap.Step++
	resp, err := m.model.Call(ctx, llm.LLMRequest{
		ModelConfig:           m.cfg.Model,
		BaseInstructions:      m.cfg.BaseInstructions,
		UserInstructions:      m.cfg.UserInstructions,
		DeveloperInstructions: m.cfg.DeveloperInstructions,
		History:               snap.Conversation,
		ToolSpecs:             m.registry.Specs(),
	})
	if err != nil {
		m.logger.Warn("Model call failed", "thread_id", snap.ThreadID, "step", snap.Step, "error", err)
		return nil, err
	}

	calls := cloneCalls(resp.ToolCalls)
	ensureCallIDs(calls)
	turn := models.NewAssistantTurn(resp.Text, calls)
	if turn.HasToolCalls() && snap.Step >= m.cfg.MaxSteps {
		m.logger.Info("Step limit reached", "thread_id", snap.ThreadID, "step", snap.Step,
			"tools", toolNames(calls))
		turn.Text = StepLimitMessage
		turn.ToolCalls = nil
	}
	snap.Conversation = append(snap.Conversation, turn)

	next := Transition(turn, m.registry)
	if next == models.NodeEnd {
		snap.Pending = nil
		snap.Next = nil
	} else {
		snap.Pending = cloneCalls(turn.ToolCalls)
		snap.Next = []models.Node{next}
	}
	m.logger.Debug("Model answered", "thread_id", snap.ThreadID, "step", snap.Step,
		"tool_calls", len(turn.ToolCalls), "next", next,
		"prompt_tokens", resp.TokenUsage.PromptTokens, "completion_tokens", resp.TokenUsage.CompletionTokens)
	return []models.Turn{turn}, nil
}

// executeTools runs calls sequentially and returns one result turn per call.
// Tool failures become error results; only cancellation aborts, in which case
// the results of calls that already ran are returned with the error.
func (m *Machine) executeTools(ctx context.Context, snap *models.Snapshot, calls []models.ToolCall) ([]models.Turn, error) {
	results := make([]models.Turn, 0, len(calls))
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		text, isError := m.executeCall(ctx, snap, call)
		results = append(results, models.NewToolResultTurn(call, text, isError))
		if err := ctx.Err(); err != nil {
			return results, err
		}
	}
	return results, nil
}

func (m *Machine) executeCall(ctx context.Context, snap *models.Snapshot, call models.ToolCall) (string, bool) {
	logger := m.logger.With("thread_id", snap.ThreadID, "tool", call.Name, "call_id", call.ID)
	logger.Debug("Executing tool", "arguments", argumentsPreview(call.Arguments))

	out, err := m.registry.Execute(ctx, &tools.ToolInvocation{
		CallID:    call.ID,
		ToolName:  call.Name,
		Arguments: call.Arguments,
		Cwd:       m.cfg.Cwd,
	})
	switch {
	case errors.Is(err, tools.ErrUnknownTool):
		logger.Warn("Model requested an unknown tool")
		return fmt.Sprintf("Error: %s is not a valid tool, try one of [%s].",
			call.Name, strings.Join(m.registry.Names(), ", ")), true
	case err != nil:
		logger.Info("Tool failed", "error", err)
		return fmt.Sprintf("Error: %v\n Please fix your mistakes.", err), true
	case out == nil:
		return "", false
	case out.Failed():
		logger.Info("Tool reported failure", "output", truncate(out.Content, 200))
		return out.Content, true
	default:
		return out.Content, false
	}
}

// abandon makes an interrupted thread quiescent again, keeping what was
// already produced. A suspended thread is left as is.
func (m *Machine) abandon(ctx context.Context, snap *models.Snapshot) {
	if snap.Paused() {
		return
	}
	snap.Next = nil
	snap.Pending = nil
	if err := m.store.Save(context.WithoutCancel(ctx), snap); err != nil {
		m.logger.Warn("Failed to save abandoned thread", "thread_id", snap.ThreadID, "error", err)
	}
}

func collect(seq iter.Seq2[models.Turn, error]) ([]models.Turn, error) {
	var turns []models.Turn
	for t, err := range seq {
		if err != nil {
			return turns, err
		}
		turns = append(turns, t)
	}
	return turns, nil
}
