package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfateev/yada-go/internal/checkpoint"
	"github.com/mfateev/yada-go/internal/llm/llmtest"
	"github.com/mfateev/yada-go/internal/models"
	"github.com/mfateev/yada-go/internal/tools"
	"github.com/mfateev/yada-go/internal/workflow"
)

const testThread = "thread-cli"

// scriptedPrompter answers prompts from a fixed list, then returns end.
type scriptedPrompter struct {
	lines   []string
	prompts []string
	end     error
}

func newScriptedPrompter(lines ...string) *scriptedPrompter {
	return &scriptedPrompter{lines: lines, end: io.EOF}
}

func (p *scriptedPrompter) Prompt(label string) (string, error) {
	p.prompts = append(p.prompts, label)
	if len(p.lines) == 0 {
		return "", p.end
	}
	line := p.lines[0]
	p.lines = p.lines[1:]
	return line, nil
}

func (p *scriptedPrompter) Close() error { return nil }

func testRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(tools.NewFuncTool(tools.ToolSpec{
		Name:       "list_directory",
		Parameters: []tools.ToolParameter{{Name: "directory", Type: "string", Default: "."}},
	}, func(context.Context, *tools.ToolInvocation) (*tools.ToolOutput, error) {
		return tools.Succeeded(`["a.txt","b.txt"]`), nil
	}), tools.Safe))
	require.NoError(t, reg.Register(tools.NewFuncTool(tools.ToolSpec{
		Name:       "delete_directory",
		Parameters: []tools.ToolParameter{{Name: "directory", Type: "string", Required: true}},
	}, func(_ context.Context, inv *tools.ToolInvocation) (*tools.ToolOutput, error) {
		return tools.Succeeded("Deleted directory and its contents: " + inv.Arguments["directory"].(string)), nil
	}), tools.Sensitive))
	return reg
}

type fixture struct {
	app      *App
	out      *bytes.Buffer
	model    *llmtest.ScriptedClient
	machine  *workflow.Machine
	prompter *scriptedPrompter
}

func newFixture(t *testing.T, store checkpoint.Checkpointer, prompter *scriptedPrompter, steps ...llmtest.Step) *fixture {
	t.Helper()
	reg := testRegistry(t)
	f := &fixture{
		out:      &bytes.Buffer{},
		model:    llmtest.NewScriptedClient(steps...),
		prompter: prompter,
	}
	f.machine = workflow.New(f.model, reg, store, workflow.Config{})
	f.app = NewApp(f.machine, reg, NewRenderer(f.out, true, true), prompter, Config{ThreadID: testThread})
	return f
}

func deleteFoo(id string) models.ToolCall {
	return llmtest.Call(id, "delete_directory", map[string]any{"directory": "foo"})
}

// lastToolResult returns the text of the newest tool result in the thread.
func lastToolResult(t *testing.T, m *workflow.Machine) models.Turn {
	t.Helper()
	snap, err := m.CurrentSnapshot(context.Background(), testThread)
	require.NoError(t, err)
	for i := len(snap.Conversation) - 1; i >= 0; i-- {
		if snap.Conversation[i].Kind == models.TurnToolResult {
			return snap.Conversation[i]
		}
	}
	t.Fatal("no tool result in thread")
	return models.Turn{}
}

func TestRunCommand_SafeToolNoPrompt(t *testing.T) {
	p := newScriptedPrompter()
	f := newFixture(t, checkpoint.NewMemory(), p,
		llmtest.CallTools(llmtest.Call("c1", "list_directory", map[string]any{"directory": "."})),
		llmtest.Reply("The directory contains a.txt and b.txt."),
	)

	require.NoError(t, f.app.RunCommand(context.Background(), "what's in this dir?"))

	out := f.out.String()
	assert.Empty(t, p.prompts, "safe tools must not prompt")
	assert.Contains(t, out, WorkingIndicator)
	assert.Equal(t, 1, strings.Count(out, "The directory contains a.txt and b.txt."))
	assert.NotContains(t, out, ConfirmationHeader)
}

func TestRunCommand_DenyWithN(t *testing.T) {
	p := newScriptedPrompter("n")
	f := newFixture(t, checkpoint.NewMemory(), p,
		llmtest.CallTools(deleteFoo("c1")),
		llmtest.Reply("Okay, I will not delete foo."),
	)

	require.NoError(t, f.app.RunCommand(context.Background(), "delete foo"))

	out := f.out.String()
	assert.Equal(t, 1, strings.Count(out, ConfirmationHeader))
	assert.Contains(t, out, "- **Tool:** delete_directory")
	assert.Contains(t, out, "\t\t- directory=foo")
	assert.Equal(t, 1, strings.Count(out, "Okay, I will not delete foo."))
	assert.Equal(t, []string{ConfirmPrompt}, p.prompts)

	result := lastToolResult(t, f.machine)
	assert.Equal(t, "c1", result.ToolCallID)
	assert.Equal(t, "Tool call denied by user. Reasoning: 'No, I don't want to execute those tools.'. Continue assisting, accounting for the user's input.", result.Text)
}

func TestRunCommand_FreeTextReason(t *testing.T) {
	p := newScriptedPrompter("Use the 'bar' dir instead")
	f := newFixture(t, checkpoint.NewMemory(), p,
		llmtest.CallTools(deleteFoo("c1")),
		llmtest.Reply("Understood, bar it is."),
	)

	require.NoError(t, f.app.RunCommand(context.Background(), "delete foo"))

	result := lastToolResult(t, f.machine)
	assert.Contains(t, result.Text, "Reasoning: 'Use the 'bar' dir instead'.")
	assert.Contains(t, f.out.String(), "Understood, bar it is.")
}

func TestRunCommand_ApproveRunsTools(t *testing.T) {
	p := newScriptedPrompter("", "  ", "Y")
	f := newFixture(t, checkpoint.NewMemory(), p,
		llmtest.CallTools(deleteFoo("c1")),
		llmtest.Reply("Deleted foo."),
	)

	require.NoError(t, f.app.RunCommand(context.Background(), "delete foo"))

	assert.Equal(t, []string{ConfirmPrompt, ConfirmPrompt, ConfirmPrompt}, p.prompts, "blank answers re-prompt")
	result := lastToolResult(t, f.machine)
	assert.Equal(t, "Deleted directory and its contents: foo", result.Text)
	assert.Contains(t, f.out.String(), "Deleted foo.")
}

func TestRunCommand_RepeatedSuspension(t *testing.T) {
	p := newScriptedPrompter("not foo", "y")
	f := newFixture(t, checkpoint.NewMemory(), p,
		llmtest.CallTools(deleteFoo("c1")),
		llmtest.CallTools(llmtest.Call("c2", "delete_directory", map[string]any{"directory": "bar"})),
		llmtest.Reply("Deleted bar."),
	)

	require.NoError(t, f.app.RunCommand(context.Background(), "delete a dir"))

	out := f.out.String()
	assert.Equal(t, 2, strings.Count(out, ConfirmationHeader))
	assert.Contains(t, out, "directory=bar")
	assert.Equal(t, 1, strings.Count(out, "Deleted bar."))

	snap, err := f.machine.CurrentSnapshot(context.Background(), testThread)
	require.NoError(t, err)
	assert.True(t, snap.Quiescent())
}

func TestRunCommand_ModelErrorIsReported(t *testing.T) {
	p := newScriptedPrompter()
	f := newFixture(t, checkpoint.NewMemory(), p, llmtest.Fail(errors.New("connection refused")))

	err := f.app.RunCommand(context.Background(), "hello")

	var reported *ReportedError
	require.ErrorAs(t, err, &reported)
	assert.Contains(t, f.out.String(), "Error: ")
	assert.Contains(t, f.out.String(), "connection refused")
}

func TestRunCommand_InterruptDuringConfirmationKeepsPause(t *testing.T) {
	p := newScriptedPrompter()
	p.end = ErrInterrupted
	f := newFixture(t, checkpoint.NewMemory(), p, llmtest.CallTools(deleteFoo("c1")))

	require.NoError(t, f.app.RunCommand(context.Background(), "delete foo"))
	assert.Contains(t, f.out.String(), Farewell)

	snap, err := f.machine.CurrentSnapshot(context.Background(), testThread)
	require.NoError(t, err)
	assert.True(t, snap.Paused())
}

func TestRunChat_GreetsAndExits(t *testing.T) {
	p := newScriptedPrompter("", "quit")
	f := newFixture(t, checkpoint.NewMemory(), p)

	require.NoError(t, f.app.RunChat(context.Background()))

	out := f.out.String()
	assert.Contains(t, out, "Yet Another Dev Assistant")
	assert.Contains(t, out, "What can you do?")
	assert.Contains(t, out, AnswerPrefix+Greeting)
	assert.Contains(t, out, AnswerPrefix+Farewell)
	assert.Equal(t, []string{ChatPrompt, ChatPrompt}, p.prompts)
	assert.Empty(t, f.model.Requests(), "exit must not reach the model")
}

func TestRunChat_ConversationAcrossTurns(t *testing.T) {
	p := newScriptedPrompter("delete foo", "n", "thanks", "exit")
	f := newFixture(t, checkpoint.NewMemory(), p,
		llmtest.CallTools(deleteFoo("c1")),
		llmtest.Reply("Okay, foo stays."),
		llmtest.Reply("You're welcome!"),
	)

	require.NoError(t, f.app.RunChat(context.Background()))

	out := f.out.String()
	assert.Equal(t, 1, strings.Count(out, ConfirmationHeader))
	assert.Equal(t, 1, strings.Count(out, "Okay, foo stays."))
	assert.Equal(t, 1, strings.Count(out, "You're welcome!"))
	assert.Equal(t, []string{ChatPrompt, ConfirmPrompt, ChatPrompt, ChatPrompt}, p.prompts)
	assert.GreaterOrEqual(t, strings.Count(out, ThinkingIndicator), 3)
}

func TestRunChat_ModelErrorContinues(t *testing.T) {
	p := newScriptedPrompter("hello", "hello again", "q")
	f := newFixture(t, checkpoint.NewMemory(), p,
		llmtest.Fail(errors.New("upstream unavailable")),
		llmtest.Reply("Hi there."),
	)

	require.NoError(t, f.app.RunChat(context.Background()))

	out := f.out.String()
	assert.Contains(t, out, "upstream unavailable")
	assert.Contains(t, out, "Hi there.")
}

func TestRunChat_EOFSaysGoodbye(t *testing.T) {
	p := newScriptedPrompter()
	f := newFixture(t, checkpoint.NewMemory(), p)

	require.NoError(t, f.app.RunChat(context.Background()))
	assert.Contains(t, f.out.String(), Farewell)
}

func TestRunChat_ResumesPausedThread(t *testing.T) {
	store := checkpoint.NewMemory()

	// First session suspends and is interrupted at the confirmation prompt.
	first := newScriptedPrompter()
	first.end = ErrInterrupted
	f1 := newFixture(t, store, first, llmtest.CallTools(deleteFoo("c1")))
	require.NoError(t, f1.app.RunCommand(context.Background(), "delete foo"))

	// A new session on the same thread re-shows the prompt before greeting.
	second := newScriptedPrompter("y", "q")
	f2 := newFixture(t, store, second, llmtest.Reply("Deleted foo."))
	require.NoError(t, f2.app.RunChat(context.Background()))

	out := f2.out.String()
	assert.Equal(t, 1, strings.Count(out, ConfirmationHeader))
	assert.Less(t, strings.Index(out, ConfirmationHeader), strings.Index(out, Greeting))
	assert.Equal(t, 1, strings.Count(out, "Deleted foo."))
	assert.Equal(t, []string{ConfirmPrompt, ChatPrompt}, second.prompts)
	assert.Equal(t, "Deleted directory and its contents: foo", lastToolResult(t, f2.machine).Text)
}

func TestObserve_RendersEachTurnOnce(t *testing.T) {
	reg := testRegistry(t)
	var out bytes.Buffer
	app := NewApp(nil, reg, NewRenderer(&out, true, true), newScriptedPrompter(), Config{ThreadID: testThread})

	answer := models.NewAssistantTurn("Here you go.", nil)
	prompt := models.NewAssistantTurn("", []models.ToolCall{deleteFoo("c1")})
	human := models.NewHumanTurn("hi")

	for range 3 {
		app.observe(human)
		app.observe(answer)
		app.observe(prompt)
	}

	assert.Equal(t, 1, strings.Count(out.String(), "Here you go."))
	assert.Equal(t, 1, strings.Count(out.String(), ConfirmationHeader))
	assert.NotContains(t, out.String(), "hi\n")
	assert.Len(t, app.printed, 3, "every observed id is recorded")
}

func TestObserve_EmptyAnswerStillRendered(t *testing.T) {
	var out bytes.Buffer
	app := NewApp(nil, testRegistry(t), NewRenderer(&out, true, true), newScriptedPrompter(), Config{})

	app.observe(models.NewAssistantTurn("", nil))
	assert.Equal(t, AnswerPrefix+"\n", out.String())
}

func TestPromptAPIKey(t *testing.T) {
	key, ok, err := PromptAPIKey(newScriptedPrompter("", "  sk-abc  "))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sk-abc", key)

	_, ok, err = PromptAPIKey(newScriptedPrompter("q"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = PromptAPIKey(newScriptedPrompter())
	require.NoError(t, err)
	assert.False(t, ok, "EOF quits")
}

func TestLinePrompter(t *testing.T) {
	var out bytes.Buffer
	p := NewLinePrompter(strings.NewReader("first\r\nsecond"), &out)

	line, err := p.Prompt(ChatPrompt)
	require.NoError(t, err)
	assert.Equal(t, "first", line)

	line, err = p.Prompt(ConfirmPrompt)
	require.NoError(t, err)
	assert.Equal(t, "second", line)

	_, err = p.Prompt(ChatPrompt)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, ChatPrompt+ConfirmPrompt+ChatPrompt, out.String())
}

func TestLinePrompter_CancelInterruptsBlockedRead(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	ctx, cancel := context.WithCancel(context.Background())
	p := NewLinePrompter(r, io.Discard).CancelOn(ctx)

	errs := make(chan error, 1)
	go func() {
		_, err := p.Prompt(ConfirmPrompt)
		errs <- err
	}()
	cancel()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrInterrupted)
	case <-time.After(5 * time.Second):
		t.Fatal("Prompt did not return after cancellation")
	}
}

func TestLinePrompter_CancelableStillReadsLines(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := NewLinePrompter(strings.NewReader("y\n"), io.Discard).CancelOn(ctx)

	line, err := p.Prompt(ConfirmPrompt)
	require.NoError(t, err)
	assert.Equal(t, "y", line)

	_, err = p.Prompt(ChatPrompt)
	assert.ErrorIs(t, err, io.EOF)
}

func TestRunChat_InterruptAtPipedPromptSaysGoodbye(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	ctx, cancel := context.WithCancel(context.Background())
	reg := testRegistry(t)
	machine := workflow.New(llmtest.NewScriptedClient(), reg, checkpoint.NewMemory(), workflow.Config{})
	var out bytes.Buffer
	app := NewApp(machine, reg, NewRenderer(&out, true, true),
		NewLinePrompter(r, io.Discard).CancelOn(ctx), Config{ThreadID: testThread})

	done := make(chan error, 1)
	go func() { done <- app.RunChat(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RunChat kept waiting for input after cancellation")
	}
	assert.Contains(t, out.String(), Farewell)
}
