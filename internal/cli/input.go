package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

// ErrInterrupted is returned by a Prompter when the user presses Ctrl+C.
var ErrInterrupted = errors.New("interrupted")

// Prompter reads one line of user input after showing label. It returns
// ErrInterrupted on Ctrl+C and io.EOF when input ends.
type Prompter interface {
	Prompt(label string) (string, error)
	Close() error
}

// NewPrompter returns a readline prompter when stdin is a terminal and a
// plain line reader otherwise. The line reader gives up waiting with
// ErrInterrupted once ctx is done; readline sees Ctrl+C itself.
func NewPrompter(ctx context.Context) (Prompter, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return NewLinePrompter(os.Stdin, os.Stdout).CancelOn(ctx), nil
	}
	return NewReadlinePrompter()
}

// ReadlinePrompter reads input with line editing and history.
type ReadlinePrompter struct {
	rl *readline.Instance
}

// NewReadlinePrompter creates a readline-backed prompter.
func NewReadlinePrompter() (*ReadlinePrompter, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ChatPrompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init readline: %w", err)
	}
	return &ReadlinePrompter{rl: rl}, nil
}

func (p *ReadlinePrompter) Prompt(label string) (string, error) {
	p.rl.SetPrompt(label)
	line, err := p.rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) {
			return "", ErrInterrupted
		}
		return "", err
	}
	return line, nil
}

func (p *ReadlinePrompter) Close() error {
	return p.rl.Close()
}

// LinePrompter reads newline-terminated input from any reader, for piped
// stdin.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer

	done <-chan struct{}
	// pending carries a read still in flight from an interrupted prompt.
	pending chan lineRead
}

type lineRead struct {
	line string
	err  error
}

// NewLinePrompter creates a prompter reading from in and echoing labels to out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

// CancelOn makes Prompt return ErrInterrupted when ctx is done, even while
// the underlying reader blocks.
func (p *LinePrompter) CancelOn(ctx context.Context) *LinePrompter {
	p.done = ctx.Done()
	return p
}

func (p *LinePrompter) Prompt(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if p.done == nil {
		line, err := p.in.ReadString('\n')
		return finishLine(line, err)
	}
	if p.pending == nil {
		ch := make(chan lineRead, 1)
		go func() {
			line, err := p.in.ReadString('\n')
			ch <- lineRead{line: line, err: err}
		}()
		p.pending = ch
	}
	select {
	case r := <-p.pending:
		p.pending = nil
		return finishLine(r.line, r.err)
	case <-p.done:
		return "", ErrInterrupted
	}
}

func finishLine(line string, err error) (string, error) {
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *LinePrompter) Close() error { return nil }
