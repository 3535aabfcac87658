package execsession

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/creack/pty"
)

// ErrEmptyCommand is returned when Command.Argv is empty.
var ErrEmptyCommand = errors.New("command cannot be empty")

// Command describes one process to run.
type Command struct {
	Argv []string
	Dir  string
	// Env entries are appended to the inherited environment.
	Env []string
	// TTY runs the process on a pseudo-terminal instead of pipes.
	TTY bool
	// Stdin, when set, is forwarded to the process.
	Stdin io.Reader
	// Echo, when set, receives a live copy of the output.
	Echo io.Writer
	// MaxOutputBytes overrides the runner's output budget.
	MaxOutputBytes int
}

// Result is the outcome of a finished process. A non-zero exit is reported
// through ExitCode, not as an error.
type Result struct {
	Output       string
	ExitCode     int
	OmittedBytes int
	Duration     time.Duration
}

// Success reports whether the process exited with status 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner executes commands. Tools depend on this interface so tests can
// substitute canned results for docker, git and brew.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ProcessRunner runs commands as local child processes.
type ProcessRunner struct {
	MaxOutputBytes int
}

// NewProcessRunner creates a runner with the default output budget.
func NewProcessRunner() *ProcessRunner {
	return &ProcessRunner{MaxOutputBytes: DefaultMaxBytes}
}

// Run starts the command and waits for it to exit. Errors are returned only
// when the process could not be started or ctx was cancelled.
func (r *ProcessRunner) Run(ctx context.Context, c Command) (Result, error) {
	if len(c.Argv) == 0 || c.Argv[0] == "" {
		return Result{}, ErrEmptyCommand
	}
	budget := c.MaxOutputBytes
	if budget <= 0 {
		budget = r.MaxOutputBytes
	}
	if budget <= 0 {
		budget = DefaultMaxBytes
	}
	buf := NewHeadTailBuffer(budget)

	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	var out io.Writer = buf
	if c.Echo != nil {
		out = io.MultiWriter(buf, c.Echo)
	}

	start := time.Now()
	var err error
	if c.TTY {
		err = runOnPTY(cmd, c.Stdin, out)
	} else {
		cmd.Stdin = c.Stdin
		cmd.Stdout = out
		cmd.Stderr = out
		err = cmd.Run()
	}

	res := Result{
		Output:       buf.String(),
		OmittedBytes: buf.OmittedBytes(),
		Duration:     time.Since(start),
	}
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, err
}

func runOnPTY(cmd *exec.Cmd, stdin io.Reader, out io.Writer) error {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	defer ptmx.Close()

	if stdin != nil {
		go func() { _, _ = io.Copy(ptmx, stdin) }()
	}
	// Reading the master side fails with EIO once the child exits.
	_, _ = io.Copy(out, ptmx)
	return cmd.Wait()
}
