package handlers

import (
	"context"
	"strings"

	"github.com/mfateev/yada-go/internal/execsession"
)

// fakeRunner records commands and answers them from a table keyed by the
// space-joined argv prefix.
type fakeRunner struct {
	calls   []execsession.Command
	results map[string]execsession.Result
	err     error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{results: map[string]execsession.Result{}}
}

func (f *fakeRunner) on(prefix string, res execsession.Result) *fakeRunner {
	f.results[prefix] = res
	return f
}

func (f *fakeRunner) Run(_ context.Context, cmd execsession.Command) (execsession.Result, error) {
	f.calls = append(f.calls, cmd)
	if f.err != nil {
		return execsession.Result{}, f.err
	}
	line := strings.Join(cmd.Argv, " ")
	best := ""
	for prefix := range f.results {
		if strings.HasPrefix(line, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return execsession.Result{}, nil
	}
	return f.results[best], nil
}

func (f *fakeRunner) last() execsession.Command {
	if len(f.calls) == 0 {
		return execsession.Command{}
	}
	return f.calls[len(f.calls)-1]
}
