// Package starlarktools loads user-defined tools from Starlark scripts.
//
// Every *_tools.star file in the custom tools directory is executed once at
// startup. Scripts register functions as tools:
//
//	def greet(name, punctuation="!"):
//	    """Greets someone."""
//	    return "Hello " + name + punctuation
//
//	safe_tool(greet)
//
// Parameters without defaults are required. The type of a parameter is taken
// from its default value and is string otherwise. Scripts can call
// run(*argv) to execute a command and getenv(name) to read the environment;
// the json module is predeclared.
package starlarktools

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"go.starlark.net/lib/json"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/mfateev/yada-go/internal/execsession"
	"github.com/mfateev/yada-go/internal/tools"
)

// FilePattern selects tool scripts inside the custom tools directory.
const FilePattern = "*_tools.star"

const ctxKey = "yada.ctx"

// Options configures script loading.
type Options struct {
	// Runner executes run(...) calls. Defaults to a ProcessRunner.
	Runner execsession.Runner
	// Lookup reads environment variables for getenv. Defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
	Logger *slog.Logger
}

// Loaded is one tool defined by a script.
type Loaded struct {
	Handler tools.ToolHandler
	Safety  tools.SafetyTag
	File    string
}

// LoadDir executes every tool script in dir and registers the tools it
// defines. An empty dir is not an error.
func LoadDir(dir string, reg *tools.Registry, opts Options) ([]Loaded, error) {
	if dir == "" {
		return nil, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("custom tools dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("custom tools dir %s: not a directory", dir)
	}
	files, err := filepath.Glob(filepath.Join(dir, FilePattern))
	if err != nil {
		return nil, fmt.Errorf("custom tools dir %s: %w", dir, err)
	}
	sort.Strings(files)

	var all []Loaded
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		loaded, err := LoadScript(file, src, opts)
		if err != nil {
			return nil, err
		}
		for _, l := range loaded {
			if err := reg.Register(l.Handler, l.Safety); err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
		}
		all = append(all, loaded...)
	}
	return all, nil
}

// LoadScript executes one script and returns the tools it registers.
func LoadScript(filename string, src []byte, opts Options) ([]Loaded, error) {
	if opts.Runner == nil {
		opts.Runner = execsession.NewProcessRunner()
	}
	if opts.Lookup == nil {
		opts.Lookup = os.LookupEnv
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &script{file: filename, opts: opts}

	thread := s.newThread(context.Background())
	predeclared := starlark.StringDict{
		"safe_tool":      starlark.NewBuiltin("safe_tool", s.register(tools.Safe)),
		"sensitive_tool": starlark.NewBuiltin("sensitive_tool", s.register(tools.Sensitive)),
		"run":            starlark.NewBuiltin("run", s.run),
		"getenv":         starlark.NewBuiltin("getenv", s.getenv),
		"json":           json.Module,
	}
	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, filename, src, predeclared)
	if err != nil {
		if evalErr, ok := err.(*starlark.EvalError); ok {
			return nil, fmt.Errorf("load custom tools %s: %s", filename, evalErr.Backtrace())
		}
		return nil, fmt.Errorf("load custom tools %s: %w", filename, err)
	}
	globals.Freeze()
	opts.Logger.Debug("Loaded custom tools", "file", filename, "count", len(s.loaded))
	return s.loaded, nil
}

// script holds the state of one loaded file.
type script struct {
	file   string
	opts   Options
	loaded []Loaded
}

func (s *script) newThread(ctx context.Context) *starlark.Thread {
	thread := &starlark.Thread{
		Name: s.file,
		Print: func(_ *starlark.Thread, msg string) {
			s.opts.Logger.Info(msg, "file", s.file)
		},
	}
	thread.SetLocal(ctxKey, ctx)
	return thread
}

func (s *script) register(safety tools.SafetyTag) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var v starlark.Value
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &v); err != nil {
			return nil, err
		}
		fn, ok := v.(*starlark.Function)
		if !ok {
			return nil, fmt.Errorf("%s: want a function, got %s", b.Name(), v.Type())
		}
		spec, err := specFromFunction(fn)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		for _, l := range s.loaded {
			if l.Handler.Spec().Name == spec.Name {
				return nil, fmt.Errorf("%s: tool %q registered twice", b.Name(), spec.Name)
			}
		}
		s.loaded = append(s.loaded, Loaded{
			Handler: &scriptTool{script: s, fn: fn, spec: spec},
			Safety:  safety,
			File:    s.file,
		})
		return fn, nil
	}
}

func (s *script) run(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: missing command", b.Name())
	}
	argv := make([]string, len(args))
	for i, a := range args {
		str, ok := starlark.AsString(a)
		if !ok {
			return nil, fmt.Errorf("%s: argument %d is %s, want string", b.Name(), i+1, a.Type())
		}
		argv[i] = str
	}
	ctx, _ := thread.Local(ctxKey).(context.Context)
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := s.opts.Runner.Run(ctx, execsession.Command{Argv: argv})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	if !res.Success() {
		return nil, fmt.Errorf("%s: %s exited with status %d: %s", b.Name(), argv[0], res.ExitCode, res.Output)
	}
	return starlark.String(res.Output), nil
}

func (s *script) getenv(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	def := starlark.Value(starlark.None)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "default?", &def); err != nil {
		return nil, err
	}
	if v, ok := s.opts.Lookup(name); ok {
		return starlark.String(v), nil
	}
	return def, nil
}

// Discard is an Options.Logger sink for callers that do not want script output.
var Discard = slog.New(slog.NewTextHandler(io.Discard, nil))
