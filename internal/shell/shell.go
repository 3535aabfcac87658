// Package shell finds the user's shell and builds argv for running a
// command string through it.
package shell

import (
	"os"
	"os/exec"
	"path/filepath"
)

// Shell is a detected POSIX-style shell.
type Shell struct {
	Name string
	Path string
}

// known lists the shells whose -c / -lc flags are understood.
var known = map[string]bool{"bash": true, "zsh": true, "sh": true}

// lookPath is swapped out by tests.
var lookPath = exec.LookPath

// IsSupported reports whether the shell at path (or bare name) is one we
// know how to drive.
func IsSupported(path string) bool {
	return known[filepath.Base(path)]
}

// Detect returns the shell named by $SHELL when supported, otherwise the
// first of bash or sh found on PATH, otherwise /bin/sh.
func Detect() Shell {
	if env := os.Getenv("SHELL"); env != "" && IsSupported(env) {
		return Shell{Name: filepath.Base(env), Path: env}
	}
	for _, name := range []string{"bash", "sh"} {
		if p, err := lookPath(name); err == nil {
			return Shell{Name: name, Path: p}
		}
	}
	return Shell{Name: "sh", Path: "/bin/sh"}
}

// Argv builds the argument vector that runs command through the shell.
// A login shell sources the user's profile first, so PATH additions such as
// Homebrew's are visible.
func (s Shell) Argv(command string, login bool) []string {
	flag := "-c"
	if login && s.Name != "sh" {
		flag = "-lc"
	}
	return []string{s.Path, flag, command}
}
