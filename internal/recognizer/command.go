package recognizer

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/google/shlex"
)

var (
	// ErrNoRunCommand is returned when a recognizer has no command to run.
	ErrNoRunCommand = errors.New("no run command found")
	// ErrNoInput is returned when a dialect needs an input media path.
	ErrNoInput = errors.New("no input media specified")
	// ErrAlreadyRunning is returned by Start on a running session.
	ErrAlreadyRunning = errors.New("recognizer already running")
)

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// SplitCommand tokenizes a run command on whitespace. Commands containing
// quotes are split shell-style so quoted arguments may contain spaces; plain
// commands keep backslashes (Windows paths) untouched.
func SplitCommand(runCommand string) ([]string, error) {
	if strings.TrimSpace(runCommand) == "" {
		return nil, ErrNoRunCommand
	}
	if !strings.ContainsAny(runCommand, `"'`) {
		return strings.Fields(runCommand), nil
	}
	args, err := shlex.Split(runCommand)
	if err != nil {
		return nil, fmt.Errorf("parse run command: %w", err)
	}
	if len(args) == 0 {
		return nil, ErrNoRunCommand
	}
	return args, nil
}

// BuildArgs splits runCommand and swaps a bare interpreter name (java,
// python, ...) for its bundled path when the bare name cannot be executed.
func BuildArgs(runCommand string, interpreters map[string]string) ([]string, error) {
	args, err := SplitCommand(runCommand)
	if err != nil {
		return nil, err
	}
	bundled, ok := interpreters[args[0]]
	if !ok || bundled == "" {
		return args, nil
	}
	if _, err := lookPath(args[0]); err == nil {
		return args, nil
	}
	if isExecutable(bundled) {
		args[0] = bundled
	}
	return args, nil
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
