package tasks

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// ErrCommandFailed is returned when an external command exits unsuccessfully.
var ErrCommandFailed = errors.New("command failed")

// CommandError describes a failed command. errors.Is matches ErrCommandFailed.
type CommandError struct {
	Command  string
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s (exit code: %d): %v", ErrCommandFailed, e.Command, e.ExitCode, e.Err)
}

// Is reports whether target is ErrCommandFailed
func (e *CommandError) Is(target error) bool {
	return target == ErrCommandFailed
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// RunCommand runs argv in the base directory of the task context.
// Every non-empty output line is reported as an info message.
func RunCommand(tc Context, argv []string, env map[string]string) error {
	if len(argv) == 0 {
		return fmt.Errorf("%w: empty command", ErrCommandFailed)
	}

	cmd := exec.CommandContext(tc.Context(), argv[0], argv[1:]...)
	cmd.Dir = tc.BaseDir()

	if len(env) > 0 {
		keys := make([]string, 0, len(env))
		for k := range env {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		cmd.Env = os.Environ()
		for _, k := range keys {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, env[k]))
		}
	}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()

	scanner := bufio.NewScanner(&output)
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); line != "" {
			tc.Info(line)
		}
	}

	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return &CommandError{Command: strings.Join(argv, " "), ExitCode: exitCode, Err: err}
	}
	return nil
}
