package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Command describes a single external process invocation. Arguments are
// passed to the process directly, never through a shell.
type Command struct {
	Name string
	Args []string

	// Interactive attaches the process to the terminal instead of
	// capturing its output. Used for login flows.
	Interactive bool
}

// String returns the command line as it would be typed.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result holds the result of a command execution
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Output returns stdout with surrounding whitespace removed.
func (r *Result) Output() string {
	return strings.TrimSpace(r.Stdout)
}

// Failed reports whether the process exited non-zero.
func (r *Result) Failed() bool {
	return r.ExitCode != 0
}

// Message returns the most useful diagnostic text of a failed command.
func (r *Result) Message() string {
	if msg := strings.TrimSpace(r.Stderr); msg != "" {
		return msg
	}
	if msg := r.Output(); msg != "" {
		return msg
	}
	return fmt.Sprintf("exit status %d", r.ExitCode)
}

// Runner executes commands. A non-zero exit status is reported through
// Result.ExitCode; the error is reserved for processes that could not run.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// Shell runs commands as local processes.
type Shell struct {
	// Log, when set, receives every command line before it runs.
	Log func(line string)
}

// Run executes the command and returns the result
func (s *Shell) Run(ctx context.Context, c Command) (*Result, error) {
	if s.Log != nil {
		s.Log("$ " + c.String())
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)

	var stdout, stderr bytes.Buffer
	if c.Interactive {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s interrupted: %w", c.Name, ctxErr)
	}
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to execute %s: %w", c.Name, err)
		}
		exitCode = exitErr.ExitCode()
	}

	return &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}, nil
}

// CommandExists checks if a command is available in PATH
func CommandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}
