// Package exectest provides a scripted exec.Runner for tests.
package exectest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rumor-ml/commons.systems/fbprovision/internal/exec"
)

// Response is the canned outcome of a matched command.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

type handler struct {
	prefix string
	fn     func(exec.Command) Response
}

// Fake records every command it receives and answers with the response of
// the longest registered prefix matching the command line. Unmatched
// commands fail with an error.
type Fake struct {
	mu       sync.Mutex
	handlers []handler
	calls    []exec.Command
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{}
}

// On registers a fixed response for command lines starting with prefix.
func (f *Fake) On(prefix string, resp Response) *Fake {
	return f.OnFunc(prefix, func(exec.Command) Response { return resp })
}

// OnFunc registers a computed response for command lines starting with prefix.
func (f *Fake) OnFunc(prefix string, fn func(exec.Command) Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, handler{prefix: prefix, fn: fn})
	return f
}

// Run implements exec.Runner.
func (f *Fake) Run(ctx context.Context, cmd exec.Command) (*exec.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	line := cmd.String()
	var match *handler
	for i := range f.handlers {
		h := &f.handlers[i]
		if strings.HasPrefix(line, h.prefix) && (match == nil || len(h.prefix) >= len(match.prefix)) {
			match = h
		}
	}
	f.mu.Unlock()

	if match == nil {
		return nil, fmt.Errorf("exectest: unexpected command %q", line)
	}
	resp := match.fn(cmd)
	if resp.Err != nil {
		return nil, resp.Err
	}
	return &exec.Result{Stdout: resp.Stdout, Stderr: resp.Stderr, ExitCode: resp.ExitCode}, nil
}

// Calls returns the command lines run so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, len(f.calls))
	for i, c := range f.calls {
		lines[i] = c.String()
	}
	return lines
}

// Count returns how many recorded command lines start with prefix.
func (f *Fake) Count(prefix string) int {
	n := 0
	for _, line := range f.Calls() {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

// Commands returns the recorded commands starting with prefix.
func (f *Fake) Commands(prefix string) []exec.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []exec.Command
	for _, c := range f.calls {
		if strings.HasPrefix(c.String(), prefix) {
			out = append(out, c)
		}
	}
	return out
}
