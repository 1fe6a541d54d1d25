// Package prompt reads operator input from a terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNotInteractive is returned when input is required but stdin is not a
// terminal.
var ErrNotInteractive = errors.New("input required but stdin is not a terminal")

// Prompter asks questions on out and reads answers line by line from in.
type Prompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

// New returns a Prompter. When interactive is false every Ask fails with
// ErrNotInteractive.
func New(in io.Reader, out io.Writer, interactive bool) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, interactive: interactive}
}

// Stdio returns a Prompter bound to the process stdin and stdout.
func Stdio() *Prompter {
	return New(os.Stdin, os.Stdout, IsTerminal(os.Stdin))
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Ask prints label and returns the trimmed answer. Empty answers are asked
// again.
func (p *Prompter) Ask(label string) (string, error) {
	if !p.interactive {
		return "", fmt.Errorf("%s: %w", label, ErrNotInteractive)
	}
	for {
		fmt.Fprintf(p.out, "%s: ", label)
		line, err := p.in.ReadString('\n')
		answer := strings.TrimSpace(line)
		if answer != "" {
			return answer, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", fmt.Errorf("%s: no input", label)
			}
			return "", fmt.Errorf("%s: %w", label, err)
		}
	}
}
