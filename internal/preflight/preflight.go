// Package preflight verifies the local environment before any remote call.
package preflight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rumor-ml/commons.systems/fbprovision/internal/exec"
)

// ErrLayout is wrapped when the consumer project tree is incomplete.
var ErrLayout = errors.New("unexpected project layout")

// Directories that must exist below the consumer project root.
var RequiredDirs = []string{
	filepath.Join("composeApp", "src", "androidMain"),
	"iosApp",
}

// Tool is an external executable the workflow shells out to.
type Tool struct {
	Name       string
	InstallURL string
}

// RequiredTools lists the executables every run needs.
var RequiredTools = []Tool{
	{Name: "gcloud", InstallURL: "https://cloud.google.com/sdk/docs/install"},
	{Name: "firebase", InstallURL: "https://firebase.google.com/docs/cli"},
}

// Checker reports tool availability.
type Checker struct {
	lookPath func(name string) bool
}

// NewChecker returns a Checker that searches PATH.
func NewChecker() *Checker {
	return &Checker{lookPath: exec.CommandExists}
}

// NewCheckerFunc returns a Checker backed by fn.
func NewCheckerFunc(fn func(name string) bool) *Checker {
	return &Checker{lookPath: fn}
}

// Available reports whether the named tool is on PATH. Absence is a normal
// outcome, not an error.
func (c *Checker) Available(name string) bool {
	return c.lookPath(name)
}

// Missing returns the tools that are not available, in order.
func (c *Checker) Missing(tools []Tool) []Tool {
	var missing []Tool
	for _, t := range tools {
		if !c.Available(t.Name) {
			missing = append(missing, t)
		}
	}
	return missing
}

// CheckLayout verifies that root and every RequiredDirs entry below it are
// directories.
func CheckLayout(root string) error {
	if err := isDir(root); err != nil {
		return fmt.Errorf("%w: project root %s: %v", ErrLayout, root, err)
	}
	for _, rel := range RequiredDirs {
		if err := isDir(filepath.Join(root, rel)); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrLayout, rel, err)
		}
	}
	return nil
}

func isDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.New("directory does not exist")
		}
		return err
	}
	if !info.IsDir() {
		return errors.New("not a directory")
	}
	return nil
}
