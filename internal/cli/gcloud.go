// Package cli talks to Google Cloud and Firebase through the gcloud and
// firebase command line tools.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/rumor-ml/commons.systems/fbprovision/internal/exec"
)

// Gcloud wraps the gcloud CLI. It is a session.Provider and a gcp.Projects.
type Gcloud struct {
	runner exec.Runner
}

// NewGcloud returns a Gcloud running commands through runner.
func NewGcloud(runner exec.Runner) *Gcloud {
	return &Gcloud{runner: runner}
}

func (g *Gcloud) run(ctx context.Context, args ...string) (*exec.Result, error) {
	return g.runner.Run(ctx, exec.Command{Name: "gcloud", Args: args})
}

// Name implements session.Provider.
func (g *Gcloud) Name() string {
	return "gcloud"
}

// ActiveAccount returns the first active gcloud account.
func (g *Gcloud) ActiveAccount(ctx context.Context) (string, error) {
	result, err := g.run(ctx, "auth", "list", "--filter=status:ACTIVE", "--format=value(account)")
	if err != nil {
		return "", err
	}
	if result.Failed() {
		return "", fmt.Errorf("gcloud auth list: %s", result.Message())
	}
	return firstLine(result.Stdout), nil
}

// Login runs the browser based gcloud login.
func (g *Gcloud) Login(ctx context.Context) error {
	result, err := g.runner.Run(ctx, exec.Command{Name: "gcloud", Args: []string{"auth", "login"}, Interactive: true})
	if err != nil {
		return err
	}
	if result.Failed() {
		return fmt.Errorf("gcloud auth login exited with status %d", result.ExitCode)
	}
	return nil
}

// AccessToken prints an OAuth access token for the active account.
func (g *Gcloud) AccessToken(ctx context.Context) (string, error) {
	result, err := g.run(ctx, "auth", "print-access-token")
	if err != nil {
		return "", err
	}
	if result.Failed() {
		return "", fmt.Errorf("gcloud auth print-access-token: %s", result.Message())
	}
	token := result.Output()
	if token == "" {
		return "", fmt.Errorf("gcloud auth print-access-token returned no token")
	}
	return token, nil
}

// ProjectExists reports whether a project with exactly this id is visible.
func (g *Gcloud) ProjectExists(ctx context.Context, projectID string) (bool, error) {
	result, err := g.run(ctx, "projects", "list", "--filter=project_id:"+projectID, "--format=value(project_id)")
	if err != nil {
		return false, err
	}
	if result.Failed() {
		return false, fmt.Errorf("gcloud projects list: %s", result.Message())
	}
	for _, line := range strings.Split(result.Stdout, "\n") {
		if strings.TrimSpace(line) == projectID {
			return true, nil
		}
	}
	return false, nil
}

// CreateProject creates the project.
func (g *Gcloud) CreateProject(ctx context.Context, projectID string) error {
	result, err := g.run(ctx, "projects", "create", projectID, "--quiet")
	if err != nil {
		return err
	}
	if result.Failed() {
		return fmt.Errorf("gcloud projects create: %s", result.Message())
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
