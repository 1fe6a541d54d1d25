package gcp

import (
	"context"
	"fmt"

	"github.com/rumor-ml/commons.systems/fbprovision/internal/output"
)

// Projects is the remote cloud project API the resolver depends on.
type Projects interface {
	// ProjectExists reports whether a project with exactly this id exists.
	ProjectExists(ctx context.Context, projectID string) (bool, error)
	// CreateProject creates the project and returns once it is usable.
	CreateProject(ctx context.Context, projectID string) error
}

// Resolution is the outcome of resolving a project id.
type Resolution struct {
	ProjectID string
	Created   bool
}

// Resolver finds or creates the cloud project for a run.
type Resolver struct {
	projects Projects
	out      *output.Printer
}

// NewResolver creates a new Resolver
func NewResolver(projects Projects, out *output.Printer) *Resolver {
	return &Resolver{projects: projects, out: out}
}

// Resolve makes sure the project exists, creating it only when it is absent.
// The id is not re-validated here. Creation failures are not retried.
func (r *Resolver) Resolve(ctx context.Context, projectID string) (Resolution, error) {
	r.out.Info(fmt.Sprintf("Checking if project %s exists...", projectID))

	exists, err := r.projects.ProjectExists(ctx, projectID)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to look up project %s: %w", projectID, err)
	}
	if exists {
		r.out.Info(fmt.Sprintf("Project %s already exists", projectID))
		return Resolution{ProjectID: projectID}, nil
	}

	r.out.Info(fmt.Sprintf("Creating project %s...", projectID))
	if err := r.projects.CreateProject(ctx, projectID); err != nil {
		return Resolution{}, fmt.Errorf("failed to create project %s: %w", projectID, err)
	}

	r.out.Success(fmt.Sprintf("Project %s created", projectID))
	return Resolution{ProjectID: projectID, Created: true}, nil
}
