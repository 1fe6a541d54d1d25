package cloudapi

import (
	"context"
	"fmt"

	crm "google.golang.org/api/cloudresourcemanager/v1"
)

// Projects implements gcp.Projects with Cloud Resource Manager v1.
type Projects struct {
	c *Client
}

// ProjectExists reports whether the project exists and is active.
func (p *Projects) ProjectExists(ctx context.Context, projectID string) (bool, error) {
	project, err := p.c.projects.Projects.Get(projectID).Context(ctx).Do()
	if err != nil {
		if notFound(err) {
			return false, nil
		}
		return false, err
	}
	if project.LifecycleState != "" && project.LifecycleState != "ACTIVE" {
		return false, fmt.Errorf("project %s is %s", projectID, project.LifecycleState)
	}
	return true, nil
}

// CreateProject creates the project and waits for the operation to finish.
func (p *Projects) CreateProject(ctx context.Context, projectID string) error {
	op, err := p.c.projects.Projects.Create(&crm.Project{ProjectId: projectID, Name: projectID}).Context(ctx).Do()
	if err != nil {
		return err
	}

	op, err = waitFor(ctx, p.c.PollInterval, op,
		func(op *crm.Operation) bool { return op.Done },
		func(op *crm.Operation) (*crm.Operation, error) {
			return p.c.projects.Operations.Get(op.Name).Context(ctx).Do()
		})
	if err != nil {
		return fmt.Errorf("waiting for project creation: %w", err)
	}
	if op.Error != nil {
		return fmt.Errorf("project creation failed: %s", op.Error.Message)
	}
	return nil
}
