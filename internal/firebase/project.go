package firebase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rumor-ml/commons.systems/fbprovision/internal/output"
)

// Attacher adds Firebase to a resolved cloud project.
type Attacher struct {
	svc Service
	out *output.Printer
}

// NewAttacher creates a new Attacher
func NewAttacher(svc Service, out *output.Printer) *Attacher {
	return &Attacher{svc: svc, out: out}
}

// Attach enables Firebase on the project unless it already is. It reports
// whether this call attached it. Any failure is fatal for the run.
func (a *Attacher) Attach(ctx context.Context, projectID string) (bool, error) {
	a.out.Info("Checking if Firebase is already initialized...")

	enabled, err := a.svc.IsFirebaseProject(ctx, projectID)
	if err != nil {
		return false, fmt.Errorf("failed to check Firebase status of %s: %w", projectID, err)
	}
	if enabled {
		a.out.Info("Firebase is already initialized on this project")
		return false, nil
	}

	a.out.Info("Firebase not initialized. Adding Firebase to project...")
	if err := a.svc.AddFirebase(ctx, projectID); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			a.out.Info("Firebase is already initialized on this project")
			return false, nil
		}
		return false, fmt.Errorf("failed to add Firebase to %s: %w", projectID, err)
	}

	a.out.Success("Successfully added Firebase to project")
	return true, nil
}
