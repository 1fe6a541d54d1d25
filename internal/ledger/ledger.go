// Package ledger records the remote resources a run created so that a failed
// run can be inspected and torn down by the operator.
package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/rumor-ml/commons.systems/fbprovision/internal/output"
)

// Kind identifies the type of a created resource.
type Kind string

const (
	KindProject  Kind = "project"
	KindFirebase Kind = "firebase"
	KindApp      Kind = "app"
)

// Entry is a single created resource.
type Entry struct {
	Kind      Kind      `yaml:"kind"`
	ProjectID string    `yaml:"project_id"`
	Platform  string    `yaml:"platform,omitempty"`
	ID        string    `yaml:"id,omitempty"`
	Teardown  string    `yaml:"teardown"`
	CreatedAt time.Time `yaml:"created_at"`
}

// Ledger is safe for concurrent use.
type Ledger struct {
	mu        sync.Mutex
	runID     string
	startedAt time.Time
	entries   []Entry
	now       func() time.Time
}

// New starts an empty ledger for a new run.
func New() *Ledger {
	return &Ledger{runID: uuid.NewString(), startedAt: time.Now(), now: time.Now}
}

// RunID returns the identifier of the run.
func (l *Ledger) RunID() string {
	return l.runID
}

// ProjectCreated records a newly created cloud project.
func (l *Ledger) ProjectCreated(projectID string) {
	l.record(Entry{
		Kind:      KindProject,
		ProjectID: projectID,
		ID:        projectID,
		Teardown:  fmt.Sprintf("gcloud projects delete %s", projectID),
	})
}

// FirebaseAttached records that Firebase was added to a project.
func (l *Ledger) FirebaseAttached(projectID string) {
	l.record(Entry{
		Kind:      KindFirebase,
		ProjectID: projectID,
		Teardown:  fmt.Sprintf("https://console.firebase.google.com/project/%s/settings/general (remove Firebase manually)", projectID),
	})
}

// AppCreated records a newly registered app.
func (l *Ledger) AppCreated(projectID, platform, appID string) {
	l.record(Entry{
		Kind:      KindApp,
		ProjectID: projectID,
		Platform:  platform,
		ID:        appID,
		Teardown:  fmt.Sprintf("https://console.firebase.google.com/project/%s/settings/general (remove app %s)", projectID, appID),
	})
}

func (l *Ledger) record(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.CreatedAt = l.now()
	l.entries = append(l.entries, e)
}

// Entries returns a copy of the recorded entries in creation order.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Empty reports whether nothing was created.
func (l *Ledger) Empty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries) == 0
}

// Report prints the created resources, newest first, with teardown hints.
func (l *Ledger) Report(out *output.Printer) {
	entries := l.Entries()
	if len(entries) == 0 {
		out.Info("No remote resources were created by this run")
		return
	}

	out.BlueText(fmt.Sprintf("Resources created by run %s:", l.runID))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		label := string(e.Kind)
		if e.Platform != "" {
			label += " (" + e.Platform + ")"
		}
		if e.ID != "" {
			label += " " + e.ID
		}
		out.YellowText("  " + label)
		out.Info("teardown: " + e.Teardown)
	}
}

type document struct {
	RunID     string    `yaml:"run_id"`
	StartedAt time.Time `yaml:"started_at"`
	Resources []Entry   `yaml:"resources"`
}

// Save writes the ledger as YAML to path, creating parent directories.
func (l *Ledger) Save(path string) error {
	doc := document{RunID: l.runID, StartedAt: l.startedAt, Resources: l.Entries()}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	return nil
}
