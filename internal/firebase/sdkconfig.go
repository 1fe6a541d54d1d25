package firebase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rumor-ml/commons.systems/fbprovision/internal/output"
)

var (
	// ErrEmptyArtifact is wrapped when nothing is left after the header.
	ErrEmptyArtifact = errors.New("config download produced no content")
	// ErrArtifactMissing is wrapped when the file is absent after writing.
	ErrArtifactMissing = errors.New("config file missing after write")
)

// Artifact is a platform config file written into the consumer project.
type Artifact struct {
	Platform Platform
	Path     string
	Payload  []byte
}

// Fetcher downloads platform config files and writes them in place.
type Fetcher struct {
	svc Service
	out *output.Printer
}

// NewFetcher creates a new Fetcher
func NewFetcher(svc Service, out *output.Printer) *Fetcher {
	return &Fetcher{svc: svc, out: out}
}

// Fetch downloads the config of app, strips the channel header and writes
// the rest verbatim to the platform's path below root, replacing any file
// already there.
func (f *Fetcher) Fetch(ctx context.Context, projectID string, app App, root string) (Artifact, error) {
	name := app.Platform.DisplayName()
	dest := app.Platform.ConfigPath(root)
	f.out.Info(fmt.Sprintf("Downloading %s config for %s...", name, app.AppID))

	raw, err := f.svc.GetConfig(ctx, projectID, app.Platform, app.AppID)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to download %s config: %w", name, err)
	}

	payload := StripHeader(raw, f.svc.HeaderLines(app.Platform))
	if len(payload) == 0 {
		return Artifact{}, fmt.Errorf("%s config for %s: %w", name, app.AppID, ErrEmptyArtifact)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return Artifact{}, fmt.Errorf("failed to create %s: %w", filepath.Dir(dest), err)
	}
	if err := os.WriteFile(dest, payload, 0644); err != nil {
		return Artifact{}, fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if _, err := os.Stat(dest); err != nil {
		return Artifact{}, fmt.Errorf("%s: %w: %v", dest, ErrArtifactMissing, err)
	}

	f.out.Success(fmt.Sprintf("Wrote %s", dest))
	return Artifact{Platform: app.Platform, Path: dest, Payload: payload}, nil
}

// StripHeader drops the first n lines of payload and returns the remainder
// unchanged. Fewer than n lines yield an empty result.
func StripHeader(payload []byte, n int) []byte {
	rest := payload
	for i := 0; i < n; i++ {
		idx := bytes.IndexByte(rest, '\n')
		if idx < 0 {
			return nil
		}
		rest = rest[idx+1:]
	}
	return rest
}
