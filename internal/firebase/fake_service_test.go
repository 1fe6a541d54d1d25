package firebase

import (
	"bytes"
	"context"

	"github.com/rumor-ml/commons.systems/fbprovision/internal/output"
)

// fakeService is an in-memory Service recording the calls it receives.
type fakeService struct {
	enabled    bool
	enabledErr error
	addErr     error
	adds       int

	apps      map[Platform][]App
	listErr   error
	createRes map[Platform]string
	createErr error
	creates   []Platform

	configs   map[Platform]string
	configErr error
	fetches   []Platform
	headers   map[Platform]int
}

func (f *fakeService) IsFirebaseProject(context.Context, string) (bool, error) {
	return f.enabled, f.enabledErr
}

func (f *fakeService) AddFirebase(context.Context, string) error {
	f.adds++
	return f.addErr
}

func (f *fakeService) ListApps(_ context.Context, _ string, p Platform) ([]App, error) {
	return f.apps[p], f.listErr
}

func (f *fakeService) CreateApp(_ context.Context, _ string, p Platform, _, _ string) ([]byte, error) {
	f.creates = append(f.creates, p)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return []byte(f.createRes[p]), nil
}

func (f *fakeService) GetConfig(_ context.Context, _ string, p Platform, _ string) ([]byte, error) {
	f.fetches = append(f.fetches, p)
	if f.configErr != nil {
		return nil, f.configErr
	}
	return []byte(f.configs[p]), nil
}

func (f *fakeService) HeaderLines(p Platform) int {
	return f.headers[p]
}

func quiet() *output.Printer {
	return output.New(&bytes.Buffer{})
}
