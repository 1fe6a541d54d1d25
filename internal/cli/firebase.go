package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rumor-ml/commons.systems/fbprovision/internal/exec"
	"github.com/rumor-ml/commons.systems/fbprovision/internal/firebase"
)

// Framing lines printed by "firebase apps:sdkconfig" before the file body.
var sdkconfigHeaderLines = map[firebase.Platform]int{
	firebase.Android: 1,
	firebase.IOS:     2,
}

// Firebase wraps the firebase CLI. It is a session.Provider and a
// firebase.Service.
type Firebase struct {
	runner exec.Runner
}

// NewFirebase returns a Firebase running commands through runner.
func NewFirebase(runner exec.Runner) *Firebase {
	return &Firebase{runner: runner}
}

func (f *Firebase) run(ctx context.Context, args ...string) (*exec.Result, error) {
	return f.runner.Run(ctx, exec.Command{Name: "firebase", Args: args})
}

// envelope is the shape of every "--json" answer of the firebase CLI.
type envelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Result json.RawMessage `json:"result"`
}

// runJSON runs a "--json" command and returns its result payload.
func (f *Firebase) runJSON(ctx context.Context, args ...string) (json.RawMessage, error) {
	result, err := f.run(ctx, append(args, "--json")...)
	if err != nil {
		return nil, err
	}

	var env envelope
	parseErr := json.Unmarshal([]byte(result.Stdout), &env)
	if result.Failed() || env.Status == "error" {
		if parseErr == nil && env.Error != "" {
			return nil, fmt.Errorf("firebase %s: %s", args[0], env.Error)
		}
		return nil, fmt.Errorf("firebase %s: %s", args[0], result.Message())
	}
	if parseErr != nil {
		return nil, fmt.Errorf("firebase %s: unexpected output: %w", args[0], parseErr)
	}
	return env.Result, nil
}

// Name implements session.Provider.
func (f *Firebase) Name() string {
	return "firebase"
}

// ActiveAccount returns the email of the first logged in firebase account.
func (f *Firebase) ActiveAccount(ctx context.Context) (string, error) {
	raw, err := f.runJSON(ctx, "login:list")
	if err != nil {
		return "", err
	}
	var accounts []struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &accounts); err != nil {
			return "", fmt.Errorf("firebase login:list: unexpected result: %w", err)
		}
	}
	for _, a := range accounts {
		if a.User.Email != "" {
			return a.User.Email, nil
		}
	}
	return "", nil
}

// Login runs the browser based firebase login.
func (f *Firebase) Login(ctx context.Context) error {
	result, err := f.runner.Run(ctx, exec.Command{Name: "firebase", Args: []string{"login"}, Interactive: true})
	if err != nil {
		return err
	}
	if result.Failed() {
		return fmt.Errorf("firebase login exited with status %d", result.ExitCode)
	}
	return nil
}

// IsFirebaseProject reports whether the project shows up in the Firebase
// project list.
func (f *Firebase) IsFirebaseProject(ctx context.Context, projectID string) (bool, error) {
	raw, err := f.runJSON(ctx, "projects:list")
	if err != nil {
		return false, err
	}
	var projects []struct {
		ProjectID string `json:"projectId"`
	}
	if err := json.Unmarshal(raw, &projects); err != nil {
		return false, fmt.Errorf("firebase projects:list: unexpected result: %w", err)
	}
	for _, p := range projects {
		if p.ProjectID == projectID {
			return true, nil
		}
	}
	return false, nil
}

// AddFirebase attaches Firebase to the project.
func (f *Firebase) AddFirebase(ctx context.Context, projectID string) error {
	result, err := f.run(ctx, "projects:addfirebase", projectID)
	if err != nil {
		return err
	}
	if result.Failed() {
		msg := result.Message()
		if strings.Contains(msg, "already exists") || strings.Contains(msg, "ALREADY_EXISTS") {
			return fmt.Errorf("firebase projects:addfirebase: %s: %w", msg, firebase.ErrAlreadyExists)
		}
		return fmt.Errorf("firebase projects:addfirebase: %s", msg)
	}
	return nil
}

type appMetadata struct {
	AppID       string `json:"appId"`
	Namespace   string `json:"namespace"`
	PackageName string `json:"packageName"`
	BundleID    string `json:"bundleId"`
}

// ListApps lists the apps of one platform.
func (f *Firebase) ListApps(ctx context.Context, projectID string, platform firebase.Platform) ([]firebase.App, error) {
	raw, err := f.runJSON(ctx, "apps:list", strings.ToUpper(string(platform)), "--project", projectID)
	if err != nil {
		return nil, err
	}
	var metas []appMetadata
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &metas); err != nil {
			return nil, fmt.Errorf("firebase apps:list: unexpected result: %w", err)
		}
	}

	apps := make([]firebase.App, 0, len(metas))
	for _, m := range metas {
		pkg := m.Namespace
		if pkg == "" {
			pkg = m.PackageName
		}
		if pkg == "" {
			pkg = m.BundleID
		}
		apps = append(apps, firebase.App{Platform: platform, PackageName: pkg, AppID: m.AppID})
	}
	return apps, nil
}

// CreateApp registers an app and returns the raw "--json" output.
func (f *Firebase) CreateApp(ctx context.Context, projectID string, platform firebase.Platform, packageName, displayName string) ([]byte, error) {
	idFlag := "--package-name"
	if platform == firebase.IOS {
		idFlag = "--bundle-id"
	}
	result, err := f.run(ctx, "apps:create", strings.ToUpper(string(platform)), displayName,
		idFlag, packageName, "--project", projectID, "--json")
	if err != nil {
		return nil, err
	}
	if result.Failed() {
		var env envelope
		if json.Unmarshal([]byte(result.Stdout), &env) == nil && env.Error != "" {
			return nil, fmt.Errorf("firebase apps:create: %s", env.Error)
		}
		return nil, fmt.Errorf("firebase apps:create: %s", result.Message())
	}
	return []byte(result.Stdout), nil
}

// GetConfig returns the unmodified output of "firebase apps:sdkconfig".
func (f *Firebase) GetConfig(ctx context.Context, projectID string, platform firebase.Platform, appID string) ([]byte, error) {
	result, err := f.run(ctx, "apps:sdkconfig", strings.ToUpper(string(platform)), appID, "--project", projectID)
	if err != nil {
		return nil, err
	}
	if result.Failed() {
		return nil, fmt.Errorf("firebase apps:sdkconfig: %s", result.Message())
	}
	return []byte(result.Stdout), nil
}

// HeaderLines implements firebase.Service.
func (f *Firebase) HeaderLines(platform firebase.Platform) int {
	return sdkconfigHeaderLines[platform]
}
