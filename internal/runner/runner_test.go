package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rumor-ml/commons.systems/fbprovision/internal/cli"
	"github.com/rumor-ml/commons.systems/fbprovision/internal/config"
	"github.com/rumor-ml/commons.systems/fbprovision/internal/exec"
	"github.com/rumor-ml/commons.systems/fbprovision/internal/exec/exectest"
	"github.com/rumor-ml/commons.systems/fbprovision/internal/firebase"
	"github.com/rumor-ml/commons.systems/fbprovision/internal/output"
	"github.com/rumor-ml/commons.systems/fbprovision/internal/preflight"
)

const (
	testProject = "my-app-123"
	testAppID   = "com.example.app"

	androidConfig = "// header\n{\n  \"project_info\": {\"project_id\": \"my-app-123\"}\n}\n"
	iosConfig     = "// header\n// header\n<?xml version=\"1.0\"?>\n<plist><dict/></plist>\n"
)

func init() {
	color.NoColor = true
}

// mobileRoot creates a directory with the expected consumer layout.
func mobileRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, dir := range preflight.RequiredDirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0755))
	}
	return root
}

// freshFake answers as if nothing exists remotely yet.
func freshFake() *exectest.Fake {
	return exectest.New().
		On("gcloud auth list", exectest.Response{Stdout: "dev@example.com\n"}).
		On("firebase login:list", exectest.Response{Stdout: `{"status": "success", "result": [{"user": {"email": "dev@example.com"}}]}`}).
		On("gcloud projects list", exectest.Response{}).
		On("gcloud projects create "+testProject, exectest.Response{}).
		On("firebase projects:list", exectest.Response{Stdout: `{"status": "success", "result": []}`}).
		On("firebase projects:addfirebase "+testProject, exectest.Response{}).
		On("firebase apps:list", exectest.Response{Stdout: `{"status": "success", "result": []}`}).
		On("firebase apps:create ANDROID", exectest.Response{Stdout: `{"status": "success", "result": {"appId": "1:42:android:abc"}}`}).
		On("firebase apps:create IOS", exectest.Response{Stdout: `{"status": "success", "result": {"appId": "1:42:ios:def"}}`}).
		On("firebase apps:sdkconfig ANDROID 1:42:android:abc", exectest.Response{Stdout: androidConfig}).
		On("firebase apps:sdkconfig IOS 1:42:ios:def", exectest.Response{Stdout: iosConfig})
}

func newRunner(cfg config.Config, fake *exectest.Fake, out *bytes.Buffer) *Runner {
	fb := cli.NewFirebase(fake)
	gc := cli.NewGcloud(fake)
	deps := Deps{
		Tools:       preflight.NewCheckerFunc(func(string) bool { return true }),
		Gcloud:      gc,
		FirebaseCLI: fb,
		Projects:    gc,
		Firebase:    fb,
	}
	return New(cfg, deps, output.New(out))
}

func testConfig(root string) config.Config {
	return config.Config{RootDir: root, ProjectID: testProject, AppID: testAppID}
}

func requireAbort(t *testing.T, err error, at State) *AbortError {
	t.Helper()
	var abort *AbortError
	require.True(t, errors.As(err, &abort), "expected *AbortError, got %v", err)
	assert.Equal(t, at, abort.State)
	return abort
}

func TestRun_FreshProject(t *testing.T) {
	root := mobileRoot(t)
	fake := freshFake()
	var out bytes.Buffer

	r := newRunner(testConfig(root), fake, &out)
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, 1, fake.Count("gcloud projects create"))
	assert.Equal(t, 1, fake.Count("firebase projects:addfirebase"))
	assert.Equal(t, 2, fake.Count("firebase apps:create"))
	assert.Equal(t, 2, fake.Count("firebase apps:sdkconfig"))

	android, err := os.ReadFile(firebase.Android.ConfigPath(root))
	require.NoError(t, err)
	assert.Equal(t, strings.SplitN(androidConfig, "\n", 2)[1], string(android))

	ios, err := os.ReadFile(firebase.IOS.ConfigPath(root))
	require.NoError(t, err)
	assert.Equal(t, "<?xml version=\"1.0\"?>\n<plist><dict/></plist>\n", string(ios))

	assert.Equal(t, []State{
		LayoutVerified, ToolsChecked, SessionAuthenticated, FirebaseCliReady,
		ProjectResolved, FirebaseAttached, AndroidRegistered, AndroidConfigWritten,
		IosRegistered, IosConfigWritten, Complete,
	}, r.Completed())
	assert.Len(t, r.Artifacts(), 2)
	assert.Len(t, r.Ledger().Entries(), 4)
	assert.Contains(t, out.String(), "\n  → Firebase setup complete! ✓\n")
	assert.NotContains(t, out.String(), "→ \n")
}

func TestRun_ReusesExistingResources(t *testing.T) {
	root := mobileRoot(t)
	fake := freshFake().
		On("gcloud projects list", exectest.Response{Stdout: testProject + "\n"}).
		On("firebase projects:list", exectest.Response{Stdout: `{"status": "success", "result": [{"projectId": "my-app-123"}]}`}).
		On("firebase apps:list ANDROID", exectest.Response{Stdout: `{"status": "success", "result": [{"appId": "1:42:android:abc", "packageName": "com.example.app"}]}`}).
		On("firebase apps:list IOS", exectest.Response{Stdout: `{"status": "success", "result": [{"appId": "1:42:ios:def", "bundleId": "com.example.app"}]}`})

	r := newRunner(testConfig(root), fake, &bytes.Buffer{})
	require.NoError(t, r.Run(context.Background()))

	assert.Zero(t, fake.Count("gcloud projects create"))
	assert.Zero(t, fake.Count("firebase projects:addfirebase"))
	assert.Zero(t, fake.Count("firebase apps:create"))
	assert.Equal(t, 2, fake.Count("firebase apps:sdkconfig"))
	assert.True(t, r.Ledger().Empty())
}

func TestRun_IOSBundleOverride(t *testing.T) {
	root := mobileRoot(t)
	fake := freshFake()
	cfg := testConfig(root)
	cfg.IOSBundleID = "com.example.ios"

	require.NoError(t, newRunner(cfg, fake, &bytes.Buffer{}).Run(context.Background()))

	ios := fake.Commands("firebase apps:create IOS")
	require.Len(t, ios, 1)
	assert.Contains(t, ios[0].Args, "com.example.ios")
	android := fake.Commands("firebase apps:create ANDROID")
	require.Len(t, android, 1)
	assert.Contains(t, android[0].Args, testAppID)
}

func TestRun_MissingLayout(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "composeApp", "src", "androidMain"), 0755))
	fake := freshFake()

	err := newRunner(testConfig(root), fake, &bytes.Buffer{}).Run(context.Background())
	abort := requireAbort(t, err, LayoutVerified)
	assert.ErrorIs(t, err, preflight.ErrLayout)
	assert.Empty(t, abort.Completed)
	assert.Empty(t, fake.Calls())
}

func TestRun_MissingTool(t *testing.T) {
	root := mobileRoot(t)
	fake := freshFake()
	r := newRunner(testConfig(root), fake, &bytes.Buffer{})
	r.deps.Tools = preflight.NewCheckerFunc(func(name string) bool { return name != "firebase" })

	err := r.Run(context.Background())
	requireAbort(t, err, ToolsChecked)
	assert.ErrorContains(t, err, "firebase is not installed")
	assert.Empty(t, fake.Calls())
}

func TestRun_LoginFailure(t *testing.T) {
	root := mobileRoot(t)
	fake := freshFake().
		On("gcloud auth list", exectest.Response{}).
		On("gcloud auth login", exectest.Response{ExitCode: 1})

	err := newRunner(testConfig(root), fake, &bytes.Buffer{}).Run(context.Background())
	abort := requireAbort(t, err, SessionAuthenticated)
	assert.Equal(t, []State{LayoutVerified, ToolsChecked}, abort.Completed)
	assert.Zero(t, fake.Count("gcloud projects"))
	assert.Zero(t, fake.Count("firebase"))
}

func TestRun_ProjectCreateFailure(t *testing.T) {
	root := mobileRoot(t)
	fake := freshFake().
		On("gcloud projects create", exectest.Response{ExitCode: 1, Stderr: "ERROR: project id already in use"})

	err := newRunner(testConfig(root), fake, &bytes.Buffer{}).Run(context.Background())
	requireAbort(t, err, ProjectResolved)
	assert.ErrorContains(t, err, "already in use")
	assert.Equal(t, 1, fake.Count("gcloud projects create"))
	assert.Zero(t, fake.Count("firebase projects:"))
	assert.Zero(t, fake.Count("firebase apps:"))
}

func TestRun_AttachFailureReportsLedger(t *testing.T) {
	root := mobileRoot(t)
	ledgerPath := filepath.Join(t.TempDir(), "ledger.yaml")
	fake := freshFake().
		On("firebase projects:addfirebase", exectest.Response{ExitCode: 1, Stderr: "Error: permission denied"})
	cfg := testConfig(root)
	cfg.LedgerPath = ledgerPath
	var out bytes.Buffer

	r := newRunner(cfg, fake, &out)
	err := r.Run(context.Background())
	requireAbort(t, err, FirebaseAttached)
	assert.Contains(t, out.String(), "gcloud projects delete "+testProject)

	data, err := os.ReadFile(ledgerPath)
	require.NoError(t, err)
	var doc struct {
		RunID     string `yaml:"run_id"`
		Resources []struct {
			Kind string `yaml:"kind"`
		} `yaml:"resources"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, r.Ledger().RunID(), doc.RunID)
	require.Len(t, doc.Resources, 1)
	assert.Equal(t, "project", doc.Resources[0].Kind)
}

func TestRun_NullAppID(t *testing.T) {
	root := mobileRoot(t)
	fake := freshFake().
		On("firebase apps:create ANDROID", exectest.Response{Stdout: `{"status": "success", "result": {"appId": null}}`})

	err := newRunner(testConfig(root), fake, &bytes.Buffer{}).Run(context.Background())
	requireAbort(t, err, AndroidRegistered)
	assert.ErrorIs(t, err, firebase.ErrMissingAppID)
	assert.Zero(t, fake.Count("firebase apps:sdkconfig"))
	assert.NoFileExists(t, firebase.Android.ConfigPath(root))
}

func TestRun_EmptyConfigStopsBeforeIOS(t *testing.T) {
	root := mobileRoot(t)
	fake := freshFake().
		On("firebase apps:sdkconfig ANDROID", exectest.Response{Stdout: "// header\n"})

	err := newRunner(testConfig(root), fake, &bytes.Buffer{}).Run(context.Background())
	abort := requireAbort(t, err, AndroidConfigWritten)
	assert.ErrorIs(t, err, firebase.ErrEmptyArtifact)
	assert.Equal(t, AndroidRegistered, abort.Completed[len(abort.Completed)-1])
	assert.NoFileExists(t, firebase.Android.ConfigPath(root))
	assert.Zero(t, fake.Count("firebase apps:list IOS"))
	assert.Zero(t, fake.Count("firebase apps:create IOS"))
}

func TestRun_Parallel(t *testing.T) {
	root := mobileRoot(t)
	fake := freshFake()
	cfg := testConfig(root)
	cfg.Parallel = true
	var out bytes.Buffer

	r := newRunner(cfg, fake, &out)
	require.NoError(t, r.Run(context.Background()))

	assert.FileExists(t, firebase.Android.ConfigPath(root))
	assert.FileExists(t, firebase.IOS.ConfigPath(root))
	assert.Equal(t, []State{AndroidRegistered, AndroidConfigWritten, IosRegistered, IosConfigWritten, Complete}, r.Completed()[6:])

	text := out.String()
	androidAt := strings.Index(text, AndroidRegistered.Description())
	iosAt := strings.Index(text, IosRegistered.Description())
	require.True(t, androidAt >= 0 && iosAt >= 0)
	assert.Less(t, androidAt, iosAt)

	artifacts := r.Artifacts()
	require.Len(t, artifacts, 2)
	assert.Equal(t, firebase.Android, artifacts[0].Platform)
	assert.Equal(t, firebase.IOS, artifacts[1].Platform)
}

func TestRunner_ArtifactsInPlatformOrder(t *testing.T) {
	r := New(config.Config{}, Deps{}, output.New(&bytes.Buffer{}))
	r.artifacts = []firebase.Artifact{{Platform: firebase.IOS}, {Platform: firebase.Android}}

	artifacts := r.Artifacts()
	assert.Equal(t, firebase.Android, artifacts[0].Platform)
	assert.Equal(t, firebase.IOS, artifacts[1].Platform)
}

// slowListRunner runs a real blocking process for commands matching prefix
// and delegates everything else to the fake.
type slowListRunner struct {
	fake   *exectest.Fake
	prefix string
}

func (s *slowListRunner) Run(ctx context.Context, cmd exec.Command) (*exec.Result, error) {
	if strings.HasPrefix(cmd.String(), s.prefix) {
		return (&exec.Shell{}).Run(ctx, exec.Command{Name: "sleep", Args: []string{"10"}})
	}
	return s.fake.Run(ctx, cmd)
}

func TestRun_ParallelFailureCancelsSibling(t *testing.T) {
	root := mobileRoot(t)
	fake := freshFake().
		On("firebase apps:create IOS", exectest.Response{ExitCode: 1, Stderr: "Error: bundle id rejected"})
	run := &slowListRunner{fake: fake, prefix: "firebase apps:list ANDROID"}

	fb := cli.NewFirebase(run)
	gc := cli.NewGcloud(run)
	cfg := testConfig(root)
	cfg.Parallel = true
	r := New(cfg, Deps{
		Tools:       preflight.NewCheckerFunc(func(string) bool { return true }),
		Gcloud:      gc,
		FirebaseCLI: fb,
		Projects:    gc,
		Firebase:    fb,
	}, output.New(&bytes.Buffer{}))

	err := r.Run(context.Background())
	requireAbort(t, err, IosRegistered)
	assert.ErrorContains(t, err, "bundle id rejected")
	assert.NotContains(t, err.Error(), "apps:list")
	assert.NotContains(t, r.Completed(), AndroidRegistered)
}

func TestRun_ParallelFailure(t *testing.T) {
	root := mobileRoot(t)
	fake := freshFake().
		On("firebase apps:create IOS", exectest.Response{ExitCode: 1, Stderr: "Error: bundle id rejected"})
	cfg := testConfig(root)
	cfg.Parallel = true

	err := newRunner(cfg, fake, &bytes.Buffer{}).Run(context.Background())
	requireAbort(t, err, IosRegistered)
	assert.ErrorContains(t, err, "bundle id rejected")
}

func TestRun_CancelledContext(t *testing.T) {
	root := mobileRoot(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newRunner(testConfig(root), freshFake(), &bytes.Buffer{}).Run(ctx)
	requireAbort(t, err, SessionAuthenticated)
	assert.ErrorIs(t, err, context.Canceled)
}
