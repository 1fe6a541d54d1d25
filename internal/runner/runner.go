package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rumor-ml/commons.systems/fbprovision/internal/config"
	"github.com/rumor-ml/commons.systems/fbprovision/internal/firebase"
	"github.com/rumor-ml/commons.systems/fbprovision/internal/gcp"
	"github.com/rumor-ml/commons.systems/fbprovision/internal/ledger"
	"github.com/rumor-ml/commons.systems/fbprovision/internal/output"
	"github.com/rumor-ml/commons.systems/fbprovision/internal/preflight"
	"github.com/rumor-ml/commons.systems/fbprovision/internal/session"
)

// Deps are the collaborators a Runner drives.
type Deps struct {
	Tools       *preflight.Checker
	Gcloud      session.Provider
	FirebaseCLI session.Provider
	Projects    gcp.Projects
	Firebase    firebase.Service
}

var platformStates = map[firebase.Platform][2]State{
	firebase.Android: {AndroidRegistered, AndroidConfigWritten},
	firebase.IOS:     {IosRegistered, IosConfigWritten},
}

// Runner orchestrates a provisioning run
type Runner struct {
	config config.Config
	deps   Deps
	out    *output.Printer
	ledger *ledger.Ledger

	mu        sync.Mutex
	completed []State
	artifacts []firebase.Artifact
}

// New creates a new Runner
func New(cfg config.Config, deps Deps, out *output.Printer) *Runner {
	return &Runner{config: cfg, deps: deps, out: out, ledger: ledger.New()}
}

// Completed returns the states reached so far, in order.
func (r *Runner) Completed() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.completed...)
}

// Artifacts returns the config files written by the run in platform order.
func (r *Runner) Artifacts() []firebase.Artifact {
	r.mu.Lock()
	artifacts := append([]firebase.Artifact(nil), r.artifacts...)
	r.mu.Unlock()

	slices.SortStableFunc(artifacts, func(a, b firebase.Artifact) int {
		return slices.Index(firebase.Platforms, a.Platform) - slices.Index(firebase.Platforms, b.Platform)
	})
	return artifacts
}

// Ledger returns the resources created by the run.
func (r *Runner) Ledger() *ledger.Ledger {
	return r.ledger
}

// Run executes every step in order and stops at the first failure. Failures
// are returned as *AbortError. Nothing created remotely is rolled back; the
// ledger is reported instead.
func (r *Runner) Run(ctx context.Context) error {
	r.out.Header("Firebase Mobile Setup")

	err := r.run(ctx)
	if err != nil && !r.ledger.Empty() {
		r.out.Warning("The run stopped after creating remote resources:")
		r.ledger.Report(r.out)
	}
	if r.config.LedgerPath != "" && !r.ledger.Empty() {
		if saveErr := r.ledger.Save(r.config.LedgerPath); saveErr != nil {
			r.out.Warning(fmt.Sprintf("Failed to save ledger: %v", saveErr))
		} else {
			r.out.Info(fmt.Sprintf("Ledger written to %s", r.config.LedgerPath))
		}
	}
	if err != nil {
		return err
	}

	r.markDone(Complete)
	fmt.Fprintln(r.out.Writer())
	r.out.Success("Firebase setup complete! ✓")
	for _, a := range r.Artifacts() {
		r.out.Info(fmt.Sprintf("%s config: %s", a.Platform.DisplayName(), a.Path))
	}
	return nil
}

func (r *Runner) run(ctx context.Context) error {
	cfg := r.config

	if err := r.advance(LayoutVerified, r.verifyLayout); err != nil {
		return err
	}
	if err := r.advance(ToolsChecked, r.checkTools); err != nil {
		return err
	}
	if err := r.advance(SessionAuthenticated, func() error {
		_, err := session.Ensure(ctx, r.deps.Gcloud, r.out)
		return err
	}); err != nil {
		return err
	}
	if err := r.advance(FirebaseCliReady, func() error {
		_, err := session.Ensure(ctx, r.deps.FirebaseCLI, r.out)
		return err
	}); err != nil {
		return err
	}

	var projectID string
	if err := r.advance(ProjectResolved, func() error {
		res, err := gcp.NewResolver(r.deps.Projects, r.out).Resolve(ctx, cfg.ProjectID)
		if err != nil {
			return err
		}
		if res.Created {
			r.ledger.ProjectCreated(res.ProjectID)
		}
		projectID = res.ProjectID
		r.out.Info(fmt.Sprintf("Using project: %s", projectID))
		return nil
	}); err != nil {
		return err
	}

	if err := r.advance(FirebaseAttached, func() error {
		attached, err := firebase.NewAttacher(r.deps.Firebase, r.out).Attach(ctx, projectID)
		if attached {
			r.ledger.FirebaseAttached(projectID)
		}
		return err
	}); err != nil {
		return err
	}

	if cfg.Parallel {
		return r.provisionAppsParallel(ctx, projectID)
	}
	for _, p := range firebase.Platforms {
		res := r.provisionPlatform(ctx, projectID, p, r.out)
		r.markDone(res.reached...)
		if res.err != nil {
			return r.abort(res.failed, res.err)
		}
	}
	return nil
}

// advance runs fn to move the machine to state to.
func (r *Runner) advance(to State, fn func() error) error {
	r.out.Step(int(to), totalSteps, to.Description()+"...")
	if err := fn(); err != nil {
		return r.abort(to, err)
	}
	r.markDone(to)
	return nil
}

func (r *Runner) abort(at State, err error) error {
	return &AbortError{State: at, Completed: r.Completed(), Err: err}
}

func (r *Runner) markDone(states ...State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, states...)
}

func (r *Runner) verifyLayout() error {
	if err := preflight.CheckLayout(r.config.RootDir); err != nil {
		return err
	}
	r.out.Success(fmt.Sprintf("Mobile project found at %s", r.config.RootDir))
	return nil
}

// checkTools checks if required tools are installed
func (r *Runner) checkTools() error {
	missing := r.deps.Tools.Missing(preflight.RequiredTools)
	if len(missing) > 0 {
		lines := make([]string, 0, len(missing))
		for _, t := range missing {
			lines = append(lines, fmt.Sprintf("%s is not installed\nInstall from: %s", t.Name, t.InstallURL))
		}
		return errors.New(strings.Join(lines, "\n"))
	}
	for _, t := range preflight.RequiredTools {
		r.out.Success(fmt.Sprintf("%s CLI found", t.Name))
	}
	return nil
}

type platformResult struct {
	reached []State
	failed  State
	err     error
}

// provisionPlatform registers the platform app and writes its config. It
// does not touch r.completed so that it can run concurrently.
func (r *Runner) provisionPlatform(ctx context.Context, projectID string, p firebase.Platform, out *output.Printer) platformResult {
	states := platformStates[p]
	var res platformResult

	pkg := r.config.AndroidPackage()
	if p == firebase.IOS {
		pkg = r.config.IOSBundle()
	}

	out.Step(int(states[0]), totalSteps, states[0].Description()+"...")
	reg, err := firebase.NewRegistrar(r.deps.Firebase, out).Register(ctx, projectID, p, pkg, r.config.GetDisplayName())
	if err != nil {
		res.failed, res.err = states[0], err
		return res
	}
	if reg.Created {
		r.ledger.AppCreated(projectID, string(p), reg.App.AppID)
	}
	res.reached = append(res.reached, states[0])

	out.Step(int(states[1]), totalSteps, states[1].Description()+"...")
	artifact, err := firebase.NewFetcher(r.deps.Firebase, out).Fetch(ctx, projectID, reg.App, r.config.RootDir)
	if err != nil {
		res.failed, res.err = states[1], err
		return res
	}
	r.mu.Lock()
	r.artifacts = append(r.artifacts, artifact)
	r.mu.Unlock()
	res.reached = append(res.reached, states[1])
	return res
}

// provisionAppsParallel runs every platform as its own task. Progress is
// buffered per task and flushed in platform order once all tasks are done.
func (r *Runner) provisionAppsParallel(ctx context.Context, projectID string) error {
	results := make([]platformResult, len(firebase.Platforms))
	buffers := make([]bytes.Buffer, len(firebase.Platforms))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range firebase.Platforms {
		g.Go(func() error {
			results[i] = r.provisionPlatform(gctx, projectID, p, output.New(&buffers[i]))
			return results[i].err
		})
	}
	_ = g.Wait()

	for i := range firebase.Platforms {
		_, _ = io.Copy(r.out.Writer(), &buffers[i])
	}

	var (
		errs   []error
		failed State
	)
	for _, res := range results {
		r.markDone(res.reached...)
		if res.err == nil {
			continue
		}
		if errors.Is(res.err, context.Canceled) && ctx.Err() == nil {
			// Cancelled because the sibling task failed.
			continue
		}
		if len(errs) == 0 {
			failed = res.failed
		}
		errs = append(errs, res.err)
	}
	if len(errs) > 0 {
		return r.abort(failed, errors.Join(errs...))
	}
	return nil
}
