package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rumor-ml/commons.systems/fbprovision/internal/cli"
	"github.com/rumor-ml/commons.systems/fbprovision/internal/cloudapi"
	"github.com/rumor-ml/commons.systems/fbprovision/internal/config"
	"github.com/rumor-ml/commons.systems/fbprovision/internal/exec"
	"github.com/rumor-ml/commons.systems/fbprovision/internal/output"
	"github.com/rumor-ml/commons.systems/fbprovision/internal/preflight"
	"github.com/rumor-ml/commons.systems/fbprovision/internal/prompt"
	"github.com/rumor-ml/commons.systems/fbprovision/internal/runner"
)

const version = "0.1.0"

// options are the parsed command line flags.
type options struct {
	configPath  string
	showVersion bool
	config      config.Config

	// set holds the names of flags given on the command line.
	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("fbprovision", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cfg := &opts.config
	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version")
	fs.StringVar(&cfg.RootDir, "root", "", "Mobile project root directory (or "+config.EnvRootDir+" env)")
	fs.StringVar(&cfg.ProjectID, "project-id", "", "GCP / Firebase project id (or "+config.EnvProjectID+" env)")
	fs.StringVar(&cfg.AppID, "app-id", "", "Application id used as Android package and iOS bundle (or "+config.EnvAppID+" env)")
	fs.StringVar(&cfg.IOSBundleID, "ios-bundle-id", "", "iOS bundle id when it differs from -app-id")
	fs.StringVar(&cfg.DisplayName, "display-name", "", "App display name (default: project id)")
	fs.StringVar(&cfg.Backend, "backend", "", "Provisioning backend: cli or api (default: cli)")
	fs.StringVar(&cfg.LedgerPath, "ledger", "", "Write created resources to this YAML file")
	fs.BoolVar(&cfg.Parallel, "parallel", false, "Provision Android and iOS concurrently")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Show every executed command")

	fs.Usage = func() {
		fmt.Fprint(stderr, `fbprovision - Firebase setup for Compose Multiplatform projects

Creates the cloud project if needed, adds Firebase, registers the Android and
iOS apps and writes google-services.json and GoogleService-Info.plist into the
mobile project. Safe to run repeatedly.

Usage:
  fbprovision [flags]

Flags:
`)
		fs.PrintDefaults()
		fmt.Fprint(stderr, `
Examples:
  # Prompt for everything
  fbprovision

  # Non-interactive
  fbprovision -root ~/src/myapp -project-id my-app-123 -app-id com.example.myapp

  # REST backend, both platforms at once, keep a record of created resources
  fbprovision -config fbprovision.yaml -backend api -parallel -ledger run.yaml

`)
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

// resolveConfig layers the sources in precedence order: flags, config file,
// environment, then interactive prompts.
func resolveConfig(opts options, getenv func(string) string, asker config.Asker) (config.Config, error) {
	var cfg config.Config
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	cfg.Merge(opts.config)
	// Merge only turns booleans on, so explicit flags may also turn them off.
	if opts.set["parallel"] {
		cfg.Parallel = opts.config.Parallel
	}
	if opts.set["verbose"] {
		cfg.Verbose = opts.config.Verbose
	}
	cfg.ApplyEnv(getenv)
	if err := cfg.Complete(asker); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// buildDeps wires the chosen backend. Sessions and tool checks always go
// through the command line tools.
func buildDeps(ctx context.Context, cfg config.Config, run exec.Runner) (runner.Deps, error) {
	gcloud := cli.NewGcloud(run)
	fbcli := cli.NewFirebase(run)
	deps := runner.Deps{
		Tools:       preflight.NewChecker(),
		Gcloud:      gcloud,
		FirebaseCLI: fbcli,
		Projects:    gcloud,
		Firebase:    fbcli,
	}
	if cfg.GetBackend() == config.BackendAPI {
		client, err := cloudapi.New(ctx, cloudapi.TokenSource(ctx, gcloud.AccessToken))
		if err != nil {
			return deps, fmt.Errorf("failed to create API client: %w", err)
		}
		deps.Projects = client.Projects()
		deps.Firebase = client.Firebase()
	}
	return deps, nil
}

func run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Printf("fbprovision version %s\n", version)
		return nil
	}

	cfg, err := resolveConfig(opts, os.Getenv, prompt.Stdio())
	if err != nil {
		return err
	}

	out := output.Default()
	shell := &exec.Shell{}
	if cfg.Verbose {
		shell.Log = out.Info
	}

	deps, err := buildDeps(ctx, cfg, shell)
	if err != nil {
		return err
	}
	return runner.New(cfg, deps, out).Run(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		output.Error(err.Error())
		stop()
		os.Exit(1)
	}
}
