package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Backends understood by the tool.
const (
	BackendCLI = "cli"
	BackendAPI = "api"
)

// Environment variables consulted when a value is not given as a flag.
const (
	EnvRootDir   = "FBPROVISION_ROOT"
	EnvProjectID = "FBPROVISION_PROJECT_ID"
	EnvAppID     = "FBPROVISION_APP_ID"
)

var (
	// Cloud project ids: 6-30 chars, lowercase letters, digits and hyphens,
	// starting with a letter and not ending with a hyphen.
	projectIDPattern = regexp.MustCompile(`^[a-z][a-z0-9-]{4,28}[a-z0-9]$`)

	// Android package names and iOS bundle ids: dot-separated segments.
	appIDPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*(\.[A-Za-z0-9_-]+)+$`)
)

// Config holds the configuration for a provisioning run
type Config struct {
	// Required configuration
	RootDir   string `yaml:"root_dir"`
	ProjectID string `yaml:"project_id"`
	AppID     string `yaml:"app_id"`

	// Optional configuration
	IOSBundleID string `yaml:"ios_bundle_id"`
	DisplayName string `yaml:"display_name"`
	Backend     string `yaml:"backend"`
	LedgerPath  string `yaml:"ledger_path"`

	// Runtime configuration
	Parallel bool `yaml:"parallel"`
	Verbose  bool `yaml:"verbose"`
}

// Load reads a YAML configuration file.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Merge overrides fields of c with the non-zero fields of o. Boolean fields
// can only be switched on.
func (c *Config) Merge(o Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.RootDir, o.RootDir)
	set(&c.ProjectID, o.ProjectID)
	set(&c.AppID, o.AppID)
	set(&c.IOSBundleID, o.IOSBundleID)
	set(&c.DisplayName, o.DisplayName)
	set(&c.Backend, o.Backend)
	set(&c.LedgerPath, o.LedgerPath)
	c.Parallel = c.Parallel || o.Parallel
	c.Verbose = c.Verbose || o.Verbose
}

// ApplyEnv fills empty required values from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if c.RootDir == "" {
		c.RootDir = getenv(EnvRootDir)
	}
	if c.ProjectID == "" {
		c.ProjectID = getenv(EnvProjectID)
	}
	if c.AppID == "" {
		c.AppID = getenv(EnvAppID)
	}
}

// Asker obtains a value from the operator.
type Asker interface {
	Ask(label string) (string, error)
}

// Complete asks for every required value that is still empty, in the order
// root directory, project id, application id.
func (c *Config) Complete(a Asker) error {
	fields := []struct {
		label string
		dst   *string
	}{
		{"Path to the mobile project root", &c.RootDir},
		{"Firebase / GCP project id", &c.ProjectID},
		{"Application id (package name / bundle id)", &c.AppID},
	}
	for _, f := range fields {
		if *f.dst != "" {
			continue
		}
		v, err := a.Ask(f.label)
		if err != nil {
			return err
		}
		*f.dst = strings.TrimSpace(v)
	}
	return nil
}

// Validate checks that every value is well formed and safe to pass to
// external tools.
func (c *Config) Validate() error {
	if c.RootDir == "" {
		return fmt.Errorf("%w: project root directory is required", ErrInvalid)
	}
	if strings.ContainsAny(c.RootDir, "\x00\n\r") {
		return fmt.Errorf("%w: project root directory contains control characters", ErrInvalid)
	}
	if !projectIDPattern.MatchString(c.ProjectID) {
		return fmt.Errorf("%w: project id %q must be 6-30 lowercase letters, digits or hyphens, starting with a letter", ErrInvalid, c.ProjectID)
	}
	if !appIDPattern.MatchString(c.AppID) {
		return fmt.Errorf("%w: application id %q must look like com.example.app", ErrInvalid, c.AppID)
	}
	if c.IOSBundleID != "" && !appIDPattern.MatchString(c.IOSBundleID) {
		return fmt.Errorf("%w: iOS bundle id %q must look like com.example.app", ErrInvalid, c.IOSBundleID)
	}
	if strings.ContainsAny(c.DisplayName, "\x00\n\r\"'`$;|&<>") {
		return fmt.Errorf("%w: display name %q contains forbidden characters", ErrInvalid, c.DisplayName)
	}
	switch c.GetBackend() {
	case BackendCLI, BackendAPI:
	default:
		return fmt.Errorf("%w: unknown backend %q (want %s or %s)", ErrInvalid, c.Backend, BackendCLI, BackendAPI)
	}
	return nil
}

// GetBackend returns the backend, defaulting to the command line tools
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return BackendCLI
	}
	return c.Backend
}

// GetDisplayName returns the app display name, defaulting to the project id
func (c *Config) GetDisplayName() string {
	if c.DisplayName == "" {
		return c.ProjectID
	}
	return c.DisplayName
}

// AndroidPackage returns the package name registered for Android.
func (c *Config) AndroidPackage() string {
	return c.AppID
}

// IOSBundle returns the bundle id registered for iOS. The shared application
// id is used unless an iOS specific one is configured.
func (c *Config) IOSBundle() string {
	if c.IOSBundleID != "" {
		return c.IOSBundleID
	}
	return c.AppID
}
