package firebase

import (
	"context"
	"errors"
)

// ErrAlreadyExists may be wrapped by a Service to signal that a create call
// found the resource in place.
var ErrAlreadyExists = errors.New("already exists")

// App is an application identity registered under a Firebase project.
type App struct {
	Platform    Platform
	PackageName string // Android package name or iOS bundle id
	AppID       string // generated by Firebase, empty until registered
}

// Service is the remote Firebase management channel. Implementations exist
// for the firebase CLI and for the Firebase Management REST API.
type Service interface {
	// IsFirebaseProject reports whether Firebase is attached to the project.
	IsFirebaseProject(ctx context.Context, projectID string) (bool, error)
	// AddFirebase attaches Firebase to an existing cloud project.
	AddFirebase(ctx context.Context, projectID string) error

	// ListApps returns the apps of one platform registered in the project.
	ListApps(ctx context.Context, projectID string, platform Platform) ([]App, error)
	// CreateApp registers an app and returns the raw JSON response, which
	// carries the generated appId.
	CreateApp(ctx context.Context, projectID string, platform Platform, packageName, displayName string) ([]byte, error)

	// GetConfig downloads the platform config file, framed as the channel
	// delivers it.
	GetConfig(ctx context.Context, projectID string, platform Platform, appID string) ([]byte, error)
	// HeaderLines is the number of framing lines GetConfig output starts
	// with for the platform.
	HeaderLines(platform Platform) int
}
