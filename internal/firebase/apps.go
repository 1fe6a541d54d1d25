package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rumor-ml/commons.systems/fbprovision/internal/output"
)

// ErrMissingAppID is wrapped when a registration response has no usable
// appId.
var ErrMissingAppID = errors.New("registration response has no appId")

// Registration is the outcome of registering one platform app.
type Registration struct {
	App     App
	Created bool
}

// Registrar registers platform apps under a Firebase project.
type Registrar struct {
	svc Service
	out *output.Printer
}

// NewRegistrar creates a new Registrar
func NewRegistrar(svc Service, out *output.Printer) *Registrar {
	return &Registrar{svc: svc, out: out}
}

// Register returns the app for packageName on platform, reusing an existing
// registration when one matches and creating it otherwise. The create call
// is attempted once.
func (r *Registrar) Register(ctx context.Context, projectID string, platform Platform, packageName, displayName string) (Registration, error) {
	name := platform.DisplayName()
	r.out.Info(fmt.Sprintf("Checking for an existing %s app %s...", name, packageName))

	apps, err := r.svc.ListApps(ctx, projectID, platform)
	if err != nil {
		return Registration{}, fmt.Errorf("failed to list %s apps: %w", name, err)
	}
	for _, app := range apps {
		if app.PackageName == packageName && validAppID(app.AppID) {
			r.out.Info(fmt.Sprintf("%s app already registered: %s", name, app.AppID))
			return Registration{App: app}, nil
		}
	}

	r.out.Info(fmt.Sprintf("Registering %s app %s...", name, packageName))
	resp, err := r.svc.CreateApp(ctx, projectID, platform, packageName, displayName)
	if err != nil {
		return Registration{}, fmt.Errorf("failed to create %s app: %w", name, err)
	}

	appID, err := ParseAppID(resp)
	if err != nil {
		return Registration{}, fmt.Errorf("failed to register %s app: %w", name, err)
	}

	r.out.Success(fmt.Sprintf("%s app registered: %s", name, appID))
	return Registration{
		App:     App{Platform: platform, PackageName: packageName, AppID: appID},
		Created: true,
	}, nil
}

// registrationResponse accepts both the bare app object of the REST API and
// the {"status": ..., "result": {...}} envelope of the firebase CLI.
type registrationResponse struct {
	AppID  *string `json:"appId"`
	Result *struct {
		AppID *string `json:"appId"`
	} `json:"result"`
}

// ParseAppID extracts the generated app id from a registration response. A
// missing, empty or "null" id is an error.
func ParseAppID(data []byte) (string, error) {
	var resp registrationResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("%w: malformed response: %v", ErrMissingAppID, err)
	}

	id := resp.AppID
	if id == nil && resp.Result != nil {
		id = resp.Result.AppID
	}
	if id == nil || !validAppID(*id) {
		return "", ErrMissingAppID
	}
	return strings.TrimSpace(*id), nil
}

func validAppID(id string) bool {
	id = strings.TrimSpace(id)
	return id != "" && id != "null"
}
