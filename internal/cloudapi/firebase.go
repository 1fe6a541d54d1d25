package cloudapi

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	fb "google.golang.org/api/firebase/v1beta1"

	"github.com/rumor-ml/commons.systems/fbprovision/internal/firebase"
)

// Firebase implements firebase.Service with the Firebase Management API.
type Firebase struct {
	c *Client
}

func projectName(projectID string) string {
	return "projects/" + projectID
}

func (f *Firebase) wait(ctx context.Context, svc *fb.Service, op *fb.Operation) (*fb.Operation, error) {
	op, err := waitFor(ctx, f.c.PollInterval, op,
		func(op *fb.Operation) bool { return op.Done },
		func(op *fb.Operation) (*fb.Operation, error) {
			return svc.Operations.Get(op.Name).Context(ctx).Do()
		})
	if err != nil {
		return nil, err
	}
	if op.Error != nil {
		return nil, fmt.Errorf("operation %s failed: %s", op.Name, op.Error.Message)
	}
	return op, nil
}

// IsFirebaseProject reports whether the project is a Firebase project.
func (f *Firebase) IsFirebaseProject(ctx context.Context, projectID string) (bool, error) {
	svc, err := f.c.firebaseService(ctx, projectID)
	if err != nil {
		return false, err
	}
	if _, err := svc.Projects.Get(projectName(projectID)).Context(ctx).Do(); err != nil {
		if notFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AddFirebase attaches Firebase and waits for the operation.
func (f *Firebase) AddFirebase(ctx context.Context, projectID string) error {
	svc, err := f.c.firebaseService(ctx, projectID)
	if err != nil {
		return err
	}
	op, err := svc.Projects.AddFirebase(projectName(projectID), &fb.AddFirebaseRequest{}).Context(ctx).Do()
	if err != nil {
		if hasStatus(err, http.StatusConflict) {
			return fmt.Errorf("%v: %w", err, firebase.ErrAlreadyExists)
		}
		return err
	}
	_, err = f.wait(ctx, svc, op)
	return err
}

// ListApps lists every app of the platform, following pagination.
func (f *Firebase) ListApps(ctx context.Context, projectID string, platform firebase.Platform) ([]firebase.App, error) {
	svc, err := f.c.firebaseService(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var apps []firebase.App
	switch platform {
	case firebase.Android:
		err = svc.Projects.AndroidApps.List(projectName(projectID)).PageSize(100).Pages(ctx, func(resp *fb.ListAndroidAppsResponse) error {
			for _, a := range resp.Apps {
				apps = append(apps, firebase.App{Platform: platform, PackageName: a.PackageName, AppID: a.AppId})
			}
			return nil
		})
	case firebase.IOS:
		err = svc.Projects.IosApps.List(projectName(projectID)).PageSize(100).Pages(ctx, func(resp *fb.ListIosAppsResponse) error {
			for _, a := range resp.Apps {
				apps = append(apps, firebase.App{Platform: platform, PackageName: a.BundleId, AppID: a.AppId})
			}
			return nil
		})
	default:
		return nil, fmt.Errorf("unsupported platform %q", platform)
	}
	if err != nil {
		return nil, err
	}
	return apps, nil
}

// CreateApp registers the app and returns the created app resource as JSON.
func (f *Firebase) CreateApp(ctx context.Context, projectID string, platform firebase.Platform, packageName, displayName string) ([]byte, error) {
	svc, err := f.c.firebaseService(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var op *fb.Operation
	switch platform {
	case firebase.Android:
		op, err = svc.Projects.AndroidApps.Create(projectName(projectID), &fb.AndroidApp{
			PackageName: packageName,
			DisplayName: displayName,
		}).Context(ctx).Do()
	case firebase.IOS:
		op, err = svc.Projects.IosApps.Create(projectName(projectID), &fb.IosApp{
			BundleId:    packageName,
			DisplayName: displayName,
		}).Context(ctx).Do()
	default:
		return nil, fmt.Errorf("unsupported platform %q", platform)
	}
	if err != nil {
		return nil, err
	}

	op, err = f.wait(ctx, svc, op)
	if err != nil {
		return nil, err
	}
	return []byte(op.Response), nil
}

// GetConfig downloads and decodes the platform config file. The REST
// channel has no framing.
func (f *Firebase) GetConfig(ctx context.Context, projectID string, platform firebase.Platform, appID string) ([]byte, error) {
	svc, err := f.c.firebaseService(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var encoded string
	switch platform {
	case firebase.Android:
		cfg, err := svc.Projects.AndroidApps.GetConfig(fmt.Sprintf("projects/%s/androidApps/%s/config", projectID, appID)).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		encoded = cfg.ConfigFileContents
	case firebase.IOS:
		cfg, err := svc.Projects.IosApps.GetConfig(fmt.Sprintf("projects/%s/iosApps/%s/config", projectID, appID)).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		encoded = cfg.ConfigFileContents
	default:
		return nil, fmt.Errorf("unsupported platform %q", platform)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s config: %w", platform, err)
	}
	return data, nil
}

// HeaderLines implements firebase.Service.
func (f *Firebase) HeaderLines(firebase.Platform) int {
	return 0
}
