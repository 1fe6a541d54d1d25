package firebase

import "path/filepath"

// Platform is a mobile platform an app can be registered for.
type Platform string

const (
	Android Platform = "android"
	IOS     Platform = "ios"
)

// Platforms lists every supported platform in the order they are provisioned.
var Platforms = []Platform{Android, IOS}

// DisplayName returns the human readable name of the platform.
func (p Platform) DisplayName() string {
	switch p {
	case Android:
		return "Android"
	case IOS:
		return "iOS"
	}
	return string(p)
}

// ConfigPath returns where the platform config file lives in the consumer
// project tree rooted at root.
func (p Platform) ConfigPath(root string) string {
	switch p {
	case Android:
		return filepath.Join(root, "composeApp", "src", "androidMain", "app", "google-services.json")
	case IOS:
		return filepath.Join(root, "iosApp", "GoogleService-Info.plist")
	}
	return ""
}
