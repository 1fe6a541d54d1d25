package runner

import (
	"fmt"
	"strings"
)

// State is a step of the provisioning state machine. States are reached
// strictly in declaration order.
type State int

const (
	Start State = iota
	LayoutVerified
	ToolsChecked
	SessionAuthenticated
	FirebaseCliReady
	ProjectResolved
	FirebaseAttached
	AndroidRegistered
	AndroidConfigWritten
	IosRegistered
	IosConfigWritten
	Complete
)

// totalSteps counts the states between Start and Complete.
const totalSteps = int(Complete) - 1

var stateInfo = [...]struct {
	name string
	desc string
}{
	Start:                {"Start", "Starting"},
	LayoutVerified:       {"LayoutVerified", "Verifying mobile project layout"},
	ToolsChecked:         {"ToolsChecked", "Checking required tools"},
	SessionAuthenticated: {"SessionAuthenticated", "Authenticating with gcloud"},
	FirebaseCliReady:     {"FirebaseCliReady", "Authenticating with the Firebase CLI"},
	ProjectResolved:      {"ProjectResolved", "Resolving cloud project"},
	FirebaseAttached:     {"FirebaseAttached", "Adding Firebase to project"},
	AndroidRegistered:    {"AndroidRegistered", "Registering Android app"},
	AndroidConfigWritten: {"AndroidConfigWritten", "Writing google-services.json"},
	IosRegistered:        {"IosRegistered", "Registering iOS app"},
	IosConfigWritten:     {"IosConfigWritten", "Writing GoogleService-Info.plist"},
	Complete:             {"Complete", "Complete"},
}

func (s State) String() string {
	if s < Start || s > Complete {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateInfo[s].name
}

// Description is the progress message shown when the state is entered.
func (s State) Description() string {
	if s < Start || s > Complete {
		return s.String()
	}
	return stateInfo[s].desc
}

// AbortError reports the state a run failed to reach.
type AbortError struct {
	State     State
	Completed []State
	Err       error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("aborted at %s (%s): %v", e.State, strings.ToLower(e.State.Description()), e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}
