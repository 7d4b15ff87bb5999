// Package event defines the outward-facing event stream shared by the
// monitor, the sync engine, and their collaborators (CLI, tray, UI).
package event

import (
	"fmt"
	"time"

	"github.com/clipkeep/clipkeep/internal/content"
)

// Type identifies the kind of event.
type Type string

const (
	// TypeStarted and TypeCompleted bracket a manual sync cycle.
	TypeStarted   Type = "started"
	TypeCompleted Type = "completed"

	// TypePulled and TypePushed report successful remote exchanges.
	TypePulled Type = "pulled"
	TypePushed Type = "pushed"

	// TypeChanged reports a genuine local clipboard change.
	TypeChanged Type = "changed"

	// TypeError carries a human-readable failure description.
	TypeError Type = "error"
)

// Event is the envelope delivered to subscribers.
type Event struct {
	Type    Type         `json:"type"`
	Kind    content.Kind `json:"kind,omitempty"`
	Message string       `json:"message,omitempty"`
	Time    time.Time    `json:"time"`
}

// Started marks the beginning of a manual sync cycle.
func Started() Event { return Event{Type: TypeStarted, Time: time.Now()} }

// Completed marks the end of a manual sync cycle.
func Completed() Event { return Event{Type: TypeCompleted, Time: time.Now()} }

// Pulled reports remote content of the given kind applied locally.
func Pulled(kind content.Kind) Event {
	return Event{Type: TypePulled, Kind: kind, Time: time.Now()}
}

// Pushed reports local content of the given kind accepted by the remote.
func Pushed(kind content.Kind) Event {
	return Event{Type: TypePushed, Kind: kind, Time: time.Now()}
}

// Changed reports a genuine local clipboard change of the given kind.
func Changed(kind content.Kind) Event {
	return Event{Type: TypeChanged, Kind: kind, Time: time.Now()}
}

// Errorf builds an error event with a formatted message.
func Errorf(format string, args ...any) Event {
	return Event{Type: TypeError, Message: fmt.Sprintf(format, args...), Time: time.Now()}
}
