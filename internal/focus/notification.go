package focus

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NotificationAction is one of the two responses a distraction
// notification offers.
type NotificationAction string

const (
	ActionTakeBreak NotificationAction = "take_break"
	ActionContinue  NotificationAction = "continue"
)

// ParseNotificationAction validates a notification response.
func ParseNotificationAction(s string) (NotificationAction, error) {
	switch NotificationAction(s) {
	case ActionTakeBreak, ActionContinue:
		return NotificationAction(s), nil
	default:
		return "", fmt.Errorf("unknown notification action %q", s)
	}
}

// Button is a labelled notification action.
type Button struct {
	Action NotificationAction `json:"action"`
	Title  string             `json:"title"`
}

const (
	notificationTitle   = "FocusFuel - Distraction Detected"
	defaultNotification = "Consider taking a break to refocus."
)

// Notification is fired when a session is classified as distracting with
// high confidence.
type Notification struct {
	ID         string    `json:"id"`
	TabID      TabID     `json:"tab_id"`
	EventID    string    `json:"event_id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Buttons    []Button  `json:"buttons"`
	Confidence int       `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewNotification builds the distraction notification for an event.
func NewNotification(ev DistractionEvent, res Result, at time.Time) Notification {
	msg := res.Suggestion
	if msg == "" {
		msg = defaultNotification
	}
	return Notification{
		ID:      uuid.NewString(),
		TabID:   ev.TabID,
		EventID: ev.ID,
		Title:   notificationTitle,
		Message: msg,
		Buttons: []Button{
			{Action: ActionTakeBreak, Title: "Take Break"},
			{Action: ActionContinue, Title: "Continue"},
		},
		Confidence: ev.Confidence,
		CreatedAt:  at.UTC(),
	}
}

// NotificationResponse records which action the user picked.
type NotificationResponse struct {
	NotificationID string             `json:"notification_id"`
	Action         NotificationAction `json:"action"`
	RespondedAt    time.Time          `json:"responded_at"`
}
