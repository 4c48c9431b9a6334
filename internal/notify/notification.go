package notify

import "time"

// Level is the severity of a notification.
type Level string

const (
	// LevelSuccess marks a positive outcome ("Message sent!").
	LevelSuccess Level = "success"

	// LevelError marks a failure the user should read.
	LevelError Level = "error"
)

// Notification is one toast shown to the user.
//
// Notification is optimized for JSON serialization; it is what the
// /api/notifications endpoint and the SSE stream carry.
type Notification struct {
	// ID uniquely identifies the notification.
	ID string `json:"id"`

	// Level is "success" or "error".
	Level Level `json:"level"`

	// Text is the message shown to the user.
	Text string `json:"text"`

	// At is when the notification was raised.
	At time.Time `json:"at"`
}

// Feed defines the interface for publishing and subscribing to
// notifications.
//
// Feed implementations must be safe for concurrent access.
type Feed interface {
	// NotifySuccess publishes a success notification.
	NotifySuccess(text string)

	// NotifyError publishes an error notification.
	NotifyError(text string)

	// Recent returns the retained notifications, oldest first.
	Recent() []Notification

	// Subscribe returns a channel that receives new notifications.
	// Caller must call Unsubscribe when done.
	Subscribe() <-chan Notification

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Notification)
}
