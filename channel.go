package msgboard

import (
	"context"
	"encoding/json"
)

// Channel is the request/response and push transport between the widget and
// the backend service.
//
// Implementations deliver OnOpen, OnClose and Handle callbacks from their own
// goroutine. Registering a callback replaces any previous one for the same
// hook or event.
type Channel interface {
	// Request sends method with params and blocks until the backend answers,
	// ctx is done, or the channel closes. Remote failures are returned as
	// errors implementing [CodedError].
	Request(ctx context.Context, method string, params any) (json.RawMessage, error)

	// Handle subscribes fn to push events named event.
	Handle(event string, fn func(payload json.RawMessage))

	// OnOpen registers the callback fired once the channel is usable.
	OnOpen(fn func())

	// OnClose registers the callback fired when the channel closes.
	OnClose(fn func(code int, reason string))
}

// CodedError is a remote failure carrying a numeric code, a human readable
// message and optional data.
type CodedError interface {
	error
	Code() int
	Message() string
	Data() json.RawMessage
}

// Notifier shows short, user-facing notifications.
type Notifier interface {
	NotifySuccess(text string)
	NotifyError(text string)
}
