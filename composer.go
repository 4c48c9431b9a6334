package msgboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// sendMessageMethod is the remote method the composer calls.
const sendMessageMethod = "send_message"

// Composer field names.
const (
	fieldRecipientClass = "recipient_class"
	fieldRecipientKey   = "recipient_key"
	fieldSender         = "sender"
	fieldMessage        = "message"
)

// OutboundMessage is the payload of a send_message request.
//
// Message is the JSON text exactly as entered; it is parsed only to check it
// is well formed.
type OutboundMessage struct {
	RecipientClass string `json:"recipient_class"`
	RecipientKey   string `json:"recipient_key"`
	Sender         string `json:"sender"`
	Message        string `json:"message"`
}

// ValidationError reports a field value rejected before anything was sent.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Pending tracks one dispatched send_message request.
type Pending struct {
	done chan struct{}
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) finish(err error) {
	p.err = err
	close(p.done)
}

// Done is closed once the request has resolved and its notification has
// been shown.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Err returns the request's outcome. It is nil until Done is closed.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until the request resolves or ctx is done.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MessageComposer builds the send-message form and turns its submissions
// into send_message requests.
type MessageComposer struct {
	ch       Channel
	notifier Notifier
	account  string
	logger   *slog.Logger

	inflight sync.WaitGroup
}

// NewMessageComposer returns a composer sending through ch and reporting to
// notifier. account is the default sender.
func NewMessageComposer(ch Channel, notifier Notifier, account string, logger *slog.Logger) *MessageComposer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageComposer{
		ch:       ch,
		notifier: notifier,
		account:  account,
		logger:   logger,
	}
}

// Spec returns the form description for the composer, with Callback wired
// to [MessageComposer.Submit].
func (c *MessageComposer) Spec() FormSpec {
	var sender any
	if c.account != "" {
		sender = c.account
	}

	return FormSpec{
		Class:   "form",
		Context: map[string]string{},
		Methods: map[string]Method{
			"post": {Style: "primary", Title: "Send"},
		},
		Fields: []FieldSpec{
			{
				Name: fieldRecipientClass, Style: "primary", Validation: ValidateNonEmpty,
				Type: FieldText, Value: "user", Title: "Recipient Class", Order: 1,
			},
			{
				Name: fieldRecipientKey, Style: "primary", Validation: ValidateNumber,
				Type: FieldText, Value: nil, Title: "Recipient Key", Order: 1,
			},
			{
				Name: fieldSender, Style: "primary", Validation: ValidateNumber,
				Type: FieldText, Value: sender, Title: "From", Order: 2,
			},
			{
				Name: fieldMessage, Style: "primary", Validation: ValidateNonEmpty,
				Type: FieldJSON, Value: map[string]any{}, Title: "Message", Order: 3, Height: 200,
			},
		},
		Title:    "Send a message",
		Callback: c.Callback(),
	}
}

// Callback adapts [MessageComposer.Submit] to a [SubmitFunc].
func (c *MessageComposer) Callback() SubmitFunc {
	return func(ctx context.Context, values FieldValues) Verdict {
		if _, err := c.Submit(ctx, values); err != nil {
			return Reject(err)
		}
		return Accept()
	}
}

// Submit checks the message field is valid JSON and sends one send_message
// request.
//
// A malformed message is reported through the notifier and returned as a
// *[ValidationError]; nothing is sent. Otherwise Submit returns at once with
// a [Pending] handle while the request runs in the background. The request
// outlives ctx's cancellation but keeps its values. When it resolves the
// notifier shows either "Message sent!" or the remote error code and
// message. Failures are not retried.
func (c *MessageComposer) Submit(ctx context.Context, values FieldValues) (*Pending, error) {
	if err := checkJSON(values[fieldMessage]); err != nil {
		verr := &ValidationError{Field: fieldMessage, Err: err}
		c.notifier.NotifyError(verr.Error())
		return nil, verr
	}

	msg := OutboundMessage{
		RecipientClass: values[fieldRecipientClass],
		RecipientKey:   values[fieldRecipientKey],
		Sender:         values[fieldSender],
		Message:        values[fieldMessage],
	}

	p := newPending()
	reqCtx := context.WithoutCancel(ctx)

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()

		_, err := c.ch.Request(reqCtx, sendMessageMethod, msg)
		c.report(msg, err)
		p.finish(err)
	}()

	c.logger.Debug("message dispatched",
		"recipient_class", msg.RecipientClass,
		"recipient_key", msg.RecipientKey,
		"sender", msg.Sender,
	)
	return p, nil
}

// Wait blocks until every dispatched request has resolved.
func (c *MessageComposer) Wait() {
	c.inflight.Wait()
}

// report turns a request outcome into exactly one notification.
func (c *MessageComposer) report(msg OutboundMessage, err error) {
	if err == nil {
		c.notifier.NotifySuccess("Message sent!")
		return
	}

	var coded CodedError
	if errors.As(err, &coded) {
		c.logger.Warn("send_message failed",
			"code", coded.Code(),
			"error", coded.Message(),
			"recipient_key", msg.RecipientKey,
		)
		c.notifier.NotifyError(fmt.Sprintf("Error %d: %s", coded.Code(), coded.Message()))
		return
	}

	c.logger.Warn("send_message failed", "error", err.Error(), "recipient_key", msg.RecipientKey)
	c.notifier.NotifyError("Error: " + err.Error())
}

// checkJSON reports whether s parses as JSON. The parsed value is discarded.
func checkJSON(s string) error {
	var v any
	return json.Unmarshal([]byte(s), &v)
}
