package msgboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentRequest struct {
	method    string
	params    any
	ctxAlive  bool
	sentValue OutboundMessage
}

// fakeChannel records requests and lets tests fire lifecycle events.
type fakeChannel struct {
	mu       sync.Mutex
	requests []sentRequest
	respond  func(method string, params any) (json.RawMessage, error)
	handlers map[string]func(json.RawMessage)
	onOpen   func()
	onClose  func(code int, reason string)
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{handlers: map[string]func(json.RawMessage){}}
}

func (f *fakeChannel) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	req := sentRequest{method: method, params: params, ctxAlive: ctx.Err() == nil}
	if msg, ok := params.(OutboundMessage); ok {
		req.sentValue = msg
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	respond := f.respond
	f.mu.Unlock()

	if respond == nil {
		return json.RawMessage(`"ok"`), nil
	}
	return respond(method, params)
}

func (f *fakeChannel) Handle(event string, fn func(json.RawMessage)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = fn
}

func (f *fakeChannel) OnOpen(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onOpen = fn
}

func (f *fakeChannel) OnClose(fn func(code int, reason string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onClose = fn
}

func (f *fakeChannel) open() {
	f.mu.Lock()
	fn := f.onOpen
	f.mu.Unlock()
	fn()
}

func (f *fakeChannel) close(code int, reason string) {
	f.mu.Lock()
	fn := f.onClose
	f.mu.Unlock()
	fn(code, reason)
}

func (f *fakeChannel) push(event string, payload string) {
	f.mu.Lock()
	fn := f.handlers[event]
	f.mu.Unlock()
	if fn != nil {
		fn(json.RawMessage(payload))
	}
}

func (f *fakeChannel) sent() []sentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentRequest(nil), f.requests...)
}

// fakeNotifier records notifications by level.
type fakeNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *fakeNotifier) NotifySuccess(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, text)
}

func (n *fakeNotifier) NotifyError(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, text)
}

func (n *fakeNotifier) snapshot() (successes, errs []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.successes...), append([]string(nil), n.errors...)
}

// remoteError is a coded failure as a service would report it.
type remoteError struct {
	code int
	msg  string
}

func (e *remoteError) Error() string         { return fmt.Sprintf("remote error %d: %s", e.code, e.msg) }
func (e *remoteError) Code() int             { return e.code }
func (e *remoteError) Message() string       { return e.msg }
func (e *remoteError) Data() json.RawMessage { return nil }

// fakeRenderer records what it was asked to draw.
type fakeRenderer struct {
	spec   FormSpec
	attach *goquery.Selection
	err    error
}

func (r *fakeRenderer) Render(spec FormSpec, attach *goquery.Selection) error {
	r.spec = spec
	r.attach = attach
	return r.err
}

var errBoom = errors.New("boom")
