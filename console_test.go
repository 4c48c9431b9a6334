package msgboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/msgboard/internal/rpc"
)

// freePort returns a TCP port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

// phaseWaiter collects phases and lets tests wait for a given kind.
type phaseWaiter struct {
	ch chan Phase
}

func newPhaseWaiter() *phaseWaiter { return &phaseWaiter{ch: make(chan Phase, 16)} }

func (w *phaseWaiter) record(ph Phase) { w.ch <- ph }

func (w *phaseWaiter) waitFor(t *testing.T, kind PhaseKind) Phase {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ph := <-w.ch:
			if ph.Kind == kind {
				return ph
			}
		case <-deadline:
			t.Fatalf("phase %s not reached", kind)
			return Phase{}
		}
	}
}

// startConsole runs c until the test ends.
func startConsole(t *testing.T, c *Console) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("Start() did not return after cancel")
		}
	})
}

// backend is a message service that records send_message calls.
type backend struct {
	srv   *rpc.Server
	ts    *httptest.Server
	mu    sync.Mutex
	sent  []OutboundMessage
	query url.Values
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{srv: rpc.NewServer(testLogger())}
	b.srv.OnConnect(func(_ context.Context, p *rpc.Peer) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.query = url.Values{"action": {p.Query("action")}, "account": {p.Query("account")}, "gamespace": {p.Query("gamespace")}}
		return nil
	})
	b.srv.Register("send_message", func(_ context.Context, _ *rpc.Peer, params json.RawMessage) (any, error) {
		var msg OutboundMessage
		if err := json.Unmarshal(params, &msg); err != nil {
			return nil, rpc.NewError(rpc.CodeInvalidParams, err.Error())
		}
		if msg.RecipientKey == "404" {
			return nil, rpc.NewError(404, "recipient not found")
		}
		b.mu.Lock()
		b.sent = append(b.sent, msg)
		b.mu.Unlock()
		return "ok", nil
	})
	b.ts = httptest.NewServer(b.srv)
	t.Cleanup(b.ts.Close)
	return b
}

func (b *backend) url() string { return "ws" + strings.TrimPrefix(b.ts.URL, "http") }

func (b *backend) messages() []OutboundMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]OutboundMessage(nil), b.sent...)
}

// waitNotification polls the console's feed until text shows up.
func waitNotification(t *testing.T, base, text string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(base + "/api/notifications")
		if err == nil {
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if strings.Contains(string(body), text) {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("notification %q not shown", text)
}

func TestConsole_StartReturnsOnCancelledContext(t *testing.T) {
	c, err := New(WithServiceURL(testServiceURL), WithPort(freePort(t)), WithLogger(testLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, c.Start(ctx))
	assert.Nil(t, c.Widget())
}

func TestConsole_ConnectsAndSends(t *testing.T) {
	b := newBackend(t)
	phases := newPhaseWaiter()
	port := freePort(t)

	c, err := New(
		WithServiceURL(b.url()),
		WithAccount("7"),
		WithContext(map[string]string{"gamespace": "1"}),
		WithPort(port),
		WithTitle("Inbox"),
		WithLogger(testLogger()),
		WithPhaseCallback(phases.record),
	)
	require.NoError(t, err)
	startConsole(t, c)

	phases.waitFor(t, PhaseConnected)
	require.NotNil(t, c.Widget())
	assert.Contains(t, c.Widget().HTML(), "label-success")

	b.mu.Lock()
	assert.Equal(t, "stream_messages", b.query.Get("action"))
	assert.Equal(t, "7", b.query.Get("account"))
	assert.Equal(t, "1", b.query.Get("gamespace"))
	b.mu.Unlock()

	base := fmt.Sprintf("http://localhost:%d", port)

	page, err := http.Get(base + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(page.Body)
	_ = page.Body.Close()
	assert.Contains(t, string(body), "<title>Inbox</title>")

	form := url.Values{
		"recipient_class": {"user"},
		"recipient_key":   {"42"},
		"sender":          {"7"},
		"message":         {`{"text":"hi"}`},
	}
	resp, err := http.PostForm(base+"/api/compose", form)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	waitNotification(t, base, "Message sent!")
	assert.Equal(t, []OutboundMessage{{
		RecipientClass: "user",
		RecipientKey:   "42",
		Sender:         "7",
		Message:        `{"text":"hi"}`,
	}}, b.messages())

	form.Set("recipient_key", "404")
	resp, err = http.PostForm(base+"/api/compose", form)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	waitNotification(t, base, "Error 404: recipient not found")

	form.Set("message", "{oops")
	resp, err = http.PostForm(base+"/api/compose", form)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Len(t, b.messages(), 1)
}

func TestConsole_RejectedFormShowsErrors(t *testing.T) {
	b := newBackend(t)
	phases := newPhaseWaiter()
	port := freePort(t)

	c, err := New(WithServiceURL(b.url()), WithAccount("7"), WithPort(port), WithLogger(testLogger()), WithPhaseCallback(phases.record))
	require.NoError(t, err)
	startConsole(t, c)
	phases.waitFor(t, PhaseConnected)

	base := fmt.Sprintf("http://localhost:%d", port)
	resp, err := http.PostForm(base+"/api/compose", url.Values{
		"recipient_class": {"user"},
		"recipient_key":   {"abc"},
		"sender":          {"7"},
		"message":         {"{}"},
	})
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, err = http.Get(base + "/api/widget")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), "Recipient Key must be a number")
	assert.Contains(t, string(body), `value="abc"`)
	// the status tab survives the form redraw
	assert.Contains(t, string(body), "label-success")
	assert.Empty(t, b.messages())
}

func TestConsole_PushAnnouncesMessage(t *testing.T) {
	b := newBackend(t)
	phases := newPhaseWaiter()
	port := freePort(t)

	c, err := New(WithServiceURL(b.url()), WithPort(port), WithLogger(testLogger()), WithPhaseCallback(phases.record))
	require.NoError(t, err)
	startConsole(t, c)
	phases.waitFor(t, PhaseConnected)

	b.srv.Broadcast(context.Background(), "message", map[string]string{"sender": "3"})

	waitNotification(t, fmt.Sprintf("http://localhost:%d", port), "New message received!")
}

func TestConsole_DialFailureShowsError(t *testing.T) {
	// nothing listens on this port
	dead := freePort(t)
	phases := newPhaseWaiter()

	c, err := New(
		WithServiceURL(fmt.Sprintf("ws://127.0.0.1:%d/message", dead)),
		WithPort(freePort(t)),
		WithDialTimeout(time.Second),
		WithLogger(testLogger()),
		WithPhaseCallback(phases.record),
	)
	require.NoError(t, err)
	startConsole(t, c)

	ph := phases.waitFor(t, PhaseErrored)
	assert.Equal(t, rpc.CloseAbnormal, ph.Code)
	assert.Contains(t, c.Widget().HTML(), "Error 1006")
}

func TestConsole_RefusedAccount(t *testing.T) {
	b := newBackend(t)
	b.srv.OnConnect(func(_ context.Context, p *rpc.Peer) error {
		if p.Query("account") != "1" {
			return errors.New("Bad account")
		}
		return nil
	})
	phases := newPhaseWaiter()

	c, err := New(
		WithServiceURL(b.url()),
		WithAccount("7"),
		WithPort(freePort(t)),
		WithLogger(testLogger()),
		WithPhaseCallback(phases.record),
	)
	require.NoError(t, err)
	startConsole(t, c)

	// the handshake succeeds, then the service closes with a policy violation
	ph := phases.waitFor(t, PhaseErrored)
	assert.Equal(t, 1008, ph.Code)
	assert.Equal(t, "Bad account", ph.Reason)
}

func TestConsole_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	c, err := New(WithServiceURL(testServiceURL), WithPort(ln.Addr().(*net.TCPAddr).Port), WithLogger(testLogger()))
	require.NoError(t, err)

	err = c.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start HTTP server")
}

func TestConsole_PanickingPhaseCallback(t *testing.T) {
	b := newBackend(t)
	phases := newPhaseWaiter()

	c, err := New(
		WithServiceURL(b.url()),
		WithPort(freePort(t)),
		WithLogger(testLogger()),
		WithPhaseCallback(func(Phase) { panic("bad callback") }),
		WithPhaseCallback(phases.record),
	)
	require.NoError(t, err)
	startConsole(t, c)

	phases.waitFor(t, PhaseConnected)
}
