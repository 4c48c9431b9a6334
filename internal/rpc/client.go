package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const (
	defaultDialTimeout = 10 * time.Second

	// readLimit bounds a single incoming frame.
	readLimit = 1 << 20
)

// ErrNotConnected is returned by Request before Connect succeeded or after
// the connection closed.
var ErrNotConnected = errors.New("channel not connected")

// Client is the dialing side of the channel.
//
// A Client connects once; it does not reconnect. Callbacks registered with
// Handle, OnOpen and OnClose run on the client's read goroutine and must not
// block for long. Panics in callbacks are recovered and logged.
type Client struct {
	serviceURL  string
	action      string
	params      map[string]string
	dialTimeout time.Duration
	httpClient  *http.Client
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	router *router

	mu        sync.Mutex
	conn      *websocket.Conn
	handlers  map[string]func(json.RawMessage)
	onOpen    func()
	onClose   func(code int, reason string)
	connected bool
	closed    bool
}

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithContextParams adds key/value pairs sent as query parameters on dial.
func WithContextParams(params map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range params {
			c.params[k] = v
		}
	}
}

// WithDialTimeout bounds the WebSocket handshake.
func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}

// WithHTTPClient sets the HTTP client used for the handshake.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClientLogger sets the client's logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient returns a client for the service at serviceURL that will open
// the stream named action. Nothing is dialed until Connect.
func NewClient(serviceURL, action string, opts ...ClientOption) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		serviceURL:  serviceURL,
		action:      action,
		params:      map[string]string{},
		dialTimeout: defaultDialTimeout,
		logger:      slog.Default(),
		ctx:         ctx,
		cancel:      cancel,
		router:      newRouter(),
		handlers:    map[string]func(json.RawMessage){},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle subscribes fn to notifications named event, replacing any earlier
// subscription for the same event.
func (c *Client) Handle(event string, fn func(payload json.RawMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = fn
}

// OnOpen registers the callback fired when Connect succeeds.
func (c *Client) OnOpen(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onOpen = fn
}

// OnClose registers the callback fired once when the connection closes or
// fails to open.
func (c *Client) OnClose(fn func(code int, reason string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = fn
}

// Connect dials the service and starts reading.
//
// On success the OnOpen callback fires. On failure the OnClose callback
// fires with an abnormal-closure code and the dial error as reason, and the
// error is returned.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected || c.closed {
		c.mu.Unlock()
		return errors.New("channel already used")
	}
	c.mu.Unlock()

	target, err := c.dialURL()
	if err != nil {
		c.shutdown(CloseAbnormal, err.Error())
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, target, &websocket.DialOptions{HTTPClient: c.httpClient})
	if err != nil {
		err = errors.Wrapf(err, "dial %s", c.serviceURL)
		c.shutdown(CloseAbnormal, err.Error())
		return err
	}
	conn.SetReadLimit(readLimit)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "client closing")
		return ErrNotConnected
	}
	c.conn = conn
	c.connected = true
	onOpen := c.onOpen
	c.mu.Unlock()

	c.logger.Info("channel opened", "service_url", c.serviceURL, "action", c.action)
	if onOpen != nil {
		c.invokeSafe("open callback", onOpen)
	}

	go c.readLoop(conn)
	return nil
}

// Request sends method with params and waits for the matching response.
//
// A remote failure is returned as *[Error]. If the connection closes while
// waiting, the error carries the close code and reason.
func (c *Client) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	conn := c.conn
	closed := c.closed
	c.mu.Unlock()
	if conn == nil || closed {
		return nil, ErrNotConnected
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s params", method)
	}

	id := uuid.NewString()
	ch := c.router.register(id)

	req := Request{
		JSONRPC: Version,
		ID:      json.RawMessage(strconv.Quote(id)),
		Method:  method,
		Params:  raw,
	}
	if err := wsjson.Write(ctx, conn, req); err != nil {
		c.router.cancel(id)
		return nil, errors.Wrapf(err, "write %s", method)
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-ctx.Done():
		c.router.cancel(id)
		return nil, ctx.Err()
	}
}

// Close closes the connection with a normal closure. The OnClose callback
// fires if it has not already.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close(websocket.StatusNormalClosure, "client closing")
	}
	c.shutdown(CloseNormal, "client closing")
	return err
}

// Pending returns the number of requests awaiting a response.
func (c *Client) Pending() int {
	return c.router.size()
}

func (c *Client) dialURL() (string, error) {
	u, err := url.Parse(c.serviceURL)
	if err != nil {
		return "", errors.Wrap(err, "parse service url")
	}
	q := u.Query()
	if c.action != "" {
		q.Set("action", c.action)
	}
	for k, v := range c.params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(c.ctx)
		if err != nil {
			code, reason := closeStatus(err)
			c.shutdown(code, reason)
			return
		}
		c.dispatch(conn, data)
	}
}

// dispatch routes one incoming frame.
func (c *Client) dispatch(conn *websocket.Conn, data []byte) {
	if gjson.GetBytes(data, "method").Exists() {
		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			c.logger.Warn("malformed notification", "error", err.Error())
			return
		}
		if !req.IsNotification() {
			// the client serves no methods
			resp := Response{JSONRPC: Version, ID: req.ID, Error: NewError(CodeMethodNotFound, "method not found: "+req.Method)}
			if err := wsjson.Write(c.ctx, conn, resp); err != nil {
				c.logger.Warn("failed to reject server request", "method", req.Method, "error", err.Error())
			}
			return
		}

		c.mu.Lock()
		fn := c.handlers[req.Method]
		c.mu.Unlock()
		if fn == nil {
			c.logger.Debug("unhandled notification", "event", req.Method)
			return
		}
		c.invokeSafe("handler "+req.Method, func() { fn(req.Params) })
		return
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn("malformed response", "error", err.Error())
		return
	}
	var id string
	if err := json.Unmarshal(resp.ID, &id); err != nil || !c.router.deliver(id, resp) {
		c.logger.Debug("response for unknown request", "id", string(resp.ID))
	}
}

// shutdown marks the client closed, fails pending requests and fires
// OnClose once.
func (c *Client) shutdown(code int, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	onClose := c.onClose
	c.mu.Unlock()

	c.cancel()
	c.router.failAll(&Error{ErrCode: code, Msg: reason})

	c.logger.Info("channel closed", "service_url", c.serviceURL, "code", code, "reason", reason)
	if onClose != nil {
		c.invokeSafe("close callback", func() { onClose(code, reason) })
	}
}

// closeStatus extracts the close code and reason from a read error.
func closeStatus(err error) (int, string) {
	var ce websocket.CloseError
	if errors.As(err, &ce) {
		return int(ce.Code), ce.Reason
	}
	return CloseAbnormal, "connection lost"
}

func (c *Client) invokeSafe(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error(what+" panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}
