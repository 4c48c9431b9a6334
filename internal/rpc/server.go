package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tidwall/sjson"
)

// HandlerFunc serves one method. Returning an *[Error] sends it as is; any
// other error is sent as an internal error with its message.
type HandlerFunc func(ctx context.Context, peer *Peer, params json.RawMessage) (any, error)

// ConnectFunc runs when a peer connects, before any request is read.
// Returning an error closes the connection with a policy-violation code and
// the error text as reason.
type ConnectFunc func(ctx context.Context, peer *Peer) error

// Server is the accepting side of the channel. It implements http.Handler.
type Server struct {
	logger *slog.Logger

	mu        sync.RWMutex
	methods   map[string]HandlerFunc
	onConnect ConnectFunc
	peers     map[*Peer]struct{}
}

// NewServer returns a server with no methods registered.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:  logger,
		methods: map[string]HandlerFunc{},
		peers:   map[*Peer]struct{}{},
	}
}

// Register serves method with h, replacing any earlier handler.
func (s *Server) Register(method string, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods[method] = h
}

// OnConnect sets the hook run for every new peer.
func (s *Server) OnConnect(fn ConnectFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnect = fn
}

// Peers returns the connected peers.
func (s *Server) Peers() []*Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Peer, 0, len(s.peers))
	for p := range s.peers {
		out = append(out, p)
	}
	return out
}

// Broadcast pushes event to every connected peer. Failed pushes are logged.
func (s *Server) Broadcast(ctx context.Context, event string, params any) {
	for _, p := range s.Peers() {
		if err := p.Push(ctx, event, params); err != nil {
			s.logger.Warn("broadcast failed", "peer", p.ID(), "event", event, "error", err.Error())
		}
	}
}

// ServeHTTP upgrades the request and serves the peer until it disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err.Error())
		return
	}
	conn.SetReadLimit(readLimit)

	ctx := r.Context()
	peer := &Peer{id: uuid.NewString(), conn: conn, query: r.URL.Query()}

	s.mu.RLock()
	onConnect := s.onConnect
	s.mu.RUnlock()
	if onConnect != nil {
		if err := onConnect(ctx, peer); err != nil {
			s.logger.Info("peer refused", "peer", peer.id, "reason", err.Error())
			_ = conn.Close(websocket.StatusPolicyViolation, err.Error())
			return
		}
	}

	s.mu.Lock()
	s.peers[peer] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.peers, peer)
		s.mu.Unlock()
	}()

	s.logger.Debug("peer connected", "peer", peer.id, "action", peer.Query("action"))

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			code, reason := closeStatus(err)
			s.logger.Debug("peer disconnected", "peer", peer.id, "code", code, "reason", reason)
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.serve(ctx, peer, data)
		}()
	}
}

// serve handles one incoming frame.
func (s *Server) serve(ctx context.Context, peer *Peer, data []byte) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		peer.reply(ctx, Response{JSONRPC: Version, ID: json.RawMessage("null"), Error: NewError(CodeParseError, "parse error")}, s.logger)
		return
	}
	if req.Method == "" {
		if !req.IsNotification() {
			peer.reply(ctx, Response{JSONRPC: Version, ID: req.ID, Error: NewError(CodeInvalidRequest, "method is required")}, s.logger)
		}
		return
	}

	s.mu.RLock()
	h := s.methods[req.Method]
	s.mu.RUnlock()

	if h == nil {
		if !req.IsNotification() {
			peer.reply(ctx, Response{JSONRPC: Version, ID: req.ID, Error: NewError(CodeMethodNotFound, "method not found: "+req.Method)}, s.logger)
		}
		return
	}

	result, err := s.call(ctx, h, peer, req)
	if req.IsNotification() {
		return
	}

	resp := Response{JSONRPC: Version, ID: req.ID}
	if err != nil {
		var rpcErr *Error
		if errors.As(err, &rpcErr) {
			resp.Error = rpcErr
		} else {
			resp.Error = NewError(CodeInternal, err.Error())
		}
	} else {
		raw, mErr := json.Marshal(result)
		if mErr != nil {
			resp.Error = NewError(CodeInternal, "encode result: "+mErr.Error())
		} else {
			resp.Result = raw
		}
	}
	peer.reply(ctx, resp, s.logger)
}

// call runs h with panic recovery.
func (s *Server) call(ctx context.Context, h HandlerFunc, peer *Peer, req Request) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			s.logger.Error("method panic",
				"correlation_id", correlationID,
				"method", req.Method,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = NewError(CodeInternal, fmt.Sprintf("internal error (correlation_id: %s)", correlationID))
		}
	}()
	return h(ctx, peer, req.Params)
}

// Peer is one connected client of a [Server].
type Peer struct {
	id    string
	conn  *websocket.Conn
	query url.Values
}

// ID returns the peer's unique id.
func (p *Peer) ID() string { return p.id }

// Query returns the dial query parameter key.
func (p *Peer) Query(key string) string { return p.query.Get(key) }

// Push sends a notification named event to the peer.
func (p *Peer) Push(ctx context.Context, event string, params any) error {
	frame, err := sjson.SetBytes([]byte(`{"jsonrpc":"2.0"}`), "method", event)
	if err != nil {
		return errors.Wrap(err, "build notification")
	}
	if params != nil {
		frame, err = sjson.SetBytes(frame, "params", params)
		if err != nil {
			return errors.Wrapf(err, "encode %s params", event)
		}
	}
	return errors.Wrapf(p.conn.Write(ctx, websocket.MessageText, frame), "push %s", event)
}

// Close closes the peer's connection with code and reason.
func (p *Peer) Close(code int, reason string) error {
	return p.conn.Close(websocket.StatusCode(code), reason)
}

func (p *Peer) reply(ctx context.Context, resp Response, logger *slog.Logger) {
	if err := wsjson.Write(ctx, p.conn, resp); err != nil {
		logger.Warn("failed to write response", "peer", p.id, "error", err.Error())
	}
}
