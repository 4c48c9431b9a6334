// Package mockbackend is an in-process message service for trying the
// console without a real backend.
//
// It serves the "stream_messages" stream: a connection must carry a numeric
// account, send_message checks its arguments and every delivered message is
// pushed as a "message" event to the sender and to the recipient user.
package mockbackend

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/jpalmerr/msgboard/internal/rpc"
)

// CodeBadRequest is returned for arguments the service refuses.
const CodeBadRequest = 400

// ErrBadAccount refuses a connection without a numeric account.
var ErrBadAccount = errors.New("Bad account")

// Delivered is the payload of a "message" push.
type Delivered struct {
	MessageID      string          `json:"message_id"`
	Sender         string          `json:"sender"`
	RecipientClass string          `json:"recipient_class"`
	RecipientKey   string          `json:"recipient_key"`
	MessageType    string          `json:"message_type"`
	Payload        json.RawMessage `json:"payload"`
}

type sendParams struct {
	RecipientClass string `json:"recipient_class"`
	RecipientKey   string `json:"recipient_key"`
	Sender         string `json:"sender"`
	Message        string `json:"message"`
}

// Backend is the mock service. It is an http.Handler accepting WebSocket
// upgrades.
type Backend struct {
	srv    *rpc.Server
	logger *slog.Logger
}

// New returns a ready backend.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Backend{srv: rpc.NewServer(logger), logger: logger}
	b.srv.OnConnect(b.accept)
	b.srv.Register("send_message", b.sendMessage)
	return b
}

// ServeHTTP implements http.Handler.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.srv.ServeHTTP(w, r)
}

func (b *Backend) accept(_ context.Context, p *rpc.Peer) error {
	if _, err := strconv.ParseInt(p.Query("account"), 10, 64); err != nil {
		return ErrBadAccount
	}
	b.logger.Info("exchange opened", "peer", p.ID(), "account", p.Query("account"))
	return nil
}

func (b *Backend) sendMessage(ctx context.Context, from *rpc.Peer, raw json.RawMessage) (any, error) {
	var params sendParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, rpc.NewError(rpc.CodeInvalidParams, err.Error())
	}
	if !gjson.Valid(params.Message) {
		return nil, rpc.NewError(CodeBadRequest, "Corrupted message")
	}
	if _, err := strconv.ParseInt(params.RecipientKey, 10, 64); err != nil {
		return nil, rpc.NewError(CodeBadRequest, "Bad recipient key")
	}
	if _, err := strconv.ParseInt(params.Sender, 10, 64); err != nil {
		return nil, rpc.NewError(CodeBadRequest, "Bad sender")
	}

	msg := Delivered{
		MessageID:      uuid.NewString(),
		Sender:         params.Sender,
		RecipientClass: params.RecipientClass,
		RecipientKey:   params.RecipientKey,
		MessageType:    "message",
		Payload:        json.RawMessage(params.Message),
	}

	for _, p := range b.recipients(from, params) {
		if err := p.Push(ctx, "message", msg); err != nil {
			b.logger.Warn("delivery failed", "peer", p.ID(), "error", err.Error())
		}
	}

	b.logger.Info("message delivered",
		"message_id", msg.MessageID,
		"sender", msg.Sender,
		"recipient_class", msg.RecipientClass,
		"recipient_key", msg.RecipientKey,
	)
	return "ok", nil
}

// recipients returns the sender's connection plus, for user messages, every
// connection of the recipient account.
func (b *Backend) recipients(from *rpc.Peer, params sendParams) []*rpc.Peer {
	out := []*rpc.Peer{from}
	if params.RecipientClass != "user" {
		return out
	}
	for _, p := range b.srv.Peers() {
		if p != from && p.Query("account") == params.RecipientKey {
			out = append(out, p)
		}
	}
	return out
}
