package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/coder/websocket"
)

// Version is the JSON-RPC protocol version carried in every frame.
const Version = "2.0"

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
)

// Close codes reported to OnClose callbacks when the peer did not send one.
const (
	// CloseAbnormal is used when the connection failed or dropped without a
	// close frame.
	CloseAbnormal = int(websocket.StatusAbnormalClosure)

	// CloseNormal is used for orderly shutdown.
	CloseNormal = int(websocket.StatusNormalClosure)
)

// Request is a call or, when ID is empty, a notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether r expects no response.
func (r Request) IsNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

// Response answers a [Request] with the same ID.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object. It satisfies msgboard.CodedError.
type Error struct {
	ErrCode int             `json:"code"`
	Msg     string          `json:"message"`
	Details json.RawMessage `json:"data,omitempty"`
}

// NewError returns an error with code and message and no data.
func NewError(code int, message string) *Error {
	return &Error{ErrCode: code, Msg: message}
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.ErrCode, e.Msg)
}

// Code returns the numeric error code.
func (e *Error) Code() int { return e.ErrCode }

// Message returns the human readable message.
func (e *Error) Message() string { return e.Msg }

// Data returns the error data, or nil.
func (e *Error) Data() json.RawMessage { return e.Details }
