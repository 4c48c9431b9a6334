package msgboard

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"
)

// consoleConfig holds mutable state during Console construction.
type consoleConfig struct {
	title          string
	serviceURL     string
	method         string
	account        string
	context        map[string]string
	port           int
	dialTimeout    time.Duration
	logger         *slog.Logger
	phaseCallbacks []func(Phase)
}

// Option is a function that configures a [Console] during construction.
//
// Option implements the functional options pattern. Options return an error
// if validation fails.
type Option func(*consoleConfig) error

// WithServiceURL sets the WebSocket URL of the backend service. Required.
//
// The scheme must be ws, wss, http or https.
//
// Example:
//
//	c, err := msgboard.New(
//	    msgboard.WithServiceURL("wss://message.example.com/stream"),
//	)
func WithServiceURL(raw string) Option {
	return func(cfg *consoleConfig) error {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid service url: %w", err)
		}
		switch u.Scheme {
		case "ws", "wss", "http", "https":
		default:
			return fmt.Errorf("service url scheme must be ws, wss, http or https, got %q", u.Scheme)
		}
		if u.Host == "" {
			return errors.New("service url must have a host")
		}
		cfg.serviceURL = raw
		return nil
	}
}

// WithMethod sets the name of the stream opened on the service.
// Defaults to "stream_messages".
func WithMethod(method string) Option {
	return func(cfg *consoleConfig) error {
		if method == "" {
			return errors.New("method cannot be empty")
		}
		cfg.method = method
		return nil
	}
}

// WithAccount sets the account the console acts for. It is the composer's
// default sender and is sent to the service as the "account" parameter.
//
// Returns an error if account is not numeric.
func WithAccount(account string) Option {
	return func(cfg *consoleConfig) error {
		if _, err := strconv.ParseInt(account, 10, 64); err != nil {
			return fmt.Errorf("account must be numeric, got %q", account)
		}
		cfg.account = account
		return nil
	}
}

// WithContext adds parameters sent to the service when the channel opens.
//
// Example:
//
//	c, err := msgboard.New(
//	    msgboard.WithServiceURL(url),
//	    msgboard.WithContext(map[string]string{"gamespace": "1"}),
//	)
func WithContext(params map[string]string) Option {
	return func(cfg *consoleConfig) error {
		for k, v := range params {
			if k == "" {
				return errors.New("context keys cannot be empty")
			}
			cfg.context[k] = v
		}
		return nil
	}
}

// WithPort sets the HTTP port for the console server. Defaults to 8080.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *consoleConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithTitle sets the page title. Defaults to "Messages".
func WithTitle(title string) Option {
	return func(cfg *consoleConfig) error {
		cfg.title = title
		return nil
	}
}

// WithDialTimeout bounds the channel handshake. Defaults to 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithDialTimeout(d time.Duration) Option {
	return func(cfg *consoleConfig) error {
		if d <= 0 {
			return errors.New("dial timeout must be positive")
		}
		cfg.dialTimeout = d
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *consoleConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithPhaseCallback registers a function called on every connection phase
// change, starting with Connecting.
//
// Callbacks run on the channel's goroutine and must not block. Panics are
// recovered and logged. Multiple callbacks run in registration order.
//
// Returns an error if the callback is nil.
func WithPhaseCallback(fn func(Phase)) Option {
	return func(cfg *consoleConfig) error {
		if fn == nil {
			return errors.New("phase callback cannot be nil")
		}
		cfg.phaseCallbacks = append(cfg.phaseCallbacks, fn)
		return nil
	}
}
