package msgboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jpalmerr/msgboard/dashboard"
	"github.com/jpalmerr/msgboard/internal/form"
	"github.com/jpalmerr/msgboard/internal/notify"
	"github.com/jpalmerr/msgboard/internal/rpc"
	"github.com/jpalmerr/msgboard/internal/server"
)

const (
	defaultMethod      = "stream_messages"
	defaultPort        = 8080
	defaultDialTimeout = 10 * time.Second

	// composeAction is where the rendered form posts.
	composeAction = "/api/compose"

	// accountParam carries the account to the service on dial.
	accountParam = "account"
)

// Console is the message console: it connects to a message service, keeps
// the widget's status tab in step with the channel and serves the widget
// over HTTP.
//
// The typical lifecycle is:
//
//	c, err := msgboard.New(
//	    msgboard.WithServiceURL("ws://localhost:9501/message"),
//	    msgboard.WithAccount("7"),
//	)
//	if err != nil {
//	    slog.Error("failed to create console", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	c.Start(ctx) // blocks until context cancelled
type Console struct {
	title          string
	serviceURL     string
	method         string
	account        string
	context        map[string]string
	port           int
	dialTimeout    time.Duration
	logger         *slog.Logger
	phaseCallbacks []func(Phase)

	mu     sync.Mutex
	widget *Widget
}

// New creates a [Console] with the given options.
//
// [WithServiceURL] is required. Defaults:
//   - Method: "stream_messages"
//   - Port: 8080
//   - Dial timeout: 10 seconds
func New(opts ...Option) (*Console, error) {
	cfg := &consoleConfig{
		method:      defaultMethod,
		context:     map[string]string{},
		port:        defaultPort,
		dialTimeout: defaultDialTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.serviceURL == "" {
		return nil, errors.New("service url is required")
	}
	if _, ok := cfg.context[accountParam]; ok && cfg.account != "" {
		return nil, fmt.Errorf("context key %q conflicts with the configured account", accountParam)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Console{
		title:          cfg.title,
		serviceURL:     cfg.serviceURL,
		method:         cfg.method,
		account:        cfg.account,
		context:        cfg.context,
		port:           cfg.port,
		dialTimeout:    cfg.dialTimeout,
		logger:         logger,
		phaseCallbacks: cfg.phaseCallbacks,
	}, nil
}

// Start connects to the service and serves the console.
//
// Start blocks until ctx is cancelled. The channel is dialed once; a failed
// dial shows up on the status tab as an error phase rather than as a
// returned error. On shutdown the channel is closed and in-flight sends are
// awaited.
//
// Returns nil on graceful shutdown. Returns an error if the widget cannot be
// built or the HTTP server fails to start.
func (c *Console) Start(ctx context.Context) error {
	c.logger.Info("msgboard starting", "service_url", c.serviceURL, "method", c.method)
	c.logger.Info("console available", "url", fmt.Sprintf("http://localhost:%d", c.port))

	if ctx.Err() != nil {
		return nil
	}

	feed := notify.NewMemoryFeed(0)
	snaps := notify.NewSnapshots()

	// the widget and the form renderer share one DOM
	var domLock sync.Mutex
	renderer := form.NewRenderer(
		form.WithLock(&domLock),
		form.WithLogger(c.logger),
		form.WithAction(composeAction),
		// form redraws change the widget markup too
		form.WithOnDraw(func() {
			if w := c.Widget(); w != nil {
				snaps.Set(w.HTML())
			}
		}),
	)

	client := rpc.NewClient(c.serviceURL, c.method,
		rpc.WithContextParams(c.dialParams()),
		rpc.WithDialTimeout(c.dialTimeout),
		rpc.WithClientLogger(c.logger),
	)

	widget, err := NewWidget(client, htmlForms{r: renderer}, feed, WidgetConfig{
		Account:  c.account,
		Logger:   c.logger,
		Lock:     &domLock,
		OnPhase:  c.firePhase,
		OnChange: snaps.Set,
	})
	if err != nil {
		_ = client.Close()
		return err
	}
	c.mu.Lock()
	c.widget = widget
	c.mu.Unlock()

	httpServer := server.NewServer(snaps, feed, renderer, c.port, dashboard.Assets, c.title, c.logger)
	if err := httpServer.Start(ctx); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := client.Connect(gctx); err != nil {
			c.logger.Warn("channel connect failed", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		_ = client.Close()
		widget.Composer().Wait()
		return nil
	})

	err = g.Wait()
	c.logger.Info("msgboard stopped")
	return err
}

// dialParams returns the context parameters plus the account.
func (c *Console) dialParams() map[string]string {
	params := maps.Clone(c.context)
	if c.account != "" {
		params[accountParam] = c.account
	}
	return params
}

// firePhase runs every phase callback, isolating panics per callback.
func (c *Console) firePhase(ph Phase) {
	for _, cb := range c.phaseCallbacks {
		invokePhaseSafe(cb, ph, c.logger)
	}
}

func invokePhaseSafe(cb func(Phase), ph Phase, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("phase callback panicked",
				"correlation_id", uuid.NewString(),
				"panic", r,
				"phase", ph.Kind.String(),
			)
		}
	}()
	cb(ph)
}

// Widget returns the running widget, or nil before [Console.Start] has
// built it.
func (c *Console) Widget() *Widget {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.widget
}

// ServiceURL returns the configured service URL.
func (c *Console) ServiceURL() string { return c.serviceURL }

// Method returns the name of the stream opened on the service.
func (c *Console) Method() string { return c.method }

// Account returns the configured account, or "" if none.
func (c *Console) Account() string { return c.account }

// Context returns a copy of the parameters sent on dial, excluding the
// account.
func (c *Console) Context() map[string]string { return maps.Clone(c.context) }

// Port returns the configured HTTP port.
func (c *Console) Port() int { return c.port }

// Title returns the configured page title.
func (c *Console) Title() string { return c.title }

// DialTimeout returns the configured handshake timeout.
func (c *Console) DialTimeout() time.Duration { return c.dialTimeout }
