package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jpalmerr/msgboard/internal/form"
	"github.com/jpalmerr/msgboard/internal/notify"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "Messages"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"

	// maxFormBytes bounds a compose submission body.
	maxFormBytes = 1 << 20
)

// WidgetSource supplies the current widget markup and its updates.
type WidgetSource interface {
	Latest() string
	Subscribe() <-chan string
	Unsubscribe(ch <-chan string)
}

// FormSubmitter accepts composer submissions.
type FormSubmitter interface {
	Submit(ctx context.Context, values map[string]string) (form.Result, error)
}

// Server handles HTTP requests for the console page and API.
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	widget     WidgetSource
	feed       notify.Feed
	forms      FormSubmitter
	port       int
	httpServer *http.Server
	assets     fs.FS
	title      string
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - widget: Source of the widget markup
//   - feed: Notification feed
//   - forms: Receiver of composer submissions
//   - port: TCP port to listen on
//   - assets: Embedded filesystem containing the page assets (may be nil)
//   - title: Page title (defaults to "Messages" if empty)
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(widget WidgetSource, feed notify.Feed, forms FormSubmitter, port int, assets fs.FS, title string, logger *slog.Logger) *Server {
	return &Server{
		widget: widget,
		feed:   feed,
		forms:  forms,
		port:   port,
		assets: assets,
		title:  title,
		logger: logger,
	}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/widget", s.handleWidget)
	mux.HandleFunc("/api/notifications", s.handleNotifications)
	mux.HandleFunc("/api/compose", s.handleCompose)
	mux.HandleFunc("/api/sse", s.handleSSE)

	if s.assets != nil {
		mux.HandleFunc("/", s.handlePage)
	}
	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler: s.Handler(),
		// request contexts derive from ctx so SSE handlers end on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// handlePage serves the console page.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Page not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	title := s.title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write page response", "error", err)
	}
}

// handleWidget returns the current widget markup.
func (s *Server) handleWidget(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write([]byte(s.widget.Latest())); err != nil {
		s.logger.Error("failed to write widget response", "error", err)
	}
}

// handleNotifications returns the retained notifications as JSON.
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, s.feed.Recent())
}

// composeResponse is the body returned by /api/compose.
type composeResponse struct {
	Accepted bool     `json:"accepted"`
	Errors   []string `json:"errors"`
}

// handleCompose feeds a form submission to the composer form.
//
// The body is either form-encoded or a JSON object of strings. Returns 200
// when accepted and 422 when rejected; acceptance only means the message was
// dispatched, its outcome arrives as a notification.
func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	values, err := readValues(r)
	if err != nil {
		http.Error(w, "Bad request: "+err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.forms.Submit(r.Context(), values)
	if errors.Is(err, form.ErrNotRendered) {
		http.Error(w, "Form not ready", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		s.logger.Error("form submit failed", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	body := composeResponse{Accepted: res.Accepted, Errors: res.Errors}
	if body.Errors == nil {
		body.Errors = []string{}
	}
	status := http.StatusOK
	if !res.Accepted {
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, body)
}

// readValues decodes a compose body.
func readValues(r *http.Request) (map[string]string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var values map[string]string
		if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		return values, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	values := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		values[k] = r.PostForm.Get(k)
	}
	return values, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// widgetEvent is the SSE payload of a widget update.
type widgetEvent struct {
	HTML string `json:"html"`
}

// handleSSE streams widget and notification updates via Server-Sent Events.
//
// Events are named "widget" (payload {"html": ...}) and "notification"
// (payload a notification object). The current widget is sent first.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(event string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			// skip unencodable payloads
			return nil
		}

		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	widgetCh := s.widget.Subscribe()
	defer s.widget.Unsubscribe(widgetCh)
	noteCh := s.feed.Subscribe()
	defer s.feed.Unsubscribe(noteCh)

	if err := writeAndFlush("widget", widgetEvent{HTML: s.widget.Latest()}); err != nil {
		return
	}

	for {
		select {
		case markup, ok := <-widgetCh:
			if !ok {
				return
			}
			if err := writeAndFlush("widget", widgetEvent{HTML: markup}); err != nil {
				return
			}

		case n, ok := <-noteCh:
			if !ok {
				return
			}
			if err := writeAndFlush("notification", n); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on client disconnect and on server shutdown
			return
		}
	}
}
