package msgboard

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/jpalmerr/msgboard/internal/dom"
)

// messageEvent is the push event announcing a new message.
const messageEvent = "message"

// WidgetConfig holds the optional settings of a [Widget].
type WidgetConfig struct {
	// Account is the default sender shown in the composer.
	Account string

	// Logger receives widget events. Defaults to slog.Default().
	Logger *slog.Logger

	// Lock guards the widget's DOM. Pass the same lock to a form renderer
	// drawing into the widget so both serialize on it. Defaults to a
	// private mutex.
	Lock sync.Locker

	// OnPhase is called after every phase change.
	OnPhase func(Phase)

	// OnChange is called with the widget markup after every re-render.
	OnChange func(html string)
}

// Widget is the message console widget: a status tab driven by the
// channel's lifecycle and a compose tab holding the message form.
//
// Widget owns its DOM and the channel's connection [Phase]. Channel
// callbacks may arrive on any goroutine; the widget serializes them.
type Widget struct {
	mu       sync.Locker
	root     *goquery.Selection
	panel    *StatusPanel
	composer *MessageComposer
	notifier Notifier
	logger   *slog.Logger

	phase    Phase
	onPhase  func(Phase)
	onChange func(string)
}

// NewWidget builds the widget DOM, draws the composer form into the compose
// tab through renderer, shows the Connecting status and subscribes to ch.
//
// The compose tab is drawn once; later channel events only redraw the
// status tab. Returns an error if the form cannot be rendered.
func NewWidget(ch Channel, renderer FormRenderer, notifier Notifier, cfg WidgetConfig) (*Widget, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lock := cfg.Lock
	if lock == nil {
		lock = &sync.Mutex{}
	}

	statusHeader := dom.El("a", "href", "#server_status", "data-toggle", "tab")
	statusPane := dom.El("div", "class", "tab-pane active", "id", "server_status")
	composePane := dom.El("div", "class", "tab-pane", "id", "send_message")

	root := dom.NewContainer("class", "msgboard-widget")
	root.AppendNodes(
		dom.Append(dom.El("ul", "class", "nav nav-tabs", "data-tabs", "tabs"),
			dom.Append(dom.El("li", "class", "active"), statusHeader),
			dom.Append(dom.El("li"),
				dom.Append(dom.El("a", "href", "#send_message", "data-toggle", "tab"),
					dom.Glyph("pencil"), dom.Text(" Send message")),
			),
		),
		dom.Append(dom.El("div", "class", "tab-content"), statusPane, composePane),
	)

	w := &Widget{
		mu:       lock,
		root:     root,
		panel:    NewStatusPanel(root.FindNodes(statusHeader), root.FindNodes(statusPane)),
		composer: NewMessageComposer(ch, notifier, cfg.Account, logger),
		notifier: notifier,
		logger:   logger,
		onPhase:  cfg.OnPhase,
		onChange: cfg.OnChange,
	}

	if err := renderer.Render(w.composer.Spec(), root.FindNodes(composePane)); err != nil {
		return nil, fmt.Errorf("failed to render composer: %w", err)
	}

	w.transition(Connecting())

	ch.Handle(messageEvent, w.handleMessage)
	ch.OnOpen(func() { w.transition(Connected()) })
	ch.OnClose(func(code int, reason string) { w.transition(Errored(code, reason)) })

	return w, nil
}

// Phase returns the current connection phase.
func (w *Widget) Phase() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

// HTML returns the widget's current markup.
func (w *Widget) HTML() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return dom.Outer(w.root)
}

// Composer returns the widget's message composer.
func (w *Widget) Composer() *MessageComposer { return w.composer }

// Panel returns the status tab's panel. Callers drawing into it must hold
// the widget's lock.
func (w *Widget) Panel() *StatusPanel { return w.panel }

// transition records ph, redraws the status tab and fires observers.
func (w *Widget) transition(ph Phase) {
	w.mu.Lock()
	w.phase = ph
	w.panel.ShowPhase(ph)
	markup := dom.Outer(w.root)
	w.mu.Unlock()

	attrs := []any{"phase", ph.Kind.String()}
	if ph.Kind == PhaseErrored {
		w.logger.Warn("channel closed", append(attrs, "code", ph.Code, "reason", ph.Reason)...)
	} else {
		w.logger.Info("channel phase changed", attrs...)
	}

	if w.onPhase != nil {
		w.invokeSafe("phase callback", func() { w.onPhase(ph) })
	}
	if w.onChange != nil {
		w.invokeSafe("change callback", func() { w.onChange(markup) })
	}
}

// handleMessage announces a pushed message. The payload is not inspected.
func (w *Widget) handleMessage(payload json.RawMessage) {
	w.logger.Debug("message pushed", "bytes", len(payload))
	w.notifier.NotifySuccess("New message received!")
}

// invokeSafe runs fn, logging and swallowing any panic under a correlation
// id.
func (w *Widget) invokeSafe(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error(what+" panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}
