package form

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/jpalmerr/msgboard/internal/dom"
)

// ErrNotRendered is returned by Submit before any form was rendered.
var ErrNotRendered = errors.New("form not rendered")

// Renderer draws one form and handles its submissions.
//
// Renderer is safe for concurrent use. The lock set with [WithLock] guards
// both the renderer's state and the DOM it draws into; the submit callback
// runs without it.
type Renderer struct {
	mu     sync.Locker
	logger *slog.Logger
	action string
	onDraw func()

	spec   Spec
	attach *goquery.Selection
	values map[string]string
}

// Option configures a [Renderer].
type Option func(*Renderer)

// WithLock sets the lock shared with other writers of the same DOM.
func WithLock(l sync.Locker) Option {
	return func(r *Renderer) {
		if l != nil {
			r.mu = l
		}
	}
}

// WithLogger sets the renderer's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithAction sets the URL the drawn form posts to.
func WithAction(action string) Option {
	return func(r *Renderer) {
		r.action = action
	}
}

// WithOnDraw sets a function called after every redraw of the form. It runs
// without the lock held.
func WithOnDraw(fn func()) Option {
	return func(r *Renderer) {
		r.onDraw = fn
	}
}

// NewRenderer returns a renderer with no form drawn.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		mu:     &sync.Mutex{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render draws spec into attach, replacing whatever was there, and makes it
// the form handled by Submit. Field defaults become the initial values.
func (r *Renderer) Render(spec Spec, attach *goquery.Selection) error {
	if err := spec.validate(); err != nil {
		return err
	}

	values := make(map[string]string, len(spec.Fields))
	for _, f := range spec.Fields {
		v, err := defaultText(f)
		if err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		values[f.Name] = v
	}

	r.mu.Lock()
	r.spec = spec
	r.attach = attach
	r.values = values
	r.draw(nil)
	r.mu.Unlock()

	r.drawn()
	return nil
}

// Submit validates values against the drawn form and, if they pass, hands
// them to the spec's Submit callback.
//
// Fields missing from values are treated as empty; unknown keys are
// dropped. Whatever the outcome, the form is redrawn holding the submitted
// values, with the errors listed on rejection.
func (r *Renderer) Submit(ctx context.Context, values map[string]string) (Result, error) {
	r.mu.Lock()
	if r.attach == nil {
		r.mu.Unlock()
		return Result{}, ErrNotRendered
	}
	spec := r.spec
	collected := make(map[string]string, len(spec.Fields))
	for _, f := range spec.Fields {
		collected[f.Name] = values[f.Name]
	}
	r.values = collected

	var errs []string
	for _, f := range spec.Fields {
		if err := check(f, collected[f.Name]); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		r.draw(errs)
		r.mu.Unlock()
		r.drawn()
		r.logger.Debug("form rejected", "title", spec.Title, "errors", len(errs))
		return Result{Errors: errs}, nil
	}
	r.mu.Unlock()

	// copy so the callback cannot alias renderer state
	out := make(map[string]string, len(collected))
	for k, v := range collected {
		out[k] = v
	}
	err := spec.Submit(ctx, out)

	res := Result{Accepted: true}
	if err != nil {
		res = Result{Errors: []string{err.Error()}}
	}
	r.mu.Lock()
	r.draw(res.Errors)
	r.mu.Unlock()

	r.drawn()
	return res, nil
}

// drawn reports a redraw to the WithOnDraw hook. Caller must not hold r.mu.
func (r *Renderer) drawn() {
	if r.onDraw != nil {
		r.onDraw()
	}
}

// Values returns the values currently shown in the form.
func (r *Renderer) Values() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// draw replaces the attachment point's content. Caller holds r.mu.
func (r *Renderer) draw(errs []string) {
	class := r.spec.Class
	if class == "" {
		class = "form"
	}
	f := dom.El("form", "class", class, "method", "post")
	if r.action != "" {
		f.Attr = append(f.Attr, html.Attribute{Key: "action", Val: r.action})
	}

	if r.spec.Title != "" {
		dom.Append(f, dom.Append(dom.El("h4"), dom.Text(r.spec.Title)))
	}

	if len(errs) > 0 {
		list := dom.El("ul")
		for _, e := range errs {
			dom.Append(list, dom.Append(dom.El("li"), dom.Text(e)))
		}
		dom.Append(f, dom.Append(dom.El("div", "class", "alert alert-danger", "role", "alert"), list))
	}

	for _, field := range r.spec.Fields {
		dom.Append(f, r.group(field))
	}

	buttons := dom.El("div", "class", "form-group")
	for _, m := range r.spec.Methods {
		style := m.Style
		if style == "" {
			style = "default"
		}
		dom.Append(buttons, dom.Append(
			dom.El("button", "type", "submit", "class", "btn btn-"+style, "name", "method", "value", m.Name),
			dom.Text(m.Title),
		))
	}
	dom.Append(f, buttons)

	dom.Replace(r.attach, f)
}

// group draws a labelled input for field.
func (r *Renderer) group(field Field) *html.Node {
	id := "field-" + field.Name
	label := dom.Append(dom.El("label", "for", id), dom.Text(field.Title))

	var input *html.Node
	value := r.values[field.Name]
	switch field.Type {
	case TypeJSON:
		input = dom.El("textarea", "class", "form-control json", "name", field.Name, "id", id)
		if field.Height > 0 {
			input.Attr = append(input.Attr, html.Attribute{Key: "style", Val: fmt.Sprintf("height: %dpx", field.Height)})
		}
		dom.Append(input, dom.Text(value))
	default:
		input = dom.El("input", "type", "text", "class", "form-control", "name", field.Name, "id", id, "value", value)
	}
	if field.Validation != ValidateNone {
		input.Attr = append(input.Attr, html.Attribute{Key: "data-validation", Val: field.Validation})
	}

	class := "form-group"
	if field.Style != "" {
		class += " form-group-" + field.Style
	}
	return dom.Append(dom.El("div", "class", class), label, input)
}

// check applies the field's validation rule to v.
func check(f Field, v string) error {
	switch f.Validation {
	case ValidateNonEmpty:
		if strings.TrimSpace(v) == "" {
			return &FieldError{Field: f.Title, Msg: "must not be empty"}
		}
	case ValidateNumber:
		if _, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err != nil {
			return &FieldError{Field: f.Title, Msg: "must be a number"}
		}
	}
	return nil
}

// defaultText turns a field default into the text shown in its input.
func defaultText(f Field) (string, error) {
	switch v := f.Value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.RawMessage:
		return string(v), nil
	}

	b, err := json.Marshal(f.Value)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
