package msgboard

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/sjson"
)

// Validation names the check a form renderer applies to a field before the
// submit callback runs.
type Validation string

const (
	// ValidateNone accepts any value.
	ValidateNone Validation = ""

	// ValidateNonEmpty rejects empty or whitespace-only values.
	ValidateNonEmpty Validation = "non-empty"

	// ValidateNumber rejects values that are not whole decimal numbers.
	ValidateNumber Validation = "number"
)

// FieldType selects the input widget a form renderer draws for a field.
type FieldType string

const (
	// FieldText is a single-line text input.
	FieldText FieldType = "text"

	// FieldJSON is a multi-line input holding JSON text.
	FieldJSON FieldType = "json"
)

// FieldSpec describes one input of a declarative form.
type FieldSpec struct {
	// Name is the key the field's value is submitted under.
	Name string `json:"-"`

	Style      string     `json:"style"`
	Validation Validation `json:"validation"`
	Type       FieldType  `json:"type"`

	// Value is the default shown when the form is first drawn. JSON fields
	// take any JSON-encodable value; text fields take a string or nil.
	Value any `json:"value"`

	Title string `json:"title"`

	// Order positions the field; lower values are drawn first.
	Order int `json:"order"`

	// Height is the input height in pixels, zero for the renderer default.
	Height int `json:"height,omitempty"`
}

// Method is a submit button of a form.
type Method struct {
	Style string `json:"style"`
	Title string `json:"title"`
}

// FieldValues maps field names to the text the user entered.
type FieldValues map[string]string

// Verdict is the synchronous answer of a submit callback.
//
// Accepted only says the values passed local validation and the submission
// was dispatched; it says nothing about the outcome of any remote work the
// callback started. A rejected verdict tells the renderer to keep the form
// open with its current values.
type Verdict struct {
	Accepted bool
	Reason   error
}

// Accept returns an accepting verdict.
func Accept() Verdict { return Verdict{Accepted: true} }

// Reject returns a rejecting verdict carrying reason.
func Reject(reason error) Verdict { return Verdict{Reason: reason} }

// SubmitFunc is invoked by a form renderer with the collected field values.
type SubmitFunc func(ctx context.Context, values FieldValues) Verdict

// FormSpec is the declarative description handed to a [FormRenderer].
//
// Fields keep their declaration order; [SortFields] gives display order.
type FormSpec struct {
	Class    string
	Context  map[string]string
	Methods  map[string]Method
	Fields   []FieldSpec
	Title    string
	Callback SubmitFunc
}

// FormRenderer draws a [FormSpec] into an attachment point and calls the
// spec's Callback when the user submits.
type FormRenderer interface {
	Render(spec FormSpec, attach *goquery.Selection) error
}

// SortFields returns the fields in display order: ascending Order, ties kept
// in declaration order. The input slice is not modified.
func SortFields(fields []FieldSpec) []FieldSpec {
	out := make([]FieldSpec, len(fields))
	copy(out, fields)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

// Field returns the field named name.
func (f FormSpec) Field(name string) (FieldSpec, bool) {
	for _, fs := range f.Fields {
		if fs.Name == name {
			return fs, true
		}
	}
	return FieldSpec{}, false
}

// MarshalJSON encodes the spec in the renderer's wire shape, with "fields"
// as an object keyed by field name in declaration order.
func (f FormSpec) MarshalJSON() ([]byte, error) {
	out := []byte(`{}`)
	var err error
	set := func(path string, v any) {
		if err != nil {
			return
		}
		out, err = sjson.SetBytes(out, path, v)
	}

	set("class", f.Class)
	if f.Context == nil {
		set("context", map[string]string{})
	} else {
		set("context", f.Context)
	}

	names := make([]string, 0, len(f.Methods))
	for name := range f.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	set("methods", map[string]any{})
	for _, name := range names {
		set("methods."+escapePath(name), f.Methods[name])
	}

	set("fields", map[string]any{})
	for _, fs := range f.Fields {
		raw, mErr := json.Marshal(fs)
		if mErr != nil {
			return nil, mErr
		}
		if err == nil {
			out, err = sjson.SetRawBytes(out, "fields."+escapePath(fs.Name), raw)
		}
	}

	set("title", f.Title)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// escapePath escapes the characters sjson treats as path syntax.
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
