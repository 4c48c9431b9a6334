package form

import (
	"context"
	"errors"
	"fmt"
)

// Validation rules understood by the renderer.
const (
	ValidateNone     = ""
	ValidateNonEmpty = "non-empty"
	ValidateNumber   = "number"
)

// Input types understood by the renderer.
const (
	TypeText = "text"
	TypeJSON = "json"
)

// Field is one input, drawn in the order it appears in [Spec].Fields.
type Field struct {
	Name       string
	Style      string
	Validation string
	Type       string
	Value      any
	Title      string
	Order      int
	Height     int
}

// Method is a submit button.
type Method struct {
	Name  string
	Style string
	Title string
}

// SubmitFunc receives the field values once they pass validation. A non-nil
// error rejects the submission and keeps the form open.
type SubmitFunc func(ctx context.Context, values map[string]string) error

// Spec is a form to draw.
type Spec struct {
	Class   string
	Title   string
	Methods []Method
	Fields  []Field
	Submit  SubmitFunc
}

// FieldError is a validation failure of one field.
type FieldError struct {
	Field string
	Msg   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Msg)
}

// Result is the outcome of [Renderer.Submit].
type Result struct {
	// Accepted reports whether the values passed validation and the
	// submit callback accepted them.
	Accepted bool

	// Errors lists the reasons for a rejection.
	Errors []string
}

// validate checks the spec is drawable.
func (s Spec) validate() error {
	if s.Submit == nil {
		return errors.New("form submit callback is required")
	}
	if len(s.Fields) == 0 {
		return errors.New("form has no fields")
	}

	seen := make(map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("fields[%d]: name is required", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field name: %q", f.Name)
		}
		seen[f.Name] = true

		switch f.Validation {
		case ValidateNone, ValidateNonEmpty, ValidateNumber:
		default:
			return fmt.Errorf("fields[%d] (%s): unknown validation %q", i, f.Name, f.Validation)
		}
		switch f.Type {
		case TypeText, TypeJSON:
		default:
			return fmt.Errorf("fields[%d] (%s): unknown type %q", i, f.Name, f.Type)
		}
	}
	return nil
}
