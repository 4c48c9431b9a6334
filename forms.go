package msgboard

import (
	"context"
	"errors"
	"sort"

	"github.com/PuerkitoBio/goquery"

	"github.com/jpalmerr/msgboard/internal/form"
)

// errRejected stands in for a rejection that gave no reason.
var errRejected = errors.New("submission rejected")

// htmlForms adapts the internal HTML form renderer to [FormRenderer].
type htmlForms struct {
	r *form.Renderer
}

// Render draws spec with its fields in display order.
func (h htmlForms) Render(spec FormSpec, attach *goquery.Selection) error {
	return h.r.Render(toRendererSpec(spec), attach)
}

// toRendererSpec converts a FormSpec to the renderer's format.
func toRendererSpec(spec FormSpec) form.Spec {
	sorted := SortFields(spec.Fields)
	fields := make([]form.Field, len(sorted))
	for i, f := range sorted {
		fields[i] = form.Field{
			Name:       f.Name,
			Style:      f.Style,
			Validation: string(f.Validation),
			Type:       string(f.Type),
			Value:      f.Value,
			Title:      f.Title,
			Order:      f.Order,
			Height:     f.Height,
		}
	}

	names := make([]string, 0, len(spec.Methods))
	for name := range spec.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	methods := make([]form.Method, len(names))
	for i, name := range names {
		m := spec.Methods[name]
		methods[i] = form.Method{Name: name, Style: m.Style, Title: m.Title}
	}

	var submit form.SubmitFunc
	if cb := spec.Callback; cb != nil {
		submit = func(ctx context.Context, values map[string]string) error {
			v := cb(ctx, FieldValues(values))
			switch {
			case v.Accepted:
				return nil
			case v.Reason != nil:
				return v.Reason
			default:
				return errRejected
			}
		}
	}

	return form.Spec{
		Class:   spec.Class,
		Title:   spec.Title,
		Methods: methods,
		Fields:  fields,
		Submit:  submit,
	}
}
