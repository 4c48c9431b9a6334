package msgboard

import (
	"golang.org/x/net/html"

	"github.com/jpalmerr/msgboard/internal/dom"
)

type decoratorKind int

const (
	decoratorPlain decoratorKind = iota
	decoratorLabel
	decoratorIcon
	decoratorUnknown
)

// Decorator selects how a [StatusEntry] value is rendered in its cell.
//
// Decorator is a closed set of variants: [Plain], [Label] and [Icon]. The
// zero value is Plain. Values built with [DecoratorNamed] from an
// unrecognised name render an empty cell; the status table is cosmetic, so
// a bad name degrades quietly instead of failing the render.
type Decorator struct {
	kind decoratorKind
	arg  string
	name string
}

// Plain renders the raw value as text.
func Plain() Decorator { return Decorator{kind: decoratorPlain} }

// Label renders the value inside a badge with the given color class
// ("success", "danger", "info", ...).
func Label(color string) Decorator { return Decorator{kind: decoratorLabel, arg: color} }

// Icon renders a glyph with the given icon name followed by the value.
func Icon(glyph string) Decorator { return Decorator{kind: decoratorIcon, arg: glyph} }

// DecoratorNamed resolves a decorator by its well-known name, reading its
// argument from args. "label" reads args["color"], "icon" reads
// args["icon"], and "" is Plain. Any other name yields a decorator that
// renders nothing.
func DecoratorNamed(name string, args map[string]string) Decorator {
	switch name {
	case "":
		return Plain()
	case "label":
		return Label(args["color"])
	case "icon":
		return Icon(args["icon"])
	default:
		return Decorator{kind: decoratorUnknown, name: name}
	}
}

// Name returns the decorator's registered name, or the unrecognised name it
// was built from.
func (d Decorator) Name() string {
	switch d.kind {
	case decoratorLabel:
		return "label"
	case decoratorIcon:
		return "icon"
	case decoratorUnknown:
		return d.name
	default:
		return ""
	}
}

// Known reports whether d is one of the built-in variants.
func (d Decorator) Known() bool {
	return d.kind != decoratorUnknown
}

// decorate returns the nodes for value under d. A nil result leaves the
// cell empty.
func (d Decorator) decorate(value string) []*html.Node {
	switch d.kind {
	case decoratorPlain:
		return []*html.Node{dom.Text(value)}
	case decoratorLabel:
		return []*html.Node{
			dom.Append(dom.El("span", "class", "label label-"+d.arg), dom.Text(value)),
		}
	case decoratorIcon:
		return []*html.Node{
			dom.Append(dom.El("span"), dom.Glyph(d.arg), dom.Text(" "+value)),
		}
	case decoratorUnknown:
		return nil
	}
	return nil
}
