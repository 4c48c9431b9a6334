package msgboard

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/jpalmerr/msgboard/internal/dom"
)

// StatusEntry is one labeled value in a status table.
//
// Key identifies the entry within its sequence and is ignored when
// rendering; the table shows entries in slice order. Entries are built fresh
// for every render and are not retained by the panel.
type StatusEntry struct {
	Key       string
	Title     string
	Value     string
	Decorator Decorator
}

// connectionStatusTitle is the row title of the single entry shown by
// [StatusPanel.Status].
const connectionStatusTitle = "Connection status"

// StatusPanel renders the server status tab: a header line with a
// connectivity glyph and a table of status entries.
//
// The panel holds direct handles to the header and body elements it was
// given; it never looks elements up by id. StatusPanel is not safe for
// concurrent use; [Widget] serializes access to it.
type StatusPanel struct {
	header *goquery.Selection
	body   *goquery.Selection
}

// NewStatusPanel returns a panel drawing its header line into header and its
// table into body.
func NewStatusPanel(header, body *goquery.Selection) *StatusPanel {
	return &StatusPanel{header: header, body: body}
}

// Render replaces everything under container with a table holding one row
// per entry.
//
// Each row has a title cell and a value cell. The value cell is filled by the
// entry's [Decorator]; an unrecognised decorator leaves it empty. Rendering
// the same container twice leaves only the rows of the second call.
func Render(container *goquery.Selection, entries []StatusEntry) {
	table := dom.El("table", "class", "table")
	for _, e := range entries {
		value := dom.El("td", "class", "col-sm-3 th-notop")
		dom.Append(value, e.Decorator.decorate(e.Value)...)

		dom.Append(table, dom.Append(dom.El("tr"),
			dom.Append(dom.El("td", "class", "col-sm-1 th-notop"), dom.Text(e.Title)),
			value,
		))
	}
	dom.Replace(container, table)
}

// Render draws entries into the panel body.
func (p *StatusPanel) Render(entries []StatusEntry) {
	Render(p.body, entries)
}

// Status sets the header to the given icon and color and shows a single
// "Connection status" row carrying title as a colored label.
func (p *StatusPanel) Status(title, icon, color string) {
	dom.Replace(p.header, dom.Glyph(icon, "text-"+color), dom.Text(" Server status"))

	p.Render([]StatusEntry{{
		Key:       "status",
		Title:     connectionStatusTitle,
		Value:     title,
		Decorator: Label(color),
	}})
}

// ShowPhase renders the status line for ph.
func (p *StatusPanel) ShowPhase(ph Phase) {
	p.Status(ph.Status())
}

// Header returns the header selection owned by the panel.
func (p *StatusPanel) Header() *goquery.Selection { return p.header }

// Body returns the body selection owned by the panel.
func (p *StatusPanel) Body() *goquery.Selection { return p.body }
