// Package dom builds small HTML node trees for the console widget.
//
// Nodes are created with golang.org/x/net/html so text and attribute values
// are escaped by the renderer, never by string concatenation. Containers are
// handed around as goquery selections, which gives the widget the same
// empty/append vocabulary the browser side uses.
package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// El creates an element node. attrs are key/value pairs; a trailing odd key
// is ignored.
func El(tag string, attrs ...string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// Text creates a text node.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Append adds children to parent and returns parent for chaining.
func Append(parent *html.Node, children ...*html.Node) *html.Node {
	for _, c := range children {
		if c == nil {
			continue
		}
		parent.AppendChild(c)
	}
	return parent
}

// Glyph returns the font-awesome icon element used across the console.
// Extra classes (e.g. "text-success") follow the icon class.
func Glyph(icon string, extra ...string) *html.Node {
	classes := append([]string{"fa", "fa-" + icon}, extra...)
	return El("i", "class", strings.Join(classes, " "), "aria-hidden", "true")
}

// NewContainer returns a detached <div> selection carrying the given
// attributes, ready to receive content.
func NewContainer(attrs ...string) *goquery.Selection {
	root := El("div", attrs...)
	doc := goquery.NewDocumentFromNode(root)
	return doc.Selection
}

// Replace clears sel and appends nodes to it.
func Replace(sel *goquery.Selection, nodes ...*html.Node) {
	sel.Empty()
	sel.AppendNodes(nodes...)
}

// Outer renders the selection's first node including itself.
func Outer(sel *goquery.Selection) string {
	s, err := goquery.OuterHtml(sel)
	if err != nil {
		return ""
	}
	return s
}

// Inner renders the children of the selection's first node.
func Inner(sel *goquery.Selection) string {
	s, err := sel.Html()
	if err != nil {
		return ""
	}
	return s
}
