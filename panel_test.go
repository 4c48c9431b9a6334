package msgboard

import (
	"strings"
	"testing"

	"github.com/jpalmerr/msgboard/internal/dom"
)

func TestRender_RowsInOrder(t *testing.T) {
	container := dom.NewContainer()

	Render(container, []StatusEntry{
		{Key: "a", Title: "Alpha", Value: "1"},
		{Key: "b", Title: "Beta", Value: "2"},
	})

	rows := container.Find("table.table tr")
	if rows.Length() != 2 {
		t.Fatalf("rows = %d, want 2", rows.Length())
	}

	first := rows.First().Find("td")
	if got := first.Eq(0).Text(); got != "Alpha" {
		t.Errorf("title cell = %q, want %q", got, "Alpha")
	}
	if got := first.Eq(0).AttrOr("class", ""); got != "col-sm-1 th-notop" {
		t.Errorf("title cell class = %q", got)
	}
	if got := first.Eq(1).Text(); got != "1" {
		t.Errorf("value cell = %q, want %q", got, "1")
	}
	if got := first.Eq(1).AttrOr("class", ""); got != "col-sm-3 th-notop" {
		t.Errorf("value cell class = %q", got)
	}
	if got := rows.Last().Find("td").First().Text(); got != "Beta" {
		t.Errorf("second row title = %q, want %q", got, "Beta")
	}
}

func TestRender_ReplacesPreviousContent(t *testing.T) {
	container := dom.NewContainer()
	container.AppendHtml("<p>stale</p>")

	Render(container, []StatusEntry{{Title: "One", Value: "1"}, {Title: "Two", Value: "2"}})
	Render(container, []StatusEntry{{Title: "Three", Value: "3"}})

	if container.Find("p").Length() != 0 {
		t.Error("prior content survived render")
	}
	if n := container.Find("table").Length(); n != 1 {
		t.Fatalf("tables = %d, want 1", n)
	}
	rows := container.Find("tr")
	if rows.Length() != 1 || rows.Find("td").First().Text() != "Three" {
		t.Errorf("rows = %q, want only the second render", dom.Inner(container))
	}
}

func TestRender_EmptyEntries(t *testing.T) {
	container := dom.NewContainer()

	Render(container, nil)

	if got := dom.Inner(container); got != `<table class="table"></table>` {
		t.Errorf("Inner() = %q", got)
	}
}

func TestRender_Decorators(t *testing.T) {
	tests := []struct {
		name      string
		decorator Decorator
		want      string
	}{
		{"plain", Plain(), "online"},
		{"label", Label("success"), `<span class="label label-success">online</span>`},
		{"icon", Icon("user"), `<span><i class="fa fa-user" aria-hidden="true"></i> online</span>`},
		{"unknown", DecoratorNamed("sparkle", nil), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			container := dom.NewContainer()
			Render(container, []StatusEntry{{Title: "State", Value: "online", Decorator: tt.decorator}})

			cell := container.Find("td").Eq(1)
			if cell.Length() != 1 {
				t.Fatal("value cell missing")
			}
			if got := dom.Inner(cell); got != tt.want {
				t.Errorf("value cell = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRender_EscapesText(t *testing.T) {
	container := dom.NewContainer()

	Render(container, []StatusEntry{{Title: "<b>t</b>", Value: `<script>alert("x")</script>`, Decorator: Label("info")}})

	out := dom.Inner(container)
	if strings.Contains(out, "<script>") || strings.Contains(out, "<b>") {
		t.Errorf("markup not escaped: %q", out)
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Errorf("escaped value missing: %q", out)
	}
}

func newTestPanel() *StatusPanel {
	root := dom.NewContainer()
	root.AppendHtml(`<a id="hdr"></a><div id="body"></div>`)
	return NewStatusPanel(root.Find("#hdr"), root.Find("#body"))
}

func TestStatusPanel_Status(t *testing.T) {
	p := newTestPanel()

	p.Status("Connected", "check", "success")

	wantHeader := `<i class="fa fa-check text-success" aria-hidden="true"></i> Server status`
	if got := dom.Inner(p.Header()); got != wantHeader {
		t.Errorf("header = %q, want %q", got, wantHeader)
	}

	rows := p.Body().Find("tr")
	if rows.Length() != 1 {
		t.Fatalf("rows = %d, want 1", rows.Length())
	}
	if got := rows.Find("td").First().Text(); got != "Connection status" {
		t.Errorf("row title = %q", got)
	}
	label := rows.Find("span.label.label-success")
	if label.Text() != "Connected" {
		t.Errorf("label = %q, want %q", label.Text(), "Connected")
	}
}

func TestStatusPanel_ShowPhase(t *testing.T) {
	tests := []struct {
		name      string
		phase     Phase
		wantGlyph string
		wantLabel string
		wantText  string
	}{
		{"connecting", Connecting(), "i.fa-refresh.text-info", "span.label-info", "Connecting..."},
		{"connected", Connected(), "i.fa-check.text-success", "span.label-success", "Connected"},
		{"errored", Errored(4001, "bye"), "i.fa-times.text-danger", "span.label-danger", "Error 4001: bye"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPanel()
			p.ShowPhase(tt.phase)

			if p.Header().Find(tt.wantGlyph).Length() != 1 {
				t.Errorf("header = %q, want glyph %s", dom.Inner(p.Header()), tt.wantGlyph)
			}
			if got := p.Body().Find(tt.wantLabel).Text(); got != tt.wantText {
				t.Errorf("label = %q, want %q", got, tt.wantText)
			}
		})
	}
}

func TestStatusPanel_RenderKeepsHeader(t *testing.T) {
	p := newTestPanel()
	p.Status("Connected", "check", "success")
	header := dom.Inner(p.Header())

	p.Render([]StatusEntry{{Title: "Peers", Value: "3"}})

	if got := dom.Inner(p.Header()); got != header {
		t.Errorf("header changed to %q", got)
	}
	if got := p.Body().Find("td").First().Text(); got != "Peers" {
		t.Errorf("row title = %q, want %q", got, "Peers")
	}
}
