package outline

import (
	"testing"

	"github.com/dgallion1/docoutline/internal/doctree"
)

func run(text string, size float64, bold bool, x, y float64) *doctree.Run {
	r := &doctree.Run{Text: text, Size: size, BBox: doctree.BBox{X0: x, Y0: y}}
	if bold {
		r.Flags |= boldColumnFlag
	}
	return r
}

func line(runs ...*doctree.Run) *doctree.Line {
	return &doctree.Line{Runs: runs}
}

func page(lines ...*doctree.Line) *doctree.Page {
	return &doctree.Page{Blocks: []*doctree.Block{{Lines: lines}}}
}

func TestExtractLines_FirstRunStyling(t *testing.T) {
	doc := &doctree.Document{Pages: []*doctree.Page{
		page(line(
			run("Intro", 14.04, true, 72.26, 100.44),
			run("duction", 10, false, 110, 101),
		)),
	}}

	lines := ExtractLines(doc)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	want := LineRecord{Text: "Intro duction", FontSize: 14, Bold: true, X: 72.3, Y: 100.4, Page: 1}
	if lines[0] != want {
		t.Errorf("expected %+v, got %+v", want, lines[0])
	}
}

func TestExtractLines_DropsBlankLines(t *testing.T) {
	doc := &doctree.Document{Pages: []*doctree.Page{
		page(
			line(run("   ", 12, false, 0, 0), run("", 12, false, 0, 0)),
			line(),
			line(run("  kept  ", 12, false, 10, 20)),
		),
	}}

	lines := ExtractLines(doc)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Text != "kept" {
		t.Errorf("expected %q, got %q", "kept", lines[0].Text)
	}
}

func TestExtractLines_TraversalOrder(t *testing.T) {
	doc := &doctree.Document{Pages: []*doctree.Page{
		{Blocks: []*doctree.Block{
			{Lines: []*doctree.Line{line(run("a", 10, false, 0, 500))}},
			{Lines: []*doctree.Line{line(run("b", 10, false, 0, 100)), line(run("c", 10, false, 0, 120))}},
		}},
		page(),
		page(line(run("d", 10, false, 0, 50))),
	}}

	lines := ExtractLines(doc)
	var got []string
	for _, l := range lines {
		got = append(got, l.Text)
	}
	want := []string{"a", "b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if lines[3].Page != 3 {
		t.Errorf("expected page 3, got %d", lines[3].Page)
	}
}

func TestExtractLines_BoldColumnUsesBitOne(t *testing.T) {
	tests := []struct {
		flags int
		want  bool
	}{
		{0, false},
		{doctree.FlagBold, false},
		{doctree.FlagItalic, true},
		{doctree.FlagBold | doctree.FlagItalic, true},
		{doctree.FlagMonospace, false},
	}
	for _, tt := range tests {
		r := &doctree.Run{Text: "Heading", Size: 12, Flags: tt.flags}
		doc := &doctree.Document{Pages: []*doctree.Page{page(line(r))}}
		lines := ExtractLines(doc)
		if len(lines) != 1 {
			t.Fatalf("flags=%05b: expected 1 line, got %d", tt.flags, len(lines))
		}
		if lines[0].Bold != tt.want {
			t.Errorf("flags=%05b: expected bold column %v, got %v", tt.flags, tt.want, lines[0].Bold)
		}
	}
}

func TestExtractLines_PageNumber(t *testing.T) {
	numbered := page(line(run("seven", 10, false, 0, 0)))
	numbered.Number = 7
	doc := &doctree.Document{Pages: []*doctree.Page{
		page(line(run("first", 10, false, 0, 0))),
		numbered,
	}}

	lines := ExtractLines(doc)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Page != 1 {
		t.Errorf("expected positional page 1, got %d", lines[0].Page)
	}
	if lines[1].Page != 7 {
		t.Errorf("expected page number 7, got %d", lines[1].Page)
	}
}

func TestExtractLines_EmptyDocument(t *testing.T) {
	doc := &doctree.Document{Pages: []*doctree.Page{page(), page()}}
	if lines := ExtractLines(doc); len(lines) != 0 {
		t.Errorf("expected no lines, got %d", len(lines))
	}
}

func TestRound1(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{12.04, 12.0},
		{12.06, 12.1},
		{0.25, 0.2},
		{0.75, 0.8},
		{-3.14, -3.1},
		{100, 100},
	}
	for _, tt := range tests {
		if got := round1(tt.in); got != tt.want {
			t.Errorf("round1(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestLineRecord_Features(t *testing.T) {
	l := LineRecord{Text: "x", FontSize: 16, Bold: true, X: 72, Y: 90.5, Page: 2}
	want := FeatureVector{16, 1, 72, 90.5, 2}
	if got := l.Features(); got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
	l.Bold = false
	if got := l.Features()[1]; got != 0 {
		t.Errorf("expected bold feature 0, got %v", got)
	}
}
