package parser

import (
	"math"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// Layout groups positioned glyphs into runs, lines and blocks. Glyphs are
// consumed in content-stream order, which is the order the page renders in.
type Layout struct {
	RowTolerance        float64 // Max baseline drift (points) within one line
	WordSpaceMultiplier float64 // Gap, as a fraction of font size, that counts as a space
	BlockGapMultiplier  float64 // Baseline gap, as a multiple of font size, that starts a new block
}

// DefaultLayout returns the tolerances used for ordinary body text.
func DefaultLayout() Layout {
	return Layout{
		RowTolerance:        3.0,
		WordSpaceMultiplier: 0.3,
		BlockGapMultiplier:  1.8,
	}
}

type pageBuilder struct {
	layout Layout
	box    MediaBox

	blocks []*doctree.Block
	block  *doctree.Block
	line   *doctree.Line
	run    *doctree.Run

	prev    pdflib.Text
	hasPrev bool
}

// Blocks lays out one page's glyphs. Coordinates on the result are
// relative to the top-left corner of box.
func (l Layout) Blocks(texts []pdflib.Text, box MediaBox) []*doctree.Block {
	b := &pageBuilder{layout: l, box: box}
	for _, t := range texts {
		s := norm.NFKC.String(t.S)
		if s == "" || s == "\n" {
			continue
		}
		b.add(t, s)
	}
	return b.blocks
}

func (b *pageBuilder) add(t pdflib.Text, s string) {
	switch {
	case !b.hasPrev:
		b.startBlock()
		b.startLine()
		b.startRun(t, s)
	case b.isNewLine(t):
		if b.isNewBlock(t) {
			b.startBlock()
		}
		b.startLine()
		b.startRun(t, s)
	case t.Font != b.run.Font || t.FontSize != b.run.Size:
		b.startRun(t, s)
	default:
		if b.isWordGap(t) && !strings.HasSuffix(b.run.Text, " ") && !strings.HasPrefix(s, " ") {
			b.run.Text += " "
		}
		b.run.Text += s
		b.extend(t)
	}
	b.prev = t
	b.hasPrev = true
}

func (b *pageBuilder) startBlock() {
	b.block = &doctree.Block{}
	b.blocks = append(b.blocks, b.block)
}

func (b *pageBuilder) startLine() {
	b.line = &doctree.Line{}
	b.block.Lines = append(b.block.Lines, b.line)
}

func (b *pageBuilder) startRun(t pdflib.Text, s string) {
	b.run = &doctree.Run{
		Text:  s,
		Font:  t.Font,
		Size:  t.FontSize,
		Flags: fontFlags(t.Font),
		BBox: doctree.BBox{
			X0: t.X - b.box.X0,
			Y0: b.box.Y1 - (t.Y + t.FontSize),
			X1: t.X + t.W - b.box.X0,
			Y1: b.box.Y1 - t.Y,
		},
	}
	b.line.Runs = append(b.line.Runs, b.run)
}

func (b *pageBuilder) extend(t pdflib.Text) {
	if x1 := t.X + t.W - b.box.X0; x1 > b.run.BBox.X1 {
		b.run.BBox.X1 = x1
	}
}

func (b *pageBuilder) isNewLine(t pdflib.Text) bool {
	if math.Abs(t.Y-b.prev.Y) > b.layout.RowTolerance {
		return true
	}
	// Same baseline but the pen moved back past the previous glyph start.
	return t.X+b.layout.RowTolerance < b.prev.X
}

func (b *pageBuilder) isNewBlock(t pdflib.Text) bool {
	size := math.Max(t.FontSize, b.prev.FontSize)
	gap := b.prev.Y - t.Y
	// Moving up the page means a new column or region.
	return gap < -b.layout.RowTolerance || gap > b.layout.BlockGapMultiplier*size
}

func (b *pageBuilder) isWordGap(t pdflib.Text) bool {
	gap := t.X - (b.prev.X + b.prev.W)
	return gap > b.layout.WordSpaceMultiplier*t.FontSize
}

// fontFlags derives style bits from a PDF base font name such as
// "ABCDEF+Helvetica-BoldOblique".
func fontFlags(font string) int {
	name := strings.ToLower(font)
	if i := strings.IndexByte(name, '+'); i >= 0 {
		name = name[i+1:]
	}
	flags := 0
	for _, marker := range []string{"bold", "black", "heavy", "semibold", "demi"} {
		if strings.Contains(name, marker) {
			flags |= doctree.FlagBold
			break
		}
	}
	if strings.Contains(name, "italic") || strings.Contains(name, "oblique") {
		flags |= doctree.FlagItalic
	}
	if strings.Contains(name, "mono") || strings.Contains(name, "courier") {
		flags |= doctree.FlagMonospace
	}
	return flags
}
