package doctree

// Document is a parsed document in rendering order.
type Document struct {
	Pages []*Page // Pages in order; index 0 is page 1
}

// Page is one rendered page.
type Page struct {
	Number int // 1-based
	Blocks []*Block
}

// Block is a group of visually adjacent lines.
type Block struct {
	Lines []*Line
}

// Line is one visually contiguous row of text runs.
type Line struct {
	Runs []*Run
}

// Run is a stretch of text in a single font and size.
type Run struct {
	Text  string
	Font  string  // Base font name as reported by the PDF
	Size  float64 // Font size in points
	Flags int     // Style bits, see Flag*
	BBox  BBox
}

// Style bits on Run.Flags, in the usual span-flag layout
// (italic 2, monospace 8, bold 16).
const (
	FlagItalic    = 1 << 1
	FlagMonospace = 1 << 3
	FlagBold      = 1 << 4
)

// BBox is a rectangle in top-left page coordinates (y grows downward).
type BBox struct {
	X0, Y0 float64 // top-left
	X1, Y1 float64 // bottom-right
}

// Bold reports whether the run carries the bold style bit.
func (r *Run) Bold() bool {
	return r.Flags&FlagBold != 0
}

// Italic reports whether the run carries the italic style bit.
func (r *Run) Italic() bool {
	return r.Flags&FlagItalic != 0
}

// LineCount returns the number of lines across all pages.
func (d *Document) LineCount() int {
	n := 0
	for _, p := range d.Pages {
		for _, b := range p.Blocks {
			n += len(b.Lines)
		}
	}
	return n
}
