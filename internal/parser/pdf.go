package parser

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/dgallion1/docoutline/internal/doctree"
)

var disableConfigDir sync.Once

// PDFParser handles PDF files. Glyphs come from ledongthuc/pdf and are
// grouped into runs, lines and blocks by Layout. With Validate set, the
// file is first checked by pdfcpu so that structurally broken documents
// fail up front instead of producing partial output.
type PDFParser struct {
	Validate bool
	Layout   Layout

	check func(data []byte) (int, error) // nil means pageCount
}

func NewPDFParser(validate bool) *PDFParser {
	return &PDFParser{
		Validate: validate,
		Layout:   DefaultLayout(),
	}
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrParse, filename, err)
	}
	return p.ParseBytes(data, filename)
}

// ParseBytes parses an in-memory PDF.
func (p *PDFParser) ParseBytes(data []byte, filename string) (doc *doctree.Document, err error) {
	// Both PDF libraries can panic on malformed input.
	defer func() {
		if rec := recover(); rec != nil {
			doc = nil
			err = fmt.Errorf("%w: read %s: %v", ErrParse, filename, rec)
		}
	}()

	if p.Validate {
		if _, err := p.preflight(data); err != nil {
			return nil, fmt.Errorf("%w: validate %s: %w", ErrParse, filename, err)
		}
	}

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrParse, filename, err)
	}

	doc = &doctree.Document{}
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		pg := &doctree.Page{Number: i}
		if !page.V.IsNull() {
			pg.Blocks = p.Layout.Blocks(page.Content().Text, mediaBoxOf(page))
		}
		doc.Pages = append(doc.Pages, pg)
	}
	return doc, nil
}

func (p *PDFParser) preflight(data []byte) (int, error) {
	if p.check != nil {
		return p.check(data)
	}
	return pageCount(data)
}

func pageCount(data []byte) (int, error) {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(data), conf)
}

// MediaBox is a page's visible area in PDF user space (y grows upward).
type MediaBox struct {
	X0, Y0, X1, Y1 float64
}

func (b MediaBox) width() float64  { return b.X1 - b.X0 }
func (b MediaBox) height() float64 { return b.Y1 - b.Y0 }

// Letter size, used when no MediaBox is found on the page or its parents.
var defaultMediaBox = MediaBox{X0: 0, Y0: 0, X1: 612, Y1: 792}

// mediaBoxOf resolves the MediaBox, which may be inherited from the page tree.
func mediaBoxOf(page pdflib.Page) MediaBox {
	const maxDepth = 32
	v := page.V
	for depth := 0; depth < maxDepth && !v.IsNull(); depth, v = depth+1, v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.Len() != 4 {
			continue
		}
		mb := MediaBox{
			X0: box.Index(0).Float64(),
			Y0: box.Index(1).Float64(),
			X1: box.Index(2).Float64(),
			Y1: box.Index(3).Float64(),
		}
		if mb.width() > 0 && mb.height() > 0 {
			return mb
		}
	}
	return defaultMediaBox
}
