package outline

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// Result is the title and outline of one document.
type Result struct {
	Title   string  `json:"title" yaml:"title"`
	Outline []Entry `json:"outline" yaml:"outline"`
}

// Extractor runs line extraction, title detection, classification and
// outline assembly for one document at a time.
type Extractor struct {
	Classifier LineClassifier
	Workers    int // Concurrent classification goroutines; <= 1 is sequential.
}

// Extract builds the result for a parsed document. A document without
// text lines yields UntitledTitle and an empty outline.
func (e *Extractor) Extract(doc *doctree.Document) (*Result, error) {
	lines := ExtractLines(doc)

	classified, err := ClassifyAll(e.Classifier, lines, e.Workers)
	if err != nil {
		return nil, err
	}

	return &Result{
		Title:   DetectTitle(lines),
		Outline: BuildOutline(classified, lines),
	}, nil
}

// Output formats accepted by Encode.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Encode writes r in the given format. JSON is indented by two spaces.
func Encode(w io.Writer, r *Result, format string) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// Extension returns the file extension for a format.
func Extension(format string) string {
	if format == FormatYAML {
		return ".yaml"
	}
	return ".json"
}
