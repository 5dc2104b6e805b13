package outline

import (
	"strconv"
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// LineRecord is one extracted text line with its layout features.
type LineRecord struct {
	Text     string  `json:"text"`
	FontSize float64 `json:"font_size"`
	Bold     bool    `json:"bold"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Page     int     `json:"page"`
}

// boldColumnFlag is the span bit the classifier's "bold" column was
// trained on: bit 1, which is doctree.FlagItalic, not doctree.FlagBold.
// LineRecord.Bold carries exactly that bit so features keep their
// training-time meaning.
const boldColumnFlag = doctree.FlagItalic

// FeatureNames is the column order the classifier was trained on.
var FeatureNames = [5]string{"font_size", "bold", "x", "y", "page"}

// FeatureVector is a LineRecord in classifier column order.
type FeatureVector [5]float64

// Features returns the record's feature vector.
func (l LineRecord) Features() FeatureVector {
	bold := 0.0
	if l.Bold {
		bold = 1
	}
	return FeatureVector{l.FontSize, bold, l.X, l.Y, float64(l.Page)}
}

// ExtractLines flattens a document into line records in page, block, line
// order. A line's style and position come from its first run only; lines
// whose joined text is blank are dropped. Pages without a Number are
// numbered by position.
func ExtractLines(doc *doctree.Document) []LineRecord {
	var lines []LineRecord
	for i, page := range doc.Pages {
		num := page.Number
		if num <= 0 {
			num = i + 1
		}
		for _, block := range page.Blocks {
			for _, line := range block.Lines {
				if len(line.Runs) == 0 {
					continue
				}
				text := joinRuns(line.Runs)
				if text == "" {
					continue
				}
				first := line.Runs[0]
				lines = append(lines, LineRecord{
					Text:     text,
					FontSize: round1(first.Size),
					Bold:     first.Flags&boldColumnFlag != 0,
					X:        round1(first.BBox.X0),
					Y:        round1(first.BBox.Y0),
					Page:     num,
				})
			}
		}
	}
	return lines
}

func joinRuns(runs []*doctree.Run) string {
	parts := make([]string, len(runs))
	for i, r := range runs {
		parts[i] = r.Text
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// round1 rounds to one decimal place, ties to even on the exact binary
// value. math.Round(v*10)/10 rounds 0.25 up instead.
func round1(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	return r
}
