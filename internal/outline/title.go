package outline

import (
	"sort"
	"strings"
)

// UntitledTitle is returned for documents with no text lines at all.
const UntitledTitle = "Untitled"

// titleSizeRatio is the fraction of the largest page-1 font size a line
// needs to count as part of the title.
const titleSizeRatio = 0.85

// DetectTitle joins the largest-font lines on page 1 in reading order.
// Without page-1 lines the document's first line is the title.
func DetectTitle(lines []LineRecord) string {
	var p1 []LineRecord
	for _, l := range lines {
		if l.Page == 1 {
			p1 = append(p1, l)
		}
	}
	if len(p1) == 0 {
		if len(lines) == 0 {
			return UntitledTitle
		}
		return lines[0].Text
	}

	maxFS := p1[0].FontSize
	for _, l := range p1[1:] {
		if l.FontSize > maxFS {
			maxFS = l.FontSize
		}
	}

	var cands []LineRecord
	for _, l := range p1 {
		if l.FontSize >= titleSizeRatio*maxFS {
			cands = append(cands, l)
		}
	}
	if len(cands) == 0 {
		return lines[0].Text
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Y != cands[j].Y {
			return cands[i].Y < cands[j].Y
		}
		return cands[i].X < cands[j].X
	})

	parts := make([]string, len(cands))
	for i, c := range cands {
		parts[i] = c.Text
	}
	return strings.Join(parts, " ")
}
