package outline

import (
	"regexp"
	"slices"
	"sort"
)

// Entry is one heading in the final outline.
type Entry struct {
	Level string `json:"level" yaml:"level"`
	Text  string `json:"text" yaml:"text"`
	Page  int    `json:"page" yaml:"page"`
}

// HeadingLevels are the labels that make it into an outline.
var HeadingLevels = []string{"H1", "H2", "H3", "H4"}

// IsHeadingLevel reports whether label is one of H1..H4.
func IsHeadingLevel(label string) bool {
	return slices.Contains(HeadingLevels, label)
}

// numberedHeading matches "1 ", "2.3 ", "4.1.7 " and so on. Digits are
// any decimal digit (Nd) and the separator is any Unicode whitespace,
// including \v and the \x1c-\x1f separators.
var numberedHeading = regexp.MustCompile(`^\p{Nd}+(\.\p{Nd}+)*[\s\v\x{1c}-\x{1f}\x{85}\p{Z}]`)

// BuildOutline keeps heading-labeled lines ordered by page and vertical
// position. Ties keep extraction order. When nothing is labeled a heading,
// the first line of lines that starts with section numbering becomes the
// only entry, as H1.
func BuildOutline(classified []Classified, lines []LineRecord) []Entry {
	var kept []Classified
	for _, c := range classified {
		if IsHeadingLevel(c.Level) {
			kept = append(kept, c)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i].Line, kept[j].Line
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		return a.Y < b.Y
	})

	entries := make([]Entry, 0, len(kept))
	for _, c := range kept {
		entries = append(entries, Entry{Level: c.Level, Text: c.Line.Text, Page: c.Line.Page})
	}
	if len(entries) > 0 {
		return entries
	}

	for _, l := range lines {
		if numberedHeading.MatchString(l.Text) {
			return []Entry{{Level: "H1", Text: l.Text, Page: l.Page}}
		}
	}
	return entries
}
