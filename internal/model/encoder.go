package model

import "fmt"

// LabelEncoder maps class indices back to label strings.
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

// Decode returns the label for a class index.
func (e *LabelEncoder) Decode(index int) (string, error) {
	if index < 0 || index >= len(e.Classes) {
		return "", fmt.Errorf("%w: %d (vocabulary size %d)", ErrUnknownClass, index, len(e.Classes))
	}
	return e.Classes[index], nil
}

// Len returns the vocabulary size.
func (e *LabelEncoder) Len() int {
	return len(e.Classes)
}
