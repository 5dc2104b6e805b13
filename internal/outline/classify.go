package outline

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrFeatureOrder is returned when a model was trained on different columns.
var ErrFeatureOrder = errors.New("classifier feature order mismatch")

// Predictor maps a feature vector to a class index.
type Predictor interface {
	Predict(features []float64) (int, error)
}

// Decoder maps a class index to a label.
type Decoder interface {
	Decode(index int) (string, error)
}

// LineClassifier labels a single line.
type LineClassifier interface {
	Classify(line LineRecord) (string, error)
}

// LevelClassifier labels lines with a trained model. It holds no mutable
// state and is safe for concurrent use when its predictor and decoder are.
type LevelClassifier struct {
	predictor Predictor
	decoder   Decoder
}

// NewLevelClassifier wraps a predictor and decoder. When the predictor
// reports its training-time column names they must match FeatureNames.
func NewLevelClassifier(p Predictor, d Decoder) (*LevelClassifier, error) {
	if fp, ok := p.(interface{ Features() []string }); ok {
		if names := fp.Features(); len(names) > 0 && !slices.Equal(names, FeatureNames[:]) {
			return nil, fmt.Errorf("%w: model has %v, want %v", ErrFeatureOrder, names, FeatureNames)
		}
	}
	return &LevelClassifier{predictor: p, decoder: d}, nil
}

// Classify returns the decoded label for one line. The label is whatever
// the encoder holds; it is not restricted to heading levels.
func (c *LevelClassifier) Classify(line LineRecord) (string, error) {
	fv := line.Features()
	idx, err := c.predictor.Predict(fv[:])
	if err != nil {
		return "", fmt.Errorf("predict: %w", err)
	}
	label, err := c.decoder.Decode(idx)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	return label, nil
}

// Classified is a line together with its predicted label.
type Classified struct {
	Line  LineRecord
	Level string
}

// ClassifyAll labels every line, splitting the work across up to workers
// goroutines. Results keep the input order. The first error by line index
// is returned.
func ClassifyAll(c LineClassifier, lines []LineRecord, workers int) ([]Classified, error) {
	out := make([]Classified, len(lines))
	errs := make([]error, len(lines))

	classifyRange := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			level, err := c.Classify(lines[i])
			out[i] = Classified{Line: lines[i], Level: level}
			errs[i] = err
		}
	}

	if workers <= 1 || len(lines) < 2 {
		classifyRange(0, len(lines))
	} else {
		if workers > len(lines) {
			workers = len(lines)
		}
		size := (len(lines) + workers - 1) / workers
		var wg sync.WaitGroup
		for lo := 0; lo < len(lines); lo += size {
			hi := min(lo+size, len(lines))
			wg.Add(1)
			go func() {
				defer wg.Done()
				classifyRange(lo, hi)
			}()
		}
		wg.Wait()
	}

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("classify line %d (page %d): %w", i, lines[i].Page, err)
		}
	}
	return out, nil
}
