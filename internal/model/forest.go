package model

import (
	"errors"
	"fmt"
)

var (
	// ErrFeatureShape is returned when a feature vector has the wrong length.
	ErrFeatureShape = errors.New("feature vector has wrong shape")
	// ErrUnknownClass is returned when a class index has no label.
	ErrUnknownClass = errors.New("class index outside label vocabulary")
	// ErrArtifact marks a missing or corrupt model artifact.
	ErrArtifact = errors.New("invalid model artifact")
)

// leaf marks a node without children, as in scikit-learn's tree export.
const leaf = -1

// Node is one node of an exported decision tree. Internal nodes route
// x[Feature] <= Threshold to Left, everything else to Right. Leaves carry
// per-class weights in Value.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value,omitempty"`
}

// Tree is a flattened decision tree; Nodes[0] is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Forest is a random-forest classifier exported from scikit-learn.
type Forest struct {
	Type         string   `json:"type"`
	NFeatures    int      `json:"n_features"`
	NClasses     int      `json:"n_classes"`
	FeatureNames []string `json:"feature_names,omitempty"`
	Trees        []Tree   `json:"trees"`
}

// Predict returns the index of the most probable class. Ties go to the
// lowest index.
func (f *Forest) Predict(features []float64) (int, error) {
	proba, err := f.PredictProba(features)
	if err != nil {
		return 0, err
	}
	best := 0
	for i, p := range proba {
		if p > proba[best] {
			best = i
		}
	}
	return best, nil
}

// PredictProba averages the normalized leaf distributions of all trees.
func (f *Forest) PredictProba(features []float64) ([]float64, error) {
	if len(features) != f.NFeatures {
		return nil, fmt.Errorf("%w: got %d features, want %d", ErrFeatureShape, len(features), f.NFeatures)
	}
	// Trees were fit on float32 inputs.
	x := make([]float64, len(features))
	for i, v := range features {
		x[i] = float64(float32(v))
	}

	proba := make([]float64, f.NClasses)
	for _, tree := range f.Trees {
		value := tree.leafValue(x)
		var sum float64
		for _, w := range value {
			sum += w
		}
		if sum == 0 {
			sum = 1
		}
		for i, w := range value {
			proba[i] += w / sum
		}
	}
	n := float64(len(f.Trees))
	for i := range proba {
		proba[i] /= n
	}
	return proba, nil
}

func (t Tree) leafValue(x []float64) []float64 {
	i := 0
	for t.Nodes[i].Left != leaf {
		n := t.Nodes[i]
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Value
}

// Features returns the training-time column order, if the export recorded it.
func (f *Forest) Features() []string {
	return f.FeatureNames
}

// validate checks the structural invariants Predict relies on: child
// indices point forward inside the tree, internal nodes reference a real
// feature, and every leaf has one weight per class.
func (f *Forest) validate() error {
	if f.NFeatures <= 0 || f.NClasses <= 0 {
		return fmt.Errorf("n_features=%d n_classes=%d", f.NFeatures, f.NClasses)
	}
	if len(f.FeatureNames) > 0 && len(f.FeatureNames) != f.NFeatures {
		return fmt.Errorf("%d feature names for %d features", len(f.FeatureNames), f.NFeatures)
	}
	if len(f.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	for ti, tree := range f.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d: no nodes", ti)
		}
		for ni, n := range tree.Nodes {
			if n.Left == leaf {
				if n.Right != leaf {
					return fmt.Errorf("tree %d node %d: half-leaf", ti, ni)
				}
				if len(n.Value) != f.NClasses {
					return fmt.Errorf("tree %d node %d: %d class weights, want %d", ti, ni, len(n.Value), f.NClasses)
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= f.NFeatures {
				return fmt.Errorf("tree %d node %d: feature %d out of range", ti, ni, n.Feature)
			}
			for _, child := range []int{n.Left, n.Right} {
				if child <= ni || child >= len(tree.Nodes) {
					return fmt.Errorf("tree %d node %d: child %d out of range", ti, ni, child)
				}
			}
		}
	}
	return nil
}
