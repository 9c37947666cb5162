package ml

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNoModel          = errors.New("model not loaded")
	ErrUnsupportedModel = errors.New("unsupported model type")
	ErrFeatureMismatch  = errors.New("feature names do not match")
)

// Prediction is the classifier output for one feature row.
type Prediction struct {
	Label         int       `json:"label"`
	Confidence    float64   `json:"confidence"`
	Classes       []int     `json:"classes,omitempty"`
	Probabilities []float64 `json:"probabilities,omitempty"`
}

// Classifier is a pre-trained classifier over a fixed-length feature vector.
type Classifier interface {
	Predict(ctx context.Context, features []float64) (Prediction, error)
}

// FeatureNamer is implemented by artifacts that record the column names they
// were fitted with.
type FeatureNamer interface {
	FeatureNames() []string
}

// CheckFeatureNames fails when the model declares feature names that differ
// from columns, in content or order. Models without names always pass.
func CheckFeatureNames(model Classifier, columns []string) error {
	namer, ok := model.(FeatureNamer)
	if !ok {
		return nil
	}
	names := namer.FeatureNames()
	if len(names) == 0 {
		return nil
	}
	if len(names) != len(columns) {
		return fmt.Errorf("%w: model has %d features, record has %d", ErrFeatureMismatch, len(names), len(columns))
	}
	for i := range names {
		if names[i] != columns[i] {
			return fmt.Errorf("%w: column %d is %q in the model, %q in the record", ErrFeatureMismatch, i, names[i], columns[i])
		}
	}
	return nil
}

// argmax picks the class with the highest probability; ties go to the
// earlier class.
func argmax(classes []int, probs []float64) (int, float64) {
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return classes[best], probs[best]
}
