package ml

import (
	"fmt"
	"time"
)

const (
	TypeDecisionTree = "decision_tree"
	TypeRandomForest = "random_forest"
	TypeRemote       = "remote"
)

// LoadOptions carries the settings that only some model types use.
type LoadOptions struct {
	Columns []string
	Timeout time.Duration
}

// LoadModel opens a model artifact. For remote models path is the server URL.
func LoadModel(modelType, path string, opts LoadOptions) (Classifier, error) {
	var model Classifier
	switch modelType {
	case TypeDecisionTree:
		dt := &DecisionTree{}
		if err := dt.Load(path); err != nil {
			return nil, err
		}
		model = dt
	case TypeRandomForest:
		rf := &RandomForest{}
		if err := rf.Load(path); err != nil {
			return nil, err
		}
		model = rf
	case TypeRemote:
		model = NewRemoteClassifier(path, opts.Columns, opts.Timeout)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, modelType)
	}
	if len(opts.Columns) > 0 {
		if err := CheckFeatureNames(model, opts.Columns); err != nil {
			return nil, err
		}
	}
	return model, nil
}
