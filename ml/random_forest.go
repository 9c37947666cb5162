package ml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// RandomForest evaluates a random forest exported from scikit-learn. Each
// tree votes with its leaf class distribution and the forest predicts the
// class with the highest mean probability, as RandomForestClassifier does.
type RandomForest struct {
	trees        []*DecisionTree
	classes      []int
	featureNames []string
}

// ForestFile is the on-disk JSON layout of a forest.
type ForestFile struct {
	ModelType    string     `json:"model_type"`
	Classes      []int      `json:"classes"`
	FeatureNames []string   `json:"feature_names,omitempty"`
	Trees        []TreeFile `json:"trees"`
}

type TreeFile struct {
	Nodes []TreeNode `json:"nodes"`
}

func NewRandomForest(file ForestFile) (*RandomForest, error) {
	if file.ModelType != "" && file.ModelType != "random_forest" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, file.ModelType)
	}
	if len(file.Trees) == 0 {
		return nil, errors.New("forest has no trees")
	}
	classes := file.Classes
	if len(classes) == 0 {
		classes = []int{0, 1}
	}
	rf := &RandomForest{
		trees:        make([]*DecisionTree, 0, len(file.Trees)),
		classes:      classes,
		featureNames: file.FeatureNames,
	}
	for i, t := range file.Trees {
		tree, err := NewDecisionTree(t.Nodes, classes)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		rf.trees = append(rf.trees, tree)
	}
	return rf, nil
}

func (rf *RandomForest) Predict(ctx context.Context, features []float64) (Prediction, error) {
	if len(rf.trees) == 0 {
		return Prediction{}, ErrNoModel
	}
	if len(rf.featureNames) > 0 && len(features) != len(rf.featureNames) {
		return Prediction{}, fmt.Errorf("%w: expected %d features, got %d", ErrFeatureMismatch, len(rf.featureNames), len(features))
	}
	probs := make([]float64, len(rf.classes))
	for _, tree := range rf.trees {
		if err := ctx.Err(); err != nil {
			return Prediction{}, err
		}
		treeProbs, err := tree.PredictProba(features)
		if err != nil {
			return Prediction{}, err
		}
		for i, p := range treeProbs {
			probs[i] += p
		}
	}
	for i := range probs {
		probs[i] /= float64(len(rf.trees))
	}
	label, confidence := argmax(rf.classes, probs)
	return Prediction{
		Label:         label,
		Confidence:    confidence,
		Classes:       rf.classes,
		Probabilities: probs,
	}, nil
}

func (rf *RandomForest) FeatureNames() []string {
	return rf.featureNames
}

// Trees returns the number of estimators.
func (rf *RandomForest) Trees() int {
	return len(rf.trees)
}

func (rf *RandomForest) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file ForestFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return err
	}
	loaded, err := NewRandomForest(file)
	if err != nil {
		return err
	}
	*rf = *loaded
	return nil
}
