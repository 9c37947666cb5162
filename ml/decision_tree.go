package ml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

type DecisionTree struct {
	nodes   []TreeNode
	classes []int
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	IsLeaf     bool    `json:"is_leaf"`
	// Value holds the per-class training sample counts (or fractions) of a leaf.
	Value []float64 `json:"value,omitempty"`
}

// NewDecisionTree builds a tree from its nodes. classes lists the class
// labels that leaf values are indexed by; nil means [0, 1].
func NewDecisionTree(nodes []TreeNode, classes []int) (*DecisionTree, error) {
	if len(classes) == 0 {
		classes = []int{0, 1}
	}
	dt := &DecisionTree{nodes: nodes, classes: classes}
	if err := dt.validate(); err != nil {
		return nil, err
	}
	return dt, nil
}

func (dt *DecisionTree) Predict(ctx context.Context, features []float64) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	probs, err := dt.PredictProba(features)
	if err != nil {
		return Prediction{}, err
	}
	label, confidence := argmax(dt.classes, probs)
	return Prediction{
		Label:         label,
		Confidence:    confidence,
		Classes:       dt.classes,
		Probabilities: probs,
	}, nil
}

// PredictProba returns the class distribution of the leaf the features fall in.
func (dt *DecisionTree) PredictProba(features []float64) ([]float64, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return nil, err
	}
	return dt.leafProba(leaf), nil
}

func (dt *DecisionTree) leaf(features []float64) (TreeNode, error) {
	if len(dt.nodes) == 0 {
		return TreeNode{}, errors.New("model not trained")
	}
	idx := 0
	// A well-formed tree reaches a leaf in fewer steps than it has nodes.
	for steps := 0; steps <= len(dt.nodes); steps++ {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return TreeNode{}, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return TreeNode{}, errors.New("invalid tree state")
		}
	}
	return TreeNode{}, errors.New("invalid tree state: cycle")
}

func (dt *DecisionTree) leafProba(node TreeNode) []float64 {
	probs := make([]float64, len(dt.classes))
	var total float64
	if len(node.Value) == len(dt.classes) {
		for _, v := range node.Value {
			total += v
		}
	}
	if total > 0 {
		for i, v := range node.Value {
			probs[i] = v / total
		}
		return probs
	}
	for i, c := range dt.classes {
		if c == node.ClassLabel {
			probs[i] = 1
		}
	}
	return probs
}

func (dt *DecisionTree) validate() error {
	if len(dt.nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i, node := range dt.nodes {
		if node.IsLeaf {
			if !dt.knownClass(node.ClassLabel) && len(node.Value) != len(dt.classes) {
				return fmt.Errorf("node %d: leaf class %d is not one of %v", i, node.ClassLabel, dt.classes)
			}
			continue
		}
		if node.LeftChild <= 0 || node.LeftChild >= len(dt.nodes) ||
			node.RightChild <= 0 || node.RightChild >= len(dt.nodes) {
			return fmt.Errorf("node %d: child index out of range", i)
		}
		if node.FeatureIdx < 0 {
			return fmt.Errorf("node %d: negative feature index", i)
		}
	}
	return nil
}

func (dt *DecisionTree) knownClass(label int) bool {
	for _, c := range dt.classes {
		if c == label {
			return true
		}
	}
	return false
}

// Load reads a tree saved as a JSON array of nodes.
func (dt *DecisionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var nodes []TreeNode
	if err := json.Unmarshal(payload, &nodes); err != nil {
		return err
	}
	loaded, err := NewDecisionTree(nodes, dt.classes)
	if err != nil {
		return err
	}
	*dt = *loaded
	return nil
}

// Save writes the tree nodes as JSON.
func (dt *DecisionTree) Save(path string) error {
	if len(dt.nodes) == 0 {
		return errors.New("model not trained")
	}
	payload, err := json.Marshal(dt.nodes)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}
