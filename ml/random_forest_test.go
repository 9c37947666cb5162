package ml

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asthmapredict/patient"
)

func loadForest(t *testing.T) *RandomForest {
	t.Helper()
	model, err := LoadModel(TypeRandomForest, "testdata/forest.json", LoadOptions{Columns: patient.Columns()})
	require.NoError(t, err)
	rf, ok := model.(*RandomForest)
	require.True(t, ok)
	return rf
}

func TestRandomForestPredictsNoAsthmaForDefaults(t *testing.T) {
	rf := loadForest(t)
	assert.Equal(t, 3, rf.Trees())

	prediction, err := rf.Predict(context.Background(), patient.Defaults().Vector())
	require.NoError(t, err)
	assert.Equal(t, 0, prediction.Label)
	assert.Equal(t, []int{0, 1}, prediction.Classes)
	require.Len(t, prediction.Probabilities, 2)
	assert.InDelta(t, 1.0, prediction.Probabilities[0]+prediction.Probabilities[1], 1e-9)
	// (5/85 + 4/94 + 10/80) / 3
	assert.InDelta(t, (5.0/85+4.0/94+10.0/80)/3, prediction.Probabilities[1], 1e-9)
}

func TestRandomForestPredictsAsthmaForSymptoms(t *testing.T) {
	rf := loadForest(t)

	record, err := patient.FromValues(map[string]string{
		"Wheezing":            "Yes",
		"LungFunctionFEV1":    "1.5",
		"FamilyHistoryAsthma": "Yes",
		"NighttimeSymptoms":   "Yes",
		"HistoryOfAllergies":  "Yes",
	}, true)
	require.NoError(t, err)

	prediction, err := rf.Predict(context.Background(), record.Vector())
	require.NoError(t, err)
	assert.Equal(t, 1, prediction.Label)
	assert.InDelta(t, (40.0/45+35.0/41+30.0/34)/3, prediction.Confidence, 1e-9)
}

func TestRandomForestRejectsWrongWidth(t *testing.T) {
	rf := loadForest(t)
	_, err := rf.Predict(context.Background(), []float64{1, 2, 3})
	assert.True(t, errors.Is(err, ErrFeatureMismatch))
}

func TestLoadModelChecksFeatureNames(t *testing.T) {
	columns := patient.Columns()
	columns[0], columns[1] = columns[1], columns[0]

	_, err := LoadModel(TypeRandomForest, "testdata/forest.json", LoadOptions{Columns: columns})
	assert.True(t, errors.Is(err, ErrFeatureMismatch))
}

func TestLoadModelDecisionTree(t *testing.T) {
	model, err := LoadModel(TypeDecisionTree, "testdata/tree.json", LoadOptions{Columns: patient.Columns()})
	require.NoError(t, err)

	prediction, err := model.Predict(context.Background(), patient.Defaults().Vector())
	require.NoError(t, err)
	assert.Equal(t, 0, prediction.Label)
}

func TestLoadModelUnsupported(t *testing.T) {
	_, err := LoadModel("pickle", "rf_model.pkl", LoadOptions{})
	assert.True(t, errors.Is(err, ErrUnsupportedModel))
}

func TestPredictHonoursCancelledContext(t *testing.T) {
	rf := loadForest(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := rf.Predict(ctx, patient.Defaults().Vector())
	assert.ErrorIs(t, err, context.Canceled)
}
