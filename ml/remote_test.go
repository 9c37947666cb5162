package ml

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteClassifierPredict(t *testing.T) {
	var got remoteRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(remoteResponse{
			Prediction:    []int{1},
			Probabilities: [][]float64{{0.3, 0.7}},
		})
	}))
	defer server.Close()

	client := NewRemoteClassifier(server.URL, []string{"Age", "BMI"}, time.Second)
	prediction, err := client.Predict(context.Background(), []float64{30, 22.5})
	require.NoError(t, err)

	assert.Equal(t, []string{"Age", "BMI"}, got.Columns)
	assert.Equal(t, [][]float64{{30, 22.5}}, got.Data)
	assert.Equal(t, 1, prediction.Label)
	assert.Equal(t, 0.7, prediction.Confidence)
	assert.Equal(t, []int{0, 1}, prediction.Classes)
}

func TestRemoteClassifierServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(remoteResponse{Error: "boom"})
	}))
	defer server.Close()

	client := NewRemoteClassifier(server.URL, nil, time.Second)
	_, err := client.Predict(context.Background(), []float64{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRemoteClassifierRejectsWrongWidth(t *testing.T) {
	client := NewRemoteClassifier("http://127.0.0.1:1", []string{"Age"}, time.Second)
	_, err := client.Predict(context.Background(), []float64{1, 2})
	assert.ErrorIs(t, err, ErrFeatureMismatch)
}

func TestRemoteClassifierWithoutProbabilities(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(remoteResponse{Prediction: []int{1}})
	}))
	defer server.Close()

	client := NewRemoteClassifier(server.URL, []string{"Age"}, time.Second)
	prediction, err := client.Predict(context.Background(), []float64{30})
	require.NoError(t, err)

	assert.Equal(t, 1, prediction.Label)
	assert.Zero(t, prediction.Confidence)
	assert.Empty(t, prediction.Probabilities)
}
