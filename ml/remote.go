package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// RemoteClassifier calls a model server that keeps the pickled estimator in
// its own runtime. The request carries one row in pandas "split" layout so
// the server can rebuild the DataFrame with the exact column names.
type RemoteClassifier struct {
	url     string
	columns []string
	client  *http.Client
}

type remoteRequest struct {
	Columns []string    `json:"columns"`
	Data    [][]float64 `json:"data"`
}

type remoteResponse struct {
	Prediction    []int       `json:"prediction"`
	Probabilities [][]float64 `json:"probabilities,omitempty"`
	Classes       []int       `json:"classes,omitempty"`
	Error         string      `json:"error,omitempty"`
}

func NewRemoteClassifier(url string, columns []string, timeout time.Duration) *RemoteClassifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemoteClassifier{
		url:     url,
		columns: columns,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *RemoteClassifier) Predict(ctx context.Context, features []float64) (Prediction, error) {
	if c == nil || c.client == nil || c.url == "" {
		return Prediction{}, errors.New("remote model not configured")
	}
	if len(c.columns) > 0 && len(features) != len(c.columns) {
		return Prediction{}, fmt.Errorf("%w: expected %d features, got %d", ErrFeatureMismatch, len(c.columns), len(features))
	}

	payload, err := json.Marshal(remoteRequest{Columns: c.columns, Data: [][]float64{features}})
	if err != nil {
		return Prediction{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Prediction{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Prediction{}, err
	}
	defer resp.Body.Close()

	var body remoteResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && body.Error != "" {
			return Prediction{}, fmt.Errorf("model server error: %s", body.Error)
		}
		return Prediction{}, fmt.Errorf("model server returned status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return Prediction{}, decodeErr
	}
	if len(body.Prediction) == 0 {
		return Prediction{}, errors.New("model server returned empty prediction")
	}

	// Without probabilities the server gives no confidence; it stays zero.
	prediction := Prediction{Label: body.Prediction[0]}
	if len(body.Probabilities) > 0 {
		classes := body.Classes
		if len(classes) == 0 {
			classes = []int{0, 1}
		}
		probs := body.Probabilities[0]
		if len(probs) == len(classes) {
			prediction.Classes = classes
			prediction.Probabilities = probs
			for i, class := range classes {
				if class == prediction.Label {
					prediction.Confidence = probs[i]
				}
			}
		}
	}
	return prediction, nil
}

func (c *RemoteClassifier) FeatureNames() []string {
	return c.columns
}
