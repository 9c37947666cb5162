package ml

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClassifier struct {
	calls int
	label int
}

func (c *countingClassifier) Predict(ctx context.Context, features []float64) (Prediction, error) {
	c.calls++
	return Prediction{Label: c.label, Confidence: 0.9}, nil
}

func TestCachedClassifierMemoisesByVector(t *testing.T) {
	inner := &countingClassifier{label: 1}
	cached, err := NewCachedClassifier(inner, 8)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		prediction, err := cached.Predict(ctx, []float64{1, 2.5, 3})
		require.NoError(t, err)
		assert.Equal(t, 1, prediction.Label)
	}
	assert.Equal(t, 1, inner.calls)

	_, err = cached.Predict(ctx, []float64{1, 2.5, 4})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 2, cached.Len())

	cached.Purge()
	assert.Equal(t, 0, cached.Len())
	_, err = cached.Predict(ctx, []float64{1, 2.5, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestVectorKeyDistinguishesValues(t *testing.T) {
	assert.NotEqual(t, vectorKey([]float64{1, 23}), vectorKey([]float64{12, 3}))
	assert.Equal(t, "25|0.5", vectorKey([]float64{25, 0.5}))
}

// gatedClassifier blocks inside Predict until release is closed.
type gatedClassifier struct {
	entered chan struct{}
	release chan struct{}
	label   int
}

func (g *gatedClassifier) Predict(ctx context.Context, features []float64) (Prediction, error) {
	close(g.entered)
	<-g.release
	return Prediction{Label: g.label, Confidence: 1}, nil
}

func TestCachedClassifierDropsAnswerFromBeforePurge(t *testing.T) {
	gated := &gatedClassifier{entered: make(chan struct{}), release: make(chan struct{})}
	cached, err := NewCachedClassifier(gated, 8)
	require.NoError(t, err)

	done := make(chan Prediction, 1)
	go func() {
		prediction, err := cached.Predict(context.Background(), []float64{1, 2})
		assert.NoError(t, err)
		done <- prediction
	}()

	select {
	case <-gated.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("classifier was never called")
	}
	cached.Purge()
	close(gated.release)

	prediction := <-done
	assert.Equal(t, 0, prediction.Label)
	assert.Equal(t, 0, cached.Len(), "answer computed before the purge must not be cached")

	// The next lookup goes to the classifier again.
	inner := &countingClassifier{label: 1}
	cached.inner = inner
	prediction, err = cached.Predict(context.Background(), []float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 1, prediction.Label)
	assert.Equal(t, 1, inner.calls)
}
