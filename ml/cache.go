package ml

import (
	"context"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"asthmapredict/monitoring"
)

// CachedClassifier memoises predictions by feature vector. The form resubmits
// the same record often (live preview, repeated Predict clicks) and forest
// evaluation is pure, so identical rows are answered from memory.
type CachedClassifier struct {
	inner Classifier
	cache *lru.Cache[string, Prediction]

	// generation advances on every Purge; answers computed under an older
	// generation are returned but not stored.
	mu         sync.Mutex
	generation uint64
}

func NewCachedClassifier(inner Classifier, size int) (*CachedClassifier, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[string, Prediction](size)
	if err != nil {
		return nil, err
	}
	return &CachedClassifier{inner: inner, cache: cache}, nil
}

func (c *CachedClassifier) Predict(ctx context.Context, features []float64) (Prediction, error) {
	key := vectorKey(features)
	if prediction, ok := c.cache.Get(key); ok {
		monitoring.CacheLookups.WithLabelValues("hit").Inc()
		return prediction, nil
	}
	monitoring.CacheLookups.WithLabelValues("miss").Inc()

	c.mu.Lock()
	generation := c.generation
	c.mu.Unlock()

	prediction, err := c.inner.Predict(ctx, features)
	if err != nil {
		return Prediction{}, err
	}

	c.mu.Lock()
	if generation == c.generation {
		c.cache.Add(key, prediction)
	}
	c.mu.Unlock()
	return prediction, nil
}

// Purge drops every cached prediction, including any still being computed.
func (c *CachedClassifier) Purge() {
	c.mu.Lock()
	c.generation++
	c.cache.Purge()
	c.mu.Unlock()
}

// Len returns the number of cached predictions.
func (c *CachedClassifier) Len() int {
	return c.cache.Len()
}

func (c *CachedClassifier) FeatureNames() []string {
	if namer, ok := c.inner.(FeatureNamer); ok {
		return namer.FeatureNames()
	}
	return nil
}

func vectorKey(features []float64) string {
	var b strings.Builder
	for i, f := range features {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return b.String()
}
