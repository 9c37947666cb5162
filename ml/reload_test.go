package ml

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func copyFile(t *testing.T, src, dst string) {
	t.Helper()
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dst, data, 0o600))
}

func TestReloadableKeepsModelOnBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	copyFile(t, "testdata/forest.json", path)

	model, err := NewReloadable(TypeRandomForest, path, LoadOptions{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 3, model.Info().Trees)

	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))
	assert.Error(t, model.Reload())

	prediction, err := model.Predict(context.Background(), make([]float64, 26))
	require.NoError(t, err)
	assert.Equal(t, 0, prediction.Label)
	assert.Equal(t, 3, model.Info().Trees)
}

func TestReloadableRunsHooks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	copyFile(t, "testdata/forest.json", path)

	model, err := NewReloadable(TypeRandomForest, path, LoadOptions{}, nil)
	require.NoError(t, err)

	var seen []ModelInfo
	model.OnReload(func(info ModelInfo) { seen = append(seen, info) })
	require.NoError(t, model.Reload())
	require.Len(t, seen, 1)
	assert.Equal(t, path, seen[0].Path)
	assert.Len(t, seen[0].FeatureNames, 26)
}

func TestReloadableWatchPicksUpNewFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	copyFile(t, "testdata/forest.json", path)

	model, err := NewReloadable(TypeRandomForest, path, LoadOptions{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	loadedAt := model.Info().LoadedAt

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- model.Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register before touching the file.
	time.Sleep(100 * time.Millisecond)
	copyFile(t, "testdata/forest.json", path)

	assert.Eventually(t, func() bool {
		return model.Info().LoadedAt.After(loadedAt)
	}, 5*time.Second, 20*time.Millisecond)
}
