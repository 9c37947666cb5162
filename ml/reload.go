package ml

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"asthmapredict/monitoring"
)

// ModelInfo describes the artifact currently serving predictions.
type ModelInfo struct {
	Type         string    `json:"type"`
	Path         string    `json:"path"`
	LoadedAt     time.Time `json:"loaded_at"`
	Trees        int       `json:"trees,omitempty"`
	FeatureNames []string  `json:"feature_names,omitempty"`
}

// Reloadable serves predictions from a model file and swaps in a new model
// when the file changes. A file that fails to load leaves the previous model
// in place.
type Reloadable struct {
	modelType string
	path      string
	opts      LoadOptions
	logger    *zap.Logger

	mu       sync.RWMutex
	model    Classifier
	info     ModelInfo
	onReload []func(ModelInfo)
}

// NewReloadable loads the model once and returns a handle to it.
func NewReloadable(modelType, path string, opts LoadOptions, logger *zap.Logger) (*Reloadable, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reloadable{
		modelType: modelType,
		path:      path,
		opts:      opts,
		logger:    logger.Named("model"),
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reloadable) Predict(ctx context.Context, features []float64) (Prediction, error) {
	r.mu.RLock()
	model := r.model
	r.mu.RUnlock()
	if model == nil {
		return Prediction{}, ErrNoModel
	}
	return model.Predict(ctx, features)
}

func (r *Reloadable) FeatureNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.info.FeatureNames
}

// Info returns a description of the loaded model.
func (r *Reloadable) Info() ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.info
}

// OnReload registers fn to run after every successful reload.
func (r *Reloadable) OnReload(fn func(ModelInfo)) {
	r.mu.Lock()
	r.onReload = append(r.onReload, fn)
	r.mu.Unlock()
}

// Reload reads the artifact again and swaps it in.
func (r *Reloadable) Reload() error {
	r.logger.Info("loading model", zap.String("type", r.modelType), zap.String("path", r.path))
	model, err := LoadModel(r.modelType, r.path, r.opts)
	if err != nil {
		monitoring.ModelReloads.WithLabelValues("failure").Inc()
		r.logger.Error("model load failed", zap.String("path", r.path), zap.Error(err))
		return fmt.Errorf("load model %s: %w", r.path, err)
	}

	info := ModelInfo{Type: r.modelType, Path: r.path, LoadedAt: time.Now()}
	if rf, ok := model.(*RandomForest); ok {
		info.Trees = rf.Trees()
	}
	if namer, ok := model.(FeatureNamer); ok {
		info.FeatureNames = namer.FeatureNames()
	}

	r.mu.Lock()
	r.model = model
	r.info = info
	hooks := append([]func(ModelInfo){}, r.onReload...)
	r.mu.Unlock()

	for _, fn := range hooks {
		fn(info)
	}
	monitoring.ModelReloads.WithLabelValues("success").Inc()
	monitoring.ModelLoadedAt.Set(float64(info.LoadedAt.Unix()))
	r.logger.Info("model loaded", zap.String("type", info.Type), zap.Int("trees", info.Trees))
	return nil
}

// Watch reloads the model whenever its file is written or replaced, until
// ctx is cancelled. The parent directory is watched so that editors and
// deploy tools that rename a new file into place are picked up too.
func (r *Reloadable) Watch(ctx context.Context) error {
	if r.modelType == TypeRemote {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(r.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}
	r.logger.Info("watching model file", zap.String("path", target))

	// Writers often emit several events per save; reload once they settle.
	const settle = 100 * time.Millisecond
	var timer *time.Timer
	reload := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(settle, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			if err := r.Reload(); err != nil {
				r.logger.Warn("keeping previous model", zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				r.logger.Warn("model watcher overflow, reloading")
				_ = r.Reload()
				continue
			}
			r.logger.Error("model watcher error", zap.Error(err))
		}
	}
}
