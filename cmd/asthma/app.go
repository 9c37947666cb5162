package main

import (
	"fmt"

	"go.uber.org/zap"

	"asthmapredict/config"
	"asthmapredict/logger"
	"asthmapredict/ml"
	"asthmapredict/patient"
	"asthmapredict/predict"
)

// app holds the pieces every command needs once configuration is loaded.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	models  *ml.Reloadable
	cache   *ml.CachedClassifier
	service *predict.Service
}

func loggerOptions(cfg *config.Config) logger.Options {
	return logger.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}
}

// newApp loads the model and builds the prediction service on top of it.
func newApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	opts := ml.LoadOptions{
		Columns: patient.Columns(),
		Timeout: cfg.Model.RemoteTimeout,
	}
	models, err := ml.NewReloadable(cfg.Model.Type, cfg.Model.Path, opts, log)
	if err != nil {
		return nil, err
	}

	cache, err := ml.NewCachedClassifier(models, cfg.Model.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("prediction cache: %w", err)
	}
	models.OnReload(func(info ml.ModelInfo) {
		cache.Purge()
		log.Debug("prediction cache cleared", zap.Time("model_loaded_at", info.LoadedAt))
	})

	return &app{
		cfg:     cfg,
		logger:  log,
		models:  models,
		cache:   cache,
		service: predict.NewService(cache, log),
	}, nil
}
