// Package config loads the service configuration from YAML, a .env file and
// ASTHMA_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	} `yaml:"http"`
	Model struct {
		Type          string        `yaml:"type"`
		Path          string        `yaml:"path"`
		Watch         bool          `yaml:"watch"`
		CacheSize     int           `yaml:"cache_size"`
		RemoteTimeout time.Duration `yaml:"remote_timeout"`
	} `yaml:"model"`
	Log struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads path (a missing file is not an error), applies .env and
// environment overrides, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		file, err := os.Open(path)
		switch {
		case err == nil:
			defer file.Close()
			if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Http.Port == 0 {
		cfg.Http.Port = 8501
	}
	if cfg.Http.Timeout == 0 {
		cfg.Http.Timeout = 30 * time.Second
	}
	if len(cfg.Http.AllowedOrigins) == 0 {
		cfg.Http.AllowedOrigins = []string{"*"}
	}
	if cfg.Http.MaxBodyBytes == 0 {
		cfg.Http.MaxBodyBytes = 64 << 10
	}
	if cfg.Model.Type == "" {
		cfg.Model.Type = "random_forest"
	}
	if cfg.Model.Path == "" {
		cfg.Model.Path = "models/rf_model.json"
	}
	if cfg.Model.CacheSize == 0 {
		cfg.Model.CacheSize = 1024
	}
	if cfg.Model.RemoteTimeout == 0 {
		cfg.Model.RemoteTimeout = 10 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("ASTHMA_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ASTHMA_HTTP_PORT: %w", err)
		}
		cfg.Http.Port = port
	}
	if v := os.Getenv("ASTHMA_MODEL_TYPE"); v != "" {
		cfg.Model.Type = v
	}
	if v := os.Getenv("ASTHMA_MODEL_PATH"); v != "" {
		cfg.Model.Path = v
	}
	if v := os.Getenv("ASTHMA_MODEL_WATCH"); v != "" {
		watch, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ASTHMA_MODEL_WATCH: %w", err)
		}
		cfg.Model.Watch = watch
	}
	if v := os.Getenv("ASTHMA_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ASTHMA_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("ASTHMA_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	switch c.Model.Type {
	case "decision_tree", "random_forest", "remote":
	default:
		return fmt.Errorf("model.type %q is not one of decision_tree, random_forest, remote", c.Model.Type)
	}
	if c.Model.CacheSize < 0 {
		return errors.New("model.cache_size must not be negative")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format %q is not json or console", c.Log.Format)
	}
	return nil
}
