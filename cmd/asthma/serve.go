package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"asthmapredict/config"
	qhttp "asthmapredict/http"
	"asthmapredict/logger"
)

func serveCmd(configPath *string) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the prediction web form and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Http.Port = port
			}
			return runServer(cfg)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides http.port)")
	return cmd
}

func runServer(cfg *config.Config) error {
	// 1. Logger
	log, err := logger.New(loggerOptions(cfg))
	if err != nil {
		return err
	}
	defer log.Sync()

	// 2. Model and prediction service
	a, err := newApp(cfg, log)
	if err != nil {
		log.Error("failed to load model", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Model.Watch {
		go func() {
			if err := a.models.Watch(ctx); err != nil {
				log.Error("model watcher stopped", zap.Error(err))
			}
		}()
	}

	// 3. HTTP server
	handlers := qhttp.NewHandlers(a.service, a.models, log)
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
		MaxBodyBytes:   cfg.Http.MaxBodyBytes,
	}, handlers, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 4. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	cancel()
	if err := server.Stop(); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		return err
	}
	log.Info("exiting")
	return nil
}
