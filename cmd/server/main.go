package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hellorun/server/internal/app"
	"github.com/hellorun/server/internal/config"
	"github.com/hellorun/server/internal/pkg/nativelog"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "Path to YAML config file")
	envFile := flag.String("env-file", ".env", "Optional dotenv file loaded before the config")
	flag.Parse()

	envErr := godotenv.Load(*envFile)

	cfg, cfgErr := config.Load(*configPath)
	logDir, debug := "", false
	if cfgErr == nil {
		logDir, debug = cfg.LogDir(), cfg.IsDev()
	}

	logger, err := nativelog.NewZapLogger(logDir, debug)
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("file log unavailable, falling back to zap production logger", zap.Error(err))
	}
	defer logger.Sync()

	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn("could not load env file", zap.String("path", *envFile), zap.Error(envErr))
	}
	if cfgErr != nil {
		logger.Fatal("failed to load config", zap.Error(cfgErr))
	}

	application, err := app.New(logger, cfg)
	if err != nil {
		logger.Fatal("failed to initialize app", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              application.Addr(),
		Handler:           application.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	application.Shutdown()
	logger.Info("server exited")
}
