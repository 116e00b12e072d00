// Package main wires together the vedictime service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/vedictime/internal/api"
	"github.com/JakeFAU/vedictime/internal/clock/system"
	"github.com/JakeFAU/vedictime/internal/config"
	"github.com/JakeFAU/vedictime/internal/logging"
	"github.com/JakeFAU/vedictime/internal/renderer/headless"
	"github.com/JakeFAU/vedictime/internal/vedictime"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("service exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session, err := headless.NewSession(headless.Config{
		URL:               cfg.Upstream.URL,
		UserAgent:         cfg.Upstream.UserAgent,
		NavigationTimeout: cfg.NavTimeout(),
		NoSandbox:         cfg.Headless.NoSandbox,
		ExecPath:          cfg.Headless.ExecPath,
	}, logger.Named("renderer"))
	if err != nil {
		return fmt.Errorf("create browser session: %w", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logger.Warn("browser session close failed", zap.Error(closeErr))
		}
	}()

	service := vedictime.NewService(session, system.New(), vedictime.Config{
		Source:         cfg.Upstream.Source,
		UpstreamURL:    cfg.Upstream.URL,
		ThrottleWindow: cfg.ThrottleWindow(),
		RefreshWindow:  cfg.RefreshWindow(),
	}, logger.Named("service"))

	apiServer := api.NewServer(service, cfg, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started",
			zap.Int("port", cfg.Server.Port),
			zap.String("upstream", cfg.Upstream.URL),
			zap.Strings("allow_origins", cfg.Server.AllowOrigins),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}
