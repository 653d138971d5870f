// Package app initializes and holds long-lived application services shared by the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jumpit-harvester/internal/api"
	"github.com/JakeFAU/jumpit-harvester/internal/config"
	"github.com/JakeFAU/jumpit-harvester/internal/logging"
	"github.com/JakeFAU/jumpit-harvester/internal/metrics"
	"github.com/JakeFAU/jumpit-harvester/internal/store"
)

const (
	shutdownTimeout = 5 * time.Second
	runHistory      = 32
	dotEnvFile      = ".env"
)

// App holds the loaded configuration, the root logger, the run tracker and,
// when enabled, the metrics server. It is built once per command invocation.
type App struct {
	cfg         config.Config
	logger      *zap.Logger
	runs        *store.Tracker
	metricsSrv  *http.Server
	metricsAddr string
}

// GetConfig returns the validated configuration.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetLogger returns the root logger.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetRunTracker returns the tracker backing /api/runs. Commands that emit
// progress events attach it as a sink.
func (a *App) GetRunTracker() *store.Tracker {
	return a.runs
}

// MetricsAddr reports the address the metrics server listens on, or "" when disabled.
func (a *App) MetricsAddr() string {
	return a.metricsAddr
}

// New loads configuration from cfgPath (optional), a .env file in the working
// directory and the environment, builds the logger and starts the metrics
// server if metrics.listen_addr is set.
func New(ctx context.Context, cfgPath string) (*App, error) {
	if err := config.LoadDotEnv(dotEnvFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return NewWithConfig(ctx, cfg, logger)
}

// NewWithConfig assembles an App from an already loaded configuration.
func NewWithConfig(_ context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, runs: store.NewTracker(runHistory)}
	if cfg.Metrics.ListenAddr != "" {
		if err := a.startMetrics(cfg.Metrics.ListenAddr); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *App) startMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen metrics: %w", err)
	}
	a.metricsAddr = ln.Addr().String()
	router := metrics.NewRouter()
	api.NewProgressHandler(a.runs, a.logger.Named("api")).Mount(router)
	a.metricsSrv = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("metrics server started", zap.String("addr", a.metricsAddr))
		if err := a.metricsSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return nil
}

// Close stops the metrics server and flushes the logger.
func (a *App) Close() {
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			a.logger.Warn("metrics server shutdown failed", zap.Error(err))
		}
	}
	// Sync fails on non-file sinks such as a terminal; nothing useful can be done with it.
	_ = a.logger.Sync()
}
