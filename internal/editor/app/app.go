package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/seoeditor/internal/common/config"
	"github.com/edgecomet/seoeditor/internal/common/configtypes"
	"github.com/edgecomet/seoeditor/internal/common/logger"
	"github.com/edgecomet/seoeditor/internal/common/metricsserver"
	"github.com/edgecomet/seoeditor/internal/common/redis"
	"github.com/edgecomet/seoeditor/internal/editor/catalog"
	"github.com/edgecomet/seoeditor/internal/editor/metrics"
	"github.com/edgecomet/seoeditor/internal/editor/server"
	"github.com/edgecomet/seoeditor/internal/editor/site"
)

// ShutdownTimeout bounds the graceful stop of both HTTP servers
const ShutdownTimeout = 30 * time.Second

// App wires the editor components from one configuration
type App struct {
	cfg           *configtypes.EditorConfig
	logger        *zap.Logger
	store         *site.Store
	redisClient   *redis.Client
	metrics       *metrics.PrometheusMetrics
	metricsServer *fasthttp.Server
	server        *server.Server
	serveErr      chan error
}

// New builds the editor. Redis is connected only when enabled; a Redis that
// cannot be reached at startup is a fatal configuration error.
func New(cfg *configtypes.EditorConfig, logger *zap.Logger) (*App, error) {
	store, err := site.NewStore(cfg.Site, cfg.Backup, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		metrics:  metrics.NewPrometheusMetrics(cfg.Metrics.Namespace, logger),
		serveErr: make(chan error, 1),
	}

	opts := []catalog.Option{catalog.WithRecorder(a.metrics)}
	if cfg.Redis.Enabled {
		a.redisClient, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, catalog.WithScoreCache(a.redisClient, time.Duration(cfg.Redis.ScoreTTL)))
		logger.Info("Catalog score cache enabled",
			zap.String("addr", cfg.Redis.Addr),
			zap.Duration("ttl", time.Duration(cfg.Redis.ScoreTTL)))
	}

	a.server = server.New(cfg, store, catalog.New(store, logger, opts...), a.metrics, logger)
	return a, nil
}

// Start binds both listeners and serves in the background
func (a *App) Start() error {
	metricsServer, err := metricsserver.StartMetricsServer(a.cfg.Metrics, a.metrics.ServeHTTP, a.logger)
	if err != nil {
		return err
	}
	a.metricsServer = metricsServer

	listener, err := net.Listen("tcp", a.cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.Server.Listen, err)
	}

	go func() {
		a.serveErr <- a.server.Serve(listener)
	}()
	return nil
}

// Errors reports a server that stopped on its own
func (a *App) Errors() <-chan error {
	return a.serveErr
}

// Address returns the bound API address
func (a *App) Address() string {
	return a.server.Address()
}

// Shutdown stops the API server, then the metrics server, then closes Redis
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("api server: %w", err))
	}

	if a.metricsServer != nil {
		if err := a.metricsServer.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Run loads configPath, serves until SIGINT or SIGTERM, then shuts down.
// initial logs until the configured logger is ready.
func Run(configPath string, initial *zap.Logger) error {
	cfg, err := config.LoadEditorConfig(configPath, initial)
	if err != nil {
		return err
	}

	// A relative site root is relative to the config file
	if !filepath.IsAbs(cfg.Site.Root) {
		cfg.Site.Root = filepath.Join(filepath.Dir(configPath), cfg.Site.Root)
	}

	dynamicLogger, err := logger.NewLoggerWithStartupOverride(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create configured logger: %w", err)
	}
	defer func() { _ = dynamicLogger.Sync() }()
	zapLogger := dynamicLogger.Logger

	a, err := New(cfg, zapLogger)
	if err != nil {
		return err
	}

	if err := a.Start(); err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}

	zapLogger.Info("SEO editor started",
		zap.String("api_addr", a.Address()),
		zap.String("site_root", cfg.Site.Root),
		zap.Bool("metrics_enabled", cfg.Metrics.Enabled))

	dynamicLogger.SwitchToConfiguredLevel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var serveErr error
	select {
	case <-quit:
	case serveErr = <-a.Errors():
		zapLogger.Error("API server stopped unexpectedly", zap.Error(serveErr))
	}

	dynamicLogger.EnsureInfoLevelForShutdown()
	zapLogger.Info("Shutting down SEO editor...")

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := a.Shutdown(ctx); err != nil {
		zapLogger.Error("Failed to shut down gracefully", zap.Error(err))
	}

	zapLogger.Info("SEO editor stopped")
	return serveErr
}
