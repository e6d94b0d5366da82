package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/VoxelHeimGame/db-cluster/internal/api"
	"github.com/VoxelHeimGame/db-cluster/internal/autoscaler"
	"github.com/VoxelHeimGame/db-cluster/internal/catalog"
	"github.com/VoxelHeimGame/db-cluster/internal/cluster"
	"github.com/VoxelHeimGame/db-cluster/internal/config"
	"github.com/VoxelHeimGame/db-cluster/internal/logging"
)

// ServeOptions carries the serve command flags.
type ServeOptions struct {
	ConfigPath        string
	Addr              string
	ScriptDir         string
	Debug             bool
	DisableAutoscaler bool
}

// Serve runs the API server until SIGINT or SIGTERM.
func Serve(ctx context.Context, opts ServeOptions) error {
	cfg, err := loadServeConfig(opts)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Development: cfg.Log.Development, Level: cfg.Log.Level})
	if err != nil {
		return err
	}
	ctx = logr.NewContext(ctx, logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, pool, err := catalog.Connect(ctx, cfg.Catalog.URL, catalog.Options{
		MaxConns:       cfg.Catalog.MaxConns,
		ConnectRetries: cfg.Catalog.ConnectRetries,
		QueryTimeout:   cfg.Catalog.QueryTimeout,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	drv, err := newDriver(ctx, cfg)
	if err != nil {
		return err
	}

	svc := cluster.NewService(cat, drv,
		cluster.WithLockWait(cfg.Cluster.LockWait),
		cluster.WithScaleOutMode(cluster.ScaleOutMode(cfg.Autoscaler.Mode)),
		cluster.WithWorkerPort(cfg.Autoscaler.WorkerPort),
		cluster.WithMetrics(cfg.Metrics.Enabled),
	)

	var wg sync.WaitGroup
	if cfg.Autoscaler.Enabled {
		scaler, err := autoscaler.New(cat, svc, cfg.Autoscaler.ClusterID, cfg.ScalingPolicy(),
			autoscaler.WithMetrics(cfg.Metrics.Enabled))
		if err != nil {
			return fmt.Errorf("failed to create autoscaler: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			scaler.Run(ctx)
		}()
	} else {
		logger.Info("autoscaler disabled")
	}

	srv := newHTTPServer(cfg, svc, cat, logger)
	err = runServer(ctx, srv, cfg.Server.ShutdownTimeout)
	stop()
	wg.Wait()
	return err
}

// loadServeConfig loads the configuration and applies flag overrides.
func loadServeConfig(opts ServeOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}
	if opts.ScriptDir != "" {
		cfg.Driver.ScriptDir = opts.ScriptDir
	}
	if opts.Debug {
		cfg.Log.Development = true
	}
	if opts.DisableAutoscaler {
		cfg.Autoscaler.Enabled = false
	}
	return cfg, nil
}

func newHTTPServer(cfg *config.Config, svc api.ClusterService, health api.HealthChecker, logger logr.Logger) *http.Server {
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	apiOpts := []api.Option{api.WithLogger(logger.WithName("http"))}
	if cfg.Metrics.Enabled {
		apiOpts = append(apiOpts, api.WithMetricsHandler(promhttp.Handler()))
	}

	return &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.New(svc, health, apiOpts...).Handler(),
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}
}

// runServer serves until ctx is done, then shuts down gracefully.
func runServer(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	logger := logr.FromContextOrDiscard(ctx)

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		logger.Info("dbcluster API is running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}
