package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"

	"github.com/VoxelHeimGame/db-cluster/internal/catalog"
	"github.com/VoxelHeimGame/db-cluster/internal/cluster"
)

// ClusterService is the lifecycle surface served over HTTP.
type ClusterService interface {
	Start(ctx context.Context, clusterID string, workersCount int) (cluster.ClusterStatus, error)
	Stop(ctx context.Context, clusterID string) error
	AddWorker(ctx context.Context, clusterID string) (string, error)
	RemoveWorker(ctx context.Context, clusterID string) (int, error)
	Status(ctx context.Context, clusterID string) cluster.ClusterStatus
	Workers(ctx context.Context, clusterID string) ([]catalog.WorkerNode, error)
	CatalogDegraded() bool
}

// HealthChecker reports whether the catalog is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Server holds the HTTP handlers.
type Server struct {
	svc     ClusterService
	health  HealthChecker
	logger  logr.Logger
	metrics http.Handler
	engine  *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the base request logger.
func WithLogger(logger logr.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetricsHandler serves h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// New creates a Server and registers its routes.
func New(svc ClusterService, health HealthChecker, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		health: health,
		logger: logr.Discard(),
		engine: gin.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.Use(gin.Recovery())
	s.engine.Use(requestLogger(s.logger))

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, Response{Error: "Not found"})
	})

	s.engine.GET("/health", s.Health)
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics))
	}

	clusters := s.engine.Group("/cluster/:clusterId", validClusterID())
	clusters.POST("/start", s.StartCluster)
	clusters.POST("/stop", s.StopCluster)
	clusters.GET("/workers", s.ListWorkers)
	clusters.POST("/workers/add", s.AddWorker)
	clusters.POST("/workers/remove", s.RemoveWorker)
	clusters.GET("/status", s.ClusterStatus)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}
