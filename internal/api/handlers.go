package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"

	"github.com/VoxelHeimGame/db-cluster/internal/cluster"
)

// Health reports catalog connectivity and whether status reads are
// currently degraded. It always answers 200.
func (s *Server) Health(c *gin.Context) {
	degraded := s.svc.CatalogDegraded()
	if err := s.health.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusOK, HealthResponse{Status: "ERROR", Database: "disconnected", Degraded: degraded, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "OK", Database: "connected", Degraded: degraded})
}

// StartCluster starts the cluster with the requested number of workers.
func (s *Server) StartCluster(c *gin.Context) {
	id := c.Param("clusterId")

	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %w", cluster.ErrInvalidArgument, err))
		return
	}

	status, err := s.svc.Start(c.Request.Context(), id, *req.WorkersCount)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: fmt.Sprintf("Cluster %s started successfully", id),
		Status:  &status,
	})
}

// StopCluster stops the cluster.
func (s *Server) StopCluster(c *gin.Context) {
	id := c.Param("clusterId")
	if err := s.svc.Stop(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: fmt.Sprintf("Cluster %s stopped successfully", id),
	})
}

// ListWorkers returns the raw active worker rows.
func (s *Server) ListWorkers(c *gin.Context) {
	id := c.Param("clusterId")
	workers, err := s.svc.Workers(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, Response{Error: "Failed to fetch worker nodes"})
		return
	}
	logr.FromContextOrDiscard(c.Request.Context()).V(1).Info("fetched worker nodes", "cluster", id, "workerCount", len(workers))
	c.JSON(http.StatusOK, workers)
}

// AddWorker adds one worker node.
func (s *Server) AddWorker(c *gin.Context) {
	ip, err := s.svc.AddWorker(c.Request.Context(), c.Param("clusterId"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Message: "Worker node added successfully", Node: ip})
}

// RemoveWorker removes one worker node.
func (s *Server) RemoveWorker(c *gin.Context) {
	remaining, err := s.svc.RemoveWorker(c.Request.Context(), c.Param("clusterId"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: fmt.Sprintf("Workers removed successfully. Remaining workers: %d", remaining),
	})
}

// ClusterStatus returns the cluster status. It never fails.
func (s *Server) ClusterStatus(c *gin.Context) {
	status := s.svc.Status(c.Request.Context(), c.Param("clusterId"))
	c.JSON(http.StatusOK, Response{Success: true, Status: &status})
}
