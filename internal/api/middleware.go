package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/VoxelHeimGame/db-cluster/internal/cluster"
)

const requestIDHeader = "X-Request-Id"

// requestLogger attaches a request-scoped logger to the request context and
// logs each request on completion.
func requestLogger(base logr.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		logger := base.WithValues("requestID", requestID, "method", c.Request.Method, "path", c.Request.URL.Path)
		c.Request = c.Request.WithContext(logr.NewContext(c.Request.Context(), logger))

		logger.V(1).Info("request received")
		start := time.Now()
		c.Next()

		kv := []any{"status", c.Writer.Status(), "latency", time.Since(start)}
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.Last(), "request failed", kv...)
			return
		}
		logger.Info("finished processing request", kv...)
	}
}

// validClusterID rejects malformed :clusterId path parameters.
func validClusterID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := cluster.ValidateID(c.Param("clusterId")); err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusBadRequest, Response{Error: err.Error()})
			return
		}
		c.Next()
	}
}
