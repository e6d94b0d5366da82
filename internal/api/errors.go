package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VoxelHeimGame/db-cluster/internal/cluster"
)

// retryAfterSeconds is advertised when the cluster slot is busy.
const retryAfterSeconds = "5"

// statusFor maps service errors to HTTP status codes and user-facing messages.
func statusFor(err error) (int, string) {
	var opErr *cluster.OperationError
	switch {
	case errors.Is(err, cluster.ErrLastWorker):
		return http.StatusBadRequest, "Cannot remove the last worker node"
	case errors.Is(err, cluster.ErrInvalidArgument):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, cluster.ErrClusterBusy):
		return http.StatusConflict, "Cluster is busy with another operation, retry later"
	case errors.As(err, &opErr):
		return http.StatusInternalServerError, opErr.Message()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// abortWithError records err on the context and writes the failure envelope.
func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	code, msg := statusFor(err)
	if code == http.StatusConflict {
		c.Header("Retry-After", retryAfterSeconds)
	}
	c.AbortWithStatusJSON(code, Response{Error: msg})
}
