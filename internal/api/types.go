package api

import "github.com/VoxelHeimGame/db-cluster/internal/cluster"

// Response is the envelope of every /cluster route except the workers list.
type Response struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message,omitempty"`
	Node    string                 `json:"node,omitempty"`
	Status  *cluster.ClusterStatus `json:"status,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	// Degraded is set when the last status read could not reach the catalog.
	Degraded bool   `json:"degraded,omitempty"`
	Error    string `json:"error,omitempty"`
}

// StartRequest is the body of the start route.
type StartRequest struct {
	WorkersCount *int `json:"workersCount" binding:"required,min=1"`
}
