// Package api exposes the cluster lifecycle over HTTP.
//
// Routes:
//
//	GET  /health
//	POST /cluster/:clusterId/start           {"workersCount": n}
//	POST /cluster/:clusterId/stop
//	GET  /cluster/:clusterId/workers
//	POST /cluster/:clusterId/workers/add
//	POST /cluster/:clusterId/workers/remove
//	GET  /cluster/:clusterId/status
//	GET  /metrics
//
// Failures are returned as {"success": false, "error": "..."} with 400 for
// rejected input, 409 when the cluster is busy and 500 otherwise.
package api
