// Package handlers implements the execution of CLI commands.
//
// Commands in the commands package parse flags and delegate here. Serve wires
// configuration, logging, the catalog, the provisioning driver, the cluster
// service, the autoscaler and the HTTP server. Status is a client of a
// running server.
package handlers
