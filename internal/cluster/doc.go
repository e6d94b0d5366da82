// Package cluster implements the lifecycle operations of a Citus cluster.
//
// Service starts and stops the cluster, adds and removes workers, reads the
// cluster status and performs autoscaler-triggered scale-outs. The Cluster
// Catalog is the only source of truth for membership; the service never
// caches node lists between calls.
//
// Every mutating operation runs inside the cluster's exclusive slot, so at
// most one of start, stop, add, remove and scale-out is in flight per
// cluster ID. Manual operations wait up to the configured lock wait for the
// slot and then fail with ErrClusterBusy. Scale-outs never wait.
package cluster
