// Package catalog talks to the control plane of the distributed database.
//
// The catalog is the single source of truth for node membership. It is
// backed by a Citus coordinator reached through a pgx connection pool and
// exposes the four commands the orchestrator needs: list active workers,
// sample load, register a node, and trigger a shard rebalance. Nothing is
// cached between calls.
package catalog
