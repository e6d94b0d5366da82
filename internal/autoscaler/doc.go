// Package autoscaler runs the background scale-out loop.
//
// On every check interval the loop samples the worker count and the total
// connection count from the catalog. When the average number of connections
// per worker exceeds the policy threshold and the cluster is below its
// worker limit, one worker is added through the cluster service and shards
// are rebalanced. There is no scale-in and no cooldown beyond the interval.
// Errors are logged and the loop continues with the next tick.
package autoscaler
