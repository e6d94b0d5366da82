// Package retry provides exponential backoff retry logic for transient failures.
//
// [WithExponentialBackoff] retries an operation with configurable max attempts,
// initial delay, and maximum delay. It is used when connecting to the cluster
// catalog at startup and when dialing SSH provisioning hosts.
package retry
