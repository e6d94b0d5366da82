// Package driver executes provisioning operations out of process.
//
// A Driver runs the script behind a [provisioning.Operation] with positional
// arguments and returns its combined stdout/stderr. Every call is bounded by
// a hard timeout. When the timeout fires the call fails with ErrTimeout, but
// processes started by the script may keep running; callers must not assume
// the side effect was rolled back.
//
// Two drivers are provided: ScriptDriver runs scripts on the local host and
// SSHDriver runs them on a remote provisioning host.
package driver
