// Package provisioning provides shared types for cluster provisioning.
//
// The provisioning domain is organized into focused subpackages:
//   - driver/: runs a named operation out of process (local scripts or SSH)
//   - outcome/: translates driver output into typed results
//
// This root package names the lifecycle operations both subpackages agree on.
package provisioning
