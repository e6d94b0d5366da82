// Package testing provides fakes, fixtures, and helpers shared by unit tests.
//
//   - FakeCatalog: in-memory Cluster Catalog with per-method overrides
//   - FakeDriver: provisioning driver that simulates the cluster scripts
//     against a FakeCatalog and prints their real completion markers
//   - ConfigBuilder: fluent builder for test configurations
//
// Usage:
//
//	cat := testing.NewFakeCatalog(2)
//	drv := testing.NewFakeDriver(cat)
//	svc := cluster.NewService(cat, drv)
package testing
