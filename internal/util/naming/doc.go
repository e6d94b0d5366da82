// Package naming provides consistent naming functions for cluster workers.
//
// Worker hosts follow the pattern worker-{ordinal}, where the ordinal is the
// 1-based position the worker takes in the active node registry when it is
// added. Names are deterministic so that the same target count always maps
// to the same host.
package naming
