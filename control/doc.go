// Package control
// File: control/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Runtime configuration, metrics and debug introspection layer.
//
// Provides concurrent-safe state handling primitives including:
//   - Snapshot config reads and merged updates with reload hooks
//   - Gauges and counters for server telemetry
//   - JSON config loading and stats rendering
//   - Debug probe registration
package control
