//go:build !linux

// File: control/platform_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Debug probes for platforms without the epoll backend.

package control

import (
	"runtime"
)

// RegisterPlatformProbes sets generic debug probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.reactor", func() any {
		return "unsupported"
	})
}
