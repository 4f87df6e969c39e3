//go:build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux-specific implementation for setting thread CPU affinity.

package affinity

import (
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/momentics/wsreactor/api"
)

// setAffinityPlatform sets the calling thread's affinity to a single CPU.
func setAffinityPlatform(cpuID int) error {
	if cpuID < 0 || cpuID >= runtime.NumCPU() {
		return errors.Wrapf(api.ErrInvalidArgument, "affinity: cpu %d", cpuID)
	}
	var set unix.CPUSet
	set.Set(cpuID)
	// pid 0 addresses the calling thread.
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return errors.Wrap(err, "affinity: sched_setaffinity")
	}
	return nil
}

func saveAffinityPlatform() (func(), error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, errors.Wrap(err, "affinity: sched_getaffinity")
	}
	return func() { _ = unix.SchedSetaffinity(0, &set) }, nil
}
