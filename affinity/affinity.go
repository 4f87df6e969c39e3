// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files guarded by build tags.

package affinity

import "runtime"

// SetAffinity pins the current OS thread to a given logical CPU on supported platforms.
// On unsupported platforms returns an error wrapping api.ErrNotSupported.
func SetAffinity(cpuID int) error {
	return setAffinityPlatform(cpuID)
}

// Pin locks the calling goroutine to its OS thread and binds that thread to
// cpuID. The returned function restores the previous mask and unlocks the thread.
func Pin(cpuID int) (restore func(), err error) {
	runtime.LockOSThread()
	prev, err := saveAffinityPlatform()
	if err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}
	if err := setAffinityPlatform(cpuID); err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}
	return func() {
		prev()
		runtime.UnlockOSThread()
	}, nil
}
