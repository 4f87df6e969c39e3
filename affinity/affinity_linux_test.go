//go:build linux

package affinity_test

import (
	"runtime"
	"testing"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/momentics/wsreactor/affinity"
	"github.com/momentics/wsreactor/api"
)

func TestPinAndRestore(t *testing.T) {
	var before unix.CPUSet
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if err := unix.SchedGetaffinity(0, &before); err != nil {
		t.Fatal(err)
	}
	cpu := -1
	for i := 0; i < runtime.NumCPU(); i++ {
		if before.IsSet(i) {
			cpu = i
			break
		}
	}
	if cpu < 0 {
		t.Skip("no usable CPU in the current mask")
	}

	restore, err := affinity.Pin(cpu)
	if err != nil {
		t.Fatalf("Pin(%d): %v", cpu, err)
	}
	var pinned unix.CPUSet
	_ = unix.SchedGetaffinity(0, &pinned)
	if pinned.Count() != 1 || !pinned.IsSet(cpu) {
		t.Errorf("mask after pin has %d cpus", pinned.Count())
	}
	restore()

	var after unix.CPUSet
	_ = unix.SchedGetaffinity(0, &after)
	if after != before {
		t.Error("mask not restored")
	}
}

func TestSetAffinityRejectsBadCPU(t *testing.T) {
	if err := affinity.SetAffinity(-1); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("err = %v", err)
	}
}
