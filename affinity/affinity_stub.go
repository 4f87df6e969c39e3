//go:build !linux

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub implementation for unsupported platforms.

package affinity

import (
	"github.com/pkg/errors"

	"github.com/momentics/wsreactor/api"
)

func setAffinityPlatform(cpuID int) error {
	return errors.Wrap(api.ErrNotSupported, "affinity")
}

func saveAffinityPlatform() (func(), error) {
	return nil, errors.Wrap(api.ErrNotSupported, "affinity")
}
