//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"github.com/pkg/errors"

	"github.com/momentics/wsreactor/api"
)

func newPoller(maxEvents int) (poller, error) {
	return nil, errors.Wrap(api.ErrNotSupported, "reactor")
}
