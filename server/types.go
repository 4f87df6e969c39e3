// File: server/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/momentics/wsreactor/adapters"
	"github.com/momentics/wsreactor/api"
	"github.com/momentics/wsreactor/control"
	"github.com/momentics/wsreactor/internal/event"
	"github.com/momentics/wsreactor/pool"
	"github.com/momentics/wsreactor/protocol"
	"github.com/momentics/wsreactor/reactor"
	"github.com/momentics/wsreactor/transport"
)

// Config holds all server-side configuration parameters.
type Config struct {
	ListenAddr       string           `json:"listen_addr"`        // e.g. "8088" or "127.0.0.1:8088"
	MaxConnections   int              `json:"max_connections"`    // 0 = unlimited
	MaxMessageSize   uint64           `json:"max_message_size"`   // 0 = unlimited
	MaxHandshakeSize int              `json:"max_handshake_size"` // header block limit in bytes
	ReadChunk        int              `json:"read_chunk"`         // bytes read per readiness event
	MaxEvents        int              `json:"max_events"`         // readiness events per wait
	AutoPong         bool             `json:"auto_pong"`
	PollTimeout      control.Duration `json:"poll_timeout"` // negative blocks until activity
	PinCPU           int              `json:"pin_cpu"`      // -1 leaves the reactor thread unpinned
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:       "8088",
		MaxConnections:   0,
		MaxMessageSize:   16 << 20,
		MaxHandshakeSize: protocol.MaxHandshakeHeadersSize,
		ReadChunk:        protocol.DefaultReadChunk,
		MaxEvents:        reactor.DefaultMaxEvents,
		AutoPong:         true,
		PollTimeout:      control.Duration(time.Second),
		PinCPU:           -1,
	}
}

// Validate rejects settings that cannot be applied.
func (c *Config) Validate() error {
	switch {
	case c.MaxConnections < 0:
		return errors.Wrap(api.ErrInvalidArgument, "max_connections")
	case c.MaxHandshakeSize < 0:
		return errors.Wrap(api.ErrInvalidArgument, "max_handshake_size")
	case c.ReadChunk < 0:
		return errors.Wrap(api.ErrInvalidArgument, "read_chunk")
	case c.MaxEvents < 0:
		return errors.Wrap(api.ErrInvalidArgument, "max_events")
	case c.PinCPU < -1:
		return errors.Wrap(api.ErrInvalidArgument, "pin_cpu")
	}
	return nil
}

func (c *Config) pollTimeout() time.Duration {
	if c.PollTimeout < 0 {
		return reactor.NoTimeout
	}
	return c.PollTimeout.Std()
}

// pendingHandshake is an accepted socket that has not completed the upgrade.
type pendingHandshake struct {
	sock   *transport.Socket
	reader *protocol.RequestReader
}

// Server owns the listening socket, the reactor and the connection table.
// Apart from Submit, Shutdown and Control, its methods must be called from
// event listeners or submitted tasks, which run on the reactor goroutine.
type Server struct {
	cfg     *Config
	log     *slog.Logger
	connLog *slog.Logger
	control *adapters.ControlAdapter
	events  *event.Dispatcher
	mux     *reactor.Multiplexer

	ln      *transport.Listener
	lnID    reactor.ID
	pending map[reactor.ID]*pendingHandshake
	conns   map[api.ConnID]*protocol.Connection
	forward api.Listener
	readBuf []byte
	buffers *pool.BytePool

	closedStats protocol.ConnStats
	pollTimeout time.Duration

	active   atomic.Int64
	polling  atomic.Int64 // timeout of the running Poll in ms, -1 for none
	handles  atomic.Int64
	running  atomic.Bool
	closed   atomic.Bool
	teardown sync.Once
}
