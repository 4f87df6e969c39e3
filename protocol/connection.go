// File: protocol/connection.go
// Package protocol implements the per-connection WebSocket engine.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Connection reassembles client frames into messages, answers control frames
// and raises Message/Disconnected events. It is driven by reactor callbacks
// and never blocks: each readiness notification reads one bounded chunk.

package protocol

import (
	"io"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/momentics/wsreactor/api"
	"github.com/momentics/wsreactor/internal/event"
	"github.com/momentics/wsreactor/reactor"
)

// DefaultReadChunk is the maximum number of bytes read per readiness event.
const DefaultReadChunk = 1024

// Socket is the byte stream under a connection. Read must not block.
type Socket interface {
	io.Reader
	io.Writer
	io.Closer
}

// State is the frame-level state of a connection.
type State int

const (
	StateIdle State = iota
	StateAwaitingHeader
	StateAwaitingPayload
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingHeader:
		return "awaiting-header"
	case StateAwaitingPayload:
		return "awaiting-payload"
	default:
		return "unknown"
	}
}

// BufferPool supplies read buffers. Buffers are returned on teardown.
type BufferPool interface {
	GetBuffer() []byte
	PutBuffer([]byte)
}

// ConnStats are per-connection counters.
type ConnStats struct {
	BytesIn     uint64
	BytesOut    uint64
	FramesIn    uint64
	MessagesIn  uint64
	MessagesOut uint64
}

// Connection is one client session. It implements api.Conn and reactor.Watcher.
type Connection struct {
	id      api.ConnID
	sock    Socket
	remote  string
	log     *slog.Logger
	events  *event.Dispatcher
	onClose func(*Connection) error

	current      *Frame
	message      []byte
	messageOp    Opcode
	accumulating bool

	closed       bool
	disconnected bool
	closeSent    bool
	err          error

	maxMessage uint64
	autoPong   bool
	buf        []byte
	pool       BufferPool
	stats      ConnStats
}

// ConnOption customizes a Connection.
type ConnOption func(*Connection)

// WithMaxMessageSize bounds the size of a reassembled message. Zero means unlimited.
func WithMaxMessageSize(n uint64) ConnOption {
	return func(c *Connection) { c.maxMessage = n }
}

// WithAutoPong controls whether pings are answered with a pong.
func WithAutoPong(on bool) ConnOption {
	return func(c *Connection) { c.autoPong = on }
}

// WithReadChunk sets the read size per readiness event.
func WithReadChunk(n int) ConnOption {
	return func(c *Connection) {
		if n > 0 {
			c.buf = make([]byte, n)
		}
	}
}

// WithBufferPool takes the read buffer from bp. It overrides WithReadChunk.
func WithBufferPool(bp BufferPool) ConnOption {
	return func(c *Connection) { c.pool = bp }
}

// WithCloseHook replaces the default teardown (closing the socket). The
// owner uses it to deregister the socket before closing it.
func WithCloseHook(fn func(*Connection) error) ConnOption {
	return func(c *Connection) { c.onClose = fn }
}

// WithRemoteAddr records the peer address.
func WithRemoteAddr(addr string) ConnOption {
	return func(c *Connection) { c.remote = addr }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ConnOption {
	return func(c *Connection) {
		if l != nil {
			c.log = l
		}
	}
}

// NewConnection wraps an upgraded socket.
func NewConnection(id api.ConnID, sock Socket, opts ...ConnOption) *Connection {
	c := &Connection{
		id:       id,
		sock:     sock,
		log:      slog.Default(),
		events:   event.NewDispatcher(),
		autoPong: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	switch {
	case c.pool != nil:
		c.buf = c.pool.GetBuffer()
	case c.buf == nil:
		c.buf = make([]byte, DefaultReadChunk)
	}
	c.log = c.log.With("component", "conn", "conn_id", uint64(id))
	return c
}

// ID returns the connection identifier.
func (c *Connection) ID() api.ConnID { return c.id }

// RemoteAddr returns the peer address.
func (c *Connection) RemoteAddr() string { return c.remote }

// Socket returns the underlying socket.
func (c *Connection) Socket() Socket { return c.sock }

// Subscribe adds a listener for Message and Disconnected events.
func (c *Connection) Subscribe(l api.Listener) { c.events.Subscribe(l) }

// SetAutoPong toggles automatic pong replies.
func (c *Connection) SetAutoPong(on bool) { c.autoPong = on }

// SetMaxMessageSize changes the message size limit. Zero means unlimited.
func (c *Connection) SetMaxMessageSize(n uint64) { c.maxMessage = n }

// IsClosed reports whether the connection has been torn down.
func (c *Connection) IsClosed() bool { return c.closed }

// Err returns the protocol or I/O error that closed the connection, if any.
func (c *Connection) Err() error { return c.err }

// Stats returns a copy of the connection counters.
func (c *Connection) Stats() ConnStats { return c.stats }

// State reports the frame-level state.
func (c *Connection) State() State {
	switch {
	case c.current == nil:
		return StateIdle
	case !c.current.HeaderParsed():
		return StateAwaitingHeader
	default:
		return StateAwaitingPayload
	}
}

// Accumulating reports whether a fragmented message is in progress.
func (c *Connection) Accumulating() bool { return c.accumulating }

// Receive feeds bytes read from the socket. Every complete frame contained
// in p is handled before Receive returns.
func (c *Connection) Receive(p []byte) {
	c.stats.BytesIn += uint64(len(p))
	for len(p) > 0 && !c.closed {
		if c.current == nil {
			c.current = NewFrame(FromClient)
			c.current.SetLimit(c.maxMessage)
		}
		complete, err := c.current.Feed(p)
		if err != nil {
			c.current = nil
			c.fail(err)
			return
		}
		if !complete {
			return
		}
		f := c.current
		c.current = nil
		p = f.ExtraData()
		c.deliver(f)
	}
}

// deliver handles one frame. A panicking listener closes the connection with
// 1011: the frames still queued behind it in p can no longer be delivered.
func (c *Connection) deliver(f *Frame) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		c.err = errors.Errorf("listener panic: %v", r)
		c.log.Error("listener panic", "panic", r)
		if !c.closeSent {
			c.closeSent = true
			_, _ = c.SendData(EncodeClose(CloseInternalServerErr, ""))
		}
		c.Close()
	}()
	c.handleFrame(f)
}

func (c *Connection) handleFrame(f *Frame) {
	c.stats.FramesIn++
	if f.IsControl() {
		c.handleControl(f)
		return
	}

	op := f.Opcode()
	switch {
	case op == OpcodeContinuation && !c.accumulating:
		c.fail(newFrameError(ErrKindUnexpectedContinuation, "continuation frame without a message in progress"))
		return
	case op != OpcodeContinuation && c.accumulating:
		c.fail(newFrameError(ErrKindInterleavedMessage, "new data frame while a fragmented message is in progress"))
		return
	}
	if !c.accumulating {
		c.messageOp = op
	}

	payload := f.Payload()
	if c.maxMessage > 0 && uint64(len(c.message))+uint64(len(payload)) > c.maxMessage {
		c.fail(newFrameError(ErrKindTooLarge, "message exceeds the configured limit"))
		return
	}

	if !f.IsFinal() {
		c.message = append(c.message, payload...)
		c.accumulating = true
		return
	}

	if c.accumulating {
		payload = append(c.message, payload...)
	}
	c.message = nil
	c.accumulating = false
	c.stats.MessagesIn++
	c.events.Emit(api.Message{Conn: c, Payload: payload, Binary: c.messageOp == OpcodeBinary})
}

func (c *Connection) handleControl(f *Frame) {
	switch f.Opcode() {
	case OpcodeClose:
		reply := EncodeFrame(OpcodeClose, nil)
		if code, _, ok := ParseClosePayload(f.Payload()); ok {
			reply = EncodeClose(code, "")
		}
		if !c.closeSent {
			c.closeSent = true
			_, _ = c.SendData(reply)
		}
		c.Close()
	case OpcodePing:
		if c.autoPong {
			_, _ = c.SendData(EncodeFrame(OpcodePong, f.Payload()))
		}
	case OpcodePong:
	}
}

func (c *Connection) fail(err error) {
	c.err = err
	c.log.Debug("protocol violation", "error", err)
	var fe *FrameError
	if errors.As(err, &fe) && !c.closeSent {
		c.closeSent = true
		_, _ = c.SendData(EncodeClose(fe.CloseCode(), ""))
	}
	c.Close()
}

// Close tears the connection down and emits Disconnected. It is idempotent.
func (c *Connection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.current = nil
	c.message = nil
	c.releaseBuffer()

	var err error
	if c.onClose != nil {
		err = c.onClose(c)
	} else {
		err = c.sock.Close()
	}
	c.emitDisconnected()
	return err
}

// ConnectionClosed records that the socket was closed by the peer and emits
// Disconnected. The socket itself is owned by the reactor.
func (c *Connection) ConnectionClosed() {
	c.closed = true
	c.current = nil
	c.message = nil
	c.releaseBuffer()
	c.emitDisconnected()
}

func (c *Connection) releaseBuffer() {
	if c.pool != nil && c.buf != nil {
		c.pool.PutBuffer(c.buf)
	}
	c.buf = nil
}

func (c *Connection) emitDisconnected() {
	if c.disconnected {
		return
	}
	c.disconnected = true
	c.events.Emit(api.Disconnected{Conn: c})
}

// SendMessage writes one text or binary frame.
func (c *Connection) SendMessage(payload []byte, binary bool) (int, error) {
	n, err := c.SendData(EncodeMessage(payload, binary))
	if err == nil {
		c.stats.MessagesOut++
	}
	return n, err
}

// SendText writes one text frame.
func (c *Connection) SendText(text string) (int, error) {
	return c.SendMessage([]byte(text), false)
}

// Ping writes a ping frame. The payload is truncated to fit a control frame.
func (c *Connection) Ping(payload []byte) (int, error) {
	if len(payload) > MaxControlPayloadLen {
		payload = payload[:MaxControlPayloadLen]
	}
	return c.SendData(EncodeFrame(OpcodePing, payload))
}

// SendData writes pre-encoded frame bytes with a single write. Partial
// writes are reported, not retried.
func (c *Connection) SendData(data []byte) (int, error) {
	if c.closed {
		return 0, api.ErrConnectionClosed
	}
	n, err := c.sock.Write(data)
	c.stats.BytesOut += uint64(n)
	if err != nil {
		return n, errors.Wrapf(err, "conn %d write", c.id)
	}
	if n < len(data) {
		c.log.Warn("partial write", "written", n, "size", len(data))
	}
	return n, nil
}

// Ready reads one chunk from the socket and processes it.
func (c *Connection) Ready(_ reactor.ID, _ reactor.Handle) {
	if c.closed {
		return
	}
	n, err := c.sock.Read(c.buf)
	if n > 0 {
		c.Receive(c.buf[:n])
	}
	if err != nil && !c.closed {
		if err != io.EOF {
			c.err = err
			c.log.Debug("read failed", "error", err)
		}
		c.Close()
	}
}

// Closed is called by the reactor after it closed the socket.
func (c *Connection) Closed(_ reactor.ID, _ reactor.Handle) {
	c.ConnectionClosed()
}
