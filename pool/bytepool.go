// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import "sync/atomic"

// BytePool hands out fixed-size byte slices. Safe for concurrent use.
type BytePool struct {
	size  int
	pool  ObjectPool[*[]byte]
	inUse atomic.Int64
}

// NewBytePool creates a pool of size-byte buffers.
func NewBytePool(size int) *BytePool {
	if size <= 0 {
		size = 1
	}
	return &BytePool{
		size: size,
		pool: NewSyncPool(func() *[]byte {
			b := make([]byte, size)
			return &b
		}),
	}
}

// Size returns the length of every buffer.
func (b *BytePool) Size() int { return b.size }

// GetBuffer returns a buffer of Size bytes. Contents are unspecified.
func (b *BytePool) GetBuffer() []byte {
	b.inUse.Add(1)
	return (*b.pool.Get())[:b.size]
}

// PutBuffer returns a buffer to the pool. Buffers that did not come from
// this pool are dropped.
func (b *BytePool) PutBuffer(buf []byte) {
	if cap(buf) < b.size {
		return
	}
	b.inUse.Add(-1)
	buf = buf[:b.size]
	b.pool.Put(&buf)
}

// InUse returns the number of buffers handed out and not yet returned.
func (b *BytePool) InUse() int64 { return b.inUse.Load() }
