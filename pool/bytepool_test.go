package pool_test

import (
	"testing"

	"github.com/momentics/wsreactor/pool"
)

func TestBytePoolSizes(t *testing.T) {
	bp := pool.NewBytePool(128)
	b1 := bp.GetBuffer()
	if len(b1) != 128 {
		t.Fatalf("len = %d", len(b1))
	}
	if bp.InUse() != 1 {
		t.Errorf("InUse = %d", bp.InUse())
	}
	bp.PutBuffer(b1[:10])
	if bp.InUse() != 0 {
		t.Errorf("InUse after put = %d", bp.InUse())
	}
	if b2 := bp.GetBuffer(); len(b2) != 128 {
		t.Errorf("reused buffer len = %d", len(b2))
	}
}

func TestBytePoolDropsForeignBuffers(t *testing.T) {
	bp := pool.NewBytePool(64)
	_ = bp.GetBuffer()
	bp.PutBuffer(make([]byte, 8))
	if bp.InUse() != 1 {
		t.Errorf("foreign buffer counted: InUse = %d", bp.InUse())
	}
}

func TestSyncPool(t *testing.T) {
	created := 0
	sp := pool.NewSyncPool(func() *int {
		created++
		v := created
		return &v
	})
	v := sp.Get()
	if *v != 1 {
		t.Errorf("first value = %d", *v)
	}
	sp.Put(v)
}
