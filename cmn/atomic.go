// Package cmn holds the small cross-cutting primitives the reconstruction
// engine shares: atomics, checksums, sentinel errors, correlation IDs.
package cmn

import "sync/atomic"

// Int64 is a thin wrapper over sync/atomic, matching the teacher's
// cmn/atomic.Int64 call shape (e.g. tcobjs.go's chanFull atomic.Int64).
type Int64 struct{ v int64 }

func (i *Int64) Inc() int64         { return atomic.AddInt64(&i.v, 1) }
func (i *Int64) Dec() int64         { return atomic.AddInt64(&i.v, -1) }
func (i *Int64) Add(d int64) int64  { return atomic.AddInt64(&i.v, d) }
func (i *Int64) Load() int64        { return atomic.LoadInt64(&i.v) }
func (i *Int64) Store(v int64)      { atomic.StoreInt64(&i.v, v) }

// Int32 mirrors Int64 at 32 bits (e.g. tcowi.refc atomic.Int32 in tcobjs.go).
type Int32 struct{ v int32 }

func (i *Int32) Inc() int32        { return atomic.AddInt32(&i.v, 1) }
func (i *Int32) Dec() int32        { return atomic.AddInt32(&i.v, -1) }
func (i *Int32) Load() int32       { return atomic.LoadInt32(&i.v) }
func (i *Int32) Store(v int32)     { atomic.StoreInt32(&i.v, v) }

// Bool is a CAS-backed boolean flag, used for the target "alive" bit and
// the reader "in flight" bit.
type Bool struct{ v int32 }

func (b *Bool) Load() bool { return atomic.LoadInt32(&b.v) != 0 }

func (b *Bool) Store(v bool) {
	var i int32
	if v {
		i = 1
	}
	atomic.StoreInt32(&b.v, i)
}

// CAS attempts old->new, returning whether it succeeded.
func (b *Bool) CAS(old, new bool) bool {
	var oi, ni int32
	if old {
		oi = 1
	}
	if new {
		ni = 1
	}
	return atomic.CompareAndSwapInt32(&b.v, oi, ni)
}
