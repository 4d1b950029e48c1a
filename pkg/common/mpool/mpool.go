// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mpool

import (
	"fmt"
	"sync/atomic"

	"github.com/matrixorigin/listagg/pkg/common/moerr"
)

const (
	NoLimit int64 = 0

	// minimal bytes returned by Grow, so that tiny vectors do not
	// re-allocate on every append.
	minGrowSize = 64
)

// MPoolStats tracks the allocation activity of a pool.  All fields are
// updated atomically, a pool may be shared by parallel workers.
type MPoolStats struct {
	NumAlloc      atomic.Int64
	NumFree       atomic.Int64
	NumCurrBytes  atomic.Int64
	HighWaterMark atomic.Int64
}

func (s *MPoolStats) Report(tab string) string {
	return fmt.Sprintf("%salloc: %d, free: %d, curr: %d bytes, hwm: %d bytes",
		tab, s.NumAlloc.Load(), s.NumFree.Load(), s.NumCurrBytes.Load(), s.HighWaterMark.Load())
}

func (s *MPoolStats) recordAlloc(sz int64) int64 {
	s.NumAlloc.Add(1)
	curr := s.NumCurrBytes.Add(sz)
	for {
		hwm := s.HighWaterMark.Load()
		if curr <= hwm || s.HighWaterMark.CompareAndSwap(hwm, curr) {
			break
		}
	}
	return curr
}

func (s *MPoolStats) recordFree(sz int64) {
	s.NumFree.Add(1)
	s.NumCurrBytes.Add(-sz)
}

// MPool is the memory accountant of column buffers.  Buffers are ordinary
// go memory, the pool only tracks how many bytes are alive and enforces
// the cap.  Freeing a buffer twice corrupts the accounting, not the heap.
type MPool struct {
	tag   string
	cap   int64
	stats MPoolStats
}

func NewMPool(tag string, cap int64) (*MPool, error) {
	if cap < 0 {
		return nil, moerr.NewInvalidArgNoCtx("mpool cap", cap)
	}
	return &MPool{tag: tag, cap: cap}, nil
}

// MustNewZero returns an unlimited pool, mostly used by tests.
func MustNewZero() *MPool {
	mp, err := NewMPool("zero", NoLimit)
	if err != nil {
		panic(err)
	}
	return mp
}

func MustNew(tag string, cap int64) *MPool {
	mp, err := NewMPool(tag, cap)
	if err != nil {
		panic(err)
	}
	return mp
}

func (mp *MPool) Tag() string {
	return mp.tag
}

func (mp *MPool) Cap() int64 {
	if mp.cap == NoLimit {
		return -1
	}
	return mp.cap
}

func (mp *MPool) CurrNB() int64 {
	return mp.stats.NumCurrBytes.Load()
}

func (mp *MPool) Stats() *MPoolStats {
	return &mp.stats
}

func (mp *MPool) String() string {
	return fmt.Sprintf("mpool %s, cap %d, %s", mp.tag, mp.cap, mp.stats.Report(""))
}

// Alloc returns a zeroed buffer of sz bytes.
func (mp *MPool) Alloc(sz int) ([]byte, error) {
	if sz < 0 {
		return nil, moerr.NewInvalidArgNoCtx("mpool alloc size", sz)
	}
	if sz == 0 {
		return nil, nil
	}
	if curr := mp.stats.recordAlloc(int64(sz)); mp.cap != NoLimit && curr > mp.cap {
		mp.stats.recordFree(int64(sz))
		return nil, moerr.NewOOMNoCtx()
	}
	return make([]byte, sz), nil
}

// Free gives the buffer back.  Passing nil is a no-op, so a deferred
// mp.Free(nil) is fine in tests.
func (mp *MPool) Free(bs []byte) {
	if cap(bs) == 0 {
		return
	}
	mp.stats.recordFree(int64(cap(bs)))
}

// Grow returns a buffer with at least sz bytes whose prefix is a copy of
// old.  The old buffer is released when a new one is allocated.
func (mp *MPool) Grow(old []byte, sz int) ([]byte, error) {
	if sz <= cap(old) {
		return old[:sz], nil
	}
	newCap := cap(old) * 2
	if newCap < sz {
		newCap = sz
	}
	if newCap < minGrowSize {
		newCap = minGrowSize
	}
	bs, err := mp.Alloc(newCap)
	if err != nil {
		return nil, err
	}
	copy(bs, old)
	mp.Free(old)
	return bs[:sz], nil
}
