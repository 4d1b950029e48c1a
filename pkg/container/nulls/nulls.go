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

// Package nulls wrap up functions for the manipulation of bitmap library roaring.
// A column stores the positions of its NULL values in a Nulls.
// A nil Nulls, or one without a bitmap, means no validity buffer was
// ever allocated: the column has no NULL at all.
//
// The bitmap holds 32 bit positions, a Nulls cannot mark a row past
// MaxRow.  Producers of longer vectors must refuse them.
package nulls

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring"

	"github.com/matrixorigin/listagg/pkg/common/invariants"
	"github.com/matrixorigin/listagg/pkg/common/moerr"
)

// MaxRow is the largest position a Nulls can hold.
const MaxRow uint64 = math.MaxUint32

type Nulls struct {
	Np *roaring.Bitmap
}

func New() *Nulls {
	return &Nulls{Np: roaring.New()}
}

func Build(rows ...uint64) *Nulls {
	nsp := New()
	Add(nsp, rows...)
	return nsp
}

func (nsp *Nulls) Clone() *Nulls {
	if nsp == nil {
		return nil
	}
	if nsp.Np == nil {
		return &Nulls{Np: nil}
	}
	return &Nulls{
		Np: nsp.Np.Clone(),
	}
}

func Reset(nsp *Nulls) {
	if nsp.Np != nil {
		nsp.Np.Clear()
	}
}

// Any returns true if any bit in the Nulls is set, otherwise it will return false.
func Any(nsp *Nulls) bool {
	if nsp == nil || nsp.Np == nil {
		return false
	}
	return !nsp.Np.IsEmpty()
}

// Length returns the number of integers contained in the Nulls
func Length(nsp *Nulls) int {
	if nsp == nil || nsp.Np == nil {
		return 0
	}
	return int(nsp.Np.GetCardinality())
}

func String(nsp *Nulls) string {
	if nsp == nil || nsp.Np == nil {
		return "[]"
	}
	return fmt.Sprintf("%v", nsp.Np.ToArray())
}

// Contains returns true if the integer is contained in the Nulls
func Contains(nsp *Nulls, row uint64) bool {
	return nsp != nil && nsp.Np != nil && nsp.Np.Contains(uint32(row))
}

func Add(nsp *Nulls, rows ...uint64) {
	if len(rows) == 0 {
		return
	}
	if nsp.Np == nil {
		nsp.Np = roaring.New()
	}
	for _, row := range rows {
		if invariants.Enabled && row > MaxRow {
			panic(moerr.NewInternalErrorNoCtxf("null position %d out of range", row))
		}
		nsp.Np.Add(uint32(row))
	}
}

// AddRange adds [start, end).
func AddRange(nsp *Nulls, start, end uint64) {
	if start >= end {
		return
	}
	if invariants.Enabled && end-1 > MaxRow {
		panic(moerr.NewInternalErrorNoCtxf("null range [%d, %d) out of range", start, end))
	}
	if nsp.Np == nil {
		nsp.Np = roaring.New()
	}
	nsp.Np.AddRange(start, end)
}

func Del(nsp *Nulls, rows ...uint64) {
	if nsp.Np == nil {
		return
	}
	for _, row := range rows {
		nsp.Np.Remove(uint32(row))
	}
}

// Set performs union operation on Nulls nsp,m and store the result in nsp
func Set(nsp, m *Nulls) {
	if m != nil && m.Np != nil {
		if nsp.Np == nil {
			nsp.Np = roaring.New()
		}
		nsp.Np.Or(m.Np)
	}
}

// Range adds the positions of nsp in [start, end) to m, shifted down by
// bias.  It returns m.
func Range(nsp *Nulls, start, end, bias uint64, m *Nulls) *Nulls {
	if !Any(nsp) || start >= end {
		return m
	}
	it := nsp.Np.Iterator()
	it.AdvanceIfNeeded(uint32(start))
	for it.HasNext() {
		row := uint64(it.Next())
		if row >= end {
			break
		}
		Add(m, row-bias)
	}
	return m
}

// Filter returns the nulls at the selected positions, in selection order:
// position i of the result is null iff sels[i] is null in nsp.
func Filter(nsp *Nulls, sels []int64) *Nulls {
	if !Any(nsp) {
		return nil
	}
	var m *Nulls
	for i, sel := range sels {
		if nsp.Np.Contains(uint32(sel)) {
			if m == nil {
				m = New()
			}
			m.Np.Add(uint32(i))
		}
	}
	return m
}

func (nsp *Nulls) Any() bool {
	return Any(nsp)
}

func (nsp *Nulls) Contains(row uint64) bool {
	return Contains(nsp, row)
}

func (nsp *Nulls) Count() int {
	return Length(nsp)
}

func (nsp *Nulls) Show() ([]byte, error) {
	if !Any(nsp) {
		return nil, nil
	}
	return nsp.Np.ToBytes()
}

func (nsp *Nulls) Read(data []byte) error {
	if len(data) == 0 {
		nsp.Np = nil
		return nil
	}
	nsp.Np = roaring.New()
	return nsp.Np.UnmarshalBinary(data)
}

func (nsp *Nulls) IsSame(m *Nulls) bool {
	switch {
	case !Any(nsp) && !Any(m):
		return true
	case Any(nsp) && Any(m):
		return nsp.Np.Equals(m.Np)
	default:
		return false
	}
}

func (nsp *Nulls) ToArray() []uint64 {
	if !Any(nsp) {
		return []uint64{}
	}
	rows := nsp.Np.ToArray()
	ret := make([]uint64, len(rows))
	for i, row := range rows {
		ret[i] = uint64(row)
	}
	return ret
}

func (nsp *Nulls) String() string {
	return String(nsp)
}
