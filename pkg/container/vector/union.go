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

package vector

import (
	"github.com/matrixorigin/listagg/pkg/common/mpool"
	"github.com/matrixorigin/listagg/pkg/container/nulls"
	"github.com/matrixorigin/listagg/pkg/container/types"
)

// Take gathers the rows sels of w, in the given order, into a new vector
// of the same type.  sels may repeat rows and need not be sorted; every
// sel must be inside w, this is not checked.
func Take(w *Vector, sels []int64, mp *mpool.MPool) (*Vector, error) {
	v := NewVec(w.typ)
	if err := v.Union(w, sels, mp); err != nil {
		v.Free(mp)
		return nil, err
	}
	return v, nil
}

// GatherRanges copies the contiguous ranges (start, length) of w one after
// another into a new vector.  The result equals Take over the expanded
// row numbers, buffers included.
func GatherRanges(w *Vector, ranges [][2]uint32, mp *mpool.MPool) (*Vector, error) {
	v := NewVec(w.typ)
	for _, r := range ranges {
		if err := v.UnionRange(w, int(r[0]), int(r[1]), mp); err != nil {
			v.Free(mp)
			return nil, err
		}
	}
	return v, nil
}

// Concat appends all rows of vecs into one new vector of type typ.
func Concat(typ types.Type, vecs []*Vector, mp *mpool.MPool) (*Vector, error) {
	v := NewVec(typ)
	for _, w := range vecs {
		if err := v.UnionRange(w, 0, w.length, mp); err != nil {
			v.Free(mp)
			return nil, err
		}
	}
	return v, nil
}

// Union appends the rows sels of w to v.
func (v *Vector) Union(w *Vector, sels []int64, mp *mpool.MPool) error {
	if len(sels) == 0 {
		return nil
	}
	base := v.length
	n := len(sels)
	if err := extend(v, n, mp); err != nil {
		return err
	}

	switch w.typ.Oid {
	case types.T_any:
		v.length += n
		return nil
	case types.T_object:
		for i, sel := range sels {
			v.objs[base+i] = w.objs[sel]
		}
	case types.T_list:
		offs := w.ListOffsets()
		vo := v.rawOffsets()
		for i, sel := range sels {
			start, end := offs[sel], offs[sel+1]
			if err := v.children[0].UnionRange(w.children[0], int(start), int(end-start), mp); err != nil {
				return err
			}
			vo[base+i+1] = vo[base+i] + end - start
		}
	case types.T_array:
		width := int(w.typ.Width)
		for _, sel := range sels {
			if err := v.children[0].UnionRange(w.children[0], int(sel)*width, width, mp); err != nil {
				return err
			}
		}
	case types.T_struct:
		for i := range w.children {
			if err := v.children[i].Union(w.children[i], sels, mp); err != nil {
				return err
			}
		}
	case types.T_char, types.T_varchar, types.T_text, types.T_binary, types.T_blob:
		vas := types.DecodeSlice[types.Varlena](v.data)
		wvas := MustVarlenaCol(w)
		for i, sel := range sels {
			va, err := v.appendArea(wvas[sel].GetByteSlice(w.area), mp)
			if err != nil {
				return err
			}
			vas[base+i] = va
		}
	default:
		sz := w.typ.TypeSize()
		for i, sel := range sels {
			copy(v.data[(base+i)*sz:(base+i+1)*sz], w.data[int(sel)*sz:(int(sel)+1)*sz])
		}
	}

	if w.HasNull() {
		for i, sel := range sels {
			if w.IsNull(uint64(sel)) {
				v.addNull(base + i)
			}
		}
	}
	v.length += n
	return nil
}

// UnionRange appends the rows [start, start+n) of w to v.
func (v *Vector) UnionRange(w *Vector, start, n int, mp *mpool.MPool) error {
	if n == 0 {
		return nil
	}
	base := v.length
	if err := extend(v, n, mp); err != nil {
		return err
	}

	switch w.typ.Oid {
	case types.T_any:
		v.length += n
		return nil
	case types.T_object:
		copy(v.objs[base:base+n], w.objs[start:start+n])
	case types.T_list:
		offs := w.ListOffsets()
		first, last := offs[start], offs[start+n]
		if err := v.children[0].UnionRange(w.children[0], int(first), int(last-first), mp); err != nil {
			return err
		}
		vo := v.rawOffsets()
		origin := vo[base]
		for i := 1; i <= n; i++ {
			vo[base+i] = origin + offs[start+i] - first
		}
	case types.T_array:
		width := int(w.typ.Width)
		if err := v.children[0].UnionRange(w.children[0], start*width, n*width, mp); err != nil {
			return err
		}
	case types.T_struct:
		for i := range w.children {
			if err := v.children[i].UnionRange(w.children[i], start, n, mp); err != nil {
				return err
			}
		}
	case types.T_char, types.T_varchar, types.T_text, types.T_binary, types.T_blob:
		vas := types.DecodeSlice[types.Varlena](v.data)
		wvas := MustVarlenaCol(w)
		for i := 0; i < n; i++ {
			va, err := v.appendArea(wvas[start+i].GetByteSlice(w.area), mp)
			if err != nil {
				return err
			}
			vas[base+i] = va
		}
	default:
		sz := w.typ.TypeSize()
		copy(v.data[base*sz:(base+n)*sz], w.data[start*sz:(start+n)*sz])
	}

	w.ForEachNull(start, start+n, func(row int) {
		v.addNull(base + row - start)
	})
	v.length += n
	return nil
}

func (v *Vector) appendArea(bs []byte, mp *mpool.MPool) (types.Varlena, error) {
	off := len(v.area)
	if len(bs) == 0 {
		return types.NewVarlena(off, 0), nil
	}
	area, err := mp.Grow(v.area, off+len(bs))
	if err != nil {
		return types.Varlena{}, err
	}
	copy(area[off:], bs)
	v.area = area
	return types.NewVarlena(off, len(bs)), nil
}

func (v *Vector) addNull(row int) {
	if v.nsp == nil {
		v.nsp = nulls.New()
	}
	nulls.Add(v.nsp, uint64(row))
}

// ForEachNull calls fn with every null row in [start, end), in order.
func (v *Vector) ForEachNull(start, end int, fn func(row int)) {
	if v.typ.Oid == types.T_any {
		for i := start; i < end; i++ {
			fn(i)
		}
		return
	}
	if !nulls.Any(v.nsp) || start >= end {
		return
	}
	it := v.nsp.Np.Iterator()
	from := v.nspOff + uint64(start)
	it.AdvanceIfNeeded(uint32(from))
	for it.HasNext() {
		row := uint64(it.Next())
		if row >= v.nspOff+uint64(end) {
			break
		}
		fn(int(row - v.nspOff))
	}
}
