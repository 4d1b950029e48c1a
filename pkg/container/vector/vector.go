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
	"fmt"

	"github.com/matrixorigin/listagg/pkg/common/moerr"
	"github.com/matrixorigin/listagg/pkg/common/mpool"
	"github.com/matrixorigin/listagg/pkg/container/nulls"
	"github.com/matrixorigin/listagg/pkg/container/types"
)

// Vector represent one chunk of a column.
//
// Layout by type:
//
//	fixed width    data holds length elements
//	char ... blob  data holds length Varlena handles into area
//	list           data holds length+1 offsets into children[0]
//	array          children[0] holds length*Width elements
//	struct         children[i] is field i, every child has length rows
//	object         objs holds the boxed values
//	any            nothing but length, every row is null
type Vector struct {
	typ types.Type

	nsp *nulls.Nulls // nulls list
	// nspOff is the position of row 0 inside nsp.  It is not zero only
	// for windows, which share the null set of their parent.
	nspOff uint64

	data []byte
	// area for holding var-len values.
	area []byte
	objs []any

	children []*Vector
	// sharedChildren is true when children is the slice of another vector,
	// which is the case for list windows.
	sharedChildren bool

	length int

	// view is true for a window, a view owns none of its buffers and must
	// never be appended to or freed.
	view bool
}

func NewVec(typ types.Type) *Vector {
	vec := &Vector{typ: typ}
	switch typ.Oid {
	case types.T_list, types.T_array:
		vec.children = []*Vector{NewVec(typ.Elem())}
	case types.T_struct:
		vec.children = make([]*Vector, len(typ.Children))
		for i := range typ.Children {
			vec.children[i] = NewVec(typ.Children[i])
		}
	}
	return vec
}

// NewNullVec returns a vector of type T_any with length rows.
func NewNullVec(length int) *Vector {
	return &Vector{typ: types.T_any.ToType(), length: length}
}

// NewList returns an empty list vector of n rows whose offsets can be
// filled in place, offsets[0] is 0.  The caller sets the child with
// SetChild once the values are known.
func NewList(typ types.Type, n int, mp *mpool.MPool) (*Vector, []int64, error) {
	if typ.Oid != types.T_list {
		return nil, nil, moerr.NewInternalErrorNoCtxf("NewList with type %s", typ)
	}
	vec := NewVec(typ)
	if err := vec.PreExtend(n, mp); err != nil {
		return nil, nil, err
	}
	vec.length = n
	return vec, vec.rawOffsets(), nil
}

func (v *Vector) Length() int {
	return v.length
}

// SetLength changes the logical length.  The buffers must already be
// large enough, see PreExtend.
func (v *Vector) SetLength(n int) {
	v.length = n
}

func (v *Vector) GetType() *types.Type {
	return &v.typ
}

// SetType retags the vector.  Used when the caller knows more about the
// type than the kernel producing the vector, e.g. nested struct names.
func (v *Vector) SetType(typ types.Type) {
	v.typ = typ
}

func (v *Vector) GetNulls() *nulls.Nulls {
	return v.nsp
}

func (v *Vector) SetNulls(nsp *nulls.Nulls) {
	if v.view {
		panic(moerr.NewInternalErrorNoCtx("set nulls of a vector window"))
	}
	v.nsp = nsp
	v.nspOff = 0
}

func (v *Vector) IsView() bool {
	return v.view
}

func (v *Vector) IsNull(i uint64) bool {
	if v.typ.Oid == types.T_any {
		return true
	}
	return nulls.Contains(v.nsp, v.nspOff+i)
}

// NullCount returns the number of null rows of the vector.  A window only
// counts the rows it covers.
func (v *Vector) NullCount() int {
	if v.typ.Oid == types.T_any {
		return v.length
	}
	if !nulls.Any(v.nsp) || v.length == 0 {
		return 0
	}
	if !v.view {
		return nulls.Length(v.nsp)
	}
	np := v.nsp.Np
	end := np.Rank(uint32(v.nspOff) + uint32(v.length) - 1)
	if v.nspOff == 0 {
		return int(end)
	}
	return int(end - np.Rank(uint32(v.nspOff)-1))
}

func (v *Vector) HasNull() bool {
	return v.NullCount() > 0
}

func (v *Vector) Children() []*Vector {
	return v.children
}

func (v *Vector) GetChild(i int) *Vector {
	return v.children[i]
}

func (v *Vector) SetChild(i int, child *Vector) {
	v.children[i] = child
}

func (v *Vector) GetArea() []byte {
	return v.area
}

// rawOffsets returns the offsets buffer including the trailing entry.
func (v *Vector) rawOffsets() []int64 {
	return types.DecodeSlice[int64](v.data)
}

// ListOffsets returns the length+1 offsets of a list vector.  Offsets are
// positions in the child, also for a window.
func (v *Vector) ListOffsets() []int64 {
	if v.typ.Oid != types.T_list {
		panic(moerr.NewInternalErrorNoCtxf("ListOffsets of type %s", v.typ))
	}
	if len(v.data) == 0 {
		return zeroOffset
	}
	return v.rawOffsets()[:v.length+1]
}

var zeroOffset = []int64{0}

// MustFixedCol returns the elements of a fixed width vector.
func MustFixedCol[T types.FixedSizeT](v *Vector) []T {
	if v.length == 0 {
		return nil
	}
	return types.DecodeSlice[T](v.data)[:v.length]
}

func MustVarlenaCol(v *Vector) []types.Varlena {
	return MustFixedCol[types.Varlena](v)
}

func GetFixedAt[T types.FixedSizeT](v *Vector, i int) T {
	return MustFixedCol[T](v)[i]
}

func (v *Vector) GetBytesAt(i int) []byte {
	return MustVarlenaCol(v)[i].GetByteSlice(v.area)
}

func (v *Vector) GetStringAt(i int) string {
	return MustVarlenaCol(v)[i].GetString(v.area)
}

// ObjectCol returns the boxed values of an OBJECT vector.
func (v *Vector) ObjectCol() []any {
	return v.objs[:v.length]
}

// MustObjectCol recovers the typed values of an OBJECT vector through its
// descriptor.  Null rows are returned as the zero value.
func MustObjectCol[V any](v *Vector) ([]V, error) {
	desc := v.typ.Object
	if v.typ.Oid != types.T_object || desc == nil {
		return nil, moerr.NewInternalErrorNoCtxf("vector of type %s has no object descriptor", v.typ)
	}
	want := types.NewObjectDescriptor[V](desc.Name)
	if !desc.Eq(want) {
		return nil, moerr.NewInvalidInputNoCtxf("object column holds %s, not %s", desc.GoType, want.GoType)
	}
	objs := v.ObjectCol()
	ret := make([]V, len(objs))
	for i, o := range objs {
		if o != nil {
			ret[i] = o.(V)
		}
	}
	return ret, nil
}

// Window returns a view of rows [start, end).  The view aliases v.
func (v *Vector) Window(start, end int) *Vector {
	w := &Vector{}
	v.WindowInto(w, start, end)
	return w
}

// WindowInto re-points dst to rows [start, end) of v without allocating
// new buffers.  dst keeps its child vectors between calls when it can, so
// sliding a window over the same source allocates nothing.
func (v *Vector) WindowInto(dst *Vector, start, end int) {
	if start < 0 || end < start || end > v.length {
		panic(moerr.NewInternalErrorNoCtxf("window [%d, %d) out of vector of length %d", start, end, v.length))
	}
	dst.typ = v.typ
	dst.view = true
	dst.length = end - start
	dst.nsp = v.nsp
	dst.nspOff = v.nspOff + uint64(start)
	dst.area = v.area
	dst.data = nil
	dst.objs = nil

	switch v.typ.Oid {
	case types.T_any:
	case types.T_object:
		dst.objs = v.objs[start:end]
	case types.T_list:
		if len(v.data) > 0 {
			dst.data = v.data[start*8 : (end+1)*8]
		}
		dst.children = v.children
		dst.sharedChildren = true
	case types.T_array:
		w := int(v.typ.Width)
		child := dst.ownChild(0, 1)
		v.children[0].WindowInto(child, start*w, end*w)
	case types.T_struct:
		for i := range v.children {
			child := dst.ownChild(i, len(v.children))
			v.children[i].WindowInto(child, start, end)
		}
		dst.children = dst.children[:len(v.children)]
	default:
		sz := v.typ.TypeSize()
		dst.data = v.data[start*sz : end*sz]
	}
}

// ownChild returns the i-th child of a window, reusing a previous window
// vector if there is one.
func (v *Vector) ownChild(i, n int) *Vector {
	if v.sharedChildren || len(v.children) != n {
		v.children = make([]*Vector, n)
		v.sharedChildren = false
	}
	if v.children[i] == nil {
		v.children[i] = &Vector{}
	}
	return v.children[i]
}

// PreExtend makes room for rows more rows of the flat buffer.
func (v *Vector) PreExtend(rows int, mp *mpool.MPool) error {
	return extend(v, rows, mp)
}

func extend(v *Vector, rows int, mp *mpool.MPool) error {
	if v.view {
		panic(moerr.NewInternalErrorNoCtx("extend a vector window"))
	}
	var sz int
	switch v.typ.Oid {
	case types.T_any, types.T_array, types.T_struct:
		return nil
	case types.T_object:
		if need := v.length + rows; need > cap(v.objs) {
			objs := make([]any, need, need*2)
			copy(objs, v.objs)
			v.objs = objs
		}
		v.objs = v.objs[:v.length+rows]
		return nil
	case types.T_list:
		sz = (v.length + 1 + rows) * 8
	default:
		sz = (v.length + rows) * v.typ.TypeSize()
	}
	if sz <= len(v.data) {
		return nil
	}
	data, err := mp.Grow(v.data, sz)
	if err != nil {
		return err
	}
	v.data = data
	return nil
}

func (v *Vector) Free(mp *mpool.MPool) {
	if v.view {
		return
	}
	mp.Free(v.data)
	mp.Free(v.area)
	v.data = nil
	v.area = nil
	v.objs = nil
	for _, child := range v.children {
		if child != nil {
			child.Free(mp)
		}
	}
	v.length = 0
}

// Dup returns a compact copy of v owning its buffers.  Dup of a window
// copies only the rows of the window.
func (v *Vector) Dup(mp *mpool.MPool) (*Vector, error) {
	w := NewVec(v.typ)
	if err := w.UnionRange(v, 0, v.length, mp); err != nil {
		w.Free(mp)
		return nil, err
	}
	return w, nil
}

func (v *Vector) String() string {
	vals := make([]any, v.length)
	for i := range vals {
		vals[i] = v.GetAny(i)
	}
	return fmt.Sprintf("%v", vals)
}
