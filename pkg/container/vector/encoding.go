// Copyright 2024 Matrix Origin
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
	"bytes"
	"encoding/binary"
	"io"

	"github.com/matrixorigin/listagg/pkg/common/moerr"
	"github.com/matrixorigin/listagg/pkg/common/mpool"
	"github.com/matrixorigin/listagg/pkg/container/nulls"
	"github.com/matrixorigin/listagg/pkg/container/types"
)

// MarshalBinary encodes the logical content of v.  The encoding is
// canonical: a window and a compact copy of the same rows, or two vectors
// built by different gather paths, encode to the same bytes.  List offsets
// are rebased to zero and null slots are written as zeros.
//
// Vectors of opaque values cannot be encoded.
func (v *Vector) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v *Vector) encode(w *bytes.Buffer) error {
	if err := types.EncodeType(v.typ, w); err != nil {
		return err
	}
	writeUint32(w, uint32(v.length))

	// null positions relative to row 0
	var rows []uint32
	if v.typ.Oid != types.T_any && nulls.Any(v.nsp) {
		m := nulls.Range(v.nsp, v.nspOff, v.nspOff+uint64(v.length), v.nspOff, nulls.New())
		rows = m.Np.ToArray()
	}
	if err := types.WriteSizeBytes(types.EncodeSlice(rows), w); err != nil {
		return err
	}

	switch v.typ.Oid {
	case types.T_any:
		return nil
	case types.T_list:
		offs := v.ListOffsets()
		rebased := make([]int64, len(offs))
		for i := range offs {
			rebased[i] = offs[i] - offs[0]
		}
		if err := types.WriteSizeBytes(types.EncodeSlice(rebased), w); err != nil {
			return err
		}
		return v.children[0].Window(int(offs[0]), int(offs[v.length])).encode(w)
	case types.T_array, types.T_struct:
		for _, child := range v.children {
			if err := child.encode(w); err != nil {
				return err
			}
		}
		return nil
	case types.T_char, types.T_varchar, types.T_text, types.T_binary, types.T_blob:
		for i := 0; i < v.length; i++ {
			var bs []byte
			if !v.IsNull(uint64(i)) {
				bs = v.GetBytesAt(i)
			}
			if err := types.WriteSizeBytes(bs, w); err != nil {
				return err
			}
		}
		return nil
	case types.T_object:
		return moerr.NewNotSupportedNoCtx("encoding of OBJECT vector")
	default:
		sz := v.typ.TypeSize()
		data := make([]byte, v.length*sz)
		copy(data, v.data[:v.length*sz])
		for _, row := range rows {
			clear(data[int(row)*sz : int(row+1)*sz])
		}
		return types.WriteSizeBytes(data, w)
	}
}

// UnmarshalBinaryWithCopy decodes data into a new vector whose buffers
// come from mp.
func UnmarshalBinaryWithCopy(data []byte, mp *mpool.MPool) (*Vector, error) {
	r := bytes.NewReader(data)
	v, err := decode(r, mp)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		v.Free(mp)
		return nil, moerr.NewInvalidInputNoCtxf("%d trailing bytes after vector", r.Len())
	}
	return v, nil
}

func decode(r *bytes.Reader, mp *mpool.MPool) (_ *Vector, err error) {
	typ, err := types.DecodeType(r)
	if err != nil {
		return nil, convertReadError(err)
	}
	length, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	n := int(length)
	_, nbs, err := types.ReadSizeBytes(r)
	if err != nil {
		return nil, convertReadError(err)
	}
	nullRows, err := decodeNullRows(nbs, n)
	if err != nil {
		return nil, err
	}

	if typ.Oid == types.T_any {
		return NewNullVec(n), nil
	}
	v := NewVec(typ)
	defer func() {
		if err != nil {
			v.Free(mp)
		}
	}()

	// Sizes are checked against the bytes read before anything is
	// allocated for n rows.
	switch typ.Oid {
	case types.T_list:
		_, obs, rerr := types.ReadSizeBytes(r)
		if rerr != nil {
			return nil, convertReadError(rerr)
		}
		if len(obs) != (n+1)*8 {
			return nil, moerr.NewInvalidInputNoCtxf("list of %d rows with %d offset bytes", n, len(obs))
		}
		if err = extend(v, n, mp); err != nil {
			return nil, err
		}
		copy(v.data, obs)
		if err = v.decodeChild(r, 0, mp); err != nil {
			return nil, err
		}
		if err = checkOffsets(v.rawOffsets()[:n+1], v.children[0].length); err != nil {
			return nil, err
		}
	case types.T_array:
		if err = v.decodeChild(r, 0, mp); err != nil {
			return nil, err
		}
		if want := int64(n) * int64(typ.Width); int64(v.children[0].length) != want {
			return nil, moerr.NewInvalidInputNoCtxf("%s of %d rows with %d elements", typ, n, v.children[0].length)
		}
	case types.T_struct:
		for i := range v.children {
			if err = v.decodeChild(r, i, mp); err != nil {
				return nil, err
			}
			if v.children[i].length != n {
				return nil, moerr.NewInvalidInputNoCtxf("field %s of %d rows in struct of %d rows", typ.Names[i], v.children[i].length, n)
			}
		}
	case types.T_char, types.T_varchar, types.T_text, types.T_binary, types.T_blob:
		// every row has at least its size prefix
		if n > r.Len()/4 {
			return nil, moerr.NewInvalidInputNoCtxf("%s vector of %d rows with %d bytes left", typ, n, r.Len())
		}
		if err = extend(v, n, mp); err != nil {
			return nil, err
		}
		vas := types.DecodeSlice[types.Varlena](v.data)
		for i := 0; i < n; i++ {
			_, bs, rerr := types.ReadSizeBytes(r)
			if rerr != nil {
				return nil, convertReadError(rerr)
			}
			if vas[i], err = v.appendArea(bs, mp); err != nil {
				return nil, err
			}
		}
	default:
		_, bs, rerr := types.ReadSizeBytes(r)
		if rerr != nil {
			return nil, convertReadError(rerr)
		}
		if len(bs) != n*typ.TypeSize() {
			return nil, moerr.NewInvalidInputNoCtxf("%s vector of %d rows with %d bytes", typ, n, len(bs))
		}
		if err = extend(v, n, mp); err != nil {
			return nil, err
		}
		copy(v.data, bs)
	}
	v.length = n

	if len(nullRows) > 0 {
		v.nsp = nulls.New()
		v.nsp.Np.AddMany(nullRows)
	}
	return v, nil
}

// decodeChild decodes child i of v and checks it has the type v's type
// declares for it.
func (v *Vector) decodeChild(r *bytes.Reader, i int, mp *mpool.MPool) error {
	child, err := decode(r, mp)
	if err != nil {
		return err
	}
	v.children[i].Free(mp)
	v.children[i] = child
	if want := v.typ.Children[i]; !child.typ.Eq(want) {
		return moerr.NewInvalidInputNoCtxf("child of type %s in %s", child.typ, v.typ)
	}
	return nil
}

func decodeNullRows(nbs []byte, n int) ([]uint32, error) {
	if len(nbs)%4 != 0 {
		return nil, moerr.NewInvalidInputNoCtxf("null positions of %d bytes", len(nbs))
	}
	rows := types.DecodeSlice[uint32](nbs)
	for _, row := range rows {
		if int(row) >= n {
			return nil, moerr.NewInvalidInputNoCtxf("null position %d in vector of %d rows", row, n)
		}
	}
	return rows, nil
}

// checkOffsets checks that list offsets start at 0, never decrease and
// end at the child length.
func checkOffsets(offs []int64, childLen int) error {
	if offs[0] != 0 {
		return moerr.NewInvalidInputNoCtxf("list offsets start at %d", offs[0])
	}
	for i := 1; i < len(offs); i++ {
		if offs[i] < offs[i-1] {
			return moerr.NewInvalidInputNoCtxf("list offset %d decreases from %d to %d", i, offs[i-1], offs[i])
		}
	}
	if last := offs[len(offs)-1]; last != int64(childLen) {
		return moerr.NewInvalidInputNoCtxf("list offsets end at %d, child has %d rows", last, childLen)
	}
	return nil
}

func writeUint32(w *bytes.Buffer, n uint32) {
	var bs [4]byte
	binary.LittleEndian.PutUint32(bs[:], n)
	w.Write(bs[:])
}

func readUint32(r io.Reader) (uint32, error) {
	var bs [4]byte
	if _, err := io.ReadFull(r, bs[:]); err != nil {
		return 0, convertReadError(err)
	}
	return binary.LittleEndian.Uint32(bs[:]), nil
}

func convertReadError(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return moerr.NewUnexpectedEOFNoCtx("vector")
	}
	return err
}
