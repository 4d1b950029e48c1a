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

package types

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"unsafe"

	"github.com/matrixorigin/listagg/pkg/common/moerr"
)

func EncodeSlice[T any](v []T) []byte {
	var t T
	sz := int(unsafe.Sizeof(t))
	if len(v) > 0 {
		return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*sz)[:len(v)*sz]
	}
	return nil
}

func DecodeSlice[T any](v []byte) []T {
	var t T
	sz := int(unsafe.Sizeof(t))

	if len(v)%sz != 0 {
		panic(moerr.NewInternalErrorNoCtx("decode slice that is not a multiple of element size"))
	}

	if len(v) > 0 {
		return unsafe.Slice((*T)(unsafe.Pointer(&v[0])), len(v)/sz)[:len(v)/sz]
	}
	return nil
}

func WriteSizeBytes(bs []byte, w io.Writer) error {
	var sz [4]byte
	binary.LittleEndian.PutUint32(sz[:], uint32(len(bs)))
	if _, err := w.Write(sz[:]); err != nil {
		return err
	}
	if len(bs) > 0 {
		if _, err := w.Write(bs); err != nil {
			return err
		}
	}
	return nil
}

// ReadSizeBytes reads a block written by WriteSizeBytes.  A size that
// cannot be right is InvalidInput: more than MaxInt32, or more than what r
// still holds when r knows its length.  Other readers are read in steps so
// a forged size costs no more memory than the bytes actually there.
func ReadSizeBytes(r io.Reader) (int32, []byte, error) {
	var sz [4]byte
	if _, err := io.ReadFull(r, sz[:]); err != nil {
		return 0, nil, err
	}
	u := binary.LittleEndian.Uint32(sz[:])
	if u > math.MaxInt32 {
		return 0, nil, moerr.NewInvalidInputNoCtxf("block size %d out of range", u)
	}
	n := int32(u)
	if n == 0 {
		return 0, nil, nil
	}
	if lr, ok := r.(interface{ Len() int }); ok {
		if int(n) > lr.Len() {
			return 0, nil, moerr.NewInvalidInputNoCtxf("block of %d bytes, %d bytes left", n, lr.Len())
		}
		bs := make([]byte, n)
		if _, err := io.ReadFull(r, bs); err != nil {
			return 0, nil, err
		}
		return n, bs, nil
	}
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, r, int64(n)); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, nil, err
	}
	return n, buf.Bytes(), nil
}

// EncodeType writes the type, nested children included.  Object types
// have no encoding, their descriptor lives in the process only.
func EncodeType(t Type, w io.Writer) error {
	if t.Oid == T_object {
		return moerr.NewNotSupportedNoCtx("encoding of OBJECT type")
	}
	var hdr [10]byte
	hdr[0] = byte(t.Oid)
	binary.LittleEndian.PutUint32(hdr[1:], uint32(t.Size))
	binary.LittleEndian.PutUint32(hdr[5:], uint32(t.Width))
	hdr[9] = byte(len(t.Children))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	for i := range t.Children {
		if t.Oid == T_struct {
			if err := WriteSizeBytes([]byte(t.Names[i]), w); err != nil {
				return err
			}
		}
		if err := EncodeType(t.Children[i], w); err != nil {
			return err
		}
	}
	return nil
}

func DecodeType(r io.Reader) (Type, error) {
	var hdr [10]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Type{}, err
	}
	t := Type{
		Oid:   T(hdr[0]),
		Size:  int32(binary.LittleEndian.Uint32(hdr[1:])),
		Width: int32(binary.LittleEndian.Uint32(hdr[5:])),
	}
	n := int(hdr[9])
	if err := t.checkShape(n); err != nil {
		return Type{}, err
	}
	if n > 0 {
		t.Children = make([]Type, n)
	}
	if t.Oid == T_struct {
		t.Names = make([]string, n)
	}
	for i := 0; i < n; i++ {
		if t.Oid == T_struct {
			_, bs, err := ReadSizeBytes(r)
			if err != nil {
				return Type{}, err
			}
			t.Names[i] = string(bs)
		}
		child, err := DecodeType(r)
		if err != nil {
			return Type{}, err
		}
		t.Children[i] = child
	}
	return t, nil
}

// checkShape rejects a decoded header no constructor could have built.
func (t Type) checkShape(children int) error {
	want := 0
	switch t.Oid {
	case T_any, T_bool, T_int8, T_int16, T_int32, T_int64,
		T_uint8, T_uint16, T_uint32, T_uint64, T_float32, T_float64, T_date,
		T_char, T_varchar, T_text, T_binary, T_blob:
	case T_list:
		want = 1
	case T_array:
		want = 1
		if t.Width <= 0 {
			return moerr.NewInvalidInputNoCtxf("array type of width %d", t.Width)
		}
	case T_struct:
		want = children
	case T_object:
		return moerr.NewNotSupportedNoCtx("decoding of OBJECT type")
	default:
		return moerr.NewInvalidInputNoCtxf("unknown type oid %d", t.Oid)
	}
	if children != want {
		return moerr.NewInvalidInputNoCtxf("type %s with %d children", t.Oid, children)
	}
	if t.Size != int32(t.Oid.TypeLen()) || t.Width < 0 {
		return moerr.NewInvalidInputNoCtxf("type %s of size %d and width %d", t.Oid, t.Size, t.Width)
	}
	return nil
}
