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

package series

import (
	"bytes"
	"io"
	"testing"

	"github.com/matrixorigin/listagg/pkg/common/compress"
	"github.com/matrixorigin/listagg/pkg/common/invariants"
	"github.com/matrixorigin/listagg/pkg/common/moerr"
	"github.com/matrixorigin/listagg/pkg/common/mpool"
	"github.com/matrixorigin/listagg/pkg/container/types"
	"github.com/matrixorigin/listagg/pkg/container/vector"
	"github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
)

func newVec(t *testing.T, mp *mpool.MPool, typ types.Type, vals ...any) *vector.Vector {
	v := vector.NewVec(typ)
	for _, val := range vals {
		require.NoError(t, vector.AppendAny(v, val, mp))
	}
	return v
}

func TestRechunk(t *testing.T) {
	mp := mpool.MustNewZero()
	typ := types.T_varchar.ToType()
	s := New("s", typ, newVec(t, mp, typ, "a", nil), newVec(t, mp, typ, "c"))
	require.Equal(t, 3, s.Len())
	require.Equal(t, 1, s.NullCount())
	require.Equal(t, "c", s.GetAny(2))
	require.True(t, s.IsNull(1))

	one, err := s.Rechunk(mp)
	require.NoError(t, err)
	require.Equal(t, 1, one.NumChunks())
	require.Equal(t, s.Values(), one.Values())
	require.Equal(t, `s: VARCHAR [a, null, c]`, one.String())

	same, err := one.Rechunk(mp)
	require.NoError(t, err)
	require.True(t, same == one)

	_, err = one.ListOffsets()
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	s.Free(mp)
	one.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestExplode(t *testing.T) {
	convey.Convey("explode list series", t, func() {
		mp := mpool.MustNewZero()
		typ := types.NewListType(types.T_int64.ToType())

		convey.Convey("an empty list gives no row, a null list a null row", func() {
			s := FromVector("l", newVec(t, mp, typ, []any{1, 2}, []any{}, nil, []any{3}))
			out, err := s.Explode(mp)
			convey.So(err, convey.ShouldBeNil)
			convey.So(out.Values(), convey.ShouldResemble, []any{int64(1), int64(2), nil, int64(3)})
			convey.So(out.Type().Oid, convey.ShouldEqual, types.T_int64)
			out.Free(mp)
			s.Free(mp)
		})

		convey.Convey("fast explode copies the elements in one piece", func() {
			s := New("l", typ,
				newVec(t, mp, typ, []any{1}),
				newVec(t, mp, typ, []any{2, nil}))
			s.SetFastExplode(true)
			out, err := s.Explode(mp)
			convey.So(err, convey.ShouldBeNil)
			convey.So(out.Values(), convey.ShouldResemble, []any{int64(1), int64(2), nil})
			out.Free(mp)
			s.Free(mp)
		})

		convey.So(mp.CurrNB(), convey.ShouldEqual, int64(0))
	})
}

func TestListAccessors(t *testing.T) {
	mp := mpool.MustNewZero()
	typ := types.NewListType(types.T_int8.ToType())
	s := FromVector("l", newVec(t, mp, typ, []any{1, 2}, []any{3}))
	defer s.Free(mp)

	offs, err := s.ListOffsets()
	require.NoError(t, err)
	require.Equal(t, []int64{0, 2, 3}, offs)
	vals, err := s.ListValues()
	require.NoError(t, err)
	require.Equal(t, []int8{1, 2, 3}, vector.MustFixedCol[int8](vals))

	s.SetFastExplode(true)
	require.True(t, s.FastExplode())
	flat := FromVector("f", newVec(t, mp, types.T_int8.ToType(), 1))
	flat.SetFastExplode(true)
	require.False(t, flat.FastExplode())
	flat.Free(mp)
}

func TestAmortSeries(t *testing.T) {
	mp := mpool.MustNewZero()
	typ := types.T_float64.ToType()
	src := newVec(t, mp, typ, 1.0, 2.0, nil, 4.0)
	defer src.Free(mp)

	a := NewAmortSeries("x", typ)
	container := a.Series()
	nb := mp.CurrNB()

	a.Swap(src, 0, 2)
	require.Equal(t, []any{1.0, 2.0}, container.Values())
	kept, err := a.Clone(mp)
	require.NoError(t, err)

	a.Swap(src, 2, 4)
	require.True(t, container == a.Series())
	require.Equal(t, []any{nil, 4.0}, container.Values())
	require.Equal(t, 2, a.Len())
	require.Equal(t, []any{1.0, 2.0}, kept.Values())

	kept.Free(mp)
	require.Equal(t, nb, mp.CurrNB())

	if invariants.Enabled {
		container.Free(mp)
		require.Panics(t, func() { a.Swap(src, 0, 1) })
	}
}

func TestEncodeDecode(t *testing.T) {
	mp := mpool.MustNewZero()
	typ := types.NewListType(types.T_varchar.ToType())
	var vals []any
	for i := 0; i < 200; i++ {
		vals = append(vals, []any{"repeated value", "another repeated value"})
	}
	s := New("enc", typ, newVec(t, mp, typ, vals...), newVec(t, mp, typ, nil, []any{"x"}))
	s.SetFastExplode(true)
	defer s.Free(mp)

	for _, algo := range []compress.T{compress.None, compress.Lz4} {
		var buf bytes.Buffer
		require.NoError(t, s.Encode(&buf, algo))
		if algo == compress.Lz4 {
			raw, err := s.Chunks()[0].MarshalBinary()
			require.NoError(t, err)
			require.Less(t, buf.Len(), len(raw))
		}

		data := buf.Bytes()
		d, err := Decode(bytes.NewReader(data), mp)
		require.NoError(t, err)
		require.Equal(t, "enc", d.Name())
		require.True(t, d.FastExplode())
		require.Equal(t, 2, d.NumChunks())
		require.Equal(t, s.Values(), d.Values())
		d.Free(mp)

		_, err = Decode(bytes.NewReader(data[:len(data)-3]), mp)
		require.Error(t, err)
	}
}

func TestEncodeDecodeEmpty(t *testing.T) {
	mp := mpool.MustNewZero()
	typ := types.NewStructType([]string{"a"}, []types.Type{types.T_int64.ToType()})
	var buf bytes.Buffer
	require.NoError(t, New("empty", typ).Encode(&buf, compress.Lz4))

	d, err := Decode(&buf, mp)
	require.NoError(t, err)
	require.Equal(t, "empty", d.Name())
	require.Equal(t, 0, d.NumChunks())
	require.Equal(t, 0, d.Len())
	require.True(t, typ.Eq(d.Type()))
}

func TestDecodeCorruptStream(t *testing.T) {
	mp := mpool.MustNewZero()
	// a reader that does not know its length, the name claims 1GB
	data := []byte{0, 0, 0, 0x40, 'a'}
	_, err := Decode(struct{ io.Reader }{bytes.NewReader(data)}, mp)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrUnexpectedEOF), "%v", err)

	data = []byte{0xff, 0xff, 0xff, 0xff}
	_, err = Decode(bytes.NewReader(data), mp)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput), "%v", err)
	require.Equal(t, int64(0), mp.CurrNB())
}
