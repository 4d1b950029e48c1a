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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type point struct{ x, y int }

func TestCategory(t *testing.T) {
	kases := []struct {
		typ  Type
		want Category
	}{
		{T_any.ToType(), CategoryNull},
		{T_int64.ToType(), CategoryFixed},
		{T_float32.ToType(), CategoryFixed},
		{T_date.ToType(), CategoryFixed},
		{T_bool.ToType(), CategoryVarOrNested},
		{T_varchar.ToType(), CategoryVarOrNested},
		{T_blob.ToType(), CategoryVarOrNested},
		{NewListType(T_int32.ToType()), CategoryVarOrNested},
		{NewArrayType(T_int32.ToType(), 3), CategoryVarOrNested},
		{NewStructType([]string{"a"}, []Type{T_int32.ToType()}), CategoryStruct},
		{NewObjectType(NewObjectDescriptor[point]("point")), CategoryOpaque},
	}
	for _, k := range kases {
		require.Equal(t, k.want, k.typ.Category(), k.typ.String())
	}
}

func TestTypeEqAndString(t *testing.T) {
	st := NewStructType([]string{"a", "b"}, []Type{T_int64.ToType(), T_varchar.ToType()})
	require.Equal(t, "STRUCT<a: BIGINT, b: VARCHAR>", st.String())
	require.Equal(t, "LIST<STRUCT<a: BIGINT, b: VARCHAR>>", NewListType(st).String())

	other := NewStructType([]string{"a", "c"}, []Type{T_int64.ToType(), T_varchar.ToType()})
	require.True(t, st.Eq(st))
	require.False(t, st.Eq(other))
	require.False(t, NewListType(st).Eq(NewListType(other)))

	d1 := NewObjectDescriptor[point]("point")
	d2 := NewObjectDescriptor[point]("point")
	require.True(t, NewObjectType(d1).Eq(NewObjectType(d2)))
	require.False(t, NewObjectType(d1).Eq(NewObjectType(NewObjectDescriptor[*point]("point"))))
}

func TestObjectDescriptorAccepts(t *testing.T) {
	d := NewObjectDescriptor[point]("point")
	require.True(t, d.Accepts(point{1, 2}))
	require.True(t, d.Accepts(nil))
	require.False(t, d.Accepts(&point{}))

	anyDesc := NewObjectDescriptor[any]("any")
	require.True(t, anyDesc.Accepts(3))
	require.True(t, anyDesc.Accepts("x"))
}

func TestVarlena(t *testing.T) {
	area := []byte("helloworld")
	v := NewVarlena(5, 5)
	require.Equal(t, "world", v.GetString(area))
	require.Equal(t, 5, v.Len())
	require.Equal(t, "", NewVarlena(3, 0).GetString(area))
}

func TestDate(t *testing.T) {
	d := DateFromTime(time.Date(2022, 3, 4, 10, 0, 0, 0, time.UTC))
	require.Equal(t, "2022-03-04", d.String())
	require.Equal(t, Date(0), DateFromTime(time.Unix(0, 0)))
}

func TestEncodeType(t *testing.T) {
	typs := []Type{
		T_int8.ToType(),
		NewListType(NewListType(T_varchar.ToType())),
		NewArrayType(T_float64.ToType(), 4),
		NewStructType([]string{"a", "b"}, []Type{T_int64.ToType(), NewListType(T_bool.ToType())}),
	}
	for _, typ := range typs {
		var buf bytes.Buffer
		require.NoError(t, EncodeType(typ, &buf))
		got, err := DecodeType(&buf)
		require.NoError(t, err)
		require.True(t, typ.Eq(got), typ.String())
	}

	var buf bytes.Buffer
	require.Error(t, EncodeType(NewObjectType(NewObjectDescriptor[point]("p")), &buf))
}

func TestEncodeSlice(t *testing.T) {
	xs := []int32{1, -2, 3}
	require.Equal(t, xs, DecodeSlice[int32](EncodeSlice(xs)))
	require.Nil(t, DecodeSlice[int64](nil))
	require.Panics(t, func() { DecodeSlice[int64](make([]byte, 3)) })
}
