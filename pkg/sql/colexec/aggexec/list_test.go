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

package aggexec

import (
	"context"
	"math/rand"
	"testing"

	"github.com/prashantv/gostub"
	"github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/listagg/pkg/common/moerr"
	"github.com/matrixorigin/listagg/pkg/common/mpool"
	"github.com/matrixorigin/listagg/pkg/config"
	"github.com/matrixorigin/listagg/pkg/container/nulls"
	"github.com/matrixorigin/listagg/pkg/container/series"
	"github.com/matrixorigin/listagg/pkg/container/types"
	"github.com/matrixorigin/listagg/pkg/container/vector"
	"github.com/matrixorigin/listagg/pkg/sql/colexec/groups"
)

func newSeries(t *testing.T, mp *mpool.MPool, name string, typ types.Type, vals ...any) *series.Series {
	v := vector.NewVec(typ)
	for _, val := range vals {
		require.NoError(t, vector.AppendAny(v, val, mp))
	}
	return series.FromVector(name, v)
}

// idxOf returns the index-list partition selecting the same rows as slices.
func idxOf(slices [][2]uint32) *groups.Partition {
	all := make([][]uint32, len(slices))
	for i, s := range slices {
		all[i] = []uint32{}
		for r := s[0]; r < s[0]+s[1]; r++ {
			all[i] = append(all[i], r)
		}
	}
	return groups.FromIndices(all)
}

func mustOffsets(t *testing.T, s *series.Series) []int64 {
	offs, err := s.ListOffsets()
	require.NoError(t, err)
	return offs
}

func mustValues(t *testing.T, s *series.Series) *vector.Vector {
	vals, err := s.ListValues()
	require.NoError(t, err)
	return vals
}

func TestAggListPrimitive(t *testing.T) {
	convey.Convey("list aggregation of a fixed width column", t, func() {
		ctx := context.Background()
		mp := mpool.MustNewZero()
		col := newSeries(t, mp, "a", types.T_int64.ToType(), 1, nil, 3, 4, 5, nil)

		convey.Convey("index-list groups", func() {
			g := groups.FromIndices([][]uint32{{0, 2}, {1}, {}, {3, 4, 5}})
			ret, err := AggList(ctx, mp, col, g)
			convey.So(err, convey.ShouldBeNil)

			offs := mustOffsets(t, ret)
			vals := mustValues(t, ret)
			convey.So(offs, convey.ShouldResemble, []int64{0, 2, 3, 3, 6})
			convey.So(offs[len(offs)-1], convey.ShouldEqual, int64(vals.Length()))
			convey.So(ret.FastExplode(), convey.ShouldBeFalse)
			convey.So(ret.Name(), convey.ShouldEqual, "a")
			convey.So(ret.Type().String(), convey.ShouldEqual, "LIST<BIGINT>")
			convey.So(ret.NullCount(), convey.ShouldEqual, 0)
			convey.So(ret.Values(), convey.ShouldResemble, []any{
				[]any{int64(1), int64(3)},
				[]any{nil},
				[]any{},
				[]any{int64(4), int64(5), nil},
			})
			ret.Free(mp)
		})

		convey.Convey("groups out of row order", func() {
			g := groups.FromIndices([][]uint32{{5, 0}, {2, 2}})
			ret, err := AggList(ctx, mp, col, g)
			convey.So(err, convey.ShouldBeNil)
			convey.So(ret.FastExplode(), convey.ShouldBeTrue)
			convey.So(ret.Values(), convey.ShouldResemble, []any{
				[]any{nil, int64(1)},
				[]any{int64(3), int64(3)},
			})
			ret.Free(mp)
		})

		convey.Convey("no nulls means no validity", func() {
			g := groups.NewSlice([][2]uint32{{2, 3}})
			ret, err := AggList(ctx, mp, col, g)
			convey.So(err, convey.ShouldBeNil)
			convey.So(mustValues(t, ret).GetNulls(), convey.ShouldBeNil)
			ret.Free(mp)
		})

		convey.Convey("no groups", func() {
			ret, err := AggList(ctx, mp, col, groups.NewSlice(nil))
			convey.So(err, convey.ShouldBeNil)
			convey.So(ret.Len(), convey.ShouldEqual, 0)
			convey.So(mustOffsets(t, ret), convey.ShouldResemble, []int64{0})
			convey.So(ret.FastExplode(), convey.ShouldBeTrue)
			ret.Free(mp)
		})

		col.Free(mp)
		convey.So(mp.CurrNB(), convey.ShouldEqual, int64(0))
	})
}

func TestAggListGroupLengths(t *testing.T) {
	ctx := context.Background()
	mp := mpool.MustNewZero()
	rnd := rand.New(rand.NewSource(42))

	col := newSeries(t, mp, "v", types.T_varchar.ToType())
	for i := 0; i < 100; i++ {
		require.NoError(t, vector.AppendAny(col.Chunks()[0], string(rune('a'+i%26)), mp))
	}
	defer col.Free(mp)

	all := make([][]uint32, 30)
	for i := range all {
		all[i] = []uint32{}
		for j := rnd.Intn(6); j > 0; j-- {
			all[i] = append(all[i], uint32(rnd.Intn(100)))
		}
	}
	g := groups.FromIndices(all)
	ret, err := AggList(ctx, mp, col, g)
	require.NoError(t, err)
	defer ret.Free(mp)

	offs := mustOffsets(t, ret)
	require.Len(t, offs, g.Len()+1)
	require.Equal(t, int64(0), offs[0])
	fast := true
	for i := 0; i < g.Len(); i++ {
		require.LessOrEqual(t, offs[i], offs[i+1])
		require.Equal(t, int64(g.GroupLen(i)), offs[i+1]-offs[i])
		if g.GroupLen(i) == 0 {
			fast = false
		}
	}
	require.Equal(t, int64(mustValues(t, ret).Length()), offs[g.Len()])
	require.Equal(t, fast, ret.FastExplode())
}

func TestAggListOneEmptyGroup(t *testing.T) {
	ctx := context.Background()
	mp := mpool.MustNewZero()
	col := newSeries(t, mp, "f", types.T_float32.ToType(), 1.5, 2.5, 3.5)
	defer col.Free(mp)

	for _, g := range []*groups.Partition{
		groups.NewSlice([][2]uint32{{0, 1}, {1, 0}, {1, 2}}),
		groups.FromIndices([][]uint32{{0}, {}, {1, 2}}),
	} {
		ret, err := AggList(ctx, mp, col, g)
		require.NoError(t, err)
		require.False(t, ret.FastExplode())
		ret.Free(mp)
	}
}

func TestAggListIdxSliceIdentical(t *testing.T) {
	ctx := context.Background()
	mp := mpool.MustNewZero()

	structType := types.NewStructType([]string{"a", "b"}, []types.Type{types.T_int64.ToType(), types.T_varchar.ToType()})
	cols := []*series.Series{
		newSeries(t, mp, "i32", types.T_int32.ToType(), 1, nil, 3, 4, nil, 6),
		newSeries(t, mp, "u8", types.T_uint8.ToType(), 1, 2, 3, 4, 5, 6),
		newSeries(t, mp, "f64", types.T_float64.ToType(), 0.5, nil, 1.5, 2.5, 3.5, nil),
		newSeries(t, mp, "date", types.T_date.ToType(), types.Date(1), types.Date(2), nil, types.Date(4), types.Date(5), types.Date(6)),
		newSeries(t, mp, "bool", types.T_bool.ToType(), true, false, nil, true, true, false),
		newSeries(t, mp, "str", types.T_varchar.ToType(), "a", "bb", nil, "dddd", "", "f"),
		newSeries(t, mp, "blob", types.T_blob.ToType(), []byte{1}, nil, []byte{3, 3}, []byte{}, []byte{5}, []byte{6}),
		newSeries(t, mp, "list", types.NewListType(types.T_int16.ToType()),
			[]any{1}, nil, []any{}, []any{2, nil, 3}, []any{4}, []any{5, 6}),
		newSeries(t, mp, "array", types.NewArrayType(types.T_uint32.ToType(), 2),
			[]any{1, 2}, []any{3, nil}, nil, []any{5, 6}, []any{7, 8}, []any{9, 10}),
		newSeries(t, mp, "struct", structType,
			[]any{1, "x"}, nil, []any{3, nil}, []any{4, "y"}, []any{nil, "z"}, []any{6, "w"}),
		series.FromVector("null", vector.NewNullVec(6)),
	}

	slices := [][2]uint32{{0, 3}, {3, 0}, {3, 2}, {5, 1}}
	for _, col := range cols {
		bySlice, err := AggList(ctx, mp, col, groups.NewSlice(slices))
		require.NoError(t, err, col.Name())
		byIdx, err := AggList(ctx, mp, col, idxOf(slices))
		require.NoError(t, err, col.Name())

		b1, err := bySlice.Chunks()[0].MarshalBinary()
		require.NoError(t, err)
		b2, err := byIdx.Chunks()[0].MarshalBinary()
		require.NoError(t, err)
		require.Equal(t, b1, b2, col.Name())
		require.Equal(t, bySlice.FastExplode(), byIdx.FastExplode())
		require.False(t, byIdx.FastExplode())
		require.True(t, bySlice.Type().Elem().Eq(col.Type()), col.Name())
		require.Equal(t, []int64{0, 3, 3, 5, 6}, mustOffsets(t, byIdx), col.Name())

		bySlice.Free(mp)
		byIdx.Free(mp)
		col.Free(mp)
	}
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestAggListMultiChunk(t *testing.T) {
	ctx := context.Background()
	mp := mpool.MustNewZero()
	typ := types.T_text.ToType()
	c1 := newSeries(t, mp, "", typ, "a", "b")
	c2 := newSeries(t, mp, "", typ, nil, "d")
	col := series.New("t", typ, c1.Chunks()[0], c2.Chunks()[0])

	ret, err := AggList(ctx, mp, col, groups.FromIndices([][]uint32{{3, 0}, {2, 1}}))
	require.NoError(t, err)
	require.Equal(t, []any{[]any{"d", "a"}, []any{nil, "b"}}, ret.Values())

	ret.Free(mp)
	col.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestAggListStruct(t *testing.T) {
	ctx := context.Background()
	mp := mpool.MustNewZero()
	typ := types.NewStructType([]string{"a", "b"}, []types.Type{types.T_int32.ToType(), types.T_text.ToType()})
	col := newSeries(t, mp, "s", typ, []any{0, "zero"}, []any{1, "one"}, []any{2, "two"})
	defer col.Free(mp)

	ret, err := AggList(ctx, mp, col, groups.FromIndices([][]uint32{{0, 2}, {1}}))
	require.NoError(t, err)
	defer ret.Free(mp)

	require.Equal(t, "LIST<STRUCT<a: INT, b: TEXT>>", ret.Type().String())
	vals := mustValues(t, ret)
	require.Equal(t, []string{"a", "b"}, vals.GetType().Names)
	a, b := vals.GetChild(0), vals.GetChild(1)
	require.Equal(t, 3, a.Length())
	require.Equal(t, 3, b.Length())
	words := []string{"zero", "one", "two"}
	for i := 0; i < vals.Length(); i++ {
		require.Equal(t, words[vector.GetFixedAt[int32](a, i)], b.GetStringAt(i))
	}
	require.Equal(t, []any{
		[]any{[]any{int32(0), "zero"}, []any{int32(2), "two"}},
		[]any{[]any{int32(1), "one"}},
	}, ret.Values())
}

type point struct{ x, y int }

func TestAggListObject(t *testing.T) {
	ctx := context.Background()
	mp := mpool.MustNewZero()
	desc := types.NewObjectDescriptor[*point]("point")
	vec := vector.NewVec(types.NewObjectType(desc))
	pts := []*point{{1, 1}, {2, 2}, {3, 3}}
	for _, p := range pts {
		require.NoError(t, vector.AppendObject(vec, p, false, mp))
	}
	require.NoError(t, vector.AppendObject(vec, nil, true, mp))
	col := series.FromVector("o", vec)

	for _, g := range []*groups.Partition{
		groups.NewSlice([][2]uint32{{1, 3}, {0, 1}}),
		groups.FromIndices([][]uint32{{1, 2, 3}, {0}}),
	} {
		ret, err := AggList(ctx, mp, col, g)
		require.NoError(t, err)
		vals := mustValues(t, ret)
		require.True(t, vals.GetType().Object == desc)

		got, err := vector.MustObjectCol[*point](vals)
		require.NoError(t, err)
		require.Same(t, pts[1], got[0])
		require.Same(t, pts[2], got[1])
		require.Nil(t, got[2])
		require.True(t, vals.IsNull(2))
		require.Same(t, pts[0], got[3])
		ret.Free(mp)
	}
}

func TestAggListNull(t *testing.T) {
	ctx := context.Background()
	mp := mpool.MustNewZero()
	col := series.FromVector("n", vector.NewNullVec(4))

	ret, err := AggList(ctx, mp, col, groups.NewSlice([][2]uint32{{0, 2}, {2, 0}, {1, 3}}))
	require.NoError(t, err)
	vals := mustValues(t, ret)
	require.Equal(t, types.T_any, vals.GetType().Oid)
	require.Equal(t, 5, vals.Length())
	require.Equal(t, []int64{0, 2, 2, 5}, mustOffsets(t, ret))
	require.False(t, ret.FastExplode())
	require.Equal(t, []any{[]any{nil, nil}, []any{}, []any{nil, nil, nil}}, ret.Values())
	ret.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestAggListDisabled(t *testing.T) {
	ctx := context.Background()
	mp := mpool.MustNewZero()
	cfg := config.DefaultAggregateConfig()
	cfg.DisableObject = true
	cfg.DisableStruct = true
	stubs := gostub.Stub(&DefaultConfig, cfg)
	defer stubs.Reset()

	st := newSeries(t, mp, "s", types.NewStructType([]string{"a"}, []types.Type{types.T_int8.ToType()}), []any{1})
	_, err := AggList(ctx, mp, st, groups.NewSlice([][2]uint32{{0, 1}}))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrNotSupported))

	obj := series.FromVector("o", vector.NewVec(types.NewObjectType(types.NewObjectDescriptor[string]("s"))))
	_, err = AggList(ctx, mp, obj, groups.NewSlice(nil))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrNotSupported))

	_, err = IterGroups(ctx, mp, st, NotAggregated, groups.NewSlice(nil), true)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrNotSupported))

	// a flat column still works
	flat := newSeries(t, mp, "i", types.T_int8.ToType(), 1)
	ret, err := AggList(ctx, mp, flat, groups.NewSlice([][2]uint32{{0, 1}}))
	require.NoError(t, err)
	ret.Free(mp)
}

func TestAggListCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mp := mpool.MustNewZero()
	col := newSeries(t, mp, "a", types.T_int64.ToType(), 1)
	_, err := AggList(ctx, mp, col, groups.NewSlice([][2]uint32{{0, 1}}))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrQueryInterrupted))
}

func TestAggListOOM(t *testing.T) {
	ctx := context.Background()
	mp := mpool.MustNewZero()
	col := newSeries(t, mp, "a", types.T_int64.ToType())
	for i := 0; i < 1000; i++ {
		require.NoError(t, vector.Append(col.Chunks()[0], int64(i), false, mp))
	}
	tiny := mpool.MustNew("tiny", 1024)
	_, err := AggList(ctx, tiny, col, groups.NewSlice([][2]uint32{{0, 1000}}))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOOM))
	require.Equal(t, int64(0), tiny.CurrNB())
}

func TestAggListParallel(t *testing.T) {
	ctx := context.Background()
	mp := mpool.MustNewZero()
	rnd := rand.New(rand.NewSource(7))

	const rows = 5000
	vec := vector.NewVec(types.T_float64.ToType())
	for i := 0; i < rows; i++ {
		require.NoError(t, vector.Append(vec, float64(i), i%7 == 0, mp))
	}
	col := series.FromVector("p", vec)
	defer col.Free(mp)

	all := make([][]uint32, 1500)
	for i := range all {
		all[i] = []uint32{}
		for j := rnd.Intn(8); j > 0; j-- {
			all[i] = append(all[i], uint32(rnd.Intn(rows)))
		}
	}
	var slices [][2]uint32
	for start := 0; start < rows; {
		n := rnd.Intn(5)
		if start+n > rows {
			n = rows - start
		}
		slices = append(slices, [2]uint32{uint32(start), uint32(n)})
		start += n
	}

	serial, err := NewListAggregator(config.AggregateConfig{Workers: 1})
	require.NoError(t, err)
	defer serial.Close()
	parallel, err := NewListAggregator(config.AggregateConfig{Workers: 4, ParallelThreshold: 1})
	require.NoError(t, err)
	defer parallel.Close()

	for _, g := range []*groups.Partition{groups.FromIndices(all), groups.NewSlice(slices)} {
		r1, err := serial.AggList(ctx, mp, col, g)
		require.NoError(t, err)
		r2, err := parallel.AggList(ctx, mp, col, g)
		require.NoError(t, err)

		b1, err := r1.Chunks()[0].MarshalBinary()
		require.NoError(t, err)
		b2, err := r2.Chunks()[0].MarshalBinary()
		require.NoError(t, err)
		require.Equal(t, b1, b2)
		require.Equal(t, r1.FastExplode(), r2.FastExplode())
		require.Greater(t, mustValues(t, r2).NullCount(), 0)

		r1.Free(mp)
		r2.Free(mp)
	}
}

func TestNewListAggregator(t *testing.T) {
	_, err := NewListAggregator(config.AggregateConfig{Workers: -1})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))

	a, err := NewListAggregator(config.AggregateConfig{})
	require.NoError(t, err)
	require.Greater(t, a.cfg.Workers, 0)
	a.Close()
	a.Close()
}

func TestExplodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	mp := mpool.MustNewZero()
	col := newSeries(t, mp, "r", types.T_varchar.ToType(), "a", "b", nil, "d", "e")
	defer col.Free(mp)

	all := [][]uint32{{4, 0}, {}, {2}, {1, 3, 1}}
	ret, err := AggList(ctx, mp, col, groups.FromIndices(all))
	require.NoError(t, err)
	defer ret.Free(mp)

	exploded, err := ret.Explode(mp)
	require.NoError(t, err)
	defer exploded.Free(mp)

	var want []any
	for _, rows := range all {
		for _, row := range rows {
			want = append(want, col.GetAny(int(row)))
		}
	}
	require.Equal(t, want, exploded.Values())
	require.Equal(t, "r", exploded.Name())
}

func TestCheckNullRange(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, checkNullRange(ctx, 0))
	require.NoError(t, checkNullRange(ctx, int(nulls.MaxRow)+1))
	err := checkNullRange(ctx, int(nulls.MaxRow)+2)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrNotSupported))
}
