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
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/matrixorigin/listagg/pkg/common/invariants"
	"github.com/matrixorigin/listagg/pkg/common/moerr"
	"github.com/matrixorigin/listagg/pkg/common/mpool"
	"github.com/matrixorigin/listagg/pkg/config"
	"github.com/matrixorigin/listagg/pkg/container/nulls"
	"github.com/matrixorigin/listagg/pkg/container/series"
	"github.com/matrixorigin/listagg/pkg/container/types"
	"github.com/matrixorigin/listagg/pkg/container/vector"
	"github.com/matrixorigin/listagg/pkg/logutil"
	"github.com/matrixorigin/listagg/pkg/sql/colexec/groups"
)

// DefaultConfig configures the package level AggList and IterGroups.
var DefaultConfig = config.DefaultAggregateConfig()

// ListAggregator collects the values of every group of a column into one
// list per group.
//
// The result is a list series with one row per group, in group order.
// Row i holds the values of group i in the order the partition lists
// them, nulls included.  The outer list is never null; an empty group
// gives an empty list.
type ListAggregator struct {
	cfg  config.AggregateConfig
	pool *ants.Pool
}

// NewListAggregator returns an aggregator configured by cfg.  Unset fields
// take their defaults.  With more than one worker, fixed width columns
// with many groups are aggregated on a pool of cfg.Workers goroutines,
// release it with Close.
func NewListAggregator(cfg config.AggregateConfig) (*ListAggregator, error) {
	cfg.FillDefault()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &ListAggregator{cfg: cfg}
	if cfg.Workers > 1 {
		pool, err := ants.NewPool(cfg.Workers)
		if err != nil {
			return nil, moerr.NewInternalErrorNoCtxf("create list aggregation pool: %v", err)
		}
		a.pool = pool
	}
	return a, nil
}

func (a *ListAggregator) Close() {
	if a.pool != nil {
		a.pool.Release()
		a.pool = nil
	}
}

// AggList aggregates col by g with DefaultConfig, serially.
func AggList(ctx context.Context, mp *mpool.MPool, col *series.Series, g *groups.Partition) (*series.Series, error) {
	a := ListAggregator{cfg: DefaultConfig}
	return a.AggList(ctx, mp, col, g)
}

// AggList aggregates col into one list per group of g.  Every row referenced
// by g must exist in col.  The result is named like col and is flagged
// for fast explode when no group is empty.
func (a *ListAggregator) AggList(ctx context.Context, mp *mpool.MPool, col *series.Series, g *groups.Partition) (*series.Series, error) {
	if invariants.Enabled {
		if err := g.Validate(col.Len()); err != nil {
			return nil, err
		}
	}
	typ := col.Type()
	cat := typ.Category()
	switch {
	case cat == types.CategoryOpaque && a.cfg.DisableObject:
		return nil, moerr.NewNotSupported(ctx, "list aggregation of %s", typ)
	case cat == types.CategoryStruct && a.cfg.DisableStruct:
		return nil, moerr.NewNotSupported(ctx, "list aggregation of %s", typ)
	}
	if err := ctx.Err(); err != nil {
		return nil, moerr.NewQueryInterrupted(ctx)
	}

	one, err := col.Rechunk(mp)
	if err != nil {
		return nil, err
	}
	if one != col {
		defer one.Free(mp)
	}
	src := one.Chunks()[0]

	var (
		out  *vector.Vector
		fast bool
	)
	switch cat {
	case types.CategoryFixed:
		out, fast, err = a.aggListFixed(ctx, mp, src, g)
	case types.CategoryVarOrNested, types.CategoryStruct:
		out, fast, err = gatherAndWrap(mp, src, g)
	case types.CategoryOpaque:
		out, fast, err = aggListObject(ctx, mp, src, g)
	case types.CategoryNull:
		out, fast, err = aggListNull(mp, g)
	}
	if err != nil {
		return nil, err
	}

	if logutil.DebugEnabled() {
		logutil.Debug("list aggregation",
			zap.String("column", col.Name()),
			zap.Stringer("strategy", cat),
			zap.Int("rows", src.Length()),
			zap.Int("groups", g.Len()),
			zap.Bool("fast-explode", fast))
	}
	ret := series.FromVector(col.Name(), out)
	ret.SetFastExplode(fast)
	return ret, nil
}

func (a *ListAggregator) aggListFixed(ctx context.Context, mp *mpool.MPool, src *vector.Vector, g *groups.Partition) (*vector.Vector, bool, error) {
	switch src.GetType().Oid {
	case types.T_int8:
		return aggListPrimitive[int8](ctx, a, mp, src, g)
	case types.T_int16:
		return aggListPrimitive[int16](ctx, a, mp, src, g)
	case types.T_int32:
		return aggListPrimitive[int32](ctx, a, mp, src, g)
	case types.T_int64:
		return aggListPrimitive[int64](ctx, a, mp, src, g)
	case types.T_uint8:
		return aggListPrimitive[uint8](ctx, a, mp, src, g)
	case types.T_uint16:
		return aggListPrimitive[uint16](ctx, a, mp, src, g)
	case types.T_uint32:
		return aggListPrimitive[uint32](ctx, a, mp, src, g)
	case types.T_uint64:
		return aggListPrimitive[uint64](ctx, a, mp, src, g)
	case types.T_float32:
		return aggListPrimitive[float32](ctx, a, mp, src, g)
	case types.T_float64:
		return aggListPrimitive[float64](ctx, a, mp, src, g)
	case types.T_date:
		return aggListPrimitive[types.Date](ctx, a, mp, src, g)
	}
	return nil, false, moerr.NewNYI(ctx, "list aggregation of %s", src.GetType())
}

// aggListPrimitive copies the values of every group straight into the
// flat child buffer.  Validity is a second pass that only runs when the
// source has nulls.
func aggListPrimitive[T types.Number](ctx context.Context, a *ListAggregator, mp *mpool.MPool, src *vector.Vector, g *groups.Partition) (*vector.Vector, bool, error) {
	typ := *src.GetType()
	n := g.Len()
	out, offsets, err := vector.NewList(types.NewListType(typ), n, mp)
	if err != nil {
		return nil, false, err
	}
	fast := g.FillOffsets(offsets)
	total := int(offsets[n])

	values := vector.NewVec(typ)
	if err = values.PreExtend(total, mp); err != nil {
		out.Free(mp)
		return nil, false, err
	}
	values.SetLength(total)
	out.SetChild(0, values)

	srcCol := vector.MustFixedCol[T](src)
	dst := vector.MustFixedCol[T](values)
	hasNull := src.HasNull()
	if hasNull {
		if err = checkNullRange(ctx, total); err != nil {
			out.Free(mp)
			return nil, false, err
		}
	}
	fill := func(part *groups.Partition, first int) []int {
		return fillPrimitive(part, offsets[first:], srcCol, dst, src, hasNull)
	}

	var nullRows []int
	if a.pool != nil && a.cfg.Workers > 1 && n >= a.cfg.ParallelThreshold {
		nullRows, err = a.fillParallel(ctx, g, fill)
		if err != nil {
			out.Free(mp)
			return nil, false, err
		}
	} else {
		nullRows = fill(g, 0)
	}

	if len(nullRows) > 0 {
		nsp := nulls.New()
		for _, row := range nullRows {
			nsp.Np.Add(uint32(row))
		}
		values.SetNulls(nsp)
	}
	return out, fast, nil
}

// checkNullRange refuses a child of rows rows whose null positions would
// not fit a Nulls.
func checkNullRange(ctx context.Context, rows int) error {
	if rows > 0 && uint64(rows-1) > nulls.MaxRow {
		return moerr.NewNotSupported(ctx, "null positions of a list child of %d rows", rows)
	}
	return nil
}

// fillPrimitive writes the values of the groups of g to dst, group i
// starting at offsets[i].  It returns the positions in dst that are null.
func fillPrimitive[T types.Number](g *groups.Partition, offsets []int64, srcCol, dst []T, src *vector.Vector, hasNull bool) []int {
	if g.IsIdx() {
		for i, rows := range g.Idx().All {
			pos := offsets[i]
			for j, row := range rows {
				dst[pos+int64(j)] = srcCol[row]
			}
		}
	} else {
		for i, s := range g.Slices() {
			copy(dst[offsets[i]:offsets[i+1]], srcCol[s[0]:s[0]+s[1]])
		}
	}
	if !hasNull {
		return nil
	}

	var nullRows []int
	if g.IsIdx() {
		for i, rows := range g.Idx().All {
			for j, row := range rows {
				if src.IsNull(uint64(row)) {
					nullRows = append(nullRows, int(offsets[i])+j)
				}
			}
		}
	} else {
		for i, s := range g.Slices() {
			pos, start := int(offsets[i]), int(s[0])
			src.ForEachNull(start, start+int(s[1]), func(row int) {
				nullRows = append(nullRows, pos+row-start)
			})
		}
	}
	return nullRows
}

// fillParallel runs fill over consecutive ranges of groups on the pool.
// Every range writes its own part of the output, the null positions are
// merged in group order.
func (a *ListAggregator) fillParallel(ctx context.Context, g *groups.Partition, fill func(*groups.Partition, int) []int) ([]int, error) {
	parts := g.Split(a.cfg.Workers)
	results := make([][]int, len(parts))
	errs := make([]error, len(parts))

	var wg sync.WaitGroup
	first := 0
	for k, part := range parts {
		k, part, start := k, part, first
		first += part.Len()

		wg.Add(1)
		if err := a.pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[k] = moerr.ConvertPanicError(ctx, r)
				}
			}()
			if ctx.Err() != nil {
				errs[k] = moerr.NewQueryInterrupted(ctx)
				return
			}
			results[k] = fill(part, start)
		}); err != nil {
			wg.Done()
			errs[k] = moerr.NewInternalError(ctx, "submit list aggregation task: %v", err)
		}
	}
	wg.Wait()

	var nullRows []int
	for k := range parts {
		if errs[k] != nil {
			return nil, errs[k]
		}
		nullRows = append(nullRows, results[k]...)
	}
	return nullRows, nil
}

// gatherAndWrap gathers the rows of every group into one flat child and
// wraps it with the group offsets.  Index-list groups go through a single
// take, slice groups copy their ranges; both give the same buffers.
// Structs gather all their fields together and keep their field names.
func gatherAndWrap(mp *mpool.MPool, src *vector.Vector, g *groups.Partition) (*vector.Vector, bool, error) {
	gather, offsets, fast := g.PrepareListAgg(src.Length())
	var (
		values *vector.Vector
		err    error
	)
	if g.IsIdx() {
		values, err = vector.Take(src, gather, mp)
	} else {
		values, err = vector.GatherRanges(src, g.Slices(), mp)
	}
	if err != nil {
		return nil, false, err
	}
	out, err := wrapList(values, offsets, mp)
	if err != nil {
		return nil, false, err
	}
	return out, fast, nil
}

// aggListObject flattens opaque values the same way.  The element type,
// and with it the descriptor that can rebuild typed values, travels with
// the list type.
func aggListObject(ctx context.Context, mp *mpool.MPool, src *vector.Vector, g *groups.Partition) (*vector.Vector, bool, error) {
	if src.GetType().Object == nil {
		return nil, false, moerr.NewInternalError(ctx, "object column without descriptor")
	}
	return gatherAndWrap(mp, src, g)
}

// aggListNull only needs the group lengths: every element is null.
func aggListNull(mp *mpool.MPool, g *groups.Partition) (*vector.Vector, bool, error) {
	offsets := make([]int64, g.Len()+1)
	fast := g.FillOffsets(offsets)
	out, err := wrapList(vector.NewNullVec(int(offsets[g.Len()])), offsets, mp)
	if err != nil {
		return nil, false, err
	}
	return out, fast, nil
}

// wrapList builds a list vector over values.  values is released on error.
func wrapList(values *vector.Vector, offsets []int64, mp *mpool.MPool) (*vector.Vector, error) {
	out, offs, err := vector.NewList(types.NewListType(*values.GetType()), len(offsets)-1, mp)
	if err != nil {
		values.Free(mp)
		return nil, err
	}
	copy(offs, offsets)
	out.SetChild(0, values)
	return out, nil
}
