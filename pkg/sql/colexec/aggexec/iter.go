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

	"github.com/matrixorigin/listagg/pkg/common/invariants"
	"github.com/matrixorigin/listagg/pkg/common/moerr"
	"github.com/matrixorigin/listagg/pkg/common/mpool"
	"github.com/matrixorigin/listagg/pkg/container/series"
	"github.com/matrixorigin/listagg/pkg/container/types"
	"github.com/matrixorigin/listagg/pkg/container/vector"
	"github.com/matrixorigin/listagg/pkg/sql/colexec/groups"
)

// AggState tells how a column relates to the groups it is iterated by.
type AggState uint8

const (
	// Literal is a single value that stands for every group.
	Literal AggState = iota
	// AggregatedScalar holds one value per group.
	AggregatedScalar
	// AggregatedList holds one list per group.
	AggregatedList
	// NotAggregated is a flat column that still has to be grouped.
	NotAggregated
)

func (s AggState) String() string {
	switch s {
	case Literal:
		return "literal"
	case AggregatedScalar:
		return "aggregated scalar"
	case AggregatedList:
		return "aggregated list"
	case NotAggregated:
		return "not aggregated"
	}
	return "unknown"
}

// GroupIter yields the values of one group at a time.
//
// Every item is the same AmortSeries re-pointed at the next group, so an
// item is only valid until the following call to Next.  A nil view with
// ok set is a null group.
type GroupIter interface {
	Next() (view *series.AmortSeries, ok bool)
	// Len returns the number of items left.
	Len() int
	// Close releases what the iterator allocated.  Views must not be
	// used afterwards.
	Close()
}

// IterGroups iterates col by g using DefaultConfig, see
// ListAggregator.IterGroups.
func IterGroups(ctx context.Context, mp *mpool.MPool, col *series.Series, state AggState, g *groups.Partition, keepName bool) (GroupIter, error) {
	a := ListAggregator{cfg: DefaultConfig}
	return a.IterGroups(ctx, mp, col, state, g, keepName)
}

// IterGroups returns an iterator over the groups of col:
//
//	Literal           the single value of col, g.Len() times
//	AggregatedScalar  every value of col as a one row series
//	AggregatedList    every list of col, nil for a null list
//	NotAggregated     col aggregated by g first, then as AggregatedList
//
// Items are named like col when keepName is set, and unnamed otherwise.
func (a *ListAggregator) IterGroups(ctx context.Context, mp *mpool.MPool, col *series.Series, state AggState, g *groups.Partition, keepName bool) (GroupIter, error) {
	name := ""
	if keepName {
		name = col.Name()
	}

	switch state {
	case Literal:
		if col.Len() != 1 {
			return nil, moerr.NewInvalidInput(ctx, "literal of %d rows", col.Len())
		}
		one, err := col.Rechunk(mp)
		if err != nil {
			return nil, err
		}
		it := &litIter{
			view:      series.NewAmortSeries(name, col.Type()),
			src:       one.Chunks()[0],
			remaining: g.Len(),
		}
		if one != col {
			it.owned, it.mp = one, mp
		}
		return it, nil

	case AggregatedScalar:
		if invariants.Enabled && col.Len() != g.Len() {
			return nil, moerr.NewInvalidInput(ctx, "aggregated scalar of %d rows for %d groups", col.Len(), g.Len())
		}
		return &flatIter{
			view:      series.NewAmortSeries(name, col.Type()),
			chunks:    col.Chunks(),
			remaining: col.Len(),
		}, nil

	case AggregatedList:
		if col.Type().Oid != types.T_list {
			return nil, moerr.NewInvalidInput(ctx, "aggregated list state on %s", col.Type())
		}
		return newListIter(col, name), nil

	case NotAggregated:
		agg, err := a.AggList(ctx, mp, col, g)
		if err != nil {
			return nil, err
		}
		it := newListIter(agg, name)
		it.owned, it.mp = agg, mp
		return it, nil
	}
	return nil, moerr.NewInvalidArg(ctx, "aggregation state", state)
}

// litIter repeats one value.
type litIter struct {
	view      *series.AmortSeries
	src       *vector.Vector
	remaining int

	owned *series.Series
	mp    *mpool.MPool
}

func (it *litIter) Next() (*series.AmortSeries, bool) {
	if it.remaining == 0 {
		return nil, false
	}
	it.remaining--
	it.view.Swap(it.src, 0, 1)
	return it.view, true
}

func (it *litIter) Len() int {
	return it.remaining
}

func (it *litIter) Close() {
	if it.owned != nil {
		it.owned.Free(it.mp)
		it.owned = nil
	}
}

// flatIter slides a one row window over the chunks of a column.
type flatIter struct {
	view      *series.AmortSeries
	chunks    []*vector.Vector
	chunk     int
	row       int
	remaining int
}

func (it *flatIter) Next() (*series.AmortSeries, bool) {
	for it.chunk < len(it.chunks) && it.row >= it.chunks[it.chunk].Length() {
		it.chunk++
		it.row = 0
	}
	if it.chunk == len(it.chunks) {
		return nil, false
	}
	it.view.Swap(it.chunks[it.chunk], it.row, it.row+1)
	it.row++
	it.remaining--
	return it.view, true
}

func (it *flatIter) Len() int {
	return it.remaining
}

func (it *flatIter) Close() {}

// listIter shows the elements of one list row at a time.
type listIter struct {
	view      *series.AmortSeries
	chunks    []*vector.Vector
	chunk     int
	row       int
	remaining int

	owned *series.Series
	mp    *mpool.MPool
}

func newListIter(col *series.Series, name string) *listIter {
	return &listIter{
		view:      series.NewAmortSeries(name, col.Type().Elem()),
		chunks:    col.Chunks(),
		remaining: col.Len(),
	}
}

func (it *listIter) Next() (*series.AmortSeries, bool) {
	for it.chunk < len(it.chunks) && it.row >= it.chunks[it.chunk].Length() {
		it.chunk++
		it.row = 0
	}
	if it.chunk == len(it.chunks) {
		return nil, false
	}
	vec, row := it.chunks[it.chunk], it.row
	it.row++
	it.remaining--
	if vec.IsNull(uint64(row)) {
		return nil, true
	}
	offs := vec.ListOffsets()
	it.view.Swap(vec.GetChild(0), int(offs[row]), int(offs[row+1]))
	return it.view, true
}

func (it *listIter) Len() int {
	return it.remaining
}

func (it *listIter) Close() {
	if it.owned != nil {
		it.owned.Free(it.mp)
		it.owned = nil
	}
}
