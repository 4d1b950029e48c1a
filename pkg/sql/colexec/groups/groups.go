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

package groups

import (
	"fmt"

	"github.com/matrixorigin/listagg/pkg/common/moerr"
)

// Idx is the index-list form of a partition: group i holds the rows All[i]
// in that order, First[i] is its first row.
type Idx struct {
	First []uint32
	All   [][]uint32
}

// Partition assigns rows of a column to groups.  It is either in index-list
// form, where every group enumerates its rows, or in slice form, where
// group i is the contiguous range Slice[i] = (start, length).  Groups may
// be empty and may overlap.
type Partition struct {
	idx   *Idx
	slice [][2]uint32
}

// NewIdx returns an index-list partition.  first and all must have the
// same length.
func NewIdx(first []uint32, all [][]uint32) *Partition {
	return &Partition{idx: &Idx{First: first, All: all}}
}

// FromIndices returns an index-list partition whose first rows are taken
// from all.  The first row of an empty group is 0.
func FromIndices(all [][]uint32) *Partition {
	first := make([]uint32, len(all))
	for i, rows := range all {
		if len(rows) > 0 {
			first[i] = rows[0]
		}
	}
	return NewIdx(first, all)
}

// NewSlice returns a slice partition, every element is (start, length).
func NewSlice(slices [][2]uint32) *Partition {
	if slices == nil {
		slices = [][2]uint32{}
	}
	return &Partition{slice: slices}
}

func (g *Partition) IsIdx() bool {
	return g.idx != nil
}

func (g *Partition) Idx() *Idx {
	return g.idx
}

func (g *Partition) Slices() [][2]uint32 {
	return g.slice
}

// Len returns the number of groups.
func (g *Partition) Len() int {
	if g.idx != nil {
		return len(g.idx.All)
	}
	return len(g.slice)
}

// GroupLen returns the number of rows of group i.
func (g *Partition) GroupLen(i int) int {
	if g.idx != nil {
		return len(g.idx.All[i])
	}
	return int(g.slice[i][1])
}

// Lengths returns the number of rows of every group.
func (g *Partition) Lengths() []int {
	lens := make([]int, g.Len())
	for i := range lens {
		lens[i] = g.GroupLen(i)
	}
	return lens
}

// FillOffsets writes the Len()+1 list offsets of the groups to offsets:
// offsets[0] is 0 and offsets[i+1] is the running sum of group lengths up
// to group i.  It reports whether no group is empty.
func (g *Partition) FillOffsets(offsets []int64) (canFastExplode bool) {
	canFastExplode = true
	offsets[0] = 0
	for i, n := 0, g.Len(); i < n; i++ {
		l := g.GroupLen(i)
		if l == 0 {
			canFastExplode = false
		}
		offsets[i+1] = offsets[i] + int64(l)
	}
	return
}

// PrepareListAgg computes what list aggregation needs from the partition:
// the gather indices, the list offsets and whether no group is empty.
//
// In index-list form gather concatenates every group's rows in order; in
// slice form gather is nil and the ranges are copied directly.  capHint
// sizes the gather buffer, the column length is a good value.
func (g *Partition) PrepareListAgg(capHint int) (gather []int64, offsets []int64, canFastExplode bool) {
	offsets = make([]int64, g.Len()+1)
	canFastExplode = g.FillOffsets(offsets)
	if g.idx != nil {
		gather = make([]int64, 0, capHint)
		for _, rows := range g.idx.All {
			for _, row := range rows {
				gather = append(gather, int64(row))
			}
		}
	}
	return
}

// Split cuts the partition into at most n partitions of consecutive
// groups.  The parts share storage with g and concatenating them in order
// gives back g.
func (g *Partition) Split(n int) []*Partition {
	total := g.Len()
	if n > total {
		n = total
	}
	if n <= 1 {
		return []*Partition{g}
	}
	parts := make([]*Partition, 0, n)
	for k := 0; k < n; k++ {
		lo, hi := k*total/n, (k+1)*total/n
		if g.idx != nil {
			parts = append(parts, NewIdx(g.idx.First[lo:hi], g.idx.All[lo:hi]))
		} else {
			parts = append(parts, NewSlice(g.slice[lo:hi]))
		}
	}
	return parts
}

// Validate checks that every group lies inside a column of rows rows.
// Aggregation trusts its partition, this is meant for tests and
// invariants builds.
func (g *Partition) Validate(rows int) error {
	if g.idx != nil {
		if len(g.idx.First) != len(g.idx.All) {
			return moerr.NewInvalidInputNoCtxf("partition with %d first rows and %d groups", len(g.idx.First), len(g.idx.All))
		}
		for i, all := range g.idx.All {
			if len(all) > 0 && all[0] != g.idx.First[i] {
				return moerr.NewInvalidInputNoCtxf("group %d starts at %d, first row is %d", i, all[0], g.idx.First[i])
			}
			for _, row := range all {
				if int(row) >= rows {
					return moerr.NewInvalidInputNoCtxf("group %d has row %d, column has %d rows", i, row, rows)
				}
			}
		}
		return nil
	}
	for i, s := range g.slice {
		if int(s[0])+int(s[1]) > rows {
			return moerr.NewInvalidInputNoCtxf("group %d [%d, +%d) exceeds column of %d rows", i, s[0], s[1], rows)
		}
	}
	return nil
}

func (g *Partition) String() string {
	if g.idx != nil {
		return fmt.Sprintf("idx%v", g.idx.All)
	}
	return fmt.Sprintf("slice%v", g.slice)
}
