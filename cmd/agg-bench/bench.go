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

package main

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/matrixorigin/listagg/pkg/common/compress"
	"github.com/matrixorigin/listagg/pkg/common/moerr"
	"github.com/matrixorigin/listagg/pkg/common/mpool"
	"github.com/matrixorigin/listagg/pkg/config"
	"github.com/matrixorigin/listagg/pkg/container/series"
	"github.com/matrixorigin/listagg/pkg/container/types"
	"github.com/matrixorigin/listagg/pkg/container/vector"
	"github.com/matrixorigin/listagg/pkg/logutil"
	"github.com/matrixorigin/listagg/pkg/sql/colexec/aggexec"
	"github.com/matrixorigin/listagg/pkg/sql/colexec/groups"
)

type options struct {
	rows      int
	groups    int
	typ       string
	form      string
	nullRatio float64
	seed      int64
	iter      bool
	encode    bool
}

type report struct {
	runID uuid.UUID
	opts  options

	fastExplode bool
	aggTime     time.Duration
	iterTime    time.Duration
	// iterRows is the number of values seen through the iterator.
	iterRows   int
	nullGroups int

	rawSize     int
	encodedSize int

	highWater int64
	maxRSS    int64
}

func (r *report) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "run %s: %s column, %d rows, %d groups (%s)\n",
		r.runID, r.opts.typ, r.opts.rows, r.opts.groups, r.opts.form)
	fmt.Fprintf(&buf, "  agg:    %v, fast explode %v\n", r.aggTime, r.fastExplode)
	if r.opts.iter {
		fmt.Fprintf(&buf, "  iter:   %v, %d values, %d null groups\n", r.iterTime, r.iterRows, r.nullGroups)
	}
	if r.opts.encode {
		fmt.Fprintf(&buf, "  encode: %s -> %s\n", humanize.Bytes(uint64(r.rawSize)), humanize.Bytes(uint64(r.encodedSize)))
	}
	fmt.Fprintf(&buf, "  memory: pool high water %s", humanize.Bytes(uint64(r.highWater)))
	if r.maxRSS > 0 {
		fmt.Fprintf(&buf, ", max rss %s", humanize.Bytes(uint64(r.maxRSS)))
	}
	return buf.String()
}

func (r *report) log() {
	logutil.Info("agg-bench done",
		zap.String("run", r.runID.String()),
		zap.String("type", r.opts.typ),
		zap.String("form", r.opts.form),
		zap.Int("rows", r.opts.rows),
		zap.Int("groups", r.opts.groups),
		zap.Duration("agg", r.aggTime),
		zap.Duration("iter", r.iterTime),
		zap.String("high-water", humanize.Bytes(uint64(r.highWater))),
		zap.Bool("fast-explode", r.fastExplode))
}

func run(ctx context.Context, cfg *config.Config, opts options) (*report, error) {
	if opts.rows < 0 {
		return nil, moerr.NewInvalidArgNoCtx("rows", opts.rows)
	}
	if opts.groups <= 0 {
		return nil, moerr.NewInvalidArgNoCtx("groups", opts.groups)
	}
	rep := &report{runID: uuid.New(), opts: opts}
	mp, err := mpool.NewMPool("agg-bench-"+rep.runID.String()[:8], cfg.Aggregate.MemoryCap)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(opts.seed))

	col, err := genColumn(mp, opts, rng)
	if err != nil {
		return nil, err
	}
	defer col.Free(mp)
	g, err := genPartition(opts, rng)
	if err != nil {
		return nil, err
	}

	agg, err := aggexec.NewListAggregator(cfg.Aggregate)
	if err != nil {
		return nil, err
	}
	defer agg.Close()

	logutil.Info("agg-bench start",
		zap.String("run", rep.runID.String()),
		zap.String("partition", kind(g)),
		zap.Int("workers", cfg.Aggregate.Workers))

	start := time.Now()
	out, err := agg.AggList(ctx, mp, col, g)
	if err != nil {
		return nil, err
	}
	defer out.Free(mp)
	rep.aggTime = time.Since(start)
	rep.fastExplode = out.FastExplode()

	if opts.iter {
		start = time.Now()
		it, err := agg.IterGroups(ctx, mp, out, aggexec.AggregatedList, nil, true)
		if err != nil {
			return nil, err
		}
		for view, ok := it.Next(); ok; view, ok = it.Next() {
			if view == nil {
				rep.nullGroups++
				continue
			}
			rep.iterRows += view.Len()
		}
		it.Close()
		rep.iterTime = time.Since(start)
	}

	if opts.encode {
		var raw, enc bytes.Buffer
		if err := out.Encode(&raw, compress.None); err != nil {
			return nil, err
		}
		if err := out.Encode(&enc, compress.Lz4); err != nil {
			return nil, err
		}
		rep.rawSize, rep.encodedSize = raw.Len(), enc.Len()
	}

	rep.highWater = mp.Stats().HighWaterMark.Load()
	rep.maxRSS = maxRSS()
	return rep, nil
}

func kind(g *groups.Partition) string {
	if g.IsIdx() {
		return "idx"
	}
	return "slice"
}

// genColumn returns a single chunk column of opts.rows random values.
func genColumn(mp *mpool.MPool, opts options, rng *rand.Rand) (*series.Series, error) {
	var typ types.Type
	switch opts.typ {
	case "int64":
		typ = types.T_int64.ToType()
	case "float64":
		typ = types.T_float64.ToType()
	case "varchar":
		typ = types.T_varchar.ToType()
	case "struct":
		typ = types.NewStructType([]string{"id", "tag"},
			[]types.Type{types.T_int64.ToType(), types.T_varchar.ToType()})
	case "null":
		return series.FromVector("c", vector.NewNullVec(opts.rows)), nil
	default:
		return nil, moerr.NewInvalidArgNoCtx("type", opts.typ)
	}

	vec := vector.NewVec(typ)
	if err := vec.PreExtend(opts.rows, mp); err != nil {
		return nil, err
	}
	for i := 0; i < opts.rows; i++ {
		isNull := rng.Float64() < opts.nullRatio
		var err error
		switch opts.typ {
		case "int64":
			err = vector.Append(vec, rng.Int63(), isNull, mp)
		case "float64":
			err = vector.Append(vec, rng.NormFloat64(), isNull, mp)
		case "varchar":
			err = vector.AppendBytes(vec, []byte("v"+strconv.Itoa(rng.Intn(1<<16))), isNull, mp)
		case "struct":
			var val any
			if !isNull {
				val = []any{int64(i), "t" + strconv.Itoa(rng.Intn(64))}
			}
			err = vector.AppendAny(vec, val, mp)
		}
		if err != nil {
			vec.Free(mp)
			return nil, err
		}
	}
	return series.FromVector("c", vec), nil
}

// genPartition splits opts.rows rows into opts.groups groups.  The slice
// form cuts the rows into consecutive runs, the idx form scatters every
// row into a random group.  Both forms may hold empty groups.
func genPartition(opts options, rng *rand.Rand) (*groups.Partition, error) {
	switch opts.form {
	case "slice":
		cuts := make([]int, opts.groups-1)
		for i := range cuts {
			cuts[i] = rng.Intn(opts.rows + 1)
		}
		slices.Sort(cuts)
		ranges := make([][2]uint32, opts.groups)
		prev := 0
		for i := range ranges {
			end := opts.rows
			if i < len(cuts) {
				end = cuts[i]
			}
			ranges[i] = [2]uint32{uint32(prev), uint32(end - prev)}
			prev = end
		}
		return groups.NewSlice(ranges), nil
	case "idx":
		all := make([][]uint32, opts.groups)
		for row := 0; row < opts.rows; row++ {
			i := rng.Intn(opts.groups)
			all[i] = append(all[i], uint32(row))
		}
		return groups.FromIndices(all), nil
	default:
		return nil, moerr.NewInvalidArgNoCtx("form", opts.form)
	}
}
