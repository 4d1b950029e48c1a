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
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/listagg/pkg/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Aggregate.Workers = 2
	cfg.Aggregate.ParallelThreshold = 4
	cfg.FillDefault()
	return cfg
}

func TestGenPartition(t *testing.T) {
	for _, form := range []string{"idx", "slice"} {
		opts := options{rows: 100, groups: 7, form: form}
		g, err := genPartition(opts, rand.New(rand.NewSource(3)))
		require.NoError(t, err)
		require.Equal(t, 7, g.Len())
		require.Equal(t, form, kind(g))
		require.NoError(t, g.Validate(100))
		total := 0
		for _, n := range g.Lengths() {
			total += n
		}
		require.Equal(t, 100, total)
	}

	_, err := genPartition(options{rows: 1, groups: 1, form: "hash"}, rand.New(rand.NewSource(3)))
	require.Error(t, err)
}

func TestRun(t *testing.T) {
	for _, typ := range []string{"int64", "float64", "varchar", "struct", "null"} {
		for _, form := range []string{"idx", "slice"} {
			opts := options{
				rows:      200,
				groups:    9,
				typ:       typ,
				form:      form,
				nullRatio: 0.2,
				seed:      int64(len(typ)),
				iter:      true,
				encode:    typ != "null",
			}
			rep, err := run(context.Background(), testConfig(), opts)
			require.NoError(t, err, "%s/%s", typ, form)
			// every input row lands in exactly one group
			require.Equal(t, 200, rep.iterRows, "%s/%s", typ, form)
			require.Zero(t, rep.nullGroups)
			require.Positive(t, rep.highWater)
			require.NotEmpty(t, rep.String())
		}
	}
}

func TestRunBadArgs(t *testing.T) {
	_, err := run(context.Background(), testConfig(), options{rows: 10, groups: 0, typ: "int64", form: "slice"})
	require.Error(t, err)
	_, err = run(context.Background(), testConfig(), options{rows: 10, groups: 2, typ: "decimal", form: "slice"})
	require.Error(t, err)
}

func TestLoadConfigDefault(t *testing.T) {
	cfg, err := loadConfig(nil)
	require.NoError(t, err)
	require.Equal(t, "info", cfg.Log.Level)
	require.Positive(t, cfg.Aggregate.Workers)
}
