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
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matrixorigin/listagg/pkg/config"
	"github.com/matrixorigin/listagg/pkg/logutil"
)

var (
	rowsFlag   = flag.Int("rows", 1<<20, "number of input rows")
	groupsFlag = flag.Int("groups", 1<<14, "number of groups")
	typeFlag   = flag.String("type", "int64", "column type: int64, float64, varchar, struct or null")
	formFlag   = flag.String("form", "slice", "partition form: idx or slice")
	nullsFlag  = flag.Float64("nulls", 0.1, "ratio of null rows")
	seedFlag   = flag.Int64("seed", 1, "random seed")
	iterFlag   = flag.Bool("iter", true, "walk the groups with the amortized iterator")
	encodeFlag = flag.Bool("encode", true, "encode the result with lz4")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] [configFile]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := loadConfig(flag.Args())
	if err != nil {
		fmt.Printf("error:%v\n", err)
		os.Exit(-1)
	}
	logutil.SetupMOLogger(&cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	opts := options{
		rows:      *rowsFlag,
		groups:    *groupsFlag,
		typ:       *typeFlag,
		form:      *formFlag,
		nullRatio: *nullsFlag,
		seed:      *seedFlag,
		iter:      *iterFlag,
		encode:    *encodeFlag,
	}
	rep, err := run(ctx, cfg, opts)
	if err != nil {
		logutil.Errorf("agg-bench failed: %v", err)
		os.Exit(1)
	}
	rep.log()
	fmt.Println(rep)
}

func loadConfig(args []string) (*config.Config, error) {
	if len(args) > 0 {
		return config.LoadFile(args[0])
	}
	cfg := &config.Config{}
	cfg.FillDefault()
	return cfg, cfg.Validate()
}
