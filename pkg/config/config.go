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

package config

import (
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/matrixorigin/listagg/pkg/common/moerr"
	"github.com/matrixorigin/listagg/pkg/logutil"
)

const (
	// defaultParallelThreshold is the group count from which the fixed
	// width list aggregation runs on the worker pool.
	defaultParallelThreshold = 1 << 16

	defaultLogLevel  = "info"
	defaultLogFormat = "console"
	defaultMaxSize   = 512
)

// Config is the configuration of the list aggregation engine.
type Config struct {
	Aggregate AggregateConfig   `toml:"aggregate"`
	Log       logutil.LogConfig `toml:"log"`
}

// AggregateConfig controls the list aggregation strategies.
type AggregateConfig struct {
	// DisableObject rejects columns of opaque host values.
	DisableObject bool `toml:"disable-object"`

	// DisableStruct rejects struct columns.
	DisableStruct bool `toml:"disable-struct"`

	// ParallelThreshold, default is 65536.  Fixed width columns with at
	// least this many groups are aggregated on the worker pool.
	ParallelThreshold int `toml:"parallel-threshold"`

	// Workers, default is the number of CPUs.  1 disables the pool.
	Workers int `toml:"workers"`

	// MemoryCap, default is 0 (no limit).  Byte cap of the memory pool
	// handed to the engine by drivers.
	MemoryCap int64 `toml:"memory-cap"`
}

// FillDefault sets every field left unset.
func (c *AggregateConfig) FillDefault() {
	if c.ParallelThreshold == 0 {
		c.ParallelThreshold = defaultParallelThreshold
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
}

func (c *AggregateConfig) Validate() error {
	if c.ParallelThreshold < 0 {
		return moerr.NewBadConfigNoCtx("parallel-threshold must not be negative")
	}
	if c.Workers < 0 {
		return moerr.NewBadConfigNoCtx("workers must not be negative")
	}
	if c.MemoryCap < 0 {
		return moerr.NewBadConfigNoCtx("memory-cap must not be negative")
	}
	return nil
}

// DefaultAggregateConfig returns the aggregate configuration with every
// default filled in.
func DefaultAggregateConfig() AggregateConfig {
	var c AggregateConfig
	c.FillDefault()
	return c
}

func (c *Config) FillDefault() {
	c.Aggregate.FillDefault()
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}
	if c.Log.Filename != "" && c.Log.MaxSize == 0 {
		c.Log.MaxSize = defaultMaxSize
	}
}

func (c *Config) Validate() error {
	if err := c.Aggregate.Validate(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return moerr.NewBadConfigNoCtx("log format must be console or json")
	}
	return nil
}

// LoadFile reads a toml file, fills defaults and validates the result.
func LoadFile(file string) (*Config, error) {
	cfg := &Config{}
	md, err := toml.DecodeFile(file, cfg)
	if err != nil {
		return nil, moerr.NewBadConfigNoCtx(err.Error())
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, moerr.NewBadConfigNoCtx("unknown key " + undecoded[0].String())
	}
	cfg.FillDefault()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
