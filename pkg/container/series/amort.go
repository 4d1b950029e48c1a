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
	"github.com/matrixorigin/listagg/pkg/common/invariants"
	"github.com/matrixorigin/listagg/pkg/common/moerr"
	"github.com/matrixorigin/listagg/pkg/common/mpool"
	"github.com/matrixorigin/listagg/pkg/container/types"
	"github.com/matrixorigin/listagg/pkg/container/vector"
)

// AmortSeries is a series container reused for every row of an iteration.
// Each advance re-points its single chunk at new data without allocating,
// so anything read through it is valid only until the next advance.  Use
// Clone to keep a row.
type AmortSeries struct {
	inner *Series
	vec   *vector.Vector
}

// NewAmortSeries returns an empty container for values of type typ.
func NewAmortSeries(name string, typ types.Type) *AmortSeries {
	vec := vector.NewVec(typ)
	return &AmortSeries{
		inner: New(name, typ, vec),
		vec:   vec,
	}
}

// Series returns the shared container.  Callers must not free it or keep
// it past the next advance.
func (a *AmortSeries) Series() *Series {
	return a.inner
}

func (a *AmortSeries) Len() int {
	return a.vec.Length()
}

func (a *AmortSeries) Rename(name string) {
	a.inner.name = name
}

// Swap makes the container show rows [start, end) of src.
func (a *AmortSeries) Swap(src *vector.Vector, start, end int) {
	if invariants.Enabled {
		if len(a.inner.chunks) != 1 || a.inner.chunks[0] != a.vec {
			panic(moerr.NewInternalErrorNoCtx("amortized series container was modified by its reader"))
		}
	}
	src.WindowInto(a.vec, start, end)
}

// Clone copies the current rows into a series that owns its buffers.
func (a *AmortSeries) Clone(mp *mpool.MPool) (*Series, error) {
	vec, err := a.vec.Dup(mp)
	if err != nil {
		return nil, err
	}
	return New(a.inner.name, a.inner.typ, vec), nil
}
