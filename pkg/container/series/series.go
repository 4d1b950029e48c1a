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
	"fmt"
	"strings"

	"github.com/matrixorigin/listagg/pkg/common/moerr"
	"github.com/matrixorigin/listagg/pkg/common/mpool"
	"github.com/matrixorigin/listagg/pkg/container/types"
	"github.com/matrixorigin/listagg/pkg/container/vector"
)

// Series is a named column made of one or more chunks of the same type.
type Series struct {
	name   string
	typ    types.Type
	chunks []*vector.Vector

	// fastExplode is only meaningful for list series: it is set when no
	// row is an empty or null list.
	fastExplode bool
}

// New returns a series over chunks, which must all be of type typ.  The
// series takes ownership of the chunks.
func New(name string, typ types.Type, chunks ...*vector.Vector) *Series {
	return &Series{name: name, typ: typ, chunks: chunks}
}

// FromVector wraps a single vector.
func FromVector(name string, vec *vector.Vector) *Series {
	return New(name, *vec.GetType(), vec)
}

func (s *Series) Name() string {
	return s.name
}

func (s *Series) Rename(name string) {
	s.name = name
}

func (s *Series) Type() types.Type {
	return s.typ
}

func (s *Series) Chunks() []*vector.Vector {
	return s.chunks
}

func (s *Series) NumChunks() int {
	return len(s.chunks)
}

func (s *Series) Len() int {
	n := 0
	for _, c := range s.chunks {
		n += c.Length()
	}
	return n
}

func (s *Series) NullCount() int {
	n := 0
	for _, c := range s.chunks {
		n += c.NullCount()
	}
	return n
}

func (s *Series) FastExplode() bool {
	return s.fastExplode
}

// SetFastExplode records that no row of a list series is empty or null.
func (s *Series) SetFastExplode(v bool) {
	s.fastExplode = v && s.typ.Oid == types.T_list
}

// locate returns the chunk holding row i and the position inside it.
func (s *Series) locate(i int) (*vector.Vector, int) {
	for _, c := range s.chunks {
		if i < c.Length() {
			return c, i
		}
		i -= c.Length()
	}
	panic(moerr.NewInternalErrorNoCtxf("row %d out of series %s of length %d", i, s.name, s.Len()))
}

func (s *Series) IsNull(i int) bool {
	c, j := s.locate(i)
	return c.IsNull(uint64(j))
}

// GetAny returns row i boxed, see vector.GetAny.
func (s *Series) GetAny(i int) any {
	c, j := s.locate(i)
	return c.GetAny(j)
}

// Values returns every row boxed.
func (s *Series) Values() []any {
	vals := make([]any, 0, s.Len())
	for _, c := range s.chunks {
		for i := 0; i < c.Length(); i++ {
			vals = append(vals, c.GetAny(i))
		}
	}
	return vals
}

// Rechunk returns a series of a single chunk.  A series that already has
// one chunk is returned as is, otherwise the chunks are copied into a
// new vector and the new series owns it.
func (s *Series) Rechunk(mp *mpool.MPool) (*Series, error) {
	if len(s.chunks) == 1 {
		return s, nil
	}
	vec, err := vector.Concat(s.typ, s.chunks, mp)
	if err != nil {
		return nil, err
	}
	ret := New(s.name, s.typ, vec)
	ret.fastExplode = s.fastExplode
	return ret, nil
}

// ListOffsets returns the offsets of a single chunk list series.
func (s *Series) ListOffsets() ([]int64, error) {
	vec, err := s.singleList()
	if err != nil {
		return nil, err
	}
	return vec.ListOffsets(), nil
}

// ListValues returns the child vector holding the elements of a single
// chunk list series.
func (s *Series) ListValues() (*vector.Vector, error) {
	vec, err := s.singleList()
	if err != nil {
		return nil, err
	}
	return vec.GetChild(0), nil
}

func (s *Series) singleList() (*vector.Vector, error) {
	if s.typ.Oid != types.T_list {
		return nil, moerr.NewInvalidInputNoCtxf("series %s of type %s is not a list", s.name, s.typ)
	}
	if len(s.chunks) != 1 {
		return nil, moerr.NewInvalidInputNoCtxf("list series %s has %d chunks, rechunk first", s.name, len(s.chunks))
	}
	return s.chunks[0], nil
}

// Free releases the chunks.  Windows among them are left alone.
func (s *Series) Free(mp *mpool.MPool) {
	for _, c := range s.chunks {
		c.Free(mp)
	}
	s.chunks = nil
}

func (s *Series) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s [", s.name, s.typ)
	for i, val := range s.Values() {
		if i > 0 {
			b.WriteString(", ")
		}
		if val == nil {
			b.WriteString("null")
		} else {
			fmt.Fprintf(&b, "%v", val)
		}
	}
	b.WriteString("]")
	return b.String()
}
