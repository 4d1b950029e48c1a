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
	"github.com/matrixorigin/listagg/pkg/common/mpool"
	"github.com/matrixorigin/listagg/pkg/container/vector"
)

// Explode turns every element of a list series into a row, the inverse of
// list aggregation.  An empty list gives no row and a null list gives a
// single null row.  When the fast explode flag is set there is neither and
// the elements are copied in one piece.
func (s *Series) Explode(mp *mpool.MPool) (*Series, error) {
	one, err := s.Rechunk(mp)
	if err != nil {
		return nil, err
	}
	if one != s {
		defer one.Free(mp)
	}
	vec, err := one.singleList()
	if err != nil {
		return nil, err
	}
	offs := vec.ListOffsets()
	values := vec.GetChild(0)
	n := vec.Length()

	out := vector.NewVec(s.typ.Elem())
	if s.fastExplode {
		err = out.UnionRange(values, int(offs[0]), int(offs[n]-offs[0]), mp)
	} else {
		err = explodeSlow(out, vec, offs, values, mp)
	}
	if err != nil {
		out.Free(mp)
		return nil, err
	}
	return New(s.name, s.typ.Elem(), out), nil
}

func explodeSlow(out, vec *vector.Vector, offs []int64, values *vector.Vector, mp *mpool.MPool) error {
	for i := 0; i < vec.Length(); i++ {
		start, end := int(offs[i]), int(offs[i+1])
		if vec.IsNull(uint64(i)) {
			if err := vector.AppendNull(out, mp); err != nil {
				return err
			}
			continue
		}
		if err := out.UnionRange(values, start, end-start, mp); err != nil {
			return err
		}
	}
	return nil
}
