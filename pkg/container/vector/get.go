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

package vector

import (
	"github.com/matrixorigin/listagg/pkg/container/types"
)

// GetAny returns row i boxed.  Null rows are nil, strings come back as
// string, binaries as []byte and nested rows as []any.
func (v *Vector) GetAny(i int) any {
	if v.IsNull(uint64(i)) {
		return nil
	}
	switch v.typ.Oid {
	case types.T_bool:
		return GetFixedAt[bool](v, i)
	case types.T_int8:
		return GetFixedAt[int8](v, i)
	case types.T_int16:
		return GetFixedAt[int16](v, i)
	case types.T_int32:
		return GetFixedAt[int32](v, i)
	case types.T_int64:
		return GetFixedAt[int64](v, i)
	case types.T_uint8:
		return GetFixedAt[uint8](v, i)
	case types.T_uint16:
		return GetFixedAt[uint16](v, i)
	case types.T_uint32:
		return GetFixedAt[uint32](v, i)
	case types.T_uint64:
		return GetFixedAt[uint64](v, i)
	case types.T_float32:
		return GetFixedAt[float32](v, i)
	case types.T_float64:
		return GetFixedAt[float64](v, i)
	case types.T_date:
		return GetFixedAt[types.Date](v, i)
	case types.T_char, types.T_varchar, types.T_text:
		return v.GetStringAt(i)
	case types.T_binary, types.T_blob:
		return v.GetBytesAt(i)
	case types.T_list:
		offs := v.ListOffsets()
		return rowsAny(v.children[0], int(offs[i]), int(offs[i+1]))
	case types.T_array:
		w := int(v.typ.Width)
		return rowsAny(v.children[0], i*w, (i+1)*w)
	case types.T_struct:
		fields := make([]any, len(v.children))
		for j, child := range v.children {
			fields[j] = child.GetAny(i)
		}
		return fields
	case types.T_object:
		return v.objs[i]
	}
	return nil
}

func rowsAny(v *Vector, start, end int) []any {
	vals := make([]any, end-start)
	for i := range vals {
		vals[i] = v.GetAny(start + i)
	}
	return vals
}

// ListLen returns the number of elements of list row i.
func (v *Vector) ListLen(i int) int {
	offs := v.ListOffsets()
	return int(offs[i+1] - offs[i])
}

// ListValuesAt returns a window over the elements of list row i.
func (v *Vector) ListValuesAt(i int) *Vector {
	offs := v.ListOffsets()
	return v.children[0].Window(int(offs[i]), int(offs[i+1]))
}
