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
	"time"

	"github.com/matrixorigin/listagg/pkg/common/moerr"
	"github.com/matrixorigin/listagg/pkg/common/mpool"
	"github.com/matrixorigin/listagg/pkg/container/types"
)

// Append appends one fixed width value to v.
func Append[T types.FixedSizeT](v *Vector, val T, isNull bool, mp *mpool.MPool) error {
	if mp == nil {
		panic(moerr.NewInternalErrorNoCtx("vector append does not have a mpool"))
	}
	if isNull {
		return AppendNull(v, mp)
	}
	if err := extend(v, 1, mp); err != nil {
		return err
	}
	types.DecodeSlice[T](v.data)[v.length] = val
	v.length++
	return nil
}

// AppendList appends a slice of fixed width values as one row.
func AppendList[T types.FixedSizeT](v *Vector, vals []T, mp *mpool.MPool) error {
	return appendValues(v, vals, func(child *Vector, val T) error {
		return Append(child, val, false, mp)
	}, mp)
}

// AppendStringList appends a slice of strings as one row of a list of
// var-len values.
func AppendStringList(v *Vector, vals []string, mp *mpool.MPool) error {
	return appendValues(v, vals, func(child *Vector, val string) error {
		return AppendBytes(child, []byte(val), false, mp)
	}, mp)
}

func appendValues[T any](v *Vector, vals []T, fn func(*Vector, T) error, mp *mpool.MPool) error {
	if v.typ.Oid != types.T_list {
		return moerr.NewInternalErrorNoCtxf("append list to vector of type %s", v.typ)
	}
	if err := extend(v, 1, mp); err != nil {
		return err
	}
	child := v.children[0]
	for _, val := range vals {
		if err := fn(child, val); err != nil {
			return err
		}
	}
	offs := v.rawOffsets()
	offs[v.length+1] = offs[v.length] + int64(len(vals))
	v.length++
	return nil
}

func AppendBytes(v *Vector, val []byte, isNull bool, mp *mpool.MPool) error {
	if mp == nil {
		panic(moerr.NewInternalErrorNoCtx("vector append does not have a mpool"))
	}
	if isNull {
		return AppendNull(v, mp)
	}
	if err := extend(v, 1, mp); err != nil {
		return err
	}
	va, err := v.appendArea(val, mp)
	if err != nil {
		return err
	}
	types.DecodeSlice[types.Varlena](v.data)[v.length] = va
	v.length++
	return nil
}

// AppendObject appends an opaque value.  The value must be of the Go type
// recorded in the descriptor of v.
func AppendObject(v *Vector, val any, isNull bool, mp *mpool.MPool) error {
	if isNull || val == nil {
		return AppendNull(v, mp)
	}
	if v.typ.Object == nil || !v.typ.Object.Accepts(val) {
		return moerr.NewInvalidInputNoCtxf("cannot append %T to %s", val, v.typ)
	}
	if err := extend(v, 1, mp); err != nil {
		return err
	}
	v.objs[v.length] = val
	v.length++
	return nil
}

// AppendNull appends a null row.  Nested vectors keep their children
// aligned: an array null takes Width null child rows and a struct null
// appends a null to every field.
func AppendNull(v *Vector, mp *mpool.MPool) error {
	switch v.typ.Oid {
	case types.T_any:
		v.length++
		return nil
	case types.T_array:
		for i := 0; i < int(v.typ.Width); i++ {
			if err := AppendNull(v.children[0], mp); err != nil {
				return err
			}
		}
	case types.T_struct:
		for _, child := range v.children {
			if err := AppendNull(child, mp); err != nil {
				return err
			}
		}
	case types.T_object:
		if err := extend(v, 1, mp); err != nil {
			return err
		}
		v.objs[v.length] = nil
	case types.T_list:
		if err := extend(v, 1, mp); err != nil {
			return err
		}
		offs := v.rawOffsets()
		offs[v.length+1] = offs[v.length]
	default:
		if err := extend(v, 1, mp); err != nil {
			return err
		}
		sz := v.typ.TypeSize()
		clear(v.data[v.length*sz : (v.length+1)*sz])
	}
	v.addNull(v.length)
	v.length++
	return nil
}

// AppendAny appends a boxed value, nil appends a null.  Lists, arrays and
// structs take []any, var-len columns take string or []byte.
func AppendAny(v *Vector, val any, mp *mpool.MPool) error {
	if val == nil {
		return AppendNull(v, mp)
	}
	switch v.typ.Oid {
	case types.T_bool:
		b, ok := val.(bool)
		if !ok {
			return badValue(v, val)
		}
		return Append(v, b, false, mp)
	case types.T_int8:
		return appendNumber[int8](v, val, mp)
	case types.T_int16:
		return appendNumber[int16](v, val, mp)
	case types.T_int32:
		return appendNumber[int32](v, val, mp)
	case types.T_int64:
		return appendNumber[int64](v, val, mp)
	case types.T_uint8:
		return appendNumber[uint8](v, val, mp)
	case types.T_uint16:
		return appendNumber[uint16](v, val, mp)
	case types.T_uint32:
		return appendNumber[uint32](v, val, mp)
	case types.T_uint64:
		return appendNumber[uint64](v, val, mp)
	case types.T_float32:
		return appendNumber[float32](v, val, mp)
	case types.T_float64:
		return appendNumber[float64](v, val, mp)
	case types.T_date:
		switch d := val.(type) {
		case types.Date:
			return Append(v, d, false, mp)
		case time.Time:
			return Append(v, types.DateFromTime(d), false, mp)
		}
		return badValue(v, val)
	case types.T_char, types.T_varchar, types.T_text, types.T_binary, types.T_blob:
		switch s := val.(type) {
		case string:
			return AppendBytes(v, []byte(s), false, mp)
		case []byte:
			return AppendBytes(v, s, false, mp)
		}
		return badValue(v, val)
	case types.T_list:
		vals, ok := val.([]any)
		if !ok {
			return badValue(v, val)
		}
		return appendValues(v, vals, func(child *Vector, elem any) error {
			return AppendAny(child, elem, mp)
		}, mp)
	case types.T_array:
		vals, ok := val.([]any)
		if !ok || len(vals) != int(v.typ.Width) {
			return badValue(v, val)
		}
		for _, elem := range vals {
			if err := AppendAny(v.children[0], elem, mp); err != nil {
				return err
			}
		}
	case types.T_struct:
		vals, ok := val.([]any)
		if !ok || len(vals) != len(v.children) {
			return badValue(v, val)
		}
		for i, elem := range vals {
			if err := AppendAny(v.children[i], elem, mp); err != nil {
				return err
			}
		}
	case types.T_object:
		return AppendObject(v, val, false, mp)
	default:
		return badValue(v, val)
	}
	v.length++
	return nil
}

func appendNumber[T types.Number](v *Vector, val any, mp *mpool.MPool) error {
	var n T
	switch x := val.(type) {
	case T:
		n = x
	case int:
		n = T(x)
	case int64:
		n = T(x)
	case float64:
		n = T(x)
	default:
		return badValue(v, val)
	}
	return Append(v, n, false, mp)
}

func badValue(v *Vector, val any) error {
	return moerr.NewInvalidInputNoCtxf("cannot append %v (%T) to %s", val, val, v.typ)
}
