// Copyright 2021 Matrix Origin
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

package types

import (
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
)

type T uint8

const (
	// T_any is the type of a column whose every value is NULL.
	T_any T = 0

	// bool family
	T_bool T = 10

	// numeric/integer family
	T_int8   T = 20
	T_int16  T = 21
	T_int32  T = 22
	T_int64  T = 23
	T_uint8  T = 25
	T_uint16 T = 26
	T_uint32 T = 27
	T_uint64 T = 28

	// numeric/float family
	T_float32 T = 30
	T_float64 T = 31

	// date family
	T_date T = 50

	// string family
	T_char    T = 60
	T_varchar T = 61
	T_text    T = 62
	T_binary  T = 63
	T_blob    T = 64

	// nested family
	T_list   T = 70
	T_array  T = 71 // fixed size list
	T_struct T = 72

	// T_object holds host values the type system cannot express.
	T_object T = 80
)

// Category is the storage category of a type.  List aggregation and the
// vector kernels dispatch once on it instead of on every oid.
type Category uint8

const (
	CategoryNull Category = iota
	CategoryFixed
	CategoryVarOrNested
	CategoryOpaque
	CategoryStruct
)

func (c Category) String() string {
	switch c {
	case CategoryNull:
		return "null"
	case CategoryFixed:
		return "fixed"
	case CategoryVarOrNested:
		return "var-or-nested"
	case CategoryOpaque:
		return "opaque"
	case CategoryStruct:
		return "struct"
	}
	return fmt.Sprintf("unknown category %d", uint8(c))
}

// Type is the logical type of a column.
type Type struct {
	Oid T

	// Size is the byte size of one element in the flat buffer, 0 if the
	// type has no flat buffer (null, struct, array).
	Size int32

	// Width is the number of elements of one T_array value.
	Width int32

	// Children is the element type of list/array or the field types of
	// a struct.
	Children []Type

	// Names are the struct field names, aligned with Children.
	Names []string

	// Object describes the element of a T_object column.
	Object *ObjectDescriptor
}

// Number is every element type handled by the fixed width kernels.
type Number interface {
	constraints.Integer | constraints.Float
}

// FixedSizeT is every element type that lives in a flat buffer.
type FixedSizeT interface {
	Number | ~bool | Varlena
}

type Date int32

func (oid T) ToType() Type {
	return Type{Oid: oid, Size: int32(oid.TypeLen())}
}

// TypeLen returns the byte size of one element in the flat buffer.
func (oid T) TypeLen() int {
	switch oid {
	case T_bool, T_int8, T_uint8:
		return 1
	case T_int16, T_uint16:
		return 2
	case T_int32, T_uint32, T_float32, T_date:
		return 4
	case T_int64, T_uint64, T_float64:
		return 8
	case T_char, T_varchar, T_text, T_binary, T_blob:
		return VarlenaSize
	case T_list:
		// offsets
		return 8
	}
	return 0
}

func (oid T) FixedLength() int {
	switch oid {
	case T_char, T_varchar, T_text, T_binary, T_blob, T_list, T_array, T_struct, T_object, T_any:
		return -1
	}
	return oid.TypeLen()
}

func (oid T) String() string {
	switch oid {
	case T_any:
		return "NULL"
	case T_bool:
		return "BOOL"
	case T_int8:
		return "TINYINT"
	case T_int16:
		return "SMALLINT"
	case T_int32:
		return "INT"
	case T_int64:
		return "BIGINT"
	case T_uint8:
		return "TINYINT UNSIGNED"
	case T_uint16:
		return "SMALLINT UNSIGNED"
	case T_uint32:
		return "INT UNSIGNED"
	case T_uint64:
		return "BIGINT UNSIGNED"
	case T_float32:
		return "FLOAT"
	case T_float64:
		return "DOUBLE"
	case T_date:
		return "DATE"
	case T_char:
		return "CHAR"
	case T_varchar:
		return "VARCHAR"
	case T_text:
		return "TEXT"
	case T_binary:
		return "BINARY"
	case T_blob:
		return "BLOB"
	case T_list:
		return "LIST"
	case T_array:
		return "ARRAY"
	case T_struct:
		return "STRUCT"
	case T_object:
		return "OBJECT"
	}
	return fmt.Sprintf("unexpected type: %d", uint8(oid))
}

func (oid T) IsInteger() bool {
	switch oid {
	case T_int8, T_int16, T_int32, T_int64, T_uint8, T_uint16, T_uint32, T_uint64:
		return true
	}
	return false
}

func (oid T) IsFloat() bool {
	return oid == T_float32 || oid == T_float64
}

func (oid T) IsMySQLString() bool {
	switch oid {
	case T_char, T_varchar, T_text, T_binary, T_blob:
		return true
	}
	return false
}

func New(oid T, width int32) Type {
	return Type{Oid: oid, Size: int32(oid.TypeLen()), Width: width}
}

func NewListType(elem Type) Type {
	return Type{Oid: T_list, Size: 8, Children: []Type{elem}}
}

func NewArrayType(elem Type, width int32) Type {
	return Type{Oid: T_array, Width: width, Children: []Type{elem}}
}

func NewStructType(names []string, fields []Type) Type {
	if len(names) != len(fields) {
		panic(fmt.Sprintf("struct type has %d names and %d fields", len(names), len(fields)))
	}
	return Type{Oid: T_struct, Names: names, Children: fields}
}

func NewObjectType(desc *ObjectDescriptor) Type {
	return Type{Oid: T_object, Object: desc}
}

func (t Type) TypeSize() int {
	return int(t.Size)
}

func (t Type) IsFixedLen() bool {
	return t.Oid.FixedLength() >= 0
}

func (t Type) IsVarlen() bool {
	return t.Oid.IsMySQLString()
}

// Elem returns the element type of a list or array.
func (t Type) Elem() Type {
	if (t.Oid != T_list && t.Oid != T_array) || len(t.Children) != 1 {
		panic(fmt.Sprintf("type %s has no element type", t))
	}
	return t.Children[0]
}

func (t Type) Category() Category {
	switch {
	case t.Oid == T_any:
		return CategoryNull
	case t.Oid == T_object:
		return CategoryOpaque
	case t.Oid == T_struct:
		return CategoryStruct
	case t.Oid == T_bool, t.IsVarlen(), t.Oid == T_list, t.Oid == T_array:
		return CategoryVarOrNested
	case t.IsFixedLen():
		return CategoryFixed
	}
	panic(fmt.Sprintf("unexpected type %s", t))
}

// Eq compares two types, including nested children and struct names.
func (t Type) Eq(o Type) bool {
	if t.Oid != o.Oid || t.Width != o.Width || len(t.Children) != len(o.Children) || len(t.Names) != len(o.Names) {
		return false
	}
	for i := range t.Children {
		if !t.Children[i].Eq(o.Children[i]) {
			return false
		}
	}
	for i := range t.Names {
		if t.Names[i] != o.Names[i] {
			return false
		}
	}
	if t.Oid == T_object {
		return t.Object.Eq(o.Object)
	}
	return true
}

func (t Type) String() string {
	switch t.Oid {
	case T_list:
		return fmt.Sprintf("LIST<%s>", t.Elem())
	case T_array:
		return fmt.Sprintf("ARRAY<%s, %d>", t.Elem(), t.Width)
	case T_struct:
		fields := make([]string, len(t.Children))
		for i := range t.Children {
			fields[i] = t.Names[i] + ": " + t.Children[i].String()
		}
		return "STRUCT<" + strings.Join(fields, ", ") + ">"
	case T_object:
		if t.Object != nil {
			return "OBJECT<" + t.Object.Name + ">"
		}
	}
	return t.Oid.String()
}
