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

package types

import "reflect"

// ObjectDescriptor describes the element of an OBJECT column: values that
// are stored boxed and never converted to a number or a string.
//
// The descriptor is referenced by the Type of every vector built from it,
// so it is reachable for as long as any of those vectors is.  A vector of
// type T_object always carries a non-nil descriptor, this is what makes
// recovering the typed values from an aggregated list safe.
type ObjectDescriptor struct {
	Name   string
	GoType reflect.Type
}

// NewObjectDescriptor returns the descriptor of host values of type V.
func NewObjectDescriptor[V any](name string) *ObjectDescriptor {
	return &ObjectDescriptor{
		Name:   name,
		GoType: reflect.TypeOf((*V)(nil)).Elem(),
	}
}

func (d *ObjectDescriptor) Eq(o *ObjectDescriptor) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.Name == o.Name && d.GoType == o.GoType
}

// Accepts reports whether v may be stored in a column of this descriptor.
// nil is always accepted.
func (d *ObjectDescriptor) Accepts(v any) bool {
	if v == nil {
		return true
	}
	vt := reflect.TypeOf(v)
	if d.GoType.Kind() == reflect.Interface {
		return vt.Implements(d.GoType)
	}
	return vt == d.GoType
}
