// Copyright 2022 Matrix Origin
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
	"time"
	"unsafe"
)

const VarlenaSize = 8

// Varlena locates one variable length value inside the area of its
// vector.
type Varlena [2]uint32

func NewVarlena(offset, length int) Varlena {
	return Varlena{uint32(offset), uint32(length)}
}

func (v Varlena) OffsetLen() (int, int) {
	return int(v[0]), int(v[1])
}

func (v Varlena) Len() int {
	return int(v[1])
}

func (v Varlena) GetByteSlice(area []byte) []byte {
	off, l := v.OffsetLen()
	return area[off : off+l]
}

func (v Varlena) GetString(area []byte) string {
	bs := v.GetByteSlice(area)
	if len(bs) == 0 {
		return ""
	}
	return unsafe.String(&bs[0], len(bs))
}

var unixEpoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

func DateFromTime(t time.Time) Date {
	return Date(t.UTC().Sub(unixEpoch) / (24 * time.Hour))
}

func (d Date) ToTime() time.Time {
	return unixEpoch.AddDate(0, 0, int(d))
}

func (d Date) String() string {
	return d.ToTime().Format("2006-01-02")
}
