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

package compress

import (
	"github.com/matrixorigin/listagg/pkg/common/moerr"
	"github.com/pierrec/lz4"
)

type T uint8

const (
	None T = iota
	Lz4
)

func (t T) String() string {
	switch t {
	case None:
		return "none"
	case Lz4:
		return "lz4"
	}
	return "unknown"
}

// hashTableSize is the number of entries of the lz4 match table.
const hashTableSize = 1 << 16

// Compress compresses src with algorithm typ.  The returned algorithm is
// None when the data does not compress, the returned bytes are then src
// itself.
func Compress(src []byte, typ T) ([]byte, T, error) {
	switch typ {
	case None:
		return src, None, nil
	case Lz4:
		if len(src) == 0 {
			return src, None, nil
		}
		dst := make([]byte, lz4.CompressBlockBound(len(src)))
		n, err := lz4.CompressBlock(src, dst, make([]int, hashTableSize))
		if err != nil {
			return nil, None, moerr.NewInternalErrorNoCtxf("lz4 compress: %v", err)
		}
		if n == 0 || n >= len(src) {
			return src, None, nil
		}
		return dst[:n], Lz4, nil
	}
	return nil, None, moerr.NewNotSupportedNoCtxf("compress algorithm %d", typ)
}

// Decompress restores n bytes from src compressed with typ.
func Decompress(src []byte, n int, typ T) ([]byte, error) {
	switch typ {
	case None:
		if len(src) != n {
			return nil, moerr.NewInvalidInputNoCtxf("uncompressed block of %d bytes, want %d", len(src), n)
		}
		return src, nil
	case Lz4:
		dst := make([]byte, n)
		m, err := lz4.UncompressBlock(src, dst)
		if err != nil {
			return nil, moerr.NewInvalidInputNoCtxf("lz4 decompress: %v", err)
		}
		if m != n {
			return nil, moerr.NewInvalidInputNoCtxf("lz4 block of %d bytes, want %d", m, n)
		}
		return dst, nil
	}
	return nil, moerr.NewNotSupportedNoCtxf("compress algorithm %d", typ)
}
