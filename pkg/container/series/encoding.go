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
	"encoding/binary"
	"io"

	"github.com/matrixorigin/listagg/pkg/common/compress"
	"github.com/matrixorigin/listagg/pkg/common/moerr"
	"github.com/matrixorigin/listagg/pkg/common/mpool"
	"github.com/matrixorigin/listagg/pkg/container/types"
	"github.com/matrixorigin/listagg/pkg/container/vector"
)

const (
	flagFastExplode = 1 << iota
)

// Encode writes the series to w, every chunk compressed with algo.
//
// Layout: name, type, flags byte, chunk count (uint32), then per chunk
// the algorithm byte, the raw size (uint32) and the block.  A series
// without chunks keeps its type through the header.
func (s *Series) Encode(w io.Writer, algo compress.T) error {
	if err := types.WriteSizeBytes([]byte(s.name), w); err != nil {
		return err
	}
	if err := types.EncodeType(s.typ, w); err != nil {
		return err
	}
	var hdr [5]byte
	if s.fastExplode {
		hdr[0] |= flagFastExplode
	}
	binary.LittleEndian.PutUint32(hdr[1:], uint32(len(s.chunks)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	for _, c := range s.chunks {
		raw, err := c.MarshalBinary()
		if err != nil {
			return err
		}
		block, used, err := compress.Compress(raw, algo)
		if err != nil {
			return err
		}
		var chdr [5]byte
		chdr[0] = byte(used)
		binary.LittleEndian.PutUint32(chdr[1:], uint32(len(raw)))
		if _, err := w.Write(chdr[:]); err != nil {
			return err
		}
		if err := types.WriteSizeBytes(block, w); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads a series written by Encode.  Its chunks are allocated
// from mp.
func Decode(r io.Reader, mp *mpool.MPool) (*Series, error) {
	_, name, err := types.ReadSizeBytes(r)
	if err != nil {
		return nil, eof(err)
	}
	typ, err := types.DecodeType(r)
	if err != nil {
		return nil, eof(err)
	}
	var hdr [5]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, eof(err)
	}
	n := int(binary.LittleEndian.Uint32(hdr[1:]))

	s := &Series{name: string(name), typ: typ, fastExplode: hdr[0]&flagFastExplode != 0}
	for i := 0; i < n; i++ {
		vec, err := decodeChunk(r, mp)
		if err != nil {
			s.Free(mp)
			return nil, err
		}
		if !s.typ.Eq(*vec.GetType()) {
			vec.Free(mp)
			s.Free(mp)
			return nil, moerr.NewInvalidInputNoCtxf("chunk %d of type %s in series of %s", i, vec.GetType(), s.typ)
		}
		s.chunks = append(s.chunks, vec)
	}
	return s, nil
}

func decodeChunk(r io.Reader, mp *mpool.MPool) (*vector.Vector, error) {
	var chdr [5]byte
	if _, err := io.ReadFull(r, chdr[:]); err != nil {
		return nil, eof(err)
	}
	_, block, err := types.ReadSizeBytes(r)
	if err != nil {
		return nil, eof(err)
	}
	raw, err := compress.Decompress(block, int(binary.LittleEndian.Uint32(chdr[1:])), compress.T(chdr[0]))
	if err != nil {
		return nil, err
	}
	return vector.UnmarshalBinaryWithCopy(raw, mp)
}

func eof(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return moerr.NewUnexpectedEOFNoCtx("series")
	}
	return err
}
