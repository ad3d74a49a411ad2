// Copyright (C) 2026 zappend-go contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package codec provides a unified interface wrapping third-party
// compression libraries, used by VariableEncoding's compressor/filters
// codec descriptors.
package codec

import (
	"fmt"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
)

// Compressor describes the interface a chunk writer needs a compression
// algorithm to implement.
type Compressor interface {
	// Name is the name of the compression algorithm.
	Name() string
	// Compress appends the compressed contents of src to dst and returns
	// the result.
	Compress(src, dst []byte) []byte
}

// Decompressor is the interface a chunk reader uses to decompress blocks.
type Decompressor interface {
	Name() string
	// Decompress decompresses src into dst, growing dst as necessary, and
	// returns the decompressed result.
	Decompress(src, dst []byte) ([]byte, error)
}

// Descriptor mirrors the on-disk codec descriptor used by
// VariableEncoding.Compressor / VariableEncoding.Filters: a codec name plus
// free-form parameters.
type Descriptor struct {
	Name   string         `json:"id"`
	Params map[string]any `json:"-"`
}

type noneCodec struct{}

func (noneCodec) Name() string                        { return "none" }
func (noneCodec) Compress(src, dst []byte) []byte     { return append(dst, src...) }
func (noneCodec) Decompress(src, dst []byte) ([]byte, error) { return append(dst, src...), nil }

type zstdCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newZstd() *zstdCodec {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		panic(err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}
	return &zstdCodec{enc: enc, dec: dec}
}

func (z *zstdCodec) Name() string { return "zstd" }

func (z *zstdCodec) Compress(src, dst []byte) []byte {
	return z.enc.EncodeAll(src, dst)
}

func (z *zstdCodec) Decompress(src, dst []byte) ([]byte, error) {
	return z.dec.DecodeAll(src, dst)
}

type s2Codec struct{}

func (s2Codec) Name() string { return "s2" }

func (s2Codec) Compress(src, dst []byte) []byte {
	return append(dst, s2.Encode(nil, src)...)
}

func (s2Codec) Decompress(src, dst []byte) ([]byte, error) {
	out, err := s2.Decode(nil, src)
	if err != nil {
		return nil, err
	}
	return append(dst, out...), nil
}

// ErrUnknownCodec is returned by Lookup for an unrecognized codec name.
type ErrUnknownCodec struct{ Name string }

func (e *ErrUnknownCodec) Error() string {
	return fmt.Sprintf("codec: unknown compressor/filter %q", e.Name)
}

// Lookup returns the Compressor+Decompressor implementation for a codec
// name ("none", "zstd", "s2"). An empty name is treated as "none".
func Lookup(name string) (interface {
	Compressor
	Decompressor
}, error) {
	switch name {
	case "", "none":
		return noneCodec{}, nil
	case "zstd":
		return newZstd(), nil
	case "s2":
		return s2Codec{}, nil
	}
	return nil, &ErrUnknownCodec{Name: name}
}
