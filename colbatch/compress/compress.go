// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package compress contains the block codecs used to compress the batches
// of a colbatch stream, along with a registry keyed by the codec tag
// recorded in each block.
package compress

import (
	"bytes"
	"compress/flate"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"golang.org/x/xerrors"
)

// Compression identifies a block codec. The numeric values are the codec
// tags written in front of every block and must remain stable.
type Compression uint8

const (
	Uncompressed Compression = iota
	LZ4Frame
	Zstd
	Snappy
	Brotli
	Gzip
)

var compressionNames = [...]string{
	Uncompressed: "UNCOMPRESSED",
	LZ4Frame:     "LZ4_FRAME",
	Zstd:         "ZSTD",
	Snappy:       "SNAPPY",
	Brotli:       "BROTLI",
	Gzip:         "GZIP",
}

func (c Compression) String() string {
	if int(c) < len(compressionNames) {
		return compressionNames[c]
	}
	return fmt.Sprintf("Compression(%d)", uint8(c))
}

// ParseCompression returns the codec named by s, ignoring case. Besides the
// names returned by String, "none" and "lz4" are accepted.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToUpper(s) {
	case "UNCOMPRESSED", "NONE":
		return Uncompressed, nil
	case "LZ4_FRAME", "LZ4":
		return LZ4Frame, nil
	case "ZSTD":
		return Zstd, nil
	case "SNAPPY":
		return Snappy, nil
	case "BROTLI":
		return Brotli, nil
	case "GZIP":
		return Gzip, nil
	}
	return Uncompressed, xerrors.Errorf("%w: %q", ErrUnknownCodec, s)
}

// DefaultCompressionLevel asks a codec for its own default level. It
// matches flate.DefaultCompression, which most codec libraries share.
const DefaultCompressionLevel = flate.DefaultCompression

var (
	// ErrCorruptData is returned when a block does not decode to the
	// length recorded in its header, or the codec reports a checksum or
	// framing error.
	ErrCorruptData = errors.New("corrupt data")
	// ErrUnknownCodec is returned for codec tags with no registered codec.
	ErrUnknownCodec = errors.New("unknown codec")
)

// Codec compresses and decompresses one block format. The streaming
// constructors and the whole-buffer Encode and Decode produce and accept the
// same framed bytes.
type Codec interface {
	NewReader(io.Reader) (io.ReadCloser, error)
	NewWriter(io.Writer) io.WriteCloser
	NewWriterLevel(io.Writer, int) (io.WriteCloser, error)
	// Encode compresses src, reusing dst's capacity when it is large
	// enough. dst and src must not overlap.
	Encode(dst, src []byte) ([]byte, error)
	EncodeLevel(dst, src []byte, level int) ([]byte, error)
	// CompressBound is the worst-case encoded size of n input bytes, used
	// to size dst.
	CompressBound(n int64) int64
	// Decode inflates a whole block, reusing dst's capacity.
	Decode(dst, src []byte) ([]byte, error)
}

var codecs = map[Compression]Codec{}

type nocodec struct{}

func (nocodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	ret, ok := r.(io.ReadCloser)
	if !ok {
		return io.NopCloser(r), nil
	}
	return ret, nil
}

func (nocodec) Decode(dst, src []byte) ([]byte, error) {
	return append(dst[:0], src...), nil
}

type writerNopCloser struct {
	io.Writer
}

func (writerNopCloser) Close() error {
	return nil
}

func (nocodec) Encode(dst, src []byte) ([]byte, error) {
	return append(dst[:0], src...), nil
}

func (nocodec) EncodeLevel(dst, src []byte, _ int) ([]byte, error) {
	return append(dst[:0], src...), nil
}

func (nocodec) NewWriter(w io.Writer) io.WriteCloser {
	ret, ok := w.(io.WriteCloser)
	if !ok {
		return writerNopCloser{w}
	}
	return ret
}

func (n nocodec) NewWriterLevel(w io.Writer, _ int) (io.WriteCloser, error) {
	return n.NewWriter(w), nil
}

func (nocodec) CompressBound(len int64) int64 { return len }

func init() {
	codecs[Uncompressed] = nocodec{}
}

// GetCodec looks up the registered codec for typ.
func GetCodec(typ Compression) (Codec, error) {
	ret, ok := codecs[typ]
	if !ok {
		return nil, xerrors.Errorf("%w: %s", ErrUnknownCodec, typ)
	}
	return ret, nil
}

// encodeStream compresses src through w into dst's storage.
func encodeStream(dst, src []byte, newWriter func(io.Writer) (io.WriteCloser, error)) ([]byte, error) {
	buf := bytes.NewBuffer(dst[:0])
	w, err := newWriter(buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeStream decompresses src using codec's reader into dst's storage.
func decodeStream(c Codec, dst, src []byte) ([]byte, error) {
	rdr, err := c.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer rdr.Close()

	buf := bytes.NewBuffer(dst[:0])
	if _, err := buf.ReadFrom(rdr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CompressedBlock is a codec-tagged unit of encoded bytes.
type CompressedBlock struct {
	Codec           Compression
	UncompressedLen uint64
	Payload         []byte
}

// Compress encodes raw with codec c at the codec's default level. The
// Uncompressed codec always succeeds and aliases raw as the payload.
func Compress(raw []byte, c Compression) (CompressedBlock, error) {
	return CompressLevel(raw, c, DefaultCompressionLevel)
}

// CompressLevel is like Compress, with an explicit codec level.
func CompressLevel(raw []byte, c Compression, level int) (CompressedBlock, error) {
	blk := CompressedBlock{Codec: c, UncompressedLen: uint64(len(raw))}
	if c == Uncompressed {
		blk.Payload = raw
		return blk, nil
	}

	codec, err := GetCodec(c)
	if err != nil {
		return blk, err
	}

	dst := make([]byte, 0, codec.CompressBound(int64(len(raw))))
	if level == DefaultCompressionLevel {
		blk.Payload, err = codec.Encode(dst, raw)
	} else {
		blk.Payload, err = codec.EncodeLevel(dst, raw, level)
	}
	if err != nil {
		return blk, xerrors.Errorf("colbatch/compress: %s: %w", c, err)
	}
	return blk, nil
}

// maxPrealloc bounds the output buffer allocated up front from a block's
// declared length; larger blocks grow as they decode.
const maxPrealloc = 16 << 20

// Decompress decodes blk, checking that it yields exactly UncompressedLen
// bytes. Decoding stops one byte past the declared length. Every decoding
// failure is reported as ErrCorruptData. The Uncompressed codec returns the
// payload itself.
func Decompress(blk CompressedBlock) ([]byte, error) {
	if blk.Codec == Uncompressed {
		if uint64(len(blk.Payload)) != blk.UncompressedLen {
			return nil, xerrors.Errorf("%w: uncompressed block of %d bytes declares %d",
				ErrCorruptData, len(blk.Payload), blk.UncompressedLen)
		}
		return blk.Payload, nil
	}

	codec, err := GetCodec(blk.Codec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptData, err)
	}
	if blk.UncompressedLen >= math.MaxInt64 {
		return nil, xerrors.Errorf("%w: declared length %d", ErrCorruptData, blk.UncompressedLen)
	}

	rdr, err := codec.NewReader(bytes.NewReader(blk.Payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptData, blk.Codec, err)
	}
	defer rdr.Close()

	prealloc := blk.UncompressedLen
	if prealloc > maxPrealloc {
		prealloc = maxPrealloc
	}
	out := bytes.NewBuffer(make([]byte, 0, prealloc))
	n, err := out.ReadFrom(io.LimitReader(rdr, int64(blk.UncompressedLen)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptData, blk.Codec, err)
	}
	if uint64(n) != blk.UncompressedLen {
		return nil, xerrors.Errorf("%w: %s block decoded %d bytes, declares %d",
			ErrCorruptData, blk.Codec, n, blk.UncompressedLen)
	}
	return out.Bytes(), nil
}
