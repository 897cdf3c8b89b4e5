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

package compress

import (
	"io"

	"github.com/pierrec/lz4/v4"
	"golang.org/x/xerrors"
)

// lz4Codec uses the LZ4 frame format with content checksums, so a
// corrupted payload is detected when the frame is read to its end.
type lz4Codec struct{}

func lz4Level(level int) (lz4.CompressionLevel, error) {
	switch {
	case level == DefaultCompressionLevel || level == 0:
		return lz4.Fast, nil
	case level >= 1 && level <= 9:
		return lz4.Level1 << (level - 1), nil
	}
	return lz4.Fast, xerrors.Errorf("codec: lz4: invalid compression level %d", level)
}

func (lz4Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

func (lz4Codec) NewWriter(w io.Writer) io.WriteCloser {
	out := lz4.NewWriter(w)
	// only fails on invalid options.
	_ = out.Apply(lz4.ChecksumOption(true))
	return out
}

func (lz4Codec) NewWriterLevel(w io.Writer, level int) (io.WriteCloser, error) {
	lvl, err := lz4Level(level)
	if err != nil {
		return nil, err
	}
	out := lz4.NewWriter(w)
	if err := out.Apply(lz4.ChecksumOption(true), lz4.CompressionLevelOption(lvl)); err != nil {
		return nil, xerrors.Errorf("codec: lz4: %w", err)
	}
	return out, nil
}

func (c lz4Codec) Encode(dst, src []byte) ([]byte, error) {
	return c.EncodeLevel(dst, src, DefaultCompressionLevel)
}

func (c lz4Codec) EncodeLevel(dst, src []byte, level int) ([]byte, error) {
	return encodeStream(dst, src, func(w io.Writer) (io.WriteCloser, error) {
		return c.NewWriterLevel(w, level)
	})
}

func (c lz4Codec) Decode(dst, src []byte) ([]byte, error) {
	return decodeStream(c, dst, src)
}

// CompressBound adds the frame header, the end mark, the content checksum
// and a 4 byte header per 4MB block to the block bound.
func (lz4Codec) CompressBound(len int64) int64 {
	const blockSize = 4 << 20
	blocks := len/blockSize + 1
	return int64(lz4.CompressBlockBound(int(len))) + 19 + 4 + 4 + 4*blocks
}

func init() {
	codecs[LZ4Frame] = lz4Codec{}
}
