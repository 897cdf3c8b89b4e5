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

	"github.com/golang/snappy"
)

// snappyCodec uses the snappy framing format, whose chunks carry a
// checksum of their uncompressed data.
type snappyCodec struct{}

func (c snappyCodec) Encode(dst, src []byte) ([]byte, error) {
	return encodeStream(dst, src, func(w io.Writer) (io.WriteCloser, error) {
		return c.NewWriter(w), nil
	})
}

func (c snappyCodec) EncodeLevel(dst, src []byte, _ int) ([]byte, error) {
	return c.Encode(dst, src)
}

func (c snappyCodec) Decode(dst, src []byte) ([]byte, error) {
	return decodeStream(c, dst, src)
}

func (snappyCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(snappy.NewReader(r)), nil
}

// CompressBound adds the stream identifier and an 8 byte chunk header per
// 64KB chunk to the block bound.
func (snappyCodec) CompressBound(len int64) int64 {
	const chunk = 1 << 16
	return int64(snappy.MaxEncodedLen(int(len))) + 10 + 8*(len/chunk+1)
}

func (snappyCodec) NewWriter(w io.Writer) io.WriteCloser {
	return snappy.NewBufferedWriter(w)
}

func (s snappyCodec) NewWriterLevel(w io.Writer, _ int) (io.WriteCloser, error) {
	return s.NewWriter(w), nil
}

func init() {
	codecs[Snappy] = snappyCodec{}
}
