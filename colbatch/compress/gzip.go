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

	"github.com/klauspost/compress/gzip"
	"golang.org/x/xerrors"
)

type gzipCodec struct{}

func (gzipCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	ret, err := gzip.NewReader(r)
	if err != nil {
		return nil, xerrors.Errorf("codec: gzip: %w", err)
	}
	return ret, nil
}

func (c gzipCodec) Decode(dst, src []byte) ([]byte, error) {
	return decodeStream(c, dst, src)
}

func (g gzipCodec) EncodeLevel(dst, src []byte, level int) ([]byte, error) {
	return encodeStream(dst, src, func(w io.Writer) (io.WriteCloser, error) {
		return g.NewWriterLevel(w, level)
	})
}

func (g gzipCodec) Encode(dst, src []byte) ([]byte, error) {
	return g.EncodeLevel(dst, src, DefaultCompressionLevel)
}

func (gzipCodec) CompressBound(len int64) int64 {
	return len + ((len + 7) >> 3) + ((len + 63) >> 6) + 5 + 18
}

func (gzipCodec) NewWriter(w io.Writer) io.WriteCloser {
	return gzip.NewWriter(w)
}

func (gzipCodec) NewWriterLevel(w io.Writer, level int) (io.WriteCloser, error) {
	ret, err := gzip.NewWriterLevel(w, level)
	if err != nil {
		return nil, xerrors.Errorf("codec: gzip: %w", err)
	}
	return ret, nil
}

func init() {
	codecs[Gzip] = gzipCodec{}
}
