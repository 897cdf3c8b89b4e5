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

package ipc // import "github.com/apache/colbatch/go/colbatch/ipc"

import (
	"fmt"
	"io"
	"math"

	"github.com/apache/colbatch/go/colbatch"
	"github.com/apache/colbatch/go/colbatch/compress"
	"github.com/apache/colbatch/go/colbatch/memory"
	"go.uber.org/zap"
)

// formatError is the error kind of a stream that does not parse as a
// colbatch stream. Every value satisfies errors.Is(err, ErrFormat).
type formatError string

func (e formatError) Error() string        { return string(e) }
func (e formatError) Is(target error) bool { return target == ErrFormat }

type errString string

func (s errString) Error() string {
	return string(s)
}

const (
	ErrFormat    = formatError("colbatch/ipc: invalid stream")
	ErrBadMagic  = formatError("colbatch/ipc: bad magic")
	ErrTruncated = formatError("colbatch/ipc: truncated stream")
	ErrBadFooter = formatError("colbatch/ipc: bad footer")
	ErrBadSchema = formatError("colbatch/ipc: bad schema message")

	ErrWriterClosed = errString("colbatch/ipc: write to a closed writer")
)

// ErrCorruptData is returned when a block fails to decompress or its
// columns fail validation.
var ErrCorruptData = compress.ErrCorruptData

// ReadAtSeeker is the source of a FileReader.
type ReadAtSeeker interface {
	io.Reader
	io.Seeker
	io.ReaderAt
}

type config struct {
	alloc           memory.Allocator
	schema          *colbatch.Schema
	codec           compress.Compression
	level           int
	minSpaceSavings *float64
	concurrency     int
	logger          *zap.Logger
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		alloc:       memory.DefaultAllocator,
		codec:       compress.Uncompressed,
		level:       compress.DefaultCompressionLevel,
		concurrency: 1,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

func (cfg *config) validate() error {
	if _, err := compress.GetCodec(cfg.codec); err != nil {
		return fmt.Errorf("%w: %w", colbatch.ErrInvalid, err)
	}
	if cfg.minSpaceSavings != nil {
		if s := *cfg.minSpaceSavings; math.IsNaN(s) || s < 0 || s > 1 {
			return fmt.Errorf("%w: minSpaceSavings not in range [0,1]. Provided %.05f", colbatch.ErrInvalid, s)
		}
	}
	if cfg.concurrency < 1 {
		return fmt.Errorf("%w: read concurrency must be at least 1, got %d", colbatch.ErrInvalid, cfg.concurrency)
	}
	return nil
}

// Option is a functional option to configure opening or creating colbatch
// streams.
type Option func(*config)

// WithSchema specifies the schema of the records to write. When reading,
// the schema found in the stream must be equal to it.
func WithSchema(schema *colbatch.Schema) Option {
	return func(cfg *config) {
		cfg.schema = schema
	}
}

// WithAllocator specifies the memory allocator used while encoding and
// decoding records.
func WithAllocator(mem memory.Allocator) Option {
	return func(cfg *config) {
		cfg.alloc = mem
	}
}

// WithLZ4 tells the writer to compress blocks with the LZ4 frame format.
func WithLZ4() Option {
	return func(cfg *config) {
		cfg.codec = compress.LZ4Frame
	}
}

// WithZstd tells the writer to compress blocks with ZSTD.
func WithZstd() Option {
	return func(cfg *config) {
		cfg.codec = compress.Zstd
	}
}

// WithCompression selects the codec used for every block written.
func WithCompression(c compress.Compression) Option {
	return func(cfg *config) {
		cfg.codec = c
	}
}

// WithCompressionLevel sets the level passed to the codec. The meaning of
// the level depends on the codec.
func WithCompressionLevel(level int) Option {
	return func(cfg *config) {
		cfg.level = level
	}
}

// WithMinSpaceSavings specifies a percentage of space savings for
// compression to be applied to a block.
//
// Space savings is calculated as (1.0 - compressedSize / uncompressedSize).
//
// For example, if minSpaceSavings = 0.1, a 100-byte payload will be
// compressed only if its compressed size is not larger than 90 bytes.
// Otherwise the block is written uncompressed, with the Uncompressed codec
// tag. The value must be in [0,1].
func WithMinSpaceSavings(savings float64) Option {
	return func(cfg *config) {
		cfg.minSpaceSavings = &savings
	}
}

// WithReadConcurrency sets the number of blocks FileReader.ReadAll decodes
// in parallel.
func WithReadConcurrency(n int) Option {
	return func(cfg *config) {
		cfg.concurrency = n
	}
}

// WithLogger sets the logger receiving debug traces of the writer and the
// reader. Nothing is logged by default.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}
