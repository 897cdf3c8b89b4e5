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

package ipc

import (
	"fmt"
	"io"

	"github.com/apache/colbatch/go/colbatch"
	"github.com/apache/colbatch/go/colbatch/array"
	"github.com/apache/colbatch/go/colbatch/compress"
	"github.com/apache/colbatch/go/colbatch/memory"
	"go.uber.org/zap"
)

// pwriter tracks the position of the sink and the locators of the blocks
// written so far.
type pwriter struct {
	w    io.Writer
	pos  int64
	recs []fileBlock
}

func (w *pwriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.pos += int64(n)
	return n, err
}

func (w *pwriter) Start(schema *colbatch.Schema) error {
	if _, err := w.Write(Magic); err != nil {
		return fmt.Errorf("colbatch/ipc: could not write magic: %w", err)
	}
	if _, err := w.Write(encodeSchema(schema)); err != nil {
		return fmt.Errorf("colbatch/ipc: could not write schema: %w", err)
	}
	return nil
}

func (w *pwriter) WriteBlock(blk compress.CompressedBlock) (fileBlock, error) {
	loc := fileBlock{Offset: w.pos, Length: int64(blockHeaderLen + len(blk.Payload))}
	if _, err := w.Write(encodeBlockHeader(blk)); err != nil {
		return loc, fmt.Errorf("colbatch/ipc: could not write block header: %w", err)
	}
	if _, err := w.Write(blk.Payload); err != nil {
		return loc, fmt.Errorf("colbatch/ipc: could not write block payload: %w", err)
	}
	w.recs = append(w.recs, loc)
	return loc, nil
}

func (w *pwriter) Close() error {
	footer := encodeFooter(w.recs)
	loc := fileBlock{Offset: w.pos, Length: int64(len(footer))}
	if _, err := w.Write(footer); err != nil {
		return fmt.Errorf("colbatch/ipc: could not write footer: %w", err)
	}
	if _, err := w.Write(encodeTrailer(loc)); err != nil {
		return fmt.Errorf("colbatch/ipc: could not write trailer: %w", err)
	}
	return nil
}

// FileWriter is a colbatch stream writer.
//
// The stream opens with the magic and the schema, written when the writer
// is created, followed by one block per record. Close writes the footer
// locating every block and the trailer; a stream missing them is unreadable.
//
// Any I/O failure is sticky: later calls return the same error.
type FileWriter struct {
	pw *pwriter

	mem             memory.Allocator
	schema          *colbatch.Schema
	codec           compress.Compression
	level           int
	minSpaceSavings *float64
	logger          *zap.Logger

	closed bool
	err    error
}

// NewFileWriter creates a writer for records of the schema given with
// WithSchema and writes the stream header to w. The writer does not take
// ownership of w: closing the writer leaves w open.
func NewFileWriter(w io.Writer, opts ...Option) (*FileWriter, error) {
	cfg := newConfig(opts...)
	if cfg.schema == nil {
		return nil, fmt.Errorf("%w: colbatch/ipc: a schema is required to write a stream", colbatch.ErrInvalid)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("colbatch/ipc: %w", err)
	}

	f := &FileWriter{
		pw:              &pwriter{w: w},
		mem:             cfg.alloc,
		schema:          cfg.schema,
		codec:           cfg.codec,
		level:           cfg.level,
		minSpaceSavings: cfg.minSpaceSavings,
		logger:          cfg.logger,
	}

	if err := f.pw.Start(f.schema); err != nil {
		return nil, err
	}
	f.logger.Debug("stream started",
		zap.Int("fields", f.schema.NumFields()),
		zap.Stringer("codec", f.codec),
		zap.Int64("bytes", f.pw.pos))

	return f, nil
}

// Schema returns the schema of the records written by f.
func (f *FileWriter) Schema() *colbatch.Schema { return f.schema }

// NumRecords returns the number of records written so far.
func (f *FileWriter) NumRecords() int { return len(f.pw.recs) }

// BytesWritten returns the number of bytes handed to the sink so far.
func (f *FileWriter) BytesWritten() int64 { return f.pw.pos }

// Write appends rec to the stream as a new block.
//
// The schema of rec must be structurally equal to the writer's; otherwise
// Write returns a *colbatch.SchemaMismatchError and nothing is written.
func (f *FileWriter) Write(rec *array.Record) error {
	switch {
	case f.closed:
		return ErrWriterClosed
	case f.err != nil:
		return f.err
	case rec == nil:
		return fmt.Errorf("%w: colbatch/ipc: nil record", colbatch.ErrInvalid)
	}

	if schema := rec.Schema(); schema != f.schema {
		if schema.Fingerprint() != f.schema.Fingerprint() || !schema.Equal(f.schema) {
			return fmt.Errorf("colbatch/ipc: record does not match the stream schema: %w", f.schema.Diff(schema))
		}
	}

	size, err := payloadSize(rec)
	if err != nil {
		return fmt.Errorf("colbatch/ipc: could not encode record: %w", err)
	}

	raw := memory.NewResizableBuffer(f.mem)
	defer raw.Release()
	raw.Resize(size)
	encodePayload(raw.Bytes(), rec)

	blk, err := compress.CompressLevel(raw.Bytes(), f.codec, f.level)
	if err != nil {
		return fmt.Errorf("colbatch/ipc: could not compress record: %w", err)
	}
	if f.codec != compress.Uncompressed && f.minSpaceSavings != nil {
		savings := 1 - float64(len(blk.Payload))/float64(len(raw.Bytes()))
		if len(raw.Bytes()) == 0 || savings < *f.minSpaceSavings {
			blk, _ = compress.Compress(raw.Bytes(), compress.Uncompressed)
		}
	}

	loc, err := f.pw.WriteBlock(blk)
	if err != nil {
		f.err = err
		f.logger.Debug("block write failed", zap.Int("record", len(f.pw.recs)), zap.Error(err))
		return err
	}

	f.logger.Debug("record written",
		zap.Int("record", len(f.pw.recs)-1),
		zap.Int64("rows", rec.NumRows()),
		zap.Int("raw_bytes", size),
		zap.Int64("stored_bytes", loc.Length),
		zap.Stringer("codec", blk.Codec))
	return nil
}

// Close writes the footer and the trailer, which completes the stream.
// Calling Close more than once is a no-op. Close does not close the
// underlying writer.
func (f *FileWriter) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	if f.err != nil {
		return f.err
	}
	if err := f.pw.Close(); err != nil {
		f.err = err
		return err
	}

	f.logger.Debug("stream finalized",
		zap.Int("records", len(f.pw.recs)),
		zap.Int64("bytes", f.pw.pos))
	return nil
}
