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
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/JohnCGriffin/overflow"
	"github.com/apache/colbatch/go/colbatch"
	"github.com/apache/colbatch/go/colbatch/array"
	"github.com/apache/colbatch/go/colbatch/compress"
	"github.com/apache/colbatch/go/colbatch/memory"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FileReader is a colbatch stream reader. It locates the blocks of a
// stream through its footer, and decodes any of them on demand.
//
// Record and ReadAll only use the ReadAt method of the source and may be
// called from multiple goroutines.
type FileReader struct {
	r      ReadAtSeeker
	size   int64
	footer fileBlock
	recs   []fileBlock

	schema      *colbatch.Schema
	mem         memory.Allocator
	concurrency int
	logger      *zap.Logger
}

// NewFileReader opens the colbatch stream held by r.
//
// The leading and trailing magic are checked, then the trailer, the footer
// and the schema message. When WithSchema is given, the stream schema must
// be equal to it. The reader does not take ownership of r.
func NewFileReader(r ReadAtSeeker, opts ...Option) (*FileReader, error) {
	cfg := newConfig(opts...)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("colbatch/ipc: %w", err)
	}

	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("colbatch/ipc: could not retrieve stream size: %w", err)
	}

	f := &FileReader{
		r:           r,
		size:        size,
		mem:         cfg.alloc,
		concurrency: cfg.concurrency,
		logger:      cfg.logger,
	}

	if err := f.readMagic(); err != nil {
		return nil, err
	}
	if err := f.readFooter(); err != nil {
		return nil, err
	}
	if err := f.readSchema(); err != nil {
		return nil, err
	}

	if cfg.schema != nil && !cfg.schema.Equal(f.schema) {
		return nil, fmt.Errorf("colbatch/ipc: inconsistent schema for reading: %w", cfg.schema.Diff(f.schema))
	}

	f.logger.Debug("stream opened",
		zap.Int64("bytes", f.size),
		zap.Int("fields", f.schema.NumFields()),
		zap.Int("records", len(f.recs)))
	return f, nil
}

func (f *FileReader) readAt(off, n int64, what string) ([]byte, error) {
	buf := make([]byte, n)
	if got, err := f.r.ReadAt(buf, off); err != nil && int64(got) != n {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: could not read %s (%d bytes at %d)", ErrTruncated, what, n, off)
		}
		return nil, fmt.Errorf("colbatch/ipc: could not read %s: %w", what, err)
	}
	return buf, nil
}

func (f *FileReader) readMagic() error {
	if f.size < int64(len(Magic)) {
		return fmt.Errorf("%w: stream of %d bytes", ErrTruncated, f.size)
	}
	buf, err := f.readAt(0, int64(len(Magic)), "magic")
	if err != nil {
		return err
	}
	if !bytes.Equal(buf, Magic) {
		return fmt.Errorf("%w: stream starts with %q", ErrBadMagic, buf)
	}
	return nil
}

func (f *FileReader) readFooter() error {
	// magic, a schema message of at least 4 bytes, a footer of at least 4
	// bytes and the trailer.
	if f.size < int64(len(Magic))+4+4+trailerLen {
		return fmt.Errorf("%w: stream of %d bytes", ErrTruncated, f.size)
	}

	buf, err := f.readAt(f.size-trailerLen, trailerLen, "trailer")
	if err != nil {
		return err
	}
	if !bytes.Equal(buf[12:], Magic) {
		return fmt.Errorf("%w: stream ends with %q", ErrBadMagic, buf[12:])
	}

	footerOffset := le.Uint64(buf)
	footerLen := int64(le.Uint32(buf[8:]))
	limit := f.size - trailerLen

	end, ok := overflow.Add64(int64(footerOffset), footerLen)
	switch {
	case footerOffset > uint64(limit):
		return fmt.Errorf("%w: footer at %d lies past the %d available bytes", ErrTruncated, footerOffset, limit)
	case !ok || end > limit:
		return fmt.Errorf("%w: footer [%d, +%d) extends past the %d available bytes", ErrTruncated, footerOffset, footerLen, limit)
	case end < limit:
		return fmt.Errorf("%w: footer [%d, +%d) ends %d bytes before the trailer", ErrBadFooter, footerOffset, footerLen, limit-end)
	case int64(footerOffset) < int64(len(Magic))+4:
		return fmt.Errorf("%w: footer at %d overlaps the stream header", ErrBadFooter, footerOffset)
	}
	f.footer = fileBlock{Offset: int64(footerOffset), Length: footerLen}

	buf, err = f.readAt(f.footer.Offset, f.footer.Length, "footer")
	if err != nil {
		return err
	}
	if f.recs, err = decodeFooter(buf); err != nil {
		return err
	}
	return f.checkLocators()
}

// checkLocators makes sure the blocks are laid out back to back, in write
// order, between the schema message and the footer.
func (f *FileReader) checkLocators() error {
	if len(f.recs) == 0 {
		return nil
	}
	if first := f.recs[0].Offset; first < int64(len(Magic))+4 {
		return fmt.Errorf("%w: block 0 at %d overlaps the stream header", ErrBadFooter, first)
	}
	for i, blk := range f.recs {
		if blk.Length < blockHeaderLen {
			return fmt.Errorf("%w: block %d is %d bytes long", ErrBadFooter, i, blk.Length)
		}
		end, ok := overflow.Add64(blk.Offset, blk.Length)
		if !ok || end > f.footer.Offset {
			return fmt.Errorf("%w: block %d [%d, +%d) runs into the footer at %d", ErrBadFooter, i, blk.Offset, blk.Length, f.footer.Offset)
		}
		if i > 0 && blk.Offset != f.recs[i-1].end() {
			return fmt.Errorf("%w: block %d at %d does not follow block %d ending at %d",
				ErrBadFooter, i, blk.Offset, i-1, f.recs[i-1].end())
		}
	}
	if last := f.recs[len(f.recs)-1].end(); last != f.footer.Offset {
		return fmt.Errorf("%w: %d unaccounted bytes before the footer", ErrBadFooter, f.footer.Offset-last)
	}
	return nil
}

// readSchema decodes the schema message, which spans from the magic to the
// first block, or to the footer for a stream without records.
func (f *FileReader) readSchema() error {
	end := f.footer.Offset
	if len(f.recs) > 0 {
		end = f.recs[0].Offset
	}
	start := int64(len(Magic))

	buf, err := f.readAt(start, end-start, "schema")
	if err != nil {
		return err
	}
	f.schema, err = decodeSchema(buf)
	return err
}

// Schema returns the schema of the stream.
func (f *FileReader) Schema() *colbatch.Schema { return f.schema }

// NumRecords returns the number of records in the stream.
func (f *FileReader) NumRecords() int { return len(f.recs) }

// BlockInfo describes a block of the stream.
type BlockInfo struct {
	Offset          int64
	Length          int64
	Codec           compress.Compression
	UncompressedLen uint64
}

// Block returns the location and the header of the i-th block without
// decoding it.
func (f *FileReader) Block(i int) (BlockInfo, error) {
	if err := f.checkIndex(i); err != nil {
		return BlockInfo{}, err
	}
	loc := f.recs[i]
	buf, err := f.readAt(loc.Offset, blockHeaderLen, "block header")
	if err != nil {
		return BlockInfo{}, err
	}
	return BlockInfo{
		Offset:          loc.Offset,
		Length:          loc.Length,
		Codec:           compress.Compression(buf[0]),
		UncompressedLen: le.Uint64(buf[1:]),
	}, nil
}

func (f *FileReader) checkIndex(i int) error {
	if i < 0 || i >= len(f.recs) {
		return fmt.Errorf("colbatch/ipc: record %d of %d: %w", i, len(f.recs), colbatch.ErrIndex)
	}
	return nil
}

// Record decodes the i-th record of the stream.
//
// The returned record is owned by the caller, which must Release it. No
// partially decoded record is ever returned.
func (f *FileReader) Record(i int) (*array.Record, error) {
	if err := f.checkIndex(i); err != nil {
		return nil, err
	}

	rec, err := f.record(i)
	if err != nil {
		f.logger.Debug("record read failed", zap.Int("record", i), zap.Error(err))
		return nil, fmt.Errorf("colbatch/ipc: record %d: %w", i, err)
	}
	return rec, nil
}

func (f *FileReader) record(i int) (*array.Record, error) {
	loc := f.recs[i]
	buf, err := f.readAt(loc.Offset, loc.Length, "block")
	if err != nil {
		return nil, err
	}

	blk, err := decodeBlock(buf)
	if err != nil {
		return nil, err
	}
	payload, err := compress.Decompress(blk)
	if err != nil {
		return nil, err
	}
	return decodePayload(f.mem, f.schema, payload)
}

// Records returns an iterator over the records of the stream, in write
// order. Calling Records again restarts from the first record.
func (f *FileReader) Records() *RecordIterator {
	return &RecordIterator{r: f}
}

// ReadAll decodes every record of the stream, using up to the number of
// goroutines set with WithReadConcurrency. Records are returned in write
// order and owned by the caller. On failure no record is returned.
func (f *FileReader) ReadAll(ctx context.Context) ([]*array.Record, error) {
	recs := make([]*array.Record, len(f.recs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i := range recs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := f.Record(i)
			if err != nil {
				return err
			}
			recs[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, rec := range recs {
			if rec != nil {
				rec.Release()
			}
		}
		return nil, err
	}
	return recs, nil
}

// Close releases the resources of the reader. The source is left open.
func (f *FileReader) Close() error {
	f.recs = nil
	return nil
}

// RecordIterator iterates over the records of a FileReader.
//
// The record returned by Record is valid until the next call to Next or
// Release; Retain it to keep it longer.
type RecordIterator struct {
	r    *FileReader
	next int
	cur  *array.Record
	err  error
}

// Next decodes the next record. It returns false at the end of the stream
// or on the first failure, which Err then reports.
func (it *RecordIterator) Next() bool {
	if it.cur != nil {
		it.cur.Release()
		it.cur = nil
	}
	if it.err != nil || it.next >= it.r.NumRecords() {
		return false
	}

	it.cur, it.err = it.r.Record(it.next)
	if it.err != nil {
		return false
	}
	it.next++
	return true
}

// Record returns the current record.
func (it *RecordIterator) Record() *array.Record { return it.cur }

// Err returns the error that stopped the iteration, if any.
func (it *RecordIterator) Err() error { return it.err }

// Release releases the current record.
func (it *RecordIterator) Release() {
	if it.cur != nil {
		it.cur.Release()
		it.cur = nil
	}
}
