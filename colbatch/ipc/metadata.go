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
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/apache/colbatch/go/colbatch"
	"github.com/apache/colbatch/go/colbatch/array"
	"github.com/apache/colbatch/go/colbatch/bitutil"
	"github.com/apache/colbatch/go/colbatch/compress"
	"github.com/apache/colbatch/go/colbatch/memory"
)

// Magic is the string opening and closing every colbatch stream.
var Magic = []byte("COLBAT01")

const (
	// codec tag + uncompressed length + payload length
	blockHeaderLen = 1 + 8 + 8
	// offset + length
	blockLocatorLen = 8 + 8
	// footer offset + footer length + magic
	trailerLen = 8 + 4 + 8

	fieldHeaderMinLen = 4 + 1 + 1
)

// fileBlock locates a batch block: Offset is the position of its codec tag
// and Length the size of the whole block, header included.
type fileBlock struct {
	Offset int64
	Length int64
}

func (blk fileBlock) end() int64 { return blk.Offset + blk.Length }

var le = binary.LittleEndian

// encodeSchema returns the schema message: u32 field count, then per field
// u32 name length, name bytes, u8 type tag, u8 nullable flag.
func encodeSchema(schema *colbatch.Schema) []byte {
	size := 4
	for _, f := range schema.Fields() {
		size += fieldHeaderMinLen + len(f.Name)
	}

	buf := make([]byte, 0, size)
	buf = le.AppendUint32(buf, uint32(schema.NumFields()))
	for _, f := range schema.Fields() {
		buf = le.AppendUint32(buf, uint32(len(f.Name)))
		buf = append(buf, f.Name...)
		buf = append(buf, byte(f.Type.ID()))
		if f.Nullable {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}
	return buf
}

// decodeSchema parses a schema message that must span buf exactly.
func decodeSchema(buf []byte) (*colbatch.Schema, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("%w: %d bytes, need at least 4", ErrBadSchema, len(buf))
	}

	n := le.Uint32(buf)
	buf = buf[4:]
	if uint64(n)*fieldHeaderMinLen > uint64(len(buf)) {
		return nil, fmt.Errorf("%w: %d fields cannot fit in %d bytes", ErrBadSchema, n, len(buf))
	}

	fields := make([]colbatch.Field, n)
	for i := range fields {
		if len(buf) < 4 {
			return nil, fmt.Errorf("%w: field %d: truncated name length", ErrBadSchema, i)
		}
		nameLen := le.Uint32(buf)
		buf = buf[4:]
		if uint64(nameLen)+2 > uint64(len(buf)) {
			return nil, fmt.Errorf("%w: field %d: name of %d bytes overruns message", ErrBadSchema, i, nameLen)
		}
		name := buf[:nameLen]
		if !utf8.Valid(name) {
			return nil, fmt.Errorf("%w: field %d: name is not valid utf8", ErrBadSchema, i)
		}

		dt, err := colbatch.TypeFromID(colbatch.Type(buf[nameLen]))
		if err != nil {
			return nil, fmt.Errorf("%w: field %d: %w", ErrBadSchema, i, err)
		}

		var nullable bool
		switch flag := buf[nameLen+1]; flag {
		case 0:
		case 1:
			nullable = true
		default:
			return nil, fmt.Errorf("%w: field %d: nullable flag %d", ErrBadSchema, i, flag)
		}

		fields[i] = colbatch.Field{Name: string(name), Type: dt, Nullable: nullable}
		buf = buf[nameLen+2:]
	}

	if len(buf) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrBadSchema, len(buf))
	}

	schema, err := colbatch.NewSchema(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSchema, err)
	}
	return schema, nil
}

func encodeBlockHeader(blk compress.CompressedBlock) []byte {
	buf := make([]byte, 0, blockHeaderLen)
	buf = append(buf, byte(blk.Codec))
	buf = le.AppendUint64(buf, blk.UncompressedLen)
	buf = le.AppendUint64(buf, uint64(len(blk.Payload)))
	return buf
}

// decodeBlock splits a whole block, as located by the footer, into its
// header fields and payload.
func decodeBlock(buf []byte) (compress.CompressedBlock, error) {
	if len(buf) < blockHeaderLen {
		return compress.CompressedBlock{}, fmt.Errorf("%w: block of %d bytes is shorter than its header",
			ErrCorruptData, len(buf))
	}

	blk := compress.CompressedBlock{
		Codec:           compress.Compression(buf[0]),
		UncompressedLen: le.Uint64(buf[1:]),
	}
	if n := le.Uint64(buf[9:]); n != uint64(len(buf)-blockHeaderLen) {
		return blk, fmt.Errorf("%w: block header declares a %d byte payload, footer locates %d",
			ErrCorruptData, n, len(buf)-blockHeaderLen)
	}
	blk.Payload = buf[blockHeaderLen:]
	return blk, nil
}

func encodeFooter(recs []fileBlock) []byte {
	buf := make([]byte, 0, 4+blockLocatorLen*len(recs))
	buf = le.AppendUint32(buf, uint32(len(recs)))
	for _, blk := range recs {
		buf = le.AppendUint64(buf, uint64(blk.Offset))
		buf = le.AppendUint64(buf, uint64(blk.Length))
	}
	return buf
}

func decodeFooter(buf []byte) ([]fileBlock, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("%w: footer of %d bytes", ErrBadFooter, len(buf))
	}
	n := le.Uint32(buf)
	if want := 4 + uint64(n)*blockLocatorLen; want != uint64(len(buf)) {
		return nil, fmt.Errorf("%w: %d locators need %d bytes, footer holds %d", ErrBadFooter, n, want, len(buf))
	}

	recs := make([]fileBlock, n)
	for i := range recs {
		off, length := le.Uint64(buf[4+i*blockLocatorLen:]), le.Uint64(buf[12+i*blockLocatorLen:])
		if off > math.MaxInt64 || length > math.MaxInt64 {
			return nil, fmt.Errorf("%w: locator %d out of range", ErrBadFooter, i)
		}
		recs[i] = fileBlock{Offset: int64(off), Length: int64(length)}
	}
	return recs, nil
}

func encodeTrailer(footer fileBlock) []byte {
	buf := make([]byte, 0, trailerLen)
	buf = le.AppendUint64(buf, uint64(footer.Offset))
	buf = le.AppendUint32(buf, uint32(footer.Length))
	return append(buf, Magic...)
}

// payloadSize returns the size of the decoded payload of rec.
func payloadSize(rec *array.Record) (int, error) {
	size := 0
	for i, col := range rec.Columns() {
		bm, offsets, values := columnBuffers(col)
		if uint64(len(offsets)) > math.MaxUint32*4 || uint64(len(values)) > math.MaxUint32 {
			return 0, fmt.Errorf("%w: column %d does not fit in a block", colbatch.ErrInvalid, i)
		}
		size += 4 + len(bm) + 4 + len(values)
		if offsets != nil {
			size += 4 + len(offsets)
		}
	}
	return size, nil
}

// columnBuffers returns the validity bitmap (nil without nulls), the raw
// offsets (nil for fixed-width columns) and the values of col.
func columnBuffers(col array.Interface) (bm, offsets, values []byte) {
	bufs := col.Data().Buffers()
	if col.NullN() > 0 {
		bm = bufs[0].Bytes()
	}
	last := bufs[len(bufs)-1]
	if last != nil {
		values = last.Bytes()
	}
	if colbatch.IsVarLen(col.DataType()) {
		offsets = bufs[1].Bytes()
	}
	return
}

// encodePayload writes the columns of rec into dst, which must hold
// payloadSize(rec) bytes. Per column: u32 bitmap length and bitmap bytes,
// for variable-length types u32 offsets count and the offsets, then u32
// data length and data bytes.
func encodePayload(dst []byte, rec *array.Record) {
	pos := 0
	putBytes := func(b []byte) {
		le.PutUint32(dst[pos:], uint32(len(b)))
		pos += 4
		pos += copy(dst[pos:], b)
	}

	for _, col := range rec.Columns() {
		bm, offsets, values := columnBuffers(col)
		putBytes(bm)
		if offsets != nil {
			le.PutUint32(dst[pos:], uint32(len(offsets)/4))
			pos += 4
			pos += copy(dst[pos:], offsets)
		}
		putBytes(values)
	}
}

// payloadReader walks a decoded payload. The first error sticks and turns
// every further read into a no-op.
type payloadReader struct {
	buf []byte
	pos int
	err error
}

func (r *payloadReader) u32(what string) uint32 {
	if r.err != nil {
		return 0
	}
	if len(r.buf)-r.pos < 4 {
		r.err = fmt.Errorf("%w: payload ends inside %s length", ErrCorruptData, what)
		return 0
	}
	v := le.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v
}

func (r *payloadReader) bytes(n uint64, what string) []byte {
	if r.err != nil {
		return nil
	}
	if uint64(len(r.buf)-r.pos) < n {
		r.err = fmt.Errorf("%w: payload ends inside %s (%d bytes)", ErrCorruptData, what, n)
		return nil
	}
	b := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b
}

func newBuffer(mem memory.Allocator, src []byte) *memory.Buffer {
	buf := memory.NewResizableBuffer(mem)
	buf.Resize(len(src))
	copy(buf.Bytes(), src)
	return buf
}

// decodePayload rebuilds the record of a decoded payload. Column buffers are
// copied into memory obtained from mem. The record is checked with
// array.NewRecord; any failure is reported as ErrCorruptData.
func decodePayload(mem memory.Allocator, schema *colbatch.Schema, payload []byte) (*array.Record, error) {
	var (
		rdr  = payloadReader{buf: payload}
		cols = make([]array.Interface, 0, schema.NumFields())
	)
	release := func() {
		for _, col := range cols {
			col.Release()
		}
	}

	for i, f := range schema.Fields() {
		col, err := decodeColumn(mem, &rdr, f)
		if err != nil {
			release()
			return nil, fmt.Errorf("column %d (%q): %w", i, f.Name, err)
		}
		cols = append(cols, col)
	}
	if rest := len(payload) - rdr.pos; rest != 0 {
		release()
		return nil, fmt.Errorf("%w: %d trailing payload bytes", ErrCorruptData, rest)
	}

	rec, err := array.NewRecord(schema, cols)
	if err != nil {
		release()
		return nil, fmt.Errorf("%w: %w", ErrCorruptData, err)
	}
	return rec, nil
}

func decodeColumn(mem memory.Allocator, rdr *payloadReader, f colbatch.Field) (array.Interface, error) {
	bm := rdr.bytes(uint64(rdr.u32("bitmap")), "bitmap")

	var offsets []byte
	varlen := colbatch.IsVarLen(f.Type)
	if varlen {
		offsets = rdr.bytes(uint64(rdr.u32("offsets"))*4, "offsets")
	}
	values := rdr.bytes(uint64(rdr.u32("data")), "data")
	if rdr.err != nil {
		return nil, rdr.err
	}

	var length int
	if varlen {
		if len(offsets) == 0 {
			return nil, fmt.Errorf("%w: empty offsets", ErrCorruptData)
		}
		length = len(offsets)/4 - 1
	} else {
		width := f.Type.(colbatch.FixedWidthDataType).Bytes()
		if len(values)%width != 0 {
			return nil, fmt.Errorf("%w: %d data bytes is not a multiple of %d", ErrCorruptData, len(values), width)
		}
		length = len(values) / width
	}

	nulls := 0
	if len(bm) != 0 {
		if want := bitutil.BytesForBits(int64(length)); int64(len(bm)) != want {
			return nil, fmt.Errorf("%w: bitmap of %d bytes for %d rows", ErrCorruptData, len(bm), length)
		}
		nulls = length - bitutil.CountSetBits(bm, length)
	}

	buffers := make([]*memory.Buffer, 0, 3)
	if len(bm) != 0 {
		buffers = append(buffers, newBuffer(mem, bm))
	} else {
		buffers = append(buffers, nil)
	}
	if varlen {
		buffers = append(buffers, newBuffer(mem, offsets))
	}
	buffers = append(buffers, newBuffer(mem, values))

	data := array.NewData(f.Type, length, buffers, nulls)
	memory.ReleaseBuffers(buffers)
	defer data.Release()

	// offsets and utf8 are checked by array.NewRecord.
	return array.MakeFromData(data)
}
