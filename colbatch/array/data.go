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

package array

import (
	"fmt"
	"sync/atomic"
	"unicode/utf8"

	"github.com/apache/colbatch/go/colbatch"
	"github.com/apache/colbatch/go/colbatch/bitutil"
	"github.com/apache/colbatch/go/colbatch/internal/debug"
	"github.com/apache/colbatch/go/colbatch/memory"
)

// Data represents the memory and metadata of a column.
//
// Fixed-width columns hold two buffers, the validity bitmap and the values.
// Variable-length columns hold three: validity, offsets and values. The
// validity buffer is nil when the column has no nulls.
type Data struct {
	refCount int64
	dtype    colbatch.DataType
	nullN    int
	length   int
	buffers  []*memory.Buffer
}

// NewData creates a new Data, retaining every non-nil buffer.
func NewData(dtype colbatch.DataType, length int, buffers []*memory.Buffer, nullN int) *Data {
	for _, b := range buffers {
		if b != nil {
			b.Retain()
		}
	}

	return &Data{
		refCount: 1,
		dtype:    dtype,
		nullN:    nullN,
		length:   length,
		buffers:  buffers,
	}
}

// Retain increases the reference count by 1.
// Retain may be called simultaneously from multiple goroutines.
func (d *Data) Retain() {
	atomic.AddInt64(&d.refCount, 1)
}

// Release decreases the reference count by 1.
// When the reference count goes to zero, the memory is freed.
// Release may be called simultaneously from multiple goroutines.
func (d *Data) Release() {
	debug.Assert(atomic.LoadInt64(&d.refCount) > 0, "too many releases")

	if atomic.AddInt64(&d.refCount, -1) == 0 {
		memory.ReleaseBuffers(d.buffers)
		d.buffers = nil
	}
}

func (d *Data) DataType() colbatch.DataType { return d.dtype }
func (d *Data) NullN() int                  { return d.nullN }
func (d *Data) Len() int                    { return d.length }
func (d *Data) Buffers() []*memory.Buffer   { return d.buffers }

// SizeInBytes returns the number of bytes held by the buffers of d.
func (d *Data) SizeInBytes() int64 {
	var sz int64
	for _, b := range d.buffers {
		if b != nil {
			sz += int64(b.Len())
		}
	}
	return sz
}

func numBuffers(dt colbatch.DataType) int {
	if colbatch.IsVarLen(dt) {
		return 3
	}
	return 2
}

// ValidateData checks that the buffers of d are consistent with its type,
// length and null count. Violations are reported as colbatch.ErrInvalid.
func ValidateData(d *Data) error {
	if d.dtype == nil {
		return fmt.Errorf("%w: column has no data type", colbatch.ErrInvalid)
	}
	if d.length < 0 {
		return fmt.Errorf("%w: negative column length %d", colbatch.ErrInvalid, d.length)
	}
	if want := numBuffers(d.dtype); len(d.buffers) != want {
		return fmt.Errorf("%w: %s column expects %d buffers, got %d",
			colbatch.ErrInvalid, d.dtype, want, len(d.buffers))
	}

	if err := validateBitmap(d); err != nil {
		return err
	}

	switch dt := d.dtype.(type) {
	case colbatch.FixedWidthDataType:
		var n int
		if d.buffers[1] != nil {
			n = d.buffers[1].Len()
		}
		if want := d.length * dt.Bytes(); n != want {
			return fmt.Errorf("%w: %s column of length %d expects %d value bytes, got %d",
				colbatch.ErrInvalid, dt, d.length, want, n)
		}
		return nil
	case colbatch.BinaryDataType:
		return validateOffsets(d, dt.IsUtf8())
	default:
		return fmt.Errorf("%w: unsupported column type %s", colbatch.ErrInvalid, d.dtype)
	}
}

func validateBitmap(d *Data) error {
	bm := d.buffers[0]
	if bm == nil || bm.Len() == 0 {
		if d.nullN != 0 {
			return fmt.Errorf("%w: null count %d without a validity bitmap", colbatch.ErrInvalid, d.nullN)
		}
		return nil
	}

	if want := int(bitutil.BytesForBits(int64(d.length))); bm.Len() != want {
		return fmt.Errorf("%w: validity bitmap of %d bytes for %d rows, want %d",
			colbatch.ErrInvalid, bm.Len(), d.length, want)
	}
	if nulls := d.length - bitutil.CountSetBits(bm.Bytes(), d.length); nulls != d.nullN {
		return fmt.Errorf("%w: validity bitmap holds %d nulls, column declares %d",
			colbatch.ErrInvalid, nulls, d.nullN)
	}
	return nil
}

func validateOffsets(d *Data, checkUTF8 bool) error {
	var raw, values []byte
	if d.buffers[1] != nil {
		raw = d.buffers[1].Bytes()
	}
	if d.buffers[2] != nil {
		values = d.buffers[2].Bytes()
	}

	if want := (d.length + 1) * offsetWidth; len(raw) != want {
		return fmt.Errorf("%w: %s column of length %d expects %d offset bytes, got %d",
			colbatch.ErrInvalid, d.dtype, d.length, want, len(raw))
	}

	offsets := castFromBytes[uint32](raw)
	prev := offsets[0]
	if prev != 0 {
		return fmt.Errorf("%w: first offset is %d, want 0", colbatch.ErrInvalid, prev)
	}
	for i := 1; i <= d.length; i++ {
		cur := offsets[i]
		if cur < prev {
			return fmt.Errorf("%w: offsets decrease at index %d (%d < %d)", colbatch.ErrInvalid, i, cur, prev)
		}
		if uint64(cur) > uint64(len(values)) {
			return fmt.Errorf("%w: offset %d at index %d exceeds %d value bytes",
				colbatch.ErrInvalid, cur, i, len(values))
		}
		if checkUTF8 && !utf8.Valid(values[prev:cur]) {
			return fmt.Errorf("%w: invalid utf8 at index %d", colbatch.ErrInvalid, i-1)
		}
		prev = cur
	}

	if uint64(prev) != uint64(len(values)) {
		return fmt.Errorf("%w: last offset %d does not match %d value bytes",
			colbatch.ErrInvalid, prev, len(values))
	}
	return nil
}
