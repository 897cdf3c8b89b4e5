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
	"sync/atomic"

	"github.com/apache/colbatch/go/colbatch"
	"github.com/apache/colbatch/go/colbatch/bitutil"
	"github.com/apache/colbatch/go/colbatch/internal/debug"
	"github.com/apache/colbatch/go/colbatch/memory"
)

const (
	minBuilderCapacity = 1 << 5
)

// Builder provides an interface to build columns incrementally.
type Builder interface {
	// Retain increases the reference count by 1.
	// Retain may be called simultaneously from multiple goroutines.
	Retain()

	// Release decreases the reference count by 1.
	Release()

	// Type returns the column type the builder produces.
	Type() colbatch.DataType

	// Len returns the number of elements in the array builder.
	Len() int

	// Cap returns the total number of elements that can be stored
	// without allocating additional memory.
	Cap() int

	// NullN returns the number of null values in the array builder.
	NullN() int

	// AppendNull adds a new null value to the array being built.
	AppendNull()

	// Reserve ensures there is enough space for appending n elements
	// by checking the capacity and calling Resize if necessary.
	Reserve(n int)

	// Resize adjusts the space allocated by b to n elements. If n is greater than b.Cap(),
	// additional memory will be allocated. If n is smaller, the allocated memory may reduced.
	Resize(n int)

	// NewArray creates a new array from the memory buffers used
	// by the builder and resets the Builder so it can be used to build
	// a new array.
	NewArray() Interface
}

// builder provides common functionality for managing the validity bitmap (nulls) when building arrays.
type builder struct {
	refCount   int64
	mem        memory.Allocator
	nullBitmap *memory.Buffer
	nulls      int
	length     int
	capacity   int
}

// Retain increases the reference count by 1.
// Retain may be called simultaneously from multiple goroutines.
func (b *builder) Retain() {
	atomic.AddInt64(&b.refCount, 1)
}

// Len returns the number of elements in the array builder.
func (b *builder) Len() int { return b.length }

// Cap returns the total number of elements that can be stored without allocating additional memory.
func (b *builder) Cap() int { return b.capacity }

// NullN returns the number of null values in the array builder.
func (b *builder) NullN() int { return b.nulls }

func (b *builder) init(capacity int) {
	toAlloc := bitutil.CeilByte(capacity) / 8
	b.nullBitmap = memory.NewResizableBuffer(b.mem)
	b.nullBitmap.Resize(toAlloc)
	b.capacity = capacity
	clear(b.nullBitmap.Buf())
}

func (b *builder) reset() {
	if b.nullBitmap != nil {
		b.nullBitmap.Release()
		b.nullBitmap = nil
	}

	b.nulls = 0
	b.length = 0
	b.capacity = 0
}

func (b *builder) resize(newBits int, init func(int)) {
	if b.nullBitmap == nil {
		init(newBits)
		return
	}

	newBytesN := bitutil.CeilByte(newBits) / 8
	oldBytesN := b.nullBitmap.Len()
	b.nullBitmap.Resize(newBytesN)
	b.capacity = newBits
	if oldBytesN < newBytesN {
		clear(b.nullBitmap.Buf()[oldBytesN:])
	}
	if newBits < b.length {
		b.length = newBits
		b.nulls = newBits - bitutil.CountSetBits(b.nullBitmap.Buf(), newBits)
	}
}

func (b *builder) reserve(elements int, resize func(int)) {
	if b.length+elements > b.capacity {
		newCap := bitutil.NextPowerOf2(b.length + elements)
		resize(newCap)
	}
}

func (b *builder) UnsafeAppendBoolToBitmap(isValid bool) {
	if isValid {
		bitutil.SetBit(b.nullBitmap.Bytes(), b.length)
	} else {
		b.nulls++
	}
	b.length++
}

// unsafeAppendBoolsToBitmap appends the validity of length values; an empty
// valid slice marks them all valid.
func (b *builder) unsafeAppendBoolsToBitmap(valid []bool, length int) {
	if len(valid) == 0 {
		b.unsafeSetValid(length)
		return
	}

	w := bitutil.NewBitmapWriter(b.nullBitmap.Bytes(), b.length, length)
	w.AppendBools(valid)
	for _, v := range valid {
		if !v {
			b.nulls++
		}
	}
	b.length += length
}

func (b *builder) unsafeSetValid(length int) {
	bm := b.nullBitmap.Bytes()
	for i := b.length; i < b.length+length; i++ {
		bitutil.SetBit(bm, i)
	}
	b.length += length
}

// finishBitmap hands the validity bitmap, trimmed to the current length,
// over to the caller. It returns nil when no value is null.
func (b *builder) finishBitmap() *memory.Buffer {
	bm := b.nullBitmap
	b.nullBitmap = nil
	if bm == nil {
		return nil
	}
	if b.nulls == 0 {
		bm.Release()
		return nil
	}
	bm.Resize(int(bitutil.BytesForBits(int64(b.length))))
	return bm
}

// NewBuilder returns a builder for columns of type dtype.
func NewBuilder(mem memory.Allocator, dtype colbatch.DataType) Builder {
	switch dtype.ID() {
	case colbatch.INT8:
		return NewNumericBuilder[int8](mem)
	case colbatch.INT16:
		return NewNumericBuilder[int16](mem)
	case colbatch.INT32:
		return NewNumericBuilder[int32](mem)
	case colbatch.INT64:
		return NewNumericBuilder[int64](mem)
	case colbatch.UINT8:
		return NewNumericBuilder[uint8](mem)
	case colbatch.UINT16:
		return NewNumericBuilder[uint16](mem)
	case colbatch.UINT32:
		return NewNumericBuilder[uint32](mem)
	case colbatch.UINT64:
		return NewNumericBuilder[uint64](mem)
	case colbatch.FLOAT32:
		return NewNumericBuilder[float32](mem)
	case colbatch.FLOAT64:
		return NewNumericBuilder[float64](mem)
	case colbatch.STRING:
		return NewStringBuilder(mem)
	case colbatch.BINARY:
		return NewBinaryBuilder(mem)
	}
	panic("colbatch/array: unsupported builder for " + dtype.String())
}

func releaseOnce(refCount *int64) bool {
	debug.Assert(atomic.LoadInt64(refCount) > 0, "too many releases")
	return atomic.AddInt64(refCount, -1) == 0
}
