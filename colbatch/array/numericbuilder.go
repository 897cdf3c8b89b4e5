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
	"unsafe"

	"github.com/apache/colbatch/go/colbatch"
	"github.com/apache/colbatch/go/colbatch/bitutil"
	"github.com/apache/colbatch/go/colbatch/memory"
)

// NumericBuilder appends fixed-width values of type T and their validity.
type NumericBuilder[T NumericType] struct {
	builder

	dtype   colbatch.FixedWidthDataType
	data    *memory.Buffer
	rawData []T
}

type (
	Int8Builder    = NumericBuilder[int8]
	Int16Builder   = NumericBuilder[int16]
	Int32Builder   = NumericBuilder[int32]
	Int64Builder   = NumericBuilder[int64]
	Uint8Builder   = NumericBuilder[uint8]
	Uint16Builder  = NumericBuilder[uint16]
	Uint32Builder  = NumericBuilder[uint32]
	Uint64Builder  = NumericBuilder[uint64]
	Float32Builder = NumericBuilder[float32]
	Float64Builder = NumericBuilder[float64]
)

func NewNumericBuilder[T NumericType](mem memory.Allocator) *NumericBuilder[T] {
	return &NumericBuilder[T]{builder: builder{refCount: 1, mem: mem}, dtype: NumericDataType[T]()}
}

func (b *NumericBuilder[T]) Type() colbatch.DataType { return b.dtype }

func (b *NumericBuilder[T]) Release() {
	if releaseOnce(&b.refCount) {
		if b.nullBitmap != nil {
			b.nullBitmap.Release()
			b.nullBitmap = nil
		}
		if b.data != nil {
			b.data.Release()
			b.data = nil
			b.rawData = nil
		}
	}
}

func (b *NumericBuilder[T]) Append(v T) {
	b.Reserve(1)
	b.UnsafeAppend(v)
}

func (b *NumericBuilder[T]) AppendNull() {
	b.Reserve(1)
	var zero T
	b.rawData[b.length] = zero
	b.UnsafeAppendBoolToBitmap(false)
}

func (b *NumericBuilder[T]) UnsafeAppend(v T) {
	bitutil.SetBit(b.nullBitmap.Bytes(), b.length)
	b.rawData[b.length] = v
	b.length++
}

// AppendValues copies v in bulk. valid is either empty or parallel to v.
func (b *NumericBuilder[T]) AppendValues(v []T, valid []bool) {
	if len(valid) != 0 && len(valid) != len(v) {
		panic(fmt.Errorf("colbatch/array: %d values with %d validity flags", len(v), len(valid)))
	}
	if len(v) == 0 {
		return
	}

	b.Reserve(len(v))
	copy(b.rawData[b.length:], v)
	b.builder.unsafeAppendBoolsToBitmap(valid, len(v))
}

func (b *NumericBuilder[T]) Value(i int) T { return b.rawData[i] }

func (b *NumericBuilder[T]) init(capacity int) {
	b.builder.init(capacity)

	b.data = memory.NewResizableBuffer(b.mem)
	b.data.Resize(b.bytesRequired(capacity))
	b.rawData = castFromBytes[T](b.data.Bytes())
}

func (b *NumericBuilder[T]) Reserve(n int) {
	b.builder.reserve(n, b.Resize)
}

// Resize sets the capacity to n slots, never below minBuilderCapacity.
func (b *NumericBuilder[T]) Resize(n int) {
	nBuilder := n
	if n < minBuilderCapacity {
		n = minBuilderCapacity
	}

	if b.capacity == 0 {
		b.init(n)
	} else {
		b.builder.resize(nBuilder, b.init)
		b.data.Resize(b.bytesRequired(n))
		b.rawData = castFromBytes[T](b.data.Bytes())
	}
}

func (b *NumericBuilder[T]) NewArray() Interface {
	return b.NewNumericArray()
}

// NewNumericArray moves the appended values into a new column and resets
// the builder.
func (b *NumericBuilder[T]) NewNumericArray() (a *Numeric[T]) {
	data := b.newData()
	a = NewNumericData[T](data)
	data.Release()
	return
}

func (b *NumericBuilder[T]) newData() (data *Data) {
	if b.data != nil {
		if n := b.bytesRequired(b.length); n < b.data.Len() {
			b.data.Resize(n)
		}
	}

	bitmap := b.finishBitmap()
	data = NewData(b.dtype, b.length, []*memory.Buffer{bitmap, b.data}, b.nulls)
	if bitmap != nil {
		bitmap.Release()
	}
	b.reset()

	if b.data != nil {
		b.data.Release()
		b.data = nil
		b.rawData = nil
	}

	return
}

func (b *NumericBuilder[T]) bytesRequired(n int) int {
	var zero T
	return n * int(unsafe.Sizeof(zero))
}

// NewNumericArray builds a column from optional values; a nil entry is a
// null. It fails with colbatch.ErrInvalid when nullable is false and a value
// is absent.
func NewNumericArray[T NumericType](mem memory.Allocator, values []*T, nullable bool) (*Numeric[T], error) {
	if err := checkAbsent(values, nullable); err != nil {
		return nil, err
	}

	bldr := NewNumericBuilder[T](mem)
	defer bldr.Release()

	bldr.Reserve(len(values))
	for _, v := range values {
		if v == nil {
			bldr.AppendNull()
			continue
		}
		bldr.UnsafeAppend(*v)
	}
	return bldr.NewNumericArray(), nil
}

func checkAbsent[T any](values []*T, nullable bool) error {
	if nullable {
		return nil
	}
	for i, v := range values {
		if v == nil {
			return fmt.Errorf("%w: absent value at index %d of a non-nullable column", colbatch.ErrInvalid, i)
		}
	}
	return nil
}

var (
	_ Builder = (*Int64Builder)(nil)
	_ Builder = (*Float64Builder)(nil)
)
