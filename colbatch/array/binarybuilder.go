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
	"math"
	"unicode/utf8"

	"github.com/apache/colbatch/go/colbatch"
	"github.com/apache/colbatch/go/colbatch/memory"
)

const (
	binaryArrayMaximumCapacity uint64 = math.MaxUint32
)

// BinaryBuilder accumulates variable-length values into an offsets buffer
// and a contiguous value buffer.
type BinaryBuilder struct {
	builder

	dtype   colbatch.BinaryDataType
	offsets *typedBufferBuilder[uint32]
	values  *bufferBuilder
}

func NewBinaryBuilder(mem memory.Allocator) *BinaryBuilder {
	return newBinaryBuilder(mem, colbatch.BinaryTypes.Binary)
}

func newBinaryBuilder(mem memory.Allocator, dtype colbatch.BinaryDataType) *BinaryBuilder {
	return &BinaryBuilder{
		builder: builder{refCount: 1, mem: mem},
		dtype:   dtype,
		offsets: newTypedBufferBuilder[uint32](mem),
		values:  &bufferBuilder{refCount: 1, mem: mem},
	}
}

func (b *BinaryBuilder) Type() colbatch.DataType { return b.dtype }

func (b *BinaryBuilder) Release() {
	if releaseOnce(&b.refCount) {
		if b.nullBitmap != nil {
			b.nullBitmap.Release()
			b.nullBitmap = nil
		}
		if b.offsets != nil {
			b.offsets.Release()
			b.offsets = nil
		}
		if b.values != nil {
			b.values.Release()
			b.values = nil
		}
	}
}

func (b *BinaryBuilder) Append(v []byte) {
	b.Reserve(1)
	b.appendNextOffset()
	b.values.Append(v)
	b.UnsafeAppendBoolToBitmap(true)
}

func (b *BinaryBuilder) AppendString(v string) {
	b.Append([]byte(v))
}

// AppendNull records a null slot. It contributes no value bytes.
func (b *BinaryBuilder) AppendNull() {
	b.Reserve(1)
	b.appendNextOffset()
	b.UnsafeAppendBoolToBitmap(false)
}

// AppendValues appends v, marking v[i] null where valid[i] is false. An
// empty valid slice means every value is present.
func (b *BinaryBuilder) AppendValues(v [][]byte, valid []bool) {
	if len(valid) != 0 && len(valid) != len(v) {
		panic(fmt.Errorf("colbatch/array: %d values with %d validity flags", len(v), len(valid)))
	}
	if len(v) == 0 {
		return
	}

	b.Reserve(len(v))
	n := 0
	for _, vv := range v {
		n += len(vv)
	}
	b.ReserveData(n)
	for _, vv := range v {
		b.appendNextOffset()
		b.values.Append(vv)
	}
	b.builder.unsafeAppendBoolsToBitmap(valid, len(v))
}

// Value returns the bytes appended at index i.
func (b *BinaryBuilder) Value(i int) []byte {
	offsets := b.offsets.Values()
	start := offsets[i]
	end := uint32(b.values.Len())
	if i < b.length-1 {
		end = offsets[i+1]
	}
	return b.values.Bytes()[start:end]
}

// DataLen is the number of value bytes appended so far.
func (b *BinaryBuilder) DataLen() int { return b.values.Len() }

func (b *BinaryBuilder) init(capacity int) {
	b.builder.init(capacity)
	b.offsets.resize((capacity + 1) * offsetWidth)
}

func (b *BinaryBuilder) Reserve(n int) {
	b.builder.reserve(n, b.Resize)
}

// ReserveData grows the value buffer so n more bytes fit without reallocation.
func (b *BinaryBuilder) ReserveData(n int) {
	if b.values.Cap() < b.values.Len()+n {
		b.values.resize(b.values.Len() + n)
	}
}

func (b *BinaryBuilder) Resize(n int) {
	b.offsets.resize((n + 1) * offsetWidth)
	b.builder.resize(n, b.init)
}

func (b *BinaryBuilder) NewArray() Interface {
	return b.NewBinaryArray()
}

// NewBinaryArray hands the accumulated buffers to a new column and leaves
// the builder empty and reusable.
func (b *BinaryBuilder) NewBinaryArray() (a *Binary) {
	data := b.newData()
	a = NewBinaryData(data)
	data.Release()
	return
}

func (b *BinaryBuilder) newData() (data *Data) {
	b.appendNextOffset()
	offsets, values := b.offsets.Finish(), b.values.Finish()
	bitmap := b.finishBitmap()

	data = NewData(b.dtype, b.length, []*memory.Buffer{bitmap, offsets, values}, b.nulls)
	memory.ReleaseBuffers([]*memory.Buffer{bitmap, offsets, values})
	b.reset()
	return
}

func (b *BinaryBuilder) appendNextOffset() {
	numBytes := b.values.Len()
	if uint64(numBytes) > binaryArrayMaximumCapacity {
		panic(fmt.Errorf("colbatch/array: binary column exceeds %d value bytes", binaryArrayMaximumCapacity))
	}
	b.offsets.AppendValue(uint32(numBytes))
}

// StringBuilder is a BinaryBuilder producing utf8 columns.
type StringBuilder struct {
	*BinaryBuilder
}

func NewStringBuilder(mem memory.Allocator) *StringBuilder {
	return &StringBuilder{BinaryBuilder: newBinaryBuilder(mem, colbatch.BinaryTypes.String)}
}

func (b *StringBuilder) Append(v string) {
	b.BinaryBuilder.Append([]byte(v))
}

func (b *StringBuilder) AppendValues(v []string, valid []bool) {
	raw := make([][]byte, len(v))
	for i, s := range v {
		raw[i] = []byte(s)
	}
	b.BinaryBuilder.AppendValues(raw, valid)
}

func (b *StringBuilder) Value(i int) string {
	return string(b.BinaryBuilder.Value(i))
}

func (b *StringBuilder) NewArray() Interface {
	return b.NewStringArray()
}

func (b *StringBuilder) NewStringArray() (a *String) {
	data := b.newData()
	a = NewStringData(data)
	data.Release()
	return
}

// NewStringArray builds a String column from optional values: offsets are
// the cumulative UTF-8 byte lengths and a nil entry is a null. It fails with
// colbatch.ErrInvalid when nullable is false and a value is absent, when a
// value is not valid UTF-8, or when the values exceed the offset range.
func NewStringArray(mem memory.Allocator, values []*string, nullable bool) (*String, error) {
	if err := checkAbsent(values, nullable); err != nil {
		return nil, err
	}

	var total uint64
	for i, v := range values {
		if v == nil {
			continue
		}
		if !utf8.ValidString(*v) {
			return nil, fmt.Errorf("%w: invalid utf8 at index %d", colbatch.ErrInvalid, i)
		}
		total += uint64(len(*v))
	}
	if total > binaryArrayMaximumCapacity {
		return nil, fmt.Errorf("%w: %d value bytes exceed the offset range", colbatch.ErrInvalid, total)
	}

	bldr := NewStringBuilder(mem)
	defer bldr.Release()

	bldr.Reserve(len(values))
	bldr.ReserveData(int(total))
	for _, v := range values {
		if v == nil {
			bldr.AppendNull()
			continue
		}
		bldr.Append(*v)
	}
	return bldr.NewStringArray(), nil
}

// NewBinaryArray builds a Binary column from optional values. A nil entry
// is a null while an empty non-nil slice is an empty value. It fails with
// colbatch.ErrInvalid when nullable is false and a value is absent, or when
// the values exceed the offset range.
func NewBinaryArray(mem memory.Allocator, values [][]byte, nullable bool) (*Binary, error) {
	var total uint64
	for i, v := range values {
		if v == nil {
			if !nullable {
				return nil, fmt.Errorf("%w: absent value at index %d of a non-nullable column", colbatch.ErrInvalid, i)
			}
			continue
		}
		total += uint64(len(v))
	}
	if total > binaryArrayMaximumCapacity {
		return nil, fmt.Errorf("%w: %d value bytes exceed the offset range", colbatch.ErrInvalid, total)
	}

	bldr := NewBinaryBuilder(mem)
	defer bldr.Release()

	bldr.Reserve(len(values))
	bldr.ReserveData(int(total))
	for _, v := range values {
		if v == nil {
			bldr.AppendNull()
			continue
		}
		bldr.Append(v)
	}
	return bldr.NewBinaryArray(), nil
}

var (
	_ Builder = (*BinaryBuilder)(nil)
	_ Builder = (*StringBuilder)(nil)
)
