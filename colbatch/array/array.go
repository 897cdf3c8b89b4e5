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
	"unsafe"

	"github.com/apache/colbatch/go/colbatch"
	"github.com/apache/colbatch/go/colbatch/bitutil"
	"github.com/apache/colbatch/go/colbatch/internal/debug"
	"github.com/apache/colbatch/go/colbatch/internal/json"
)

// NullValueStr is the textual form of a null value.
const NullValueStr = "(null)"

// offsetWidth is the size in bytes of one entry of an offsets buffer.
const offsetWidth = 4

// Interface represents an immutable sequence of values.
type Interface interface {
	json.Marshaler
	fmt.Stringer

	// DataType returns the type metadata for this instance.
	DataType() colbatch.DataType

	// NullN returns the number of null values in the array.
	NullN() int

	// NullBitmapBytes returns a byte slice of the validity bitmap, or nil
	// when the array holds no nulls.
	NullBitmapBytes() []byte

	// IsNull returns true if value at index is null.
	// NOTE: IsNull will panic if NullBitmapBytes is not empty and 0 > i ≥ Len.
	IsNull(i int) bool

	// IsValid returns true if value at index is not null.
	// NOTE: IsValid will panic if NullBitmapBytes is not empty and 0 > i ≥ Len.
	IsValid(i int) bool

	Data() *Data

	// Len returns the number of elements in the array.
	Len() int

	// Retain increases the reference count by 1.
	// Retain may be called simultaneously from multiple goroutines.
	Retain()

	// Release decreases the reference count by 1.
	// Release may be called simultaneously from multiple goroutines.
	// When the reference count goes to zero, the memory is freed.
	Release()

	// ValueStr returns the value at index i as a string, NullValueStr for nulls.
	ValueStr(i int) string

	// GetOneForMarshal returns the value at index i in the form used when
	// encoding to JSON.
	GetOneForMarshal(i int) interface{}
}

type array struct {
	refCount        int64
	data            *Data
	nullBitmapBytes []byte
}

// Retain increases the reference count by 1.
// Retain may be called simultaneously from multiple goroutines.
func (a *array) Retain() {
	atomic.AddInt64(&a.refCount, 1)
}

// Release decreases the reference count by 1.
// Release may be called simultaneously from multiple goroutines.
// When the reference count goes to zero, the memory is freed.
func (a *array) Release() {
	debug.Assert(atomic.LoadInt64(&a.refCount) > 0, "too many releases")

	if atomic.AddInt64(&a.refCount, -1) == 0 {
		a.data.Release()
		a.data, a.nullBitmapBytes = nil, nil
	}
}

// DataType returns the type metadata for this instance.
func (a *array) DataType() colbatch.DataType { return a.data.dtype }

// NullN returns the number of null values in the array.
func (a *array) NullN() int { return a.data.nullN }

// NullBitmapBytes returns a byte slice of the validity bitmap.
func (a *array) NullBitmapBytes() []byte { return a.nullBitmapBytes }

func (a *array) Data() *Data { return a.data }

// Len returns the number of elements in the array.
func (a *array) Len() int { return a.data.length }

// IsNull returns true if value at index is null.
// NOTE: IsNull will panic if NullBitmapBytes is not empty and 0 > i ≥ Len.
func (a *array) IsNull(i int) bool {
	return len(a.nullBitmapBytes) != 0 && bitutil.BitIsNotSet(a.nullBitmapBytes, i)
}

// IsValid returns true if value at index is not null.
// NOTE: IsValid will panic if NullBitmapBytes is not empty and 0 > i ≥ Len.
func (a *array) IsValid(i int) bool {
	return len(a.nullBitmapBytes) == 0 || bitutil.BitIsSet(a.nullBitmapBytes, i)
}

func (a *array) setData(data *Data) {
	// Retain before releasing in case a.data is the same as data.
	data.Retain()

	if a.data != nil {
		a.data.Release()
	}

	if len(data.buffers) > 0 && data.buffers[0] != nil {
		a.nullBitmapBytes = data.buffers[0].Bytes()
	}
	a.data = data
}

// MakeFromData constructs the typed array matching the type of data.
// The returned array holds its own reference to data.
func MakeFromData(data *Data) (Interface, error) {
	if data.dtype == nil {
		return nil, fmt.Errorf("%w: column has no data type", colbatch.ErrInvalid)
	}
	if want := numBuffers(data.dtype); len(data.buffers) != want {
		return nil, fmt.Errorf("%w: %s column expects %d buffers, got %d",
			colbatch.ErrInvalid, data.dtype, want, len(data.buffers))
	}

	switch data.dtype.ID() {
	case colbatch.INT8:
		return NewNumericData[int8](data), nil
	case colbatch.INT16:
		return NewNumericData[int16](data), nil
	case colbatch.INT32:
		return NewNumericData[int32](data), nil
	case colbatch.INT64:
		return NewNumericData[int64](data), nil
	case colbatch.UINT8:
		return NewNumericData[uint8](data), nil
	case colbatch.UINT16:
		return NewNumericData[uint16](data), nil
	case colbatch.UINT32:
		return NewNumericData[uint32](data), nil
	case colbatch.UINT64:
		return NewNumericData[uint64](data), nil
	case colbatch.FLOAT32:
		return NewNumericData[float32](data), nil
	case colbatch.FLOAT64:
		return NewNumericData[float64](data), nil
	case colbatch.STRING:
		return NewStringData(data), nil
	case colbatch.BINARY:
		return NewBinaryData(data), nil
	}
	return nil, fmt.Errorf("%w: array type %s", colbatch.ErrNotImplemented, data.dtype)
}

func castFromBytes[T NumericType](b []byte) []T {
	if len(b) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), len(b)/int(unsafe.Sizeof(zero)))
}

func castToBytes[T NumericType](v []T) []byte {
	if len(v) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(v))), len(v)*int(unsafe.Sizeof(zero)))
}
