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
	"math"
	"strconv"
	"strings"

	"github.com/apache/colbatch/go/colbatch"
	"github.com/apache/colbatch/go/colbatch/internal/json"
)

// NumericType is the set of Go types backing fixed-width columns.
type NumericType interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// Numeric is an immutable sequence of fixed-width values.
type Numeric[T NumericType] struct {
	array
	values []T
}

type (
	Int8    = Numeric[int8]
	Int16   = Numeric[int16]
	Int32   = Numeric[int32]
	Int64   = Numeric[int64]
	Uint8   = Numeric[uint8]
	Uint16  = Numeric[uint16]
	Uint32  = Numeric[uint32]
	Uint64  = Numeric[uint64]
	Float32 = Numeric[float32]
	Float64 = Numeric[float64]
)

// NewNumericData creates a new Numeric array from data.
func NewNumericData[T NumericType](data *Data) *Numeric[T] {
	a := &Numeric[T]{}
	a.refCount = 1
	a.setData(data)
	return a
}

// Value returns the value at the specified index.
func (a *Numeric[T]) Value(i int) T { return a.values[i] }

// Values returns the values.
func (a *Numeric[T]) Values() []T { return a.values }

func (a *Numeric[T]) String() string {
	var o strings.Builder
	o.WriteString("[")
	for i := 0; i < a.Len(); i++ {
		if i > 0 {
			o.WriteString(" ")
		}
		o.WriteString(a.ValueStr(i))
	}
	o.WriteString("]")
	return o.String()
}

func (a *Numeric[T]) setData(data *Data) {
	a.array.setData(data)
	a.values = nil
	if vals := data.buffers[1]; vals != nil {
		a.values = castFromBytes[T](vals.Bytes())
	}
}

func (a *Numeric[T]) ValueStr(i int) string {
	if a.IsNull(i) {
		return NullValueStr
	}
	switch v := any(a.values[i]).(type) {
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int8, int16, int32, int64:
		return strconv.FormatInt(toInt64(v), 10)
	default:
		return strconv.FormatUint(toUint64(v), 10)
	}
}

func (a *Numeric[T]) GetOneForMarshal(i int) interface{} {
	if a.IsNull(i) {
		return nil
	}
	switch v := any(a.values[i]).(type) {
	case float32:
		return marshalFloat(float64(v))
	case float64:
		return marshalFloat(v)
	}
	return a.values[i]
}

// MarshalJSON encodes the column as a JSON array. Non-finite floats are
// written as the strings "NaN", "+Inf" and "-Inf".
func (a *Numeric[T]) MarshalJSON() ([]byte, error) {
	vals := make([]interface{}, a.Len())
	for i := range vals {
		vals[i] = a.GetOneForMarshal(i)
	}
	return json.Marshal(vals)
}

func marshalFloat(f float64) interface{} {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return f
}

func toInt64(v interface{}) int64 {
	switch v := v.(type) {
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	}
	panic("colbatch/array: not a signed integer")
}

func toUint64(v interface{}) uint64 {
	switch v := v.(type) {
	case uint8:
		return uint64(v)
	case uint16:
		return uint64(v)
	case uint32:
		return uint64(v)
	case uint64:
		return v
	}
	panic("colbatch/array: not an unsigned integer")
}

// NumericDataType returns the column type matching T.
func NumericDataType[T NumericType]() colbatch.FixedWidthDataType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return colbatch.PrimitiveTypes.Int8
	case int16:
		return colbatch.PrimitiveTypes.Int16
	case int32:
		return colbatch.PrimitiveTypes.Int32
	case int64:
		return colbatch.PrimitiveTypes.Int64
	case uint8:
		return colbatch.PrimitiveTypes.Uint8
	case uint16:
		return colbatch.PrimitiveTypes.Uint16
	case uint32:
		return colbatch.PrimitiveTypes.Uint32
	case uint64:
		return colbatch.PrimitiveTypes.Uint64
	case float32:
		return colbatch.PrimitiveTypes.Float32
	default:
		return colbatch.PrimitiveTypes.Float64
	}
}

var (
	_ Interface = (*Int64)(nil)
	_ Interface = (*Float64)(nil)
)
