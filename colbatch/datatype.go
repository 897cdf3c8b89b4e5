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

package colbatch

import (
	"fmt"
)

// Type is the physical type of a column. The numeric values are the type
// tags written to the schema message of a stream and must remain stable.
type Type uint8

const (
	// INT8 is a Signed 8-bit little-endian integer
	INT8 Type = iota + 1

	// INT16 is a Signed 16-bit little-endian integer
	INT16

	// INT32 is a Signed 32-bit little-endian integer
	INT32

	// INT64 is a Signed 64-bit little-endian integer
	INT64

	// UINT8 is an Unsigned 8-bit little-endian integer
	UINT8

	// UINT16 is an Unsigned 16-bit little-endian integer
	UINT16

	// UINT32 is an Unsigned 32-bit little-endian integer
	UINT32

	// UINT64 is an Unsigned 64-bit little-endian integer
	UINT64

	// FLOAT32 is a 4-byte floating point value
	FLOAT32

	// FLOAT64 is an 8-byte floating point value
	FLOAT64

	// STRING is a UTF8 variable-length string
	STRING

	// BINARY is a Variable-length byte type (no guarantee of UTF8-ness)
	BINARY
)

var typeNames = [...]string{
	INT8:    "int8",
	INT16:   "int16",
	INT32:   "int32",
	INT64:   "int64",
	UINT8:   "uint8",
	UINT16:  "uint16",
	UINT32:  "uint32",
	UINT64:  "uint64",
	FLOAT32: "float32",
	FLOAT64: "float64",
	STRING:  "utf8",
	BINARY:  "binary",
}

func (t Type) String() string {
	if int(t) < len(typeNames) && typeNames[t] != "" {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// DataType is the representation of a column type.
type DataType interface {
	fmt.Stringer
	ID() Type
	// Name is name of the data type.
	Name() string
}

// FixedWidthDataType is the representation of a fixed-width type.
type FixedWidthDataType interface {
	DataType
	// BitWidth returns the number of bits required to store a single element of this data type in memory.
	BitWidth() int
	// Bytes returns the number of bytes required to store a single element of this data type in memory.
	Bytes() int
}

// BinaryDataType is implemented by the variable-length types, whose columns
// carry an offsets buffer.
type BinaryDataType interface {
	DataType
	IsUtf8() bool
	binary()
}

type fixedWidthType struct {
	id    Type
	width int
}

func (t *fixedWidthType) ID() Type       { return t.id }
func (t *fixedWidthType) Name() string   { return t.id.String() }
func (t *fixedWidthType) String() string { return t.id.String() }
func (t *fixedWidthType) BitWidth() int  { return t.width * 8 }
func (t *fixedWidthType) Bytes() int     { return t.width }

type (
	Int8Type    struct{ fixedWidthType }
	Int16Type   struct{ fixedWidthType }
	Int32Type   struct{ fixedWidthType }
	Int64Type   struct{ fixedWidthType }
	Uint8Type   struct{ fixedWidthType }
	Uint16Type  struct{ fixedWidthType }
	Uint32Type  struct{ fixedWidthType }
	Uint64Type  struct{ fixedWidthType }
	Float32Type struct{ fixedWidthType }
	Float64Type struct{ fixedWidthType }
)

// StringType is the type of a column of UTF-8 strings.
type StringType struct{}

func (*StringType) ID() Type       { return STRING }
func (*StringType) Name() string   { return "utf8" }
func (*StringType) String() string { return "utf8" }
func (*StringType) IsUtf8() bool   { return true }
func (*StringType) binary()        {}

// BinaryType is the type of a column of opaque byte strings.
type BinaryType struct{}

func (*BinaryType) ID() Type       { return BINARY }
func (*BinaryType) Name() string   { return "binary" }
func (*BinaryType) String() string { return "binary" }
func (*BinaryType) IsUtf8() bool   { return false }
func (*BinaryType) binary()        {}

var (
	PrimitiveTypes = struct {
		Int8    FixedWidthDataType
		Int16   FixedWidthDataType
		Int32   FixedWidthDataType
		Int64   FixedWidthDataType
		Uint8   FixedWidthDataType
		Uint16  FixedWidthDataType
		Uint32  FixedWidthDataType
		Uint64  FixedWidthDataType
		Float32 FixedWidthDataType
		Float64 FixedWidthDataType
	}{
		Int8:    &Int8Type{fixedWidthType{INT8, 1}},
		Int16:   &Int16Type{fixedWidthType{INT16, 2}},
		Int32:   &Int32Type{fixedWidthType{INT32, 4}},
		Int64:   &Int64Type{fixedWidthType{INT64, 8}},
		Uint8:   &Uint8Type{fixedWidthType{UINT8, 1}},
		Uint16:  &Uint16Type{fixedWidthType{UINT16, 2}},
		Uint32:  &Uint32Type{fixedWidthType{UINT32, 4}},
		Uint64:  &Uint64Type{fixedWidthType{UINT64, 8}},
		Float32: &Float32Type{fixedWidthType{FLOAT32, 4}},
		Float64: &Float64Type{fixedWidthType{FLOAT64, 8}},
	}

	BinaryTypes = struct {
		Binary BinaryDataType
		String BinaryDataType
	}{
		Binary: &BinaryType{},
		String: &StringType{},
	}
)

// TypeFromID returns the DataType singleton for the given type tag.
func TypeFromID(id Type) (DataType, error) {
	switch id {
	case INT8:
		return PrimitiveTypes.Int8, nil
	case INT16:
		return PrimitiveTypes.Int16, nil
	case INT32:
		return PrimitiveTypes.Int32, nil
	case INT64:
		return PrimitiveTypes.Int64, nil
	case UINT8:
		return PrimitiveTypes.Uint8, nil
	case UINT16:
		return PrimitiveTypes.Uint16, nil
	case UINT32:
		return PrimitiveTypes.Uint32, nil
	case UINT64:
		return PrimitiveTypes.Uint64, nil
	case FLOAT32:
		return PrimitiveTypes.Float32, nil
	case FLOAT64:
		return PrimitiveTypes.Float64, nil
	case STRING:
		return BinaryTypes.String, nil
	case BINARY:
		return BinaryTypes.Binary, nil
	}
	return nil, fmt.Errorf("%w: unknown type id %d", ErrInvalid, uint8(id))
}

// TypeEqual reports whether two data types are the same. Types are
// compared by identifier since none of them is parametric.
func TypeEqual(left, right DataType) bool {
	switch {
	case left == nil || right == nil:
		return left == nil && right == nil
	default:
		return left.ID() == right.ID()
	}
}

// IsVarLen reports whether columns of dt carry an offsets buffer.
func IsVarLen(dt DataType) bool {
	_, ok := dt.(BinaryDataType)
	return ok
}
