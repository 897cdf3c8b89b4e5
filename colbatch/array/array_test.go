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

package array_test

import (
	"testing"

	"github.com/apache/colbatch/go/colbatch"
	"github.com/apache/colbatch/go/colbatch/array"
	"github.com/apache/colbatch/go/colbatch/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestMakeFromData(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	tests := []struct {
		name     string
		dtype    colbatch.DataType
		expected interface{}
	}{
		{"int8", colbatch.PrimitiveTypes.Int8, &array.Int8{}},
		{"int16", colbatch.PrimitiveTypes.Int16, &array.Int16{}},
		{"int32", colbatch.PrimitiveTypes.Int32, &array.Int32{}},
		{"int64", colbatch.PrimitiveTypes.Int64, &array.Int64{}},
		{"uint8", colbatch.PrimitiveTypes.Uint8, &array.Uint8{}},
		{"uint16", colbatch.PrimitiveTypes.Uint16, &array.Uint16{}},
		{"uint32", colbatch.PrimitiveTypes.Uint32, &array.Uint32{}},
		{"uint64", colbatch.PrimitiveTypes.Uint64, &array.Uint64{}},
		{"float32", colbatch.PrimitiveTypes.Float32, &array.Float32{}},
		{"float64", colbatch.PrimitiveTypes.Float64, &array.Float64{}},
		{"utf8", colbatch.BinaryTypes.String, &array.String{}},
		{"binary", colbatch.BinaryTypes.Binary, &array.Binary{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := array.NewBuilder(mem, tt.dtype)
			defer b.Release()
			b.AppendNull()
			b.AppendNull()

			built := b.NewArray()
			defer built.Release()

			arr, err := array.MakeFromData(built.Data())
			require.NoError(t, err)
			defer arr.Release()

			assert.IsType(t, tt.expected, arr)
			assert.Equal(t, 2, arr.Len())
			assert.Equal(t, 2, arr.NullN())
			assert.True(t, arr.IsNull(1))
			assert.True(t, array.ArrayEqual(built, arr))
		})
	}
}

func TestMakeFromDataWrongBuffers(t *testing.T) {
	data := array.NewData(colbatch.BinaryTypes.String, 0, []*memory.Buffer{nil, nil}, 0)
	defer data.Release()

	_, err := array.MakeFromData(data)
	assert.ErrorIs(t, err, colbatch.ErrInvalid)
}

func offsetsBuffer(offs ...uint32) *memory.Buffer {
	b := make([]byte, 4*len(offs))
	for i, o := range offs {
		b[4*i] = byte(o)
		b[4*i+1] = byte(o >> 8)
		b[4*i+2] = byte(o >> 16)
		b[4*i+3] = byte(o >> 24)
	}
	return memory.NewBufferBytes(b)
}

func TestValidateData(t *testing.T) {
	str := colbatch.BinaryTypes.String
	i32 := colbatch.PrimitiveTypes.Int32

	tests := []struct {
		name    string
		dtype   colbatch.DataType
		length  int
		nulls   int
		buffers []*memory.Buffer
		ok      bool
	}{
		{"valid strings", str, 2, 0,
			[]*memory.Buffer{nil, offsetsBuffer(0, 1, 3), memory.NewBufferBytes([]byte("abc"))}, true},
		{"empty strings", str, 0, 0,
			[]*memory.Buffer{nil, offsetsBuffer(0), nil}, true},
		{"short offsets", str, 2, 0,
			[]*memory.Buffer{nil, offsetsBuffer(0, 1), memory.NewBufferBytes([]byte("abc"))}, false},
		{"first offset not zero", str, 2, 0,
			[]*memory.Buffer{nil, offsetsBuffer(1, 2, 3), memory.NewBufferBytes([]byte("abc"))}, false},
		{"decreasing offsets", str, 2, 0,
			[]*memory.Buffer{nil, offsetsBuffer(0, 2, 1), memory.NewBufferBytes([]byte("abc"))}, false},
		{"last offset short of data", str, 2, 0,
			[]*memory.Buffer{nil, offsetsBuffer(0, 1, 2), memory.NewBufferBytes([]byte("abc"))}, false},
		{"offset past data", str, 2, 0,
			[]*memory.Buffer{nil, offsetsBuffer(0, 1, 4), memory.NewBufferBytes([]byte("abc"))}, false},
		{"invalid utf8", str, 1, 0,
			[]*memory.Buffer{nil, offsetsBuffer(0, 2), memory.NewBufferBytes([]byte{0xff, 0xfe})}, false},
		{"binary accepts any bytes", colbatch.BinaryTypes.Binary, 1, 0,
			[]*memory.Buffer{nil, offsetsBuffer(0, 2), memory.NewBufferBytes([]byte{0xff, 0xfe})}, true},
		{"null count without bitmap", i32, 1, 1,
			[]*memory.Buffer{nil, memory.NewBufferBytes(make([]byte, 4))}, false},
		{"bitmap null count", i32, 3, 1,
			[]*memory.Buffer{memory.NewBufferBytes([]byte{0x05}), memory.NewBufferBytes(make([]byte, 12))}, true},
		{"bitmap disagrees with null count", i32, 3, 2,
			[]*memory.Buffer{memory.NewBufferBytes([]byte{0x05}), memory.NewBufferBytes(make([]byte, 12))}, false},
		{"bitmap too long", i32, 3, 1,
			[]*memory.Buffer{memory.NewBufferBytes([]byte{0x05, 0x00}), memory.NewBufferBytes(make([]byte, 12))}, false},
		{"values too short", i32, 3, 0,
			[]*memory.Buffer{nil, memory.NewBufferBytes(make([]byte, 8))}, false},
		{"wrong buffer count", i32, 0, 0,
			[]*memory.Buffer{nil}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := array.NewData(tt.dtype, tt.length, tt.buffers, tt.nulls)
			defer data.Release()

			err := array.ValidateData(data)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, colbatch.ErrInvalid)
			}
		})
	}
}
