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
	"errors"
	"testing"

	"github.com/apache/colbatch/go/colbatch"
	"github.com/apache/colbatch/go/colbatch/array"
	"github.com/apache/colbatch/go/colbatch/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSchema(t *testing.T, fields ...colbatch.Field) *colbatch.Schema {
	t.Helper()
	sc, err := colbatch.NewSchema(fields)
	require.NoError(t, err)
	return sc
}

func TestRecord(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	schema := mustSchema(t,
		colbatch.Field{Name: "f1-i32", Type: colbatch.PrimitiveTypes.Int32},
		colbatch.Field{Name: "f2-str", Type: colbatch.BinaryTypes.String, Nullable: true},
	)

	col1 := func() array.Interface {
		ib := array.NewNumericBuilder[int32](mem)
		defer ib.Release()

		ib.AppendValues([]int32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, nil)
		return ib.NewArray()
	}()

	col2 := func() array.Interface {
		b := array.NewStringBuilder(mem)
		defer b.Release()

		b.AppendValues([]string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"},
			[]bool{true, true, true, false, true, true, true, true, true, true})
		return b.NewArray()
	}()

	rec, err := array.NewRecord(schema, []array.Interface{col1, col2})
	require.NoError(t, err)
	defer rec.Release()

	rec.Retain()
	rec.Release()

	assert.Same(t, schema, rec.Schema())
	assert.EqualValues(t, 10, rec.NumRows())
	assert.EqualValues(t, 2, rec.NumCols())
	assert.Same(t, col1, rec.Column(0))
	assert.Equal(t, "f2-str", rec.ColumnName(1))
	assert.Len(t, rec.Columns(), 2)

	buffers := col1.Data().SizeInBytes() + col2.Data().SizeInBytes()
	assert.Greater(t, rec.MemoryFootprint(), buffers)
}

func TestNewRecordMismatch(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	schema := mustSchema(t,
		colbatch.Field{Name: "a", Type: colbatch.BinaryTypes.String},
		colbatch.Field{Name: "b", Type: colbatch.PrimitiveTypes.Int64, Nullable: true},
	)

	strs := func(vals ...*string) array.Interface {
		a, err := array.NewStringArray(mem, vals, true)
		require.NoError(t, err)
		return a
	}
	ints := func(vals ...*int64) array.Interface {
		a, err := array.NewNumericArray(mem, vals, true)
		require.NoError(t, err)
		return a
	}

	tests := []struct {
		name  string
		cols  func() []array.Interface
		index int
		kind  colbatch.MismatchKind
	}{
		{"too few columns", func() []array.Interface {
			return []array.Interface{strs(ptr("x"))}
		}, -1, colbatch.MismatchCount},
		{"too many columns", func() []array.Interface {
			return []array.Interface{strs(ptr("x")), ints(ptr[int64](1)), ints(ptr[int64](2))}
		}, -1, colbatch.MismatchCount},
		{"wrong type", func() []array.Interface {
			return []array.Interface{strs(ptr("x")), strs(ptr("y"))}
		}, 1, colbatch.MismatchType},
		{"swapped columns", func() []array.Interface {
			return []array.Interface{ints(ptr[int64](1)), strs(ptr("x"))}
		}, 0, colbatch.MismatchType},
		{"unequal lengths", func() []array.Interface {
			return []array.Interface{strs(ptr("x"), ptr("y")), ints(ptr[int64](1))}
		}, 1, colbatch.MismatchLength},
		{"null in non-nullable field", func() []array.Interface {
			return []array.Interface{strs(ptr("x"), nil), ints(ptr[int64](1), nil)}
		}, 0, colbatch.MismatchNullability},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols := tt.cols()
			defer func() {
				for _, c := range cols {
					c.Release()
				}
			}()

			rec, err := array.NewRecord(schema, cols)
			assert.Nil(t, rec)
			require.ErrorIs(t, err, colbatch.ErrSchemaMismatch)

			var sme *colbatch.SchemaMismatchError
			require.True(t, errors.As(err, &sme))
			assert.Equal(t, tt.index, sme.Index)
			assert.Equal(t, tt.kind, sme.Kind)
		})
	}
}

func TestNewRecordInvalid(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	schema := mustSchema(t,
		colbatch.Field{Name: "a", Type: colbatch.BinaryTypes.String},
		colbatch.Field{Name: "b", Type: colbatch.BinaryTypes.String},
	)

	col, err := array.NewStringArray(mem, []*string{ptr("x")}, false)
	require.NoError(t, err)
	defer col.Release()

	_, err = array.NewRecord(schema, []array.Interface{col, col})
	assert.ErrorIs(t, err, colbatch.ErrInvalid)

	_, err = array.NewRecord(schema, []array.Interface{col, nil})
	assert.ErrorIs(t, err, colbatch.ErrInvalid)

	_, err = array.NewRecord(nil, []array.Interface{col})
	assert.ErrorIs(t, err, colbatch.ErrInvalid)
}

func TestRecordMarshalJSON(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	schema := mustSchema(t,
		colbatch.Field{Name: "name", Type: colbatch.BinaryTypes.String, Nullable: true},
		colbatch.Field{Name: "age", Type: colbatch.PrimitiveTypes.Uint8, Nullable: true},
	)

	names, err := array.NewStringArray(mem, []*string{ptr("ann"), nil}, true)
	require.NoError(t, err)
	ages, err := array.NewNumericArray(mem, []*uint8{nil, ptr[uint8](40)}, true)
	require.NoError(t, err)

	rec, err := array.NewRecord(schema, []array.Interface{names, ages})
	require.NoError(t, err)
	defer rec.Release()

	js, err := rec.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"ann","age":null},{"name":null,"age":40}]`, string(js))
}
