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

// Package batchdata exports canned records for tests.
package batchdata

import (
	"fmt"
	"sort"

	"github.com/apache/colbatch/go/colbatch"
	"github.com/apache/colbatch/go/colbatch/array"
	"github.com/apache/colbatch/go/colbatch/memory"
)

var (
	Records     = make(map[string][]*array.Record)
	RecordNames []string
)

func init() {
	Records["primitives"] = makePrimitiveRecords()
	Records["strings"] = makeStringsRecords()
	Records["names"] = makeNamesRecords()
	Records["nulls"] = makeNullsRecords()
	Records["empty"] = makeEmptyRecords()
	Records["no_records"] = nil

	for k := range Records {
		RecordNames = append(RecordNames, k)
	}
	sort.Strings(RecordNames)
}

// Schema returns the schema shared by the records of the named set.
func Schema(name string) *colbatch.Schema {
	switch name {
	case "no_records":
		return namesSchema
	}
	recs, ok := Records[name]
	if !ok || len(recs) == 0 {
		panic(fmt.Errorf("batchdata: unknown record set %q", name))
	}
	return recs[0].Schema()
}

func mustSchema(fields ...colbatch.Field) *colbatch.Schema {
	sc, err := colbatch.NewSchema(fields)
	if err != nil {
		panic(err)
	}
	return sc
}

func mustRecord(schema *colbatch.Schema, cols []array.Interface) *array.Record {
	rec, err := array.NewRecord(schema, cols)
	if err != nil {
		panic(err)
	}
	return rec
}

func makePrimitiveRecords() []*array.Record {
	mem := memory.NewGoAllocator()

	schema := mustSchema(
		colbatch.Field{Name: "int8s", Type: colbatch.PrimitiveTypes.Int8, Nullable: true},
		colbatch.Field{Name: "int16s", Type: colbatch.PrimitiveTypes.Int16, Nullable: true},
		colbatch.Field{Name: "int32s", Type: colbatch.PrimitiveTypes.Int32, Nullable: true},
		colbatch.Field{Name: "int64s", Type: colbatch.PrimitiveTypes.Int64, Nullable: true},
		colbatch.Field{Name: "uint8s", Type: colbatch.PrimitiveTypes.Uint8, Nullable: true},
		colbatch.Field{Name: "uint16s", Type: colbatch.PrimitiveTypes.Uint16, Nullable: true},
		colbatch.Field{Name: "uint32s", Type: colbatch.PrimitiveTypes.Uint32, Nullable: true},
		colbatch.Field{Name: "uint64s", Type: colbatch.PrimitiveTypes.Uint64, Nullable: true},
		colbatch.Field{Name: "float32s", Type: colbatch.PrimitiveTypes.Float32, Nullable: true},
		colbatch.Field{Name: "float64s", Type: colbatch.PrimitiveTypes.Float64, Nullable: true},
	)

	mask := []bool{true, false, false, true, true}
	chunks := [][]array.Interface{
		{
			arrayOf(mem, []int8{-1, -2, -3, -4, -5}, mask),
			arrayOf(mem, []int16{-1, -2, -3, -4, -5}, mask),
			arrayOf(mem, []int32{-1, -2, -3, -4, -5}, mask),
			arrayOf(mem, []int64{-1, -2, -3, -4, -5}, mask),
			arrayOf(mem, []uint8{+1, +2, +3, +4, +5}, mask),
			arrayOf(mem, []uint16{+1, +2, +3, +4, +5}, mask),
			arrayOf(mem, []uint32{+1, +2, +3, +4, +5}, mask),
			arrayOf(mem, []uint64{+1, +2, +3, +4, +5}, mask),
			arrayOf(mem, []float32{+1, +2, +3, +4, +5}, mask),
			arrayOf(mem, []float64{+1, +2, +3, +4, +5}, mask),
		},
		{
			arrayOf(mem, []int8{-11, -12, -13, -14, -15}, mask),
			arrayOf(mem, []int16{-11, -12, -13, -14, -15}, mask),
			arrayOf(mem, []int32{-11, -12, -13, -14, -15}, mask),
			arrayOf(mem, []int64{-11, -12, -13, -14, -15}, mask),
			arrayOf(mem, []uint8{+11, +12, +13, +14, +15}, mask),
			arrayOf(mem, []uint16{+11, +12, +13, +14, +15}, mask),
			arrayOf(mem, []uint32{+11, +12, +13, +14, +15}, mask),
			arrayOf(mem, []uint64{+11, +12, +13, +14, +15}, mask),
			arrayOf(mem, []float32{+11, +12, +13, +14, +15}, mask),
			arrayOf(mem, []float64{+11, +12, +13, +14, +15}, mask),
		},
		{
			arrayOf(mem, []int8{-21, -22, -23, -24, -25}, mask),
			arrayOf(mem, []int16{-21, -22, -23, -24, -25}, mask),
			arrayOf(mem, []int32{-21, -22, -23, -24, -25}, mask),
			arrayOf(mem, []int64{-21, -22, -23, -24, -25}, mask),
			arrayOf(mem, []uint8{+21, +22, +23, +24, +25}, mask),
			arrayOf(mem, []uint16{+21, +22, +23, +24, +25}, mask),
			arrayOf(mem, []uint32{+21, +22, +23, +24, +25}, mask),
			arrayOf(mem, []uint64{+21, +22, +23, +24, +25}, mask),
			arrayOf(mem, []float32{+21, +22, +23, +24, +25}, mask),
			arrayOf(mem, []float64{+21, +22, +23, +24, +25}, mask),
		},
	}

	return makeRecords(schema, chunks)
}

func makeStringsRecords() []*array.Record {
	mem := memory.NewGoAllocator()
	schema := mustSchema(
		colbatch.Field{Name: "strings", Type: colbatch.BinaryTypes.String, Nullable: true},
		colbatch.Field{Name: "bytes", Type: colbatch.BinaryTypes.Binary, Nullable: true},
	)

	mask := []bool{true, false, false, true, true}
	chunks := [][]array.Interface{
		{
			arrayOf(mem, []string{"1é", "2", "3", "4", "5"}, mask),
			arrayOf(mem, [][]byte{[]byte("1é"), []byte("2"), []byte("3"), []byte("4"), []byte("5")}, mask),
		},
		{
			arrayOf(mem, []string{"11", "22", "33", "44", "55"}, mask),
			arrayOf(mem, [][]byte{[]byte("11"), []byte("22"), []byte("33"), []byte("44"), []byte("55")}, mask),
		},
		{
			arrayOf(mem, []string{"111", "222", "333", "444", "555"}, mask),
			arrayOf(mem, [][]byte{{}, []byte("222"), []byte("333"), {0x00, 0xff}, []byte("555")}, mask),
		},
	}

	return makeRecords(schema, chunks)
}

var namesSchema = mustSchema(
	colbatch.Field{Name: "first", Type: colbatch.BinaryTypes.String},
	colbatch.Field{Name: "middle", Type: colbatch.BinaryTypes.String, Nullable: true},
	colbatch.Field{Name: "last", Type: colbatch.BinaryTypes.String},
)

// makeNamesRecords builds a single record of three string columns and five
// rows, with one null in the nullable column.
func makeNamesRecords() []*array.Record {
	mem := memory.NewGoAllocator()

	chunks := [][]array.Interface{
		{
			arrayOf(mem, []string{"Ada", "Alan", "Grace", "Edsger", "Barbara"}, nil),
			arrayOf(mem, []string{"", "Mathison", "Brewster", "Wybe", "Jane"}, []bool{false, true, true, true, true}),
			arrayOf(mem, []string{"Lovelace", "Turing", "Hopper", "Dijkstra", "Liskov"}, nil),
		},
	}

	return makeRecords(namesSchema, chunks)
}

func makeNullsRecords() []*array.Record {
	mem := memory.NewGoAllocator()
	schema := mustSchema(
		colbatch.Field{Name: "ints", Type: colbatch.PrimitiveTypes.Int32, Nullable: true},
		colbatch.Field{Name: "strs", Type: colbatch.BinaryTypes.String, Nullable: true},
	)

	mask := []bool{false, false, false, false}
	chunks := [][]array.Interface{
		{
			arrayOf(mem, []int32{0, 0, 0, 0}, mask),
			arrayOf(mem, []string{"", "", "", ""}, mask),
		},
		{
			arrayOf(mem, []int32{1, 0, 3, 0}, []bool{true, false, true, false}),
			arrayOf(mem, []string{"", "b", "", "d"}, []bool{false, true, false, true}),
		},
	}

	return makeRecords(schema, chunks)
}

// makeEmptyRecords builds records with zero rows, between two populated
// ones.
func makeEmptyRecords() []*array.Record {
	mem := memory.NewGoAllocator()
	schema := mustSchema(
		colbatch.Field{Name: "u64", Type: colbatch.PrimitiveTypes.Uint64},
		colbatch.Field{Name: "bin", Type: colbatch.BinaryTypes.Binary, Nullable: true},
	)

	chunks := [][]array.Interface{
		{
			arrayOf(mem, []uint64{}, nil),
			arrayOf(mem, [][]byte{}, nil),
		},
		{
			arrayOf(mem, []uint64{42}, nil),
			arrayOf(mem, [][]byte{[]byte("x")}, []bool{false}),
		},
		{
			arrayOf(mem, []uint64{}, nil),
			arrayOf(mem, [][]byte{}, nil),
		},
	}

	return makeRecords(schema, chunks)
}

func makeRecords(schema *colbatch.Schema, chunks [][]array.Interface) []*array.Record {
	recs := make([]*array.Record, len(chunks))
	for i, chunk := range chunks {
		recs[i] = mustRecord(schema, chunk)
	}
	return recs
}

func arrayOf(mem memory.Allocator, a interface{}, valids []bool) array.Interface {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	switch a := a.(type) {
	case []int8:
		return numericOf(mem, a, valids)
	case []int16:
		return numericOf(mem, a, valids)
	case []int32:
		return numericOf(mem, a, valids)
	case []int64:
		return numericOf(mem, a, valids)
	case []uint8:
		return numericOf(mem, a, valids)
	case []uint16:
		return numericOf(mem, a, valids)
	case []uint32:
		return numericOf(mem, a, valids)
	case []uint64:
		return numericOf(mem, a, valids)
	case []float32:
		return numericOf(mem, a, valids)
	case []float64:
		return numericOf(mem, a, valids)

	case []string:
		bldr := array.NewStringBuilder(mem)
		defer bldr.Release()

		bldr.AppendValues(a, valids)
		return bldr.NewStringArray()

	case [][]byte:
		bldr := array.NewBinaryBuilder(mem)
		defer bldr.Release()

		bldr.AppendValues(a, valids)
		return bldr.NewBinaryArray()

	default:
		panic(fmt.Errorf("batchdata: invalid data slice type %T", a))
	}
}

func numericOf[T array.NumericType](mem memory.Allocator, vs []T, valids []bool) array.Interface {
	bldr := array.NewNumericBuilder[T](mem)
	defer bldr.Release()

	bldr.AppendValues(vs, valids)
	return bldr.NewNumericArray()
}
