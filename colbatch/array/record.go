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
	"bytes"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/apache/colbatch/go/colbatch"
	"github.com/apache/colbatch/go/colbatch/internal/debug"
	"github.com/apache/colbatch/go/colbatch/internal/json"
)

var (
	recordOverhead = int64(unsafe.Sizeof(Record{}))
	columnOverhead = int64(unsafe.Sizeof(Data{}) + unsafe.Sizeof(binaryBase{}))
)

// Record is a collection of equal-length columns matching a schema.
//
// Record is immutable once built and may be read from multiple goroutines.
type Record struct {
	refCount int64

	schema *colbatch.Schema
	rows   int64
	arrs   []Interface
}

// NewRecord returns a record built from cols, one column per field of schema.
//
// The column count, each column's type, the column lengths and the
// nullability of each field are checked in field order; the first
// disagreement is reported as a *colbatch.SchemaMismatchError. Columns whose
// buffers are inconsistent, nil columns and columns passed twice are
// rejected with colbatch.ErrInvalid.
//
// On success the record takes over the caller's reference to every column:
// the caller must not release them. On failure the columns remain owned by
// the caller.
func NewRecord(schema *colbatch.Schema, cols []Interface) (*Record, error) {
	if schema == nil {
		return nil, fmt.Errorf("%w: nil schema", colbatch.ErrInvalid)
	}
	if err := validateColumns(schema, cols); err != nil {
		return nil, err
	}

	arrs := make([]Interface, len(cols))
	copy(arrs, cols)
	return &Record{
		refCount: 1,
		schema:   schema,
		rows:     int64(cols[0].Len()),
		arrs:     arrs,
	}, nil
}

func validateColumns(schema *colbatch.Schema, cols []Interface) error {
	if len(cols) != schema.NumFields() {
		return colbatch.NewSchemaMismatch(-1, colbatch.MismatchCount,
			"schema has %d fields, got %d columns", schema.NumFields(), len(cols))
	}

	seen := make(map[Interface]int, len(cols))
	var rows int
	for i, col := range cols {
		if col == nil {
			return fmt.Errorf("%w: column %d is nil", colbatch.ErrInvalid, i)
		}
		if j, dup := seen[col]; dup {
			return fmt.Errorf("%w: column %d is the same array as column %d", colbatch.ErrInvalid, i, j)
		}
		seen[col] = i

		f := schema.Field(i)
		if !colbatch.TypeEqual(f.Type, col.DataType()) {
			return colbatch.NewSchemaMismatch(i, colbatch.MismatchType,
				"field %q is %s, column is %s", f.Name, f.Type, col.DataType())
		}
		if i == 0 {
			rows = col.Len()
		} else if col.Len() != rows {
			return colbatch.NewSchemaMismatch(i, colbatch.MismatchLength,
				"column %q has %d rows, want %d", f.Name, col.Len(), rows)
		}
		if !f.Nullable && col.NullN() > 0 {
			return colbatch.NewSchemaMismatch(i, colbatch.MismatchNullability,
				"non-nullable field %q holds %d nulls", f.Name, col.NullN())
		}
		if err := ValidateData(col.Data()); err != nil {
			return fmt.Errorf("column %d (%q): %w", i, f.Name, err)
		}
	}
	return nil
}

// Retain increases the reference count by 1.
// Retain may be called simultaneously from multiple goroutines.
func (rec *Record) Retain() {
	atomic.AddInt64(&rec.refCount, 1)
}

// Release decreases the reference count by 1.
// When the reference count goes to zero, the memory is freed.
// Release may be called simultaneously from multiple goroutines.
func (rec *Record) Release() {
	debug.Assert(atomic.LoadInt64(&rec.refCount) > 0, "too many releases")

	if atomic.AddInt64(&rec.refCount, -1) == 0 {
		for _, arr := range rec.arrs {
			arr.Release()
		}
		rec.arrs = nil
	}
}

func (rec *Record) Schema() *colbatch.Schema { return rec.schema }
func (rec *Record) NumRows() int64           { return rec.rows }
func (rec *Record) NumCols() int64           { return int64(len(rec.arrs)) }
func (rec *Record) Columns() []Interface     { return rec.arrs }
func (rec *Record) Column(i int) Interface   { return rec.arrs[i] }
func (rec *Record) ColumnName(i int) string  { return rec.schema.Field(i).Name }

// MemoryFootprint returns the bytes held by the column buffers, validity
// bitmaps included, plus a fixed overhead per column and per record. It is
// meant for diagnostics.
func (rec *Record) MemoryFootprint() int64 {
	sz := recordOverhead
	for _, arr := range rec.arrs {
		sz += columnOverhead + arr.Data().SizeInBytes()
	}
	return sz
}

// MarshalJSON encodes the record as an array of row objects keyed by field
// name, in schema order.
func (rec *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for row := 0; row < int(rec.rows); row++ {
		if row > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for i, arr := range rec.arrs {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(rec.ColumnName(i))
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(arr.GetOneForMarshal(row))
			if err != nil {
				return nil, fmt.Errorf("colbatch/array: column %q row %d: %w", rec.ColumnName(i), row, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
