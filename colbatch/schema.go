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
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/zeebo/xxh3"
)

// Field is a named, typed column descriptor.
type Field struct {
	Name     string   // Field name
	Type     DataType // The field's data type
	Nullable bool     // Fields can be nullable
}

// Equal reports whether both fields have the same name, type and nullability.
func (f Field) Equal(o Field) bool {
	return f.Name == o.Name && f.Nullable == o.Nullable && TypeEqual(f.Type, o.Type)
}

func (f Field) String() string {
	var o strings.Builder
	nullable := ""
	if f.Nullable {
		nullable = ", nullable"
	}
	fmt.Fprintf(&o, "%s: type=%v%v", f.Name, f.Type, nullable)
	return o.String()
}

// Schema is a sequence of Field values, describing the columns of a record batch.
//
// Field names are unique within a schema; the position of a field is its
// canonical identity on the wire. A Schema is immutable and may be shared by
// any number of records.
type Schema struct {
	fields []Field
	index  map[string]int

	fpOnce sync.Once
	fp     uint64
}

// NewSchema returns a new Schema value from the slice of fields.
//
// NewSchema fails with ErrInvalid when fields is empty, when a field has a
// nil or unsupported data type or when two fields share the same name.
func NewSchema(fields []Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: schema must have at least one field", ErrInvalid)
	}

	sc := &Schema{
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	copy(sc.fields, fields)

	for i, f := range sc.fields {
		if f.Type == nil {
			return nil, fmt.Errorf("%w: field %d (%q) with nil DataType", ErrInvalid, i, f.Name)
		}
		if _, err := TypeFromID(f.Type.ID()); err != nil {
			return nil, fmt.Errorf("field %d (%q): %w", i, f.Name, err)
		}
		if j, dup := sc.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field name %q (fields %d and %d)", ErrInvalid, f.Name, j, i)
		}
		sc.index[f.Name] = i
	}
	return sc, nil
}

// Fields returns a copy of the schema's fields.
func (sc *Schema) Fields() []Field {
	f := make([]Field, len(sc.fields))
	copy(f, sc.fields)
	return f
}

func (sc *Schema) Field(i int) Field { return sc.fields[i] }
func (sc *Schema) NumFields() int    { return len(sc.fields) }

// FieldIndex returns the position of the named field, or -1.
func (sc *Schema) FieldIndex(n string) int {
	if i, ok := sc.index[n]; ok {
		return i
	}
	return -1
}

func (sc *Schema) HasField(n string) bool { return sc.FieldIndex(n) >= 0 }

// Equal returns whether two schema are structurally equal: same number of
// fields, in the same order, with equal names, types and nullability.
func (sc *Schema) Equal(o *Schema) bool {
	switch {
	case sc == o:
		return true
	case sc == nil || o == nil:
		return false
	case len(sc.fields) != len(o.fields):
		return false
	}

	for i := range sc.fields {
		if !sc.fields[i].Equal(o.fields[i]) {
			return false
		}
	}
	return true
}

// Diff returns a *SchemaMismatchError describing the first difference
// between sc and o, or nil when both are equal.
func (sc *Schema) Diff(o *Schema) error {
	if len(sc.fields) != len(o.fields) {
		return NewSchemaMismatch(-1, MismatchCount, "got %d fields, want %d", len(o.fields), len(sc.fields))
	}
	for i, want := range sc.fields {
		got := o.fields[i]
		switch {
		case got.Name != want.Name:
			return NewSchemaMismatch(i, MismatchName, "got name %q, want %q", got.Name, want.Name)
		case !TypeEqual(got.Type, want.Type):
			return NewSchemaMismatch(i, MismatchType, "got type %v, want %v", got.Type, want.Type)
		case got.Nullable != want.Nullable:
			return NewSchemaMismatch(i, MismatchNullability, "got nullable=%v, want nullable=%v", got.Nullable, want.Nullable)
		}
	}
	return nil
}

// Fingerprint returns a hash of the structure of the schema. Equal schemas
// have equal fingerprints; it is computed once and cached.
func (sc *Schema) Fingerprint() uint64 {
	sc.fpOnce.Do(func() {
		var (
			buf []byte
			tmp [4]byte
		)
		for _, f := range sc.fields {
			binary.LittleEndian.PutUint32(tmp[:], uint32(len(f.Name)))
			buf = append(buf, tmp[:]...)
			buf = append(buf, f.Name...)
			buf = append(buf, byte(f.Type.ID()))
			if f.Nullable {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		}
		sc.fp = xxh3.Hash(buf)
	})
	return sc.fp
}

func (s *Schema) String() string {
	o := new(strings.Builder)
	fmt.Fprintf(o, "schema:\n  fields: %d\n", len(s.fields))
	for i, f := range s.fields {
		if i > 0 {
			o.WriteString("\n")
		}
		fmt.Fprintf(o, "    - %v", f)
	}
	return o.String()
}
