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
	"errors"
	"fmt"
)

var (
	// ErrInvalid is returned for malformed construction arguments.
	ErrInvalid = errors.New("invalid")
	// ErrIndex is returned when an index is out of range.
	ErrIndex = errors.New("index out of range")
	// ErrSchemaMismatch is returned when a batch does not fit its schema.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrNotImplemented is returned for types the format does not carry.
	ErrNotImplemented = errors.New("not implemented")
)

// MismatchKind tells how a batch disagrees with its schema.
type MismatchKind int8

const (
	MismatchCount MismatchKind = iota
	MismatchType
	MismatchLength
	MismatchNullability
	MismatchName
)

func (k MismatchKind) String() string {
	switch k {
	case MismatchCount:
		return "count"
	case MismatchType:
		return "type"
	case MismatchLength:
		return "length"
	case MismatchNullability:
		return "nullability"
	case MismatchName:
		return "name"
	}
	return fmt.Sprintf("MismatchKind(%d)", int8(k))
}

// SchemaMismatchError describes the first disagreement found between a
// schema and a set of columns or another schema.
//
// Index is the field or column position involved, or -1 when the mismatch
// concerns the whole batch (e.g. a column count difference).
type SchemaMismatchError struct {
	Index int
	Kind  MismatchKind
	Msg   string
}

func (e *SchemaMismatchError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s (%s): %s", ErrSchemaMismatch, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s (%s) at field %d: %s", ErrSchemaMismatch, e.Kind, e.Index, e.Msg)
}

func (e *SchemaMismatchError) Is(target error) bool { return target == ErrSchemaMismatch }

// NewSchemaMismatch returns a *SchemaMismatchError with a formatted message.
func NewSchemaMismatch(idx int, kind MismatchKind, format string, args ...interface{}) error {
	return &SchemaMismatchError{Index: idx, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
