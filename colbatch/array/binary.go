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
	"strconv"
	"strings"
	"unsafe"

	"github.com/apache/colbatch/go/colbatch/internal/json"
)

type binaryBase struct {
	array
	valueOffsets []uint32
	valueBytes   []byte
}

func (a *binaryBase) ValueOffset(i int) int  { return int(a.valueOffsets[i]) }
func (a *binaryBase) ValueLen(i int) int     { return int(a.valueOffsets[i+1] - a.valueOffsets[i]) }
func (a *binaryBase) ValueOffsets() []uint32 { return a.valueOffsets }
func (a *binaryBase) ValueBytes() []byte     { return a.valueBytes }

func (a *binaryBase) valueAt(i int) []byte {
	return a.valueBytes[a.valueOffsets[i]:a.valueOffsets[i+1]]
}

func (a *binaryBase) valueStrAt(i int) string { return unsafeString(a.valueAt(i)) }

func (a *binaryBase) setData(data *Data) {
	a.array.setData(data)
	a.valueOffsets, a.valueBytes = nil, nil

	if valueOffsets := data.buffers[1]; valueOffsets != nil {
		a.valueOffsets = castFromBytes[uint32](valueOffsets.Bytes())
	}
	if valueData := data.buffers[2]; valueData != nil {
		a.valueBytes = valueData.Bytes()
	}
}

func (a *binaryBase) format(quote func(int) string) string {
	var o strings.Builder
	o.WriteString("[")
	for i := 0; i < a.Len(); i++ {
		if i > 0 {
			o.WriteString(" ")
		}
		if a.IsNull(i) {
			o.WriteString(NullValueStr)
			continue
		}
		o.WriteString(quote(i))
	}
	o.WriteString("]")
	return o.String()
}

// Binary is an immutable sequence of variable-length byte strings.
type Binary struct {
	binaryBase
}

// NewBinaryData constructs a new Binary array from data.
func NewBinaryData(data *Data) *Binary {
	a := &Binary{}
	a.refCount = 1
	a.setData(data)
	return a
}

// Value returns the slice at index i. This value should not be mutated.
func (a *Binary) Value(i int) []byte { return a.valueAt(i) }

// ValueString returns the string at index i without performing additional allocations.
// The string is only valid for the lifetime of the Binary array.
func (a *Binary) ValueString(i int) string { return a.valueStrAt(i) }

func (a *Binary) ValueStr(i int) string {
	if a.IsNull(i) {
		return NullValueStr
	}
	return strconv.Quote(a.valueStrAt(i))
}

func (a *Binary) String() string {
	return a.format(func(i int) string { return strconv.Quote(a.valueStrAt(i)) })
}

// GetOneForMarshal returns the bytes at index i, which encode as base64.
func (a *Binary) GetOneForMarshal(i int) interface{} {
	if a.IsNull(i) {
		return nil
	}
	return a.Value(i)
}

func (a *Binary) MarshalJSON() ([]byte, error) {
	vals := make([]interface{}, a.Len())
	for i := range vals {
		vals[i] = a.GetOneForMarshal(i)
	}
	return json.Marshal(vals)
}

// String is an immutable sequence of variable-length UTF-8 strings.
type String struct {
	binaryBase
}

// NewStringData constructs a new String array from data.
func NewStringData(data *Data) *String {
	a := &String{}
	a.refCount = 1
	a.setData(data)
	return a
}

// Value returns the string at index i. The string shares the memory of the
// array and is only valid for its lifetime.
func (a *String) Value(i int) string { return a.valueStrAt(i) }

func (a *String) ValueStr(i int) string {
	if a.IsNull(i) {
		return NullValueStr
	}
	return a.Value(i)
}

func (a *String) String() string {
	return a.format(func(i int) string { return strconv.Quote(a.Value(i)) })
}

func (a *String) GetOneForMarshal(i int) interface{} {
	if a.IsNull(i) {
		return nil
	}
	return a.Value(i)
}

func (a *String) MarshalJSON() ([]byte, error) {
	vals := make([]interface{}, a.Len())
	for i := range vals {
		vals[i] = a.GetOneForMarshal(i)
	}
	return json.Marshal(vals)
}

func unsafeString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

var (
	_ Interface = (*String)(nil)
	_ Interface = (*Binary)(nil)
)
