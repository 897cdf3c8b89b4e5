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
	"math"

	"github.com/apache/colbatch/go/colbatch"
	"github.com/apache/colbatch/go/colbatch/bitutil"
)

// RecordEqual reports whether the two provided records are equal: same
// schema and equal columns.
func RecordEqual(left, right *Record) bool {
	switch {
	case left.NumCols() != right.NumCols():
		return false
	case left.NumRows() != right.NumRows():
		return false
	case !left.Schema().Equal(right.Schema()):
		return false
	}

	for i := range left.Columns() {
		if !ArrayEqual(left.Column(i), right.Column(i)) {
			return false
		}
	}
	return true
}

// ArrayEqual reports whether the two provided arrays are equal. Null
// positions must match and the values at null positions are ignored. NaN
// values compare equal to each other.
func ArrayEqual(left, right Interface) bool {
	switch {
	case !baseArrayEqual(left, right):
		return false
	case left.Len() == 0:
		return true
	case left.NullN() == left.Len():
		return true
	}

	// at this point, we know both arrays have same type, same length, same number of nulls
	// and nulls at the same place.
	// compare the values.

	switch l := left.(type) {
	case *Binary:
		r := right.(*Binary)
		return binaryEqual(&l.binaryBase, &r.binaryBase)
	case *String:
		r := right.(*String)
		return binaryEqual(&l.binaryBase, &r.binaryBase)
	case *Int8:
		return numericEqual(l, right.(*Int8))
	case *Int16:
		return numericEqual(l, right.(*Int16))
	case *Int32:
		return numericEqual(l, right.(*Int32))
	case *Int64:
		return numericEqual(l, right.(*Int64))
	case *Uint8:
		return numericEqual(l, right.(*Uint8))
	case *Uint16:
		return numericEqual(l, right.(*Uint16))
	case *Uint32:
		return numericEqual(l, right.(*Uint32))
	case *Uint64:
		return numericEqual(l, right.(*Uint64))
	case *Float32:
		return floatEqual(l, right.(*Float32))
	case *Float64:
		return floatEqual(l, right.(*Float64))

	default:
		panic(fmt.Errorf("colbatch/array: unknown array type %T", l))
	}
}

func baseArrayEqual(left, right Interface) bool {
	switch {
	case left.Len() != right.Len():
		return false
	case left.NullN() != right.NullN():
		return false
	case !colbatch.TypeEqual(left.DataType(), right.DataType()):
		return false
	case !validityBitmapEqual(left, right):
		return false
	}
	return true
}

func validityBitmapEqual(left, right Interface) bool {
	if left.NullN() == 0 {
		return true
	}
	return bitutil.BitmapEquals(left.NullBitmapBytes(), right.NullBitmapBytes(), left.Len())
}

func binaryEqual(left, right *binaryBase) bool {
	for i := 0; i < left.Len(); i++ {
		if left.IsNull(i) {
			continue
		}
		if !bytes.Equal(left.valueAt(i), right.valueAt(i)) {
			return false
		}
	}
	return true
}

func numericEqual[T NumericType](left, right *Numeric[T]) bool {
	for i := 0; i < left.Len(); i++ {
		if left.IsNull(i) {
			continue
		}
		if left.Value(i) != right.Value(i) {
			return false
		}
	}
	return true
}

func floatEqual[T float32 | float64](left, right *Numeric[T]) bool {
	for i := 0; i < left.Len(); i++ {
		if left.IsNull(i) {
			continue
		}
		a, b := float64(left.Value(i)), float64(right.Value(i))
		if a != b && !(math.IsNaN(a) && math.IsNaN(b)) {
			return false
		}
	}
	return true
}
