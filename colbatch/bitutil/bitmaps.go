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

package bitutil

// BitmapWriter writes length consecutive bits of a bitmap, from bit start
// on. Bits outside that range keep their value.
type BitmapWriter struct {
	buf    []byte
	start  int
	pos    int
	length int
}

// NewBitmapWriter returns a sequential writer over bitmap[start:start+length]
// in bits. The bitmap must hold at least start+length bits.
func NewBitmapWriter(bitmap []byte, start, length int) *BitmapWriter {
	return &BitmapWriter{buf: bitmap, start: start, length: length}
}

// Pos returns the number of bits written so far.
func (w *BitmapWriter) Pos() int { return w.pos }

// Set sets the current bit.
func (w *BitmapWriter) Set() { SetBit(w.buf, w.start+w.pos) }

// Clear clears the current bit.
func (w *BitmapWriter) Clear() { ClearBit(w.buf, w.start+w.pos) }

// Next moves the writer to the following bit.
func (w *BitmapWriter) Next() { w.pos++ }

// AppendBools writes in from the current bit and returns the number of bits
// written, bounded by the room left in the writer.
func (w *BitmapWriter) AppendBools(in []bool) int {
	n := min(w.length-w.pos, len(in))
	if n <= 0 {
		return 0
	}

	bit := w.start + w.pos
	k := 0
	for ; k < n && (bit+k)%8 != 0; k++ {
		SetBitTo(w.buf, bit+k, in[k])
	}
	// whole bytes
	for ; k+8 <= n; k += 8 {
		var b byte
		for j, v := range in[k : k+8] {
			if v {
				b |= BitMask[j]
			}
		}
		w.buf[(bit+k)/8] = b
	}
	for ; k < n; k++ {
		SetBitTo(w.buf, bit+k, in[k])
	}

	w.pos += n
	return n
}
