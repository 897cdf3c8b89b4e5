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

// Package bitutil holds the helpers used to build and inspect validity
// bitmaps. Bits are numbered LSB first within each byte: bit i lives in
// byte i/8 under mask 1<<(i%8).
package bitutil

import (
	"encoding/binary"
	"math/bits"
)

var (
	BitMask        = [8]byte{1, 2, 4, 8, 16, 32, 64, 128}
	FlippedBitMask = [8]byte{254, 253, 251, 247, 239, 223, 191, 127}
)

// CeilByte rounds n bits up to a whole number of bytes, expressed in bits.
func CeilByte(n int) int { return (n + 7) &^ 7 }

// NextPowerOf2 returns the smallest power of two strictly greater than x.
func NextPowerOf2(x int) int { return 1 << uint(bits.Len(uint(x))) }

// BytesForBits is the size of a bitmap holding n bits.
func BytesForBits(n int64) int64 { return (n + 7) >> 3 }

func BitIsSet(buf []byte, i int) bool    { return buf[i>>3]&BitMask[i&7] != 0 }
func BitIsNotSet(buf []byte, i int) bool { return buf[i>>3]&BitMask[i&7] == 0 }

func SetBit(buf []byte, i int)   { buf[i>>3] |= BitMask[i&7] }
func ClearBit(buf []byte, i int) { buf[i>>3] &= FlippedBitMask[i&7] }

func SetBitTo(buf []byte, i int, on bool) {
	if on {
		SetBit(buf, i)
		return
	}
	ClearBit(buf, i)
}

// CountSetBits returns the population count of the first n bits of buf.
func CountSetBits(buf []byte, n int) int {
	var (
		count int
		pos   int
	)
	for ; pos+64 <= n; pos += 64 {
		count += bits.OnesCount64(binary.LittleEndian.Uint64(buf[pos>>3:]))
	}
	for ; pos+8 <= n; pos += 8 {
		count += bits.OnesCount8(buf[pos>>3])
	}
	if pos < n {
		count += bits.OnesCount8(buf[pos>>3] & byte(1<<uint(n-pos)-1))
	}
	return count
}

// BitmapEquals compares the first length bits of two bitmaps. A nil bitmap
// means every bit is set.
func BitmapEquals(left, right []byte, length int) bool {
	if left == nil || right == nil {
		if left == nil && right == nil {
			return true
		}
		other := left
		if other == nil {
			other = right
		}
		return CountSetBits(other, length) == length
	}

	whole := length >> 3
	if string(left[:whole]) != string(right[:whole]) {
		return false
	}
	if rem := length & 7; rem != 0 {
		mask := byte(1<<uint(rem) - 1)
		return left[whole]&mask == right[whole]&mask
	}
	return true
}
