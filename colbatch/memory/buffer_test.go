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

package memory_test

import (
	"testing"

	"github.com/apache/colbatch/go/colbatch/memory"
	"github.com/stretchr/testify/assert"
)

func TestNewResizableBuffer(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	buf := memory.NewResizableBuffer(mem)
	buf.Retain() // refCount == 2

	exp := 10
	buf.Resize(exp)
	assert.NotNil(t, buf.Bytes())
	assert.Equal(t, exp, len(buf.Bytes()))
	assert.Equal(t, exp, buf.Len())
	assert.Equal(t, 64, buf.Cap())
	assert.True(t, buf.Mutable())

	buf.Release() // refCount == 1
	assert.NotNil(t, buf.Bytes())

	buf.Release() // refCount == 0
	assert.Nil(t, buf.Buf())
	assert.Zero(t, buf.Len())
}

func TestBufferResize(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	buf := memory.NewResizableBuffer(mem)
	defer buf.Release()

	buf.Resize(100)
	assert.Equal(t, 128, mem.CurrentAlloc())
	copy(buf.Bytes(), "hello")

	buf.ResizeNoShrink(10)
	assert.Equal(t, 10, buf.Len())
	assert.Equal(t, 128, buf.Cap())

	buf.Resize(1000)
	assert.Equal(t, 1024, mem.CurrentAlloc())
	assert.Equal(t, "hello", string(buf.Bytes()[:5]))

	buf.Resize(10)
	assert.Equal(t, 64, mem.CurrentAlloc())
	assert.Equal(t, "hello", string(buf.Bytes()[:5]))

	buf.Resize(0)
	assert.Equal(t, 0, mem.CurrentAlloc())
}

func TestBufferBytes(t *testing.T) {
	newBytes := []byte("some-new-bytes")
	buf := memory.NewBufferBytes(newBytes)
	assert.Equal(t, newBytes, buf.Bytes())
	assert.Equal(t, len(newBytes), buf.Len())
	assert.False(t, buf.Mutable())

	// not owned by an allocator: release is a no-op.
	buf.Release()
	assert.Equal(t, newBytes, buf.Bytes())

	buf.Reset([]byte("other"))
	assert.Equal(t, "other", string(buf.Bytes()))
}

type recordingT struct {
	errors []string
}

func (r *recordingT) Errorf(format string, args ...interface{}) {
	r.errors = append(r.errors, format)
}

func (r *recordingT) Helper() {}

func TestCheckedAllocatorDetectsLeak(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)

	buf := memory.NewResizableBuffer(mem)
	buf.Resize(12)

	rec := new(recordingT)
	mem.AssertSize(rec, 0)
	assert.Len(t, rec.errors, 2, "one leak report and one size mismatch")

	buf.Release()
	rec = new(recordingT)
	mem.AssertSize(rec, 0)
	assert.Empty(t, rec.errors)
}
