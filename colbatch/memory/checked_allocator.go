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

package memory

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"
)

// CheckedAllocator wraps an Allocator and records every live allocation
// together with the first call site outside this package, so tests can
// assert that all the memory handed out was returned.
type CheckedAllocator struct {
	mem Allocator
	sz  int64

	mu     sync.Mutex
	allocs map[uintptr]allocSite
}

type allocSite struct {
	size int
	fn   string
	file string
	line int
}

func (s allocSite) String() string {
	return fmt.Sprintf("%d bytes from %s (%s:%d)", s.size, s.fn, s.file, s.line)
}

func NewCheckedAllocator(mem Allocator) *CheckedAllocator {
	return &CheckedAllocator{mem: mem, allocs: make(map[uintptr]allocSite)}
}

// CurrentAlloc returns the number of bytes currently allocated.
func (a *CheckedAllocator) CurrentAlloc() int { return int(atomic.LoadInt64(&a.sz)) }

func (a *CheckedAllocator) Allocate(size int) []byte {
	atomic.AddInt64(&a.sz, int64(size))
	out := a.mem.Allocate(size)
	a.track(out)
	return out
}

func (a *CheckedAllocator) Reallocate(size int, b []byte) []byte {
	atomic.AddInt64(&a.sz, int64(size-len(b)))
	a.untrack(b)
	out := a.mem.Reallocate(size, b)
	a.track(out)
	return out
}

func (a *CheckedAllocator) Free(b []byte) {
	atomic.AddInt64(&a.sz, -int64(len(b)))
	a.untrack(b)
	a.mem.Free(b)
}

func (a *CheckedAllocator) track(b []byte) {
	if len(b) == 0 {
		return
	}
	site := callSite()
	site.size = len(b)

	a.mu.Lock()
	a.allocs[uintptr(unsafe.Pointer(&b[0]))] = site
	a.mu.Unlock()
}

func (a *CheckedAllocator) untrack(b []byte) {
	if len(b) == 0 {
		return
	}
	a.mu.Lock()
	delete(a.allocs, uintptr(unsafe.Pointer(&b[0])))
	a.mu.Unlock()
}

const pkgPrefix = "colbatch/memory."

// callSite returns the innermost caller that is not part of this package,
// tests of this package excepted. Allocations usually go through Buffer, and
// the interesting frame is the one that resized the buffer.
func callSite() allocSite {
	var pcs [32]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var site allocSite
	for {
		fr, more := frames.Next()
		site = allocSite{fn: fr.Function, file: fr.File, line: fr.Line}
		if !strings.Contains(fr.Function, pkgPrefix) || strings.HasSuffix(fr.File, "_test.go") || !more {
			return site
		}
	}
}

type TestingT interface {
	Errorf(format string, args ...interface{})
	Helper()
}

// AssertSize reports every allocation still alive and fails t when the
// number of live bytes differs from sz.
func (a *CheckedAllocator) AssertSize(t TestingT, sz int) {
	t.Helper()

	a.mu.Lock()
	leaks := make([]allocSite, 0, len(a.allocs))
	for _, site := range a.allocs {
		leaks = append(leaks, site)
	}
	a.mu.Unlock()

	if got := a.CurrentAlloc(); got != sz {
		sort.Slice(leaks, func(i, j int) bool {
			if leaks[i].file != leaks[j].file {
				return leaks[i].file < leaks[j].file
			}
			return leaks[i].line < leaks[j].line
		})
		for _, site := range leaks {
			t.Errorf("LEAK of %v", site)
		}
		t.Errorf("invalid memory size exp=%d, got=%d", sz, got)
	}
}

var (
	_ Allocator = (*CheckedAllocator)(nil)
)
