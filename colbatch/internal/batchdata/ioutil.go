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

package batchdata

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/apache/colbatch/go/colbatch"
	"github.com/apache/colbatch/go/colbatch/array"
	"github.com/apache/colbatch/go/colbatch/ipc"
	"github.com/apache/colbatch/go/colbatch/memory"
)

// CheckFile checks whether a given colbatch file contains the expected list
// of records, decoding them one at a time.
func CheckFile(t *testing.T, f *os.File, mem memory.Allocator, schema *colbatch.Schema, recs []*array.Record) {
	t.Helper()

	_, err := f.Seek(0, io.SeekStart)
	if err != nil {
		t.Fatal(err)
	}

	r, err := ipc.NewFileReader(f, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if got, want := r.NumRecords(), len(recs); got != want {
		t.Fatalf("invalid number of records. got=%d, want=%d", got, want)
	}

	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			t.Fatalf("could not read record %d: %v", i, err)
		}
		if !array.RecordEqual(rec, recs[i]) {
			rec.Release()
			t.Fatalf("records[%d] differ", i)
		}
		rec.Release()
	}

	err = r.Close()
	if err != nil {
		t.Fatal(err)
	}
}

// CheckFileIter checks the content of a colbatch file through the lazy
// record iterator.
func CheckFileIter(t *testing.T, f *os.File, mem memory.Allocator, schema *colbatch.Schema, recs []*array.Record) {
	t.Helper()

	_, err := f.Seek(0, io.SeekStart)
	if err != nil {
		t.Fatal(err)
	}

	r, err := ipc.NewFileReader(f, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	it := r.Records()
	defer it.Release()

	n := 0
	for it.Next() {
		if n >= len(recs) {
			t.Fatalf("too many records. want=%d", len(recs))
		}
		if !array.RecordEqual(it.Record(), recs[n]) {
			t.Fatalf("records[%d] differ", n)
		}
		n++
	}
	if err := it.Err(); err != nil {
		t.Fatalf("could not iterate over records: %v", err)
	}

	if len(recs) != n {
		t.Fatalf("invalid number of records. got=%d, want=%d", n, len(recs))
	}
}

// CheckFileConcurrent checks the content of a colbatch file decoding all its
// records at once with the given number of goroutines.
func CheckFileConcurrent(t *testing.T, f *os.File, mem memory.Allocator, schema *colbatch.Schema, recs []*array.Record, n int) {
	t.Helper()

	_, err := f.Seek(0, io.SeekStart)
	if err != nil {
		t.Fatal(err)
	}

	r, err := ipc.NewFileReader(f, ipc.WithSchema(schema), ipc.WithAllocator(mem), ipc.WithReadConcurrency(n))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	got, err := r.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("could not read records: %v", err)
	}
	defer func() {
		for _, rec := range got {
			rec.Release()
		}
	}()

	if len(got) != len(recs) {
		t.Fatalf("invalid number of records. got=%d, want=%d", len(got), len(recs))
	}
	for i := range recs {
		if !array.RecordEqual(got[i], recs[i]) {
			t.Fatalf("records[%d] differ", i)
		}
	}
}

// WriteFile writes a list of records to the given file descriptor, as a
// colbatch file, and rewinds it.
func WriteFile(t *testing.T, f *os.File, mem memory.Allocator, schema *colbatch.Schema, recs []*array.Record, opts ...ipc.Option) {
	t.Helper()

	opts = append([]ipc.Option{ipc.WithSchema(schema), ipc.WithAllocator(mem)}, opts...)
	w, err := ipc.NewFileWriter(f, opts...)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	for i, rec := range recs {
		err = w.Write(rec)
		if err != nil {
			t.Fatalf("could not write record[%d]: %v", i, err)
		}
	}

	err = w.Close()
	if err != nil {
		t.Fatal(err)
	}

	err = f.Sync()
	if err != nil {
		t.Fatalf("could not sync data to disk: %v", err)
	}

	_, err = f.Seek(0, io.SeekStart)
	if err != nil {
		t.Fatalf("could not seek to start: %v", err)
	}
}
