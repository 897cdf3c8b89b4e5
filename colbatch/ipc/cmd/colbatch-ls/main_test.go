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

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/colbatch/go/colbatch/internal/batchdata"
	"github.com/apache/colbatch/go/colbatch/ipc"
	"github.com/apache/colbatch/go/colbatch/memory"
	"go.uber.org/zap"
)

func TestLsFile(t *testing.T) {
	for _, tc := range []struct {
		name string
		want string
	}{
		{
			name: "names",
			want: `magic: COLBAT01
schema:
  fields: 3
    - first: type=utf8
    - middle: type=utf8, nullable
    - last: type=utf8
records: 1
  record 1: rows=5 offset=45 bytes=209 raw=192 codec=UNCOMPRESSED
`,
		},
		{
			name: "no_records",
			want: `magic: COLBAT01
schema:
  fields: 3
    - first: type=utf8
    - middle: type=utf8, nullable
    - last: type=utf8
records: 0
`,
		},
		{
			name: "strings",
			want: `magic: COLBAT01
schema:
  fields: 2
    - strings: type=utf8, nullable
    - bytes: type=binary, nullable
records: 3
  record 1: rows=5 offset=36 bytes=105 raw=88 codec=UNCOMPRESSED
  record 2: rows=5 offset=141 bytes=111 raw=94 codec=UNCOMPRESSED
  record 3: rows=5 offset=252 bytes=117 raw=100 codec=UNCOMPRESSED
`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
			defer mem.AssertSize(t, 0)

			fname := filepath.Join(t.TempDir(), tc.name+".cb")
			f, err := os.Create(fname)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()

			batchdata.WriteFile(t, f, mem, batchdata.Schema(tc.name), batchdata.Records[tc.name])

			w := new(bytes.Buffer)
			err = processFile(w, fname, zap.NewNop())
			if err != nil {
				t.Fatal(err)
			}

			if got, want := w.String(), tc.want; got != want {
				t.Fatalf("invalid output:\ngot:\n%s\nwant:\n%s\n", got, want)
			}

			raw, err := os.ReadFile(fname)
			if err != nil {
				t.Fatal(err)
			}
			w.Reset()
			err = processStream(w, bytes.NewReader(raw), zap.NewNop())
			if err != nil {
				t.Fatal(err)
			}
			if got, want := w.String(), tc.want; got != want {
				t.Fatalf("invalid stream output:\ngot:\n%s\nwant:\n%s\n", got, want)
			}
		})
	}
}

func TestLsTruncated(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	fname := filepath.Join(t.TempDir(), "names.cb")
	f, err := os.Create(fname)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	batchdata.WriteFile(t, f, mem, batchdata.Schema("names"), batchdata.Records["names"])

	raw, err := os.ReadFile(fname)
	if err != nil {
		t.Fatal(err)
	}

	err = processStream(new(bytes.Buffer), bytes.NewReader(raw[:len(raw)-3]), zap.NewNop())
	if !errors.Is(err, ipc.ErrFormat) {
		t.Fatalf("invalid error: %v", err)
	}
}
