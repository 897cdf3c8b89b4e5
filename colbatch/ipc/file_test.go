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

package ipc_test

import (
	"bytes"
	"fmt"
	"os"
	"testing"

	"github.com/apache/colbatch/go/colbatch"
	"github.com/apache/colbatch/go/colbatch/array"
	"github.com/apache/colbatch/go/colbatch/compress"
	"github.com/apache/colbatch/go/colbatch/internal/batchdata"
	"github.com/apache/colbatch/go/colbatch/ipc"
	"github.com/apache/colbatch/go/colbatch/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile(t *testing.T) {
	tempDir := t.TempDir()

	for _, name := range batchdata.RecordNames {
		recs := batchdata.Records[name]
		schema := batchdata.Schema(name)
		t.Run(name, func(t *testing.T) {
			mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
			defer mem.AssertSize(t, 0)

			f, err := os.CreateTemp(tempDir, "go-colbatch-file-")
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()

			batchdata.WriteFile(t, f, mem, schema, recs)
			batchdata.CheckFile(t, f, mem, schema, recs)
			batchdata.CheckFileIter(t, f, mem, schema, recs)
			batchdata.CheckFileConcurrent(t, f, mem, schema, recs, 1)
		})
	}
}

func TestFileCompressed(t *testing.T) {
	tempDir := t.TempDir()

	codecs := []compress.Compression{
		compress.LZ4Frame, compress.Zstd, compress.Snappy, compress.Brotli, compress.Gzip,
	}

	for _, codec := range codecs {
		for _, name := range batchdata.RecordNames {
			recs := batchdata.Records[name]
			schema := batchdata.Schema(name)
			for _, n := range []int{1, 2, 3} {
				t.Run(fmt.Sprintf("%s %s concurrency %d", codec, name, n), func(t *testing.T) {
					mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
					defer mem.AssertSize(t, 0)

					f, err := os.CreateTemp(tempDir, "go-colbatch-file-")
					if err != nil {
						t.Fatal(err)
					}
					defer f.Close()

					batchdata.WriteFile(t, f, mem, schema, recs, ipc.WithCompression(codec))
					batchdata.CheckFile(t, f, mem, schema, recs)
					batchdata.CheckFileConcurrent(t, f, mem, schema, recs, n)
				})
			}
		}
	}
}

// TestFileNames writes three string columns of five rows, one of them
// null, without compression and with LZ4 frames: both streams must decode to
// the same record although their sizes differ.
func TestFileNames(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	recs := batchdata.Records["names"]
	schema := batchdata.Schema("names")
	require.Len(t, recs, 1)
	require.EqualValues(t, 5, recs[0].NumRows())
	require.Equal(t, 3, schema.NumFields())

	plain := writeStream(t, mem, recs, ipc.WithCompression(compress.Uncompressed))
	framed := writeStream(t, mem, recs, ipc.WithLZ4())
	assert.NotEqual(t, len(plain), len(framed))

	for _, tc := range []struct {
		name  string
		data  []byte
		codec compress.Compression
	}{
		{"uncompressed", plain, compress.Uncompressed},
		{"lz4", framed, compress.LZ4Frame},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r, err := ipc.NewFileReader(bytes.NewReader(tc.data), ipc.WithAllocator(mem))
			require.NoError(t, err)
			defer r.Close()

			assert.True(t, r.Schema().Equal(schema))
			require.Equal(t, 1, r.NumRecords())

			blk, err := r.Block(0)
			require.NoError(t, err)
			assert.Equal(t, tc.codec, blk.Codec)

			rec, err := r.Record(0)
			require.NoError(t, err)
			defer rec.Release()

			assert.True(t, array.RecordEqual(recs[0], rec))
			assert.EqualValues(t, 1, rec.Column(1).NullN())
			assert.True(t, rec.Column(1).IsNull(0))
			assert.Equal(t, "Hopper", rec.Column(2).(*array.String).Value(2))
		})
	}
}

func TestFileLayout(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	recs := batchdata.Records["primitives"]
	data := writeStream(t, mem, recs, ipc.WithZstd())

	assert.Equal(t, ipc.Magic, data[:len(ipc.Magic)])
	assert.Equal(t, ipc.Magic, data[len(data)-len(ipc.Magic):])

	r, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(mem))
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, len(recs), r.NumRecords())

	var prev ipc.BlockInfo
	for i := 0; i < r.NumRecords(); i++ {
		blk, err := r.Block(i)
		require.NoError(t, err)
		assert.Equal(t, compress.Zstd, blk.Codec)
		assert.Greater(t, blk.Length, int64(17))
		if i > 0 {
			assert.Equal(t, prev.Offset+prev.Length, blk.Offset, "block %d", i)
		}
		prev = blk
	}
}

func TestFileNoRecords(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	schema := batchdata.Schema("names")

	var buf bytes.Buffer
	w, err := ipc.NewFileWriter(&buf, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, 0, w.NumRecords())
	assert.EqualValues(t, buf.Len(), w.BytesWritten())

	r, err := ipc.NewFileReader(bytes.NewReader(buf.Bytes()), ipc.WithAllocator(mem))
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, r.Schema().Equal(schema))
	assert.Equal(t, 0, r.NumRecords())

	it := r.Records()
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}

func TestFileWideStringRecord(t *testing.T) {
	const (
		ncols = 100
		nrows = 100
	)

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	fields := make([]colbatch.Field, ncols)
	cols := make([]array.Interface, ncols)
	for i := range fields {
		fields[i] = colbatch.Field{Name: fmt.Sprintf("c%02d", i), Type: colbatch.BinaryTypes.String, Nullable: true}

		vals := make([]*string, nrows)
		for j := range vals {
			if i%2 == 1 && j%7 == 0 {
				continue
			}
			v := fmt.Sprintf("row %d of column %d", j, i)
			vals[j] = &v
		}
		col, err := array.NewStringArray(mem, vals, true)
		require.NoError(t, err)
		cols[i] = col
	}
	schema, err := colbatch.NewSchema(fields)
	require.NoError(t, err)
	rec, err := array.NewRecord(schema, cols)
	require.NoError(t, err)
	defer rec.Release()

	data := writeStream(t, mem, []*array.Record{rec}, ipc.WithLZ4())

	r, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(mem))
	require.NoError(t, err)
	defer r.Close()

	blk, err := r.Block(0)
	require.NoError(t, err)
	assert.Equal(t, compress.LZ4Frame, blk.Codec)

	got, err := r.Record(0)
	require.NoError(t, err)
	defer got.Release()

	assert.EqualValues(t, nrows, got.NumRows())
	assert.EqualValues(t, ncols, got.NumCols())
	assert.True(t, array.RecordEqual(rec, got), "decoded record differs")
	assert.Equal(t, rec.MemoryFootprint(), got.MemoryFootprint())
	assert.Less(t, int64(len(data)), got.MemoryFootprint())
}

func writeStream(t *testing.T, mem memory.Allocator, recs []*array.Record, opts ...ipc.Option) []byte {
	t.Helper()

	var buf bytes.Buffer
	opts = append([]ipc.Option{ipc.WithSchema(recs[0].Schema()), ipc.WithAllocator(mem)}, opts...)
	w, err := ipc.NewFileWriter(&buf, opts...)
	require.NoError(t, err)

	for i, rec := range recs {
		require.NoError(t, w.Write(rec), "record %d", i)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}
