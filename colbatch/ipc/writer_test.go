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
	"context"
	"errors"
	"math"
	"testing"

	"github.com/apache/colbatch/go/colbatch"
	"github.com/apache/colbatch/go/colbatch/array"
	"github.com/apache/colbatch/go/colbatch/compress"
	"github.com/apache/colbatch/go/colbatch/internal/batchdata"
	"github.com/apache/colbatch/go/colbatch/ipc"
	"github.com/apache/colbatch/go/colbatch/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func makeRecord(t *testing.T, mem memory.Allocator, fields ...colbatch.Field) *array.Record {
	t.Helper()

	schema, err := colbatch.NewSchema(fields)
	require.NoError(t, err)

	cols := make([]array.Interface, len(fields))
	for i, f := range fields {
		b := array.NewBuilder(mem, f.Type)
		for j := 0; j < 3; j++ {
			switch b := b.(type) {
			case *array.Int32Builder:
				b.Append(int32(j))
			case *array.Int64Builder:
				b.Append(int64(j))
			case *array.StringBuilder:
				b.Append("v")
			default:
				t.Fatalf("unexpected builder %T", b)
			}
		}
		cols[i] = b.NewArray()
		b.Release()
	}

	rec, err := array.NewRecord(schema, cols)
	require.NoError(t, err)
	return rec
}

func TestWriterSchemaMismatch(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	var (
		a32 = colbatch.Field{Name: "a", Type: colbatch.PrimitiveTypes.Int32}
		a64 = colbatch.Field{Name: "a", Type: colbatch.PrimitiveTypes.Int64}
		b   = colbatch.Field{Name: "b", Type: colbatch.BinaryTypes.String}
	)

	want := makeRecord(t, mem, a32, b)
	defer want.Release()

	for _, tc := range []struct {
		name   string
		fields []colbatch.Field
		kind   colbatch.MismatchKind
		index  int
	}{
		{"count", []colbatch.Field{a32}, colbatch.MismatchCount, -1},
		{"type", []colbatch.Field{a64, b}, colbatch.MismatchType, 0},
		{"order", []colbatch.Field{b, a32}, colbatch.MismatchName, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			w, err := ipc.NewFileWriter(&buf, ipc.WithSchema(want.Schema()), ipc.WithAllocator(mem))
			require.NoError(t, err)

			rec := makeRecord(t, mem, tc.fields...)
			defer rec.Release()

			size := buf.Len()
			err = w.Write(rec)
			assert.ErrorIs(t, err, colbatch.ErrSchemaMismatch)

			var sme *colbatch.SchemaMismatchError
			require.ErrorAs(t, err, &sme)
			assert.Equal(t, tc.kind, sme.Kind)
			assert.Equal(t, tc.index, sme.Index)
			assert.Equal(t, size, buf.Len(), "nothing is written on mismatch")

			// the writer is still usable.
			require.NoError(t, w.Write(want))
			require.NoError(t, w.Close())
			assert.Equal(t, 1, w.NumRecords())
		})
	}
}

func TestWriterEqualSchema(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	fields := []colbatch.Field{
		{Name: "a", Type: colbatch.PrimitiveTypes.Int32},
		{Name: "b", Type: colbatch.BinaryTypes.String},
	}
	// distinct but equal schemas.
	rec1 := makeRecord(t, mem, fields...)
	defer rec1.Release()
	rec2 := makeRecord(t, mem, fields...)
	defer rec2.Release()
	require.NotSame(t, rec1.Schema(), rec2.Schema())

	data := writeStream(t, mem, []*array.Record{rec1, rec2})

	r, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(mem))
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 2, r.NumRecords())
}

func TestWriterRequiresSchema(t *testing.T) {
	var buf bytes.Buffer
	_, err := ipc.NewFileWriter(&buf)
	assert.ErrorIs(t, err, colbatch.ErrInvalid)
	assert.Zero(t, buf.Len())

	schema := batchdata.Schema("names")
	_, err = ipc.NewFileWriter(&buf, ipc.WithSchema(schema), ipc.WithCompression(compress.Compression(42)))
	assert.ErrorIs(t, err, colbatch.ErrInvalid)
	assert.ErrorIs(t, err, compress.ErrUnknownCodec)
}

func TestWriterClosed(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	recs := batchdata.Records["names"]

	var buf bytes.Buffer
	w, err := ipc.NewFileWriter(&buf, ipc.WithSchema(recs[0].Schema()), ipc.WithAllocator(mem))
	require.NoError(t, err)

	require.NoError(t, w.Write(recs[0]))
	require.NoError(t, w.Close())
	size := buf.Len()

	assert.ErrorIs(t, w.Write(recs[0]), ipc.ErrWriterClosed)
	assert.NoError(t, w.Close())
	assert.Equal(t, size, buf.Len())
	assert.EqualValues(t, size, w.BytesWritten())

	assert.ErrorIs(t, w.Write(nil), ipc.ErrWriterClosed)
}

func TestWriterNilRecord(t *testing.T) {
	var buf bytes.Buffer
	w, err := ipc.NewFileWriter(&buf, ipc.WithSchema(batchdata.Schema("names")))
	require.NoError(t, err)
	defer w.Close()

	assert.ErrorIs(t, w.Write(nil), colbatch.ErrInvalid)
}

// failingWriter accepts limit bytes then fails every write.
type failingWriter struct {
	limit int
	n     int
}

var errDiskFull = errors.New("disk full")

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n+len(p) > w.limit {
		n := w.limit - w.n
		w.n = w.limit
		return n, errDiskFull
	}
	w.n += len(p)
	return len(p), nil
}

func TestWriterStickyError(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	recs := batchdata.Records["primitives"]
	schema := recs[0].Schema()

	t.Run("header", func(t *testing.T) {
		_, err := ipc.NewFileWriter(&failingWriter{limit: 4}, ipc.WithSchema(schema))
		assert.ErrorIs(t, err, errDiskFull)
	})

	t.Run("block", func(t *testing.T) {
		sink := &failingWriter{limit: 200}
		w, err := ipc.NewFileWriter(sink, ipc.WithSchema(schema), ipc.WithAllocator(mem))
		require.NoError(t, err)

		err = w.Write(recs[0])
		assert.ErrorIs(t, err, errDiskFull)
		assert.Equal(t, 0, w.NumRecords())

		assert.ErrorIs(t, w.Write(recs[1]), errDiskFull)
		assert.ErrorIs(t, w.Close(), errDiskFull)
		assert.NoError(t, w.Close())
		assert.ErrorIs(t, w.Write(recs[1]), ipc.ErrWriterClosed)
	})

	t.Run("footer", func(t *testing.T) {
		var buf bytes.Buffer
		w, err := ipc.NewFileWriter(&buf, ipc.WithSchema(schema), ipc.WithAllocator(mem))
		require.NoError(t, err)
		require.NoError(t, w.Write(recs[0]))

		sink := &failingWriter{limit: buf.Len()}
		w, err = ipc.NewFileWriter(sink, ipc.WithSchema(schema), ipc.WithAllocator(mem))
		require.NoError(t, err)
		require.NoError(t, w.Write(recs[0]))
		assert.ErrorIs(t, w.Close(), errDiskFull)
	})
}

func TestWriteWithCompressionAndMinSavings(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	// a batch that is known to be compressible
	bldr := array.NewNumericBuilder[int64](mem)
	for i := 0; i < 1000; i++ {
		bldr.Append(int64(i % 10))
	}
	col := bldr.NewArray()
	bldr.Release()

	schema, err := colbatch.NewSchema([]colbatch.Field{{Name: "n", Type: colbatch.PrimitiveTypes.Int64, Nullable: true}})
	require.NoError(t, err)
	batch, err := array.NewRecord(schema, []array.Interface{col})
	require.NoError(t, err)
	defer batch.Release()

	firstBlock := func(t *testing.T, opts ...ipc.Option) ipc.BlockInfo {
		t.Helper()
		data := writeStream(t, mem, []*array.Record{batch}, opts...)
		r, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(mem))
		require.NoError(t, err)
		defer r.Close()

		rec, err := r.Record(0)
		require.NoError(t, err)
		defer rec.Release()
		assert.True(t, array.RecordEqual(batch, rec))

		blk, err := r.Block(0)
		require.NoError(t, err)
		return blk
	}

	for _, codec := range []compress.Compression{compress.LZ4Frame, compress.Zstd} {
		t.Run(codec.String(), func(t *testing.T) {
			// compute the savings when blocks are compressed unconditionally.
			// We also validate that our test batch is indeed compressible.
			blk := firstBlock(t, ipc.WithCompression(codec))
			require.Equal(t, codec, blk.Codec)
			compressedSize := blk.Length - 17
			uncompressedSize := int64(blk.UncompressedLen)
			assert.Less(t, compressedSize, uncompressedSize)
			assert.Greater(t, compressedSize, int64(0))
			expectedSavings := 1.0 - float64(compressedSize)/float64(uncompressedSize)

			blk = firstBlock(t, ipc.WithCompression(codec), ipc.WithMinSpaceSavings(expectedSavings))
			assert.Equal(t, codec, blk.Codec)
			assert.Equal(t, compressedSize, blk.Length-17)

			// slightly bump the threshold. the block should now be stored
			// uncompressed, under the Uncompressed tag.
			blk = firstBlock(t, ipc.WithCompression(codec), ipc.WithMinSpaceSavings(math.Nextafter(expectedSavings, 1.0)))
			assert.Equal(t, compress.Uncompressed, blk.Codec)
			assert.Equal(t, uncompressedSize, blk.Length-17)
			assert.EqualValues(t, uncompressedSize, blk.UncompressedLen)

			for _, outOfRange := range []float64{math.Nextafter(1.0, 2.0), math.Nextafter(0, -1), math.NaN()} {
				var buf bytes.Buffer
				_, err := ipc.NewFileWriter(&buf, ipc.WithSchema(schema), ipc.WithCompression(codec), ipc.WithMinSpaceSavings(outOfRange))
				assert.ErrorIs(t, err, colbatch.ErrInvalid)
				assert.ErrorContains(t, err, "minSpaceSavings not in range [0,1]")
			}
		})
	}
}

func TestWriterCompressionLevel(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	recs := batchdata.Records["strings"]
	for _, level := range []int{1, 9} {
		data := writeStream(t, mem, recs, ipc.WithCompression(compress.Gzip), ipc.WithCompressionLevel(level))

		r, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(mem))
		require.NoError(t, err)
		all, err := r.ReadAll(context.Background())
		require.NoError(t, err)
		for i, rec := range all {
			assert.True(t, array.RecordEqual(recs[i], rec))
			rec.Release()
		}
		r.Close()
	}

	var buf bytes.Buffer
	w, err := ipc.NewFileWriter(&buf, ipc.WithSchema(recs[0].Schema()), ipc.WithAllocator(mem),
		ipc.WithLZ4(), ipc.WithCompressionLevel(42))
	require.NoError(t, err)
	assert.Error(t, w.Write(recs[0]))
	assert.NoError(t, w.Close())
}

func TestWriterLogger(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	core, logs := observer.New(zap.DebugLevel)
	recs := batchdata.Records["primitives"]
	writeStream(t, mem, recs, ipc.WithLogger(zap.New(core)), ipc.WithLZ4())

	assert.Equal(t, 1, logs.FilterMessage("stream started").Len())
	written := logs.FilterMessage("record written").All()
	require.Len(t, written, len(recs))
	for i, entry := range written {
		fields := entry.ContextMap()
		assert.EqualValues(t, i, fields["record"])
		assert.EqualValues(t, 5, fields["rows"])
		assert.Equal(t, "LZ4_FRAME", fields["codec"])
	}
	assert.Equal(t, 1, logs.FilterMessage("stream finalized").Len())
}
