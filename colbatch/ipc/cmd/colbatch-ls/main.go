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

// Command colbatch-ls displays the listing of colbatch files.
//
// Examples:
//
//	$> colbatch-ls ./testdata/names.cb
//	magic: COLBAT01
//	schema:
//	  fields: 3
//	    - first: type=utf8
//	    - middle: type=utf8, nullable
//	    - last: type=utf8
//	records: 1
//	  record 1: rows=5 offset=45 bytes=209 raw=192 codec=UNCOMPRESSED
//
//	$> cat ./testdata/names.cb | colbatch-ls
package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/apache/colbatch/go/colbatch/ipc"
	"github.com/apache/colbatch/go/colbatch/memory"
	"github.com/docopt/docopt-go"
	"go.uber.org/zap"
)

const usage = `Command colbatch-ls displays the listing of colbatch files.
Usage:
  colbatch-ls -h | --help
  colbatch-ls [--verbose] [<file>...]
Options:
  -h --help     Show this screen.
  --verbose     Log decoding steps to stderr.

With no file, the stream is read from the standard input.`

func main() {
	log.SetPrefix("colbatch-ls: ")
	log.SetFlags(0)

	opts, _ := docopt.ParseDoc(usage)
	var config struct {
		Verbose bool     `docopt:"--verbose"`
		Files   []string `docopt:"<file>"`
	}
	if err := opts.Bind(&config); err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(config.Verbose)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	switch len(config.Files) {
	case 0:
		err = processStream(os.Stdout, os.Stdin, logger)
	default:
		err = processFiles(os.Stdout, config.Files, logger)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level.SetLevel(zap.DebugLevel)
	}
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// processStream lists a stream read whole from rin, which need not be
// seekable.
func processStream(w io.Writer, rin io.Reader, logger *zap.Logger) error {
	buf, err := io.ReadAll(rin)
	if err != nil {
		return fmt.Errorf("could not read stream: %w", err)
	}
	return process(w, bytes.NewReader(buf), logger)
}

func processFiles(w io.Writer, names []string, logger *zap.Logger) error {
	for _, name := range names {
		err := processFile(w, name, logger)
		if err != nil {
			return err
		}
	}
	return nil
}

func processFile(w io.Writer, fname string, logger *zap.Logger) error {
	f, err := os.Open(fname)
	if err != nil {
		return err
	}
	defer f.Close()

	return process(w, f, logger.With(zap.String("file", fname)))
}

func process(w io.Writer, rs ipc.ReadAtSeeker, logger *zap.Logger) error {
	mem := memory.NewGoAllocator()

	r, err := ipc.NewFileReader(rs, ipc.WithAllocator(mem), ipc.WithLogger(logger))
	if err != nil {
		return err
	}
	defer r.Close()

	fmt.Fprintf(w, "magic: %s\n", ipc.Magic)
	fmt.Fprintf(w, "%v\n", r.Schema())
	fmt.Fprintf(w, "records: %d\n", r.NumRecords())

	for i := 0; i < r.NumRecords(); i++ {
		blk, err := r.Block(i)
		if err != nil {
			return err
		}
		rec, err := r.Record(i)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  record %d: rows=%d offset=%d bytes=%d raw=%d codec=%v\n",
			i+1, rec.NumRows(), blk.Offset, blk.Length, blk.UncompressedLen, blk.Codec)
		rec.Release()
	}

	return nil
}
