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

// Command colbatch-cat displays the content of colbatch files.
//
// Examples:
//
//	$> colbatch-cat ./testdata/names.cb
//	record 1/1...
//	  col[0] "first": ["Ada" "Alan" "Grace" "Edsger" "Barbara"]
//	  col[1] "middle": [(null) "Mathison" "Brewster" "Wybe" "Jane"]
//	  col[2] "last": ["Lovelace" "Turing" "Hopper" "Dijkstra" "Liskov"]
//
//	$> colbatch-cat --json ./testdata/names.cb
//	[{"first":"Ada","middle":null,"last":"Lovelace"},...]
package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/apache/colbatch/go/colbatch/array"
	"github.com/apache/colbatch/go/colbatch/internal/json"
	"github.com/apache/colbatch/go/colbatch/ipc"
	"github.com/apache/colbatch/go/colbatch/memory"
	"github.com/docopt/docopt-go"
	"go.uber.org/zap"
)

const usage = `Command colbatch-cat displays the content of colbatch files.
Usage:
  colbatch-cat -h | --help
  colbatch-cat [--json] [--verbose] [<file>...]
Options:
  -h --help     Show this screen.
  --json        Print every record as a JSON array of rows, one per line.
  --verbose     Log decoding steps to stderr.

With no file, the stream is read from the standard input.`

type config struct {
	JSON    bool     `docopt:"--json"`
	Verbose bool     `docopt:"--verbose"`
	Files   []string `docopt:"<file>"`
}

func main() {
	log.SetPrefix("colbatch-cat: ")
	log.SetFlags(0)

	opts, _ := docopt.ParseDoc(usage)
	var cfg config
	if err := opts.Bind(&cfg); err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	switch len(cfg.Files) {
	case 0:
		err = processStream(os.Stdout, os.Stdin, cfg, logger)
	default:
		err = processFiles(os.Stdout, cfg, logger)
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

func processStream(w io.Writer, rin io.Reader, cfg config, logger *zap.Logger) error {
	buf, err := io.ReadAll(rin)
	if err != nil {
		return fmt.Errorf("could not read stream: %w", err)
	}
	return process(w, bytes.NewReader(buf), cfg, logger)
}

func processFiles(w io.Writer, cfg config, logger *zap.Logger) error {
	for _, name := range cfg.Files {
		err := processFile(w, name, cfg, logger)
		if err != nil {
			return err
		}
	}
	return nil
}

func processFile(w io.Writer, fname string, cfg config, logger *zap.Logger) error {
	f, err := os.Open(fname)
	if err != nil {
		return err
	}
	defer f.Close()

	return process(w, f, cfg, logger.With(zap.String("file", fname)))
}

func process(w io.Writer, rs ipc.ReadAtSeeker, cfg config, logger *zap.Logger) error {
	mem := memory.NewGoAllocator()

	r, err := ipc.NewFileReader(rs, ipc.WithAllocator(mem), ipc.WithLogger(logger))
	if err != nil {
		return err
	}
	defer r.Close()

	it := r.Records()
	defer it.Release()

	n := 0
	for it.Next() {
		n++
		if cfg.JSON {
			err = printJSON(w, it.Record())
		} else {
			err = printText(w, it.Record(), n, r.NumRecords())
		}
		if err != nil {
			return err
		}
	}
	return it.Err()
}

func printText(w io.Writer, rec *array.Record, n, total int) error {
	fmt.Fprintf(w, "record %d/%d...\n", n, total)
	for i, col := range rec.Columns() {
		if _, err := fmt.Fprintf(w, "  col[%d] %q: %v\n", i, rec.ColumnName(i), col); err != nil {
			return err
		}
	}
	return nil
}

func printJSON(w io.Writer, rec *array.Record) error {
	buf, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("could not encode record: %w", err)
	}
	buf = append(buf, '\n')
	_, err = w.Write(buf)
	return err
}
