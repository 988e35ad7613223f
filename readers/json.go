//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of imdbclean.
//
// imdbclean is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// imdbclean is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with imdbclean. If not, see https://www.gnu.org/licenses/.


package readers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Atim-01/imdbclean/core"
)

// JSONReaderError wraps JSON lines read errors with the failing line.
type JSONReaderError struct {
	Op   string
	Line int
	Err  error
}

func (e *JSONReaderError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("json reader %s (line %d): %v", e.Op, e.Line, e.Err)
	}
	return fmt.Sprintf("json reader %s: %v", e.Op, e.Err)
}

func (e *JSONReaderError) Unwrap() error {
	return e.Err
}

// JSONReaderStats holds JSON read statistics.
type JSONReaderStats struct {
	RecordsRead     int64
	BlankLines      int64
	ReadDuration    time.Duration
	NullValueCounts map[string]int64
}

// JSONReader implements DataSource for JSON lines files. Blank lines are skipped
// and numbers decode as float64.
type JSONReader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
	stats   JSONReaderStats
}

// NewJSONReader creates a new JSON reader for line-delimited JSON.
func NewJSONReader(r io.ReadCloser) *JSONReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &JSONReader{
		scanner: scanner,
		closer:  r,
		stats:   JSONReaderStats{NullValueCounts: make(map[string]int64)},
	}
}

// Read implements the DataSource interface.
func (j *JSONReader) Read(ctx context.Context) (core.Record, error) {
	start := time.Now()
	defer func() { j.stats.ReadDuration += time.Since(start) }()

	for {
		if err := ctx.Err(); err != nil {
			return nil, &JSONReaderError{Op: "read", Err: err}
		}
		if !j.scanner.Scan() {
			if err := j.scanner.Err(); err != nil {
				return nil, &JSONReaderError{Op: "scan", Line: j.line + 1, Err: err}
			}
			return nil, io.EOF
		}
		j.line++

		line := bytes.TrimSpace(j.scanner.Bytes())
		if len(line) == 0 {
			j.stats.BlankLines++
			continue
		}

		var record core.Record
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, &JSONReaderError{Op: "decode", Line: j.line, Err: err}
		}
		for k, v := range record {
			if v == nil {
				j.stats.NullValueCounts[k]++
			}
		}
		j.stats.RecordsRead++
		return record, nil
	}
}

// Close implements the DataSource interface.
func (j *JSONReader) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}

func (j *JSONReader) Stats() JSONReaderStats {
	return j.stats
}
