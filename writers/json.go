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

package writers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Atim-01/imdbclean/core"
)

// JSONWriterError wraps JSON-specific write errors with context.
type JSONWriterError struct {
	Op  string
	Err error
}

func (e *JSONWriterError) Error() string {
	return fmt.Sprintf("json writer %s: %v", e.Op, e.Err)
}

func (e *JSONWriterError) Unwrap() error {
	return e.Err
}

// JSONWriterStats holds JSON write statistics.
type JSONWriterStats struct {
	RecordsWritten int64
	FlushCount     int64
	LastFlushTime  time.Time
}

// JSONWriterOptions configures JSON lines output.
type JSONWriterOptions struct {
	BatchSize    int
	FlushOnWrite bool
	// TimeLayout renders time.Time values as strings. Empty keeps the RFC 3339 encoding.
	TimeLayout string
}

// WriterOptionJSON is a functional option.
type WriterOptionJSON func(*JSONWriterOptions)

func WithJSONBatchSize(size int) WriterOptionJSON {
	return func(o *JSONWriterOptions) { o.BatchSize = size }
}

func WithFlushOnWrite(flush bool) WriterOptionJSON {
	return func(o *JSONWriterOptions) { o.FlushOnWrite = flush }
}

func WithJSONTimeLayout(layout string) WriterOptionJSON {
	return func(o *JSONWriterOptions) { o.TimeLayout = layout }
}

// JSONWriter implements DataSink for JSON lines files. Keys of each line are sorted.
type JSONWriter struct {
	buf     *bufio.Writer
	closer  io.Closer
	options JSONWriterOptions
	stats   JSONWriterStats
	pending int
	closed  bool
	mu      sync.Mutex
}

// NewJSONWriter creates a new JSON writer for line-delimited JSON output.
func NewJSONWriter(w io.WriteCloser, opts ...WriterOptionJSON) *JSONWriter {
	options := JSONWriterOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	return &JSONWriter{
		buf:     bufio.NewWriter(w),
		closer:  w,
		options: options,
	}
}

// Write implements the DataSink interface.
func (j *JSONWriter) Write(ctx context.Context, record core.Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return &JSONWriterError{Op: "write", Err: fmt.Errorf("writer is closed")}
	}

	data, err := json.Marshal(j.prepare(record))
	if err != nil {
		return &JSONWriterError{Op: "marshal", Err: err}
	}
	if _, err := j.buf.Write(data); err != nil {
		return &JSONWriterError{Op: "write", Err: err}
	}
	if err := j.buf.WriteByte('\n'); err != nil {
		return &JSONWriterError{Op: "write", Err: err}
	}
	j.stats.RecordsWritten++
	j.pending++

	if j.options.FlushOnWrite || (j.options.BatchSize > 0 && j.pending >= j.options.BatchSize) {
		return j.flushUnsafe()
	}
	return nil
}

// Flush implements the DataSink interface.
func (j *JSONWriter) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	return j.flushUnsafe()
}

// Close implements the DataSink interface. Closing twice is a no-op.
func (j *JSONWriter) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	if err := j.flushUnsafe(); err != nil {
		return err
	}
	j.closed = true
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}

// Stats returns write statistics.
func (j *JSONWriter) Stats() JSONWriterStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stats
}

func (j *JSONWriter) flushUnsafe() error {
	if err := j.buf.Flush(); err != nil {
		return &JSONWriterError{Op: "flush", Err: err}
	}
	j.pending = 0
	j.stats.FlushCount++
	j.stats.LastFlushTime = time.Now()
	return nil
}

func (j *JSONWriter) prepare(record core.Record) core.Record {
	if j.options.TimeLayout == "" {
		return record
	}
	var out core.Record
	for k, v := range record {
		if t, ok := v.(time.Time); ok {
			if out == nil {
				out = record.Clone()
			}
			out[k] = t.Format(j.options.TimeLayout)
		}
	}
	if out == nil {
		return record
	}
	return out
}
