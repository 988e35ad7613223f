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
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet"
	"github.com/apache/arrow/go/v12/parquet/compress"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	"github.com/Atim-01/imdbclean/core"
)

// Package writers provides core.DataSink implementations for the cleaned dataset.
//
// This file implements a batching Parquet writer. The Arrow schema is either given
// explicitly or inferred from the first batch: each column takes the type of its first
// non-missing value, so a column that starts with missing values is still typed.

// ParquetWriterError wraps Parquet-specific write errors with context about the operation.
type ParquetWriterError struct {
	Op  string // Operation that failed (e.g., "schema", "write_batch", "close_writer")
	Err error  // Underlying error
}

// Error returns the error string for ParquetWriterError.
func (e *ParquetWriterError) Error() string {
	return fmt.Sprintf("parquet writer %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for ParquetWriterError.
func (e *ParquetWriterError) Unwrap() error {
	return e.Err
}

// WriterStats holds statistics about the Parquet writer.
type WriterStats struct {
	RecordsWritten  int64
	BatchesWritten  int64
	FlushDuration   time.Duration
	LastFlushTime   time.Time
	NullValueCounts map[string]int64
}

// ParquetWriterOptions configures the Parquet writer.
type ParquetWriterOptions struct {
	BatchSize    int64                // Number of records to buffer before writing
	Schema       *arrow.Schema        // Pre-defined schema (optional)
	Compression  compress.Compression // Compression algorithm
	FieldOrder   []string             // Explicit field ordering for inferred schemas
	RowGroupSize int64                // Maximum rows per row group
	Metadata     map[string]string    // Schema metadata
}

// WriterOption represents a configuration function for ParquetWriterOptions.
type WriterOption func(*ParquetWriterOptions)

// WithBatchSize sets the number of records to buffer before writing a batch.
func WithBatchSize(size int64) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.BatchSize = size
	}
}

// WithCompression sets the Parquet compression algorithm.
func WithCompression(compression compress.Compression) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.Compression = compression
	}
}

// WithFieldOrder sets the column order of an inferred schema. Columns found in the
// data but not listed follow in sorted order.
func WithFieldOrder(fields []string) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.FieldOrder = append([]string(nil), fields...)
	}
}

// WithSchema fixes the Arrow schema instead of inferring it.
func WithSchema(schema *arrow.Schema) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.Schema = schema
	}
}

// WithRowGroupSize sets the row group size for the Parquet file.
func WithRowGroupSize(size int64) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.RowGroupSize = size
	}
}

// WithMetadata sets schema metadata for the Parquet file.
func WithMetadata(metadata map[string]string) WriterOption {
	return func(opts *ParquetWriterOptions) {
		if opts.Metadata == nil {
			opts.Metadata = make(map[string]string)
		}
		for k, v := range metadata {
			opts.Metadata[k] = v
		}
	}
}

// withDefaults applies default values to ParquetWriterOptions.
func (opts *ParquetWriterOptions) withDefaults() *ParquetWriterOptions {
	result := &ParquetWriterOptions{}
	if opts != nil {
		*result = *opts
	}
	if result.BatchSize <= 0 {
		result.BatchSize = 1000
	}
	if result.RowGroupSize <= 0 {
		result.RowGroupSize = 10000
	}
	if result.Compression == 0 {
		result.Compression = compress.Codecs.Snappy
	}
	return result
}

// ParquetWriter implements core.DataSink for Parquet output.
type ParquetWriter struct {
	out          io.Writer
	closer       io.Closer
	writer       *pqarrow.FileWriter
	schema       *arrow.Schema
	builder      *array.RecordBuilder
	allocator    memory.Allocator
	opts         *ParquetWriterOptions
	recordBuffer []core.Record
	stats        WriterStats
	closed       bool
	errorState   bool
	mu           sync.Mutex
}

// sinkWriter hides Close from the Parquet library so the writer closes the
// destination exactly once.
type sinkWriter struct {
	io.Writer
}

// NewParquetWriter creates a Parquet writer on w. Close flushes the footer and closes w.
func NewParquetWriter(w io.WriteCloser, options ...WriterOption) (*ParquetWriter, error) {
	opts := (&ParquetWriterOptions{}).withDefaults()
	for _, option := range options {
		option(opts)
	}
	opts = opts.withDefaults()

	return &ParquetWriter{
		out:          sinkWriter{w},
		closer:       w,
		schema:       opts.Schema,
		allocator:    memory.NewGoAllocator(),
		opts:         opts,
		recordBuffer: make([]core.Record, 0, opts.BatchSize),
		stats:        WriterStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// Stats returns the current statistics of the Parquet writer.
func (p *ParquetWriter) Stats() WriterStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	stats := p.stats
	stats.NullValueCounts = make(map[string]int64, len(p.stats.NullValueCounts))
	for k, v := range p.stats.NullValueCounts {
		stats.NullValueCounts[k] = v
	}
	return stats
}

// Schema returns the schema in use, or nil before the first batch is written.
func (p *ParquetWriter) Schema() *arrow.Schema {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.schema
}

// Write implements the core.DataSink interface.
func (p *ParquetWriter) Write(ctx context.Context, record core.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return &ParquetWriterError{Op: "write", Err: fmt.Errorf("parquet writer is closed")}
	}
	if p.errorState {
		return &ParquetWriterError{Op: "write", Err: fmt.Errorf("writer is in error state")}
	}

	p.recordBuffer = append(p.recordBuffer, record)
	p.stats.RecordsWritten++

	if int64(len(p.recordBuffer)) >= p.opts.BatchSize {
		if err := p.flushBatch(); err != nil {
			p.errorState = true
			return err
		}
	}
	return nil
}

// Flush implements the core.DataSink interface.
func (p *ParquetWriter) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.errorState {
		return nil
	}
	return p.flushBatch()
}

// Close implements the core.DataSink interface. It writes the file footer and closes
// the destination. A writer that never received a record still needs a schema to
// produce a valid file; without one nothing is written.
func (p *ParquetWriter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var firstErr error
	if !p.errorState {
		if err := p.flushBatch(); err != nil {
			firstErr = err
		}
		if firstErr == nil && p.writer == nil && p.schema != nil {
			firstErr = p.openWriter()
		}
	}

	if p.builder != nil {
		p.builder.Release()
		p.builder = nil
	}
	if p.writer != nil {
		if err := p.writer.Close(); err != nil && firstErr == nil {
			firstErr = &ParquetWriterError{Op: "close_writer", Err: err}
		}
		p.writer = nil
	}
	if p.closer != nil {
		if err := p.closer.Close(); err != nil && firstErr == nil {
			firstErr = &ParquetWriterError{Op: "close_output", Err: err}
		}
	}
	return firstErr
}

// flushBatch writes the buffered records as one Arrow record batch (must hold mutex).
func (p *ParquetWriter) flushBatch() error {
	if len(p.recordBuffer) == 0 {
		return nil
	}
	start := time.Now()

	if p.schema == nil {
		schema, err := InferArrowSchema(p.recordBuffer, p.opts.FieldOrder, p.opts.Metadata)
		if err != nil {
			return &ParquetWriterError{Op: "schema", Err: err}
		}
		p.schema = schema
	}
	if p.writer == nil {
		if err := p.openWriter(); err != nil {
			return err
		}
	}

	for _, record := range p.recordBuffer {
		for i, field := range p.schema.Fields() {
			value, exists := record[field.Name]
			if !exists || value == nil {
				p.builder.Field(i).AppendNull()
				p.stats.NullValueCounts[field.Name]++
				continue
			}
			if err := appendArrowValue(p.builder.Field(i), value); err != nil {
				return &ParquetWriterError{
					Op:  "append_value",
					Err: fmt.Errorf("field %s: %w", field.Name, err),
				}
			}
		}
	}

	rec := p.builder.NewRecord()
	defer rec.Release()
	if err := p.writer.Write(rec); err != nil {
		return &ParquetWriterError{Op: "write_batch", Err: err}
	}

	p.stats.BatchesWritten++
	p.stats.FlushDuration += time.Since(start)
	p.stats.LastFlushTime = time.Now()
	p.recordBuffer = p.recordBuffer[:0]
	return nil
}

func (p *ParquetWriter) openWriter() error {
	props := parquet.NewWriterProperties(
		parquet.WithCompression(p.opts.Compression),
		parquet.WithMaxRowGroupLength(p.opts.RowGroupSize),
	)
	writer, err := pqarrow.NewFileWriter(p.schema, p.out, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return &ParquetWriterError{Op: "create_writer", Err: err}
	}
	p.writer = writer
	p.builder = array.NewRecordBuilder(p.allocator, p.schema)
	return nil
}

// InferArrowSchema builds a nullable schema from records. Each column takes the type of
// its first non-missing value; columns that are missing everywhere are strings.
func InferArrowSchema(records []core.Record, order []string, metadata map[string]string) (*arrow.Schema, error) {
	types := make(map[string]arrow.DataType)
	for _, record := range records {
		for name, value := range record {
			if _, known := types[name]; known && types[name] != nil {
				continue
			}
			if value == nil {
				if _, known := types[name]; !known {
					types[name] = nil
				}
				continue
			}
			dt, err := inferArrowType(value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", name, err)
			}
			types[name] = dt
		}
	}

	names := make([]string, 0, len(types))
	used := make(map[string]bool, len(types))
	for _, name := range order {
		if _, ok := types[name]; ok && !used[name] {
			names = append(names, name)
			used[name] = true
		}
	}
	var rest []string
	for name := range types {
		if !used[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	names = append(names, rest...)

	fields := make([]arrow.Field, len(names))
	for i, name := range names {
		dt := types[name]
		if dt == nil {
			dt = arrow.BinaryTypes.String
		}
		fields[i] = arrow.Field{Name: name, Type: dt, Nullable: true}
	}

	var md *arrow.Metadata
	if len(metadata) > 0 {
		m := arrow.MetadataFrom(metadata)
		md = &m
	}
	return arrow.NewSchema(fields, md), nil
}

// inferArrowType infers the Arrow data type from a Go value.
func inferArrowType(value interface{}) (arrow.DataType, error) {
	switch value.(type) {
	case bool:
		return arrow.FixedWidthTypes.Boolean, nil
	case int, int32, int64:
		return arrow.PrimitiveTypes.Int64, nil
	case float32, float64:
		return arrow.PrimitiveTypes.Float64, nil
	case string:
		return arrow.BinaryTypes.String, nil
	case time.Time:
		return arrow.FixedWidthTypes.Timestamp_us, nil
	default:
		return nil, fmt.Errorf("unsupported type %T for value %v", value, value)
	}
}

// appendArrowValue appends value to b, converting between compatible Go types.
func appendArrowValue(b array.Builder, value interface{}) error {
	switch builder := b.(type) {
	case *array.BooleanBuilder:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		builder.Append(v)
	case *array.Int64Builder:
		switch v := value.(type) {
		case int:
			builder.Append(int64(v))
		case int32:
			builder.Append(int64(v))
		case int64:
			builder.Append(v)
		default:
			return fmt.Errorf("expected integer, got %T", value)
		}
	case *array.Float64Builder:
		switch v := value.(type) {
		case float64:
			builder.Append(v)
		case float32:
			builder.Append(float64(v))
		case int:
			builder.Append(float64(v))
		case int64:
			builder.Append(float64(v))
		default:
			return fmt.Errorf("expected float, got %T", value)
		}
	case *array.StringBuilder:
		builder.Append(FormatValue(value, DateLayout))
	case *array.TimestampBuilder:
		v, ok := value.(time.Time)
		if !ok {
			return fmt.Errorf("expected time.Time, got %T", value)
		}
		builder.Append(arrow.Timestamp(v.UnixMicro()))
	default:
		return fmt.Errorf("unsupported builder type %T", b)
	}
	return nil
}
