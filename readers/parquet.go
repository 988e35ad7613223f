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
	"context"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet"
	"github.com/apache/arrow/go/v12/parquet/file"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	"github.com/Atim-01/imdbclean/core"
)

// ParquetReaderError provides structured error information for parquet reader operations
type ParquetReaderError struct {
	Op  string // Operation that failed (e.g., "read", "load_batch", "schema")
	Err error  // Underlying error
}

func (e *ParquetReaderError) Error() string {
	return fmt.Sprintf("parquet reader %s: %v", e.Op, e.Err)
}

func (e *ParquetReaderError) Unwrap() error {
	return e.Err
}

// ParquetReaderStats holds statistics about the Parquet reader.
type ParquetReaderStats struct {
	RecordsRead     int64
	BatchesRead     int64
	ReadDuration    time.Duration
	LastReadTime    time.Time
	NullValueCounts map[string]int64
}

// ParquetReaderOptions configures the Parquet reader.
type ParquetReaderOptions struct {
	BatchSize int64    // Rows per batch
	Columns   []string // Optional column projection
}

// ParquetReaderOption represents a configuration function.
type ParquetReaderOption func(*ParquetReaderOptions)

func WithParquetBatchSize(size int64) ParquetReaderOption {
	return func(opts *ParquetReaderOptions) {
		opts.BatchSize = size
	}
}

// WithColumns reads only the named columns.
func WithColumns(columns ...string) ParquetReaderOption {
	return func(opts *ParquetReaderOptions) {
		opts.Columns = append([]string(nil), columns...)
	}
}

// ParquetReader implements core.DataSource for Parquet data.
type ParquetReader struct {
	source          parquet.ReaderAtSeeker
	reader          *file.Reader
	recordReader    pqarrow.RecordReader
	currentBatch    arrow.Record
	currentBatchIdx int
	schema          *arrow.Schema
	stats           ParquetReaderStats
}

// NewParquetReader prepares an Arrow record reader over r. If r is an io.Closer it is
// closed by Close.
func NewParquetReader(r parquet.ReaderAtSeeker, options ...ParquetReaderOption) (*ParquetReader, error) {
	opts := &ParquetReaderOptions{BatchSize: 1000}
	for _, option := range options {
		option(opts)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}

	pr, err := file.NewParquetReader(r)
	if err != nil {
		closeSource(r)
		return nil, &ParquetReaderError{Op: "create_reader", Err: err}
	}

	arrowReader, err := pqarrow.NewFileReader(pr, pqarrow.ArrowReadProperties{BatchSize: opts.BatchSize}, memory.NewGoAllocator())
	if err != nil {
		closeSource(r)
		return nil, &ParquetReaderError{Op: "create_arrow_reader", Err: err}
	}

	schema, err := arrowReader.Schema()
	if err != nil {
		closeSource(r)
		return nil, &ParquetReaderError{Op: "schema", Err: err}
	}

	var colIndices []int
	for _, name := range opts.Columns {
		indices := schema.FieldIndices(name)
		if len(indices) == 0 {
			closeSource(r)
			return nil, &ParquetReaderError{Op: "column_projection", Err: fmt.Errorf("column %q not found in schema", name)}
		}
		colIndices = append(colIndices, indices[0])
	}

	recordReader, err := arrowReader.GetRecordReader(context.Background(), colIndices, nil)
	if err != nil {
		closeSource(r)
		return nil, &ParquetReaderError{Op: "create_record_reader", Err: err}
	}

	return &ParquetReader{
		source:       r,
		reader:       pr,
		recordReader: recordReader,
		schema:       recordReader.Schema(),
		stats:        ParquetReaderStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// Read returns the next row, or io.EOF once every batch is consumed.
func (p *ParquetReader) Read(ctx context.Context) (core.Record, error) {
	startTime := time.Now()
	defer func() {
		p.stats.ReadDuration += time.Since(startTime)
		p.stats.LastReadTime = time.Now()
	}()

	if err := ctx.Err(); err != nil {
		return nil, &ParquetReaderError{Op: "read", Err: err}
	}

	for p.currentBatch == nil || p.currentBatchIdx >= int(p.currentBatch.NumRows()) {
		if err := p.loadNextBatch(); err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, &ParquetReaderError{Op: "load_batch", Err: err}
		}
	}

	result := p.extractRecord(p.currentBatch, p.currentBatchIdx)
	p.currentBatchIdx++
	p.stats.RecordsRead++
	return result, nil
}

// Close releases Arrow buffers and closes the source.
func (p *ParquetReader) Close() error {
	if p.currentBatch != nil {
		p.currentBatch.Release()
		p.currentBatch = nil
	}
	if p.recordReader != nil {
		p.recordReader.Release()
		p.recordReader = nil
	}
	if p.source != nil {
		src := p.source
		p.source = nil
		if c, ok := src.(io.Closer); ok {
			return c.Close()
		}
	}
	return nil
}

// Schema returns the Arrow schema of the projected columns.
func (p *ParquetReader) Schema() *arrow.Schema {
	return p.schema
}

// NumRows returns the row count stored in the file metadata.
func (p *ParquetReader) NumRows() int64 {
	return p.reader.NumRows()
}

func (p *ParquetReader) Stats() ParquetReaderStats {
	return p.stats
}

func (p *ParquetReader) loadNextBatch() error {
	if p.currentBatch != nil {
		p.currentBatch.Release()
		p.currentBatch = nil
	}
	rec, err := p.recordReader.Read()
	if err != nil {
		return err
	}
	if rec == nil {
		return io.EOF
	}
	rec.Retain()
	p.currentBatch = rec
	p.currentBatchIdx = 0
	p.stats.BatchesRead++
	return nil
}

func (p *ParquetReader) extractRecord(batch arrow.Record, row int) core.Record {
	res := make(core.Record, batch.NumCols())
	sch := batch.Schema()
	for i := 0; i < int(batch.NumCols()); i++ {
		name := sch.Field(i).Name
		col := batch.Column(i)
		if col.IsNull(row) {
			p.stats.NullValueCounts[name]++
			res[name] = nil
			continue
		}
		res[name] = columnValue(col, row)
	}
	return res
}

// columnValue converts one Arrow cell to the Go value the cleaning package produces.
func columnValue(col arrow.Array, row int) interface{} {
	switch arr := col.(type) {
	case *array.Boolean:
		return arr.Value(row)
	case *array.Int32:
		return int64(arr.Value(row))
	case *array.Int64:
		return arr.Value(row)
	case *array.Float32:
		return float64(arr.Value(row))
	case *array.Float64:
		return arr.Value(row)
	case *array.String:
		return arr.Value(row)
	case *array.Binary:
		return string(arr.Value(row))
	case *array.Timestamp:
		unit := arr.DataType().(*arrow.TimestampType).Unit
		return arr.Value(row).ToTime(unit).UTC()
	case *array.Date32:
		return arr.Value(row).ToTime().UTC()
	case *array.Date64:
		return arr.Value(row).ToTime().UTC()
	default:
		return fmt.Sprintf("%v", arr.GetOneForMarshal(row))
	}
}

func closeSource(r parquet.ReaderAtSeeker) {
	if c, ok := r.(io.Closer); ok {
		_ = c.Close()
	}
}
