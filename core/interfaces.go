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

package core

import (
	"context"
)

// Package core defines the stage interfaces of the cleaning pipeline.
//
// A run reads every row from a DataSource, applies BatchTransformers that need the whole
// row set (such as dropping all-empty columns), applies per-row Transformers and Filters,
// checks the result with Validators and finally writes it to one or more DataSinks.

// DataSource defines the interface for data extraction.
type DataSource interface {
	// Read returns the next record or io.EOF when no more records are available.
	Read(ctx context.Context) (Record, error)
	// Close releases any resources held by the data source.
	Close() error
}

// DataSink defines the interface for data loading.
type DataSink interface {
	// Write outputs a single record to the sink.
	Write(ctx context.Context, record Record) error
	// Flush ensures all buffered data is written to the sink.
	Flush() error
	// Close releases any resources held by the data sink.
	Close() error
}

// Transformer modifies a single record.
type Transformer interface {
	// Transform applies the transformation to a record and returns the result.
	Transform(ctx context.Context, record Record) (Record, error)
}

// BatchTransformer operates on the full row set at once.
// It is used for rules whose decision depends on every row, not just the current one.
type BatchTransformer interface {
	TransformBatch(ctx context.Context, records []Record) ([]Record, error)
}

// Filter determines whether a record should be included in the output.
type Filter interface {
	// ShouldInclude returns true if the record should be included in the output.
	ShouldInclude(ctx context.Context, record Record) (bool, error)
}

// Validator inspects the final row set before it is persisted.
// A non-nil error rejects the whole set.
type Validator interface {
	Validate(ctx context.Context, records []Record) error
}

// Aggregator processes multiple records and produces a summary record.
type Aggregator interface {
	// Add processes a record for aggregation.
	Add(ctx context.Context, record Record) error
	// Result returns the aggregated result as a Record.
	Result() (Record, error)
	// Reset clears the aggregator state for reuse.
	Reset()
}
