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
	"strings"
)

// Package core defines the record type and function adapters shared by every stage
// of the cleaning pipeline.

// Record represents a single row in the pipeline.
// Each record maps column names to values. A nil value is the missing-marker:
// the column exists for this row but holds no usable value.
type Record map[string]interface{}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IsEmpty reports whether every field of the record is missing.
func (r Record) IsEmpty() bool {
	for _, v := range r {
		if !IsMissing(v) {
			return false
		}
	}
	return true
}

// IsMissing reports whether v is the missing-marker or a whitespace-only string.
func IsMissing(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}

// TransformFunc is a function adapter for the Transformer interface.
type TransformFunc func(ctx context.Context, record Record) (Record, error)

// Transform implements the Transformer interface for TransformFunc.
func (f TransformFunc) Transform(ctx context.Context, record Record) (Record, error) {
	return f(ctx, record)
}

// FilterFunc is a function adapter for the Filter interface.
type FilterFunc func(ctx context.Context, record Record) (bool, error)

// ShouldInclude implements the Filter interface for FilterFunc.
func (f FilterFunc) ShouldInclude(ctx context.Context, record Record) (bool, error) {
	return f(ctx, record)
}

// BatchTransformFunc is a function adapter for the BatchTransformer interface.
type BatchTransformFunc func(ctx context.Context, records []Record) ([]Record, error)

// TransformBatch implements the BatchTransformer interface for BatchTransformFunc.
func (f BatchTransformFunc) TransformBatch(ctx context.Context, records []Record) ([]Record, error) {
	return f(ctx, records)
}

// ValidatorFunc is a function adapter for the Validator interface.
type ValidatorFunc func(ctx context.Context, records []Record) error

// Validate implements the Validator interface for ValidatorFunc.
func (f ValidatorFunc) Validate(ctx context.Context, records []Record) error {
	return f(ctx, records)
}
