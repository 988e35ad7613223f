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

package transform

import (
	"context"
	"sort"

	"github.com/Atim-01/imdbclean/core"
)

// DropEmptyColumnsOption configures DropEmptyColumns.
type DropEmptyColumnsOption func(*dropEmptyColumns)

type dropEmptyColumns struct {
	onDrop func(column string)
	keep   map[string]bool
}

// WithOnDrop registers a callback invoked once per dropped column, in sorted order.
func WithOnDrop(fn func(column string)) DropEmptyColumnsOption {
	return func(d *dropEmptyColumns) { d.onDrop = fn }
}

// WithKeepColumns protects the listed columns from removal.
func WithKeepColumns(columns ...string) DropEmptyColumnsOption {
	return func(d *dropEmptyColumns) {
		for _, c := range columns {
			d.keep[c] = true
		}
	}
}

// DropEmptyColumns removes every column whose value is missing in all rows.
// The decision is made by scanning the full row set, never from the column name.
// An empty row set is returned unchanged.
func DropEmptyColumns(opts ...DropEmptyColumnsOption) core.BatchTransformer {
	d := &dropEmptyColumns{keep: make(map[string]bool)}
	for _, opt := range opts {
		opt(d)
	}

	return core.BatchTransformFunc(func(ctx context.Context, records []core.Record) ([]core.Record, error) {
		if len(records) == 0 {
			return records, nil
		}

		empty := make(map[string]bool)
		for _, record := range records {
			for k := range record {
				if _, seen := empty[k]; !seen {
					empty[k] = true
				}
			}
		}
		for _, record := range records {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for k, v := range record {
				if empty[k] && !core.IsMissing(v) {
					empty[k] = false
				}
			}
		}

		var drop []string
		for k, isEmpty := range empty {
			if isEmpty && !d.keep[k] {
				drop = append(drop, k)
			}
		}
		if len(drop) == 0 {
			return records, nil
		}
		sort.Strings(drop)

		remove := RemoveFields(drop...)
		out := make([]core.Record, 0, len(records))
		for _, record := range records {
			trimmed, err := remove.Transform(ctx, record)
			if err != nil {
				return nil, err
			}
			out = append(out, trimmed)
		}
		if d.onDrop != nil {
			for _, col := range drop {
				d.onDrop(col)
			}
		}
		return out, nil
	})
}
