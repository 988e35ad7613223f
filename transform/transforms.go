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
	"strings"

	"github.com/Atim-01/imdbclean/core"
)

// Package transform provides generic record transformers: projection, renaming
// and string normalization. Movie-specific rules live in package cleaning.

// Select keeps only the listed fields. Fields missing from the record are omitted.
func Select(fields ...string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		result := make(core.Record, len(fields))
		for _, field := range fields {
			if value, exists := record[field]; exists {
				result[field] = value
			}
		}
		return result, nil
	})
}

// Rename renames fields according to mapping (original name to new name). When a
// renamed field lands on a name that already holds a value, the present value wins;
// ties between renamed fields go to the first source name in sorted order.
func Rename(mapping map[string]string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		result := make(core.Record, len(record))
		var sources []string
		for key, value := range record {
			if _, renamed := mapping[key]; renamed {
				sources = append(sources, key)
				continue
			}
			result[key] = value
		}
		sort.Strings(sources)
		for _, key := range sources {
			newKey := mapping[key]
			if existing, ok := result[newKey]; ok && !core.IsMissing(existing) {
				continue
			}
			result[newKey] = record[key]
		}
		return result, nil
	})
}

// RemoveFields drops the listed fields. Fields that don't exist are ignored.
func RemoveFields(fields ...string) core.Transformer {
	fieldsToRemove := make(map[string]bool, len(fields))
	for _, field := range fields {
		fieldsToRemove[field] = true
	}

	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		result := make(core.Record, len(record))
		for k, v := range record {
			if !fieldsToRemove[k] {
				result[k] = v
			}
		}
		return result, nil
	})
}

// TrimSpace trims whitespace from the listed string fields. A field that is blank
// after trimming becomes the missing-marker.
func TrimSpace(fields ...string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		result := record.Clone()
		for _, field := range fields {
			if str, ok := record[field].(string); ok {
				if trimmed := strings.TrimSpace(str); trimmed != "" {
					result[field] = trimmed
				} else {
					result[field] = nil
				}
			}
		}
		return result, nil
	})
}
