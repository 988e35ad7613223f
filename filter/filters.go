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

package filter

import (
	"context"

	"github.com/Atim-01/imdbclean/core"
)

// Package filter provides composable record filters for cleaning pipelines.

// NotAllNull excludes records in which every field is missing.
func NotAllNull() core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		return !record.IsEmpty(), nil
	})
}

// NotNull excludes records where any of the listed fields is absent or missing.
func NotNull(fields ...string) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		for _, field := range fields {
			if core.IsMissing(record[field]) {
				return false, nil
			}
		}
		return true, nil
	})
}
