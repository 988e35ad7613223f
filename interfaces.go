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

package imdbclean

import "github.com/Atim-01/imdbclean/core"

// The root package re-exports the core stage types so callers building a pipeline
// only need a single import.

type (
	Record           = core.Record
	DataSource       = core.DataSource
	DataSink         = core.DataSink
	Transformer      = core.Transformer
	TransformFunc    = core.TransformFunc
	BatchTransformer = core.BatchTransformer
	Filter           = core.Filter
	FilterFunc       = core.FilterFunc
	Validator        = core.Validator
	ErrorHandler     = core.ErrorHandler
	ErrorHandlerFunc = core.ErrorHandlerFunc
	ErrorStrategy    = core.ErrorStrategy
)

const (
	FailFast      = core.FailFast
	SkipErrors    = core.SkipErrors
	CollectErrors = core.CollectErrors
)
