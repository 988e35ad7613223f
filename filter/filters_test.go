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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atim-01/imdbclean/core"
)

func include(t *testing.T, f core.Filter, r core.Record) bool {
	t.Helper()
	ok, err := f.ShouldInclude(context.Background(), r)
	require.NoError(t, err)
	return ok
}

func TestNotAllNull(t *testing.T) {
	f := NotAllNull()
	assert.True(t, include(t, f, core.Record{"Title": "Up", "Score": nil}))
	assert.False(t, include(t, f, core.Record{"Title": nil, "Score": nil}))
	assert.False(t, include(t, f, core.Record{"Title": "  ", "Score": nil}))
	assert.False(t, include(t, f, core.Record{}))
	assert.True(t, include(t, f, core.Record{"Score": 0.0}))
}

func TestNotNull(t *testing.T) {
	f := NotNull("Title", "Score")
	assert.True(t, include(t, f, core.Record{"Title": "Up", "Score": 8.3}))
	assert.False(t, include(t, f, core.Record{"Title": "Up", "Score": nil}))
	assert.False(t, include(t, f, core.Record{"Title": "Up"}))
	assert.False(t, include(t, f, core.Record{"Title": " ", "Score": 8.3}))
	assert.True(t, include(t, NotNull(), core.Record{}))
}
