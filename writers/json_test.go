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
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atim-01/imdbclean/core"
)

func TestJSONWriter_WritesLines(t *testing.T) {
	mock := newMockWriteCloser()
	writer := NewJSONWriter(mock)

	ctx := context.Background()
	require.NoError(t, writer.Write(ctx, core.Record{"Title": "Up", "Score": 8.3, "Votes": nil}))
	require.NoError(t, writer.Write(ctx, core.Record{"Title": "Heat"}))
	require.NoError(t, writer.Close())

	assert.True(t, mock.IsClosed())
	assert.Equal(t, "{\"Score\":8.3,\"Title\":\"Up\",\"Votes\":null}\n{\"Title\":\"Heat\"}\n", mock.String())
	assert.Equal(t, int64(2), writer.Stats().RecordsWritten)
}

func TestJSONWriter_TimeLayout(t *testing.T) {
	mock := newMockWriteCloser()
	writer := NewJSONWriter(mock, WithJSONTimeLayout(DateLayout))

	record := core.Record{"Release year": time.Date(1995, 2, 10, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, writer.Write(context.Background(), record))
	require.NoError(t, writer.Close())

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(mock.String())), &got))
	assert.Equal(t, "1995-02-10", got["Release year"])
	assert.IsType(t, time.Time{}, record["Release year"], "input record must not be modified")
}

func TestJSONWriter_DefaultTimeEncoding(t *testing.T) {
	mock := newMockWriteCloser()
	writer := NewJSONWriter(mock)

	require.NoError(t, writer.Write(context.Background(), core.Record{"at": time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}))
	require.NoError(t, writer.Close())

	assert.Equal(t, "{\"at\":\"2024-01-02T03:04:05Z\"}\n", mock.String())
}

func TestJSONWriter_Batching(t *testing.T) {
	mock := newMockWriteCloser()
	writer := NewJSONWriter(mock, WithJSONBatchSize(2))

	ctx := context.Background()
	require.NoError(t, writer.Write(ctx, core.Record{"n": 1}))
	assert.Empty(t, mock.String())

	require.NoError(t, writer.Write(ctx, core.Record{"n": 2}))
	assert.Equal(t, "{\"n\":1}\n{\"n\":2}\n", mock.String())
	assert.Equal(t, int64(1), writer.Stats().FlushCount)
}

func TestJSONWriter_FlushOnWrite(t *testing.T) {
	mock := newMockWriteCloser()
	writer := NewJSONWriter(mock, WithFlushOnWrite(true))

	require.NoError(t, writer.Write(context.Background(), core.Record{"n": 1}))
	assert.Equal(t, "{\"n\":1}\n", mock.String())
}

func TestJSONWriter_Errors(t *testing.T) {
	t.Run("marshal", func(t *testing.T) {
		writer := NewJSONWriter(newMockWriteCloser())
		err := writer.Write(context.Background(), core.Record{"ch": make(chan int)})
		var werr *JSONWriterError
		require.ErrorAs(t, err, &werr)
		assert.Equal(t, "marshal", werr.Op)
	})

	t.Run("write after close", func(t *testing.T) {
		writer := NewJSONWriter(newMockWriteCloser())
		require.NoError(t, writer.Close())
		require.NoError(t, writer.Close())
		require.NoError(t, writer.Flush())
		assert.Error(t, writer.Write(context.Background(), core.Record{"n": 1}))
	})

	t.Run("flush failure", func(t *testing.T) {
		mock := newMockWriteCloser()
		mock.failWrite = true
		writer := NewJSONWriter(mock, WithFlushOnWrite(true))
		err := writer.Write(context.Background(), core.Record{"n": 1})
		var werr *JSONWriterError
		require.ErrorAs(t, err, &werr)
		assert.Equal(t, "flush", werr.Op)
	})
}
