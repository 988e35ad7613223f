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
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atim-01/imdbclean/core"
	"github.com/Atim-01/imdbclean/writers"
)

func cleanedMovies() []core.Record {
	return []core.Record{
		{
			"Original title": "The Shawshank Redemption",
			"Release year":   time.Date(1995, 2, 10, 0, 0, 0, 0, time.UTC),
			"Income ($)":     28815245.0,
			"Votes":          2278845.0,
			"Score":          9.3,
		},
		{
			"Original title": "Untitled",
			"Release year":   nil,
			"Income ($)":     nil,
			"Votes":          12.0,
			"Score":          nil,
		},
	}
}

func writeParquetFile(t *testing.T, records []core.Record, batchSize int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cleaned.parquet")
	f, err := os.Create(path)
	require.NoError(t, err)

	writer, err := writers.NewParquetWriter(f,
		writers.WithBatchSize(batchSize),
		writers.WithFieldOrder([]string{"Original title", "Release year", "Income ($)", "Votes", "Score"}))
	require.NoError(t, err)

	ctx := context.Background()
	for _, r := range records {
		require.NoError(t, writer.Write(ctx, r))
	}
	require.NoError(t, writer.Close())
	return path
}

func readAllRecords(t *testing.T, reader *ParquetReader) []core.Record {
	t.Helper()
	var out []core.Record
	for {
		rec, err := reader.Read(context.Background())
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}

func TestParquetReader_RoundTrip(t *testing.T) {
	path := writeParquetFile(t, cleanedMovies(), 1)

	f, err := os.Open(path)
	require.NoError(t, err)
	reader, err := NewParquetReader(f, WithParquetBatchSize(1))
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, int64(2), reader.NumRows())
	fields := reader.Schema().Fields()
	require.Len(t, fields, 5)
	assert.Equal(t, "Original title", fields[0].Name)
	assert.Equal(t, arrow.TIMESTAMP, fields[1].Type.ID())
	assert.Equal(t, arrow.FLOAT64, fields[2].Type.ID())

	got := readAllRecords(t, reader)
	require.Len(t, got, 2)
	assert.Equal(t, cleanedMovies(), got)

	stats := reader.Stats()
	assert.Equal(t, int64(2), stats.RecordsRead)
	assert.Equal(t, int64(1), stats.NullValueCounts["Score"])
	assert.Equal(t, int64(1), stats.NullValueCounts["Income ($)"])

	_, err = reader.Read(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestParquetReader_ColumnProjection(t *testing.T) {
	path := writeParquetFile(t, cleanedMovies(), 100)

	f, err := os.Open(path)
	require.NoError(t, err)
	reader, err := NewParquetReader(f, WithColumns("Votes"))
	require.NoError(t, err)
	defer reader.Close()

	got := readAllRecords(t, reader)
	assert.Equal(t, []core.Record{{"Votes": 2278845.0}, {"Votes": 12.0}}, got)
}

func TestParquetReader_UnknownColumn(t *testing.T) {
	path := writeParquetFile(t, cleanedMovies(), 100)

	f, err := os.Open(path)
	require.NoError(t, err)
	_, err = NewParquetReader(f, WithColumns("Budget"))
	var perr *ParquetReaderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "column_projection", perr.Op)
}

func TestParquetReader_NotParquet(t *testing.T) {
	_, err := NewParquetReader(bytes.NewReader([]byte("IMDb-ID,Score\ntt1,8.9\n")))
	var perr *ParquetReaderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "create_reader", perr.Op)
}

func TestParquetReader_ContextCancelled(t *testing.T) {
	path := writeParquetFile(t, cleanedMovies(), 100)

	f, err := os.Open(path)
	require.NoError(t, err)
	reader, err := NewParquetReader(f)
	require.NoError(t, err)
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = reader.Read(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
