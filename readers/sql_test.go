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
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atim-01/imdbclean/core"
)

func seedSQLite(t *testing.T) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "movies.db")
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE "movies" ("Original title" TEXT, "Votes" INTEGER, "Score" REAL, "Poster" BLOB)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO "movies" VALUES (?, ?, ?, ?), (?, ?, ?, ?)`,
		"Up", 10, 8.3, []byte{1, 2},
		"Heat", nil, nil, nil)
	require.NoError(t, err)
	return dsn
}

func TestSQLReader_Table(t *testing.T) {
	dsn := seedSQLite(t)

	reader, err := NewSQLReader(context.Background(),
		WithSQLDriver("sqlite3"),
		WithSQLDSN(dsn),
		WithSQLTable("movies"))
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, []string{"Original title", "Votes", "Score", "Poster"}, reader.Columns())
	assert.Equal(t, "REAL", reader.Schema()["Score"])

	records := readAll(t, reader)
	assert.Equal(t, []core.Record{
		{"Original title": "Up", "Votes": int64(10), "Score": 8.3, "Poster": []byte{1, 2}},
		{"Original title": "Heat", "Votes": nil, "Score": nil, "Poster": nil},
	}, records)

	stats := reader.Stats()
	assert.Equal(t, int64(2), stats.RecordsRead)
	assert.Equal(t, int64(1), stats.NullValueCounts["Votes"])
}

func TestSQLReader_QueryWithParams(t *testing.T) {
	dsn := seedSQLite(t)

	reader, err := NewSQLReader(context.Background(),
		WithSQLDriver("sqlite"),
		WithSQLDSN(dsn),
		WithSQLQuery(`SELECT "Original title" FROM "movies" WHERE "Score" > ?`, 8.0))
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, []core.Record{{"Original title": "Up"}}, readAll(t, reader))
}

func TestSQLReader_Validation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		opts []SQLReaderOption
	}{
		{"unknown driver", []SQLReaderOption{WithSQLDriver("oracle"), WithSQLDSN("x"), WithSQLTable("t")}},
		{"missing dsn", []SQLReaderOption{WithSQLDriver("sqlite"), WithSQLTable("t")}},
		{"missing query", []SQLReaderOption{WithSQLDriver("sqlite"), WithSQLDSN("x")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSQLReader(ctx, tt.opts...)
			var rerr *SQLReaderError
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, "validate", rerr.Op)
		})
	}
}

func TestSQLReader_QueryError(t *testing.T) {
	dsn := seedSQLite(t)

	_, err := NewSQLReader(context.Background(),
		WithSQLDriver("sqlite"),
		WithSQLDSN(dsn),
		WithSQLTable("missing"))
	var rerr *SQLReaderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "query", rerr.Op)
}

func TestSQLReader_ReadAfterClose(t *testing.T) {
	dsn := seedSQLite(t)

	reader, err := NewSQLReader(context.Background(), WithSQLDriver("sqlite"), WithSQLDSN(dsn), WithSQLTable("movies"))
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	require.NoError(t, reader.Close())

	_, err = reader.Read(context.Background())
	assert.Error(t, err)
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"public"."movies"`, quoteIdentifier("public.movies"))
	assert.Equal(t, `"Income ($)"`, quoteIdentifier("Income ($)"))
}
