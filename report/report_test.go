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


package report

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atim-01/imdbclean/cleaning"
	"github.com/Atim-01/imdbclean/core"
)

type memorySink struct {
	records  []core.Record
	flushErr error
}

func (m *memorySink) Write(_ context.Context, r core.Record) error {
	m.records = append(m.records, r)
	return nil
}
func (m *memorySink) Flush() error { return m.flushErr }
func (m *memorySink) Close() error { return nil }

func cleanedMovies() []core.Record {
	return []core.Record{
		{cleaning.ColGenre: "Drama", cleaning.ColCountry: "USA", cleaning.ColContentRating: "R", cleaning.ColIncome: 28815245.0},
		{cleaning.ColGenre: "Crime", cleaning.ColCountry: "USA", cleaning.ColContentRating: "R", cleaning.ColIncome: 246120974.0},
		{cleaning.ColGenre: "Drama", cleaning.ColCountry: "UK", cleaning.ColContentRating: "PG", cleaning.ColIncome: 1000.0},
		{cleaning.ColGenre: "Drama", cleaning.ColCountry: "UK", cleaning.ColContentRating: "PG", cleaning.ColIncome: nil},
		{cleaning.ColGenre: nil, cleaning.ColCountry: "UK", cleaning.ColContentRating: nil, cleaning.ColIncome: 9e9},
	}
}

func TestAverageIncomeBy(t *testing.T) {
	r, err := AverageIncomeBy(context.Background(), "income_by_genre", cleaning.ColGenre, cleanedMovies())
	require.NoError(t, err)

	assert.Equal(t, "income_by_genre", r.Name)
	assert.Equal(t, []string{cleaning.ColGenre, ColAverageIncome, ColMovies}, r.Columns)
	assert.Equal(t, []core.Record{
		{cleaning.ColGenre: "Crime", ColAverageIncome: 246120974.0, ColMovies: 1},
		{cleaning.ColGenre: "Drama", ColAverageIncome: 14408122.5, ColMovies: 2},
	}, r.Rows)
}

func TestBestGenrePerCountry(t *testing.T) {
	r, err := BestGenrePerCountry(context.Background(), cleanedMovies())
	require.NoError(t, err)

	assert.Equal(t, []core.Record{
		{cleaning.ColCountry: "USA", cleaning.ColGenre: "Crime", ColTotalIncome: 246120974.0},
		{cleaning.ColCountry: "UK", cleaning.ColGenre: "Drama", ColTotalIncome: 1000.0},
	}, r.Rows)
}

func TestAverageIncomeBy_SkipsUnknownGroups(t *testing.T) {
	r, err := AverageIncomeBy(context.Background(), "income_by_country", cleaning.ColCountry, cleanedMovies())
	require.NoError(t, err)

	assert.Equal(t, []core.Record{
		{cleaning.ColCountry: "UK", ColAverageIncome: 4500000500.0, ColMovies: 2},
		{cleaning.ColCountry: "USA", ColAverageIncome: 137468109.5, ColMovies: 2},
	}, r.Rows)
}

func TestAll(t *testing.T) {
	reports, err := All(context.Background(), cleanedMovies())
	require.NoError(t, err)

	var names []string
	for _, r := range reports {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"income_by_genre", "income_by_country", "income_by_content_rating", "best_genre_per_country"}, names)
	assert.Equal(t, "R", reports[2].Rows[0][cleaning.ColContentRating])
}

func TestAll_BadIncome(t *testing.T) {
	_, err := All(context.Background(), []core.Record{{cleaning.ColGenre: "Drama", cleaning.ColIncome: "$5"}})
	assert.ErrorContains(t, err, "income_by_genre")
}

func TestReport_Write(t *testing.T) {
	r := Report{Name: "x", Rows: []core.Record{{"a": 1}, {"a": 2}}}
	sink := &memorySink{}
	require.NoError(t, r.Write(context.Background(), sink))
	assert.Equal(t, r.Rows, sink.records)

	err := r.Write(context.Background(), &memorySink{flushErr: errors.New("closed")})
	assert.ErrorContains(t, err, "report x")
}
