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

// Package report computes income breakdowns of the cleaned movie dataset.
package report

import (
	"context"
	"fmt"

	"github.com/Atim-01/imdbclean/aggregate"
	"github.com/Atim-01/imdbclean/cleaning"
	"github.com/Atim-01/imdbclean/core"
	"github.com/Atim-01/imdbclean/filter"
)

// Output column names.
const (
	ColAverageIncome = "Average Income ($)"
	ColTotalIncome   = "Total Income ($)"
	ColMovies        = "Movies"
)

// Columns lists the cleaned columns the reports read.
var Columns = []string{cleaning.ColGenre, cleaning.ColCountry, cleaning.ColContentRating, cleaning.ColIncome}

// Report is a named table of grouped results.
type Report struct {
	Name    string
	Columns []string
	Rows    []core.Record
}

// AverageIncomeBy returns the mean income per value of column, highest first. Only
// movies with both an income and a value in column are counted.
func AverageIncomeBy(ctx context.Context, name, column string, movies []core.Record) (Report, error) {
	known, err := keep(ctx, movies, filter.NotNull(cleaning.ColIncome, column))
	if err != nil {
		return Report{}, fmt.Errorf("report %s: %w", name, err)
	}
	rows, err := aggregate.NewGroupBy(column).
		Avg(cleaning.ColIncome, ColAverageIncome).
		Count(ColMovies).
		Process(ctx, known)
	if err != nil {
		return Report{}, fmt.Errorf("report %s: %w", name, err)
	}
	aggregate.SortBy(rows, ColAverageIncome, true)
	return Report{
		Name:    name,
		Columns: []string{column, ColAverageIncome, ColMovies},
		Rows:    rows,
	}, nil
}

// BestGenrePerCountry sums income per country and genre and keeps the top-earning
// genre of every country, highest total first.
func BestGenrePerCountry(ctx context.Context, movies []core.Record) (Report, error) {
	known, err := keep(ctx, movies, filter.NotNull(cleaning.ColIncome, cleaning.ColCountry, cleaning.ColGenre))
	if err != nil {
		return Report{}, fmt.Errorf("report best_genre_per_country: %w", err)
	}
	grouped, err := aggregate.NewGroupBy(cleaning.ColCountry, cleaning.ColGenre).
		Sum(cleaning.ColIncome, ColTotalIncome).
		Process(ctx, known)
	if err != nil {
		return Report{}, fmt.Errorf("report best_genre_per_country: %w", err)
	}
	rows := aggregate.TopPerGroup(grouped, cleaning.ColCountry, ColTotalIncome)
	aggregate.SortBy(rows, ColTotalIncome, true)
	return Report{
		Name:    "best_genre_per_country",
		Columns: []string{cleaning.ColCountry, cleaning.ColGenre, ColTotalIncome},
		Rows:    rows,
	}, nil
}

// All builds every report in a fixed order.
func All(ctx context.Context, movies []core.Record) ([]Report, error) {
	var reports []Report
	for _, by := range []struct{ name, column string }{
		{"income_by_genre", cleaning.ColGenre},
		{"income_by_country", cleaning.ColCountry},
		{"income_by_content_rating", cleaning.ColContentRating},
	} {
		r, err := AverageIncomeBy(ctx, by.name, by.column, movies)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	best, err := BestGenrePerCountry(ctx, movies)
	if err != nil {
		return nil, err
	}
	return append(reports, best), nil
}

// keep returns the movies accepted by f.
func keep(ctx context.Context, movies []core.Record, f core.Filter) ([]core.Record, error) {
	kept := make([]core.Record, 0, len(movies))
	for _, m := range movies {
		ok, err := f.ShouldInclude(ctx, m)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, m)
		}
	}
	return kept, nil
}

// Write sends every row of r to sink and flushes it. The sink is not closed.
func (r Report) Write(ctx context.Context, sink core.DataSink) error {
	for _, row := range r.Rows {
		if err := sink.Write(ctx, row); err != nil {
			return fmt.Errorf("report %s: %w", r.Name, err)
		}
	}
	if err := sink.Flush(); err != nil {
		return fmt.Errorf("report %s: %w", r.Name, err)
	}
	return nil
}
