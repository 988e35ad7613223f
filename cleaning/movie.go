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

package cleaning

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Atim-01/imdbclean/core"
)

// Movie is the typed view of a cleaned record.
type Movie struct {
	ID            string
	Title         string
	ReleaseDate   sql.NullTime
	Genre         string
	Duration      sql.NullFloat64
	Country       string
	ContentRating string
	Director      string
	Income        sql.NullFloat64
	Votes         sql.NullFloat64
	Score         sql.NullFloat64
}

// DecodeMovie builds a Movie from a cleaned record. Numeric and date fields may hold
// their native type or the text written by a sink, so records read back from any
// output format decode the same way.
func DecodeMovie(record core.Record) (Movie, error) {
	var (
		m   Movie
		err error
	)
	m.ID = textField(record, ColID)
	m.Title = textField(record, ColTitle)
	m.Genre = textField(record, ColGenre)
	m.Country = textField(record, ColCountry)
	m.ContentRating = textField(record, ColContentRating)
	m.Director = textField(record, ColDirector)

	if m.ReleaseDate, err = dateField(record, ColReleaseYear); err != nil {
		return Movie{}, err
	}
	fields := []struct {
		col string
		dst *sql.NullFloat64
	}{
		{ColDuration, &m.Duration},
		{ColIncome, &m.Income},
		{ColVotes, &m.Votes},
		{ColScore, &m.Score},
	}
	for _, f := range fields {
		if *f.dst, err = floatField(record, f.col); err != nil {
			return Movie{}, err
		}
	}
	return m, nil
}

// Record converts the movie back into a pipeline record using nil for missing fields.
func (m Movie) Record() core.Record {
	r := core.Record{
		ColID:            nullableText(m.ID),
		ColTitle:         nullableText(m.Title),
		ColGenre:         nullableText(m.Genre),
		ColCountry:       nullableText(m.Country),
		ColContentRating: nullableText(m.ContentRating),
		ColDirector:      nullableText(m.Director),
		ColReleaseYear:   nil,
		ColDuration:      nullableFloat(m.Duration),
		ColIncome:        nullableFloat(m.Income),
		ColVotes:         nullableFloat(m.Votes),
		ColScore:         nullableFloat(m.Score),
	}
	if m.ReleaseDate.Valid {
		r[ColReleaseYear] = m.ReleaseDate.Time
	}
	return r
}

// Retype is a core.Transformer that restores native types on a cleaned record read
// back from text output. Columns other than the movie columns are kept as they are.
func Retype(_ context.Context, record core.Record) (core.Record, error) {
	m, err := DecodeMovie(record)
	if err != nil {
		return nil, err
	}
	out := record.Clone()
	for k, v := range m.Record() {
		if _, ok := record[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func textField(record core.Record, col string) string {
	switch v := record[col].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func floatField(record core.Record, col string) (sql.NullFloat64, error) {
	switch v := record[col].(type) {
	case nil:
		return sql.NullFloat64{}, nil
	case float64:
		return sql.NullFloat64{Float64: v, Valid: true}, nil
	case float32:
		return sql.NullFloat64{Float64: float64(v), Valid: true}, nil
	case int:
		return sql.NullFloat64{Float64: float64(v), Valid: true}, nil
	case int64:
		return sql.NullFloat64{Float64: float64(v), Valid: true}, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return sql.NullFloat64{}, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return sql.NullFloat64{}, fmt.Errorf("column %q: %w", col, err)
		}
		return sql.NullFloat64{Float64: f, Valid: true}, nil
	default:
		return sql.NullFloat64{}, fmt.Errorf("column %q: unsupported type %T", col, v)
	}
}

func dateField(record core.Record, col string) (sql.NullTime, error) {
	switch v := record[col].(type) {
	case nil:
		return sql.NullTime{}, nil
	case time.Time:
		return sql.NullTime{Time: v, Valid: true}, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return sql.NullTime{}, nil
		}
		for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04:05.999999999-07:00"} {
			if t, err := time.Parse(layout, s); err == nil {
				return sql.NullTime{Time: t, Valid: true}, nil
			}
		}
		return sql.NullTime{}, fmt.Errorf("column %q: invalid date %q", col, s)
	default:
		return sql.NullTime{}, fmt.Errorf("column %q: unsupported type %T", col, v)
	}
}

func nullableText(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableFloat(f sql.NullFloat64) interface{} {
	if !f.Valid {
		return nil
	}
	return f.Float64
}
