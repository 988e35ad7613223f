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
	"strings"
	"unicode"
)

// Canonical column names of a cleaned movie record.
const (
	ColID            = "IMDb-ID"
	ColTitle         = "Original title"
	ColReleaseYear   = "Release year"
	ColGenre         = "Genre"
	ColDuration      = "Duration (mins)"
	ColCountry       = "Country"
	ColContentRating = "Content Rating"
	ColDirector      = "Director"
	ColIncome        = "Income ($)"
	ColVotes         = "Votes"
	ColScore         = "Score"
)

// OutputColumns is the column order of the cleaned dataset.
var OutputColumns = []string{
	ColID,
	ColTitle,
	ColReleaseYear,
	ColGenre,
	ColDuration,
	ColCountry,
	ColContentRating,
	ColDirector,
	ColIncome,
	ColVotes,
	ColScore,
}

// headerRenames maps encoding-corrupted or unit-less headers to canonical names.
var headerRenames = map[string]string{
	"Original titlÊ": ColTitle,
	"Genrë¨":         ColGenre,
	"Duration":       ColDuration,
	"Income":         ColIncome,
}

// foldedRenames is headerRenames keyed by the ASCII-only form of each header, so the
// lookup still matches when the file was decoded with a different charset.
var foldedRenames = func() map[string]string {
	m := make(map[string]string, len(headerRenames))
	for k, v := range headerRenames {
		m[foldASCII(k)] = v
	}
	return m
}()

// CanonicalHeader returns the canonical name for a header. Unknown headers are
// returned trimmed but otherwise unchanged.
func CanonicalHeader(header string) string {
	h := strings.TrimSpace(header)
	if name, ok := headerRenames[h]; ok {
		return name
	}
	if name, ok := foldedRenames[foldASCII(h)]; ok {
		return name
	}
	return h
}

// CanonicalHeaders maps CanonicalHeader over headers, preserving order.
func CanonicalHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = CanonicalHeader(h)
	}
	return out
}

func foldASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
}
