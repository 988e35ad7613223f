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
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"
)

// countryAliases holds the known misspellings and historical names of countries.
var countryAliases = map[string]string{
	"US":           "USA",
	"US.":          "USA",
	"New Zesland":  "New Zealand",
	"New Zeland":   "New Zealand",
	"West Germany": "Germany",
	"Italy1":       "Italy",
}

// scoreCorrections resolves score tokens that survive punctuation repair but are
// still wrong. Keys are matched after repair.
var scoreCorrections = map[string]float64{
	"89f":   8.9,
	"9":     8.9,
	"08.9":  8.9,
	"++8.7": 8.7,
	"87e-0": 8.7,
	"86":    8.6,
}

var durationPlaceholders = map[string]bool{
	"not applicable": true,
	"not appliable":  true,
	"-":              true,
	"nan":            true,
}

// ParseIncome strips the currency symbol, repairs the letter o typed for zero and
// removes thousands separators. "$1,2o0,000" parses to 1200000.
func ParseIncome(raw string) (float64, bool) {
	s := strings.ReplaceAll(raw, "$", "")
	s = strings.ReplaceAll(s, "o", "0")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	return parseNonNegative(s)
}

// ParseDuration removes the stray c suffix and rejects placeholder tokens.
func ParseDuration(raw string) (float64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "c", ""))
	if s == "" || durationPlaceholders[strings.ToLower(s)] {
		return 0, false
	}
	return parseNonNegative(s)
}

// ParseVotes removes the dot and comma thousands separators. A genuine decimal point
// is removed as well, so "1.234" is 1234.
func ParseVotes(raw string) (float64, bool) {
	s := strings.ReplaceAll(raw, ".", "")
	s = strings.ReplaceAll(s, ",", "")
	return parseNonNegative(strings.TrimSpace(s))
}

// RepairScore applies the punctuation fixes to a score token without parsing it.
func RepairScore(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, ":", ".")
	s = strings.ReplaceAll(s, "..", ".")
	return strings.TrimRight(s, ".")
}

// ParseScore repairs the token, applies the correction table and parses the result.
func ParseScore(raw string) (float64, bool) {
	s := RepairScore(raw)
	if f, ok := scoreCorrections[s]; ok {
		return f, true
	}
	return parseDecimal(s)
}

// CanonicalCountry maps known aliases to their canonical name. Any other value is
// returned unchanged, which makes the function idempotent.
func CanonicalCountry(country string) string {
	if c, ok := countryAliases[country]; ok {
		return c
	}
	if c, ok := countryAliases[strings.TrimSpace(country)]; ok {
		return c
	}
	return country
}

// CanonicalRating maps the legacy "Approved" certificate to "G".
func CanonicalRating(rating string) string {
	if rating == "Approved" {
		return "G"
	}
	return rating
}

var dayFirstLayouts = []string{
	"2006-1-2",
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2 1 2006",
	"2/1/06",
	"2-1-06",
	"2.1.06",
	"2 1 06",
	"2 Jan 2006",
	"2 January 2006",
	"2 Jan 06",
	"2-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006",
}

var monthFirstLayouts = []string{
	"1/2/2006",
	"1-2-2006",
	"1.2.2006",
	"1 2 2006",
	"1/2/06",
	"1-2-06",
	"1 2 06",
}

// ParseReleaseDate parses a release date token day-first. Tokens that are only valid
// month-first, such as "10-29-99", are accepted as a fallback.
func ParseReleaseDate(raw string) (time.Time, bool) {
	s := normalizeDateToken(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range monthFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	t, err := dateparse.ParseIn(s, time.UTC,
		dateparse.PreferMonthFirst(false),
		dateparse.RetryAmbiguousDateWithSwap(true))
	if err != nil {
		return time.Time{}, false
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
}

// normalizeDateToken collapses runs of whitespace and removes spaces around the
// dash, slash and dot separators ("23 -07-2008" becomes "23-07-2008").
func normalizeDateToken(raw string) string {
	s := strings.Join(strings.Fields(raw), " ")
	for _, sep := range []string{"-", "/", "."} {
		s = strings.ReplaceAll(s, " "+sep, sep)
		s = strings.ReplaceAll(s, sep+" ", sep)
	}
	return s
}

// parseDecimal accepts plain decimal notation only. Hex floats, NaN and values that
// overflow a float64 are missing.
func parseDecimal(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	f := d.InexactFloat64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func parseNonNegative(s string) (float64, bool) {
	f, ok := parseDecimal(s)
	if !ok || f < 0 {
		return 0, false
	}
	return f, true
}
