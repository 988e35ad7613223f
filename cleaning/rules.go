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
	"fmt"
	"math"
	"strings"
	"time"
)

// Operation names recorded in the audit ledger.
const (
	OpRenameColumn     = "rename_column"
	OpDropColumn       = "drop_column"
	OpDropRow          = "drop_row"
	OpStripFormatting  = "strip_formatting"
	OpLookupCorrection = "lookup_correction"
	OpCanonicalize     = "canonicalize"
	OpMarkMissing      = "mark_missing"
)

// Outcome is the result of applying a rule to one value.
// An empty Operation means the value was converted without repair and is not audited.
type Outcome struct {
	Value     interface{}
	Operation string
	Reason    string
}

// RuleFunc normalizes a single value. It never fails: values it cannot repair become
// the missing-marker.
type RuleFunc func(value interface{}) Outcome

// Rule binds a RuleFunc to the column it applies to.
type Rule struct {
	Name   string
	Column string
	Apply  RuleFunc
}

// DefaultRules returns the value rules for the movie dataset in application order.
// All rules address columns by their canonical names.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "income", Column: ColIncome, Apply: IncomeRule},
		{Name: "release_year", Column: ColReleaseYear, Apply: ReleaseYearRule},
		{Name: "duration", Column: ColDuration, Apply: DurationRule},
		{Name: "votes", Column: ColVotes, Apply: VotesRule},
		{Name: "country", Column: ColCountry, Apply: CountryRule},
		{Name: "content_rating", Column: ColContentRating, Apply: ContentRatingRule},
		{Name: "score", Column: ColScore, Apply: ScoreRule},
	}
}

// IncomeRule normalizes the Income ($) column.
func IncomeRule(value interface{}) Outcome {
	return numericRule(value, ParseIncome, "$,o", "removed currency symbol and separators")
}

// DurationRule normalizes the Duration (mins) column.
func DurationRule(value interface{}) Outcome {
	return numericRule(value, ParseDuration, "c", "removed stray suffix")
}

// VotesRule normalizes the Votes column.
func VotesRule(value interface{}) Outcome {
	return numericRule(value, ParseVotes, ".,", "removed thousands separators")
}

// ScoreRule normalizes the Score column.
func ScoreRule(value interface{}) Outcome {
	s, ok := value.(string)
	if !ok {
		return passNumeric(value)
	}
	repaired := RepairScore(s)
	f, parsed := ParseScore(s)
	switch {
	case !parsed:
		return Outcome{Operation: OpMarkMissing, Reason: fmt.Sprintf("unparsable score %q", s)}
	case isCorrection(repaired):
		return Outcome{Value: f, Operation: OpLookupCorrection, Reason: fmt.Sprintf("corrected score token %q", repaired)}
	case repaired != strings.TrimSpace(s):
		return Outcome{Value: f, Operation: OpStripFormatting, Reason: "repaired score punctuation"}
	default:
		return Outcome{Value: f}
	}
}

// ReleaseYearRule parses the release date day-first.
func ReleaseYearRule(value interface{}) Outcome {
	switch v := value.(type) {
	case nil:
		return Outcome{}
	case time.Time:
		return Outcome{Value: v}
	case string:
		if strings.TrimSpace(v) == "" {
			return Outcome{}
		}
		t, ok := ParseReleaseDate(v)
		if !ok {
			return Outcome{Operation: OpMarkMissing, Reason: fmt.Sprintf("unparsable date %q", v)}
		}
		return Outcome{Value: t}
	default:
		return Outcome{Operation: OpMarkMissing, Reason: fmt.Sprintf("unexpected date type %T", v)}
	}
}

// CountryRule canonicalizes the Country column.
func CountryRule(value interface{}) Outcome {
	return textRule(value, CanonicalCountry, "known country alias")
}

// ContentRatingRule canonicalizes the Content Rating column.
func ContentRatingRule(value interface{}) Outcome {
	return textRule(value, CanonicalRating, "legacy certificate")
}

func textRule(value interface{}, canonical func(string) string, reason string) Outcome {
	s, ok := value.(string)
	if !ok {
		return Outcome{Value: value}
	}
	c := canonical(s)
	if c != s {
		return Outcome{Value: c, Operation: OpCanonicalize, Reason: reason}
	}
	return Outcome{Value: s}
}

// numericRule parses a string value with parse. The outcome is audited as a repair
// when the raw token contained any of the repaired characters.
func numericRule(value interface{}, parse func(string) (float64, bool), repaired, reason string) Outcome {
	s, ok := value.(string)
	if !ok {
		return passNumeric(value)
	}
	if strings.TrimSpace(s) == "" {
		return Outcome{}
	}
	f, parsed := parse(s)
	if !parsed {
		return Outcome{Operation: OpMarkMissing, Reason: fmt.Sprintf("unparsable value %q", s)}
	}
	if strings.ContainsAny(s, repaired) {
		return Outcome{Value: f, Operation: OpStripFormatting, Reason: reason}
	}
	return Outcome{Value: f}
}

// passNumeric keeps values that are already numeric, so cleaning a cleaned record
// is a no-op.
func passNumeric(value interface{}) Outcome {
	switch v := value.(type) {
	case nil:
		return Outcome{}
	case float64:
		if math.IsNaN(v) {
			return Outcome{}
		}
		return Outcome{Value: v}
	case float32:
		return Outcome{Value: float64(v)}
	case int:
		return Outcome{Value: float64(v)}
	case int64:
		return Outcome{Value: float64(v)}
	case int32:
		return Outcome{Value: float64(v)}
	default:
		return Outcome{Operation: OpMarkMissing, Reason: fmt.Sprintf("unexpected numeric type %T", v)}
	}
}

func isCorrection(token string) bool {
	_, ok := scoreCorrections[token]
	return ok
}
