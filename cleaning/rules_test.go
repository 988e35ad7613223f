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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNumericRules(t *testing.T) {
	tests := []struct {
		name  string
		rule  RuleFunc
		in    interface{}
		value interface{}
		op    string
	}{
		{"income repaired", IncomeRule, "$ 1,000", 1000.0, OpStripFormatting},
		{"income plain", IncomeRule, "1000", 1000.0, ""},
		{"income unparsable", IncomeRule, "unknown", nil, OpMarkMissing},
		{"income blank", IncomeRule, "  ", nil, ""},
		{"income already numeric", IncomeRule, 5.0, 5.0, ""},
		{"income integer", IncomeRule, int64(7), 7.0, ""},
		{"duration suffix", DurationRule, "175c", 175.0, OpStripFormatting},
		{"duration placeholder", DurationRule, "Not Applicable", nil, OpMarkMissing},
		{"duration dash", DurationRule, "-", nil, OpMarkMissing},
		{"votes separators", VotesRule, "1.572.674", 1572674.0, OpStripFormatting},
		{"votes missing", VotesRule, nil, nil, ""},
		{"unexpected type", VotesRule, true, nil, OpMarkMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.rule(tt.in)
			assert.Equal(t, tt.value, out.Value)
			assert.Equal(t, tt.op, out.Operation)
			if tt.op != "" {
				assert.NotEmpty(t, out.Reason)
			}
		})
	}
}

func TestScoreRule(t *testing.T) {
	out := ScoreRule("08.9")
	assert.Equal(t, 8.9, out.Value)
	assert.Equal(t, OpLookupCorrection, out.Operation)

	out = ScoreRule("8:7")
	assert.Equal(t, 8.7, out.Value)
	assert.Equal(t, OpStripFormatting, out.Operation)

	out = ScoreRule("8.1")
	assert.Equal(t, 8.1, out.Value)
	assert.Empty(t, out.Operation)

	out = ScoreRule("bad")
	assert.Nil(t, out.Value)
	assert.Equal(t, OpMarkMissing, out.Operation)

	out = ScoreRule(8.1)
	assert.Equal(t, 8.1, out.Value)
	assert.Empty(t, out.Operation)
}

func TestReleaseYearRule(t *testing.T) {
	out := ReleaseYearRule("21-09-1972")
	assert.Equal(t, time.Date(1972, time.September, 21, 0, 0, 0, 0, time.UTC), out.Value)
	assert.Empty(t, out.Operation)

	out = ReleaseYearRule("someday")
	assert.Nil(t, out.Value)
	assert.Equal(t, OpMarkMissing, out.Operation)

	assert.Equal(t, Outcome{}, ReleaseYearRule(nil))
	assert.Equal(t, Outcome{}, ReleaseYearRule(" "))

	now := time.Date(2001, time.May, 4, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, Outcome{Value: now}, ReleaseYearRule(now))

	out = ReleaseYearRule(1999)
	assert.Nil(t, out.Value)
	assert.Equal(t, OpMarkMissing, out.Operation)
}

func TestTextRules(t *testing.T) {
	out := CountryRule("US")
	assert.Equal(t, "USA", out.Value)
	assert.Equal(t, OpCanonicalize, out.Operation)

	assert.Equal(t, Outcome{Value: "France"}, CountryRule("France"))
	assert.Equal(t, Outcome{}, CountryRule(nil))

	out = ContentRatingRule("Approved")
	assert.Equal(t, "G", out.Value)
	assert.Equal(t, OpCanonicalize, out.Operation)

	assert.Equal(t, Outcome{Value: "Not Rated"}, ContentRatingRule("Not Rated"))
}

func TestDefaultRulesUseCanonicalColumns(t *testing.T) {
	canonical := make(map[string]bool)
	for _, c := range OutputColumns {
		canonical[c] = true
	}
	for _, rule := range DefaultRules() {
		assert.True(t, canonical[rule.Column], "rule %s targets %q", rule.Name, rule.Column)
	}
}
