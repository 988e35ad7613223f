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

package validators

import (
	"math"

	"github.com/Atim-01/imdbclean/cleaning"
)

// DefaultMaxScore is the upper bound of a plausible score.
const DefaultMaxScore = 10.0

// NewMovieValidator returns a validator for cleaned movie records: numeric columns
// hold non-negative floats, votes are whole numbers, scores lie in [0, maxScore],
// release dates are dates and text columns are strings.
func NewMovieValidator(maxScore float64, opts ...DataQualityOption) *DataQualityValidator {
	if maxScore <= 0 {
		maxScore = DefaultMaxScore
	}
	base := []DataQualityOption{
		WithFieldValidator(cleaning.ColIncome, FieldValidator{DataType: FieldTypeFloat, MinValue: 0.0}),
		WithFieldValidator(cleaning.ColDuration, FieldValidator{DataType: FieldTypeFloat, MinValue: 0.0}),
		WithFieldValidator(cleaning.ColVotes, FieldValidator{
			DataType:   FieldTypeFloat,
			MinValue:   0.0,
			CustomFunc: isWholeNumber,
		}),
		WithFieldValidator(cleaning.ColScore, FieldValidator{DataType: FieldTypeFloat, MinValue: 0.0, MaxValue: maxScore}),
		WithFieldValidator(cleaning.ColReleaseYear, FieldValidator{DataType: FieldTypeDate}),
		WithFieldValidator(cleaning.ColTitle, FieldValidator{DataType: FieldTypeString}),
		WithFieldValidator(cleaning.ColGenre, FieldValidator{DataType: FieldTypeString}),
		WithFieldValidator(cleaning.ColCountry, FieldValidator{DataType: FieldTypeString}),
		WithFieldValidator(cleaning.ColContentRating, FieldValidator{
			DataType:   FieldTypeString,
			CustomFunc: func(v interface{}) (bool, error) { return v != "Approved", nil },
		}),
	}
	return NewDataQualityValidator(0, nil, append(base, opts...)...)
}

func isWholeNumber(v interface{}) (bool, error) {
	f, ok := toFloat64(v)
	if !ok {
		return false, nil
	}
	return f == math.Trunc(f), nil
}
