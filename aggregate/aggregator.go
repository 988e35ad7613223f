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

package aggregate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Atim-01/imdbclean/core"
)

// Cloner is implemented by aggregators that GroupBy can instantiate per group.
type Cloner interface {
	core.Aggregator
	Clone() core.Aggregator
}

// CountAggregator counts records. With Field set, only records where the field is
// present and not missing are counted.
type CountAggregator struct {
	Field string
	count int
}

func (c *CountAggregator) Add(ctx context.Context, record core.Record) error {
	if c.Field == "" || !core.IsMissing(record[c.Field]) {
		c.count++
	}
	return nil
}

func (c *CountAggregator) Result() (core.Record, error) {
	return core.Record{"count": c.count}, nil
}

func (c *CountAggregator) Reset() {
	c.count = 0
}

func (c *CountAggregator) Clone() core.Aggregator {
	return &CountAggregator{Field: c.Field}
}

// SumAggregator sums numeric values. Missing values are skipped.
type SumAggregator struct {
	Field string
	sum   float64
}

func (s *SumAggregator) Add(ctx context.Context, record core.Record) error {
	num, ok, err := numericField(record, s.Field)
	if err != nil || !ok {
		return err
	}
	s.sum += num
	return nil
}

func (s *SumAggregator) Result() (core.Record, error) {
	return core.Record{"sum": s.sum}, nil
}

func (s *SumAggregator) Reset() {
	s.sum = 0
}

func (s *SumAggregator) Clone() core.Aggregator {
	return &SumAggregator{Field: s.Field}
}

// AvgAggregator averages numeric values. Missing values are skipped; a group with
// no values averages to the missing-marker.
type AvgAggregator struct {
	Field string
	sum   float64
	count int
}

func (a *AvgAggregator) Add(ctx context.Context, record core.Record) error {
	num, ok, err := numericField(record, a.Field)
	if err != nil || !ok {
		return err
	}
	a.sum += num
	a.count++
	return nil
}

func (a *AvgAggregator) Result() (core.Record, error) {
	if a.count == 0 {
		return core.Record{"avg": nil}, nil
	}
	return core.Record{"avg": a.sum / float64(a.count)}, nil
}

func (a *AvgAggregator) Reset() {
	a.sum = 0
	a.count = 0
}

func (a *AvgAggregator) Clone() core.Aggregator {
	return &AvgAggregator{Field: a.Field}
}

// MinAggregator keeps the smallest non-missing value.
type MinAggregator struct {
	Field string
	min   interface{}
}

func (m *MinAggregator) Add(ctx context.Context, record core.Record) error {
	value := record[m.Field]
	if core.IsMissing(value) {
		return nil
	}
	if m.min == nil || CompareValues(value, m.min) < 0 {
		m.min = value
	}
	return nil
}

func (m *MinAggregator) Result() (core.Record, error) {
	return core.Record{"min": m.min}, nil
}

func (m *MinAggregator) Reset() {
	m.min = nil
}

func (m *MinAggregator) Clone() core.Aggregator {
	return &MinAggregator{Field: m.Field}
}

// MaxAggregator keeps the largest non-missing value.
type MaxAggregator struct {
	Field string
	max   interface{}
}

func (m *MaxAggregator) Add(ctx context.Context, record core.Record) error {
	value := record[m.Field]
	if core.IsMissing(value) {
		return nil
	}
	if m.max == nil || CompareValues(value, m.max) > 0 {
		m.max = value
	}
	return nil
}

func (m *MaxAggregator) Result() (core.Record, error) {
	return core.Record{"max": m.max}, nil
}

func (m *MaxAggregator) Reset() {
	m.max = nil
}

func (m *MaxAggregator) Clone() core.Aggregator {
	return &MaxAggregator{Field: m.Field}
}

// numericField reads field as float64. ok is false when the value is missing.
func numericField(record core.Record, field string) (float64, bool, error) {
	value := record[field]
	if core.IsMissing(value) {
		return 0, false, nil
	}
	num, err := toFloat64(value)
	if err != nil {
		return 0, false, fmt.Errorf("field %s: %w", field, err)
	}
	return num, true, nil
}

func toFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", value)
	}
}

// CompareValues orders two values of the same basic type. Numbers compare across
// numeric types. Values of unrelated types compare by their text form.
func CompareValues(a, b interface{}) int {
	if fa, err := toFloat64(a); err == nil {
		if fb, err := toFloat64(b); err == nil {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}
