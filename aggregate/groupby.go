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

// Package aggregate groups cleaned records and computes per-group summaries.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Atim-01/imdbclean/core"
)

type output struct {
	field      string
	aggregator Cloner
}

// GroupBy groups records by one or more fields and applies aggregators per group.
// Records with a missing group field are skipped.
type GroupBy struct {
	groupFields []string
	outputs     []output
}

// NewGroupBy creates a GroupBy over the given fields.
func NewGroupBy(groupFields ...string) *GroupBy {
	return &GroupBy{groupFields: groupFields}
}

// Count adds a record count per group.
func (g *GroupBy) Count(outputField string) *GroupBy {
	return g.With(outputField, &CountAggregator{})
}

// Sum adds a sum of field per group.
func (g *GroupBy) Sum(field, outputField string) *GroupBy {
	return g.With(outputField, &SumAggregator{Field: field})
}

// Avg adds the mean of field per group.
func (g *GroupBy) Avg(field, outputField string) *GroupBy {
	return g.With(outputField, &AvgAggregator{Field: field})
}

// Min adds the minimum of field per group.
func (g *GroupBy) Min(field, outputField string) *GroupBy {
	return g.With(outputField, &MinAggregator{Field: field})
}

// Max adds the maximum of field per group.
func (g *GroupBy) Max(field, outputField string) *GroupBy {
	return g.With(outputField, &MaxAggregator{Field: field})
}

// With adds a custom aggregator. Its single result value is stored in outputField.
func (g *GroupBy) With(outputField string, aggregator Cloner) *GroupBy {
	g.outputs = append(g.outputs, output{field: outputField, aggregator: aggregator})
	return g
}

type group struct {
	key         core.Record
	aggregators []core.Aggregator
}

// Process aggregates records and returns one record per group, ordered by the group
// field values.
func (g *GroupBy) Process(ctx context.Context, records []core.Record) ([]core.Record, error) {
	groups := make(map[string]*group)
	var order []string

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key, values, ok := g.groupKey(record)
		if !ok {
			continue
		}

		grp, exists := groups[key]
		if !exists {
			grp = &group{key: values, aggregators: make([]core.Aggregator, len(g.outputs))}
			for i, out := range g.outputs {
				grp.aggregators[i] = out.aggregator.Clone()
			}
			groups[key] = grp
			order = append(order, key)
		}

		for i, agg := range grp.aggregators {
			if err := agg.Add(ctx, record); err != nil {
				return nil, fmt.Errorf("aggregation error for field %s: %w", g.outputs[i].field, err)
			}
		}
	}

	results := make([]core.Record, 0, len(order))
	for _, key := range order {
		grp := groups[key]
		result := grp.key.Clone()
		for i, agg := range grp.aggregators {
			value, err := agg.Result()
			if err != nil {
				return nil, fmt.Errorf("failed to get result for field %s: %w", g.outputs[i].field, err)
			}
			for _, v := range value {
				result[g.outputs[i].field] = v
			}
		}
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		for _, field := range g.groupFields {
			if c := CompareValues(results[i][field], results[j][field]); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return results, nil
}

// groupKey encodes the group field values of record. ok is false when a group
// field is missing.
func (g *GroupBy) groupKey(record core.Record) (string, core.Record, bool) {
	values := make(core.Record, len(g.groupFields))
	parts := make([]string, len(g.groupFields))
	for i, field := range g.groupFields {
		value := record[field]
		if core.IsMissing(value) {
			return "", nil, false
		}
		values[field] = value
		parts[i] = fmt.Sprintf("%T:%v", value, value)
	}
	return strings.Join(parts, "\x1f"), values, true
}

// SortBy sorts records in place by field. Missing values sort last.
func SortBy(records []core.Record, field string, descending bool) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i][field], records[j][field]
		switch {
		case core.IsMissing(a):
			return false
		case core.IsMissing(b):
			return true
		}
		c := CompareValues(a, b)
		if descending {
			return c > 0
		}
		return c < 0
	})
}

// TopPerGroup keeps, for each distinct value of groupField, the first record with the
// largest valueField. Groups are returned in order of first appearance.
func TopPerGroup(records []core.Record, groupField, valueField string) []core.Record {
	best := make(map[string]core.Record)
	var order []string
	for _, record := range records {
		if core.IsMissing(record[groupField]) || core.IsMissing(record[valueField]) {
			continue
		}
		key := fmt.Sprintf("%v", record[groupField])
		current, ok := best[key]
		if !ok {
			order = append(order, key)
			best[key] = record
			continue
		}
		if CompareValues(record[valueField], current[valueField]) > 0 {
			best[key] = record
		}
	}
	out := make([]core.Record, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}
