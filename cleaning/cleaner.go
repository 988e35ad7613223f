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

// Package cleaning implements the repair rules for the messy IMDb movie dataset.
//
// Each rule is scoped to one column and follows the same policy: a value is either
// converted to its declared type or replaced by the missing-marker (nil). A bad value
// never fails the run. Every repair is recorded in a Ledger.
package cleaning

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Atim-01/imdbclean/core"
	"github.com/Atim-01/imdbclean/transform"
)

// Cleaner is a core.Transformer that repairs headers and values of a movie record.
type Cleaner struct {
	rules  []Rule
	ledger *Ledger
	logger *zap.Logger

	mu      sync.Mutex
	renamed map[string]bool
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cleaner) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLedger sets the ledger that receives audit operations.
func WithLedger(ledger *Ledger) Option {
	return func(c *Cleaner) {
		if ledger != nil {
			c.ledger = ledger
		}
	}
}

// WithRules replaces the default rule set.
func WithRules(rules ...Rule) Option {
	return func(c *Cleaner) {
		c.rules = append([]Rule(nil), rules...)
	}
}

// NewCleaner creates a Cleaner using DefaultRules unless overridden.
func NewCleaner(opts ...Option) *Cleaner {
	c := &Cleaner{
		rules:   DefaultRules(),
		logger:  zap.NewNop(),
		renamed: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ledger == nil {
		c.ledger = NewLedger(c.logger)
	}
	return c
}

// Ledger returns the ledger receiving this cleaner's operations.
func (c *Cleaner) Ledger() *Ledger {
	return c.ledger
}

// Transform implements core.Transformer. The input record is not modified.
func (c *Cleaner) Transform(ctx context.Context, record core.Record) (core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := c.renameColumns(ctx, record)
	if err != nil {
		return nil, err
	}
	rowID := RowID(out)

	for _, rule := range c.rules {
		original, ok := out[rule.Column]
		if !ok {
			continue
		}
		res := rule.Apply(original)
		out[rule.Column] = res.Value
		if res.Operation == "" {
			continue
		}
		c.ledger.Record(rowID, rule.Column, original, res.Value, res.Operation, res.Reason)
		if res.Operation == OpMarkMissing {
			c.logger.Debug("Marked value missing",
				zap.String("row", rowID),
				zap.String("column", rule.Column),
				zap.String("reason", res.Reason))
		}
	}

	return out, nil
}

// AuditedFilter wraps f so that every row it rejects is recorded as dropped.
func (c *Cleaner) AuditedFilter(f core.Filter) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		include, err := f.ShouldInclude(ctx, record)
		if err != nil || include {
			return include, err
		}
		c.ledger.Record(RowID(record), "", nil, nil, OpDropRow, "row has no values")
		return false, nil
	})
}

// RecordDroppedColumn records the removal of an all-empty column.
func (c *Cleaner) RecordDroppedColumn(column string) {
	c.ledger.Record("", column, nil, nil, OpDropColumn, "column is empty in every row")
	c.logger.Info("Dropped empty column", zap.String("column", column))
}

// renameColumns returns a copy of record keyed by canonical headers.
func (c *Cleaner) renameColumns(ctx context.Context, record core.Record) (core.Record, error) {
	mapping := make(map[string]string)
	for k := range record {
		if name := CanonicalHeader(k); name != k {
			mapping[k] = name
			c.noteRename(k, name)
		}
	}
	if len(mapping) == 0 {
		return record.Clone(), nil
	}
	return transform.Rename(mapping).Transform(ctx, record)
}

// noteRename records a header rename once per run.
func (c *Cleaner) noteRename(from, to string) {
	c.mu.Lock()
	seen := c.renamed[from]
	c.renamed[from] = true
	c.mu.Unlock()
	if seen {
		return
	}
	c.ledger.Record("", to, from, to, OpRenameColumn, "canonical header")
	c.logger.Debug("Renamed column", zap.String("from", from), zap.String("to", to))
}

// RowID identifies a record in audit output by its IMDb id, falling back to the title.
func RowID(record core.Record) string {
	for _, col := range []string{ColID, ColTitle} {
		if s, ok := record[col].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
