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
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Atim-01/imdbclean/core"
)

// AuditColumns is the column order of an audit record.
var AuditColumns = []string{
	"run_id",
	"row_id",
	"column_name",
	"original_value",
	"new_value",
	"operation",
	"reason",
	"cleaned_at",
}

// Operation records a single change made to the dataset.
type Operation struct {
	RunID     string
	RowID     string
	Column    string
	Original  string
	New       string
	Operation string
	Reason    string
	CleanedAt time.Time
}

// Record converts the operation into a pipeline record for writing to a sink.
func (o Operation) Record() core.Record {
	return core.Record{
		"run_id":         o.RunID,
		"row_id":         o.RowID,
		"column_name":    o.Column,
		"original_value": o.Original,
		"new_value":      o.New,
		"operation":      o.Operation,
		"reason":         o.Reason,
		"cleaned_at":     o.CleanedAt,
	}
}

// Ledger collects the operations of one cleaning run.
type Ledger struct {
	runID  string
	logger *zap.Logger
	now    func() time.Time

	mu  sync.Mutex
	ops []Operation
}

// NewLedger creates a ledger with a fresh run identifier.
func NewLedger(logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		runID:  uuid.New().String(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RunID returns the identifier shared by every operation of this run.
func (l *Ledger) RunID() string {
	return l.runID
}

// Record appends an operation. Values are stored in their text form.
func (l *Ledger) Record(rowID, column string, original, updated interface{}, operation, reason string) {
	op := Operation{
		RunID:     l.runID,
		RowID:     rowID,
		Column:    column,
		Original:  valueText(original),
		New:       valueText(updated),
		Operation: operation,
		Reason:    reason,
		CleanedAt: l.now(),
	}

	l.mu.Lock()
	l.ops = append(l.ops, op)
	l.mu.Unlock()
}

// Operations returns a copy of the recorded operations.
func (l *Ledger) Operations() []Operation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Operation, len(l.ops))
	copy(out, l.ops)
	return out
}

// Len returns the number of recorded operations.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ops)
}

// Counts returns the number of operations per "column/operation" key.
func (l *Ledger) Counts() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	counts := make(map[string]int)
	for _, op := range l.ops {
		counts[op.Column+"/"+op.Operation]++
	}
	return counts
}

// LogSummary writes one log line per column/operation pair.
func (l *Ledger) LogSummary() {
	counts := l.Counts()
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		l.logger.Info("Cleaning summary", zap.String("change", k), zap.Int("count", counts[k]))
	}
}

// Flush writes every operation to sink and flushes it. The sink is not closed.
func (l *Ledger) Flush(ctx context.Context, sink core.DataSink) error {
	ops := l.Operations()
	for _, op := range ops {
		if err := sink.Write(ctx, op.Record()); err != nil {
			return fmt.Errorf("write audit record: %w", err)
		}
	}
	if err := sink.Flush(); err != nil {
		return fmt.Errorf("flush audit sink: %w", err)
	}
	l.logger.Info("Recorded cleaning operations", zap.Int("count", len(ops)), zap.String("run_id", l.runID))
	return nil
}

func valueText(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", val)
	}
}
