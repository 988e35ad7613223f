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

package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ErrorHandler processes an error raised while handling a record.
// Returning a non-nil error stops the pipeline; returning nil continues.
type ErrorHandler interface {
	HandleError(ctx context.Context, record Record, err error) error
}

// ErrorStrategy defines how the pipeline reacts to record-level errors.
type ErrorStrategy int

const (
	// FailFast stops processing on the first error encountered.
	FailFast ErrorStrategy = iota
	// SkipErrors continues processing, skipping failed records.
	SkipErrors
	// CollectErrors continues processing and keeps every error for later inspection.
	CollectErrors
)

// String returns the configuration name of the strategy.
func (s ErrorStrategy) String() string {
	switch s {
	case FailFast:
		return "fail-fast"
	case SkipErrors:
		return "skip"
	case CollectErrors:
		return "collect"
	default:
		return fmt.Sprintf("ErrorStrategy(%d)", int(s))
	}
}

// ParseErrorStrategy maps a configuration name to an ErrorStrategy.
func ParseErrorStrategy(name string) (ErrorStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "fail-fast", "failfast":
		return FailFast, nil
	case "skip":
		return SkipErrors, nil
	case "collect":
		return CollectErrors, nil
	default:
		return FailFast, fmt.Errorf("unknown error strategy %q", name)
	}
}

// ErrorHandlerFunc is a function adapter for the ErrorHandler interface.
type ErrorHandlerFunc func(ctx context.Context, record Record, err error) error

// HandleError implements the ErrorHandler interface for ErrorHandlerFunc.
func (f ErrorHandlerFunc) HandleError(ctx context.Context, record Record, err error) error {
	return f(ctx, record, err)
}

// ErrorCollector is an ErrorHandler that keeps every error it is given.
type ErrorCollector struct {
	mu     sync.Mutex
	errors []error
}

// HandleError records err and lets the pipeline continue.
func (c *ErrorCollector) HandleError(_ context.Context, _ Record, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, err)
	return nil
}

// Errors returns a copy of the collected errors.
func (c *ErrorCollector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.errors))
	copy(out, c.errors)
	return out
}

// Len returns the number of collected errors.
func (c *ErrorCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors)
}
