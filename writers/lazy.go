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


package writers

import (
	"context"
	"errors"
	"sync"

	"github.com/Atim-01/imdbclean/core"
)

// ErrSinkClosed is returned by a LazySink used after Close.
var ErrSinkClosed = errors.New("sink closed")

// LazySink defers opening its destination until the first Write or Flush, so nothing
// is created or truncated before there is output for it. Closing a LazySink that was
// never opened leaves the destination untouched.
type LazySink struct {
	mu     sync.Mutex
	open   func() (core.DataSink, error)
	sink   core.DataSink
	closed bool
}

// NewLazySink returns a sink that calls open on first use.
func NewLazySink(open func() (core.DataSink, error)) *LazySink {
	return &LazySink{open: open}
}

// Opened reports whether the destination has been created.
func (l *LazySink) Opened() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sink != nil
}

// Write implements the DataSink interface.
func (l *LazySink) Write(ctx context.Context, record core.Record) error {
	sink, err := l.ensureOpen()
	if err != nil {
		return err
	}
	return sink.Write(ctx, record)
}

// Flush implements the DataSink interface.
func (l *LazySink) Flush() error {
	sink, err := l.ensureOpen()
	if err != nil {
		return err
	}
	return sink.Flush()
}

// Close implements the DataSink interface.
func (l *LazySink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.sink == nil {
		return nil
	}
	return l.sink.Close()
}

func (l *LazySink) ensureOpen() (core.DataSink, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrSinkClosed
	}
	if l.sink == nil {
		sink, err := l.open()
		if err != nil {
			return nil, err
		}
		l.sink = sink
	}
	return l.sink, nil
}
