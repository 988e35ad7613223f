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


package imdbclean

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atim-01/imdbclean/core"
	"github.com/Atim-01/imdbclean/filter"
	"github.com/Atim-01/imdbclean/transform"
)

type sliceSource struct {
	records []Record
	pos     int
	failAt  int
	closed  bool
}

func (s *sliceSource) Read(_ context.Context) (Record, error) {
	if s.failAt > 0 && s.pos == s.failAt {
		return nil, errors.New("corrupt input")
	}
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	r := s.records[s.pos]
	s.pos++
	return r, nil
}

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

type memorySink struct {
	records  []Record
	failOn   string
	flushed  bool
	closed   bool
	closeErr error
}

func (m *memorySink) Write(_ context.Context, r Record) error {
	if m.failOn != "" && r["Title"] == m.failOn {
		return errors.New("write rejected")
	}
	m.records = append(m.records, r)
	return nil
}

func (m *memorySink) Flush() error {
	m.flushed = true
	return nil
}

func (m *memorySink) Close() error {
	m.closed = true
	return m.closeErr
}

// scoreToFloat parses a string Score. Missing scores pass through.
var scoreToFloat = core.TransformFunc(func(_ context.Context, r Record) (Record, error) {
	str, ok := r["Score"].(string)
	if !ok {
		return r, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return nil, fmt.Errorf("failed to convert field Score: %w", err)
	}
	out := r.Clone()
	out["Score"] = f
	return out, nil
})

func sampleRows() []Record {
	return []Record{
		{"Title": "Up", "Unnamed: 8": nil, "Score": "8.3"},
		{"Title": nil, "Unnamed: 8": nil, "Score": nil},
		{"Title": "Heat", "Unnamed: 8": nil, "Score": "8.3"},
		{},
	}
}

func TestPipeline_Execute(t *testing.T) {
	source := &sliceSource{records: sampleRows()}
	sink := &memorySink{}
	second := &memorySink{}

	pipeline, err := NewPipeline().
		From(source).
		TransformAll(transform.DropEmptyColumns()).
		Transform(scoreToFloat).
		Filter(filter.NotAllNull()).
		To(sink).
		To(second).
		Build()
	require.NoError(t, err)
	require.NoError(t, pipeline.Execute(context.Background()))

	want := []Record{
		{"Title": "Up", "Score": 8.3},
		{"Title": "Heat", "Score": 8.3},
	}
	assert.Equal(t, want, sink.records)
	assert.Equal(t, want, second.records)
	assert.True(t, source.closed)
	assert.True(t, sink.flushed)
	assert.True(t, sink.closed)
	assert.True(t, second.closed)

	assert.Equal(t, Stats{RecordsRead: 4, RecordsFiltered: 2, RecordsWritten: 2}, pipeline.Stats())
}

func TestPipeline_BuildRequiresSourceAndSink(t *testing.T) {
	_, err := NewPipeline().To(&memorySink{}).Build()
	assert.ErrorContains(t, err, "data source")

	_, err = NewPipeline().From(&sliceSource{}).Build()
	assert.ErrorContains(t, err, "data sink")
}

func TestPipeline_MapAndWhere(t *testing.T) {
	sink := &memorySink{}
	pipeline, err := NewPipeline().
		From(&sliceSource{records: []Record{{"Title": "Up"}, {"Title": "Heat"}}}).
		Map(func(_ context.Context, r Record) (Record, error) {
			out := r.Clone()
			out["Seen"] = true
			return out, nil
		}).
		Where(func(_ context.Context, r Record) (bool, error) {
			return r["Title"] != "Heat", nil
		}).
		To(sink).
		Build()
	require.NoError(t, err)
	require.NoError(t, pipeline.Execute(context.Background()))

	assert.Equal(t, []Record{{"Title": "Up", "Seen": true}}, sink.records)
	assert.Equal(t, int64(1), pipeline.Stats().RecordsFiltered)
}

func TestPipeline_ErrorStrategies(t *testing.T) {
	rows := func() *sliceSource {
		return &sliceSource{records: []Record{{"Score": "8.3"}, {"Score": "high"}, {"Score": "7"}}}
	}

	t.Run("Should stop on first error with fail-fast", func(t *testing.T) {
		sink := &memorySink{}
		pipeline, err := NewPipeline().From(rows()).Transform(scoreToFloat).To(sink).Build()
		require.NoError(t, err)

		err = pipeline.Execute(context.Background())
		assert.ErrorContains(t, err, "failed to convert field Score")
		assert.Empty(t, sink.records)
		assert.True(t, sink.closed)
	})

	t.Run("Should skip failed records", func(t *testing.T) {
		sink := &memorySink{}
		pipeline, err := NewPipeline().From(rows()).Transform(scoreToFloat).
			To(sink).WithErrorStrategy(SkipErrors).Build()
		require.NoError(t, err)

		require.NoError(t, pipeline.Execute(context.Background()))
		assert.Equal(t, []Record{{"Score": 8.3}, {"Score": 7.0}}, sink.records)
		assert.Equal(t, int64(1), pipeline.Stats().RecordsFailed)
	})

	t.Run("Should collect errors", func(t *testing.T) {
		collector := &core.ErrorCollector{}
		pipeline, err := NewPipeline().From(rows()).Transform(scoreToFloat).
			To(&memorySink{}).WithErrorStrategy(CollectErrors).WithErrorHandler(collector).Build()
		require.NoError(t, err)

		require.NoError(t, pipeline.Execute(context.Background()))
		require.Equal(t, 1, collector.Len())
		assert.ErrorContains(t, collector.Errors()[0], "high")
	})

	t.Run("Should stop when the handler returns an error", func(t *testing.T) {
		stop := ErrorHandlerFunc(func(_ context.Context, _ Record, err error) error {
			return errors.New("stop")
		})
		pipeline, err := NewPipeline().From(rows()).Transform(scoreToFloat).
			To(&memorySink{}).WithErrorStrategy(SkipErrors).WithErrorHandler(stop).Build()
		require.NoError(t, err)
		assert.EqualError(t, pipeline.Execute(context.Background()), "stop")
	})
}

func TestPipeline_SinkWriteErrors(t *testing.T) {
	good := &memorySink{}
	bad := &memorySink{failOn: "Heat"}
	pipeline, err := NewPipeline().
		From(&sliceSource{records: []Record{{"Title": "Up"}, {"Title": "Heat"}}}).
		To(good).
		To(bad).
		WithErrorStrategy(SkipErrors).
		Build()
	require.NoError(t, err)
	require.NoError(t, pipeline.Execute(context.Background()))

	assert.Len(t, good.records, 2)
	assert.Len(t, bad.records, 1)
	stats := pipeline.Stats()
	assert.Equal(t, int64(1), stats.RecordsWritten)
	assert.Equal(t, int64(1), stats.RecordsFailed)
}

func TestPipeline_ReadFailureHalts(t *testing.T) {
	source := &sliceSource{records: sampleRows(), failAt: 1}
	sink := &memorySink{}
	pipeline, err := NewPipeline().From(source).To(sink).Build()
	require.NoError(t, err)

	err = pipeline.Execute(context.Background())
	assert.ErrorContains(t, err, "corrupt input")
	assert.True(t, source.closed)
	assert.True(t, sink.closed)
	assert.Empty(t, sink.records)
}

func TestPipeline_ValidatorStopsBeforeWrite(t *testing.T) {
	sink := &memorySink{}
	reject := core.ValidatorFunc(func(_ context.Context, records []Record) error {
		return errors.New("too few")
	})
	pipeline, err := NewPipeline().
		From(&sliceSource{records: []Record{{"Title": "Up"}}}).
		Validate(reject).
		To(sink).
		Build()
	require.NoError(t, err)

	err = pipeline.Execute(context.Background())
	assert.ErrorContains(t, err, "validate: too few")
	assert.Empty(t, sink.records)
	assert.False(t, sink.flushed, "a failed run must not flush its sinks")
	assert.True(t, sink.closed)
}

func TestPipeline_CloseErrorReported(t *testing.T) {
	sink := &memorySink{closeErr: errors.New("disk full")}
	pipeline, err := NewPipeline().From(&sliceSource{records: []Record{{"Title": "Up"}}}).To(sink).Build()
	require.NoError(t, err)

	err = pipeline.Execute(context.Background())
	assert.ErrorContains(t, err, "close: disk full")
}

func TestPipeline_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pipeline, err := NewPipeline().From(&sliceSource{records: sampleRows()}).To(&memorySink{}).Build()
	require.NoError(t, err)
	assert.ErrorIs(t, pipeline.Execute(ctx), context.Canceled)
}
