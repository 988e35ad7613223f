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

	"go.uber.org/zap"
)

// Package imdbclean provides a single-pass batch pipeline for repairing the messy IMDb
// movie dataset.
//
// A pipeline reads every row from its DataSource and releases the source right away.
// The row set is then held in memory while it passes, in order, through:
//   - BatchTransformers: rules that need the whole row set (all-empty column removal).
//   - Transformers: per-row rules (header repair, value normalization).
//   - Filters: row elimination (all-null rows).
//   - Validators: checks of the final row set.
//
// The surviving rows are written once to every configured DataSink.
//
// Example usage:
//
//   pipeline, err := imdbclean.NewPipeline().
//       From(csvReader).
//       TransformAll(transform.DropEmptyColumns()).
//       Transform(cleaner).
//       Filter(filter.NotAllNull()).
//       To(csvWriter).
//       WithErrorStrategy(imdbclean.CollectErrors).
//       Build()
//   if err != nil { log.Fatal(err) }
//   if err := pipeline.Execute(context.Background()); err != nil { log.Fatal(err) }

// PipelineBuilder provides a fluent API for constructing cleaning pipelines.
type PipelineBuilder struct {
	pipeline *Pipeline
}

// NewPipeline creates a new PipelineBuilder.
func NewPipeline() *PipelineBuilder {
	return &PipelineBuilder{
		pipeline: &Pipeline{
			strategy: FailFast,
			logger:   zap.NewNop(),
		},
	}
}

// From sets the DataSource for the pipeline.
func (pb *PipelineBuilder) From(source DataSource) *PipelineBuilder {
	pb.pipeline.source = source
	return pb
}

// TransformAll adds a BatchTransformer that runs over the full row set before any
// per-row transformer.
func (pb *PipelineBuilder) TransformAll(transformer BatchTransformer) *PipelineBuilder {
	pb.pipeline.batchTransformers = append(pb.pipeline.batchTransformers, transformer)
	return pb
}

// Transform adds a per-row Transformer to the pipeline.
func (pb *PipelineBuilder) Transform(transformer Transformer) *PipelineBuilder {
	pb.pipeline.transformers = append(pb.pipeline.transformers, transformer)
	return pb
}

// Filter adds a Filter to the pipeline.
func (pb *PipelineBuilder) Filter(filter Filter) *PipelineBuilder {
	pb.pipeline.filters = append(pb.pipeline.filters, filter)
	return pb
}

// Map adds a mapping transformation using a function.
func (pb *PipelineBuilder) Map(fn func(ctx context.Context, record Record) (Record, error)) *PipelineBuilder {
	return pb.Transform(TransformFunc(fn))
}

// Where adds a filtering condition using a function.
func (pb *PipelineBuilder) Where(fn func(ctx context.Context, record Record) (bool, error)) *PipelineBuilder {
	return pb.Filter(FilterFunc(fn))
}

// Validate adds a Validator that inspects the final row set before it is written.
func (pb *PipelineBuilder) Validate(validator Validator) *PipelineBuilder {
	pb.pipeline.validators = append(pb.pipeline.validators, validator)
	return pb
}

// To adds a DataSink. Every sink receives the same cleaned rows.
func (pb *PipelineBuilder) To(sink DataSink) *PipelineBuilder {
	pb.pipeline.sinks = append(pb.pipeline.sinks, sink)
	return pb
}

// WithErrorStrategy sets the error handling strategy for the pipeline.
func (pb *PipelineBuilder) WithErrorStrategy(strategy ErrorStrategy) *PipelineBuilder {
	pb.pipeline.strategy = strategy
	return pb
}

// WithErrorHandler sets a custom error handler for the pipeline.
func (pb *PipelineBuilder) WithErrorHandler(handler ErrorHandler) *PipelineBuilder {
	pb.pipeline.errorHandler = handler
	return pb
}

// WithLogger sets the logger used to report run progress.
func (pb *PipelineBuilder) WithLogger(logger *zap.Logger) *PipelineBuilder {
	if logger != nil {
		pb.pipeline.logger = logger
	}
	return pb
}

// Build validates and constructs the Pipeline.
func (pb *PipelineBuilder) Build() (*Pipeline, error) {
	if pb.pipeline.source == nil {
		return nil, fmt.Errorf("pipeline requires a data source")
	}
	if len(pb.pipeline.sinks) == 0 {
		return nil, fmt.Errorf("pipeline requires a data sink")
	}
	return pb.pipeline, nil
}

// Stats summarizes a pipeline run.
type Stats struct {
	RecordsRead     int64
	RecordsFiltered int64
	RecordsFailed   int64
	RecordsWritten  int64
}

// Pipeline is a single-pass batch cleaning run. A Pipeline is meant to be executed once.
type Pipeline struct {
	source            DataSource
	batchTransformers []BatchTransformer
	transformers      []Transformer
	filters           []Filter
	validators        []Validator
	sinks             []DataSink
	strategy          ErrorStrategy
	errorHandler      ErrorHandler
	logger            *zap.Logger
	stats             Stats
}

// Execute runs the pipeline from source to sinks.
//
// Read failures always stop the run. Errors raised by transformers, filters and sink
// writes are governed by the configured ErrorStrategy and ErrorHandler. A validator error
// stops the run before anything is written. When the run fails, sinks are closed
// without a final flush.
func (p *Pipeline) Execute(ctx context.Context) error {
	sinksOpen := true
	defer func() {
		if sinksOpen {
			p.abortSinks()
		}
	}()

	records, err := p.readAll(ctx)
	if err != nil {
		return err
	}
	p.logger.Info("Read input", zap.Int64("records", p.stats.RecordsRead))

	for _, bt := range p.batchTransformers {
		records, err = bt.TransformBatch(ctx, records)
		if err != nil {
			return fmt.Errorf("batch transform: %w", err)
		}
	}

	cleaned := make([]Record, 0, len(records))
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(record) == 0 {
			p.stats.RecordsFiltered++
			continue
		}

		transformed, err := p.applyTransformations(ctx, record)
		if err != nil {
			p.stats.RecordsFailed++
			if err := p.handleError(ctx, record, err); err != nil {
				return err
			}
			continue
		}

		include, err := p.applyFilters(ctx, transformed)
		if err != nil {
			p.stats.RecordsFailed++
			if err := p.handleError(ctx, transformed, err); err != nil {
				return err
			}
			continue
		}
		if !include {
			p.stats.RecordsFiltered++
			continue
		}
		cleaned = append(cleaned, transformed)
	}

	for _, v := range p.validators {
		if err := v.Validate(ctx, cleaned); err != nil {
			return fmt.Errorf("validate: %w", err)
		}
	}

	for _, record := range cleaned {
		if err := ctx.Err(); err != nil {
			return err
		}
		written := true
		for _, sink := range p.sinks {
			if err := sink.Write(ctx, record); err != nil {
				written = false
				p.stats.RecordsFailed++
				if err := p.handleError(ctx, record, err); err != nil {
					return err
				}
			}
		}
		if written {
			p.stats.RecordsWritten++
		}
	}

	sinksOpen = false
	if err := p.closeSinks(); err != nil {
		return err
	}

	p.logger.Info("Pipeline finished",
		zap.Int64("read", p.stats.RecordsRead),
		zap.Int64("filtered", p.stats.RecordsFiltered),
		zap.Int64("failed", p.stats.RecordsFailed),
		zap.Int64("written", p.stats.RecordsWritten))
	return nil
}

// Stats returns the counters of the last run.
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// readAll drains the source and closes it.
func (p *Pipeline) readAll(ctx context.Context) ([]Record, error) {
	defer p.source.Close()

	var records []Record
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := p.source.Read(ctx)
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		p.stats.RecordsRead++
		records = append(records, record)
	}
}

// closeSinks flushes and closes every sink and joins their failures.
func (p *Pipeline) closeSinks() error {
	var errs []error
	for _, sink := range p.sinks {
		if err := sink.Flush(); err != nil {
			p.logger.Error("Failed to flush sink", zap.Error(err))
			errs = append(errs, fmt.Errorf("flush: %w", err))
		}
		if err := sink.Close(); err != nil {
			p.logger.Error("Failed to close sink", zap.Error(err))
			errs = append(errs, fmt.Errorf("close: %w", err))
		}
	}
	return errors.Join(errs...)
}

// abortSinks closes every sink after a failed run.
func (p *Pipeline) abortSinks() {
	for _, sink := range p.sinks {
		if err := sink.Close(); err != nil {
			p.logger.Warn("Failed to close sink after error", zap.Error(err))
		}
	}
}

// applyFilters returns false as soon as one filter rejects the record.
func (p *Pipeline) applyFilters(ctx context.Context, record Record) (bool, error) {
	for _, filter := range p.filters {
		include, err := filter.ShouldInclude(ctx, record)
		if err != nil {
			return false, err
		}
		if !include {
			return false, nil
		}
	}
	return true, nil
}

// applyTransformations applies all configured transformers in sequence.
func (p *Pipeline) applyTransformations(ctx context.Context, record Record) (Record, error) {
	current := record
	for _, transformer := range p.transformers {
		transformed, err := transformer.Transform(ctx, current)
		if err != nil {
			return nil, err
		}
		current = transformed
	}
	return current, nil
}

// handleError returns an error if processing should stop, or nil to continue.
func (p *Pipeline) handleError(ctx context.Context, record Record, err error) error {
	switch p.strategy {
	case FailFast:
		return err
	case SkipErrors, CollectErrors:
		p.logger.Debug("Record error", zap.Error(err))
		if p.errorHandler != nil {
			return p.errorHandler.HandleError(ctx, record, err)
		}
		return nil
	default:
		return err
	}
}
