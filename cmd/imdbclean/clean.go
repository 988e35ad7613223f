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

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Atim-01/imdbclean"
	"github.com/Atim-01/imdbclean/cleaning"
	"github.com/Atim-01/imdbclean/config"
	"github.com/Atim-01/imdbclean/core"
	"github.com/Atim-01/imdbclean/filter"
	"github.com/Atim-01/imdbclean/location"
	"github.com/Atim-01/imdbclean/readers"
	"github.com/Atim-01/imdbclean/transform"
	"github.com/Atim-01/imdbclean/validators"
)

// CleanCmd returns the command that repairs the dataset.
func CleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Repair the messy dataset and write the cleaned table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, resolver, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			_, err = runClean(cmd.Context(), cfg, logger, resolver)
			return err
		},
	}

	f := cmd.Flags()
	f.StringP("input", "i", "", "messy input file, s3:// object or http(s) URL")
	f.String("delimiter", "", "input field delimiter")
	f.String("encoding", "", "input character set")
	f.StringP("output", "o", "", "cleaned output file or s3:// object")
	f.String("format", "", "output format (csv, jsonl, parquet)")
	f.String("sink-driver", "", "secondary sink (none, postgres, sqlite, mongo)")
	f.String("sink-dsn", "", "secondary sink connection string")
	f.String("sink-table", "", "secondary sink table or collection")
	f.String("sink-database", "", "secondary sink database (mongo)")
	f.String("audit", "", "JSON lines file receiving the cleaning operations")
	f.String("audit-table", "", "table receiving the cleaning operations")
	f.Bool("strict", false, "fail when cleaned records break data quality checks")
	f.Float64("max-score", 0, "highest plausible score")
	f.String("error-strategy", "", "record error handling (fail-fast, skip, collect)")

	return cmd
}

// cleanResult summarizes one clean run.
type cleanResult struct {
	Stats            imdbclean.Stats
	MalformedSkipped int64
	Operations       int
	RecordErrors     []error
}

// runClean executes the cleaning pipeline described by cfg.
func runClean(ctx context.Context, cfg *config.Config, logger *zap.Logger, resolver *location.Resolver) (*cleanResult, error) {
	strategy, err := core.ParseErrorStrategy(cfg.Pipeline.ErrorStrategy)
	if err != nil {
		return nil, err
	}

	rc, err := resolver.Open(ctx, cfg.Input.Path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	reader, err := readers.NewCSVReader(rc,
		readers.WithCSVComma(cfg.Delimiter()),
		readers.WithCSVEncoding(cfg.Input.Encoding),
		readers.WithCSVLazyQuotes(true),
		readers.WithCSVLogger(logger),
	)
	if err != nil {
		rc.Close()
		return nil, err
	}
	order := cleaning.CanonicalHeaders(reader.Headers())
	if len(order) == 0 {
		order = cleaning.OutputColumns
	}

	output, err := newFileSink(ctx, resolver, cfg.Output.Path, cfg.Output.Format, order)
	if err != nil {
		reader.Close()
		return nil, err
	}
	secondary, err := newSecondarySink(ctx, cfg.Sink, order)
	if err != nil {
		reader.Close()
		output.Close()
		return nil, fmt.Errorf("open %s sink: %w", cfg.Sink.Driver, err)
	}

	ledger := cleaning.NewLedger(logger)
	cleaner := cleaning.NewCleaner(cleaning.WithLogger(logger), cleaning.WithLedger(ledger))
	collector := &core.ErrorCollector{}

	builder := imdbclean.NewPipeline().
		From(reader).
		TransformAll(transform.DropEmptyColumns(transform.WithOnDrop(cleaner.RecordDroppedColumn))).
		Transform(cleaner).
		Transform(transform.TrimSpace(cleaning.ColTitle, cleaning.ColGenre, cleaning.ColDirector)).
		Filter(cleaner.AuditedFilter(filter.NotAllNull())).
		Validate(validators.NewMovieValidator(cfg.Validation.MaxScore,
			validators.WithStrict(cfg.Validation.Strict),
			validators.WithLogger(logger),
			validators.WithMaxLogged(25),
		)).
		To(output).
		WithErrorStrategy(strategy).
		WithErrorHandler(collector).
		WithLogger(logger)
	if secondary != nil {
		builder = builder.To(secondary)
	}

	pipeline, err := builder.Build()
	if err != nil {
		return nil, err
	}

	logger.Info("Cleaning dataset",
		zap.String("input", cfg.Input.Path),
		zap.String("output", cfg.Output.Path),
		zap.String("format", cfg.Output.Format),
		zap.String("run_id", ledger.RunID()))

	runErr := pipeline.Execute(ctx)

	result := &cleanResult{
		Stats:            pipeline.Stats(),
		MalformedSkipped: reader.Stats().MalformedSkipped,
		Operations:       ledger.Len(),
		RecordErrors:     collector.Errors(),
	}
	for _, recErr := range result.RecordErrors {
		logger.Warn("Record error", zap.Error(recErr))
	}
	if runErr != nil {
		logger.Error("Cleaning failed", zap.Error(runErr))
		return result, runErr
	}

	ledger.LogSummary()
	if err := flushAudit(ctx, cfg, resolver, ledger); err != nil {
		return result, fmt.Errorf("audit: %w", err)
	}

	logger.Info("Cleaned dataset written",
		zap.Int64("written", result.Stats.RecordsWritten),
		zap.Int64("rows_dropped", result.Stats.RecordsFiltered),
		zap.Int64("malformed_skipped", result.MalformedSkipped),
		zap.Int("operations", result.Operations))
	return result, nil
}
