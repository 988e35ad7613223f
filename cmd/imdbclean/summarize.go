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
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Atim-01/imdbclean"
	"github.com/Atim-01/imdbclean/cleaning"
	"github.com/Atim-01/imdbclean/config"
	"github.com/Atim-01/imdbclean/core"
	"github.com/Atim-01/imdbclean/location"
	"github.com/Atim-01/imdbclean/report"
	"github.com/Atim-01/imdbclean/transform"
	"github.com/Atim-01/imdbclean/writers"
)

// SummarizeCmd returns the command that writes the income reports.
func SummarizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Write income reports for a cleaned dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, resolver, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			from, _ := cmd.Flags().GetString("from")
			var source core.DataSource
			switch from {
			case "file":
				cleaned, _ := cmd.Flags().GetString("cleaned")
				if cleaned == "" {
					cleaned = cfg.Output.Path
				}
				source, err = openCleaned(cmd.Context(), resolver, cleaned)
			case "sink":
				source, err = openSinkSource(cmd.Context(), cfg.Sink)
			default:
				return fmt.Errorf("unsupported summarize source %q", from)
			}
			if err != nil {
				return fmt.Errorf("open cleaned data: %w", err)
			}
			_, err = runSummarize(cmd.Context(), cfg, logger, resolver, source)
			return err
		},
	}

	f := cmd.Flags()
	f.String("from", "file", "where to read cleaned movies (file, sink)")
	f.String("cleaned", "", "cleaned csv, jsonl or parquet file (defaults to output.path)")
	f.String("sink-driver", "", "sink to read with --from sink (postgres, sqlite, mongo)")
	f.String("sink-dsn", "", "sink connection string")
	f.String("sink-table", "", "sink table or collection")
	f.String("sink-database", "", "sink database (mongo)")
	f.StringP("output", "o", "", "cleaned output path used when --cleaned is not set")
	f.String("report-dir", "", "directory or s3:// prefix receiving the reports")

	return cmd
}

// recordCollector is a DataSink that keeps records in memory.
type recordCollector struct {
	mu      sync.Mutex
	records []core.Record
}

func (c *recordCollector) Write(_ context.Context, record core.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, record)
	return nil
}

func (c *recordCollector) Flush() error { return nil }
func (c *recordCollector) Close() error { return nil }

// runSummarize reads the cleaned dataset from source and writes one CSV per report
// into cfg.Report.Dir. It returns the written locations.
func runSummarize(ctx context.Context, cfg *config.Config, logger *zap.Logger, resolver *location.Resolver, source core.DataSource) ([]string, error) {
	movies := &recordCollector{}
	pipeline, err := imdbclean.NewPipeline().
		From(source).
		Transform(transform.Select(report.Columns...)).
		Map(cleaning.Retype).
		To(movies).
		WithLogger(logger).
		Build()
	if err != nil {
		source.Close()
		return nil, err
	}
	if err := pipeline.Execute(ctx); err != nil {
		return nil, err
	}

	reports, err := report.All(ctx, movies.records)
	if err != nil {
		return nil, err
	}

	dir := strings.TrimRight(cfg.Report.Dir, "/")
	var written []string
	for _, r := range reports {
		target := dir + "/" + r.Name + ".csv"
		wc, err := resolver.Create(ctx, target)
		if err != nil {
			return written, fmt.Errorf("create report %s: %w", r.Name, err)
		}
		sink, err := writers.NewCSVWriter(wc, writers.WithHeaders(r.Columns))
		if err != nil {
			wc.Close()
			return written, err
		}
		if err := r.Write(ctx, sink); err != nil {
			sink.Close()
			return written, err
		}
		if err := sink.Close(); err != nil {
			return written, fmt.Errorf("close report %s: %w", r.Name, err)
		}
		logger.Info("Wrote report", zap.String("report", r.Name), zap.Int("rows", len(r.Rows)), zap.String("path", target))
		written = append(written, target)
	}
	return written, nil
}
