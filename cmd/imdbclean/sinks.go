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
	"time"

	"github.com/Atim-01/imdbclean/cleaning"
	"github.com/Atim-01/imdbclean/config"
	"github.com/Atim-01/imdbclean/core"
	"github.com/Atim-01/imdbclean/location"
	"github.com/Atim-01/imdbclean/readers"
	"github.com/Atim-01/imdbclean/writers"
)

// newFileSink returns a sink in format at a file or s3 location. Columns listed in
// order come first in the output. The location is only created once the pipeline
// writes or flushes, so a failed run leaves any previous output in place.
func newFileSink(ctx context.Context, resolver *location.Resolver, path, format string, order []string) (core.DataSink, error) {
	switch format {
	case "csv", "", "jsonl", "parquet":
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}

	return writers.NewLazySink(func() (core.DataSink, error) {
		wc, err := resolver.Create(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
		var sink core.DataSink
		switch format {
		case "jsonl":
			sink = writers.NewJSONWriter(wc, writers.WithJSONTimeLayout(writers.DateLayout))
		case "parquet":
			sink, err = writers.NewParquetWriter(wc,
				writers.WithFieldOrder(order),
				writers.WithMetadata(map[string]string{"writer": "imdbclean"}))
		default:
			sink, err = writers.NewCSVWriter(wc, writers.WithPreferredOrder(order))
		}
		if err != nil {
			wc.Close()
			return nil, err
		}
		return sink, nil
	}), nil
}

// newSecondarySink opens the database sink configured in cfg, or returns nil when
// sink.driver is none.
func newSecondarySink(ctx context.Context, cfg config.SinkConfig, order []string) (core.DataSink, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "mongo":
		mw, err := writers.NewMongoWriter(
			writers.WithMongoURI(cfg.DSN),
			writers.WithMongoDatabase(cfg.Database),
			writers.WithMongoCollection(cfg.Table),
			writers.WithMongoFieldOrder(order),
			writers.WithMongoClearFirst(true),
		)
		if err != nil {
			return nil, err
		}
		if err := mw.Connect(ctx); err != nil {
			return nil, err
		}
		return mw, nil
	default:
		dialect, err := writers.DialectFor(cfg.Driver)
		if err != nil {
			return nil, err
		}
		sw, err := writers.OpenSQLWriter(ctx, dialect, cfg.DSN,
			writers.WithTableName(cfg.Table),
			writers.WithCreateTable(true),
			writers.WithTruncateTable(true),
		)
		if err != nil {
			return nil, err
		}
		return sw, nil
	}
}

// flushAudit writes the ledger to the audit file and table configured in cfg.
func flushAudit(ctx context.Context, cfg *config.Config, resolver *location.Resolver, ledger *cleaning.Ledger) error {
	if cfg.Audit.Path != "" {
		wc, err := resolver.Create(ctx, cfg.Audit.Path)
		if err != nil {
			return fmt.Errorf("create audit file: %w", err)
		}
		sink := writers.NewJSONWriter(wc, writers.WithJSONTimeLayout(time.RFC3339))
		if err := ledger.Flush(ctx, sink); err != nil {
			sink.Close()
			return err
		}
		if err := sink.Close(); err != nil {
			return fmt.Errorf("close audit file: %w", err)
		}
	}

	if cfg.Audit.Table != "" {
		dialect, err := writers.DialectFor(cfg.Sink.Driver)
		if err != nil {
			return err
		}
		sink, err := writers.OpenSQLWriter(ctx, dialect, cfg.Sink.DSN,
			writers.WithTableName(cfg.Audit.Table),
			writers.WithSQLColumns(cleaning.AuditColumns),
			writers.WithCreateTable(true),
		)
		if err != nil {
			return err
		}
		if err := ledger.Flush(ctx, sink); err != nil {
			sink.Close()
			return err
		}
		if err := sink.Close(); err != nil {
			return fmt.Errorf("close audit table: %w", err)
		}
	}
	return nil
}

// openCleaned returns a source over a cleaned file, chosen by its extension.
func openCleaned(ctx context.Context, resolver *location.Resolver, path string) (core.DataSource, error) {
	loc, err := location.Parse(path)
	if err != nil {
		return nil, err
	}
	switch loc.Ext() {
	case ".parquet":
		rs, err := resolver.OpenSeekable(ctx, path)
		if err != nil {
			return nil, err
		}
		reader, err := readers.NewParquetReader(rs)
		if err != nil {
			return nil, err
		}
		return reader, nil
	case ".jsonl", ".json":
		rc, err := resolver.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		return readers.NewJSONReader(rc), nil
	default:
		rc, err := resolver.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		reader, err := readers.NewCSVReader(rc, readers.WithCSVEncoding("utf-8"))
		if err != nil {
			rc.Close()
			return nil, err
		}
		return reader, nil
	}
}

// openSinkSource reads the cleaned movies back from the configured database sink.
func openSinkSource(ctx context.Context, cfg config.SinkConfig) (core.DataSource, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, fmt.Errorf("no sink configured")
	case "mongo":
		reader, err := readers.NewMongoReader(
			readers.WithMongoURI(cfg.DSN),
			readers.WithMongoDB(cfg.Database),
			readers.WithMongoCollection(cfg.Table),
		)
		if err != nil {
			return nil, err
		}
		if err := reader.Connect(ctx); err != nil {
			return nil, err
		}
		return reader, nil
	default:
		reader, err := readers.NewSQLReader(ctx,
			readers.WithSQLDriver(cfg.Driver),
			readers.WithSQLDSN(cfg.DSN),
			readers.WithSQLTable(cfg.Table),
		)
		if err != nil {
			return nil, err
		}
		return reader, nil
	}
}
