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

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Atim-01/imdbclean/config"
	"github.com/Atim-01/imdbclean/location"
	"github.com/Atim-01/imdbclean/logging"
)

// flagKeys maps command line flags to configuration paths.
var flagKeys = map[string]string{
	"input":          "input.path",
	"delimiter":      "input.delimiter",
	"encoding":       "input.encoding",
	"output":         "output.path",
	"format":         "output.format",
	"sink-driver":    "sink.driver",
	"sink-dsn":       "sink.dsn",
	"sink-table":     "sink.table",
	"sink-database":  "sink.database",
	"audit":          "audit.path",
	"audit-table":    "audit.table",
	"report-dir":     "report.dir",
	"strict":         "validation.strict",
	"max-score":      "validation.max_score",
	"error-strategy": "pipeline.error_strategy",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"s3-region":      "s3.region",
	"s3-endpoint":    "s3.endpoint",
	"s3-path-style":  "s3.path_style",
}

// RootCmd returns the imdbclean command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "imdbclean",
		Short:        "Clean and summarize the messy IMDb movie dataset",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("env-file", ".env", "optional .env file loaded before the environment")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "console", "log format (console, json)")
	pf.String("s3-region", "", "region for s3:// locations")
	pf.String("s3-endpoint", "", "custom endpoint for s3:// locations")
	pf.Bool("s3-path-style", false, "use path-style s3 addressing")

	root.AddCommand(
		CleanCmd(),
		SummarizeCmd(),
	)

	return root
}

// loadConfig merges defaults, environment and the flags set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	overrides := make(map[string]any)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			overrides[key] = f.Value.String()
		}
	})

	envFile, _ := cmd.Flags().GetString("env-file")
	return config.Load(config.LoadOptions{EnvFile: envFile, Overrides: overrides})
}

// setup loads configuration and builds the logger and location resolver.
func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, *location.Resolver, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := logging.New(&logging.Config{
		Level:  cfg.Log.Level,
		Format: logging.Format(cfg.Log.Format),
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, nil, nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.ContextWithLogger(ctx, logger))
	resolver := location.NewResolver(location.WithS3Options(location.S3Options{
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		PathStyle:       cfg.S3.PathStyle,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
	}))
	return cfg, logger, resolver, nil
}
