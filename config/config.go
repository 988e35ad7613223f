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

// Package config loads imdbclean settings from defaults, an optional .env file,
// IMDBCLEAN_* environment variables and command line overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "IMDBCLEAN_"

// ErrInvalidConfig wraps every load or validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full imdbclean configuration.
type Config struct {
	Input      InputConfig      `koanf:"input"`
	Output     OutputConfig     `koanf:"output"`
	Sink       SinkConfig       `koanf:"sink"`
	Audit      AuditConfig      `koanf:"audit"`
	Report     ReportConfig     `koanf:"report"`
	Validation ValidationConfig `koanf:"validation"`
	Pipeline   PipelineConfig   `koanf:"pipeline"`
	Log        LogConfig        `koanf:"log"`
	S3         S3Config         `koanf:"s3"`
}

type InputConfig struct {
	Path      string `koanf:"path"      validate:"required"`
	Delimiter string `koanf:"delimiter" validate:"required,len=1"`
	Encoding  string `koanf:"encoding"  validate:"required"`
}

type OutputConfig struct {
	Path   string `koanf:"path"   validate:"required"`
	Format string `koanf:"format" validate:"oneof=csv jsonl parquet"`
}

// SinkConfig describes an optional secondary sink receiving the cleaned records.
// Table is the collection name for mongo.
type SinkConfig struct {
	Driver   string `koanf:"driver"   validate:"oneof=none postgres sqlite mongo"`
	DSN      string `koanf:"dsn"      validate:"required_unless=Driver none"`
	Table    string `koanf:"table"    validate:"required_unless=Driver none"`
	Database string `koanf:"database" validate:"required_if=Driver mongo"`
}

// AuditConfig says where cleaning operations go. Path receives JSON lines; Table,
// when set, is written through the SQL sink's connection.
type AuditConfig struct {
	Path  string `koanf:"path"`
	Table string `koanf:"table"`
}

type ReportConfig struct {
	Dir string `koanf:"dir" validate:"required"`
}

type ValidationConfig struct {
	Strict   bool    `koanf:"strict"`
	MaxScore float64 `koanf:"max_score" validate:"gt=0"`
}

type PipelineConfig struct {
	ErrorStrategy string `koanf:"error_strategy" validate:"oneof=fail-fast skip collect"`
}

type LogConfig struct {
	Level  string `koanf:"level"  validate:"oneof=debug info warn warning error"`
	Format string `koanf:"format" validate:"oneof=console json"`
}

type S3Config struct {
	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint"`
	PathStyle       bool   `koanf:"path_style"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
}

// Default returns the settings of a plain run over the messy dataset.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Path:      "messy_IMDB_dataset.csv",
			Delimiter: ";",
			Encoding:  "latin1",
		},
		Output: OutputConfig{
			Path:   "cleaned_IMDb_dataset.csv",
			Format: "csv",
		},
		Sink:       SinkConfig{Driver: "none"},
		Report:     ReportConfig{Dir: "reports"},
		Validation: ValidationConfig{MaxScore: 10},
		Pipeline:   PipelineConfig{ErrorStrategy: "collect"},
		Log:        LogConfig{Level: "info", Format: "console"},
	}
}

// Delimiter returns the input delimiter as a rune.
func (c *Config) Delimiter() rune {
	for _, r := range c.Input.Delimiter {
		return r
	}
	return ';'
}

// LoadOptions controls Load.
type LoadOptions struct {
	// EnvFile is loaded into the process environment when it exists.
	EnvFile string
	// Overrides are koanf paths (e.g. "output.format") set last.
	Overrides map[string]any
}

// Load builds and validates a Config.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("%w: load defaults: %v", ErrInvalidConfig, err)
	}

	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: load env file %s: %v", ErrInvalidConfig, opts.EnvFile, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return transformEnvKey(strings.TrimPrefix(key, EnvPrefix)), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("%w: load environment: %v", ErrInvalidConfig, err)
	}

	for key, value := range opts.Overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("%w: set %s: %v", ErrInvalidConfig, key, err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %v", ErrInvalidConfig, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints and cross-field rules.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: configuration cannot be nil", ErrInvalidConfig)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.Audit.Table != "" && cfg.Sink.Driver != "postgres" && cfg.Sink.Driver != "sqlite" {
		return fmt.Errorf("%w: audit.table needs sink.driver postgres or sqlite", ErrInvalidConfig)
	}
	return nil
}

// transformEnvKey maps INPUT_PATH to input.path and VALIDATION_MAX_SCORE to
// validation.max_score: the first segment is the section, the rest the field.
func transformEnvKey(s string) string {
	parts := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool { return r == '_' })
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return parts[0] + "." + strings.Join(parts[1:], "_")
	}
}
