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
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/Atim-01/imdbclean/cleaning"
	"github.com/Atim-01/imdbclean/config"
	"github.com/Atim-01/imdbclean/location"
)

const messyFixture = `IMDb-ID;Original titlÊ;Release year;Genrë¨;Duration;Country;Content Rating;Director;;Income;Votes;Score
tt0111161;The Shawshank Redemption;1995-02-10;Drama;142;USA;R;Frank Darabont;;$ 28815245;2.278.845;9.3
tt0068646;The Godfather;1972-09-21;Crime, Drama;175c;US;R;Francis Ford Coppola;;$ 246,120,974;1.572.674;++8.7
;;;;;;;;;;;
tt0000001;Broken;row
`

func writeLatin1(t *testing.T, path, content string) {
	t.Helper()
	encoded, err := charmap.ISO8859_1.NewEncoder().String(content)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(encoded), 0o644))
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			n++
		}
	}
	require.NoError(t, scanner.Err())
	return n
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "messy.csv")
	writeLatin1(t, input, messyFixture)

	cfg := config.Default()
	cfg.Input.Path = input
	cfg.Output.Path = filepath.Join(dir, "out", "cleaned.csv")
	cfg.Audit.Path = filepath.Join(dir, "out", "audit.jsonl")
	cfg.Audit.Table = "cleaning_audit"
	cfg.Report.Dir = filepath.Join(dir, "reports")
	cfg.Sink.Driver = "sqlite"
	cfg.Sink.DSN = filepath.Join(dir, "movies.db")
	cfg.Sink.Table = "movies"
	return cfg
}

func TestRunClean(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	result, err := runClean(ctx, cfg, zap.NewNop(), location.NewResolver())
	require.NoError(t, err)

	assert.Equal(t, int64(3), result.Stats.RecordsRead)
	assert.Equal(t, int64(1), result.Stats.RecordsFiltered)
	assert.Equal(t, int64(2), result.Stats.RecordsWritten)
	assert.Equal(t, int64(1), result.MalformedSkipped)
	assert.Empty(t, result.RecordErrors)

	rows := readCSV(t, cfg.Output.Path)
	require.Len(t, rows, 3)
	assert.Equal(t, cleaning.OutputColumns, rows[0])
	assert.Equal(t, []string{
		"tt0111161", "The Shawshank Redemption", "1995-02-10", "Drama", "142", "USA", "R",
		"Frank Darabont", "28815245", "2278845", "9.3",
	}, rows[1])
	assert.Equal(t, []string{
		"tt0068646", "The Godfather", "1972-09-21", "Crime, Drama", "175", "USA", "R",
		"Francis Ford Coppola", "246120974", "1572674", "8.7",
	}, rows[2])

	assert.Equal(t, result.Operations, countLines(t, cfg.Audit.Path))

	db, err := sql.Open("sqlite", cfg.Sink.DSN)
	require.NoError(t, err)
	defer db.Close()

	var movies int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "movies"`).Scan(&movies))
	assert.Equal(t, 2, movies)

	var audited int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "cleaning_audit"`).Scan(&audited))
	assert.Equal(t, result.Operations, audited)

	var dropped int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM "cleaning_audit" WHERE "operation" = ? AND "column_name" = ?`,
		cleaning.OpDropColumn, "Unnamed: 8").Scan(&dropped))
	assert.Equal(t, 1, dropped)

	var renamed int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM "cleaning_audit" WHERE "operation" = ?`,
		cleaning.OpRenameColumn).Scan(&renamed))
	assert.Equal(t, 4, renamed)
}

func TestRunCleanRerunReplacesSinkRows(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audit.Table = ""
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := runClean(ctx, cfg, zap.NewNop(), location.NewResolver())
		require.NoError(t, err)
	}

	db, err := sql.Open("sqlite", cfg.Sink.DSN)
	require.NoError(t, err)
	defer db.Close()

	var movies int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "movies"`).Scan(&movies))
	assert.Equal(t, 2, movies)
}

func TestRunCleanTrimsTextColumns(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sink.Driver = "none"
	cfg.Audit.Table = ""
	writeLatin1(t, cfg.Input.Path, "IMDb-ID;Original title;Genre;Director\ntt1;  Up ;Animation ;  Pete Docter\n")

	_, err := runClean(context.Background(), cfg, zap.NewNop(), location.NewResolver())
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"IMDb-ID", "Original title", "Genre", "Director"},
		{"tt1", "Up", "Animation", "Pete Docter"},
	}, readCSV(t, cfg.Output.Path))
}

func TestRunCleanUnsupportedFormat(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Format = "xml"
	cfg.Sink.Driver = "none"

	_, err := runClean(context.Background(), cfg, zap.NewNop(), location.NewResolver())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestRunCleanStrictFailureKeepsPreviousOutput(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sink.Driver = "none"
	cfg.Audit.Table = ""
	cfg.Validation.Strict = true
	require.NoError(t, os.WriteFile(cfg.Input.Path, []byte("IMDb-ID;Score\ntt1;11.5\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.Output.Path), 0o755))
	require.NoError(t, os.WriteFile(cfg.Output.Path, []byte("previous,good,output\n"), 0o644))

	_, err := runClean(context.Background(), cfg, zap.NewNop(), location.NewResolver())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "above maximum")

	content, err := os.ReadFile(cfg.Output.Path)
	require.NoError(t, err)
	assert.Equal(t, "previous,good,output\n", string(content))
	assert.NoFileExists(t, cfg.Audit.Path)
}

func TestRunCleanMissingInput(t *testing.T) {
	cfg := testConfig(t)
	cfg.Input.Path = filepath.Join(t.TempDir(), "absent.csv")

	_, err := runClean(context.Background(), cfg, zap.NewNop(), location.NewResolver())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open input")
}

func TestRunCleanParquetThenSummarize(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sink.Driver = "none"
	cfg.Audit.Table = ""
	cfg.Output.Format = "parquet"
	cfg.Output.Path = strings.TrimSuffix(cfg.Output.Path, ".csv") + ".parquet"
	ctx := context.Background()
	resolver := location.NewResolver()

	result, err := runClean(ctx, cfg, zap.NewNop(), resolver)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Stats.RecordsWritten)

	source, err := openCleaned(ctx, resolver, cfg.Output.Path)
	require.NoError(t, err)
	written, err := runSummarize(ctx, cfg, zap.NewNop(), resolver, source)
	require.NoError(t, err)
	require.Len(t, written, 4)

	rows := readCSV(t, filepath.Join(cfg.Report.Dir, "income_by_country.csv"))
	assert.Equal(t, [][]string{
		{"Country", "Average Income ($)", "Movies"},
		{"USA", "137468109.5", "2"},
	}, rows)
}

func TestRunSummarize(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sink.Driver = "none"
	cfg.Audit.Table = ""
	ctx := context.Background()
	resolver := location.NewResolver()

	_, err := runClean(ctx, cfg, zap.NewNop(), resolver)
	require.NoError(t, err)

	source, err := openCleaned(ctx, resolver, cfg.Output.Path)
	require.NoError(t, err)
	written, err := runSummarize(ctx, cfg, zap.NewNop(), resolver, source)
	require.NoError(t, err)

	var names []string
	for _, path := range written {
		_, err := os.Stat(path)
		require.NoError(t, err)
		names = append(names, filepath.Base(path))
	}
	assert.Equal(t, []string{
		"income_by_genre.csv",
		"income_by_country.csv",
		"income_by_content_rating.csv",
		"best_genre_per_country.csv",
	}, names)

	byGenre := readCSV(t, filepath.Join(cfg.Report.Dir, "income_by_genre.csv"))
	assert.Equal(t, [][]string{
		{"Genre", "Average Income ($)", "Movies"},
		{"Crime, Drama", "246120974", "1"},
		{"Drama", "28815245", "1"},
	}, byGenre)

	best := readCSV(t, filepath.Join(cfg.Report.Dir, "best_genre_per_country.csv"))
	assert.Equal(t, [][]string{
		{"Country", "Genre", "Total Income ($)"},
		{"USA", "Crime, Drama", "246120974"},
	}, best)
}

func TestRunSummarizeFromSink(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audit.Table = ""
	ctx := context.Background()
	resolver := location.NewResolver()

	_, err := runClean(ctx, cfg, zap.NewNop(), resolver)
	require.NoError(t, err)

	source, err := openSinkSource(ctx, cfg.Sink)
	require.NoError(t, err)
	_, err = runSummarize(ctx, cfg, zap.NewNop(), resolver, source)
	require.NoError(t, err)

	rows := readCSV(t, filepath.Join(cfg.Report.Dir, "income_by_country.csv"))
	assert.Equal(t, [][]string{
		{"Country", "Average Income ($)", "Movies"},
		{"USA", "137468109.5", "2"},
	}, rows)
}

func TestRunCleanJSONLinesThenSummarize(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sink.Driver = "none"
	cfg.Audit.Table = ""
	cfg.Output.Format = "jsonl"
	cfg.Output.Path = strings.TrimSuffix(cfg.Output.Path, ".csv") + ".jsonl"
	ctx := context.Background()
	resolver := location.NewResolver()

	_, err := runClean(ctx, cfg, zap.NewNop(), resolver)
	require.NoError(t, err)
	assert.Equal(t, 2, countLines(t, cfg.Output.Path))

	source, err := openCleaned(ctx, resolver, cfg.Output.Path)
	require.NoError(t, err)
	written, err := runSummarize(ctx, cfg, zap.NewNop(), resolver, source)
	require.NoError(t, err)
	assert.Len(t, written, 4)

	best := readCSV(t, filepath.Join(cfg.Report.Dir, "best_genre_per_country.csv"))
	assert.Equal(t, []string{"USA", "Crime, Drama", "246120974"}, best[1])
}

func TestOpenSinkSourceRequiresDriver(t *testing.T) {
	_, err := openSinkSource(context.Background(), config.SinkConfig{Driver: "none"})
	assert.Error(t, err)
}

func TestLoadConfigFromFlags(t *testing.T) {
	cmd := RootCmd()
	clean, _, err := cmd.Find([]string{"clean"})
	require.NoError(t, err)
	require.NoError(t, clean.ParseFlags([]string{"--input", "in.csv", "--format", "jsonl", "--max-score", "9.5"}))
	require.NoError(t, clean.Flags().Set("env-file", filepath.Join(t.TempDir(), "absent.env")))

	cfg, err := loadConfig(clean)
	require.NoError(t, err)
	assert.Equal(t, "in.csv", cfg.Input.Path)
	assert.Equal(t, "jsonl", cfg.Output.Format)
	assert.Equal(t, 9.5, cfg.Validation.MaxScore)
	assert.Equal(t, ";", cfg.Input.Delimiter)
}

func TestRootCommandCleanThenSummarize(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "messy.csv")
	writeLatin1(t, input, messyFixture)
	output := filepath.Join(dir, "cleaned.csv")
	reports := filepath.Join(dir, "reports")
	envFile := filepath.Join(dir, "absent.env")

	var logs bytes.Buffer
	root := RootCmd()
	root.SetErr(&logs)
	root.SetOut(&logs)
	root.SetArgs([]string{"clean", "--input", input, "--output", output, "--env-file", envFile, "--log-format", "json"})
	require.NoError(t, root.Execute())
	assert.Contains(t, logs.String(), "Cleaned dataset written")
	assert.Len(t, readCSV(t, output), 3)

	root = RootCmd()
	root.SetErr(&logs)
	root.SetArgs([]string{"summarize", "--cleaned", output, "--report-dir", reports, "--env-file", envFile})
	require.NoError(t, root.Execute())

	genre := readCSV(t, filepath.Join(reports, "income_by_genre.csv"))
	assert.Equal(t, []string{cleaning.ColGenre, "Average Income ($)", "Movies"}, genre[0])
}

func TestRootCommandRejectsUnknownSource(t *testing.T) {
	root := RootCmd()
	root.SetErr(&bytes.Buffer{})
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"summarize", "--from", "tape", "--env-file", filepath.Join(t.TempDir(), "absent.env")})
	assert.ErrorContains(t, root.Execute(), "unsupported summarize source")
}
