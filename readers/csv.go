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

package readers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/Atim-01/imdbclean/core"
)

// CSVReaderError wraps structured error information for the CSV reader.
type CSVReaderError struct {
	Op  string
	Err error
}

func (e *CSVReaderError) Error() string {
	return fmt.Sprintf("csv reader %s: %v", e.Op, e.Err)
}

func (e *CSVReaderError) Unwrap() error {
	return e.Err
}

// CSVReaderStats holds statistics about the CSV reader.
type CSVReaderStats struct {
	RecordsRead      int64
	MalformedSkipped int64
	ReadDuration     time.Duration
	LastReadTime     time.Time
	NullValueCounts  map[string]int64
}

// CSVReaderOptions configures the CSV reader.
type CSVReaderOptions struct {
	Comma            rune
	Comment          rune
	LazyQuotes       bool
	TrimLeadingSpace bool
	HasHeaders       bool
	// Encoding names the character set of the input ("latin1", "windows-1252", "utf-8"
	// or any IANA name). Empty means UTF-8.
	Encoding string
	// SkipMalformed drops rows whose field count differs from the header instead of
	// failing the read.
	SkipMalformed bool
	Logger        *zap.Logger
}

// ReaderOptionCSV allows functional customization of CSVReader.
type ReaderOptionCSV func(*CSVReaderOptions)

func WithCSVComma(r rune) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.Comma = r }
}

func WithCSVHasHeaders(hasHeaders bool) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.HasHeaders = hasHeaders }
}

func WithCSVTrimSpace(trim bool) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.TrimLeadingSpace = trim }
}

func WithCSVLazyQuotes(lazy bool) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.LazyQuotes = lazy }
}

func WithCSVEncoding(name string) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.Encoding = name }
}

func WithCSVSkipMalformed(skip bool) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.SkipMalformed = skip }
}

func WithCSVLogger(logger *zap.Logger) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.Logger = logger }
}

// CSVReader implements DataSource for delimited text files.
//
// Values are returned as raw strings; typing is left to the cleaning rules.
// Blank fields become the missing-marker (nil).
type CSVReader struct {
	reader  *csv.Reader
	headers []string
	closer  io.Closer
	stats   CSVReaderStats
	opts    CSVReaderOptions
	logger  *zap.Logger
}

// NewCSVReader creates a CSVReader with default or overridden options.
func NewCSVReader(r io.ReadCloser, options ...ReaderOptionCSV) (*CSVReader, error) {
	opts := CSVReaderOptions{
		Comma:         ',',
		HasHeaders:    true,
		SkipMalformed: true,
	}

	for _, opt := range options {
		opt(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	enc, err := LookupEncoding(opts.Encoding)
	if err != nil {
		return nil, &CSVReaderError{Op: "encoding", Err: err}
	}

	csvReader := csv.NewReader(transform.NewReader(r, enc.NewDecoder()))
	csvReader.Comma = opts.Comma
	csvReader.Comment = opts.Comment
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = opts.LazyQuotes
	csvReader.TrimLeadingSpace = opts.TrimLeadingSpace

	reader := &CSVReader{
		reader: csvReader,
		closer: r,
		opts:   opts,
		logger: logger,
		stats:  CSVReaderStats{NullValueCounts: make(map[string]int64)},
	}

	if opts.HasHeaders {
		headers, err := csvReader.Read()
		if err != nil {
			return nil, &CSVReaderError{Op: "read_headers", Err: err}
		}
		reader.headers = normalizeHeaders(headers)
	}

	return reader, nil
}

// Read implements the DataSource interface.
func (c *CSVReader) Read(ctx context.Context) (core.Record, error) {
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil, &CSVReaderError{Op: "read", Err: ctx.Err()}
		default:
		}

		row, err := c.reader.Read()
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, &CSVReaderError{Op: "read_record", Err: err}
		}

		if c.headers == nil {
			c.headers = defaultHeaders(len(row))
		}
		if len(row) != len(c.headers) {
			if !c.opts.SkipMalformed {
				line, _ := c.reader.FieldPos(0)
				return nil, &CSVReaderError{
					Op:  "read_record",
					Err: fmt.Errorf("line %d: expected %d fields, got %d", line, len(c.headers), len(row)),
				}
			}
			c.stats.MalformedSkipped++
			line, _ := c.reader.FieldPos(0)
			c.logger.Debug("Skipping malformed row",
				zap.Int("line", line),
				zap.Int("fields", len(row)),
				zap.Int("expected", len(c.headers)))
			continue
		}

		res := make(core.Record, len(row))
		for i, val := range row {
			key := c.headers[i]
			if strings.TrimSpace(val) == "" {
				c.stats.NullValueCounts[key]++
				res[key] = nil
			} else {
				res[key] = val
			}
		}

		c.stats.RecordsRead++
		c.stats.LastReadTime = time.Now()
		c.stats.ReadDuration += time.Since(start)
		return res, nil
	}
}

// Headers returns the column names in file order.
func (c *CSVReader) Headers() []string {
	out := make([]string, len(c.headers))
	copy(out, c.headers)
	return out
}

// Close implements the DataSource interface.
func (c *CSVReader) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// Stats returns CSV reader stats.
func (c *CSVReader) Stats() CSVReaderStats {
	return c.stats
}

// LookupEncoding resolves a character set name. UTF-8 input has its byte order mark removed.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM, nil
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc, nil
}

// normalizeHeaders trims header names, names blank headers "Unnamed: <index>" and
// suffixes duplicates with ".<n>".
func normalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		if n, ok := seen[h]; ok {
			seen[h] = n + 1
			h = h + "." + strconv.Itoa(n+1)
		} else {
			seen[h] = 0
		}
		headers[i] = h
	}
	return headers
}

func defaultHeaders(n int) []string {
	headers := make([]string, n)
	for i := range headers {
		headers[i] = "col_" + strconv.Itoa(i)
	}
	return headers
}
