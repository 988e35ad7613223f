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
	"database/sql"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/Atim-01/imdbclean/core"
)

// Package readers provides implementations of core.DataSource for reading data from various sources.
//
// This file implements a SQL reader that streams the rows of a query or table through
// database/sql. It stays driver agnostic: PostgreSQL goes through lib/pq and SQLite
// through modernc.org/sqlite.

// SQLReaderError provides structured error information for SQL reader operations.
type SQLReaderError struct {
	Op  string // Operation that failed (e.g., "connect", "query", "scan", "read")
	Err error  // Underlying error
}

func (e *SQLReaderError) Error() string {
	return fmt.Sprintf("sql reader %s: %v", e.Op, e.Err)
}

func (e *SQLReaderError) Unwrap() error {
	return e.Err
}

// SQLReaderStats holds statistics about the SQL reader.
type SQLReaderStats struct {
	RecordsRead     int64
	QueryDuration   time.Duration
	ReadDuration    time.Duration
	LastReadTime    time.Time
	NullValueCounts map[string]int64
	ConnectionTime  time.Duration
}

// SQLReaderOptions configures the SQL reader.
type SQLReaderOptions struct {
	Driver          string        // database/sql driver name ("postgres" or "sqlite")
	DSN             string        // Database connection string
	Query           string        // SQL query to execute
	Params          []interface{} // Optional query parameters
	Table           string        // Table to read in full when Query is empty
	ConnMaxLifetime time.Duration
	MaxOpenConns    int
	QueryTimeout    time.Duration
}

// SQLReaderOption represents a configuration function for SQLReaderOptions.
type SQLReaderOption func(*SQLReaderOptions)

// WithSQLDriver sets the database/sql driver name. "postgresql" and "sqlite3" are
// accepted as aliases.
func WithSQLDriver(driver string) SQLReaderOption {
	return func(opts *SQLReaderOptions) {
		opts.Driver = driver
	}
}

// WithSQLDSN sets the connection string.
func WithSQLDSN(dsn string) SQLReaderOption {
	return func(opts *SQLReaderOptions) {
		opts.DSN = dsn
	}
}

// WithSQLQuery sets the SQL query and optional parameters.
func WithSQLQuery(query string, params ...interface{}) SQLReaderOption {
	return func(opts *SQLReaderOptions) {
		opts.Query = query
		if len(params) > 0 {
			opts.Params = make([]interface{}, len(params))
			copy(opts.Params, params)
		}
	}
}

// WithSQLTable reads every row of table. A schema-qualified name is quoted per part.
func WithSQLTable(table string) SQLReaderOption {
	return func(opts *SQLReaderOptions) {
		opts.Table = table
	}
}

// WithSQLConnectionPool configures the connection pool.
func WithSQLConnectionPool(maxOpen int, lifetime time.Duration) SQLReaderOption {
	return func(opts *SQLReaderOptions) {
		opts.MaxOpenConns = maxOpen
		opts.ConnMaxLifetime = lifetime
	}
}

// WithSQLQueryTimeout bounds connecting and running the query.
func WithSQLQueryTimeout(timeout time.Duration) SQLReaderOption {
	return func(opts *SQLReaderOptions) {
		opts.QueryTimeout = timeout
	}
}

func (opts *SQLReaderOptions) withDefaults() *SQLReaderOptions {
	result := &SQLReaderOptions{}
	if opts != nil {
		*result = *opts
	}
	if result.QueryTimeout <= 0 {
		result.QueryTimeout = 30 * time.Second
	}
	if result.ConnMaxLifetime <= 0 {
		result.ConnMaxLifetime = 5 * time.Minute
	}
	if result.MaxOpenConns <= 0 {
		result.MaxOpenConns = 4
	}
	return result
}

// SQLReader implements core.DataSource for SQL databases.
type SQLReader struct {
	mu          sync.Mutex
	db          *sql.DB
	rows        *sql.Rows
	cancel      context.CancelFunc
	columnNames []string
	columnTypes []*sql.ColumnType
	scanBuffer  []interface{}
	values      []interface{}
	stats       SQLReaderStats
	isFinished  bool
}

// NewSQLReader connects, runs the query and returns a reader positioned before the
// first row.
func NewSQLReader(ctx context.Context, options ...SQLReaderOption) (*SQLReader, error) {
	opts := (&SQLReaderOptions{}).withDefaults()
	for _, option := range options {
		option(opts)
	}

	driver, err := driverName(opts.Driver)
	if err != nil {
		return nil, &SQLReaderError{Op: "validate", Err: err}
	}
	if opts.DSN == "" {
		return nil, &SQLReaderError{Op: "validate", Err: fmt.Errorf("dsn is required")}
	}
	query := opts.Query
	if query == "" {
		if opts.Table == "" {
			return nil, &SQLReaderError{Op: "validate", Err: fmt.Errorf("query or table is required")}
		}
		query = "SELECT * FROM " + quoteIdentifier(opts.Table)
	}

	startTime := time.Now()
	db, err := sql.Open(driver, opts.DSN)
	if err != nil {
		return nil, &SQLReaderError{Op: "connect", Err: err}
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	pingCtx, cancelPing := context.WithTimeout(ctx, opts.QueryTimeout)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, &SQLReaderError{Op: "ping", Err: err}
	}

	reader := &SQLReader{
		db: db,
		stats: SQLReaderStats{
			NullValueCounts: make(map[string]int64),
			ConnectionTime:  time.Since(startTime),
		},
	}
	if err := reader.executeQuery(ctx, query, opts.Params, opts.QueryTimeout); err != nil {
		reader.Close()
		return nil, err
	}
	return reader, nil
}

// Stats returns a copy of the reader statistics.
func (p *SQLReader) Stats() SQLReaderStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	statsCopy := p.stats
	statsCopy.NullValueCounts = make(map[string]int64, len(p.stats.NullValueCounts))
	for k, v := range p.stats.NullValueCounts {
		statsCopy.NullValueCounts[k] = v
	}
	return statsCopy
}

// Columns returns the result column names in query order.
func (p *SQLReader) Columns() []string {
	return append([]string(nil), p.columnNames...)
}

// Read implements the core.DataSource interface.
func (p *SQLReader) Read(ctx context.Context) (core.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	startTime := time.Now()
	defer func() {
		p.stats.ReadDuration += time.Since(startTime)
		p.stats.LastReadTime = time.Now()
	}()

	if err := ctx.Err(); err != nil {
		return nil, &SQLReaderError{Op: "read", Err: err}
	}
	if p.db == nil {
		return nil, &SQLReaderError{Op: "read", Err: fmt.Errorf("reader is closed")}
	}
	if p.isFinished || p.rows == nil {
		return nil, io.EOF
	}

	if !p.rows.Next() {
		if err := p.rows.Err(); err != nil {
			return nil, &SQLReaderError{Op: "read", Err: err}
		}
		p.isFinished = true
		return nil, io.EOF
	}
	if err := p.rows.Scan(p.scanBuffer...); err != nil {
		return nil, &SQLReaderError{Op: "scan", Err: err}
	}

	p.stats.RecordsRead++
	return p.convertRowToRecord(), nil
}

// Close releases the result set and the connection pool.
func (p *SQLReader) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []string
	if p.rows != nil {
		if err := p.rows.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("closing rows: %v", err))
		}
		p.rows = nil
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("closing database: %v", err))
		}
		p.db = nil
	}
	if len(errs) > 0 {
		return &SQLReaderError{Op: "close", Err: fmt.Errorf("%s", strings.Join(errs, "; "))}
	}
	return nil
}

// Schema returns a map of column name to database type name.
func (p *SQLReader) Schema() map[string]string {
	schema := make(map[string]string, len(p.columnNames))
	for i, name := range p.columnNames {
		if i < len(p.columnTypes) {
			schema[name] = p.columnTypes[i].DatabaseTypeName()
		}
	}
	return schema
}

// executeQuery runs query and prepares scan buffers. The query context lives until
// Close because rows are streamed.
func (p *SQLReader) executeQuery(ctx context.Context, query string, params []interface{}, timeout time.Duration) error {
	startTime := time.Now()

	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	p.cancel = cancel

	rows, err := p.db.QueryContext(queryCtx, query, params...)
	if err != nil {
		return &SQLReaderError{Op: "query", Err: err}
	}
	p.rows = rows
	p.stats.QueryDuration = time.Since(startTime)

	p.columnNames, err = rows.Columns()
	if err != nil {
		return &SQLReaderError{Op: "columns", Err: err}
	}
	p.columnTypes, err = rows.ColumnTypes()
	if err != nil {
		return &SQLReaderError{Op: "column_types", Err: err}
	}

	p.scanBuffer = make([]interface{}, len(p.columnNames))
	p.values = make([]interface{}, len(p.columnNames))
	for i := range p.scanBuffer {
		p.scanBuffer[i] = &p.values[i]
	}
	return nil
}

// convertRowToRecord converts the scanned row values to a core.Record.
func (p *SQLReader) convertRowToRecord() core.Record {
	record := make(core.Record, len(p.columnNames))
	for i, name := range p.columnNames {
		value := p.values[i]
		if value == nil {
			p.stats.NullValueCounts[name]++
			record[name] = nil
			continue
		}
		record[name] = convertSQLValue(value, p.columnTypes[i])
	}
	return record
}

// convertSQLValue converts driver values to the Go types used by records. Text
// returned as bytes becomes a string; binary columns keep their bytes.
func convertSQLValue(value interface{}, colType *sql.ColumnType) interface{} {
	if b, ok := value.([]byte); ok {
		switch strings.ToUpper(colType.DatabaseTypeName()) {
		case "BYTEA", "BLOB":
			return b
		default:
			return string(b)
		}
	}

	switch v := value.(type) {
	case time.Time, bool, int64, float64, string:
		return v
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
			return rv.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return int64(rv.Uint())
		case reflect.Float32:
			return rv.Float()
		default:
			return fmt.Sprintf("%v", v)
		}
	}
}

func driverName(name string) (string, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql":
		return "postgres", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported sql driver %q", name)
	}
}

func quoteIdentifier(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(parts, ".")
}
