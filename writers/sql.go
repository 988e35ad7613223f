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

package writers

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/Atim-01/imdbclean/core"
)

// SQLWriterError wraps database write errors with the failing operation.
type SQLWriterError struct {
	Op  string // The operation being performed (e.g., "connect", "create_table", "flush")
	Err error  // The underlying error
}

func (e *SQLWriterError) Error() string {
	return fmt.Sprintf("sql writer %s: %v", e.Op, e.Err)
}

func (e *SQLWriterError) Unwrap() error {
	return e.Err
}

// Dialect holds the SQL differences between supported databases.
type Dialect struct {
	Name        string
	Driver      string // database/sql driver name
	Truncate    string // statement template taking the quoted table name
	Placeholder func(position int) string
	Types       map[string]string // Go kind ("bool", "int", "float", "time", "text") to column type
}

var (
	// PostgresDialect targets PostgreSQL through lib/pq.
	PostgresDialect = Dialect{
		Name:        "postgres",
		Driver:      "postgres",
		Truncate:    "TRUNCATE TABLE %s",
		Placeholder: func(i int) string { return fmt.Sprintf("$%d", i) },
		Types: map[string]string{
			"bool":  "BOOLEAN",
			"int":   "BIGINT",
			"float": "DOUBLE PRECISION",
			"time":  "TIMESTAMP",
			"text":  "TEXT",
		},
	}

	// SQLiteDialect targets SQLite through modernc.org/sqlite.
	SQLiteDialect = Dialect{
		Name:        "sqlite",
		Driver:      "sqlite",
		Truncate:    "DELETE FROM %s",
		Placeholder: func(int) string { return "?" },
		Types: map[string]string{
			"bool":  "INTEGER",
			"int":   "INTEGER",
			"float": "REAL",
			"time":  "TIMESTAMP",
			"text":  "TEXT",
		},
	}
)

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql":
		return PostgresDialect, nil
	case "sqlite", "sqlite3":
		return SQLiteDialect, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported sql dialect %q", name)
	}
}

// QuoteIdentifier quotes a possibly schema-qualified identifier.
func (d Dialect) QuoteIdentifier(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(parts, ".")
}

// SQLWriterStats holds statistics about the SQL writer.
type SQLWriterStats struct {
	RecordsWritten   int64
	BatchesWritten   int64
	TransactionCount int64
	LastWriteTime    time.Time
	WriteDuration    time.Duration
	NullValueCounts  map[string]int64
}

// SQLWriterOptions configures the SQL writer.
type SQLWriterOptions struct {
	TableName       string
	Columns         []string // Columns to write, in order; inferred from the first batch when empty
	BatchSize       int
	CreateTable     bool
	TruncateTable   bool
	TransactionMode bool
	QueryTimeout    time.Duration
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// SQLWriterOption is a functional option for SQLWriterOptions.
type SQLWriterOption func(*SQLWriterOptions)

func WithTableName(tableName string) SQLWriterOption {
	return func(opts *SQLWriterOptions) {
		opts.TableName = tableName
	}
}

func WithSQLColumns(columns []string) SQLWriterOption {
	return func(opts *SQLWriterOptions) {
		opts.Columns = append([]string(nil), columns...)
	}
}

func WithSQLBatchSize(size int) SQLWriterOption {
	return func(opts *SQLWriterOptions) {
		opts.BatchSize = size
	}
}

func WithCreateTable(create bool) SQLWriterOption {
	return func(opts *SQLWriterOptions) {
		opts.CreateTable = create
	}
}

func WithTruncateTable(truncate bool) SQLWriterOption {
	return func(opts *SQLWriterOptions) {
		opts.TruncateTable = truncate
	}
}

func WithTransactionMode(enabled bool) SQLWriterOption {
	return func(opts *SQLWriterOptions) {
		opts.TransactionMode = enabled
	}
}

func WithQueryTimeout(timeout time.Duration) SQLWriterOption {
	return func(opts *SQLWriterOptions) {
		opts.QueryTimeout = timeout
	}
}

func WithConnectionPool(maxOpen int, maxLifetime time.Duration) SQLWriterOption {
	return func(opts *SQLWriterOptions) {
		opts.MaxOpenConns = maxOpen
		opts.ConnMaxLifetime = maxLifetime
	}
}

func (opts *SQLWriterOptions) withDefaults() *SQLWriterOptions {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 30 * time.Second
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 4
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = 5 * time.Minute
	}
	return opts
}

// SQLWriter implements core.DataSink for a SQL table. The table is created and
// truncated, if requested, when the first batch is flushed so column types can be
// taken from the data.
type SQLWriter struct {
	db          *sql.DB
	ownsDB      bool
	dialect     Dialect
	options     SQLWriterOptions
	columns     []string
	recordBuf   []core.Record
	stats       SQLWriterStats
	insertSQL   string
	initialized bool
	errorState  bool
	closed      bool
	mu          sync.Mutex
}

// OpenSQLWriter connects to dsn with the dialect's driver and returns a writer that
// closes the connection pool on Close.
func OpenSQLWriter(ctx context.Context, dialect Dialect, dsn string, opts ...SQLWriterOption) (*SQLWriter, error) {
	if dsn == "" {
		return nil, &SQLWriterError{Op: "validate", Err: fmt.Errorf("dsn is required")}
	}
	w, err := newSQLWriter(nil, dialect, opts...)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, &SQLWriterError{Op: "connect", Err: fmt.Errorf("failed to open database: %w", err)}
	}
	db.SetMaxOpenConns(w.options.MaxOpenConns)
	db.SetConnMaxLifetime(w.options.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, w.options.QueryTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, &SQLWriterError{Op: "connect", Err: fmt.Errorf("failed to ping database: %w", err)}
	}

	w.db = db
	w.ownsDB = true
	return w, nil
}

// NewSQLWriter returns a writer on an existing connection pool. Close leaves db open.
func NewSQLWriter(db *sql.DB, dialect Dialect, opts ...SQLWriterOption) (*SQLWriter, error) {
	if db == nil {
		return nil, &SQLWriterError{Op: "validate", Err: fmt.Errorf("db is required")}
	}
	return newSQLWriter(db, dialect, opts...)
}

func newSQLWriter(db *sql.DB, dialect Dialect, opts ...SQLWriterOption) (*SQLWriter, error) {
	options := &SQLWriterOptions{TransactionMode: true}
	for _, opt := range opts {
		opt(options)
	}
	options = options.withDefaults()

	if options.TableName == "" {
		return nil, &SQLWriterError{Op: "validate", Err: fmt.Errorf("table name is required")}
	}
	if dialect.Placeholder == nil {
		return nil, &SQLWriterError{Op: "validate", Err: fmt.Errorf("dialect is required")}
	}

	return &SQLWriter{
		db:        db,
		dialect:   dialect,
		options:   *options,
		columns:   append([]string(nil), options.Columns...),
		recordBuf: make([]core.Record, 0, options.BatchSize),
		stats:     SQLWriterStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// Stats returns a copy of the writer statistics.
func (w *SQLWriter) Stats() SQLWriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	statsCopy := w.stats
	statsCopy.NullValueCounts = make(map[string]int64, len(w.stats.NullValueCounts))
	for k, v := range w.stats.NullValueCounts {
		statsCopy.NullValueCounts[k] = v
	}
	return statsCopy
}

// Write buffers record and flushes a full batch.
func (w *SQLWriter) Write(ctx context.Context, record core.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return &SQLWriterError{Op: "write", Err: fmt.Errorf("writer is closed")}
	}
	if w.errorState {
		return &SQLWriterError{Op: "write", Err: fmt.Errorf("writer is in error state")}
	}

	for k, v := range record {
		if v == nil {
			w.stats.NullValueCounts[k]++
		}
	}

	w.recordBuf = append(w.recordBuf, record)
	w.stats.RecordsWritten++

	if len(w.recordBuf) >= w.options.BatchSize {
		if err := w.flushBufferUnsafe(ctx); err != nil {
			w.errorState = true
			return err
		}
	}
	return nil
}

// Flush writes buffered records.
func (w *SQLWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.errorState {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.options.QueryTimeout)
	defer cancel()
	if err := w.flushBufferUnsafe(ctx); err != nil {
		w.errorState = true
		return err
	}
	return nil
}

// Close flushes and, for writers opened by OpenSQLWriter, closes the pool.
func (w *SQLWriter) Close() error {
	flushErr := w.Flush()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return flushErr
	}
	w.closed = true

	if w.ownsDB && w.db != nil {
		if err := w.db.Close(); err != nil && flushErr == nil {
			return &SQLWriterError{Op: "close", Err: err}
		}
	}
	return flushErr
}

func (w *SQLWriter) initializeUnsafe(ctx context.Context) error {
	if len(w.columns) == 0 {
		seen := make(map[string]bool)
		for _, record := range w.recordBuf {
			for key := range record {
				if !seen[key] {
					seen[key] = true
					w.columns = append(w.columns, key)
				}
			}
		}
		sort.Strings(w.columns)
	}
	if len(w.columns) == 0 {
		return fmt.Errorf("no columns to write")
	}

	table := w.dialect.QuoteIdentifier(w.options.TableName)

	if w.options.CreateTable {
		defs := make([]string, len(w.columns))
		for i, col := range w.columns {
			defs[i] = fmt.Sprintf("%s %s", w.dialect.QuoteIdentifier(col), w.columnType(col))
		}
		query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", "))
		if _, err := w.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	if w.options.TruncateTable {
		if _, err := w.db.ExecContext(ctx, fmt.Sprintf(w.dialect.Truncate, table)); err != nil {
			return fmt.Errorf("failed to truncate table: %w", err)
		}
	}

	quoted := make([]string, len(w.columns))
	placeholders := make([]string, len(w.columns))
	for i, col := range w.columns {
		quoted[i] = w.dialect.QuoteIdentifier(col)
		placeholders[i] = w.dialect.Placeholder(i + 1)
	}
	w.insertSQL = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	w.initialized = true
	return nil
}

// columnType maps the first non-missing buffered value of col to a column type.
func (w *SQLWriter) columnType(col string) string {
	for _, record := range w.recordBuf {
		if v := record[col]; v != nil {
			return w.dialect.Types[sqlKind(v)]
		}
	}
	return w.dialect.Types["text"]
}

func (w *SQLWriter) flushBufferUnsafe(ctx context.Context) (err error) {
	if len(w.recordBuf) == 0 {
		return nil
	}
	if !w.initialized {
		if err := w.initializeUnsafe(ctx); err != nil {
			return &SQLWriterError{Op: "initialize", Err: err}
		}
	}

	start := time.Now()

	type execer interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	}
	var target execer = w.db

	var tx *sql.Tx
	if w.options.TransactionMode {
		tx, err = w.db.BeginTx(ctx, nil)
		if err != nil {
			return &SQLWriterError{Op: "begin", Err: err}
		}
		defer func() {
			if err != nil {
				_ = tx.Rollback()
			}
		}()
		target = tx
	}

	for _, record := range w.recordBuf {
		values := make([]interface{}, len(w.columns))
		for i, col := range w.columns {
			values[i] = convertSQLValue(record[col])
		}
		if _, err = target.ExecContext(ctx, w.insertSQL, values...); err != nil {
			return &SQLWriterError{Op: "insert", Err: err}
		}
	}

	if tx != nil {
		if err = tx.Commit(); err != nil {
			return &SQLWriterError{Op: "commit", Err: err}
		}
		w.stats.TransactionCount++
	}

	w.stats.BatchesWritten++
	w.stats.LastWriteTime = time.Now()
	w.stats.WriteDuration += time.Since(start)
	w.recordBuf = w.recordBuf[:0]
	return nil
}

func sqlKind(value interface{}) string {
	switch value.(type) {
	case bool:
		return "bool"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		return "int"
	case float32, float64:
		return "float"
	case time.Time:
		return "time"
	default:
		return "text"
	}
}

func convertSQLValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time, bool, int64, float64, string, []byte:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float32:
		return float64(v)
	default:
		return FormatValue(v, DateLayout)
	}
}
