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
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Atim-01/imdbclean/core"
)

// MongoWriterError provides structured error information for MongoDB writer operations
type MongoWriterError struct {
	Op         string // Operation that failed (e.g., "connect", "insert", "drop")
	Collection string // Collection being written when the error occurred
	Err        error  // Underlying error
}

func (e *MongoWriterError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("mongo writer %s (collection: %s): %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("mongo writer %s: %v", e.Op, e.Err)
}

func (e *MongoWriterError) Unwrap() error {
	return e.Err
}

// MongoWriterStats holds statistics about the MongoDB writer.
type MongoWriterStats struct {
	DocumentsWritten int64
	BatchesWritten   int64
	WriteDuration    time.Duration
	LastWriteTime    time.Time
	NullValueCounts  map[string]int64
}

// MongoWriterOptions configures the MongoDB writer.
type MongoWriterOptions struct {
	URI            string
	Database       string
	Collection     string
	BatchSize      int
	Timeout        time.Duration
	Ordered        bool     // Stop a batch at its first failed insert
	ClearFirst     bool     // Delete existing documents before the first batch
	FieldOrder     []string // Key order of written documents; remaining keys follow sorted
	MaxPoolSize    uint64
	OmitMissing    bool // Leave missing values out of documents instead of storing null
	clientOverride *mongo.Client
}

// WriterOptionMongo is a functional option for MongoWriterOptions.
type WriterOptionMongo func(*MongoWriterOptions)

func WithMongoURI(uri string) WriterOptionMongo {
	return func(o *MongoWriterOptions) { o.URI = uri }
}

func WithMongoDatabase(database string) WriterOptionMongo {
	return func(o *MongoWriterOptions) { o.Database = database }
}

func WithMongoCollection(collection string) WriterOptionMongo {
	return func(o *MongoWriterOptions) { o.Collection = collection }
}

func WithMongoBatchSize(size int) WriterOptionMongo {
	return func(o *MongoWriterOptions) { o.BatchSize = size }
}

func WithMongoTimeout(timeout time.Duration) WriterOptionMongo {
	return func(o *MongoWriterOptions) { o.Timeout = timeout }
}

func WithMongoOrdered(ordered bool) WriterOptionMongo {
	return func(o *MongoWriterOptions) { o.Ordered = ordered }
}

func WithMongoClearFirst(clear bool) WriterOptionMongo {
	return func(o *MongoWriterOptions) { o.ClearFirst = clear }
}

func WithMongoFieldOrder(fields []string) WriterOptionMongo {
	return func(o *MongoWriterOptions) { o.FieldOrder = append([]string(nil), fields...) }
}

func WithMongoPoolSize(max uint64) WriterOptionMongo {
	return func(o *MongoWriterOptions) { o.MaxPoolSize = max }
}

func WithMongoOmitMissing(omit bool) WriterOptionMongo {
	return func(o *MongoWriterOptions) { o.OmitMissing = omit }
}

// WithMongoClient writes through an already connected client. Close does not
// disconnect it.
func WithMongoClient(client *mongo.Client) WriterOptionMongo {
	return func(o *MongoWriterOptions) { o.clientOverride = client }
}

func (o *MongoWriterOptions) withDefaults() *MongoWriterOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = 1000
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return o
}

func (o *MongoWriterOptions) validate() error {
	if o.URI == "" && o.clientOverride == nil {
		return fmt.Errorf("uri is required")
	}
	if o.Database == "" {
		return fmt.Errorf("database is required")
	}
	if o.Collection == "" {
		return fmt.Errorf("collection is required")
	}
	return nil
}

// MongoWriter implements core.DataSink by inserting documents in batches.
type MongoWriter struct {
	client     *mongo.Client
	collection *mongo.Collection
	opts       MongoWriterOptions
	ownsClient bool
	buffer     []interface{}
	stats      MongoWriterStats
	cleared    bool
	closed     bool
	errorState bool
	mu         sync.Mutex
}

// NewMongoWriter validates options and returns an unconnected writer.
func NewMongoWriter(options ...WriterOptionMongo) (*MongoWriter, error) {
	opts := &MongoWriterOptions{Ordered: true}
	for _, option := range options {
		option(opts)
	}
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, &MongoWriterError{Op: "validate", Err: err}
	}
	return &MongoWriter{
		opts:   *opts,
		buffer: make([]interface{}, 0, opts.BatchSize),
		stats:  MongoWriterStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// Connect opens the client and checks the server is reachable.
func (mw *MongoWriter) Connect(ctx context.Context) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.connectUnsafe(ctx)
}

func (mw *MongoWriter) connectUnsafe(ctx context.Context) error {
	if mw.collection != nil {
		return nil
	}

	client := mw.opts.clientOverride
	if client == nil {
		clientOpts := options.Client().ApplyURI(mw.opts.URI).SetConnectTimeout(mw.opts.Timeout)
		if mw.opts.MaxPoolSize > 0 {
			clientOpts.SetMaxPoolSize(mw.opts.MaxPoolSize)
		}
		var err error
		client, err = mongo.Connect(ctx, clientOpts)
		if err != nil {
			return &MongoWriterError{Op: "connect", Err: err}
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return &MongoWriterError{Op: "ping", Err: err}
		}
		mw.ownsClient = true
	}

	mw.client = client
	mw.collection = client.Database(mw.opts.Database).Collection(mw.opts.Collection)
	return nil
}

// Write buffers record as a document and inserts a full batch.
func (mw *MongoWriter) Write(ctx context.Context, record core.Record) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	if mw.closed {
		return &MongoWriterError{Op: "write", Err: fmt.Errorf("writer is closed")}
	}
	if mw.errorState {
		return &MongoWriterError{Op: "write", Err: fmt.Errorf("writer is in error state")}
	}

	for k, v := range record {
		if v == nil {
			mw.stats.NullValueCounts[k]++
		}
	}
	mw.buffer = append(mw.buffer, ToDocument(record, mw.opts.FieldOrder, mw.opts.OmitMissing))

	if len(mw.buffer) >= mw.opts.BatchSize {
		if err := mw.flushUnsafe(ctx); err != nil {
			mw.errorState = true
			return err
		}
	}
	return nil
}

// Flush inserts buffered documents.
func (mw *MongoWriter) Flush() error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.closed || mw.errorState {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mw.opts.Timeout)
	defer cancel()
	if err := mw.flushUnsafe(ctx); err != nil {
		mw.errorState = true
		return err
	}
	return nil
}

// Close flushes and disconnects a client the writer opened itself.
func (mw *MongoWriter) Close() error {
	flushErr := mw.Flush()

	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.closed {
		return flushErr
	}
	mw.closed = true

	if mw.ownsClient && mw.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mw.opts.Timeout)
		defer cancel()
		if err := mw.client.Disconnect(ctx); err != nil && flushErr == nil {
			return &MongoWriterError{Op: "disconnect", Err: err}
		}
	}
	return flushErr
}

// Stats returns a copy of the writer statistics.
func (mw *MongoWriter) Stats() MongoWriterStats {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	stats := mw.stats
	stats.NullValueCounts = make(map[string]int64, len(mw.stats.NullValueCounts))
	for k, v := range mw.stats.NullValueCounts {
		stats.NullValueCounts[k] = v
	}
	return stats
}

func (mw *MongoWriter) flushUnsafe(ctx context.Context) error {
	if len(mw.buffer) == 0 {
		return nil
	}
	if err := mw.connectUnsafe(ctx); err != nil {
		return err
	}
	start := time.Now()

	if mw.opts.ClearFirst && !mw.cleared {
		if _, err := mw.collection.DeleteMany(ctx, bson.M{}); err != nil {
			return &MongoWriterError{Op: "clear", Collection: mw.opts.Collection, Err: err}
		}
		mw.cleared = true
	}

	result, err := mw.collection.InsertMany(ctx, mw.buffer, options.InsertMany().SetOrdered(mw.opts.Ordered))
	if err != nil {
		return &MongoWriterError{Op: "insert", Collection: mw.opts.Collection, Err: err}
	}

	mw.stats.DocumentsWritten += int64(len(result.InsertedIDs))
	mw.stats.BatchesWritten++
	mw.stats.WriteDuration += time.Since(start)
	mw.stats.LastWriteTime = time.Now()
	mw.buffer = mw.buffer[:0]
	return nil
}

// ToDocument converts a record to an ordered BSON document. Keys in order come
// first and the rest follow sorted; times become BSON dates.
func ToDocument(record core.Record, order []string, omitMissing bool) bson.D {
	keys := orderColumns(record, order)
	doc := make(bson.D, 0, len(keys))
	for _, key := range keys {
		value, ok := record[key]
		if !ok {
			continue
		}
		if value == nil && omitMissing {
			continue
		}
		if t, ok := value.(time.Time); ok {
			value = primitive.NewDateTimeFromTime(t)
		}
		doc = append(doc, bson.E{Key: key, Value: value})
	}
	return doc
}
