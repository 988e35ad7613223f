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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Atim-01/imdbclean/core"
)

func TestNewMongoReader_Validation(t *testing.T) {
	_, err := NewMongoReader(WithMongoCollection("movies"))
	assert.Error(t, err)

	_, err = NewMongoReader(WithMongoDB("imdb"))
	assert.Error(t, err)

	_, err = NewMongoReader(WithMongoDB("imdb"), WithMongoCollection("movies"), WithMongoPipeline(nil))
	assert.Error(t, err)

	_, err = NewMongoReader(WithMongoDB("imdb"), WithMongoCollection("movies"), WithMongoReadPreference("sometimes"))
	var merr *MongoReaderError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "validate", merr.Op)

	reader, err := NewMongoReader(WithMongoDB("imdb"), WithMongoCollection("movies"), WithMongoBatchSize(50))
	require.NoError(t, err)
	assert.Equal(t, ModeFind, reader.opts.Mode)
	assert.Equal(t, int32(50), reader.opts.BatchSize)
	assert.NoError(t, reader.Close())
}

func TestDocumentToRecord(t *testing.T) {
	released := time.Date(1995, 2, 10, 0, 0, 0, 0, time.UTC)
	id := primitive.NewObjectID()
	doc := bson.M{
		"_id":          id,
		"Title":        "Up",
		"Release year": primitive.NewDateTimeFromTime(released),
		"Votes":        int32(10),
		"Score":        nil,
		"Tags":         bson.A{"family", int32(3)},
	}

	assert.Equal(t, core.Record{
		"Title":        "Up",
		"Release year": released,
		"Votes":        int64(10),
		"Score":        nil,
		"Tags":         []interface{}{"family", int64(3)},
	}, DocumentToRecord(doc, false))

	withID := DocumentToRecord(doc, true)
	assert.Equal(t, id.Hex(), withID["_id"])
}

func TestMongoReaderError(t *testing.T) {
	err := &MongoReaderError{Op: "decode", Collection: "movies", Err: assert.AnError}
	assert.Equal(t, "mongo reader decode [movies]: "+assert.AnError.Error(), err.Error())
	assert.ErrorIs(t, err, assert.AnError)
}
