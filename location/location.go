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

// Package location resolves input and output locations to readers and writers.
//
// A location is a local path, an s3://bucket/key object or, for input only, an
// http(s) URL.
package location

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/Atim-01/imdbclean/logging"
)

// ErrUnsupportedScheme is returned for locations that cannot be opened in the
// requested direction.
var ErrUnsupportedScheme = errors.New("unsupported location scheme")

// Scheme identifies the kind of location.
type Scheme string

const (
	SchemeFile  Scheme = "file"
	SchemeS3    Scheme = "s3"
	SchemeHTTP  Scheme = "http"
	SchemeHTTPS Scheme = "https"
)

// Location is a parsed location string.
type Location struct {
	Scheme Scheme
	Path   string // local path for file locations
	Bucket string // s3 bucket
	Key    string // s3 object key
	URL    string // full URL for http(s) locations
}

func (l Location) String() string {
	switch l.Scheme {
	case SchemeS3:
		return "s3://" + l.Bucket + "/" + l.Key
	case SchemeHTTP, SchemeHTTPS:
		return l.URL
	default:
		return l.Path
	}
}

// Ext returns the lower-case extension of the location's file name.
func (l Location) Ext() string {
	switch l.Scheme {
	case SchemeS3:
		return strings.ToLower(path.Ext(l.Key))
	case SchemeHTTP, SchemeHTTPS:
		u, err := url.Parse(l.URL)
		if err != nil {
			return ""
		}
		return strings.ToLower(path.Ext(u.Path))
	default:
		return strings.ToLower(filepath.Ext(l.Path))
	}
}

// Parse classifies raw. Strings without a scheme are local paths.
func Parse(raw string) (Location, error) {
	if raw == "" {
		return Location{}, fmt.Errorf("empty location")
	}
	idx := strings.Index(raw, "://")
	if idx < 0 {
		return Location{Scheme: SchemeFile, Path: raw}, nil
	}

	scheme := Scheme(strings.ToLower(raw[:idx]))
	switch scheme {
	case SchemeFile:
		return Location{Scheme: SchemeFile, Path: raw[idx+3:]}, nil
	case SchemeS3:
		rest := raw[idx+3:]
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" {
			return Location{}, fmt.Errorf("s3 location %q needs a bucket and a key", raw)
		}
		return Location{Scheme: SchemeS3, Bucket: bucket, Key: key}, nil
	case SchemeHTTP, SchemeHTTPS:
		if _, err := url.Parse(raw); err != nil {
			return Location{}, fmt.Errorf("parse url: %w", err)
		}
		return Location{Scheme: scheme, URL: raw}, nil
	default:
		return Location{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}

// S3Options configures the S3 client used for s3:// locations.
type S3Options struct {
	Region          string
	Endpoint        string // custom endpoint, e.g. MinIO or LocalStack
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Resolver opens locations. The S3 client is created on first use.
type Resolver struct {
	s3opts     S3Options
	httpClient *http.Client

	once     sync.Once
	s3Client *s3.Client
	s3Err    error
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

func WithS3Options(opts S3Options) ResolverOption {
	return func(r *Resolver) { r.s3opts = opts }
}

func WithHTTPClient(client *http.Client) ResolverOption {
	return func(r *Resolver) { r.httpClient = client }
}

// WithS3Client uses an existing client for s3:// locations.
func WithS3Client(client *s3.Client) ResolverOption {
	return func(r *Resolver) {
		r.once.Do(func() { r.s3Client = client })
	}
}

// NewResolver returns a resolver with the given options.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{httpClient: &http.Client{Timeout: 5 * time.Minute}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open returns a reader for raw.
func (r *Resolver) Open(ctx context.Context, raw string) (io.ReadCloser, error) {
	loc, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	switch loc.Scheme {
	case SchemeFile:
		return os.Open(loc.Path)
	case SchemeS3:
		client, err := r.client(ctx)
		if err != nil {
			return nil, err
		}
		out, err := client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(loc.Bucket),
			Key:    aws.String(loc.Key),
		})
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", loc, err)
		}
		logging.FromContext(ctx).Debug("Opened object", zap.Stringer("location", loc))
		return out.Body, nil
	case SchemeHTTP, SchemeHTTPS:
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc.URL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := r.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", loc, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, fmt.Errorf("get %s: unexpected status %s", loc, resp.Status)
		}
		logging.FromContext(ctx).Debug("Opened URL", zap.Stringer("location", loc))
		return resp.Body, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, loc.Scheme)
	}
}

// ReadAtSeekCloser is random-access input, as required by Parquet.
type ReadAtSeekCloser interface {
	io.ReaderAt
	io.ReadSeeker
	io.Closer
}

type bytesReadCloser struct {
	*bytes.Reader
}

func (bytesReadCloser) Close() error { return nil }

// OpenSeekable returns random-access input for raw. Remote objects are read into memory.
func (r *Resolver) OpenSeekable(ctx context.Context, raw string) (ReadAtSeekCloser, error) {
	loc, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if loc.Scheme == SchemeFile {
		return os.Open(loc.Path)
	}

	rc, err := r.Open(ctx, raw)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", loc, err)
	}
	return bytesReadCloser{bytes.NewReader(data)}, nil
}

// Create returns a writer for raw. Local parent directories are created. S3 objects
// are buffered and uploaded when the writer is closed.
func (r *Resolver) Create(ctx context.Context, raw string) (io.WriteCloser, error) {
	loc, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	switch loc.Scheme {
	case SchemeFile:
		if dir := filepath.Dir(loc.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		return os.Create(loc.Path)
	case SchemeS3:
		client, err := r.client(ctx)
		if err != nil {
			return nil, err
		}
		return &s3WriteCloser{ctx: ctx, client: client, bucket: loc.Bucket, key: loc.Key}, nil
	default:
		return nil, fmt.Errorf("%w: cannot write to %q", ErrUnsupportedScheme, loc.Scheme)
	}
}

func (r *Resolver) client(ctx context.Context) (*s3.Client, error) {
	r.once.Do(func() {
		r.s3Client, r.s3Err = newS3Client(ctx, r.s3opts)
	})
	return r.s3Client, r.s3Err
}

func newS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	var configOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		configOpts = append(configOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	}), nil
}

type s3WriteCloser struct {
	ctx    context.Context
	client *s3.Client
	bucket string
	key    string
	buf    bytes.Buffer
	closed bool
}

func (s *s3WriteCloser) Write(p []byte) (int, error) {
	if s.closed {
		return 0, fmt.Errorf("write s3://%s/%s: closed", s.bucket, s.key)
	}
	return s.buf.Write(p)
}

func (s *s3WriteCloser) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	_, err := s.client.PutObject(s.ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key),
		Body:          bytes.NewReader(s.buf.Bytes()),
		ContentLength: aws.Int64(int64(s.buf.Len())),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, s.key, err)
	}
	logging.FromContext(s.ctx).Info("Uploaded object",
		zap.String("bucket", s.bucket),
		zap.String("key", s.key),
		zap.Int("bytes", s.buf.Len()))
	return nil
}
