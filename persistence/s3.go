/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package persistence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// S3Backend stores every blob as one object at <prefix>/<shard>-<name>
// in Bucket. S3 has no append API, so WriteBlob buffers the whole blob
// in memory and PutObjects it on Close; the whole blob is held in
// memory until then.
type S3Backend struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string
	Bucket          string
	Prefix          string
	ForcePathStyle  bool

	mu     sync.Mutex
	client *s3.Client
	opened bool
}

func (s *S3Backend) ensureOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return nil
	}
	ctx := context.Background()

	var opts []func(*config.LoadOptions) error
	if s.Region != "" {
		opts = append(opts, config.WithRegion(s.Region))
	}
	if s.AccessKeyID != "" && s.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("persistence: s3 config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if s.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s.Endpoint)
		})
	}
	if s.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	s.client = s3.NewFromConfig(cfg, s3Opts...)
	s.opened = true
	return nil
}

func (s *S3Backend) key(shard, name string) string {
	pfx := strings.TrimSuffix(s.Prefix, "/")
	if pfx == "" {
		return shard + "-" + name
	}
	return pfx + "/" + shard + "-" + name
}

func (s *S3Backend) WriteBlob(shard, name string) (io.WriteCloser, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	return &s3Writer{backend: s, key: s.key(shard, name)}, nil
}

func (s *S3Backend) ReadBlob(shard, name string) (io.ReadCloser, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(shard, name)),
	})
	if err != nil {
		var nf *smithyhttp.ResponseError
		if isNoSuchKey(err) || (errors.As(err, &nf) && nf.HTTPStatusCode() == 404) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	return out.Body, nil
}

func (s *S3Backend) RemoveBlob(shard, name string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(shard, name)),
	})
	return err
}

func (s *S3Backend) RemoveShard(shard string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	ctx := context.Background()
	pfx := s.key(shard, "")
	var continuation *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.Bucket),
			Prefix:            aws.String(pfx),
			ContinuationToken: continuation,
		})
		if err != nil {
			return err
		}
		for _, obj := range out.Contents {
			if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.Bucket),
				Key:    obj.Key,
			}); err != nil {
				return err
			}
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			return nil
		}
		continuation = out.NextContinuationToken
	}
}

// s3Writer buffers a blob in memory and PutObjects it whole on Close,
// since S3 objects can only be replaced atomically, not appended to.
type s3Writer struct {
	backend *S3Backend
	key     string
	buf     bytes.Buffer
}

func (w *s3Writer) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *s3Writer) Close() error {
	_, err := w.backend.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(w.backend.Bucket),
		Key:    aws.String(w.key),
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	return err
}

func isNoSuchKey(err error) bool {
	return strings.Contains(err.Error(), "NoSuchKey")
}
