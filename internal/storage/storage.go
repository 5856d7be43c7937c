package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dukerupert/tandem/internal/model"
)

// ItemImages is the only bucket clients may address.
const ItemImages = "item-images"

// ErrDisabled is returned by every operation when no object store is configured.
var ErrDisabled = errors.New("object storage is not configured")

// deleteBatch is the S3 limit on keys per DeleteObjects call.
const deleteBatch = 1000

type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, input *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, input *s3.DeleteObjectsInput, opts ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Object is a stored object as listed to clients. Name is relative to the
// listed prefix.
type Object struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Store keeps logical buckets as key prefixes inside one S3 bucket.
type Store struct {
	client s3Client
	bucket string
}

// New returns a Store for cfg. Without a bucket and credentials the Store is
// disabled and every call returns ErrDisabled.
func New(cfg S3Config) *Store {
	s := &Store{bucket: cfg.Bucket}
	if cfg.Bucket != "" && cfg.AccessKey != "" && cfg.SecretKey != "" {
		s.client = newS3Client(cfg)
	}
	return s
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func (s *Store) Enabled() bool {
	return s.client != nil
}

// CleanKey rejects keys that are empty, absolute or try to escape their
// bucket, and returns the cleaned form.
func CleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return cleaned, nil
}

func (s *Store) fullKey(bucket, key string) string {
	return bucket + "/" + key
}

// Put stores body under key. An existing object is never overwritten; that
// case returns model.ErrConflict.
func (s *Store) Put(ctx context.Context, bucket, key, contentType string, body io.Reader, size int64) error {
	if s.client == nil {
		return ErrDisabled
	}
	full := s.fullKey(bucket, key)

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(full),
	})
	if err == nil {
		return fmt.Errorf("put object %s: %w", key, model.ErrConflict)
	}
	if !isNotFound(err) {
		return fmt.Errorf("head object %s: %w", key, err)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(full),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Get opens the object at key. The caller closes the returned body.
func (s *Store) Get(ctx context.Context, bucket, key string) (io.ReadCloser, string, error) {
	if s.client == nil {
		return nil, "", ErrDisabled
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(bucket, key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, "", fmt.Errorf("get object %s: %w", key, model.ErrNotFound)
		}
		return nil, "", fmt.Errorf("get object %s: %w", key, err)
	}
	return out.Body, aws.ToString(out.ContentType), nil
}

// List returns every object under prefix, named relative to it.
func (s *Store) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	if s.client == nil {
		return nil, ErrDisabled
	}
	full := s.fullKey(bucket, prefix)

	var objects []Object
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(full),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list objects %s: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			objects = append(objects, Object{
				Name: strings.TrimPrefix(aws.ToString(obj.Key), full),
				Size: aws.ToInt64(obj.Size),
			})
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	return objects, nil
}

// Remove deletes the given keys. Missing keys are not an error.
func (s *Store) Remove(ctx context.Context, bucket string, keys []string) error {
	if s.client == nil {
		return ErrDisabled
	}
	for start := 0; start < len(keys); start += deleteBatch {
		end := min(start+deleteBatch, len(keys))
		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(s.fullKey(bucket, k))})
		}
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("delete objects: %w", err)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return fmt.Errorf("delete object %s: %s", aws.ToString(e.Key), aws.ToString(e.Message))
		}
	}
	return nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}
