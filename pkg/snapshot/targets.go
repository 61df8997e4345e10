package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Target is where a snapshot stream is stored.
type Target interface {
	// Kind names the target type for metrics: "file" or "s3".
	Kind() string

	// String describes the target location for logs.
	String() string

	// Create returns a writer for a new snapshot. The snapshot becomes
	// visible only when Close succeeds.
	Create(ctx context.Context) (io.WriteCloser, error)

	// Open returns a reader over an existing snapshot.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// ============================================================================
// File target
// ============================================================================

// FileTarget stores the snapshot in a local file.
type FileTarget struct {
	Path string
}

func (t FileTarget) Kind() string   { return "file" }
func (t FileTarget) String() string { return t.Path }

// Create writes to a temporary sibling file and renames it over Path on
// Close, so a failed export never leaves a truncated snapshot behind.
func (t FileTarget) Create(ctx context.Context) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dir := filepath.Dir(t.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.CreateTemp(filepath.Dir(t.Path), filepath.Base(t.Path)+".*.tmp")
	if err != nil {
		return nil, err
	}
	return &atomicFile{f: f, dst: t.Path}, nil
}

func (t FileTarget) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(t.Path)
}

type atomicFile struct {
	f   *os.File
	dst string
}

func (a *atomicFile) Write(p []byte) (int, error) {
	return a.f.Write(p)
}

func (a *atomicFile) Close() error {
	if err := a.f.Sync(); err != nil {
		_ = a.f.Close()
		_ = os.Remove(a.f.Name())
		return err
	}
	if err := a.f.Close(); err != nil {
		_ = os.Remove(a.f.Name())
		return err
	}
	return os.Rename(a.f.Name(), a.dst)
}

// ============================================================================
// S3 target
// ============================================================================

// S3API is the subset of the S3 client the target uses. *s3.Client
// satisfies it.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Target stores the snapshot as a single S3 object.
type S3Target struct {
	Client S3API
	Bucket string
	Key    string
}

func (t S3Target) Kind() string   { return "s3" }
func (t S3Target) String() string { return fmt.Sprintf("s3://%s/%s", t.Bucket, t.Key) }

// Create buffers the snapshot in memory and uploads it with one PutObject
// on Close.
func (t S3Target) Create(ctx context.Context) (io.WriteCloser, error) {
	if t.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if t.Bucket == "" || t.Key == "" {
		return nil, fmt.Errorf("bucket and key are required")
	}
	return &s3Upload{ctx: ctx, target: t}, nil
}

func (t S3Target) Open(ctx context.Context) (io.ReadCloser, error) {
	if t.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	out, err := t.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(t.Bucket),
		Key:    aws.String(t.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot from S3: %w", err)
	}
	return out.Body, nil
}

type s3Upload struct {
	ctx    context.Context
	target S3Target
	buf    bytes.Buffer
}

func (u *s3Upload) Write(p []byte) (int, error) {
	return u.buf.Write(p)
}

func (u *s3Upload) Close() error {
	_, err := u.target.Client.PutObject(u.ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.target.Bucket),
		Key:           aws.String(u.target.Key),
		Body:          bytes.NewReader(u.buf.Bytes()),
		ContentLength: aws.Int64(int64(u.buf.Len())),
		ContentType:   aws.String("application/zstd"),
	})
	if err != nil {
		return fmt.Errorf("failed to put snapshot to S3: %w", err)
	}
	return nil
}
