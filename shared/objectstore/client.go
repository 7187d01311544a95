package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrObjectNotFound is returned when the requested object does not
// exist in the bucket.
var ErrObjectNotFound = errors.New("object not found")

// Config holds MinIO connection configuration
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Client represents a MinIO object storage client scoped to a single
// bucket of result artifacts.
type Client struct {
	mc     *minio.Client
	config *Config
	logger *slog.Logger
}

// NewClient creates a new MinIO client
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	mc, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	logger.Info("MinIO client initialized",
		slog.String("endpoint", config.Endpoint),
		slog.String("bucket", config.Bucket),
	)

	return &Client{mc: mc, config: config, logger: logger}, nil
}

// EnsureBucket creates the configured bucket if it does not exist.
// Safe to call repeatedly and concurrently.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.config.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %q: %w", c.config.Bucket, err)
	}
	if exists {
		return nil
	}

	err = c.mc.MakeBucket(ctx, c.config.Bucket, minio.MakeBucketOptions{})
	if err != nil {
		// A concurrent worker may have created it first
		exists, checkErr := c.mc.BucketExists(ctx, c.config.Bucket)
		if checkErr == nil && exists {
			return nil
		}
		return fmt.Errorf("failed to create bucket %q: %w", c.config.Bucket, err)
	}

	c.logger.Info("Bucket created",
		slog.String("bucket", c.config.Bucket),
	)
	return nil
}

// PutText uploads text content as a plain-text object. Objects are
// written once per key and never updated afterward.
func (c *Client) PutText(ctx context.Context, objectName, content string) error {
	reader := strings.NewReader(content)

	_, err := c.mc.PutObject(ctx, c.config.Bucket, objectName, reader, int64(len(content)),
		minio.PutObjectOptions{ContentType: "text/plain"},
	)
	if err != nil {
		return fmt.Errorf("failed to upload object %q: %w", objectName, err)
	}

	c.logger.Info("Object uploaded",
		slog.String("bucket", c.config.Bucket),
		slog.String("object", objectName),
		slog.Int("size", len(content)),
	)
	return nil
}

// GetText fetches an object and returns its content as a string.
// Returns ErrObjectNotFound when the key or bucket does not exist.
func (c *Client) GetText(ctx context.Context, objectName string) (string, error) {
	obj, err := c.mc.GetObject(ctx, c.config.Bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get object %q: %w", objectName, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		// GetObject is lazy; missing keys surface on first read
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return "", ErrObjectNotFound
		}
		return "", fmt.Errorf("failed to read object %q: %w", objectName, err)
	}

	return string(data), nil
}

// Bucket returns the configured bucket name
func (c *Client) Bucket() string {
	return c.config.Bucket
}
