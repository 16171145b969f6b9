package asset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ingsis/snippet-manager/internal/apperror"
)

// callTimeout bounds every blob-store round trip. A stalled store fails the
// enclosing saga step instead of hanging the request.
const callTimeout = 10 * time.Second

// MinioConfig holds connection settings for the S3-compatible blob store.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// MinioClient implements Client against an S3-compatible object store.
// Each container maps to a bucket; buckets are created lazily on first use.
type MinioClient struct {
	client *minio.Client
	region string
	logger *slog.Logger

	mu      sync.Mutex
	buckets map[string]bool // containers known to exist
}

var _ Client = (*MinioClient)(nil)

// NewMinioClient creates a blob-store client. It does not dial the store;
// the first operation does.
func NewMinioClient(cfg MinioConfig, logger *slog.Logger) (*MinioClient, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("asset: endpoint is required")
	}
	if strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("asset: access key and secret key are required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("asset: creating client: %w", err)
	}

	return &MinioClient{
		client:  client,
		region:  region,
		logger:  logger,
		buckets: make(map[string]bool),
	}, nil
}

// ensureContainer creates the backing bucket if it doesn't exist yet.
// The existence check is cached; concurrent MakeBucket races are resolved by
// treating "already owned" as success.
func (c *MinioClient) ensureContainer(ctx context.Context, container string) error {
	c.mu.Lock()
	known := c.buckets[container]
	c.mu.Unlock()
	if known {
		return nil
	}

	exists, err := c.client.BucketExists(ctx, container)
	if err != nil {
		return err
	}
	if !exists {
		err = c.client.MakeBucket(ctx, container, minio.MakeBucketOptions{Region: c.region})
		if err != nil {
			resp := minio.ToErrorResponse(err)
			if resp.Code != "BucketAlreadyOwnedByYou" && resp.Code != "BucketAlreadyExists" {
				return err
			}
		}
	}

	c.mu.Lock()
	c.buckets[container] = true
	c.mu.Unlock()
	return nil
}

// Get fetches a blob as a string.
func (c *MinioClient) Get(ctx context.Context, container, key, correlationID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	obj, err := c.client.GetObject(ctx, container, key, minio.GetObjectOptions{})
	if err != nil {
		return "", c.failure("get", container, key, correlationID, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		// minio defers the NoSuchKey error until the first read
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return "", apperror.NotFound("asset "+container, key)
		}
		return "", c.failure("get", container, key, correlationID, err)
	}

	c.logger.Debug("asset fetched",
		slog.String("container", container),
		slog.String("key", key),
		slog.String("correlation_id", correlationID),
	)
	return string(data), nil
}

// Put writes a blob, overwriting any previous content.
func (c *MinioClient) Put(ctx context.Context, container, key, content, correlationID string) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	if err := c.ensureContainer(ctx, container); err != nil {
		return c.failure("put", container, key, correlationID, err)
	}

	_, err := c.client.PutObject(ctx, container, key,
		bytes.NewReader([]byte(content)), int64(len(content)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"},
	)
	if err != nil {
		return c.failure("put", container, key, correlationID, err)
	}

	c.logger.Debug("asset stored",
		slog.String("container", container),
		slog.String("key", key),
		slog.String("correlation_id", correlationID),
	)
	return nil
}

// Delete removes a blob. Deleting a missing blob is not an error.
func (c *MinioClient) Delete(ctx context.Context, container, key, correlationID string) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	err := c.client.RemoveObject(ctx, container, key, minio.RemoveObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil
		}
		return c.failure("delete", container, key, correlationID, err)
	}

	c.logger.Debug("asset deleted",
		slog.String("container", container),
		slog.String("key", key),
		slog.String("correlation_id", correlationID),
	)
	return nil
}

// failure logs a transport error and translates it into the app taxonomy.
// A NoSuchKey surfaced here (rather than on read) still maps to NotFound.
func (c *MinioClient) failure(op, container, key, correlationID string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" {
		return apperror.NotFound("asset "+container, key)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("timed out: %w", err)
	}
	c.logger.Error("asset store call failed",
		slog.String("op", op),
		slog.String("container", container),
		slog.String("key", key),
		slog.String("correlation_id", correlationID),
		slog.String("error", err.Error()),
	)
	return apperror.Unavailable("asset store", err)
}
