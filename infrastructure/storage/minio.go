package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/Skryldev/voiceprep/pkg/logger"
	"github.com/Skryldev/voiceprep/pkg/retry"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinioConfig configures the object-storage publisher
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	// Prefix is prepended to every object key
	Prefix string
}

// Enabled reports whether enough is configured to publish.
func (c MinioConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// MinioPublisher implements ports.Publisher on an S3-compatible bucket
type MinioPublisher struct {
	client *minio.Client
	bucket string
	prefix string
	log    *logger.Logger
}

// NewMinioPublisher creates the client. It does not contact the server;
// call EnsureBucket for that.
func NewMinioPublisher(cfg MinioConfig, log *logger.Logger) (*MinioPublisher, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("minio endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &MinioPublisher{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		log:    log,
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (p *MinioPublisher) EnsureBucket(ctx context.Context, region string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", p.bucket, err)
	}
	if exists {
		return nil
	}
	if err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", p.bucket, err)
	}
	p.log.Info("created bucket", zap.String("bucket", p.bucket))
	return nil
}

// Publish uploads localPath and returns an s3:// location. Errors no retry
// can fix, such as rejected credentials or a missing local file, are marked
// retry.Permanent.
func (p *MinioPublisher) Publish(ctx context.Context, localPath, key string) (string, error) {
	objectKey := ObjectKey(p.prefix, key)
	info, err := p.client.FPutObject(ctx, p.bucket, objectKey, localPath, minio.PutObjectOptions{
		ContentType: "audio/mpeg",
	})
	if err != nil {
		wrapped := fmt.Errorf("upload %s: %w", localPath, err)
		if IsPermanentUploadError(err) {
			return "", retry.Permanent(wrapped)
		}
		return "", wrapped
	}
	p.log.Info("published output",
		zap.String("bucket", p.bucket),
		zap.String("key", objectKey),
		zap.Int64("size", info.Size),
	)
	return fmt.Sprintf("s3://%s/%s", p.bucket, objectKey), nil
}

// permanentCodes are S3 error codes that repeat on every attempt.
var permanentCodes = map[string]bool{
	"AccessDenied":          true,
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
	"NoSuchBucket":          true,
	"InvalidBucketName":     true,
}

// IsPermanentUploadError reports whether err from the object store will not
// go away by retrying.
func IsPermanentUploadError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return true
	}
	return permanentCodes[minio.ToErrorResponse(err).Code]
}

// ObjectKey joins prefix and key with forward slashes.
func ObjectKey(prefix, key string) string {
	key = strings.TrimLeft(key, "/")
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}
