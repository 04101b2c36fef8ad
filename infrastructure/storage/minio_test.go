package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/Skryldev/voiceprep/pkg/retry"
	"github.com/minio/minio-go/v7"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix, key, want string
	}{
		{"", "talk_processed.mp3", "talk_processed.mp3"},
		{"processed", "talk_processed.mp3", "processed/talk_processed.mp3"},
		{"processed", "/talk_processed.mp3", "processed/talk_processed.mp3"},
		{"a/b", "c.mp3", "a/b/c.mp3"},
	}
	for _, tt := range tests {
		if got := ObjectKey(tt.prefix, tt.key); got != tt.want {
			t.Errorf("ObjectKey(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
		}
	}
}

func TestNewMinioPublisherRequiresEndpoint(t *testing.T) {
	if _, err := NewMinioPublisher(MinioConfig{Bucket: "b"}, nil); err == nil {
		t.Fatal("expected error without endpoint")
	}
}

func TestNewMinioPublisher(t *testing.T) {
	p, err := NewMinioPublisher(MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "voiceprep",
		Prefix:    "/processed/",
	}, nil)
	if err != nil {
		t.Fatalf("NewMinioPublisher() error = %v", err)
	}
	if p.prefix != "processed" || p.bucket != "voiceprep" {
		t.Fatalf("publisher = %+v", p)
	}
}

func TestIsPermanentUploadError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"access denied", minio.ErrorResponse{Code: "AccessDenied"}, true},
		{"bad key", minio.ErrorResponse{Code: "InvalidAccessKeyId"}, true},
		{"no bucket", minio.ErrorResponse{Code: "NoSuchBucket"}, true},
		{"slow down", minio.ErrorResponse{Code: "SlowDown"}, false},
		{"network", errors.New("dial tcp: connection refused"), false},
		{"missing file", fmt.Errorf("open x: %w", fs.ErrNotExist), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPermanentUploadError(tt.err); got != tt.want {
				t.Fatalf("IsPermanentUploadError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestPublishMissingFileIsNotRetried(t *testing.T) {
	p, err := NewMinioPublisher(MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "voiceprep",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	missing := filepath.Join(t.TempDir(), "gone_processed.mp3")
	attempts := 0
	cfg := retry.Config{MaxAttempts: 3, Delay: time.Millisecond, Multiplier: 1}
	err = retry.Do(context.Background(), cfg, func() error {
		attempts++
		_, err := p.Publish(context.Background(), missing, "gone_processed.mp3")
		return err
	})
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}
