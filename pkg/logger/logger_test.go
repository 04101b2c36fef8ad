package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestNewWithOptionsWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "voiceprep.log")
	log, err := NewWithOptions(Options{Level: "info", FilePath: path})
	if err != nil {
		t.Fatalf("NewWithOptions() error = %v", err)
	}

	log.Info("job completed", zap.String("job_id", "abc"))
	log.Debug("hidden detail")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, `"msg":"job completed"`) || !strings.Contains(text, `"job_id":"abc"`) {
		t.Fatalf("log file = %s", text)
	}
	if strings.Contains(text, "hidden detail") {
		t.Fatal("debug entry written at info level")
	}
}

func TestNewWithOptionsRejectsBadLevel(t *testing.T) {
	if _, err := NewWithOptions(Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestContextRoundTrip(t *testing.T) {
	l := FromZap(zaptest.NewLogger(t))
	ctx := WithContext(context.Background(), l)
	if got := FromContext(ctx); got != l {
		t.Fatal("FromContext did not return stored logger")
	}
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext should fall back to a default logger")
	}
}
