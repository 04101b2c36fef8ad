package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	pkgerrors "github.com/Skryldev/voiceprep/pkg/errors"
	"github.com/Skryldev/voiceprep/pkg/logger"
	"go.uber.org/zap/zaptest"
)

const fakeFFmpeg = `#!/bin/sh
case "$*" in
  *-encoders*) echo " A..... libmp3lame           libmp3lame MP3 (MPEG audio layer 3)" ;;
  *-version*) echo "ffmpeg version 6.1-test" ;;
  *) echo "Invalid data found when processing input" >&2; exit 1 ;;
esac
`

const fakeFFmpegNoLame = `#!/bin/sh
case "$*" in
  *-encoders*) echo " A..... aac                  AAC (Advanced Audio Coding)" ;;
  *) echo "ffmpeg version 6.1-test" ;;
esac
`

const fakeFFprobe = `#!/bin/sh
case "$*" in
  *-version*) echo "ffprobe version 6.1-test" ;;
  *) echo '{"format":{"duration":"2.0","format_name":"wav"},"streams":[{"codec_type":"audio","codec_name":"pcm_s16le","sample_rate":"16000","channels":1}]}' ;;
esac
`

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newFakeExecutor(t *testing.T, ffmpegBody string) *Executor {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts stand in for ffmpeg")
	}
	e, err := NewExecutor(ExecutorConfig{
		FFmpegPath:  writeScript(t, "ffmpeg", ffmpegBody),
		FFprobePath: writeScript(t, "ffprobe", fakeFFprobe),
		Logger:      logger.FromZap(zaptest.NewLogger(t)),
	})
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	return e
}

func TestCheckEngine(t *testing.T) {
	e := newFakeExecutor(t, fakeFFmpeg)
	if err := e.CheckEngine(context.Background()); err != nil {
		t.Fatalf("CheckEngine() error = %v", err)
	}
	v, err := e.Version(context.Background())
	if err != nil || v != "ffmpeg version 6.1-test" {
		t.Fatalf("Version() = %q, %v", v, err)
	}
}

func TestCheckEngineMissingEncoder(t *testing.T) {
	e := newFakeExecutor(t, fakeFFmpegNoLame)
	err := e.CheckEngine(context.Background())
	if !errors.Is(err, pkgerrors.ErrEngineUnavailable) {
		t.Fatalf("err = %v, want ENGINE_UNAVAILABLE", err)
	}
	if !strings.Contains(err.Error(), RequiredEncoder) {
		t.Fatalf("err = %v, want encoder named", err)
	}
}

func TestExecuteCapturesStderr(t *testing.T) {
	e := newFakeExecutor(t, fakeFFmpeg)
	err := e.Execute(context.Background(), []string{"-i", "in.wav", "out.wav"})

	fe, ok := pkgerrors.As[*pkgerrors.FFmpegError](err)
	if !ok {
		t.Fatalf("err = %v, want FFmpegError", err)
	}
	if fe.ExitCode != 1 || !strings.Contains(fe.Stderr, "Invalid data found") {
		t.Fatalf("exit = %d, stderr = %q", fe.ExitCode, fe.Stderr)
	}
	if got := pkgerrors.Diagnostic(err); got != "Invalid data found when processing input" {
		t.Fatalf("Diagnostic() = %q", got)
	}
}

func TestProbe(t *testing.T) {
	e := newFakeExecutor(t, fakeFFmpeg)
	data, err := e.Probe(context.Background(), "a.wav")
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	asset, err := ParseProbe("a.wav", data)
	if err != nil || asset.SampleRate != 16000 || asset.Channels != 1 {
		t.Fatalf("asset = %+v, err = %v", asset, err)
	}
}

func TestNewExecutorMissingBinary(t *testing.T) {
	_, err := NewExecutor(ExecutorConfig{FFmpegPath: filepath.Join(t.TempDir(), "no-ffmpeg")})
	if !errors.Is(err, pkgerrors.ErrEngineUnavailable) {
		t.Fatalf("err = %v, want ENGINE_UNAVAILABLE", err)
	}
}
