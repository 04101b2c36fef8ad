package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/Skryldev/voiceprep/internal/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand(&out, &errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSettingsSetAndClearOutput(t *testing.T) {
	t.Setenv("VOICEPREP_LOG_LEVEL", "error")
	path := filepath.Join(t.TempDir(), "settings.json")
	dir := t.TempDir()

	out, err := run(t, "--settings", path, "settings", "set-output", dir)
	if err != nil {
		t.Fatalf("set-output: %v", err)
	}
	if !strings.Contains(out, "folder:"+dir) {
		t.Fatalf("set-output output = %q, want folder policy", out)
	}

	got, err := config.NewJSONStore(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got.UseCustomOutput || got.OutputFolder != dir {
		t.Fatalf("saved = %+v, want custom output %s", got, dir)
	}

	out, err = run(t, "--settings", path, "settings", "clear-output")
	if err != nil {
		t.Fatalf("clear-output: %v", err)
	}
	if !strings.Contains(out, "policy: beside") {
		t.Fatalf("clear-output output = %q, want beside", out)
	}

	got, _ = config.NewJSONStore(path).Load()
	if got.UseCustomOutput {
		t.Fatal("custom output still enabled")
	}
	if got.OutputFolder != dir {
		t.Fatalf("folder = %q, want it remembered", got.OutputFolder)
	}
}

func TestSettingsShowDefaults(t *testing.T) {
	t.Setenv("VOICEPREP_LOG_LEVEL", "error")
	path := filepath.Join(t.TempDir(), "none", "settings.json")

	out, err := run(t, "--settings", path, "settings", "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "policy: beside") {
		t.Fatalf("show output = %q", out)
	}
}

func TestProcessRejectsConflictingFlags(t *testing.T) {
	t.Setenv("VOICEPREP_LOG_LEVEL", "error")
	_, err := run(t, "process", "--beside", "-o", t.TempDir(), "x.wav")
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Fatalf("err = %v, want mutually exclusive", err)
	}
}

func TestProcessMissingInput(t *testing.T) {
	t.Setenv("VOICEPREP_LOG_LEVEL", "error")
	_, err := run(t, "process", "--beside", filepath.Join(t.TempDir(), "missing.wav"))
	if err == nil || !strings.Contains(err.Error(), "INPUT_NOT_FOUND") {
		t.Fatalf("err = %v, want INPUT_NOT_FOUND", err)
	}
}

const fakeFFmpeg = `#!/bin/sh
case "$*" in
  *-encoders*) echo " A..... libmp3lame           libmp3lame MP3 (MPEG audio layer 3)" ;;
  *) echo "ffmpeg version 6.1-test" ;;
esac
`

const fakeFFprobe = `#!/bin/sh
echo "ffprobe version 6.1-test"
`

func fakeEngine(t *testing.T) (string, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts stand in for ffmpeg")
	}
	dir := t.TempDir()
	ffmpeg := filepath.Join(dir, "ffmpeg")
	ffprobe := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(ffmpeg, []byte(fakeFFmpeg), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ffprobe, []byte(fakeFFprobe), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VOICEPREP_FFMPEG", ffmpeg)
	t.Setenv("VOICEPREP_FFPROBE", ffprobe)
	return ffmpeg, ffprobe
}

func TestCheckPrintsEngine(t *testing.T) {
	t.Setenv("VOICEPREP_LOG_LEVEL", "error")
	ffmpeg, ffprobe := fakeEngine(t)

	out, err := run(t, "check")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	for _, want := range []string{ffmpeg, ffprobe, "ffmpeg version 6.1-test", "engine ok", "1:downmix_resample", "6:encode"} {
		if !strings.Contains(out, want) {
			t.Errorf("check output missing %q:\n%s", want, out)
		}
	}
}
