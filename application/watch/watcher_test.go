package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Skryldev/voiceprep/domain/model"
	pkgerrors "github.com/Skryldev/voiceprep/pkg/errors"
	"github.com/Skryldev/voiceprep/pkg/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type fakePreprocessor struct {
	mu    sync.Mutex
	calls [][]string
	got   chan string
	err   error
}

func (f *fakePreprocessor) Process(_ context.Context, in []string, _ model.OutputPolicy) (*model.BatchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, in)
	f.mu.Unlock()
	f.got <- in[0]
	if f.err != nil {
		return nil, f.err
	}
	return &model.BatchResult{Outcomes: []model.FileOutcome{{
		InputPath:  in[0],
		OutputPath: in[0] + ".out",
		Status:     model.StatusSucceeded,
	}}}, nil
}

func (f *fakePreprocessor) ProcessFile(context.Context, string, string) (*model.ProcessingResult, error) {
	return nil, nil
}

func (f *fakePreprocessor) ProbeAudio(context.Context, string) (model.AudioAsset, error) {
	return model.AudioAsset{}, nil
}

func TestShouldProcess(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/in/talk.wav", true},
		{"/in/Lecture.MP4", true},
		{"/in/voice.opus", true},
		{"/in/talk_processed.mp3", false},
		{"/in/talk_processed_3.mp3", false},
		{"/in/.talk.wav.swp", false},
		{"/in/.hidden.wav", false},
		{"/in/notes.txt", false},
		{"/in/archive", false},
	}
	for _, tt := range tests {
		if got := ShouldProcess(tt.path); got != tt.want {
			t.Errorf("ShouldProcess(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestNewRequiresDirectory(t *testing.T) {
	svc := &fakePreprocessor{}
	file := filepath.Join(t.TempDir(), "a.wav")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(svc, Config{Dir: file}); err == nil {
		t.Fatal("expected error for a file")
	}
	if _, err := New(svc, Config{Dir: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("expected error for a missing dir")
	}
	if _, err := New(nil, Config{Dir: t.TempDir()}); err == nil {
		t.Fatal("expected error for a nil preprocessor")
	}
}

func TestRunSubmitsSettledFiles(t *testing.T) {
	dir := t.TempDir()
	svc := &fakePreprocessor{got: make(chan string, 8)}

	var mu sync.Mutex
	var results []string
	w, err := New(svc, Config{
		Dir:    dir,
		Settle: 50 * time.Millisecond,
		Tick:   10 * time.Millisecond,
		Logger: logger.FromZap(zaptest.NewLogger(t)),
		OnResult: func(path string, result *model.BatchResult, err error) {
			mu.Lock()
			results = append(results, path)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give the watcher time to register before writing
	time.Sleep(50 * time.Millisecond)
	for name, data := range map[string]string{
		"talk.wav":           "audio",
		"notes.txt":          "text",
		"talk_processed.mp3": "ours",
		"empty.wav":          "",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case got := <-svc.got:
		if got != filepath.Join(dir, "talk.wav") {
			t.Fatalf("submitted %s, want talk.wav", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("file was never submitted")
	}

	// nothing else qualifies
	select {
	case got := <-svc.got:
		t.Fatalf("unexpected submission %s", got)
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(results) != 1 {
		t.Fatalf("OnResult calls = %d, want 1", len(results))
	}
}

func TestSubmitTreatsCancellationAsShutdown(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantResult bool
		wantLevel  zapcore.Level
	}{
		{"canceled", pkgerrors.New(pkgerrors.ErrCodeCanceled, "canceled before engine check", context.Canceled), false, zapcore.InfoLevel},
		{"engine missing", pkgerrors.NewEngineUnavailable("ffmpeg not found", nil), true, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.InfoLevel)
			svc := &fakePreprocessor{got: make(chan string, 1), err: tt.err}
			results := 0
			w, err := New(svc, Config{
				Dir:      t.TempDir(),
				Logger:   logger.FromZap(zap.New(core)),
				OnResult: func(string, *model.BatchResult, error) { results++ },
			})
			if err != nil {
				t.Fatal(err)
			}

			w.submit(context.Background(), "/in/talk.wav")

			if got := results == 1; got != tt.wantResult {
				t.Fatalf("OnResult calls = %d", results)
			}
			entries := logs.All()
			last := entries[len(entries)-1]
			if last.Level != tt.wantLevel {
				t.Fatalf("last log %q at %s, want %s", last.Message, last.Level, tt.wantLevel)
			}
			if n := logs.FilterLevelExact(zapcore.ErrorLevel).Len(); tt.wantLevel != zapcore.ErrorLevel && n != 0 {
				t.Fatalf("error logs = %d, want none on shutdown", n)
			}
		})
	}
}
