package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Skryldev/voiceprep/domain/model"
	"github.com/Skryldev/voiceprep/infrastructure/storage"
	"github.com/Skryldev/voiceprep/internal/mocks"
	"github.com/Skryldev/voiceprep/pkg/progress"
)

func poolJobs(t *testing.T, dir string, n int) []PoolJob {
	t.Helper()
	jobs := make([]PoolJob, n)
	for i := range jobs {
		in := filepath.Join(dir, fmt.Sprintf("rec%d.wav", i))
		if err := os.WriteFile(in, []byte("input audio"), 0o644); err != nil {
			t.Fatal(err)
		}
		jobs[i] = PoolJob{Index: i, Job: model.ProcessingJob{
			ID:         fmt.Sprintf("job-%d", i),
			InputPath:  in,
			OutputPath: filepath.Join(dir, fmt.Sprintf("rec%d_processed.mp3", i)),
		}}
	}
	return jobs
}

func newPool(t *testing.T, exec *mocks.MockFFmpegExecutor, workers int) (*WorkerPool, string) {
	t.Helper()
	scratch := filepath.Join(t.TempDir(), "scratch")
	p, err := NewPipeline(Config{Executor: exec, Storage: storage.NewLocalStorage(), TempDir: scratch})
	if err != nil {
		t.Fatal(err)
	}
	return NewWorkerPool(p, workers, nil), scratch
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	var active, peak int32
	exec := &mocks.MockFFmpegExecutor{
		ExecuteFunc: func(_ context.Context, args []string) error {
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			return mocks.WriteOutput(args, []byte("audio"))
		},
	}
	pool, scratch := newPool(t, exec, 2)
	jobs := poolJobs(t, t.TempDir(), 6)

	seen := make(map[int]bool)
	for o := range pool.Run(context.Background(), jobs, progress.NoopReporter{}) {
		if o.Status != model.StatusSucceeded {
			t.Errorf("job %d: %s %v", o.Index, o.Status, o.Err)
		}
		seen[o.Index] = true
	}

	if len(seen) != len(jobs) {
		t.Fatalf("outcomes = %d, want %d", len(seen), len(jobs))
	}
	if p := atomic.LoadInt32(&peak); p > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", p)
	}
	if entries, _ := os.ReadDir(scratch); len(entries) != 0 {
		t.Fatalf("scratch not clean: %v", entries)
	}
}

func TestWorkerPoolContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	jobs := poolJobs(t, dir, 3)
	bad := jobs[1].Job.InputPath

	exec := &mocks.MockFFmpegExecutor{
		ExecuteFunc: func(_ context.Context, args []string) error {
			if contains(args, bad) {
				return fmt.Errorf("corrupt input")
			}
			return mocks.WriteOutput(args, []byte("audio"))
		},
	}
	pool, _ := newPool(t, exec, 3)

	status := make(map[int]model.OutcomeStatus)
	for o := range pool.Run(context.Background(), jobs, nil) {
		status[o.Index] = o.Status
	}
	if status[0] != model.StatusSucceeded || status[1] != model.StatusFailed || status[2] != model.StatusSucceeded {
		t.Fatalf("status = %v", status)
	}
}

func TestWorkerPoolSkipsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int32
	exec := &mocks.MockFFmpegExecutor{
		ExecuteFunc: func(_ context.Context, args []string) error {
			if atomic.AddInt32(&calls, 1) == 1 {
				cancel()
			}
			return mocks.WriteOutput(args, []byte("audio"))
		},
	}
	pool, scratch := newPool(t, exec, 1)
	jobs := poolJobs(t, t.TempDir(), 4)

	counts := make(map[model.OutcomeStatus]int)
	total := 0
	for o := range pool.Run(ctx, jobs, nil) {
		counts[o.Status]++
		total++
	}

	if total != len(jobs) {
		t.Fatalf("outcomes = %d, want %d", total, len(jobs))
	}
	if counts[model.StatusSucceeded] != 0 {
		t.Fatalf("succeeded = %d, want 0", counts[model.StatusSucceeded])
	}
	if counts[model.StatusSkipped] != 3 {
		t.Fatalf("skipped = %d, want 3 (counts %v)", counts[model.StatusSkipped], counts)
	}
	if entries, _ := os.ReadDir(scratch); len(entries) != 0 {
		t.Fatalf("scratch not clean: %v", entries)
	}
}

func TestNewWorkerPoolDefaults(t *testing.T) {
	if got := NewWorkerPool(nil, 0, nil).Workers(); got != 4 {
		t.Fatalf("Workers() = %d, want 4", got)
	}
}
