// Package watch processes media files as they appear in a directory.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Skryldev/voiceprep/application/inputs"
	"github.com/Skryldev/voiceprep/application/naming"
	"github.com/Skryldev/voiceprep/application/pipeline"
	"github.com/Skryldev/voiceprep/domain/model"
	"github.com/Skryldev/voiceprep/domain/ports"
	"github.com/Skryldev/voiceprep/pkg/logger"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Config holds Watcher configuration
type Config struct {
	Dir    string
	Policy model.OutputPolicy
	// Settle is how long a file must go without events before it is
	// submitted. Defaults to 2s.
	Settle time.Duration
	// Tick is how often pending files are checked. Defaults to Settle/4.
	Tick   time.Duration
	Logger *logger.Logger
	// OnResult, when set, receives every batch the watcher submits.
	OnResult func(path string, result *model.BatchResult, err error)
}

// Watcher submits every stable, supported file written into Dir as a
// single-file batch.
type Watcher struct {
	svc      ports.Preprocessor
	dir      string
	policy   model.OutputPolicy
	settle   time.Duration
	tick     time.Duration
	log      *logger.Logger
	onResult func(string, *model.BatchResult, error)

	mu   sync.Mutex
	seen map[string]bool
}

// New creates a Watcher for cfg.Dir.
func New(svc ports.Preprocessor, cfg Config) (*Watcher, error) {
	if svc == nil {
		return nil, fmt.Errorf("preprocessor is required")
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve watch dir: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch dir %s is not a directory", dir)
	}

	settle := cfg.Settle
	if settle <= 0 {
		settle = 2 * time.Second
	}
	tick := cfg.Tick
	if tick <= 0 {
		tick = settle / 4
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	policy := cfg.Policy
	if policy.Mode == "" {
		policy = model.BesideInputs()
	}

	return &Watcher{
		svc:      svc,
		dir:      dir,
		policy:   policy,
		settle:   settle,
		tick:     tick,
		log:      log.With(zap.String("watch_dir", dir)),
		onResult: cfg.OnResult,
		seen:     make(map[string]bool),
	}, nil
}

// ShouldProcess reports whether a file in the watched directory is a
// candidate input: a supported media extension, not hidden, and not one of
// our own outputs.
func ShouldProcess(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if naming.IsProcessedName(base) {
		return false
	}
	return inputs.IsSupported(base)
}

// Run watches until ctx is canceled. Submitted batches run one at a time on
// a separate goroutine so event handling never stalls behind the engine.
// The returned error collects watcher failures seen along the way.
func (w *Watcher) Run(ctx context.Context) (err error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() {
		err = multierr.Append(err, fw.Close())
	}()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.log.Info("watching for new media", zap.String("policy", w.policy.String()))

	queue := make(chan string, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for path := range queue {
			w.submit(ctx, path)
		}
	}()
	defer func() {
		close(queue)
		wg.Wait()
	}()

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("watch stopped")
			return err

		case event, ok := <-fw.Events:
			if !ok {
				return err
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				delete(pending, event.Name)
				w.forget(event.Name)
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 && ShouldProcess(event.Name) {
				pending[event.Name] = time.Now()
			}

		case <-ticker.C:
			now := time.Now()
			for path, last := range pending {
				if now.Sub(last) < w.settle {
					continue // may still be written
				}
				delete(pending, path)
				if !isComplete(path) || !w.claim(path) {
					continue
				}
				select {
				case queue <- path:
				case <-ctx.Done():
					return err
				}
			}

		case werr, ok := <-fw.Errors:
			if !ok {
				return err
			}
			w.log.Warn("watcher error", zap.Error(werr))
			err = multierr.Append(err, werr)
		}
	}
}

func (w *Watcher) submit(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	log := w.log.With(zap.String("input", path))
	log.Info("submitting file")

	result, err := w.svc.Process(ctx, []string{path}, w.policy)
	switch {
	case pipeline.IsCanceled(err):
		// shutdown, not a failure
		log.Info("watch stopped before file was processed")
		return
	case err != nil:
		log.Error("batch rejected", zap.Error(err))
	case pipeline.IsCanceled(result.Err()):
		log.Info("file interrupted by shutdown")
	case result.Err() != nil:
		log.Warn("file failed", zap.Error(result.Err()))
	default:
		log.Info("file processed", zap.String("output", result.Outcomes[0].OutputPath))
	}
	if w.onResult != nil {
		w.onResult(path, result, err)
	}
}

// claim marks path as handled; false if it already was.
func (w *Watcher) claim(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.seen[path] {
		return false
	}
	w.seen[path] = true
	return true
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	delete(w.seen, path)
	w.mu.Unlock()
}

func isComplete(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
