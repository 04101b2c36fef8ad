package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/Skryldev/voiceprep/application/naming"
	"github.com/Skryldev/voiceprep/application/pipeline"
	"github.com/Skryldev/voiceprep/domain/model"
	"github.com/Skryldev/voiceprep/domain/ports"
	pkgerrors "github.com/Skryldev/voiceprep/pkg/errors"
	"github.com/Skryldev/voiceprep/pkg/logger"
	"github.com/Skryldev/voiceprep/pkg/progress"
	"github.com/Skryldev/voiceprep/pkg/retry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PrepService is the main application service implementing ports.Preprocessor
type PrepService struct {
	executor   ports.FFmpegExecutor
	pipeline   *pipeline.Pipeline
	workerPool *pipeline.WorkerPool
	storage    ports.StorageProvider
	publisher  ports.Publisher
	reporter   progress.Reporter
	log        *logger.Logger
	retryCfg   retry.Config
}

var _ ports.Preprocessor = (*PrepService)(nil)

// Config holds PrepService configuration
type Config struct {
	Executor ports.FFmpegExecutor
	Storage  ports.StorageProvider
	// Publisher is optional; when set every successful output is uploaded.
	Publisher ports.Publisher
	Reporter  progress.Reporter
	Logger    *logger.Logger
	Workers   int
	Stages    []model.StageSpec
	Timeouts  ports.Timeouts
	TempDir   string
	// RetryConfig applies to publishing only; engine failures are not retried.
	RetryConfig retry.Config
}

// NewPrepService creates a new PrepService
func NewPrepService(cfg Config) (*PrepService, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("FFmpegExecutor is required")
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("StorageProvider is required")
	}

	log := cfg.Logger
	if log == nil {
		var err error
		log, err = logger.New(false)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	reporter := cfg.Reporter
	if reporter == nil {
		reporter = progress.NoopReporter{}
	}

	retryCfg := cfg.RetryConfig
	if retryCfg.MaxAttempts == 0 {
		retryCfg = retry.DefaultConfig()
	}

	timeouts := cfg.Timeouts
	if timeouts.Stage <= 0 || timeouts.Probe <= 0 {
		def := ports.DefaultTimeouts()
		if timeouts.Stage <= 0 {
			timeouts.Stage = def.Stage
		}
		if timeouts.Probe <= 0 {
			timeouts.Probe = def.Probe
		}
	}

	p, err := pipeline.NewPipeline(pipeline.Config{
		Executor: cfg.Executor,
		Storage:  cfg.Storage,
		Logger:   log,
		Stages:   cfg.Stages,
		Timeouts: timeouts,
		TempDir:  cfg.TempDir,
	})
	if err != nil {
		return nil, err
	}

	return &PrepService{
		executor:   cfg.Executor,
		pipeline:   p,
		workerPool: pipeline.NewWorkerPool(p, cfg.Workers, log),
		storage:    cfg.Storage,
		publisher:  cfg.Publisher,
		reporter:   reporter,
		log:        log,
		retryCfg:   retryCfg,
	}, nil
}

// CheckEngine verifies the external engine can run every stage.
// A check cut short by ctx reports CANCELED_ERROR, not a missing engine.
func (s *PrepService) CheckEngine(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.New(pkgerrors.ErrCodeCanceled, "canceled before engine check", err)
	}
	if err := s.executor.CheckEngine(ctx); err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return pkgerrors.New(pkgerrors.ErrCodeCanceled, "engine check interrupted", cerr)
		}
		if pkgerrors.Is(err, pkgerrors.ErrEngineUnavailable) {
			return err
		}
		return pkgerrors.NewEngineUnavailable("engine check failed", err)
	}
	return nil
}

// Process runs every input through the stage chain under policy. Engine
// availability and input existence are checked before any job starts; a
// failure there returns an error and no BatchResult. After that, per-file
// failures are recorded in the result and never stop the batch. Outcomes are
// in input order. A ctx canceled before the first job starts yields
// CANCELED_ERROR.
func (s *PrepService) Process(ctx context.Context, inputs []string, policy model.OutputPolicy) (*model.BatchResult, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.NewValidationError("inputs", 0, "at least one input is required")
	}

	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.New(pkgerrors.ErrCodeCanceled, "batch canceled before start", err)
	}
	if err := s.CheckEngine(ctx); err != nil {
		if pkgerrors.Is(err, pkgerrors.ErrCanceled) {
			s.log.Info("batch canceled before start", zap.Error(err))
		} else {
			s.log.Error("engine unavailable, batch aborted", zap.Error(err))
		}
		return nil, err
	}

	paths, err := s.checkInputs(ctx, inputs)
	if err != nil {
		return nil, err
	}

	if policy.Mode == model.OutputFolder {
		if policy.Folder == "" {
			return nil, pkgerrors.NewValidationError("policy.folder", "", "output folder must not be empty")
		}
		if err := s.storage.MkdirAll(ctx, policy.Folder); err != nil {
			return nil, pkgerrors.NewOutputWriteFailed(policy.Folder, err)
		}
	}

	jobs, err := s.plan(ctx, paths, policy)
	if err != nil {
		return nil, err
	}

	s.log.Info("starting batch",
		zap.Int("job_count", len(jobs)),
		zap.Int("workers", s.workerPool.Workers()),
		zap.String("policy", policy.String()),
	)

	batch := &model.BatchResult{
		Outcomes: make([]model.FileOutcome, 0, len(jobs)),
		Started:  time.Now(),
	}
	for outcome := range s.workerPool.Run(ctx, jobs, s.reporter) {
		batch.Outcomes = append(batch.Outcomes, outcome)
	}
	sort.Slice(batch.Outcomes, func(i, j int) bool {
		return batch.Outcomes[i].Index < batch.Outcomes[j].Index
	})

	if s.publisher != nil {
		s.publishAll(ctx, batch)
	}
	batch.Finished = time.Now()

	s.log.Info("batch finished",
		zap.Int("succeeded", batch.Succeeded()),
		zap.Int("failed", batch.Failed()),
		zap.Int("skipped", batch.Skipped()),
		zap.Duration("elapsed", batch.Finished.Sub(batch.Started)),
	)
	return batch, nil
}

// ProcessFile processes a single input into an explicit output path. The
// output must not exist yet.
func (s *PrepService) ProcessFile(ctx context.Context, inputPath, outputPath string) (*model.ProcessingResult, error) {
	if err := s.CheckEngine(ctx); err != nil {
		return nil, err
	}

	exists, err := s.storage.Exists(ctx, outputPath)
	if err != nil {
		return nil, pkgerrors.NewOutputWriteFailed(outputPath, err)
	}
	if exists {
		return nil, pkgerrors.NewOutputCollision(inputPath, outputPath)
	}

	job := &pipeline.Job{
		ProcessingJob: model.ProcessingJob{
			ID:         uuid.NewString(),
			InputPath:  inputPath,
			OutputPath: outputPath,
		},
		Reporter: s.reporter,
	}
	job.Log = s.log.With(zap.String("job_id", job.ID))

	result, err := s.pipeline.Run(ctx, job)
	if err != nil {
		job.Log.Error("processing failed", zap.String("input", inputPath), zap.Error(err))
		return nil, err
	}
	return result, nil
}

// ProbeAudio returns a snapshot of path without processing it.
func (s *PrepService) ProbeAudio(ctx context.Context, path string) (model.AudioAsset, error) {
	return s.pipeline.Probe(ctx, path)
}

// Stages returns the chain every job runs.
func (s *PrepService) Stages() []model.StageSpec {
	return s.pipeline.Stages()
}

func (s *PrepService) checkInputs(ctx context.Context, inputs []string) ([]string, error) {
	paths := make([]string, 0, len(inputs))
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return nil, pkgerrors.NewInputNotFound(in, err)
		}
		exists, err := s.storage.Exists(ctx, abs)
		if err != nil {
			return nil, pkgerrors.NewInputNotFound(in, err)
		}
		if !exists {
			s.log.Error("input missing, batch aborted", zap.String("input", in))
			return nil, pkgerrors.NewInputNotFound(in, nil)
		}
		regular, err := s.storage.IsFile(ctx, abs)
		if err != nil {
			return nil, pkgerrors.NewInputNotFound(in, err)
		}
		if !regular {
			s.log.Error("input is not a regular file, batch aborted", zap.String("input", in))
			return nil, pkgerrors.NewInputNotRegular(in)
		}
		paths = append(paths, abs)
	}
	return paths, nil
}

// plan derives and de-conflicts every output path in input order, so the
// same batch over the same filesystem always gets the same names.
func (s *PrepService) plan(ctx context.Context, paths []string, policy model.OutputPolicy) ([]pipeline.PoolJob, error) {
	resolver := naming.NewCollisionResolver(paths, func(p string) bool {
		ok, err := s.storage.Exists(ctx, p)
		return err != nil || ok
	})

	jobs := make([]pipeline.PoolJob, 0, len(paths))
	for i, in := range paths {
		derived, err := naming.DerivePath(in, policy)
		if err != nil {
			return nil, err
		}
		out, renamed := resolver.Resolve(derived)
		if renamed {
			s.log.Info("output collision resolved",
				zap.String("code", string(pkgerrors.ErrCodeOutputCollision)),
				zap.String("input", in),
				zap.String("requested", derived),
				zap.String("output", out),
			)
		}
		jobs = append(jobs, pipeline.PoolJob{
			Index: i,
			Job: model.ProcessingJob{
				ID:         uuid.NewString(),
				InputPath:  in,
				OutputPath: out,
			},
		})
	}
	return jobs, nil
}

func (s *PrepService) publishAll(ctx context.Context, batch *model.BatchResult) {
	for i := range batch.Outcomes {
		o := &batch.Outcomes[i]
		if o.Status != model.StatusSucceeded {
			continue
		}
		key := filepath.Base(o.OutputPath)

		var url string
		err := retry.Do(ctx, s.retryCfg, func() error {
			var pubErr error
			url, pubErr = s.publisher.Publish(ctx, o.OutputPath, key)
			return pubErr
		})
		if err != nil {
			s.log.Warn("publish failed",
				zap.String("job_id", o.JobID),
				zap.String("output", o.OutputPath),
				zap.Error(err),
			)
			o.PublishErr = err
			continue
		}

		o.PublishedURL = url
		s.reporter.Report(progress.Update{
			JobID:     o.JobID,
			Input:     o.InputPath,
			Stage:     progress.StagePublish,
			Percent:   100,
			Message:   url,
			Timestamp: time.Now(),
		})
	}
}
