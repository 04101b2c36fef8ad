package pipeline

import (
	"context"
	"sync"

	"github.com/Skryldev/voiceprep/domain/model"
	"github.com/Skryldev/voiceprep/pkg/logger"
	"github.com/Skryldev/voiceprep/pkg/progress"
	"go.uber.org/zap"
)

// PoolJob is one batch entry handed to the pool
type PoolJob struct {
	Index int
	Job   model.ProcessingJob
}

// WorkerPool manages concurrent job execution
type WorkerPool struct {
	pipeline *Pipeline
	workers  int
	log      *logger.Logger
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(p *Pipeline, workers int, log *logger.Logger) *WorkerPool {
	if workers <= 0 {
		workers = 4
	}
	if log == nil {
		log = logger.Nop()
	}
	return &WorkerPool{
		pipeline: p,
		workers:  workers,
		log:      log,
	}
}

// Workers returns the concurrency bound.
func (wp *WorkerPool) Workers() int { return wp.workers }

// Run processes jobs with at most Workers() running at once and sends one
// outcome per job to the returned channel, in completion order. Once ctx is
// canceled, jobs that have not started are reported as skipped; running jobs
// finish their own cleanup before their outcome is sent. The channel is
// closed after the last outcome.
func (wp *WorkerPool) Run(ctx context.Context, jobs []PoolJob, reporter progress.Reporter) <-chan model.FileOutcome {
	results := make(chan model.FileOutcome, len(jobs))

	go func() {
		defer close(results)

		var wg sync.WaitGroup
		semaphore := make(chan struct{}, wp.workers)

		for _, job := range jobs {
			select {
			case <-ctx.Done():
				results <- skipped(job, ctx.Err())
				continue
			case semaphore <- struct{}{}:
			}

			wg.Add(1)
			go func(j PoolJob) {
				defer wg.Done()
				defer func() { <-semaphore }()

				if err := ctx.Err(); err != nil {
					results <- skipped(j, err)
					return
				}
				results <- wp.processJob(ctx, j, reporter)
			}(job)
		}

		wg.Wait()
	}()

	return results
}

func (wp *WorkerPool) processJob(ctx context.Context, pj PoolJob, reporter progress.Reporter) model.FileOutcome {
	log := wp.log.With(zap.String("job_id", pj.Job.ID))
	job := &Job{
		ProcessingJob: pj.Job,
		Reporter:      reporter,
		Log:           log,
	}

	log.Info("processing batch job",
		zap.Int("index", pj.Index),
		zap.String("input", pj.Job.InputPath),
		zap.String("output", pj.Job.OutputPath),
	)

	outcome := model.FileOutcome{
		Index:      pj.Index,
		JobID:      pj.Job.ID,
		InputPath:  pj.Job.InputPath,
		OutputPath: pj.Job.OutputPath,
	}

	result, err := wp.pipeline.Run(ctx, job)
	if err != nil {
		log.Error("batch job failed",
			zap.String("input", pj.Job.InputPath),
			zap.Error(err),
		)
		outcome.Status = model.StatusFailed
		outcome.Err = err
		return outcome
	}

	outcome.Status = model.StatusSucceeded
	outcome.Result = result
	return outcome
}

func skipped(pj PoolJob, err error) model.FileOutcome {
	return model.FileOutcome{
		Index:      pj.Index,
		JobID:      pj.Job.ID,
		InputPath:  pj.Job.InputPath,
		OutputPath: pj.Job.OutputPath,
		Status:     model.StatusSkipped,
		Err:        err,
	}
}
