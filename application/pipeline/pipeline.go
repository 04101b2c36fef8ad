package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Skryldev/voiceprep/domain/model"
	"github.com/Skryldev/voiceprep/domain/ports"
	"github.com/Skryldev/voiceprep/infrastructure/ffmpeg"
	pkgerrors "github.com/Skryldev/voiceprep/pkg/errors"
	"github.com/Skryldev/voiceprep/pkg/logger"
	"github.com/Skryldev/voiceprep/pkg/progress"
	"go.uber.org/zap"
)

// Job holds the state of a single processing operation
type Job struct {
	model.ProcessingJob
	Reporter progress.Reporter
	Log      *logger.Logger
}

// Config holds Pipeline configuration
type Config struct {
	Executor ports.FFmpegExecutor
	Storage  ports.StorageProvider
	Logger   *logger.Logger
	// Stages defaults to model.DefaultStages()
	Stages   []model.StageSpec
	Timeouts ports.Timeouts
	// TempDir is the root for job work directories; os.TempDir() when empty
	TempDir string
}

// Pipeline runs the stage chain for one input at a time
type Pipeline struct {
	executor  ports.FFmpegExecutor
	storage   ports.StorageProvider
	stages    []model.StageSpec
	format    model.WorkingFormat
	stageExec *StageExecutor
	timeouts  ports.Timeouts
	tempDir   string
	log       *logger.Logger
}

// NewPipeline validates the stage chain and creates a pipeline
func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("FFmpegExecutor is required")
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("StorageProvider is required")
	}

	stages := cfg.Stages
	if stages == nil {
		stages = model.DefaultStages()
	}
	if err := model.ValidateStages(stages); err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Pipeline{
		executor:  cfg.Executor,
		storage:   cfg.Storage,
		stages:    stages,
		format:    model.WorkingFormatOf(stages),
		stageExec: NewStageExecutor(cfg.Executor, cfg.Storage, cfg.Timeouts, log),
		timeouts:  cfg.Timeouts,
		tempDir:   cfg.TempDir,
		log:       log,
	}, nil
}

// Stages returns a copy of the chain this pipeline applies.
func (p *Pipeline) Stages() []model.StageSpec {
	out := make([]model.StageSpec, len(p.stages))
	copy(out, p.stages)
	return out
}

// Run executes every stage in order for job. Intermediate artifacts live in
// a job-scoped work directory that is removed before Run returns, whatever
// the outcome. The output path is written only after the final stage
// succeeds, and never over an existing file.
func (p *Pipeline) Run(ctx context.Context, job *Job) (*model.ProcessingResult, error) {
	start := time.Now()
	log := job.Log
	if log == nil {
		log = p.log.With(zap.String("job_id", job.ID))
	}

	if err := p.validateInput(ctx, job); err != nil {
		return nil, err
	}

	inputAsset := p.snapshot(ctx, job.InputPath, log)
	job.report(progress.StageProbe, 0, "input probed: "+inputAsset.Describe())

	workDir, err := p.storage.MkdirTemp(ctx, p.tempDir, "voiceprep-"+job.ID+"-")
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.ErrCodeOutputWriteFailed, "cannot create job work directory", err)
	}
	job.WorkDir = workDir
	job.Stages = p.Stages()
	defer p.release(workDir, log)

	reports, final, err := p.runStages(ctx, job, log)
	if err != nil {
		job.report(progress.StageFailed, 100, err.Error())
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.New(pkgerrors.ErrCodeCanceled, "job canceled before output was written", err)
	}
	if err := p.storage.Promote(ctx, final, job.OutputPath); err != nil {
		job.report(progress.StageFailed, 100, err.Error())
		return nil, pkgerrors.NewOutputWriteFailed(job.OutputPath, err)
	}
	job.report(progress.StagePromote, 95, "output written")

	outputAsset := p.snapshot(ctx, job.OutputPath, log)
	reduction := model.ComputeReduction(inputAsset.Size, outputAsset.Size)

	job.report(progress.StageDone, 100, "reduction "+reduction.String())

	log.Info("job completed",
		zap.String("input", job.InputPath),
		zap.String("output", job.OutputPath),
		zap.Int64("input_size", inputAsset.Size),
		zap.Int64("output_size", outputAsset.Size),
		zap.String("reduction", reduction.String()),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &model.ProcessingResult{
		JobID:       job.ID,
		InputPath:   job.InputPath,
		OutputPath:  job.OutputPath,
		Input:       inputAsset,
		Output:      outputAsset,
		Stages:      reports,
		Reduction:   reduction,
		Elapsed:     time.Since(start),
		ProcessedAt: time.Now(),
	}, nil
}

// runStages feeds each stage the previous stage's artifact. Artifact n is
// deleted as soon as stage n+1 has produced its own. The path of the last
// artifact is returned for promotion.
func (p *Pipeline) runStages(ctx context.Context, job *Job, log *logger.Logger) ([]model.StageReport, string, error) {
	reports := make([]model.StageReport, 0, len(p.stages))
	current := job.InputPath

	for i, spec := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, "", pkgerrors.New(pkgerrors.ErrCodeCanceled, fmt.Sprintf("job canceled before stage %s", spec.Name), err)
		}

		out := filepath.Join(job.WorkDir, fmt.Sprintf("%02d-%s%s", spec.Order, spec.Name, ffmpeg.ArtifactExt(spec.Name)))
		job.report(progress.Stage(spec.Name), stagePercent(i, len(p.stages)), "stage started")

		started := time.Now()
		asset, err := p.stageExec.Run(ctx, spec, p.format, current, out)
		if err != nil {
			log.Warn("stage failed",
				zap.String("stage", string(spec.Name)),
				zap.String("input", job.InputPath),
				zap.Error(err),
			)
			return nil, "", err
		}

		if current != job.InputPath {
			if rmErr := p.storage.Remove(context.Background(), current); rmErr != nil {
				log.Warn("failed to release artifact", zap.String("path", current), zap.Error(rmErr))
			}
		}
		current = out

		reports = append(reports, model.StageReport{
			Stage:    spec.Name,
			Order:    spec.Order,
			Artifact: asset,
			Elapsed:  time.Since(started),
		})
	}

	return reports, current, nil
}

func (p *Pipeline) validateInput(ctx context.Context, job *Job) error {
	if job.InputPath == "" {
		return pkgerrors.NewValidationError("inputPath", "", "input path must not be empty")
	}
	if job.OutputPath == "" {
		return pkgerrors.NewValidationError("outputPath", "", "output path must not be empty")
	}
	if samePath(job.InputPath, job.OutputPath) {
		return pkgerrors.NewOutputCollision(job.InputPath, job.OutputPath)
	}

	exists, err := p.storage.Exists(ctx, job.InputPath)
	if err != nil {
		return pkgerrors.NewInputNotFound(job.InputPath, err)
	}
	if !exists {
		return pkgerrors.NewInputNotFound(job.InputPath, nil)
	}
	regular, err := p.storage.IsFile(ctx, job.InputPath)
	if err != nil {
		return pkgerrors.NewInputNotFound(job.InputPath, err)
	}
	if !regular {
		return pkgerrors.NewInputNotRegular(job.InputPath)
	}
	return nil
}

// snapshot probes path for diagnostics. Probe failure is logged and yields
// an unknown asset; the size still comes from the filesystem.
func (p *Pipeline) snapshot(ctx context.Context, path string, log *logger.Logger) model.AudioAsset {
	asset, err := probeAsset(ctx, p.executor, p.timeouts.Probe, path)
	if err != nil {
		log.Warn("probe failed, reporting unknown", zap.String("path", path), zap.Error(err))
	}
	if size, serr := p.storage.Size(ctx, path); serr == nil {
		asset.Size = size
	}
	return asset
}

// release removes the job work directory. It runs with a fresh context so a
// canceled job still cleans up.
func (p *Pipeline) release(workDir string, log *logger.Logger) {
	if err := p.storage.RemoveAll(context.Background(), workDir); err != nil {
		log.Error("failed to remove job work directory", zap.String("dir", workDir), zap.Error(err))
	}
}

// Probe returns a snapshot of path. The error is PROBE_FAILED when the
// engine could not read it; the asset still carries the file size.
func (p *Pipeline) Probe(ctx context.Context, path string) (model.AudioAsset, error) {
	exists, err := p.storage.Exists(ctx, path)
	if err != nil || !exists {
		return model.AudioAsset{Path: path}, pkgerrors.NewInputNotFound(path, err)
	}
	asset, perr := probeAsset(ctx, p.executor, p.timeouts.Probe, path)
	if size, serr := p.storage.Size(ctx, path); serr == nil {
		asset.Size = size
	}
	return asset, perr
}

// report is a helper to emit progress updates
func (j *Job) report(stage progress.Stage, percent float64, msg string) {
	if j.Reporter == nil {
		return
	}
	j.Reporter.Report(progress.Update{
		JobID:     j.ID,
		Input:     j.InputPath,
		Stage:     stage,
		Percent:   percent,
		Message:   msg,
		Timestamp: time.Now(),
	})
}

func stagePercent(i, n int) float64 {
	if n == 0 {
		return 0
	}
	return 5 + 90*float64(i)/float64(n)
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	if errA != nil || errB != nil {
		return false
	}
	return os.SameFile(infoA, infoB)
}

// IsCanceled reports whether err stems from cancellation rather than a
// processing failure.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, pkgerrors.ErrCanceled)
}
