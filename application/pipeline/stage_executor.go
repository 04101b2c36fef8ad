package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skryldev/voiceprep/domain/model"
	"github.com/Skryldev/voiceprep/domain/ports"
	"github.com/Skryldev/voiceprep/infrastructure/ffmpeg"
	pkgerrors "github.com/Skryldev/voiceprep/pkg/errors"
	"github.com/Skryldev/voiceprep/pkg/logger"
	"go.uber.org/zap"
)

// StageExecutor runs one stage through the engine and checks its artifact
type StageExecutor struct {
	executor ports.FFmpegExecutor
	storage  ports.StorageProvider
	timeouts ports.Timeouts
	log      *logger.Logger
}

// NewStageExecutor creates a StageExecutor
func NewStageExecutor(executor ports.FFmpegExecutor, storage ports.StorageProvider, timeouts ports.Timeouts, log *logger.Logger) *StageExecutor {
	if log == nil {
		log = logger.Nop()
	}
	return &StageExecutor{
		executor: executor,
		storage:  storage,
		timeouts: timeouts,
		log:      log,
	}
}

// Run writes exactly one new artifact at outputPath from inputPath. The input
// is never modified. Any failure, including an artifact that is missing,
// empty or of zero duration, removes whatever was written at outputPath and
// is returned as a StageExecutionError.
func (s *StageExecutor) Run(ctx context.Context, spec model.StageSpec, format model.WorkingFormat, inputPath, outputPath string) (model.AudioAsset, error) {
	stage := string(spec.Name)

	args, err := ffmpeg.StageArgs(spec, inputPath, outputPath, format)
	if err != nil {
		return model.AudioAsset{}, pkgerrors.NewStageExecutionError(stage, "invalid stage configuration", err)
	}

	stageCtx := ctx
	if s.timeouts.Stage > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, s.timeouts.Stage)
		defer cancel()
	}

	s.log.Debug("running stage",
		zap.String("stage", stage),
		zap.String("input", inputPath),
		zap.String("output", outputPath),
	)

	if err := s.executor.Execute(stageCtx, args); err != nil {
		s.discard(outputPath)
		diag := pkgerrors.Diagnostic(err)
		switch {
		case ctx.Err() != nil:
			diag = "canceled: " + diag
			err = pkgerrors.New(pkgerrors.ErrCodeCanceled, "stage interrupted", err)
		case errors.Is(stageCtx.Err(), context.DeadlineExceeded):
			diag = fmt.Sprintf("timed out after %s: %s", s.timeouts.Stage, diag)
			err = pkgerrors.New(pkgerrors.ErrCodeTimeout, fmt.Sprintf("stage exceeded %s", s.timeouts.Stage), err)
		}
		return model.AudioAsset{}, pkgerrors.NewStageExecutionError(stage, diag, err)
	}

	size, err := s.storage.Size(ctx, outputPath)
	if err != nil {
		s.discard(outputPath)
		return model.AudioAsset{}, pkgerrors.NewStageExecutionError(stage, "engine reported success but produced no artifact", err)
	}
	if size == 0 {
		s.discard(outputPath)
		return model.AudioAsset{}, pkgerrors.NewStageExecutionError(stage, "engine produced an empty artifact", nil)
	}

	asset, perr := probeAsset(ctx, s.executor, s.timeouts.Probe, outputPath)
	asset.Size = size
	if perr != nil {
		s.log.Debug("artifact probe failed", zap.String("stage", stage), zap.Error(perr))
		return asset, nil
	}
	if asset.Duration <= 0 {
		s.discard(outputPath)
		return model.AudioAsset{}, pkgerrors.NewStageExecutionError(stage, "engine produced an artifact of zero duration", nil)
	}
	return asset, nil
}

func (s *StageExecutor) discard(path string) {
	if err := s.storage.Remove(context.Background(), path); err != nil {
		s.log.Warn("failed to remove failed artifact", zap.String("path", path), zap.Error(err))
	}
}

// probeAsset probes path under the probe timeout. On failure the returned
// asset carries only the path.
func probeAsset(ctx context.Context, executor ports.FFmpegExecutor, timeout time.Duration, path string) (model.AudioAsset, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	data, err := executor.Probe(ctx, path)
	if err != nil {
		return model.AudioAsset{Path: path}, pkgerrors.NewProbeFailed(path, err)
	}
	asset, err := ffmpeg.ParseProbe(path, data)
	if err != nil {
		return model.AudioAsset{Path: path}, pkgerrors.NewProbeFailed(path, err)
	}
	return asset, nil
}
