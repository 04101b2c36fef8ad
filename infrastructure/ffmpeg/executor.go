package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	pkgerrors "github.com/Skryldev/voiceprep/pkg/errors"
	"github.com/Skryldev/voiceprep/pkg/logger"
	"go.uber.org/zap"
)

// RequiredEncoder must be listed by `ffmpeg -encoders` for the encode stage.
const RequiredEncoder = "libmp3lame"

// Executor implements ports.FFmpegExecutor
type Executor struct {
	ffmpegPath  string
	ffprobePath string
	log         *logger.Logger
}

// ExecutorConfig holds configuration for the FFmpeg executor
type ExecutorConfig struct {
	FFmpegPath  string
	FFprobePath string
	Logger      *logger.Logger
}

// NewExecutor resolves the ffmpeg and ffprobe binaries. A binary that cannot
// be found is reported as ENGINE_UNAVAILABLE.
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	ffmpegPath, err := resolveBinary(cfg.FFmpegPath, "ffmpeg")
	if err != nil {
		return nil, err
	}

	ffprobePath, err := resolveBinary(cfg.FFprobePath, "ffprobe")
	if err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log, _ = logger.New(false)
	}

	return &Executor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		log:         log,
	}, nil
}

func resolveBinary(configured, name string) (string, error) {
	if configured == "" {
		configured = name
	}
	path, err := exec.LookPath(configured)
	if err != nil {
		return "", pkgerrors.NewEngineUnavailable(fmt.Sprintf("%s not found", configured), err)
	}
	return path, nil
}

// FFmpegPath returns the resolved ffmpeg binary.
func (e *Executor) FFmpegPath() string { return e.ffmpegPath }

// FFprobePath returns the resolved ffprobe binary.
func (e *Executor) FFprobePath() string { return e.ffprobePath }

// Execute runs ffmpeg with the given arguments
func (e *Executor) Execute(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	e.log.Debug("executing ffmpeg",
		zap.Strings("args", args),
	)

	if err := cmd.Run(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		return pkgerrors.NewFFmpegError(
			"ffmpeg execution failed",
			args,
			exitCode,
			stderr.String(),
			err,
		)
	}

	return nil
}

// Probe runs ffprobe and returns JSON output
func (e *Executor) Probe(ctx context.Context, inputPath string) ([]byte, error) {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return nil, pkgerrors.NewFFmpegError(
			"ffprobe execution failed",
			args,
			exitCode,
			stderr.String(),
			err,
		)
	}

	return stdout.Bytes(), nil
}

// CheckEngine runs `ffmpeg -version` and `ffmpeg -encoders`, failing with
// ENGINE_UNAVAILABLE when either fails or the MP3 encoder is missing.
func (e *Executor) CheckEngine(ctx context.Context) error {
	out, err := e.output(ctx, e.ffmpegPath, "-hide_banner", "-version")
	if err != nil {
		return pkgerrors.NewEngineUnavailable("ffmpeg -version failed", err)
	}
	e.log.Debug("ffmpeg available", zap.String("version", firstLine(out)))

	if _, err := e.output(ctx, e.ffprobePath, "-version"); err != nil {
		return pkgerrors.NewEngineUnavailable("ffprobe -version failed", err)
	}

	encoders, err := e.output(ctx, e.ffmpegPath, "-hide_banner", "-encoders")
	if err != nil {
		return pkgerrors.NewEngineUnavailable("ffmpeg -encoders failed", err)
	}
	if !strings.Contains(encoders, RequiredEncoder) {
		return pkgerrors.NewEngineUnavailable(fmt.Sprintf("ffmpeg lacks the %s encoder", RequiredEncoder), nil)
	}
	return nil
}

// Version returns the first line of `ffmpeg -version`.
func (e *Executor) Version(ctx context.Context) (string, error) {
	out, err := e.output(ctx, e.ffmpegPath, "-version")
	if err != nil {
		return "", err
	}
	return firstLine(out), nil
}

func (e *Executor) output(ctx context.Context, bin string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return "", pkgerrors.NewFFmpegError("engine check failed", args, exitCode, stderr.String(), err)
	}
	return stdout.String(), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
