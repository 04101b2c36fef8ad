// Package voiceprep turns spoken-word audio and video into compact mono MP3
// files tuned for speech-to-text.
package voiceprep

import (
	"context"
	"time"

	"github.com/Skryldev/voiceprep/application/usecase"
	"github.com/Skryldev/voiceprep/domain/model"
	"github.com/Skryldev/voiceprep/domain/ports"
	"github.com/Skryldev/voiceprep/infrastructure/ffmpeg"
	"github.com/Skryldev/voiceprep/infrastructure/storage"
	pkgerrors "github.com/Skryldev/voiceprep/pkg/errors"
	"github.com/Skryldev/voiceprep/pkg/logger"
	"github.com/Skryldev/voiceprep/pkg/progress"
	"github.com/Skryldev/voiceprep/pkg/retry"
	"go.uber.org/zap"
)

// Re-export types for convenient use by callers
type (
	AudioAsset       = model.AudioAsset
	ProcessingResult = model.ProcessingResult
	BatchResult      = model.BatchResult
	FileOutcome      = model.FileOutcome
	OutputPolicy     = model.OutputPolicy
	StageSpec        = model.StageSpec
	ProgressUpdate   = progress.Update
	ProgressStage    = progress.Stage
	MinioConfig      = storage.MinioConfig
)

const (
	StatusSucceeded = model.StatusSucceeded
	StatusFailed    = model.StatusFailed
	StatusSkipped   = model.StatusSkipped

	StageProbe = progress.StageProbe
	StageDone  = progress.StageDone
)

// Re-export policy constructors and error sentinels
var (
	BesideInputs  = model.BesideInputs
	IntoFolder    = model.IntoFolder
	DefaultStages = model.DefaultStages

	ErrInputNotFound     = pkgerrors.ErrInputNotFound
	ErrProbeFailed       = pkgerrors.ErrProbeFailed
	ErrEngineUnavailable = pkgerrors.ErrEngineUnavailable
	ErrStageExecution    = pkgerrors.ErrStageExecution
	ErrOutputCollision   = pkgerrors.ErrOutputCollision
	ErrOutputWriteFailed = pkgerrors.ErrOutputWriteFailed
	ErrTimeout           = pkgerrors.ErrTimeout
	ErrCanceled          = pkgerrors.ErrCanceled
)

// Config holds top-level configuration for the processor
type Config struct {
	// FFmpegPath is the path to ffmpeg binary (auto-detected if empty)
	FFmpegPath string

	// FFprobePath is the path to ffprobe binary (auto-detected if empty)
	FFprobePath string

	// Logger is an optional custom logger. Uses production zap if nil.
	Logger *logger.Logger

	// ZapLogger allows passing a *zap.Logger directly
	ZapLogger *zap.Logger

	// ProgressCh is an optional channel for receiving progress updates
	ProgressCh chan<- ProgressUpdate

	// Workers bounds concurrent jobs (default: 4)
	Workers int

	// StageTimeout bounds each engine invocation (default: 10m)
	StageTimeout time.Duration

	// ProbeTimeout bounds each probe (default: 30s)
	ProbeTimeout time.Duration

	// TempDir holds job work directories (default: os.TempDir())
	TempDir string

	// Minio, when enabled, uploads every successful output
	Minio MinioConfig

	// RetryConfig overrides publish retry behavior
	RetryConfig *retry.Config
}

// Processor is the main entry point
type Processor struct {
	service *usecase.PrepService
	log     *logger.Logger
}

// New creates a new Processor with the given configuration. It fails with
// ENGINE_UNAVAILABLE when ffmpeg or ffprobe cannot be found.
func New(cfg Config) (*Processor, error) {
	log := cfg.Logger
	if log == nil && cfg.ZapLogger != nil {
		log = logger.FromZap(cfg.ZapLogger)
	}
	if log == nil {
		var err error
		log, err = logger.New(false)
		if err != nil {
			return nil, err
		}
	}

	exec, err := ffmpeg.NewExecutor(ffmpeg.ExecutorConfig{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}

	var reporter progress.Reporter = progress.NoopReporter{}
	if cfg.ProgressCh != nil {
		reporter = progress.NewChannelReporter(cfg.ProgressCh)
	}

	retryCfg := retry.DefaultConfig()
	if cfg.RetryConfig != nil {
		retryCfg = *cfg.RetryConfig
	}

	var publisher ports.Publisher
	if cfg.Minio.Enabled() {
		pub, err := storage.NewMinioPublisher(cfg.Minio, log)
		if err != nil {
			return nil, err
		}
		publisher = pub
	}

	svc, err := usecase.NewPrepService(usecase.Config{
		Executor:    exec,
		Storage:     storage.NewLocalStorage(),
		Publisher:   publisher,
		Reporter:    reporter,
		Logger:      log,
		Workers:     cfg.Workers,
		Timeouts:    ports.Timeouts{Stage: cfg.StageTimeout, Probe: cfg.ProbeTimeout},
		TempDir:     cfg.TempDir,
		RetryConfig: retryCfg,
	})
	if err != nil {
		return nil, err
	}

	return &Processor{
		service: svc,
		log:     log,
	}, nil
}

// Process runs a batch under policy and returns one outcome per input
func (p *Processor) Process(ctx context.Context, inputs []string, policy OutputPolicy) (*BatchResult, error) {
	return p.service.Process(ctx, inputs, policy)
}

// ProcessFile processes one input into an explicit output path
func (p *Processor) ProcessFile(ctx context.Context, inputPath, outputPath string) (*ProcessingResult, error) {
	return p.service.ProcessFile(ctx, inputPath, outputPath)
}

// ProbeAudio returns a snapshot of a media file without processing
func (p *Processor) ProbeAudio(ctx context.Context, path string) (AudioAsset, error) {
	return p.service.ProbeAudio(ctx, path)
}

// CheckEngine verifies ffmpeg can run every stage
func (p *Processor) CheckEngine(ctx context.Context) error {
	return p.service.CheckEngine(ctx)
}

// Stages returns the chain applied to every input
func (p *Processor) Stages() []StageSpec {
	return p.service.Stages()
}

// Close flushes the logger and releases resources
func (p *Processor) Close() {
	_ = p.log.Sync()
}
