package ports

import (
	"context"
	"time"

	"github.com/Skryldev/voiceprep/domain/model"
)

// Preprocessor is the caller-facing contract consumed by the CLI and GUI
type Preprocessor interface {
	// Process runs every input through the stage chain under the output policy
	Process(ctx context.Context, inputs []string, policy model.OutputPolicy) (*model.BatchResult, error)

	// ProcessFile processes a single input into an explicit output path
	ProcessFile(ctx context.Context, inputPath, outputPath string) (*model.ProcessingResult, error)

	// ProbeAudio returns a snapshot of a media file without processing it
	ProbeAudio(ctx context.Context, path string) (model.AudioAsset, error)
}

// FFmpegExecutor is the abstraction for the external audio engine
type FFmpegExecutor interface {
	// Execute runs an ffmpeg command with the given arguments
	Execute(ctx context.Context, args []string) error

	// Probe runs ffprobe and returns JSON output
	Probe(ctx context.Context, inputPath string) ([]byte, error)

	// CheckEngine verifies ffmpeg runs and can encode the output codec
	CheckEngine(ctx context.Context) error
}

// StorageProvider abstracts filesystem operations
type StorageProvider interface {
	// Exists checks if a file exists
	Exists(ctx context.Context, path string) (bool, error)

	// IsFile reports whether path exists and is a regular file
	IsFile(ctx context.Context, path string) (bool, error)

	// Size returns file size in bytes
	Size(ctx context.Context, path string) (int64, error)

	// Remove deletes a file
	Remove(ctx context.Context, path string) error

	// RemoveAll deletes a directory tree
	RemoveAll(ctx context.Context, path string) error

	// MkdirAll creates a directory and its parents
	MkdirAll(ctx context.Context, dir string) error

	// MkdirTemp creates a unique directory and returns its path
	MkdirTemp(ctx context.Context, dir, pattern string) (string, error)

	// Promote moves src to dst, failing if dst already exists
	Promote(ctx context.Context, src, dst string) error
}

// Publisher uploads a finished output somewhere callers can fetch it from
type Publisher interface {
	// Publish uploads localPath under key and returns its location
	Publish(ctx context.Context, localPath, key string) (string, error)
}

// Timeouts bounds every engine invocation
type Timeouts struct {
	Stage time.Duration
	Probe time.Duration
}

// DefaultTimeouts mirrors the per-file limit of the desktop tool.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Stage: 10 * time.Minute,
		Probe: 30 * time.Second,
	}
}
