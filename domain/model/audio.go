package model

import (
	"fmt"
	"time"
)

// Codec represents supported output codecs
type Codec string

const (
	CodecMP3 Codec = "mp3"
)

// AudioAsset is a read-only snapshot of a media file. Probed is false when
// the probe failed; the stream fields are then zero and reported as unknown.
type AudioAsset struct {
	Path       string
	Format     string
	Codec      string
	SampleRate int
	Channels   int
	Duration   time.Duration
	Size       int64
	Probed     bool
}

// Describe renders the asset for reports.
func (a AudioAsset) Describe() string {
	if !a.Probed {
		return fmt.Sprintf("unknown (%d bytes)", a.Size)
	}
	return fmt.Sprintf("%s/%s %d Hz %dch %s (%d bytes)",
		orUnknown(a.Format), orUnknown(a.Codec), a.SampleRate, a.Channels,
		a.Duration.Round(time.Millisecond), a.Size)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// ProcessingJob is one input, its resolved output, and the chain applied to it.
// WorkDir holds the job's intermediate artifacts and is removed when the job ends.
type ProcessingJob struct {
	ID         string
	InputPath  string
	OutputPath string
	Stages     []StageSpec
	WorkDir    string
}

// StageReport records the artifact a stage produced.
type StageReport struct {
	Stage    StageName
	Order    int
	Artifact AudioAsset
	Elapsed  time.Duration
}

// SizeReduction is 1 - output/input. Defined is false when the input size is
// zero or unknown.
type SizeReduction struct {
	Ratio   float64
	Defined bool
}

// ComputeReduction returns the reduction from inputSize to outputSize.
func ComputeReduction(inputSize, outputSize int64) SizeReduction {
	if inputSize <= 0 {
		return SizeReduction{}
	}
	return SizeReduction{
		Ratio:   1 - float64(outputSize)/float64(inputSize),
		Defined: true,
	}
}

// Percent returns the ratio as a percentage.
func (r SizeReduction) Percent() float64 {
	return r.Ratio * 100
}

func (r SizeReduction) String() string {
	if !r.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", r.Percent())
}

// ProcessingResult holds the result of a completed job
type ProcessingResult struct {
	JobID       string
	InputPath   string
	OutputPath  string
	Input       AudioAsset
	Output      AudioAsset
	Stages      []StageReport
	Reduction   SizeReduction
	Elapsed     time.Duration
	ProcessedAt time.Time
}
