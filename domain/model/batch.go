package model

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// OutputMode selects where processed files are written.
type OutputMode string

const (
	OutputBeside OutputMode = "beside"
	OutputFolder OutputMode = "folder"
)

// OutputPolicy is resolved by the caller; the core never prompts.
type OutputPolicy struct {
	Mode   OutputMode
	Folder string
}

// BesideInputs writes each output next to its input.
func BesideInputs() OutputPolicy {
	return OutputPolicy{Mode: OutputBeside}
}

// IntoFolder writes every output into dir, created if absent.
func IntoFolder(dir string) OutputPolicy {
	return OutputPolicy{Mode: OutputFolder, Folder: dir}
}

func (p OutputPolicy) String() string {
	if p.Mode == OutputFolder {
		return "folder:" + p.Folder
	}
	return string(OutputBeside)
}

// OutcomeStatus is the final state of one batch entry.
type OutcomeStatus string

const (
	StatusSucceeded OutcomeStatus = "succeeded"
	StatusFailed    OutcomeStatus = "failed"
	StatusSkipped   OutcomeStatus = "skipped"
)

// FileOutcome is one batch entry. Result is set on success, Err otherwise.
type FileOutcome struct {
	Index        int
	JobID        string
	InputPath    string
	OutputPath   string
	Status       OutcomeStatus
	Result       *ProcessingResult
	Err          error
	PublishedURL string
	PublishErr   error
}

// BatchResult lists one outcome per input, in input order.
type BatchResult struct {
	Outcomes []FileOutcome
	Started  time.Time
	Finished time.Time
}

func (b *BatchResult) count(s OutcomeStatus) int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

func (b *BatchResult) Succeeded() int { return b.count(StatusSucceeded) }
func (b *BatchResult) Failed() int    { return b.count(StatusFailed) }
func (b *BatchResult) Skipped() int   { return b.count(StatusSkipped) }

// Err combines every failed or skipped entry into one error, nil if all succeeded.
func (b *BatchResult) Err() error {
	var err error
	for _, o := range b.Outcomes {
		if o.Err != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", o.InputPath, o.Err))
		}
	}
	return err
}
