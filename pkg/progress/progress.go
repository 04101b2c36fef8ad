package progress

import (
	"sync"
	"time"

	"github.com/Skryldev/voiceprep/pkg/logger"
	"go.uber.org/zap"
)

// Stage represents a pipeline step. Processing stages use their model stage
// name; the constants below cover the steps around them.
type Stage string

const (
	StageProbe   Stage = "probe"
	StagePromote Stage = "promote"
	StagePublish Stage = "publish"
	StageDone    Stage = "done"
	StageFailed  Stage = "failed"
)

// Update holds a progress update
type Update struct {
	JobID     string
	Input     string
	Stage     Stage
	Percent   float64
	Message   string
	Timestamp time.Time
}

// Reporter is the interface for progress reporting
type Reporter interface {
	Report(update Update)
}

// ChannelReporter sends updates to a channel
type ChannelReporter struct {
	ch chan<- Update
}

// NewChannelReporter creates a reporter that sends updates to ch
func NewChannelReporter(ch chan<- Update) *ChannelReporter {
	return &ChannelReporter{ch: ch}
}

func (r *ChannelReporter) Report(update Update) {
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now()
	}
	select {
	case r.ch <- update:
	default: // non-blocking: drop if channel is full
	}
}

// LogReporter writes updates to a logger at debug level.
type LogReporter struct {
	log *logger.Logger
}

func NewLogReporter(log *logger.Logger) *LogReporter {
	return &LogReporter{log: log}
}

func (r *LogReporter) Report(update Update) {
	r.log.Debug("progress",
		zap.String("job_id", update.JobID),
		zap.String("stage", string(update.Stage)),
		zap.Float64("percent", update.Percent),
		zap.String("message", update.Message),
	)
}

// MultiReporter fans out to multiple reporters
type MultiReporter struct {
	mu        sync.RWMutex
	reporters []Reporter
}

func NewMultiReporter(reporters ...Reporter) *MultiReporter {
	return &MultiReporter{reporters: reporters}
}

func (m *MultiReporter) Add(r Reporter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reporters = append(m.reporters, r)
}

func (m *MultiReporter) Report(update Update) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.reporters {
		r.Report(update)
	}
}

// NoopReporter discards all updates
type NoopReporter struct{}

func (n NoopReporter) Report(_ Update) {}
