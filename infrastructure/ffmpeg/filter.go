package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"
)

// FilterChainBuilder constructs an ffmpeg audio filter string
type FilterChainBuilder struct {
	filters []string
}

func NewFilterChainBuilder() *FilterChainBuilder {
	return &FilterChainBuilder{}
}

func (b *FilterChainBuilder) AddResample(hz int) *FilterChainBuilder {
	b.filters = append(b.filters, fmt.Sprintf("aresample=%d", hz))
	return b
}

// AddFormat pins sample format, rate and channel layout. Requesting a mono
// layout makes ffmpeg downmix.
func (b *FilterChainBuilder) AddFormat(sampleFmt string, hz int, layout string) *FilterChainBuilder {
	b.filters = append(b.filters, fmt.Sprintf("aformat=sample_fmts=%s:sample_rates=%d:channel_layouts=%s", sampleFmt, hz, layout))
	return b
}

func (b *FilterChainBuilder) AddHighpass(freq int) *FilterChainBuilder {
	b.filters = append(b.filters, fmt.Sprintf("highpass=f=%d", freq))
	return b
}

func (b *FilterChainBuilder) AddLowpass(freq int) *FilterChainBuilder {
	b.filters = append(b.filters, fmt.Sprintf("lowpass=f=%d", freq))
	return b
}

// AddCompressor adds acompressor; attack and release are in milliseconds.
func (b *FilterChainBuilder) AddCompressor(thresholdDB, ratio, attackMs, releaseMs float64) *FilterChainBuilder {
	b.filters = append(b.filters, fmt.Sprintf("acompressor=threshold=%sdB:ratio=%s:attack=%s:release=%s",
		num(thresholdDB), num(ratio), num(attackMs), num(releaseMs)))
	return b
}

// AddSilenceRemove truncates every silence longer than durationSec anywhere
// in the stream (stop_periods=-1).
func (b *FilterChainBuilder) AddSilenceRemove(thresholdDB, durationSec, windowSec float64) *FilterChainBuilder {
	b.filters = append(b.filters, fmt.Sprintf("silenceremove=stop_periods=-1:stop_duration=%s:stop_threshold=%sdB:window=%s",
		num(durationSec), num(thresholdDB), num(windowSec)))
	return b
}

func (b *FilterChainBuilder) AddLoudnorm(targetLUFS, loudnessRange, truePeak float64) *FilterChainBuilder {
	b.filters = append(b.filters, fmt.Sprintf("loudnorm=I=%s:LRA=%s:TP=%s", num(targetLUFS), num(loudnessRange), num(truePeak)))
	return b
}

func (b *FilterChainBuilder) Build() string {
	return strings.Join(b.filters, ",")
}

func (b *FilterChainBuilder) IsEmpty() bool {
	return len(b.filters) == 0
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
