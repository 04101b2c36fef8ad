package model

import (
	"fmt"

	pkgerrors "github.com/Skryldev/voiceprep/pkg/errors"
)

// StageName identifies one transform in the processing chain
type StageName string

const (
	StageDownmixResample   StageName = "downmix_resample"
	StageBandLimit         StageName = "band_limit"
	StageCompress          StageName = "compress"
	StageSilenceTruncate   StageName = "silence_truncate"
	StageLoudnessNormalize StageName = "loudness_normalize"
	StageEncode            StageName = "encode"
)

// Parameter keys. Units are part of the key so values stay plain numbers.
const (
	ParamSampleRate      = "sample_rate"
	ParamChannels        = "channels"
	ParamHighpassHz      = "highpass_hz"
	ParamLowpassHz       = "lowpass_hz"
	ParamThresholdDB     = "threshold_db"
	ParamRatio           = "ratio"
	ParamAttackMs        = "attack_ms"
	ParamReleaseMs       = "release_ms"
	ParamStopThresholdDB = "stop_threshold_db"
	ParamStopDurationSec = "stop_duration_s"
	ParamWindowSec       = "window_s"
	ParamIntegratedLUFS  = "integrated_lufs"
	ParamLoudnessRangeLU = "lra_lu"
	ParamTruePeakDBTP    = "true_peak_dbtp"
	ParamBitrateKbps     = "bitrate_kbps"
)

// StageSpec is one ordered transform and its numeric parameters.
// Codec is only meaningful for the encode stage.
type StageSpec struct {
	Order  int
	Name   StageName
	Params map[string]float64
	Codec  Codec
}

// Param returns the named parameter, or zero if unset.
func (s StageSpec) Param(key string) float64 {
	return s.Params[key]
}

func (s StageSpec) String() string {
	return fmt.Sprintf("%d:%s", s.Order, s.Name)
}

// requiredParams lists what each stage needs to build its filter graph.
var requiredParams = map[StageName][]string{
	StageDownmixResample:   {ParamSampleRate, ParamChannels},
	StageBandLimit:         {ParamHighpassHz, ParamLowpassHz},
	StageCompress:          {ParamThresholdDB, ParamRatio, ParamAttackMs, ParamReleaseMs},
	StageSilenceTruncate:   {ParamStopThresholdDB, ParamStopDurationSec, ParamWindowSec},
	StageLoudnessNormalize: {ParamIntegratedLUFS, ParamLoudnessRangeLU, ParamTruePeakDBTP},
	StageEncode:            {ParamBitrateKbps, ParamSampleRate},
}

// DefaultStages returns the canonical six-stage chain. Band-limiting runs
// before compression so the compressor ignores out-of-band rumble and hiss;
// compression runs before silence truncation so the silence threshold sees
// stable levels; loudness normalization is the last audio-domain stage so
// nothing but the encoder follows it.
//
// A fresh slice is returned on every call.
func DefaultStages() []StageSpec {
	return []StageSpec{
		{
			Order: 1,
			Name:  StageDownmixResample,
			Params: map[string]float64{
				ParamSampleRate: 16000,
				ParamChannels:   1,
			},
		},
		{
			Order: 2,
			Name:  StageBandLimit,
			Params: map[string]float64{
				ParamHighpassHz: 80,
				ParamLowpassHz:  8000,
			},
		},
		{
			Order: 3,
			Name:  StageCompress,
			Params: map[string]float64{
				ParamThresholdDB: -20,
				ParamRatio:       3,
				ParamAttackMs:    5,
				ParamReleaseMs:   100,
			},
		},
		{
			Order: 4,
			Name:  StageSilenceTruncate,
			Params: map[string]float64{
				ParamStopThresholdDB: -40,
				ParamStopDurationSec: 0.3,
				ParamWindowSec:       0.02,
			},
		},
		{
			Order: 5,
			Name:  StageLoudnessNormalize,
			Params: map[string]float64{
				ParamIntegratedLUFS:  -16,
				ParamLoudnessRangeLU: 11,
				ParamTruePeakDBTP:    -1.5,
			},
		},
		{
			Order: 6,
			Name:  StageEncode,
			Codec: CodecMP3,
			Params: map[string]float64{
				ParamBitrateKbps: 64,
				ParamSampleRate:  16000,
			},
		},
	}
}

// ValidateStages checks a chain is usable: strictly increasing order, known
// stages with their parameters, starting with downmix_resample and ending
// with encode.
func ValidateStages(stages []StageSpec) error {
	if len(stages) == 0 {
		return pkgerrors.NewValidationError("stages", 0, "at least one stage is required")
	}
	if stages[0].Name != StageDownmixResample {
		return pkgerrors.NewValidationError("stages[0]", stages[0].Name, "first stage must be "+string(StageDownmixResample))
	}
	last := stages[len(stages)-1]
	if last.Name != StageEncode {
		return pkgerrors.NewValidationError("stages[last]", last.Name, "last stage must be "+string(StageEncode))
	}

	prev := 0
	for i, s := range stages {
		if s.Order <= prev {
			return pkgerrors.NewValidationError(fmt.Sprintf("stages[%d].order", i), s.Order, "stage order must be strictly increasing")
		}
		prev = s.Order

		keys, ok := requiredParams[s.Name]
		if !ok {
			return pkgerrors.NewValidationError(fmt.Sprintf("stages[%d].name", i), s.Name, "unknown stage")
		}
		for _, k := range keys {
			if _, ok := s.Params[k]; !ok {
				return pkgerrors.NewValidationError(fmt.Sprintf("stages[%d].%s", i, k), nil, "missing parameter")
			}
		}
		if s.Name == StageEncode && s.Codec != CodecMP3 {
			return pkgerrors.NewValidationError(fmt.Sprintf("stages[%d].codec", i), s.Codec, "only mp3 output is supported")
		}
	}

	if stages[0].Param(ParamSampleRate) <= 0 || stages[0].Param(ParamChannels) < 1 {
		return pkgerrors.NewValidationError("stages[0]", stages[0].Params, "sample rate and channel count must be positive")
	}
	return nil
}

// WorkingFormat is the sample rate and channel count every intermediate
// artifact is pinned to, as established by the first stage.
type WorkingFormat struct {
	SampleRate int
	Channels   int
}

// WorkingFormatOf reads the working format from a validated chain.
func WorkingFormatOf(stages []StageSpec) WorkingFormat {
	first := stages[0]
	return WorkingFormat{
		SampleRate: int(first.Param(ParamSampleRate)),
		Channels:   int(first.Param(ParamChannels)),
	}
}
