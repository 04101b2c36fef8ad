package ffmpeg

import (
	"fmt"
	"strconv"

	"github.com/Skryldev/voiceprep/domain/model"
)

// Intermediate artifacts are uncompressed 16-bit WAV.
const (
	IntermediateCodec = "pcm_s16le"
	IntermediateExt   = ".wav"
	OutputExt         = ".mp3"
)

// StageFilter returns the filter graph for a stage, empty for encode.
func StageFilter(spec model.StageSpec) (string, error) {
	fb := NewFilterChainBuilder()

	switch spec.Name {
	case model.StageDownmixResample:
		rate := int(spec.Param(model.ParamSampleRate))
		fb.AddResample(rate).AddFormat("s16", rate, channelLayout(int(spec.Param(model.ParamChannels))))
	case model.StageBandLimit:
		fb.AddHighpass(int(spec.Param(model.ParamHighpassHz))).
			AddLowpass(int(spec.Param(model.ParamLowpassHz)))
	case model.StageCompress:
		fb.AddCompressor(
			spec.Param(model.ParamThresholdDB),
			spec.Param(model.ParamRatio),
			spec.Param(model.ParamAttackMs),
			spec.Param(model.ParamReleaseMs),
		)
	case model.StageSilenceTruncate:
		fb.AddSilenceRemove(
			spec.Param(model.ParamStopThresholdDB),
			spec.Param(model.ParamStopDurationSec),
			spec.Param(model.ParamWindowSec),
		)
	case model.StageLoudnessNormalize:
		fb.AddLoudnorm(
			spec.Param(model.ParamIntegratedLUFS),
			spec.Param(model.ParamLoudnessRangeLU),
			spec.Param(model.ParamTruePeakDBTP),
		)
	case model.StageEncode:
		return "", nil
	default:
		return "", fmt.Errorf("unknown stage %q", spec.Name)
	}

	return fb.Build(), nil
}

// StageArgs builds the full ffmpeg argument list for one stage. Intermediate
// stages write WAV pinned to the working format; the encode stage writes MP3.
func StageArgs(spec model.StageSpec, inputPath, outputPath string, format model.WorkingFormat) ([]string, error) {
	filter, err := StageFilter(spec)
	if err != nil {
		return nil, err
	}

	args := []string{"-hide_banner", "-nostdin", "-y", "-loglevel", "error", "-i", inputPath, "-vn", "-sn", "-dn"}
	if filter != "" {
		args = append(args, "-af", filter)
	}

	if spec.Name == model.StageEncode {
		codecArgs, err := buildCodecArgs(spec, format)
		if err != nil {
			return nil, err
		}
		args = append(args, codecArgs...)
	} else {
		args = append(args,
			"-ar", strconv.Itoa(format.SampleRate),
			"-ac", strconv.Itoa(format.Channels),
			"-c:a", IntermediateCodec,
			"-f", "wav",
		)
	}

	return append(args, outputPath), nil
}

func buildCodecArgs(spec model.StageSpec, format model.WorkingFormat) ([]string, error) {
	rate := int(spec.Param(model.ParamSampleRate))
	if rate <= 0 {
		rate = format.SampleRate
	}
	bitrate := fmt.Sprintf("%dk", int(spec.Param(model.ParamBitrateKbps)))

	switch spec.Codec {
	case model.CodecMP3:
		return []string{
			"-c:a", RequiredEncoder,
			"-b:a", bitrate,
			"-ar", strconv.Itoa(rate),
			"-ac", strconv.Itoa(format.Channels),
			"-f", "mp3",
		}, nil
	default:
		return nil, fmt.Errorf("unsupported codec: %s", spec.Codec)
	}
}

// ArtifactExt is the file extension a stage writes.
func ArtifactExt(name model.StageName) string {
	if name == model.StageEncode {
		return OutputExt
	}
	return IntermediateExt
}

func channelLayout(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%dc", channels)
	}
}
