package ffmpeg

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Skryldev/voiceprep/domain/model"
)

// ffprobeOutput maps key fields from ffprobe JSON
type ffprobeOutput struct {
	Format struct {
		Duration   string `json:"duration"`
		Size       string `json:"size"`
		FormatName string `json:"format_name"`
	} `json:"format"`
	Streams []struct {
		CodecName  string `json:"codec_name"`
		CodecType  string `json:"codec_type"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		Duration   string `json:"duration"`
	} `json:"streams"`
}

// ParseProbe converts ffprobe JSON into an asset snapshot for path. The
// first audio stream supplies codec, rate and channels; a file without one
// is an error because nothing downstream could decode it.
func ParseProbe(path string, data []byte) (model.AudioAsset, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return model.AudioAsset{Path: path}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	asset := model.AudioAsset{
		Path:   path,
		Format: probe.Format.FormatName,
		Size:   parseInt64(probe.Format.Size),
	}

	found := false
	for _, s := range probe.Streams {
		if s.CodecType != "" && s.CodecType != "audio" {
			continue
		}
		asset.Codec = s.CodecName
		asset.Channels = s.Channels
		asset.SampleRate = int(parseInt64(s.SampleRate))
		if asset.Duration == 0 {
			asset.Duration = seconds(s.Duration)
		}
		found = true
		break // take first audio stream
	}
	if !found {
		return asset, fmt.Errorf("no audio stream in %s", path)
	}

	if d := seconds(probe.Format.Duration); d > 0 {
		asset.Duration = d
	}
	asset.Probed = true
	return asset, nil
}

func seconds(s string) time.Duration {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}
