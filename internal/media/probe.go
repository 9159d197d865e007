package media

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/bdougie/slidegrab/internal/execx"
	"github.com/bdougie/slidegrab/internal/models"
)

// probeTimeoutCap keeps ffprobe well under the pipeline budget; reading
// container metadata should never take longer than this.
const probeTimeoutCap = 30 * time.Second

// Prober reads duration and dimensions from a media file via ffprobe.
// The tool is optional: any failure degrades to an all-unknown VideoInfo
// instead of aborting the pipeline.
type Prober struct {
	FFprobe execx.Lookup
	Timeout time.Duration
	Logger  *slog.Logger
}

// Probe returns whatever metadata could be read. It never fails.
func (p *Prober) Probe(ctx context.Context, inputPath string) models.VideoInfo {
	if !p.FFprobe.OK {
		return models.VideoInfo{}
	}
	timeout := p.Timeout
	if timeout <= 0 || timeout > probeTimeoutCap {
		timeout = probeTimeoutCap
	}
	args := []string{"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", inputPath}
	out, err := execx.RunCapture(ctx, p.FFprobe.Tool, args, timeout)
	if err != nil {
		if p.Logger != nil {
			p.Logger.Debug("ffprobe failed, continuing without video info", "error", err)
		}
		return models.VideoInfo{}
	}
	return ParseProbeOutput(out)
}

type probePayload struct {
	Streams []struct {
		CodecType string          `json:"codec_type"`
		Duration  json.RawMessage `json:"duration"`
		Width     int             `json:"width"`
		Height    int             `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration json.RawMessage `json:"duration"`
	} `json:"format"`
}

// ParseProbeOutput extracts duration/width/height from ffprobe JSON, taking
// the first video stream and falling back to the container duration.
func ParseProbeOutput(raw string) models.VideoInfo {
	var payload probePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return models.VideoInfo{}
	}
	info := models.VideoInfo{}
	for _, stream := range payload.Streams {
		if stream.CodecType != "video" {
			continue
		}
		if info.Width == 0 && stream.Width > 0 {
			info.Width = stream.Width
		}
		if info.Height == 0 && stream.Height > 0 {
			info.Height = stream.Height
		}
		if d, ok := parseProbeNumber(stream.Duration); ok && d > 0 {
			info.DurationSeconds = d
		}
	}
	if info.DurationSeconds == 0 {
		if d, ok := parseProbeNumber(payload.Format.Duration); ok && d > 0 {
			info.DurationSeconds = d
		}
	}
	return info
}

// ffprobe emits durations as quoted strings ("123.45") but some builds use
// bare numbers; accept both.
func parseProbeNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return v, true
	}
	return 0, false
}
