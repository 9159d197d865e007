package media

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bdougie/slidegrab/internal/execx"
	"github.com/bdougie/slidegrab/internal/models"
	"github.com/bdougie/slidegrab/internal/pool"
)

// detectTimeoutFloor protects long unsegmented passes; a caller-supplied
// timeout below this is raised for detection runs.
const detectTimeoutFloor = 5 * time.Minute

// segmentTargetSeconds is the smallest slice of video worth a dedicated
// detection subprocess.
const segmentTargetSeconds = 60

// Segment is one {start, duration} slice of the input handed to a single
// detection subprocess. Segmenting is purely a parallelism device and must
// not change which scenes are detected.
type Segment struct {
	Start    float64
	Duration float64
}

// BuildSegments splits a known duration into min(workers, ceil(duration/60))
// equal slices. Unknown duration or a single worker yields one unsegmented
// pass (Duration 0 means "to the end of input").
func BuildSegments(durationSeconds float64, workers int) []Segment {
	if durationSeconds <= 0 || workers <= 1 {
		return []Segment{{Start: 0, Duration: durationSeconds}}
	}
	count := int(math.Ceil(durationSeconds / segmentTargetSeconds))
	if clamped := pool.ClampWorkers(workers); count > clamped {
		count = clamped
	}
	if count < 1 {
		count = 1
	}
	segmentDuration := durationSeconds / float64(count)
	segments := make([]Segment, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * segmentDuration
		duration := segmentDuration
		if i == count-1 {
			duration = durationSeconds - start
		}
		segments = append(segments, Segment{Start: start, Duration: duration})
	}
	return segments
}

var showinfoPtsPattern = regexp.MustCompile(`pts_time:(\d+\.?\d*)`)

// ParseShowinfoTimestamp pulls the presentation timestamp out of one ffmpeg
// showinfo stderr line. Returns ok=false for any other line.
func ParseShowinfoTimestamp(line string) (float64, bool) {
	if !strings.Contains(line, "showinfo") {
		return 0, false
	}
	match := showinfoPtsPattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	ts, err := strconv.ParseFloat(match[1], 64)
	if err != nil || math.IsInf(ts, 0) || math.IsNaN(ts) {
		return 0, false
	}
	return ts, true
}

// SceneFilter builds the -vf expression for one detection run: an optional
// crop, the frame-difference select and showinfo to surface timestamps.
func SceneFilter(threshold float64, crop *models.CropRect) string {
	selectPart := fmt.Sprintf("select='gt(scene,%s)',showinfo", strconv.FormatFloat(threshold, 'g', -1, 64))
	if crop == nil {
		return selectPart
	}
	return fmt.Sprintf("crop=%d:%d:%d:%d,%s", crop.Width, crop.Height, crop.X, crop.Y, selectPart)
}

// Detector runs ffmpeg scene-change detection over one or more segments in
// parallel and merges the resulting timestamps.
type Detector struct {
	FFmpeg  execx.Tool
	Timeout time.Duration
	Workers int
	Logger  *slog.Logger
}

// Detect returns all scene-change timestamps above threshold, sorted
// ascending. Each segment's local timestamps are offset by the segment
// start before merging.
func (d *Detector) Detect(ctx context.Context, inputPath string, threshold float64, crop *models.CropRect, segments []Segment) ([]float64, error) {
	if len(segments) == 0 {
		segments = []Segment{{}}
	}
	filter := SceneFilter(threshold, crop)
	timeout := d.Timeout
	if timeout < detectTimeoutFloor {
		timeout = detectTimeoutFloor
	}

	tasks := make([]pool.Task[[]float64], len(segments))
	for i, segment := range segments {
		tasks[i] = func(ctx context.Context) ([]float64, error) {
			args := []string{"-hide_banner"}
			if segment.Duration > 0 {
				args = append(args,
					"-ss", strconv.FormatFloat(segment.Start, 'f', -1, 64),
					"-t", strconv.FormatFloat(segment.Duration, 'f', -1, 64),
				)
			}
			args = append(args,
				"-i", inputPath,
				"-vf", filter,
				"-vsync", "vfr",
				"-an", "-sn",
				"-f", "null", "-",
			)
			var timestamps []float64
			err := execx.Run(ctx, d.FFmpeg, args, timeout, func(line string) {
				if ts, ok := ParseShowinfoTimestamp(line); ok {
					timestamps = append(timestamps, ts+segment.Start)
				}
			})
			if err != nil {
				return nil, err
			}
			return timestamps, nil
		}
	}

	started := time.Now()
	perSegment, err := pool.Run(ctx, d.Workers, tasks)
	if err != nil {
		return nil, err
	}
	merged := make([]float64, 0, 16)
	for _, timestamps := range perSegment {
		merged = append(merged, timestamps...)
	}
	sort.Float64s(merged)
	if d.Logger != nil {
		d.Logger.Debug("scene detection pass done",
			"threshold", threshold,
			"segments", len(segments),
			"scenes", len(merged),
			"elapsed", time.Since(started))
	}
	return merged, nil
}
