package media

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bdougie/slidegrab/internal/execx"
	"github.com/bdougie/slidegrab/internal/models"
	"github.com/bdougie/slidegrab/internal/pool"
)

// roiSampleScale shrinks ROI sample frames before they are shown to a
// vision model; full-resolution frames waste upload time without improving
// the proposed rectangle.
const roiSampleScale = "scale=960:-2"

// Extractor writes single frames from a video to disk via ffmpeg.
type Extractor struct {
	FFmpeg  execx.Tool
	Timeout time.Duration
	Workers int
	Logger  *slog.Logger
}

// ExtractAt extracts one frame per timestamp into outputDir, in parallel.
// Output order follows the timestamp index, not completion order; the pool
// writes each slide into its original slot. A single failed extraction
// fails the whole stage, partial slide sets are not accepted.
func (e *Extractor) ExtractAt(ctx context.Context, inputPath, outputDir string, timestamps []float64) ([]models.SlideImage, error) {
	tasks := make([]pool.Task[models.SlideImage], len(timestamps))
	for i, timestamp := range timestamps {
		tasks[i] = func(ctx context.Context) (models.SlideImage, error) {
			outputPath := filepath.Join(outputDir, fmt.Sprintf("slide_%04d.png", i+1))
			args := []string{
				"-hide_banner",
				"-ss", strconv.FormatFloat(timestamp, 'f', -1, 64),
				"-i", inputPath,
				"-vframes", "1",
				"-q:v", "2",
				"-an", "-sn",
				outputPath,
			}
			if err := execx.Run(ctx, e.FFmpeg, args, e.Timeout, nil); err != nil {
				return models.SlideImage{}, err
			}
			return models.SlideImage{Index: i + 1, Timestamp: timestamp, ImagePath: outputPath}, nil
		}
	}
	started := time.Now()
	slides, err := pool.Run(ctx, e.Workers, tasks)
	if err != nil {
		return nil, err
	}
	if e.Logger != nil && len(slides) > 0 {
		elapsed := time.Since(started)
		e.Logger.Debug("frame extraction done",
			"frames", len(slides),
			"elapsed", elapsed,
			"avgPerFrame", elapsed/time.Duration(len(slides)))
	}
	return slides, nil
}

// ExtractSample extracts one downscaled frame for ROI analysis.
func (e *Extractor) ExtractSample(ctx context.Context, inputPath string, timestamp float64, outputPath string) error {
	args := []string{
		"-hide_banner",
		"-ss", strconv.FormatFloat(timestamp, 'f', -1, 64),
		"-i", inputPath,
		"-vframes", "1",
		"-vf", roiSampleScale,
		"-q:v", "2",
		"-an", "-sn",
		outputPath,
	}
	return execx.Run(ctx, e.FFmpeg, args, e.Timeout, nil)
}
