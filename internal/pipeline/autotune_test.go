package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bdougie/slidegrab/internal/media"
	"github.com/bdougie/slidegrab/internal/models"
)

// fakeDetector returns canned timestamps per threshold and counts calls.
type fakeDetector struct {
	byThreshold map[float64][]float64
	err         error
	calls       []float64
}

func (f *fakeDetector) Detect(ctx context.Context, inputPath string, threshold float64, crop *models.CropRect, segments []media.Segment) ([]float64, error) {
	f.calls = append(f.calls, threshold)
	if f.err != nil {
		return nil, f.err
	}
	return f.byThreshold[threshold], nil
}

func detectFor(f *fakeDetector) detectFunc {
	return func(ctx context.Context, threshold float64) ([]float64, error) {
		return f.Detect(ctx, "in.mp4", threshold, nil, nil)
	}
}

func TestDetectAdaptiveEnoughAtBase(t *testing.T) {
	f := &fakeDetector{byThreshold: map[float64][]float64{
		0.3: {10, 25, 40, 55, 70},
	}}
	eval, err := detectAdaptive(context.Background(), detectFor(f), 0.3, 5, func(string) {})
	require.NoError(t, err)
	require.Equal(t, 0.3, eval.Threshold)
	require.Len(t, eval.Timestamps, 5)
	require.Equal(t, 1.0, eval.Confidence)
	require.Equal(t, []float64{0.3}, f.calls)
}

func TestDetectAdaptiveRetriesAtHalf(t *testing.T) {
	f := &fakeDetector{byThreshold: map[float64][]float64{
		0.3:  {12, 80},
		0.15: {12, 34, 56, 78, 100, 122},
	}}
	eval, err := detectAdaptive(context.Background(), detectFor(f), 0.3, 5, func(string) {})
	require.NoError(t, err)
	require.Equal(t, 0.15, eval.Threshold)
	require.Len(t, eval.Timestamps, 6)
	require.Equal(t, 1.0, eval.Confidence)
	require.Equal(t, []float64{0.3, 0.15}, f.calls)
}

func TestDetectAdaptiveTieKeepsBase(t *testing.T) {
	f := &fakeDetector{byThreshold: map[float64][]float64{
		0.3:  {12, 80},
		0.15: {12, 80},
	}}
	eval, err := detectAdaptive(context.Background(), detectFor(f), 0.3, 5, func(string) {})
	require.NoError(t, err)
	require.Equal(t, 0.3, eval.Threshold)
	require.InDelta(t, 0.4, eval.Confidence, 1e-9)
}

func TestDetectAdaptiveRespectsFloor(t *testing.T) {
	f := &fakeDetector{byThreshold: map[float64][]float64{
		0.05: {5},
	}}
	eval, err := detectAdaptive(context.Background(), detectFor(f), 0.05, 5, func(string) {})
	require.NoError(t, err)
	// No retry below the floor.
	require.Equal(t, []float64{0.05}, f.calls)
	require.Equal(t, 0.05, eval.Threshold)
}

func TestDetectAdaptiveWarnsOnZeroScenes(t *testing.T) {
	f := &fakeDetector{byThreshold: map[float64][]float64{}}
	var warnings []string
	eval, err := detectAdaptive(context.Background(), detectFor(f), 0.3, 5, func(msg string) {
		warnings = append(warnings, msg)
	})
	require.NoError(t, err)
	require.Empty(t, eval.Timestamps)
	require.Zero(t, eval.Confidence)
	require.Contains(t, warnings, "Scene detection did not find any candidate slide changes.")
}

func TestDetectAdaptivePropagatesError(t *testing.T) {
	boom := errors.New("ffmpeg exploded")
	f := &fakeDetector{err: boom}
	_, err := detectAdaptive(context.Background(), detectFor(f), 0.3, 5, func(string) {})
	require.ErrorIs(t, err, boom)
}

func TestTuneAndDetectHalvesThresholdOnSparseVideo(t *testing.T) {
	// A 200-second clip where 0.3 finds 2 scenes but 0.15 finds 6: the
	// controller must pick 0.15 and record the tuning.
	f := &fakeDetector{byThreshold: map[float64][]float64{
		0.3:  {30, 120},
		0.15: {30, 60, 90, 120, 150, 180},
	}}
	p := &Pipeline{
		opts: Options{
			SceneThreshold:    0.3,
			AutoTuneThreshold: true,
			MaxSlides:         20,
			Workers:           4,
		},
		detector: f,
		logger:   slog.New(slog.DiscardHandler),
	}
	var warnings []string
	eval, autoTune, err := p.tuneAndDetect(context.Background(), "in.mp4",
		models.VideoInfo{DurationSeconds: 200}, func(msg string) { warnings = append(warnings, msg) })
	require.NoError(t, err)
	require.Equal(t, 0.15, eval.Threshold)
	require.Len(t, eval.Timestamps, 6)
	require.True(t, autoTune.Enabled)
	require.Equal(t, models.TuneAdaptive, autoTune.Strategy)
	require.Equal(t, 0.15, autoTune.ChosenThreshold)

	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0], "0.3")
	require.Contains(t, warnings[0], "0.15")
	require.Contains(t, warnings[0], fmt.Sprintf("%d scenes", 6))
}

func TestTuneAndDetectAutoTuneDisabled(t *testing.T) {
	f := &fakeDetector{byThreshold: map[float64][]float64{
		0.3:  {30},
		0.15: {30, 60, 90},
	}}
	p := &Pipeline{
		opts: Options{
			SceneThreshold:    0.3,
			AutoTuneThreshold: false,
			MaxSlides:         20,
			Workers:           4,
		},
		detector: f,
		logger:   slog.New(slog.DiscardHandler),
	}
	var warnings []string
	eval, autoTune, err := p.tuneAndDetect(context.Background(), "in.mp4",
		models.VideoInfo{DurationSeconds: 100}, func(msg string) { warnings = append(warnings, msg) })
	require.NoError(t, err)
	// The adaptive retry still runs, but the tuning record stays off and no
	// warning is emitted.
	require.Equal(t, 0.15, eval.Threshold)
	require.False(t, autoTune.Enabled)
	require.Equal(t, models.TuneNone, autoTune.Strategy)
	require.Empty(t, warnings)
}

func TestRound2(t *testing.T) {
	require.Equal(t, 0.15, round2(0.3*0.5))
	require.Equal(t, 0.13, round2(0.125))
	require.Equal(t, 0.05, round2(0.05))
}
