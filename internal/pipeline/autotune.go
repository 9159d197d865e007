package pipeline

import (
	"context"
	"math"

	"github.com/bdougie/slidegrab/internal/models"
)

// minThreshold is the floor for adaptive retries; below this the scene
// filter fires on noise.
const minThreshold = 0.05

// detectFunc runs one full scene-detection pass at a threshold.
type detectFunc func(ctx context.Context, threshold float64) ([]float64, error)

// detectAdaptive runs detection at baseThreshold and, when it finds fewer
// than targetMinSlides scenes, retries once at half the threshold (clamped
// to the floor). The run with strictly more timestamps wins; ties keep the
// base run. A single bounded retry, not a search: latency stays predictable.
func detectAdaptive(ctx context.Context, detect detectFunc, baseThreshold float64, targetMinSlides int, warn func(string)) (models.SceneEvaluation, error) {
	chosen := baseThreshold
	timestamps, err := detect(ctx, chosen)
	if err != nil {
		return models.SceneEvaluation{}, err
	}

	if len(timestamps) < targetMinSlides && chosen > minThreshold {
		retryThreshold := math.Max(minThreshold, round2(chosen*0.5))
		if retryThreshold != chosen {
			retry, err := detect(ctx, retryThreshold)
			if err != nil {
				return models.SceneEvaluation{}, err
			}
			if len(retry) > len(timestamps) {
				chosen = retryThreshold
				timestamps = retry
			}
		}
	}

	if len(timestamps) == 0 {
		warn("Scene detection did not find any candidate slide changes.")
	}

	target := targetMinSlides
	if target < 1 {
		target = 1
	}
	confidence := float64(len(timestamps)) / float64(target)
	if confidence > 1 {
		confidence = 1
	}
	return models.SceneEvaluation{
		Threshold:  chosen,
		Timestamps: timestamps,
		Confidence: confidence,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
