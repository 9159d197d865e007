package roi

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/bdougie/slidegrab/internal/media"
	"github.com/bdougie/slidegrab/internal/models"
	"github.com/bdougie/slidegrab/internal/vision"
)

const roiUserPrompt = `Find the rectangular region that contains the main slide content while excluding any live speaker video inset or webcam box. Reply with JSON: {"x":0-1,"y":0-1,"width":0-1,"height":0-1,"confidence":0-1}. If unsure, reply null.`

// Refiner samples a few frames and asks the vision attempt chain for a crop
// rectangle covering the slide content.
type Refiner struct {
	Chain     *vision.Chain
	Extractor *media.Extractor
	Logger    *slog.Logger
}

// Propose returns a merged ROI, or nil when no model produced a usable one.
// It never fails: every failure mode degrades to nil with a warning. The
// sampled frames live in a private temp directory removed on every exit
// path.
func (r *Refiner) Propose(ctx context.Context, inputPath string, info models.VideoInfo, warn func(string)) *models.Roi {
	if r.Chain == nil {
		return nil
	}
	attempts := r.Chain.Available()
	if len(attempts) == 0 {
		warn("No LLM ROI model succeeded; continuing without ROI.")
		return nil
	}

	sampleDir, err := os.MkdirTemp("", "slidegrab-roi-"+uuid.NewString()+"-")
	if err != nil {
		warn(fmt.Sprintf("LLM ROI detection failed: %v", err))
		return nil
	}
	defer os.RemoveAll(sampleDir)

	var framePaths []string
	for i, timestamp := range SampleTimestamps(info.DurationSeconds) {
		outputPath := filepath.Join(sampleDir, fmt.Sprintf("roi_%d.png", i+1))
		if err := r.Extractor.ExtractSample(ctx, inputPath, timestamp, outputPath); err != nil {
			warn(fmt.Sprintf("LLM ROI detection failed: %v", err))
			return nil
		}
		framePaths = append(framePaths, outputPath)
	}

	for _, attempt := range attempts {
		var proposals []models.Roi
		for _, framePath := range framePaths {
			answer, err := r.Chain.Generate(ctx, attempt, vision.Prompt{
				User:      roiUserPrompt,
				ImagePath: framePath,
			})
			if err != nil {
				if r.Logger != nil {
					r.Logger.Debug("roi model call failed", "attempt", attempt.Name, "error", err)
				}
				continue
			}
			if proposal, ok := Parse(answer); ok {
				proposals = append(proposals, proposal)
			}
		}
		if merged, ok := Merge(proposals); ok {
			warn(fmt.Sprintf("LLM ROI model %s selected for slide tuning", attempt.Name))
			return &merged
		}
	}

	warn("No LLM ROI model succeeded; continuing without ROI.")
	return nil
}
