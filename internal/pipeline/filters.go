package pipeline

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/bdougie/slidegrab/internal/models"
)

// mergeTimestamps combines candidate timestamp sources, sorted ascending,
// collapsing any pair closer than max(0.1, minDurationSeconds/2) to the
// earlier one. This coarse early pass avoids spending frame extractions on
// near-duplicate candidates; the finer min-duration filter runs later.
func mergeTimestamps(sceneTimestamps, extraTimestamps []float64, minDurationSeconds float64) []float64 {
	merged := make([]float64, 0, len(sceneTimestamps)+len(extraTimestamps))
	for _, ts := range sceneTimestamps {
		if !math.IsNaN(ts) && !math.IsInf(ts, 0) {
			merged = append(merged, ts)
		}
	}
	for _, ts := range extraTimestamps {
		if !math.IsNaN(ts) && !math.IsInf(ts, 0) {
			merged = append(merged, ts)
		}
	}
	sort.Float64s(merged)
	if len(merged) == 0 {
		return nil
	}
	minGap := math.Max(0.1, minDurationSeconds*0.5)
	result := merged[:0]
	for _, ts := range merged {
		if len(result) == 0 || ts-result[len(result)-1] >= minGap {
			result = append(result, ts)
		}
	}
	return result
}

// applyMaxSlides truncates raw timestamps to the cap before the expensive
// extraction step; slides beyond the cap must never exist on disk.
func applyMaxSlides(timestamps []float64, maxSlides int, warn func(string)) []float64 {
	if maxSlides <= 0 || len(timestamps) <= maxSlides {
		return timestamps
	}
	warn(fmt.Sprintf("Trimmed slides to max %d", maxSlides))
	return timestamps[:maxSlides]
}

// applyMinDuration keeps a slide only when its timestamp is at least
// minDurationSeconds after the last kept slide's (greedy forward scan).
// Dropped slides have their image files deleted; survivors are reindexed
// 1..N.
func applyMinDuration(slides []models.SlideImage, minDurationSeconds float64, warn func(string)) []models.SlideImage {
	if minDurationSeconds <= 0 {
		return slides
	}
	kept := make([]models.SlideImage, 0, len(slides))
	lastKept := math.Inf(-1)
	for _, slide := range slides {
		if slide.Timestamp-lastKept >= minDurationSeconds {
			kept = append(kept, slide)
			lastKept = slide.Timestamp
			continue
		}
		_ = os.Remove(slide.ImagePath)
	}
	if len(kept) < len(slides) {
		warn(fmt.Sprintf("Filtered %d slides by min duration", len(slides)-len(kept)))
	}
	for i := range kept {
		kept[i].Index = i + 1
	}
	return kept
}

// renameWithTimestamps gives each kept slide its final file name carrying
// the timestamp, so the images are self-describing without the artifact.
func renameWithTimestamps(slides []models.SlideImage, slidesDir string) ([]models.SlideImage, error) {
	renamed := make([]models.SlideImage, 0, len(slides))
	for _, slide := range slides {
		name := fmt.Sprintf("slide_%04d_%.2fs.png", slide.Index, slide.Timestamp)
		nextPath := filepath.Join(slidesDir, name)
		if slide.ImagePath != nextPath {
			if err := os.Rename(slide.ImagePath, nextPath); err != nil {
				// Rename can fail across devices; fall back to copy+remove.
				if err := copyFile(slide.ImagePath, nextPath); err != nil {
					return nil, fmt.Errorf("rename slide %d: %w", slide.Index, err)
				}
				_ = os.Remove(slide.ImagePath)
			}
		}
		slide.ImagePath = nextPath
		renamed = append(renamed, slide)
	}
	return renamed, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
