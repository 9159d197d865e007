// Package roi handles region-of-interest math for slide content: parsing
// model-proposed rectangles, merging proposals and converting them to pixel
// crops.
package roi

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/bdougie/slidegrab/internal/models"
)

// minRoiSide rejects proposals too small to be a meaningful slide region.
const minRoiSide = 0.2

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// Parse reads a model answer into a normalized Roi. The answer may wrap the
// JSON in conversational text; field names x/y/width/height, left/top/w/h
// and left/top/right/bottom are all accepted, values may be 0-1 fractions
// or 0-100 percentages. Returns ok=false for "null", missing fields,
// non-positive sides or sides below 0.2.
func Parse(text string) (models.Roi, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed == "null" {
		return models.Roi{}, false
	}
	match := jsonObjectPattern.FindString(trimmed)
	if match == "" {
		return models.Roi{}, false
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(match), &fields); err != nil {
		return models.Roi{}, false
	}

	x, okX := normalizeValue(pick(fields, "x", "left"))
	y, okY := normalizeValue(pick(fields, "y", "top"))
	width, okW := normalizeValue(pick(fields, "width", "w"))
	height, okH := normalizeValue(pick(fields, "height", "h"))
	if !okW {
		if right, ok := normalizeValue(fields["right"]); ok && okX {
			width, okW = right-x, true
		}
	}
	if !okH {
		if bottom, ok := normalizeValue(fields["bottom"]); ok && okY {
			height, okH = bottom-y, true
		}
	}
	if !okX || !okY || !okW || !okH || width <= 0 || height <= 0 {
		return models.Roi{}, false
	}

	out := models.Roi{
		X:      clamp(x, 0, 1),
		Y:      clamp(y, 0, 1),
		Width:  clamp(width, 0, 1),
		Height: clamp(height, 0, 1),
	}
	if out.Width < minRoiSide || out.Height < minRoiSide {
		return models.Roi{}, false
	}
	return out, true
}

func pick(fields map[string]any, names ...string) any {
	for _, name := range names {
		if v, ok := fields[name]; ok && v != nil {
			return v
		}
	}
	return nil
}

// normalizeValue coerces JSON numbers or numeric strings and maps
// percentage-style values (>1, <=100) down to fractions.
func normalizeValue(value any) (float64, bool) {
	var v float64
	switch t := value.(type) {
	case float64:
		v = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		v = parsed
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if v > 1 && v <= 100 {
		v /= 100
	}
	return v, true
}

// Merge combines per-frame proposals by taking the element-wise median of
// each coordinate independently. Median over mean keeps one bad frame read
// from dragging the rectangle. Singleton input merges to itself.
func Merge(rois []models.Roi) (models.Roi, bool) {
	if len(rois) == 0 {
		return models.Roi{}, false
	}
	coord := func(get func(models.Roi) float64) float64 {
		values := make([]float64, 0, len(rois))
		for _, r := range rois {
			values = append(values, get(r))
		}
		sort.Float64s(values)
		return values[len(values)/2]
	}
	return models.Roi{
		X:      coord(func(r models.Roi) float64 { return r.X }),
		Y:      coord(func(r models.Roi) float64 { return r.Y }),
		Width:  coord(func(r models.Roi) float64 { return r.Width }),
		Height: coord(func(r models.Roi) float64 { return r.Height }),
	}, true
}

// CropFromRoi scales a normalized Roi to pixel space, clamped inside the
// frame with a minimum 16px side. Returns ok=false when the frame is too
// small or dimensions are unknown.
func CropFromRoi(r models.Roi, frameWidth, frameHeight int) (models.CropRect, bool) {
	if frameWidth <= 0 || frameHeight <= 0 {
		return models.CropRect{}, false
	}
	x := int(math.Round(r.X * float64(frameWidth)))
	y := int(math.Round(r.Y * float64(frameHeight)))
	width := int(math.Round(r.Width * float64(frameWidth)))
	height := int(math.Round(r.Height * float64(frameHeight)))
	if width < 16 || height < 16 {
		return models.CropRect{}, false
	}
	safeX := clampInt(x, 0, frameWidth-1)
	safeY := clampInt(y, 0, frameHeight-1)
	return models.CropRect{
		X:      safeX,
		Y:      safeY,
		Width:  clampInt(width, 16, frameWidth-safeX),
		Height: clampInt(height, 16, frameHeight-safeY),
	}, true
}

// SampleTimestamps picks representative moments for ROI analysis: 12%, 50%
// and 85% of the clip, clamped strictly inside it. Unknown duration falls
// back to a single frame at t=0.
func SampleTimestamps(durationSeconds float64) []float64 {
	if durationSeconds <= 0 {
		return []float64{0}
	}
	ratios := []float64{0.12, 0.5, 0.85}
	out := make([]float64, 0, len(ratios))
	for _, ratio := range ratios {
		out = append(out, clamp(durationSeconds*ratio, 0, durationSeconds-0.1))
	}
	return out
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
