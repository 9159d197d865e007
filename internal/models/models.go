package models

// SourceKind distinguishes videos that need a downloader from ones ffmpeg
// can read directly.
type SourceKind string

const (
	SourceYouTube SourceKind = "youtube"
	SourceDirect  SourceKind = "direct"
)

// Source identifies one input video. SourceID is stable for a given URL and
// doubles as the on-disk directory name for the run.
type Source struct {
	URL      string     `json:"url"`
	Kind     SourceKind `json:"kind"`
	SourceID string     `json:"sourceId"`
}

// VideoInfo holds probed stream metadata. Zero values mean "unknown";
// an unknown duration disables segmented detection and ROI sampling math,
// unknown dimensions disable the ROI-to-crop conversion.
type VideoInfo struct {
	DurationSeconds float64
	Width           int
	Height          int
}

func (v VideoInfo) HasDuration() bool   { return v.DurationSeconds > 0 }
func (v VideoInfo) HasDimensions() bool { return v.Width > 0 && v.Height > 0 }

// Roi is a normalized region of interest, all fields in [0,1] fractions of
// the frame size.
type Roi struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CropRect is a pixel-space crop, always clamped inside the frame with a
// minimum 16px side.
type CropRect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// SceneEvaluation is the outcome of one full scene-detection run.
type SceneEvaluation struct {
	Threshold  float64
	Timestamps []float64
	Confidence float64
}

// TuneStrategy records which tuning path produced the final threshold.
type TuneStrategy string

const (
	TuneAdaptive TuneStrategy = "adaptive"
	TuneLlmRoi   TuneStrategy = "llm-roi"
	TuneNone     TuneStrategy = "none"
)

// AutoTune is the diagnostic record of threshold/ROI tuning, persisted in
// the slides.json artifact.
type AutoTune struct {
	Enabled         bool         `json:"enabled"`
	ChosenThreshold float64      `json:"chosenThreshold"`
	Confidence      float64      `json:"confidence"`
	Strategy        TuneStrategy `json:"strategy"`
	Roi             *Roi         `json:"roi"`
}

// SlideImage is one extracted slide. Index is 1-based and contiguous after
// every filter pass; timestamps are non-decreasing across the final set.
// The OCR fields stay nil unless the OCR stage ran.
type SlideImage struct {
	Index         int      `json:"index"`
	Timestamp     float64  `json:"timestamp"`
	ImagePath     string   `json:"imagePath"`
	OcrText       *string  `json:"ocrText,omitempty"`
	OcrConfidence *float64 `json:"ocrConfidence,omitempty"`
}

// SlideExtractionResult is the pipeline's final output and the payload of
// the slides.json artifact.
type SlideExtractionResult struct {
	SourceURL         string       `json:"sourceUrl"`
	SourceKind        SourceKind   `json:"sourceKind"`
	SourceID          string       `json:"sourceId"`
	SlidesDir         string       `json:"slidesDir"`
	SceneThreshold    float64      `json:"sceneThreshold"`
	AutoTuneThreshold bool         `json:"autoTuneThreshold"`
	AutoTune          AutoTune     `json:"autoTune"`
	MaxSlides         int          `json:"maxSlides"`
	MinSlideDuration  float64      `json:"minSlideDuration"`
	OcrRequested      bool         `json:"ocrRequested"`
	OcrAvailable      bool         `json:"ocrAvailable"`
	SlideCount        int          `json:"slideCount"`
	Warnings          []string     `json:"warnings"`
	Slides            []SlideImage `json:"slides"`
}
