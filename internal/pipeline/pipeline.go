// Package pipeline orchestrates slide extraction: probing, adaptive scene
// detection, ROI refinement, frame extraction, filtering, OCR and the final
// artifact.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bdougie/slidegrab/internal/execx"
	"github.com/bdougie/slidegrab/internal/media"
	"github.com/bdougie/slidegrab/internal/models"
	"github.com/bdougie/slidegrab/internal/ocr"
	"github.com/bdougie/slidegrab/internal/pool"
	"github.com/bdougie/slidegrab/internal/roi"
	"github.com/bdougie/slidegrab/internal/storage"
)

// ErrNoSlides reports that no scene survived tuning and filtering. An empty
// slide set is not a useful result, so this is fatal.
var ErrNoSlides = errors.New("no slides extracted; try lowering the scene threshold")

// roiAcceptMargin is how much better a cropped detection run's confidence
// must be before the crop replaces the full-frame result.
const roiAcceptMargin = 0.05

// Options are the tuning knobs of one pipeline instance.
type Options struct {
	OutputDir         string
	SceneThreshold    float64
	AutoTuneThreshold bool
	MaxSlides         int
	MinSlideDuration  float64
	Workers           int
	OCR               bool
	Timeout           time.Duration
}

// sceneDetector is what the tuning logic needs from scene detection.
type sceneDetector interface {
	Detect(ctx context.Context, inputPath string, threshold float64, crop *models.CropRect, segments []media.Segment) ([]float64, error)
}

// Pipeline runs slide extraction for one configured environment. Instances
// hold no per-run state, so several runs for different sources may share
// one process.
type Pipeline struct {
	opts      Options
	prober    *media.Prober
	detector  sceneDetector
	extractor *media.Extractor
	refiner   *roi.Refiner
	ocrEngine *ocr.Engine
	logger    *slog.Logger
}

// Deps are the collaborators the pipeline drives. Refiner and OcrEngine may
// be nil; those stages are skipped or degrade.
type Deps struct {
	FFmpeg    execx.Tool
	FFprobe   execx.Lookup
	Refiner   *roi.Refiner
	OcrEngine *ocr.Engine
}

// New builds a pipeline. Worker counts are clamped to [1,16].
func New(opts Options, deps Deps, logger *slog.Logger) *Pipeline {
	opts.Workers = pool.ClampWorkers(opts.Workers)
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		opts:   opts,
		prober: &media.Prober{FFprobe: deps.FFprobe, Timeout: opts.Timeout, Logger: logger},
		detector: &media.Detector{
			FFmpeg:  deps.FFmpeg,
			Timeout: opts.Timeout,
			Workers: opts.Workers,
			Logger:  logger,
		},
		extractor: &media.Extractor{
			FFmpeg:  deps.FFmpeg,
			Timeout: opts.Timeout,
			Workers: opts.Workers,
			Logger:  logger,
		},
		refiner:   deps.Refiner,
		ocrEngine: deps.OcrEngine,
		logger:    logger,
	}
}

// Run extracts slides from the local file at inputPath for the given
// source and writes the slides.json artifact. The returned result carries
// every non-fatal issue in Warnings.
func (p *Pipeline) Run(ctx context.Context, src models.Source, inputPath string) (*models.SlideExtractionResult, error) {
	totalStarted := time.Now()
	var warnings []string
	warn := func(msg string) { warnings = append(warnings, msg) }

	slidesDir := filepath.Join(p.opts.OutputDir, src.SourceID)
	if err := prepareSlidesDir(slidesDir); err != nil {
		return nil, err
	}

	probeStarted := time.Now()
	info := p.prober.Probe(ctx, inputPath)
	p.logger.Debug("probe done",
		"duration", info.DurationSeconds, "width", info.Width, "height", info.Height,
		"elapsed", time.Since(probeStarted))

	evaluation, autoTune, err := p.tuneAndDetect(ctx, inputPath, info, warn)
	if err != nil {
		return nil, err
	}

	timestamps := mergeTimestamps(evaluation.Timestamps, nil, p.opts.MinSlideDuration)
	timestamps = applyMaxSlides(timestamps, p.opts.MaxSlides, warn)

	extracted, err := p.extractor.ExtractAt(ctx, inputPath, slidesDir, timestamps)
	if err != nil {
		return nil, err
	}
	slides := applyMinDuration(extracted, p.opts.MinSlideDuration, warn)
	slides, err = renameWithTimestamps(slides, slidesDir)
	if err != nil {
		return nil, err
	}
	if len(slides) == 0 {
		return nil, ErrNoSlides
	}

	ocrAvailable := p.ocrEngine != nil
	if p.opts.OCR && ocrAvailable {
		slides, err = p.runOcr(ctx, slides)
		if err != nil {
			return nil, err
		}
	}

	result := &models.SlideExtractionResult{
		SourceURL:         src.URL,
		SourceKind:        src.Kind,
		SourceID:          src.SourceID,
		SlidesDir:         slidesDir,
		SceneThreshold:    p.opts.SceneThreshold,
		AutoTuneThreshold: p.opts.AutoTuneThreshold,
		AutoTune:          autoTune,
		MaxSlides:         p.opts.MaxSlides,
		MinSlideDuration:  p.opts.MinSlideDuration,
		OcrRequested:      p.opts.OCR,
		OcrAvailable:      ocrAvailable,
		SlideCount:        len(slides),
		Warnings:          warnings,
		Slides:            slides,
	}
	if result.Warnings == nil {
		result.Warnings = []string{}
	}
	if err := storage.WriteSlidesJSON(result); err != nil {
		return nil, err
	}
	p.logger.Info("slide extraction done",
		"source", src.SourceID,
		"slides", len(slides),
		"strategy", autoTune.Strategy,
		"elapsed", time.Since(totalStarted))
	return result, nil
}

// tuneAndDetect runs the adaptive threshold controller and, when auto-tune
// is on and nothing was found, the ROI refinement loop.
func (p *Pipeline) tuneAndDetect(ctx context.Context, inputPath string, info models.VideoInfo, warn func(string)) (models.SceneEvaluation, models.AutoTune, error) {
	baseThreshold := p.opts.SceneThreshold
	targetMinSlides := p.opts.MaxSlides
	if targetMinSlides > 5 {
		targetMinSlides = 5
	}
	segments := media.BuildSegments(info.DurationSeconds, p.opts.Workers)

	detectWith := func(crop *models.CropRect) detectFunc {
		return func(ctx context.Context, threshold float64) ([]float64, error) {
			return p.detector.Detect(ctx, inputPath, threshold, crop, segments)
		}
	}

	evaluation, err := detectAdaptive(ctx, detectWith(nil), baseThreshold, targetMinSlides, warn)
	if err != nil {
		return models.SceneEvaluation{}, models.AutoTune{}, err
	}

	autoTune := models.AutoTune{
		Enabled:         false,
		ChosenThreshold: evaluation.Threshold,
		Confidence:      evaluation.Confidence,
		Strategy:        models.TuneNone,
	}
	if p.opts.AutoTuneThreshold && evaluation.Threshold != baseThreshold {
		autoTune.Enabled = true
		autoTune.Strategy = models.TuneAdaptive
	}

	if p.opts.AutoTuneThreshold && len(evaluation.Timestamps) == 0 && p.refiner != nil {
		roiStarted := time.Now()
		proposed := p.refiner.Propose(ctx, inputPath, info, warn)
		p.logger.Debug("roi detect done", "found", proposed != nil, "elapsed", time.Since(roiStarted))
		if proposed != nil {
			if crop, ok := roi.CropFromRoi(*proposed, info.Width, info.Height); ok {
				roiEval, err := detectAdaptive(ctx, detectWith(&crop), baseThreshold, targetMinSlides, warn)
				if err != nil {
					return models.SceneEvaluation{}, models.AutoTune{}, err
				}
				if roiEval.Confidence >= evaluation.Confidence+roiAcceptMargin {
					evaluation = roiEval
					autoTune = models.AutoTune{
						Enabled:         true,
						ChosenThreshold: roiEval.Threshold,
						Confidence:      roiEval.Confidence,
						Strategy:        models.TuneLlmRoi,
						Roi:             proposed,
					}
				} else {
					// Keep the full-frame result but record the discovered
					// ROI for diagnostics.
					autoTune.Roi = proposed
				}
			}
		}
	}

	if p.opts.AutoTuneThreshold && evaluation.Threshold != baseThreshold {
		warn(fmt.Sprintf("Auto-tuned scene threshold from %v to %v (detected %d scenes)",
			baseThreshold, evaluation.Threshold, len(evaluation.Timestamps)))
	}
	return evaluation, autoTune, nil
}

func (p *Pipeline) runOcr(ctx context.Context, slides []models.SlideImage) ([]models.SlideImage, error) {
	started := time.Now()
	tasks := make([]pool.Task[models.SlideImage], len(slides))
	for i, slide := range slides {
		tasks[i] = func(ctx context.Context) (models.SlideImage, error) {
			text, err := p.ocrEngine.Recognize(ctx, slide.ImagePath)
			if err != nil {
				// OCR is best-effort: a failed slide gets empty text and
				// zero confidence, the stage keeps going.
				p.logger.Debug("ocr failed for slide", "index", slide.Index, "error", err)
				empty := ""
				zero := 0.0
				slide.OcrText = &empty
				slide.OcrConfidence = &zero
				return slide, nil
			}
			cleaned := ocr.CleanText(text)
			confidence := ocr.EstimateConfidence(cleaned)
			slide.OcrText = &cleaned
			slide.OcrConfidence = &confidence
			return slide, nil
		}
	}
	out, err := pool.Run(ctx, p.opts.Workers, tasks)
	if err != nil {
		return nil, err
	}
	if len(out) > 0 {
		elapsed := time.Since(started)
		p.logger.Debug("ocr done", "slides", len(out), "elapsed", elapsed, "avgPerSlide", elapsed/time.Duration(len(out)))
	}
	return out, nil
}

// prepareSlidesDir creates the run directory and removes artifacts of an
// earlier run for the same source, so re-runs are idempotent.
func prepareSlidesDir(slidesDir string) error {
	if err := os.MkdirAll(slidesDir, 0o755); err != nil {
		return fmt.Errorf("create slides dir: %w", err)
	}
	entries, err := os.ReadDir(slidesDir)
	if err != nil {
		return fmt.Errorf("read slides dir: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		stale := name == storage.ArtifactName ||
			(strings.HasPrefix(name, "slide_") && strings.HasSuffix(name, ".png"))
		if stale {
			if err := os.Remove(filepath.Join(slidesDir, name)); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove stale %s: %w", name, err)
			}
		}
	}
	return nil
}
