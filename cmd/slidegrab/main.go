package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/bdougie/slidegrab/internal/config"
	"github.com/bdougie/slidegrab/internal/download"
	"github.com/bdougie/slidegrab/internal/embeddings"
	"github.com/bdougie/slidegrab/internal/execx"
	"github.com/bdougie/slidegrab/internal/media"
	"github.com/bdougie/slidegrab/internal/models"
	"github.com/bdougie/slidegrab/internal/ocr"
	"github.com/bdougie/slidegrab/internal/pipeline"
	"github.com/bdougie/slidegrab/internal/roi"
	"github.com/bdougie/slidegrab/internal/source"
	"github.com/bdougie/slidegrab/internal/storage"
	"github.com/bdougie/slidegrab/internal/vision"
)

func main() {
	url := flag.String("url", "", "video URL (YouTube or direct media file)")
	configPath := flag.String("config", "slidegrab.yaml", "path to config file")
	ocrFlag := flag.Bool("ocr", false, "run OCR over extracted slides")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if *url == "" {
		fmt.Fprintln(os.Stderr, "Usage: slidegrab --url https://... [--ocr] [--config slidegrab.yaml]")
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
		}),
	)

	// .env is optional; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}
	if *ocrFlag {
		cfg.OCR = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *url, logger); err != nil {
		logger.Error("slide extraction failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, url string, logger *slog.Logger) error {
	src, err := source.Resolve(url)
	if err != nil {
		return err
	}

	ffmpeg, err := execx.Find("ffmpeg", cfg.FFmpegPath)
	if err != nil {
		return err
	}
	ffprobe := execx.Optional("ffprobe", cfg.FFprobePath)

	var ocrEngine *ocr.Engine
	if cfg.OCR {
		tesseract, err := execx.Find("tesseract", cfg.TesseractPath)
		if err != nil {
			return err
		}
		ocrEngine = &ocr.Engine{Tool: tesseract, Timeout: 2 * time.Minute}
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	inputPath := src.URL
	if src.Kind == models.SourceYouTube {
		ytdlp, err := execx.Find("yt-dlp", cfg.YtDlpPath)
		if err != nil {
			return err
		}
		downloader := &download.Downloader{
			Tool:    ytdlp,
			Format:  cfg.YtDlpFormat,
			Timeout: timeout,
			Logger:  logger,
		}
		localPath, cleanup, err := downloader.Download(ctx, src.URL)
		if err != nil {
			return err
		}
		defer cleanup()
		inputPath = localPath
	}

	var attempts []vision.Attempt
	if cfg.VisionAttempts != "" {
		attempts = vision.ParseAttempts(cfg.VisionAttempts)
	}
	chain := vision.NewChain(vision.ChainConfig{
		Attempts:   attempts,
		OllamaHost: cfg.OllamaHost,
		OllamaPort: cfg.OllamaPort,
		Timeout:    timeout,
	}, logger)

	opts := pipeline.Options{
		OutputDir:         cfg.OutputDir,
		SceneThreshold:    cfg.SceneThreshold,
		AutoTuneThreshold: cfg.AutoTuneThreshold,
		MaxSlides:         cfg.MaxSlides,
		MinSlideDuration:  cfg.MinSlideDuration,
		Workers:           cfg.Workers,
		OCR:               cfg.OCR,
		Timeout:           timeout,
	}
	p := pipeline.New(opts, pipeline.Deps{
		FFmpeg:  ffmpeg,
		FFprobe: ffprobe,
		Refiner: &roi.Refiner{
			Chain: chain,
			Extractor: &media.Extractor{
				FFmpeg:  ffmpeg,
				Timeout: timeout,
				Workers: cfg.Workers,
				Logger:  logger,
			},
			Logger: logger,
		},
		OcrEngine: ocrEngine,
	}, logger)

	result, err := p.Run(ctx, src, inputPath)
	if err != nil {
		return err
	}

	if cfg.PostgresURL != "" {
		store, err := storage.NewPostgresStore(ctx, cfg.PostgresURL, embeddings.NewClient(
			fmt.Sprintf("%s:%d", cfg.OllamaHost, cfg.OllamaPort), cfg.EmbedModel))
		if err != nil {
			logger.Warn("postgres store unavailable, skipping persistence", "error", err)
		} else {
			defer store.Close()
			if err := store.SaveResult(ctx, result); err != nil {
				logger.Warn("failed to persist run to postgres", "error", err)
			}
		}
	}

	for _, warning := range result.Warnings {
		logger.Warn(warning)
	}
	fmt.Printf("Extracted %d slides to %s\n", result.SlideCount, result.SlidesDir)
	return nil
}
