// Package config loads pipeline settings from an optional YAML file with
// SLIDEGRAB_* environment overrides on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds everything one pipeline process needs.
type Config struct {
	OutputDir         string  `yaml:"outputDir"`
	SceneThreshold    float64 `yaml:"sceneThreshold"`
	AutoTuneThreshold bool    `yaml:"autoTuneThreshold"`
	MaxSlides         int     `yaml:"maxSlides"`
	MinSlideDuration  float64 `yaml:"minSlideDuration"`
	Workers           int     `yaml:"workers"`
	OCR               bool    `yaml:"ocr"`
	TimeoutSeconds    int     `yaml:"timeoutSeconds"`

	FFmpegPath    string `yaml:"ffmpegPath"`
	FFprobePath   string `yaml:"ffprobePath"`
	TesseractPath string `yaml:"tesseractPath"`
	YtDlpPath     string `yaml:"ytDlpPath"`
	YtDlpFormat   string `yaml:"ytDlpFormat"`

	VisionAttempts string `yaml:"visionAttempts"`
	OllamaHost     string `yaml:"ollamaHost"`
	OllamaPort     int    `yaml:"ollamaPort"`

	PostgresURL string `yaml:"postgresURL"`
	EmbedModel  string `yaml:"embedModel"`
}

// Defaults mirror the pipeline's documented behavior; everything is
// overridable per file or env.
func Defaults() Config {
	return Config{
		OutputDir:         "./slides",
		SceneThreshold:    0.3,
		AutoTuneThreshold: true,
		MaxSlides:         20,
		MinSlideDuration:  2,
		Workers:           8,
		OCR:               false,
		TimeoutSeconds:    300,
		YtDlpFormat:       "best[height<=360]/best",
		OllamaHost:        "http://localhost",
		OllamaPort:        11434,
	}
}

// Load reads the YAML file at path (a missing file is fine) and applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// run on defaults
		default:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.OutputDir = getenv("SLIDEGRAB_OUTPUT_DIR", c.OutputDir)
	c.SceneThreshold = getenvFloat("SLIDEGRAB_SCENE_THRESHOLD", c.SceneThreshold)
	c.AutoTuneThreshold = getenvBool("SLIDEGRAB_AUTO_TUNE", c.AutoTuneThreshold)
	c.MaxSlides = getenvInt("SLIDEGRAB_MAX_SLIDES", c.MaxSlides)
	c.MinSlideDuration = getenvFloat("SLIDEGRAB_MIN_SLIDE_DURATION", c.MinSlideDuration)
	c.Workers = getenvInt("SLIDEGRAB_WORKERS", c.Workers)
	c.OCR = getenvBool("SLIDEGRAB_OCR", c.OCR)
	c.TimeoutSeconds = getenvInt("SLIDEGRAB_TIMEOUT_SECONDS", c.TimeoutSeconds)
	c.FFmpegPath = getenv("SLIDEGRAB_FFMPEG_PATH", c.FFmpegPath)
	c.FFprobePath = getenv("SLIDEGRAB_FFPROBE_PATH", c.FFprobePath)
	c.TesseractPath = getenv("SLIDEGRAB_TESSERACT_PATH", c.TesseractPath)
	c.YtDlpPath = getenv("SLIDEGRAB_YTDLP_PATH", c.YtDlpPath)
	c.YtDlpFormat = getenv("SLIDEGRAB_YTDLP_FORMAT", c.YtDlpFormat)
	c.VisionAttempts = getenv("SLIDEGRAB_VISION_ATTEMPTS", c.VisionAttempts)
	c.OllamaHost = getenv("SLIDEGRAB_OLLAMA_HOST", c.OllamaHost)
	c.OllamaPort = getenvInt("SLIDEGRAB_OLLAMA_PORT", c.OllamaPort)
	c.PostgresURL = getenv("SLIDEGRAB_POSTGRES_URL", c.PostgresURL)
	c.EmbedModel = getenv("SLIDEGRAB_EMBED_MODEL", c.EmbedModel)
}

func getenv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
