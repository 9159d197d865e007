// Package storage persists finished pipeline runs: always the slides.json
// artifact consumers rely on, optionally a Postgres sink with searchable
// OCR text.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bdougie/slidegrab/internal/models"
)

// ArtifactName is the stable per-run artifact file name.
const ArtifactName = "slides.json"

// Store receives finished extraction results.
type Store interface {
	SaveResult(ctx context.Context, result *models.SlideExtractionResult) error
}

// WriteSlidesJSON writes the run artifact atomically into the result's
// slides directory. A crashed writer never leaves a truncated artifact
// behind for consumers to read.
func WriteSlidesJSON(result *models.SlideExtractionResult) error {
	dir := result.SlidesDir
	tmp, err := os.CreateTemp(dir, "tmp-*.json")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, ArtifactName)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}
