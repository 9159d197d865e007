package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/bdougie/slidegrab/internal/models"
)

// Embedder turns cleaned OCR text into a vector for similarity search.
// A nil Embedder stores NULL embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// PostgresStore writes finished runs into Postgres with a pgvector column
// over the slides' OCR text, so extracted decks become searchable.
type PostgresStore struct {
	pool     *pgxpool.Pool
	embedder Embedder
}

// NewPostgresStore connects and makes sure the schema exists.
func NewPostgresStore(ctx context.Context, connString string, embedder Embedder) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	store := &PostgresStore{pool: pool, embedder: embedder}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	// The vector extension may already exist or the role may lack the
	// privilege; slide rows fall back to NULL embeddings either way.
	_, _ = s.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS slide_runs (
			id SERIAL PRIMARY KEY,
			source_id TEXT NOT NULL UNIQUE,
			source_url TEXT NOT NULL,
			source_kind TEXT NOT NULL,
			scene_threshold DOUBLE PRECISION NOT NULL,
			chosen_threshold DOUBLE PRECISION NOT NULL,
			tune_strategy TEXT NOT NULL,
			slide_count INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS slides (
			id SERIAL PRIMARY KEY,
			run_id INTEGER NOT NULL REFERENCES slide_runs(id) ON DELETE CASCADE,
			slide_index INTEGER NOT NULL,
			timestamp_seconds DOUBLE PRECISION NOT NULL,
			image_path TEXT NOT NULL,
			ocr_text TEXT,
			ocr_confidence DOUBLE PRECISION,
			embedding vector(768)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveResult upserts the run row and replaces its slides. Re-running the
// same source overwrites the previous rows, matching the idempotent on-disk
// semantics.
func (s *PostgresStore) SaveResult(ctx context.Context, result *models.SlideExtractionResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	runID, err := s.upsertRun(ctx, tx, result)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM slides WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("clear previous slides: %w", err)
	}

	for _, slide := range result.Slides {
		embedding, ocrText, ocrConfidence := s.slideColumns(ctx, slide)
		_, err := tx.Exec(ctx,
			`INSERT INTO slides (run_id, slide_index, timestamp_seconds, image_path, ocr_text, ocr_confidence, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			runID, slide.Index, slide.Timestamp, slide.ImagePath, ocrText, ocrConfidence, embedding)
		if err != nil {
			return fmt.Errorf("insert slide %d: %w", slide.Index, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) upsertRun(ctx context.Context, tx pgx.Tx, result *models.SlideExtractionResult) (int, error) {
	var id int
	err := tx.QueryRow(ctx,
		`INSERT INTO slide_runs (source_id, source_url, source_kind, scene_threshold, chosen_threshold, tune_strategy, slide_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (source_id) DO UPDATE SET
			source_url = EXCLUDED.source_url,
			scene_threshold = EXCLUDED.scene_threshold,
			chosen_threshold = EXCLUDED.chosen_threshold,
			tune_strategy = EXCLUDED.tune_strategy,
			slide_count = EXCLUDED.slide_count,
			created_at = now()
		 RETURNING id`,
		result.SourceID, result.SourceURL, string(result.SourceKind),
		result.SceneThreshold, result.AutoTune.ChosenThreshold,
		string(result.AutoTune.Strategy), result.SlideCount).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("upsert run returned no id")
		}
		return 0, fmt.Errorf("upsert run: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) slideColumns(ctx context.Context, slide models.SlideImage) (any, any, any) {
	var ocrText, ocrConfidence any
	if slide.OcrText != nil {
		ocrText = *slide.OcrText
	}
	if slide.OcrConfidence != nil {
		ocrConfidence = *slide.OcrConfidence
	}
	var embedding any
	if s.embedder != nil && slide.OcrText != nil && *slide.OcrText != "" {
		if vec, err := s.embedder.Embed(ctx, *slide.OcrText); err == nil && len(vec) > 0 {
			embedding = pgvector.NewVector(vec)
		}
	}
	return embedding, ocrText, ocrConfidence
}
