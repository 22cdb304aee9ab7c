package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

// RunRepository persists curation runs and their playlists.
//
// Writes are serialized so concurrent batch workers don't trip over sqlite's single writer.
type RunRepository struct {
	db *sql.DB
	mu sync.Mutex
}

// ListOpts filters [RunRepository.List].
type ListOpts struct {
	Mood  string // Exact mood key
	Limit int    // Max runs, newest first (default: 20)
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run and its tracks with a generated ID and sequence.
func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := NextSequence(ctx, tx, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	createdAt := time.Now().UTC()

	query := `
		INSERT INTO runs (id, sequence, mood, provenance, genres, seed, variant, playlist_size, size, unique_artists, dup_rate, trace_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.ExecContext(ctx, query,
		id,
		sequence,
		run.Mood,
		string(run.Provenance),
		strings.Join(run.Genres, ","),
		run.Seed,
		run.Variant,
		run.PlaylistSize,
		run.Metrics.Size,
		run.Metrics.UniqueArtists,
		run.Metrics.DupRate,
		run.TracePath,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i, t := range run.Tracks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_tracks (run_id, position, title, artist, genre, region, external_url, image_url)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, id, i+1, t.Title, t.Artist, t.Genre, t.Region, t.ExternalURL, t.ImageURL)
		if err != nil {
			return fmt.Errorf("failed to insert track %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	run.ID = id
	run.Sequence = sequence
	run.CreatedAt = createdAt
	return nil
}

// Get retrieves a run and its tracks by ID or sequence number, excluding soft-deleted runs
func (r *RunRepository) Get(ctx context.Context, ref string) (*models.Run, error) {
	query := `
		SELECT id, sequence, mood, provenance, genres, seed, variant, playlist_size, size, unique_artists, dup_rate, trace_path, created_at
		FROM runs
		WHERE (id = ? OR CAST(sequence AS TEXT) = ?) AND deleted_at IS NULL
	`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, ref, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", shared.ErrNotFound, ref)
	}
	if err != nil {
		return nil, err
	}

	tracks, err := r.tracks(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	run.Tracks = tracks
	return run, nil
}

// List retrieves recent runs, newest first, without their tracks.
func (r *RunRepository) List(ctx context.Context, opts ListOpts) ([]*models.Run, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	query := `
		SELECT id, sequence, mood, provenance, genres, seed, variant, playlist_size, size, unique_artists, dup_rate, trace_path, created_at
		FROM runs
		WHERE deleted_at IS NULL
	`
	args := []any{}

	if opts.Mood != "" {
		query += " AND mood = ?"
		args = append(args, opts.Mood)
	}

	query += " ORDER BY sequence DESC LIMIT ?"
	args = append(args, opts.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// Delete soft-deletes a run by ID
func (r *RunRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		UPDATE runs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: run %s not found or already deleted", shared.ErrNotFound, id)
	}

	return nil
}

func (r *RunRepository) tracks(ctx context.Context, runID string) ([]models.Track, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT title, artist, COALESCE(genre, ''), region, COALESCE(external_url, ''), COALESCE(image_url, '')
		FROM run_tracks
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run tracks: %w", err)
	}
	defer rows.Close()

	tracks := []models.Track{}
	for rows.Next() {
		var t models.Track
		if err := rows.Scan(&t.Title, &t.Artist, &t.Genre, &t.Region, &t.ExternalURL, &t.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan run track: %w", err)
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tracks, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a single runs row into a [models.Run], leaving Tracks empty
func scanRun(s scanner) (*models.Run, error) {
	var (
		run        models.Run
		provenance string
		genres     string
	)

	err := s.Scan(
		&run.ID,
		&run.Sequence,
		&run.Mood,
		&provenance,
		&genres,
		&run.Seed,
		&run.Variant,
		&run.PlaylistSize,
		&run.Metrics.Size,
		&run.Metrics.UniqueArtists,
		&run.Metrics.DupRate,
		&run.TracePath,
		&run.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Provenance = models.Provenance(provenance)
	run.Genres = []string{}
	if genres != "" {
		run.Genres = strings.Split(genres, ",")
	}
	return &run, nil
}
