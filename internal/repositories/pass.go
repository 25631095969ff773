package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/spotdiff/internal/models"
	"github.com/desertthunder/spotdiff/internal/shared"
)

const passColumns = `
	id, sequence, playlist_id, started_at, finished_at, fetched, new_tracks,
	conflicts, existing, backfilled, purged, error_message
`

// PassRepository records the history of fetch-and-classify cycles.
type PassRepository struct {
	db *sql.DB
}

// NewPassRepository creates a new PassRepository with the given database connection
func NewPassRepository(db *sql.DB) *PassRepository {
	return &PassRepository{db: db}
}

// Create starts a pass record for playlistID with a generated ID and sequence.
func (r *PassRepository) Create(ctx context.Context, playlistID string, startedAt time.Time) (*models.Pass, error) {
	sequence, err := NextSequence(ctx, r.db, "passes")
	if err != nil {
		return nil, fmt.Errorf("failed to generate sequence: %w", err)
	}

	pass := &models.Pass{
		ID:         shared.GenerateID(),
		Sequence:   sequence,
		PlaylistID: playlistID,
		StartedAt:  startedAt.UTC(),
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO passes (id, sequence, playlist_id, started_at) VALUES (?, ?, ?, ?)`,
		pass.ID, pass.Sequence, pass.PlaylistID, pass.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert pass: %w", err)
	}

	return pass, nil
}

// Finish stores the counters and error of pass and stamps it finished.
func (r *PassRepository) Finish(ctx context.Context, pass *models.Pass, finishedAt time.Time) error {
	finished := finishedAt.UTC()
	pass.FinishedAt = &finished

	var errorMessage any = pass.Error
	if pass.Error == "" {
		errorMessage = nil
	}

	query := `
		UPDATE passes
		SET finished_at = ?, fetched = ?, new_tracks = ?, conflicts = ?,
			existing = ?, backfilled = ?, purged = ?, error_message = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		finished,
		pass.Fetched,
		pass.New,
		pass.Conflicts,
		pass.Existing,
		pass.Backfilled,
		pass.Purged,
		errorMessage,
		pass.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish pass: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("pass not found: %s", pass.ID)
	}

	return nil
}

// Get retrieves a pass by ID.
func (r *PassRepository) Get(ctx context.Context, id string) (*models.Pass, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+passColumns+` FROM passes WHERE id = ?`, id)

	pass, err := scanPass(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("pass not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan pass: %w", err)
	}

	return pass, nil
}

// List retrieves the most recent passes, newest first. A non-positive limit returns every pass.
func (r *PassRepository) List(ctx context.Context, limit int) ([]*models.Pass, error) {
	query := `SELECT ` + passColumns + ` FROM passes ORDER BY sequence DESC`
	args := []any{}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query passes: %w", err)
	}
	defer rows.Close()

	var passes []*models.Pass
	for rows.Next() {
		pass, err := scanPass(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pass: %w", err)
		}
		passes = append(passes, pass)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return passes, nil
}

func scanPass(s scanner) (*models.Pass, error) {
	var (
		pass         models.Pass
		finishedAt   sql.NullTime
		errorMessage sql.NullString
	)

	err := s.Scan(
		&pass.ID, &pass.Sequence, &pass.PlaylistID, &pass.StartedAt, &finishedAt,
		&pass.Fetched, &pass.New, &pass.Conflicts, &pass.Existing, &pass.Backfilled,
		&pass.Purged, &errorMessage,
	)
	if err != nil {
		return nil, err
	}

	if finishedAt.Valid {
		pass.FinishedAt = &finishedAt.Time
	}
	pass.Error = errorMessage.String

	return &pass, nil
}
