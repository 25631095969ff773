package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/spotdiff/internal/models"
	"github.com/desertthunder/spotdiff/internal/shared"
)

// InsertOutcome is the result of [TrackRepository.InsertIfAbsent].
type InsertOutcome int

const (
	Inserted InsertOutcome = iota
	AlreadyPresent
)

func (o InsertOutcome) String() string {
	if o == Inserted {
		return "inserted"
	}
	return "already_present"
}

const trackColumns = `id, position, added_by_id, added_at, url, title, album_name, album_url, artists, jacket_url, refreshed`

// TrackRepository is the playlist snapshot store.
//
// Every method is a single statement and therefore its own atomic unit; there is no cross-call rollback.
// A duplicate id on insert is reported as [AlreadyPresent], never as an error.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// BeginPass clears the refreshed flag on every stored track.
func (r *TrackRepository) BeginPass(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE tracks SET refreshed = 0`); err != nil {
		return fmt.Errorf("failed to reset refreshed flags: %w", err)
	}
	return nil
}

// InsertIfAbsent stores track with refreshed = true unless a record with its id already exists,
// in which case nothing is mutated.
func (r *TrackRepository) InsertIfAbsent(ctx context.Context, track models.Track) (InsertOutcome, error) {
	if err := track.Validate(); err != nil {
		return AlreadyPresent, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO tracks (` + trackColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		track.ID,
		track.Position,
		nullable(track.AddedByID),
		nullable(track.AddedAt),
		nullString(track.URL),
		track.Title,
		track.AlbumName,
		nullString(track.AlbumURL),
		track.Artists,
		track.JacketURL,
	)
	if err != nil {
		return AlreadyPresent, fmt.Errorf("failed to insert track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return AlreadyPresent, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return AlreadyPresent, nil
	}

	return Inserted, nil
}

// RefreshPositionIfStale sets the position of an existing, not yet refreshed track and marks it refreshed.
//
// Returns false when no such record exists, including when it has already been refreshed during this pass.
func (r *TrackRepository) RefreshPositionIfStale(ctx context.Context, id string, position int) (bool, error) {
	query := `
		UPDATE tracks
		SET position = ?, refreshed = 1
		WHERE id = ? AND refreshed = 0
	`

	result, err := r.db.ExecContext(ctx, query, position, id)
	if err != nil {
		return false, fmt.Errorf("failed to refresh track position: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows != 0, nil
}

// FindTitleConflicts returns every stored track titled title whose added_at differs from excludeAddedAt.
//
// Self-exclusion is by added_at rather than id. A nil excludeAddedAt excludes tracks without a timestamp.
// The comparison is null-safe, so stored tracks lacking added_at conflict with a timestamped one.
func (r *TrackRepository) FindTitleConflicts(ctx context.Context, title string, excludeAddedAt *string) ([]models.Track, error) {
	query := `
		SELECT ` + trackColumns + `
		FROM tracks
		WHERE title = ? AND added_at IS NOT ?
		ORDER BY position ASC
	`

	stored, err := r.query(ctx, query, title, nullable(excludeAddedAt))
	if err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(stored))
	for _, s := range stored {
		tracks = append(tracks, s.Track)
	}
	return tracks, nil
}

// FindTitleTwins returns stored tracks sharing both title and added_at with a track of a different id.
//
// These are the records [TrackRepository.FindTitleConflicts] cannot report, because its self-exclusion is by timestamp.
func (r *TrackRepository) FindTitleTwins(ctx context.Context, title string, addedAt *string, excludeID string) ([]models.Track, error) {
	query := `
		SELECT ` + trackColumns + `
		FROM tracks
		WHERE title = ? AND added_at IS ? AND id <> ?
		ORDER BY position ASC
	`

	stored, err := r.query(ctx, query, title, nullable(addedAt), excludeID)
	if err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(stored))
	for _, s := range stored {
		tracks = append(tracks, s.Track)
	}
	return tracks, nil
}

// HighWaterMark returns the maximum added_at across all stored tracks, or nil when none carries one.
func (r *TrackRepository) HighWaterMark(ctx context.Context) (*string, error) {
	var mark sql.NullString
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(added_at) FROM tracks`).Scan(&mark); err != nil {
		return nil, fmt.Errorf("failed to query high-water mark: %w", err)
	}
	if !mark.Valid {
		return nil, nil
	}
	return &mark.String, nil
}

// PurgeUnrefreshed deletes every track not observed during the current pass and returns how many were removed.
func (r *TrackRepository) PurgeUnrefreshed(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tracks WHERE refreshed = 0`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge unrefreshed tracks: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows, nil
}

// Get retrieves a stored track by id.
func (r *TrackRepository) Get(ctx context.Context, id string) (*models.StoredTrack, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = ?`

	track, err := scanTrack(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	return track, nil
}

// List retrieves all stored tracks ordered by playlist position.
func (r *TrackRepository) List(ctx context.Context) ([]models.StoredTrack, error) {
	return r.query(ctx, `SELECT `+trackColumns+` FROM tracks ORDER BY position ASC`)
}

// Count returns the number of stored tracks.
func (r *TrackRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return n, nil
}

func (r *TrackRepository) query(ctx context.Context, query string, args ...any) ([]models.StoredTrack, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.StoredTrack
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, *track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

func scanTrack(s scanner) (*models.StoredTrack, error) {
	var (
		t         models.StoredTrack
		addedByID sql.NullString
		addedAt   sql.NullString
		url       sql.NullString
		albumURL  sql.NullString
	)

	err := s.Scan(
		&t.ID, &t.Position, &addedByID, &addedAt, &url, &t.Title,
		&t.AlbumName, &albumURL, &t.Artists, &t.JacketURL, &t.Refreshed,
	)
	if err != nil {
		return nil, err
	}

	if addedByID.Valid {
		t.AddedByID = &addedByID.String
	}
	if addedAt.Valid {
		t.AddedAt = &addedAt.String
	}
	t.URL = url.String
	t.AlbumURL = albumURL.String

	return &t, nil
}

// nullable maps a nil pointer to SQL NULL.
func nullable(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// nullString maps an empty string to SQL NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
