package videos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coachhub/backend/internal/models"
)

const videoColumns = `id, owner_profile_id, mux_upload_id, mux_asset_id, mux_playback_id, status, title, description,
	duration_seconds, aspect_ratio, thumbnail_url, error_detail, created_at, updated_at`

// Repository handles video persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a videos repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanVideo(row pgx.Row) (*models.Video, error) {
	var v models.Video
	var status string
	err := row.Scan(&v.ID, &v.OwnerProfileID, &v.MuxUploadID, &v.MuxAssetID, &v.MuxPlaybackID, &status, &v.Title, &v.Description,
		&v.Duration, &v.AspectRatio, &v.ThumbnailURL, &v.ErrorDetail, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}
	v.Status = models.VideoStatus(status)
	return &v, nil
}

// Create inserts a new video; ID and timestamps are filled from the database.
func (r *Repository) Create(ctx context.Context, v *models.Video) error {
	const q = `INSERT INTO videos (owner_profile_id, mux_upload_id, status, title, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, v.OwnerProfileID, v.MuxUploadID, string(v.Status), v.Title, v.Description).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
}

// GetByID returns a video by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	return scanVideo(r.pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id))
}

// GetByUploadID returns the video created for a direct upload.
func (r *Repository) GetByUploadID(ctx context.Context, uploadID string) (*models.Video, error) {
	return scanVideo(r.pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE mux_upload_id = $1`, uploadID))
}

// GetByAssetID returns the video bound to a provider asset.
func (r *Repository) GetByAssetID(ctx context.Context, assetID string) (*models.Video, error) {
	return scanVideo(r.pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE mux_asset_id = $1`, assetID))
}

// List returns videos matching f, newest first.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.Video, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.OwnerProfileID != nil {
		args = append(args, *f.OwnerProfileID)
		where = append(where, fmt.Sprintf("owner_profile_id = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if !f.IncludeIncomplete {
		args = append(args, statusStrings(models.IncompleteVideoStatuses))
		where = append(where, fmt.Sprintf("status <> ALL($%d)", len(args)))
	}
	q := `SELECT ` + videoColumns + ` FROM videos`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit)
	q += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))
	return r.query(ctx, q, args...)
}

// ListByStatus returns all videos in any of the given states, oldest first.
func (r *Repository) ListByStatus(ctx context.Context, statuses []models.VideoStatus) ([]models.Video, error) {
	const q = `SELECT ` + videoColumns + ` FROM videos WHERE status = ANY($1) ORDER BY created_at ASC`
	return r.query(ctx, q, statusStrings(statuses))
}

func (r *Repository) query(ctx context.Context, q string, args ...interface{}) ([]models.Video, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Video{}
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *v)
	}
	return list, rows.Err()
}

// UpdateMetadata sets title and/or description; nil leaves a field unchanged.
func (r *Repository) UpdateMetadata(ctx context.Context, id uuid.UUID, title, description *string) error {
	const q = `UPDATE videos SET title = COALESCE($1, title), description = COALESCE($2, description), updated_at = NOW()
		WHERE id = $3`
	tag, err := r.pool.Exec(ctx, q, title, description, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// SaveLifecycle persists the provider-driven fields of v if the row is still in status from.
// Set fields are never cleared. Returns ErrStatusChanged when another write got there first.
func (r *Repository) SaveLifecycle(ctx context.Context, v *models.Video, from models.VideoStatus) error {
	const q = `UPDATE videos SET
		status = $1,
		mux_asset_id = COALESCE($2, mux_asset_id),
		mux_playback_id = COALESCE($3, mux_playback_id),
		duration_seconds = COALESCE($4, duration_seconds),
		aspect_ratio = COALESCE($5, aspect_ratio),
		thumbnail_url = COALESCE($6, thumbnail_url),
		error_detail = COALESCE($7, error_detail),
		updated_at = GREATEST($8, created_at)
		WHERE id = $9 AND status = $10`
	tag, err := r.pool.Exec(ctx, q, string(v.Status), v.MuxAssetID, v.MuxPlaybackID, v.Duration, v.AspectRatio,
		v.ThumbnailURL, v.ErrorDetail, v.UpdatedAt, v.ID, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM videos WHERE id = $1)`, v.ID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrVideoNotFound
	}
	return ErrStatusChanged
}

// DeleteAbandoned removes the video only if it is still incomplete and was created before cutoff.
// It reports whether a row was deleted.
func (r *Repository) DeleteAbandoned(ctx context.Context, id uuid.UUID, cutoff time.Time) (bool, error) {
	const q = `DELETE FROM videos WHERE id = $1 AND status = ANY($2) AND created_at < $3`
	tag, err := r.pool.Exec(ctx, q, id, statusStrings(models.IncompleteVideoStatuses), cutoff)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes a video row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVideoNotFound
	}
	return nil
}

func statusStrings(statuses []models.VideoStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
