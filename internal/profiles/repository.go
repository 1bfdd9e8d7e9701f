package profiles

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coachhub/backend/internal/models"
)

// ErrNotFound is returned when no profile matches.
var ErrNotFound = errors.New("Profile not found")

const profileColumns = `id, user_id, kind, display_name, COALESCE(bio, ''), COALESCE(sport, ''), COALESCE(avatar_key, ''),
	created_at, updated_at`

// Repository handles profile persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a profiles repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	var kind string
	err := row.Scan(&p.ID, &p.UserID, &kind, &p.DisplayName, &p.Bio, &p.Sport, &p.AvatarKey, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.Kind = models.ProfileKind(kind)
	return &p, nil
}

// GetByUserID returns the caller's profile, or nil, nil when onboarding is not complete.
func (r *Repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return p, err
}

// GetByID returns a profile by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
}

// Upsert creates or updates the profile owned by p.UserID and fills ID and timestamps.
func (r *Repository) Upsert(ctx context.Context, p *models.Profile) error {
	const q = `INSERT INTO profiles (user_id, kind, display_name, bio, sport)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		ON CONFLICT (user_id) DO UPDATE SET
			kind = EXCLUDED.kind,
			display_name = EXCLUDED.display_name,
			bio = EXCLUDED.bio,
			sport = EXCLUDED.sport,
			updated_at = NOW()
		RETURNING id, COALESCE(avatar_key, ''), created_at, updated_at`
	return r.pool.QueryRow(ctx, q, p.UserID, string(p.Kind), p.DisplayName, p.Bio, p.Sport).
		Scan(&p.ID, &p.AvatarKey, &p.CreatedAt, &p.UpdatedAt)
}

// SetAvatarKey stores a new avatar key and returns the previous one.
func (r *Repository) SetAvatarKey(ctx context.Context, id uuid.UUID, key string) (string, error) {
	const q = `UPDATE profiles p SET avatar_key = $1, updated_at = NOW()
		FROM (SELECT id, avatar_key FROM profiles WHERE id = $2 FOR UPDATE) old
		WHERE p.id = old.id
		RETURNING COALESCE(old.avatar_key, '')`
	var previous string
	err := r.pool.QueryRow(ctx, q, key, id).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return previous, err
}

// ListByKind returns profiles of a kind, newest first.
func (r *Repository) ListByKind(ctx context.Context, kind models.ProfileKind, limit int) ([]models.Profile, error) {
	const q = `SELECT ` + profileColumns + ` FROM profiles WHERE kind = $1 ORDER BY created_at DESC, id DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, q, string(kind), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}
