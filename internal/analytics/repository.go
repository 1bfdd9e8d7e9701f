package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the aggregate queries behind the admin summary.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an analytics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Summary collects platform-wide counts. since bounds the email counters.
func (r *Repository) Summary(ctx context.Context, since time.Time) (*Summary, error) {
	out := &Summary{
		ProfilesByKind: map[string]int{},
		VideosByStatus: map[string]int{},
	}

	const usersQ = `SELECT COUNT(*), COUNT(email_verified_at) FROM users`
	if err := r.pool.QueryRow(ctx, usersQ).Scan(&out.Users, &out.VerifiedUsers); err != nil {
		return nil, err
	}
	if err := r.countBy(ctx, `SELECT kind, COUNT(*) FROM profiles GROUP BY kind`, out.ProfilesByKind); err != nil {
		return nil, err
	}
	if err := r.countBy(ctx, `SELECT status, COUNT(*) FROM videos GROUP BY status`, out.VideosByStatus); err != nil {
		return nil, err
	}

	const durQ = `SELECT COALESCE(SUM(duration_seconds), 0) FROM videos WHERE status = 'ready'`
	if err := r.pool.QueryRow(ctx, durQ).Scan(&out.ReadySeconds); err != nil {
		return nil, err
	}

	const emailQ = `SELECT COUNT(*) FILTER (WHERE status = 'sent'), COUNT(*) FILTER (WHERE status = 'failed')
		FROM email_logs WHERE created_at >= $1`
	if err := r.pool.QueryRow(ctx, emailQ, since).Scan(&out.EmailsSent, &out.EmailsFailed); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) countBy(ctx context.Context, q string, into map[string]int) error {
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] = n
	}
	return rows.Err()
}
