package videos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coachhub/backend/internal/models"
)

// StaleAfter is how long a video may wait for its upload before it counts as abandoned.
const StaleAfter = 24 * time.Hour

// Sweeper deletes videos whose upload was never completed.
// Only waiting_for_upload and uploading records are considered; no provider asset exists for them.
type Sweeper struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewSweeper creates an abandoned-upload sweeper.
func NewSweeper(store Store, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{store: store, logger: logger, now: time.Now}
}

// SetClock overrides the time source.
func (s *Sweeper) SetClock(now func() time.Time) { s.now = now }

// Sweep deletes stale incomplete videos and returns how many were removed.
// A failed delete is reported but does not stop the sweep.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	candidates, err := s.store.ListByStatus(ctx, models.IncompleteVideoStatuses)
	if err != nil {
		return 0, fmt.Errorf("list incomplete videos: %w", err)
	}
	cutoff := s.now().Add(-StaleAfter)

	var (
		deleted int
		errs    []error
	)
	for i := range candidates {
		v := &candidates[i]
		if !v.Status.Incomplete() || !v.CreatedAt.Before(cutoff) {
			continue
		}
		// The record may have progressed since it was listed; the delete re-checks status and age.
		ok, err := s.store.DeleteAbandoned(ctx, v.ID, cutoff)
		if err != nil {
			s.logger.Error("delete abandoned video failed", zap.Error(err), zap.String("video_id", v.ID.String()))
			errs = append(errs, fmt.Errorf("delete %s: %w", v.ID, err))
			continue
		}
		if !ok {
			s.logger.Debug("abandoned candidate changed before delete", zap.String("video_id", v.ID.String()))
			continue
		}
		deleted++
		s.logger.Debug("abandoned video deleted", zap.String("video_id", v.ID.String()), zap.Time("created_at", v.CreatedAt))
	}
	s.logger.Info("abandoned upload sweep finished", zap.Int("deleted_count", deleted), zap.Int("candidates", len(candidates)))
	return deleted, errors.Join(errs...)
}

// Run is the scheduled entry point; it bounds one sweep to timeout.
func (s *Sweeper) Run(ctx context.Context, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("abandoned upload sweep failed", zap.Error(err))
	}
}
