package videos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachhub/backend/internal/models"
)

func TestSweepDeletesOnlyStaleIncompleteVideos(t *testing.T) {
	store := newMemStore()
	now := t0.Add(48 * time.Hour)
	owner := uuid.New()
	add := func(status models.VideoStatus, age time.Duration) *models.Video {
		return store.put(models.Video{OwnerProfileID: owner, MuxUploadID: uuid.NewString(), Status: status, Title: "t", CreatedAt: now.Add(-age)})
	}

	staleWaiting := add(models.VideoStatusWaitingForUpload, 25*time.Hour)
	staleUploading := add(models.VideoStatusUploading, 30*time.Hour)
	fresh := add(models.VideoStatusWaitingForUpload, time.Hour)
	processing := add(models.VideoStatusProcessing, 40*time.Hour)
	ready := add(models.VideoStatusReady, 40*time.Hour)
	failed := add(models.VideoStatusError, 40*time.Hour)

	s := NewSweeper(store, nil)
	s.SetClock(func() time.Time { return now })

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ctx := context.Background()
	for _, gone := range []*models.Video{staleWaiting, staleUploading} {
		_, err := store.GetByID(ctx, gone.ID)
		assert.ErrorIs(t, err, ErrVideoNotFound)
	}
	for _, kept := range []*models.Video{fresh, processing, ready, failed} {
		_, err := store.GetByID(ctx, kept.ID)
		assert.NoError(t, err, "status %s", kept.Status)
	}

	n, err = s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "second sweep finds nothing")
}

func TestSweepBoundaryIsExclusive(t *testing.T) {
	store := newMemStore()
	now := t0.Add(48 * time.Hour)
	v := store.put(models.Video{OwnerProfileID: uuid.New(), MuxUploadID: "up-1", Status: models.VideoStatusWaitingForUpload, Title: "t", CreatedAt: now.Add(-StaleAfter)})

	s := NewSweeper(store, nil)
	s.SetClock(func() time.Time { return now })
	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	_, err = store.GetByID(context.Background(), v.ID)
	assert.NoError(t, err)
}

func TestSweepReportsDeleteFailures(t *testing.T) {
	store := newMemStore()
	now := t0.Add(48 * time.Hour)
	store.put(models.Video{OwnerProfileID: uuid.New(), MuxUploadID: "a", Status: models.VideoStatusWaitingForUpload, Title: "t", CreatedAt: t0})
	store.put(models.Video{OwnerProfileID: uuid.New(), MuxUploadID: "b", Status: models.VideoStatusUploading, Title: "t", CreatedAt: t0})
	store.delErr = errors.New("connection refused")

	s := NewSweeper(store, nil)
	s.SetClock(func() time.Time { return now })
	n, err := s.Sweep(context.Background())
	assert.Equal(t, 0, n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 2, store.count())
}

func TestSweepListFailure(t *testing.T) {
	s := NewSweeper(&failingListStore{memStore: newMemStore()}, nil)
	_, err := s.Sweep(context.Background())
	assert.Error(t, err)
}

type failingListStore struct{ *memStore }

func (s *failingListStore) ListByStatus(context.Context, []models.VideoStatus) ([]models.Video, error) {
	return nil, errors.New("timeout")
}

// progressingStore lets a record leave the incomplete states right after the sweeper listed it.
type progressingStore struct {
	*memStore
	progress uuid.UUID
}

func (s *progressingStore) ListByStatus(ctx context.Context, statuses []models.VideoStatus) ([]models.Video, error) {
	list, err := s.memStore.ListByStatus(ctx, statuses)
	s.memStore.setStatus(s.progress, models.VideoStatusProcessing)
	return list, err
}

func TestSweepSkipsRecordThatProgressedAfterListing(t *testing.T) {
	store := newMemStore()
	now := t0.Add(48 * time.Hour)
	late := store.put(models.Video{OwnerProfileID: uuid.New(), MuxUploadID: "a", Status: models.VideoStatusUploading, Title: "t", CreatedAt: t0})
	store.put(models.Video{OwnerProfileID: uuid.New(), MuxUploadID: "b", Status: models.VideoStatusWaitingForUpload, Title: "t", CreatedAt: t0})

	s := NewSweeper(&progressingStore{memStore: store, progress: late.ID}, nil)
	s.SetClock(func() time.Time { return now })
	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.GetByID(context.Background(), late.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VideoStatusProcessing, got.Status)
}
