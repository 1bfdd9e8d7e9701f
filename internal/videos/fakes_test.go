package videos

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coachhub/backend/internal/models"
	"github.com/coachhub/backend/pkg/mux"
	"github.com/coachhub/backend/pkg/queue"
)

// memStore mirrors Repository semantics: unique refs, COALESCE on lifecycle saves.
type memStore struct {
	mu     sync.Mutex
	videos map[uuid.UUID]*models.Video
	clock  func() time.Time
	delErr error
}

func newMemStore() *memStore {
	return &memStore{videos: map[uuid.UUID]*models.Video{}, clock: time.Now}
}

func (s *memStore) Create(_ context.Context, v *models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.videos {
		if other.MuxUploadID == v.MuxUploadID {
			return errors.New("duplicate mux_upload_id")
		}
	}
	v.ID = uuid.New()
	v.CreatedAt = s.clock()
	v.UpdatedAt = v.CreatedAt
	cp := *v
	s.videos[v.ID] = &cp
	return nil
}

// put inserts a fully-formed record, for test setup.
func (s *memStore) put(v models.Video) *models.Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = v.CreatedAt
	}
	s.videos[v.ID] = &v
	cp := v
	return &cp
}

func (s *memStore) find(match func(*models.Video) bool) (*models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.videos {
		if match(v) {
			cp := *v
			return &cp, nil
		}
	}
	return nil, ErrVideoNotFound
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Video, error) {
	return s.find(func(v *models.Video) bool { return v.ID == id })
}

func (s *memStore) GetByUploadID(_ context.Context, uploadID string) (*models.Video, error) {
	return s.find(func(v *models.Video) bool { return v.MuxUploadID == uploadID })
}

func (s *memStore) GetByAssetID(_ context.Context, assetID string) (*models.Video, error) {
	return s.find(func(v *models.Video) bool { return v.MuxAssetID != nil && *v.MuxAssetID == assetID })
}

func (s *memStore) List(_ context.Context, f ListFilter) ([]models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Video{}
	for _, v := range s.videos {
		if f.OwnerProfileID != nil && v.OwnerProfileID != *f.OwnerProfileID {
			continue
		}
		if f.Status != nil && v.Status != *f.Status {
			continue
		}
		if !f.IncludeIncomplete && v.Status.Incomplete() {
			continue
		}
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *memStore) ListByStatus(_ context.Context, statuses []models.VideoStatus) ([]models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Video{}
	for _, v := range s.videos {
		for _, st := range statuses {
			if v.Status == st {
				out = append(out, *v)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) UpdateMetadata(_ context.Context, id uuid.UUID, title, description *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return ErrVideoNotFound
	}
	if title != nil {
		v.Title = *title
	}
	if description != nil {
		v.Description = description
	}
	v.UpdatedAt = s.clock()
	return nil
}

func (s *memStore) SaveLifecycle(_ context.Context, in *models.Video, from models.VideoStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[in.ID]
	if !ok {
		return ErrVideoNotFound
	}
	if v.Status != from {
		return ErrStatusChanged
	}
	v.Status = in.Status
	coalesce := func(dst **string, src *string) {
		if src != nil {
			val := *src
			*dst = &val
		}
	}
	coalesce(&v.MuxAssetID, in.MuxAssetID)
	coalesce(&v.MuxPlaybackID, in.MuxPlaybackID)
	coalesce(&v.AspectRatio, in.AspectRatio)
	coalesce(&v.ThumbnailURL, in.ThumbnailURL)
	coalesce(&v.ErrorDetail, in.ErrorDetail)
	if in.Duration != nil {
		d := *in.Duration
		v.Duration = &d
	}
	v.UpdatedAt = in.UpdatedAt
	if v.UpdatedAt.Before(v.CreatedAt) {
		v.UpdatedAt = v.CreatedAt
	}
	return nil
}

func (s *memStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delErr != nil {
		return s.delErr
	}
	if _, ok := s.videos[id]; !ok {
		return ErrVideoNotFound
	}
	delete(s.videos, id)
	return nil
}

func (s *memStore) DeleteAbandoned(_ context.Context, id uuid.UUID, cutoff time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delErr != nil {
		return false, s.delErr
	}
	v, ok := s.videos[id]
	if !ok || !v.Status.Incomplete() || !v.CreatedAt.Before(cutoff) {
		return false, nil
	}
	delete(s.videos, id)
	return true, nil
}

// setStatus changes a stored record directly, standing in for a concurrent writer.
func (s *memStore) setStatus(id uuid.UUID, status models.VideoStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[id].Status = status
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.videos)
}

// fakeProfiles maps user IDs to profiles.
type fakeProfiles map[uuid.UUID]*models.Profile

func (f fakeProfiles) GetByUserID(_ context.Context, userID uuid.UUID) (*models.Profile, error) {
	return f[userID], nil
}

func (f fakeProfiles) add(userID uuid.UUID) *models.Profile {
	p := &models.Profile{ID: uuid.New(), UserID: userID, Kind: models.ProfileKindCoach, DisplayName: "coach"}
	f[userID] = p
	return p
}

type fakeProvider struct {
	next  []string
	calls int
	err   error
}

func (f *fakeProvider) CreateDirectUpload(context.Context) (*mux.DirectUpload, error) {
	if f.err != nil {
		return nil, f.err
	}
	id := uuid.NewString()
	if f.calls < len(f.next) {
		id = f.next[f.calls]
	}
	f.calls++
	return &mux.DirectUpload{ID: id, URL: "https://storage.example.com/upload/" + id, Status: "waiting"}, nil
}

type fakeCleanup struct {
	jobs []queue.AssetDeletePayload
	err  error
}

func (f *fakeCleanup) EnqueueAssetDelete(_ context.Context, p queue.AssetDeletePayload) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, p)
	return nil
}

type published struct {
	owner uuid.UUID
	event string
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []published
}

func (f *fakeNotifier) PublishToOwner(owner uuid.UUID, event string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{owner: owner, event: event})
	return nil
}
