package videos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coachhub/backend/internal/models"
	"github.com/coachhub/backend/pkg/mux"
	"github.com/coachhub/backend/pkg/queue"
)

const (
	// DefaultListLimit applies when the caller gives no limit.
	DefaultListLimit = 50
	// MaxListLimit caps caller-supplied limits.
	MaxListLimit = 100

	maxTitleLen       = 200
	maxDescriptionLen = 5000

	// maxTransitionAttempts bounds re-reads when concurrent writers keep changing a record.
	maxTransitionAttempts = 3

	// EventVideoUpdated and EventVideoDeleted are pushed to the owner's realtime channel.
	EventVideoUpdated = "video.updated"
	EventVideoDeleted = "video.deleted"
)

// Store is the video persistence the service needs. *Repository implements it.
type Store interface {
	Create(ctx context.Context, v *models.Video) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error)
	GetByUploadID(ctx context.Context, uploadID string) (*models.Video, error)
	GetByAssetID(ctx context.Context, assetID string) (*models.Video, error)
	List(ctx context.Context, f ListFilter) ([]models.Video, error)
	ListByStatus(ctx context.Context, statuses []models.VideoStatus) ([]models.Video, error)
	UpdateMetadata(ctx context.Context, id uuid.UUID, title, description *string) error
	SaveLifecycle(ctx context.Context, v *models.Video, from models.VideoStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAbandoned(ctx context.Context, id uuid.UUID, cutoff time.Time) (bool, error)
}

// ProfileLookup resolves the caller's profile. A nil profile with nil error means onboarding is incomplete.
type ProfileLookup interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

// UploadProvider creates direct upload targets at the video host.
type UploadProvider interface {
	CreateDirectUpload(ctx context.Context) (*mux.DirectUpload, error)
}

// AssetCleanup schedules out-of-band removal of provider assets.
type AssetCleanup interface {
	EnqueueAssetDelete(ctx context.Context, payload queue.AssetDeletePayload) error
}

// Notifier pushes video changes to the owner's connected clients.
type Notifier interface {
	PublishToOwner(ownerProfileID uuid.UUID, event string, payload interface{}) error
}

// ListFilter selects videos for List.
type ListFilter struct {
	OwnerProfileID    *uuid.UUID
	Status            *models.VideoStatus
	IncludeIncomplete bool
	Limit             int
}

// ListParams are the caller-facing list options.
type ListParams struct {
	Status            *models.VideoStatus
	Limit             int
	IncludeIncomplete bool
}

// CreateUploadInput is the body of an upload initiation.
type CreateUploadInput struct {
	Title       string
	Description *string
}

// UploadTarget is returned to the client, which PUTs the file to UploadURL.
type UploadTarget struct {
	UploadURL   string    `json:"upload_url"`
	VideoID     uuid.UUID `json:"video_id"`
	MuxUploadID string    `json:"mux_upload_id"`
}

// UpdateInput carries optional metadata changes.
type UpdateInput struct {
	Title       *string
	Description *string
}

// Service implements the video lifecycle and the owner-facing operations.
type Service struct {
	store    Store
	profiles ProfileLookup
	provider UploadProvider
	cleanup  AssetCleanup
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a video service. provider, cleanup and notifier may be nil.
func NewService(store Store, profiles ProfileLookup, provider UploadProvider, cleanup AssetCleanup, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, profiles: profiles, provider: provider, cleanup: cleanup, logger: logger, now: time.Now}
}

// SetNotifier sets the optional realtime notifier.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) ownerProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	p, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// CreateUpload requests a single-use upload target and records a waiting_for_upload video.
func (s *Service) CreateUpload(ctx context.Context, userID uuid.UUID, in CreateUploadInput) (*UploadTarget, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if err := validateDescription(in.Description); err != nil {
		return nil, err
	}
	profile, err := s.ownerProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.provider == nil {
		return nil, mux.ErrNotConfigured
	}

	upload, err := s.provider.CreateDirectUpload(ctx)
	if err != nil {
		if errors.Is(err, mux.ErrNotConfigured) {
			return nil, err
		}
		return nil, fmt.Errorf("create upload: %w", err)
	}

	v := &models.Video{
		OwnerProfileID: profile.ID,
		MuxUploadID:    upload.ID,
		Status:         models.VideoStatusWaitingForUpload,
		Title:          title,
		Description:    in.Description,
	}
	if err := s.store.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("create video: %w", err)
	}
	s.logger.Info("video upload created",
		zap.String("video_id", v.ID.String()),
		zap.String("owner_profile_id", profile.ID.String()),
		zap.String("mux_upload_id", upload.ID))
	return &UploadTarget{UploadURL: upload.URL, VideoID: v.ID, MuxUploadID: upload.ID}, nil
}

// Get returns any video by ID. Callers that mutate must check ownership themselves.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	return s.store.GetByID(ctx, id)
}

// List returns the caller's own videos, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, p ListParams) ([]models.Video, error) {
	profile, err := s.ownerProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	f, err := listFilter(p)
	if err != nil {
		return nil, err
	}
	f.OwnerProfileID = &profile.ID
	return s.store.List(ctx, f)
}

// AdminList returns videos of every owner, or of one owner when owner is set.
func (s *Service) AdminList(ctx context.Context, owner *uuid.UUID, p ListParams) ([]models.Video, error) {
	f, err := listFilter(p)
	if err != nil {
		return nil, err
	}
	f.OwnerProfileID = owner
	return s.store.List(ctx, f)
}

func listFilter(p ListParams) (ListFilter, error) {
	if p.Status != nil && !p.Status.Valid() {
		return ListFilter{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *p.Status)
	}
	limit := p.Limit
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	return ListFilter{Status: p.Status, IncludeIncomplete: p.IncludeIncomplete, Limit: limit}, nil
}

// ownedVideo loads a video and checks the caller owns it.
func (s *Service) ownedVideo(ctx context.Context, userID, id uuid.UUID) (*models.Video, error) {
	profile, err := s.ownerProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	v, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.OwnerProfileID != profile.ID {
		return nil, ErrUnauthorized
	}
	return v, nil
}

// UpdateMetadata changes title and/or description of the caller's video.
func (s *Service) UpdateMetadata(ctx context.Context, userID, id uuid.UUID, in UpdateInput) error {
	if in.Title != nil {
		title, err := validateTitle(*in.Title)
		if err != nil {
			return err
		}
		in.Title = &title
	}
	if err := validateDescription(in.Description); err != nil {
		return err
	}
	if _, err := s.ownedVideo(ctx, userID, id); err != nil {
		return err
	}
	if in.Title == nil && in.Description == nil {
		return nil
	}
	if err := s.store.UpdateMetadata(ctx, id, in.Title, in.Description); err != nil {
		return err
	}
	s.publishCurrent(ctx, id)
	return nil
}

// MarkUploading records that the client started sending the file.
func (s *Service) MarkUploading(ctx context.Context, userID, id uuid.UUID) error {
	v, err := s.ownedVideo(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.transition(ctx, v, func(cur models.Video) (models.Video, bool) {
		return ApplyUploadStarted(cur, s.now())
	})
}

// Delete removes the caller's video and schedules removal of its provider asset.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	v, err := s.ownedVideo(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.remove(ctx, v)
}

// AdminDelete removes any video (moderation).
func (s *Service) AdminDelete(ctx context.Context, id uuid.UUID) error {
	v, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.remove(ctx, v)
}

func (s *Service) remove(ctx context.Context, v *models.Video) error {
	if err := s.store.Delete(ctx, v.ID); err != nil {
		return err
	}
	if v.HasAsset() {
		s.scheduleAssetDelete(ctx, v.ID, *v.MuxAssetID)
	}
	s.publish(v.OwnerProfileID, EventVideoDeleted, map[string]string{"id": v.ID.String()})
	s.logger.Info("video deleted", zap.String("video_id", v.ID.String()))
	return nil
}

// scheduleAssetDelete never fails the caller; the local row is already gone.
func (s *Service) scheduleAssetDelete(ctx context.Context, videoID uuid.UUID, assetID string) {
	if s.cleanup == nil {
		s.logger.Warn("asset cleanup not configured; provider asset left behind", zap.String("asset_id", assetID))
		return
	}
	err := s.cleanup.EnqueueAssetDelete(ctx, queue.AssetDeletePayload{VideoID: videoID, AssetID: assetID})
	if err != nil {
		s.logger.Error("enqueue asset delete failed", zap.Error(err), zap.String("video_id", videoID.String()), zap.String("asset_id", assetID))
	}
}

// HandleEvent applies one verified provider event. Unknown events and unmatched
// records are logged and skipped; only store failures are returned.
func (s *Service) HandleEvent(ctx context.Context, ev mux.Event) error {
	switch e := ev.(type) {
	case mux.AssetCreated:
		return s.handleAssetCreated(ctx, e)
	case mux.AssetReady:
		return s.handleAssetReady(ctx, e)
	case mux.AssetErrored:
		return s.handleAssetErrored(ctx, e)
	default:
		s.logger.Info("ignoring webhook event", zap.String("type", ev.EventType()))
		return nil
	}
}

func (s *Service) handleAssetCreated(ctx context.Context, ev mux.AssetCreated) error {
	v, err := s.lookup(ctx, "mux_upload_id", ev.UploadID, s.store.GetByUploadID)
	if v == nil || err != nil {
		return err
	}
	return s.transition(ctx, v, func(cur models.Video) (models.Video, bool) {
		return ApplyAssetCreated(cur, ev, s.now())
	})
}

func (s *Service) handleAssetReady(ctx context.Context, ev mux.AssetReady) error {
	v, err := s.lookup(ctx, "mux_asset_id", ev.AssetID, s.store.GetByAssetID)
	if v == nil || err != nil {
		return err
	}
	if v.Status != models.VideoStatusProcessing {
		s.logger.Warn("asset ready for video not in processing",
			zap.String("video_id", v.ID.String()), zap.String("status", string(v.Status)))
	}
	if _, ok := ev.PublicPlaybackID(); !ok {
		s.logger.Warn("asset ready without public playback id",
			zap.String("video_id", v.ID.String()), zap.String("asset_id", ev.AssetID))
	}
	return s.transition(ctx, v, func(cur models.Video) (models.Video, bool) {
		return ApplyAssetReady(cur, ev, s.now())
	})
}

func (s *Service) handleAssetErrored(ctx context.Context, ev mux.AssetErrored) error {
	v, err := s.lookup(ctx, "mux_asset_id", ev.AssetID, s.store.GetByAssetID)
	if v == nil || err != nil {
		return err
	}
	detail, ok := ev.FirstMessage()
	if !ok {
		detail = DefaultErrorDetail
	}
	s.logger.Warn("video processing failed",
		zap.String("video_id", v.ID.String()), zap.String("asset_id", ev.AssetID), zap.String("error_detail", detail))
	return s.transition(ctx, v, func(cur models.Video) (models.Video, bool) {
		return ApplyAssetErrored(cur, ev, s.now())
	})
}

// lookup returns (nil, nil) when no record matches; webhooks may race local writes or be redelivered.
func (s *Service) lookup(ctx context.Context, field, key string, get func(context.Context, string) (*models.Video, error)) (*models.Video, error) {
	if key == "" {
		s.logger.Warn("webhook event missing key", zap.String("field", field))
		return nil, nil
	}
	v, err := get(ctx, key)
	if errors.Is(err, ErrVideoNotFound) {
		s.logger.Info("no video for webhook event", zap.String("field", field), zap.String("key", key))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup video by %s: %w", field, err)
	}
	return v, nil
}

// transition applies one lifecycle step to v and saves it only if the stored status is still the one
// the step was computed from. On a concurrent change it re-reads and re-applies, so a stale read can
// never move a record backwards.
func (s *Service) transition(ctx context.Context, v *models.Video, apply func(models.Video) (models.Video, bool)) error {
	for attempt := 1; ; attempt++ {
		next, ok := apply(*v)
		if !ok {
			s.logger.Info("lifecycle signal ignored for current state",
				zap.String("video_id", v.ID.String()), zap.String("status", string(v.Status)))
			return nil
		}
		err := s.store.SaveLifecycle(ctx, &next, v.Status)
		switch {
		case err == nil:
			s.logger.Info("video status changed", zap.String("video_id", next.ID.String()),
				zap.String("from", string(v.Status)), zap.String("status", string(next.Status)))
			s.publish(next.OwnerProfileID, EventVideoUpdated, &next)
			return nil
		case errors.Is(err, ErrVideoNotFound):
			s.logger.Info("video deleted before transition was saved", zap.String("video_id", v.ID.String()))
			return nil
		case errors.Is(err, ErrStatusChanged):
			if attempt == maxTransitionAttempts {
				s.logger.Warn("video kept changing; transition dropped", zap.String("video_id", v.ID.String()))
				return nil
			}
			fresh, err := s.store.GetByID(ctx, v.ID)
			if errors.Is(err, ErrVideoNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("reload video %s: %w", v.ID, err)
			}
			v = fresh
		default:
			return fmt.Errorf("save video %s: %w", v.ID, err)
		}
	}
}

func (s *Service) publishCurrent(ctx context.Context, id uuid.UUID) {
	if s.notifier == nil {
		return
	}
	v, err := s.store.GetByID(ctx, id)
	if err != nil {
		return
	}
	s.publish(v.OwnerProfileID, EventVideoUpdated, v)
}

func (s *Service) publish(owner uuid.UUID, event string, payload interface{}) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishToOwner(owner, event, payload); err != nil {
		s.logger.Warn("publish video event failed", zap.Error(err), zap.String("event", event))
	}
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "", fmt.Errorf("%w: title must be at most %d characters", ErrInvalidInput, maxTitleLen)
	}
	return title, nil
}

func validateDescription(d *string) error {
	if d != nil && utf8.RuneCountInString(*d) > maxDescriptionLen {
		return fmt.Errorf("%w: description must be at most %d characters", ErrInvalidInput, maxDescriptionLen)
	}
	return nil
}
