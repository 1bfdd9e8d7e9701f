package videos

import (
	"time"

	"github.com/coachhub/backend/internal/models"
	"github.com/coachhub/backend/pkg/mux"
)

// DefaultErrorDetail is stored when the provider reports a failure without a message.
const DefaultErrorDetail = "Unknown error"

// The Apply* functions compute the next state of a record for one lifecycle signal.
// They never clear a field that is already set and never move a record backwards.
// The returned bool is false when the signal does not apply to the record's current state.

// ApplyUploadStarted moves a record the client started uploading to uploading.
func ApplyUploadStarted(v models.Video, now time.Time) (models.Video, bool) {
	if v.Status != models.VideoStatusWaitingForUpload {
		return v, false
	}
	v.Status = models.VideoStatusUploading
	touch(&v, now)
	return v, true
}

// ApplyAssetCreated records the asset the provider created from the upload.
func ApplyAssetCreated(v models.Video, ev mux.AssetCreated, now time.Time) (models.Video, bool) {
	if !v.Status.Incomplete() || ev.AssetID == "" {
		return v, false
	}
	v.MuxAssetID = strPtr(ev.AssetID)
	v.Status = models.VideoStatusProcessing
	touch(&v, now)
	return v, true
}

// ApplyAssetReady marks encoding complete. A missing public playback id still yields ready.
func ApplyAssetReady(v models.Video, ev mux.AssetReady, now time.Time) (models.Video, bool) {
	if !v.HasAsset() && ev.AssetID != "" {
		v.MuxAssetID = strPtr(ev.AssetID)
	}
	if !v.HasAsset() {
		return v, false
	}
	v.Status = models.VideoStatusReady
	if pb, ok := ev.PublicPlaybackID(); ok {
		v.MuxPlaybackID = strPtr(pb)
		v.ThumbnailURL = strPtr(mux.ThumbnailURL(pb))
	}
	if ev.Duration != nil {
		d := *ev.Duration
		v.Duration = &d
	}
	if ev.AspectRatio != nil {
		v.AspectRatio = strPtr(*ev.AspectRatio)
	}
	touch(&v, now)
	return v, true
}

// ApplyAssetErrored marks encoding failed, keeping whatever progress was recorded.
func ApplyAssetErrored(v models.Video, ev mux.AssetErrored, now time.Time) (models.Video, bool) {
	if !v.HasAsset() && ev.AssetID != "" {
		v.MuxAssetID = strPtr(ev.AssetID)
	}
	detail, ok := ev.FirstMessage()
	if !ok {
		detail = DefaultErrorDetail
	}
	v.Status = models.VideoStatusError
	v.ErrorDetail = strPtr(detail)
	touch(&v, now)
	return v, true
}

func touch(v *models.Video, now time.Time) {
	if now.Before(v.CreatedAt) {
		now = v.CreatedAt
	}
	v.UpdatedAt = now
}

func strPtr(s string) *string {
	return &s
}
