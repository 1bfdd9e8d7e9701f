package models

import (
	"time"

	"github.com/google/uuid"
)

// VideoStatus is the lifecycle state of an uploaded video.
type VideoStatus string

const (
	VideoStatusWaitingForUpload VideoStatus = "waiting_for_upload"
	VideoStatusUploading        VideoStatus = "uploading"
	VideoStatusProcessing       VideoStatus = "processing"
	VideoStatusReady            VideoStatus = "ready"
	VideoStatusError            VideoStatus = "error"
)

// VideoStatuses lists every status in lifecycle order.
var VideoStatuses = []VideoStatus{
	VideoStatusWaitingForUpload, VideoStatusUploading, VideoStatusProcessing, VideoStatusReady, VideoStatusError,
}

// IncompleteVideoStatuses are the states before the provider has created an asset.
var IncompleteVideoStatuses = []VideoStatus{VideoStatusWaitingForUpload, VideoStatusUploading}

// Valid reports whether s is a known status.
func (s VideoStatus) Valid() bool {
	switch s {
	case VideoStatusWaitingForUpload, VideoStatusUploading, VideoStatusProcessing, VideoStatusReady, VideoStatusError:
		return true
	}
	return false
}

// Incomplete reports whether no provider asset can exist yet in this state.
func (s VideoStatus) Incomplete() bool {
	return s == VideoStatusWaitingForUpload || s == VideoStatusUploading
}

// Video is a coach-uploaded video hosted by Mux.
type Video struct {
	ID             uuid.UUID   `json:"id"`
	OwnerProfileID uuid.UUID   `json:"owner_profile_id"`
	MuxUploadID    string      `json:"mux_upload_id"`
	MuxAssetID     *string     `json:"mux_asset_id,omitempty"`
	MuxPlaybackID  *string     `json:"mux_playback_id,omitempty"`
	Status         VideoStatus `json:"status"`
	Title          string      `json:"title"`
	Description    *string     `json:"description,omitempty"`
	Duration       *float64    `json:"duration,omitempty"`
	AspectRatio    *string     `json:"aspect_ratio,omitempty"`
	ThumbnailURL   *string     `json:"thumbnail_url,omitempty"`
	ErrorDetail    *string     `json:"error_detail,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// HasAsset reports whether the provider has confirmed an asset for this video.
func (v *Video) HasAsset() bool {
	return v.MuxAssetID != nil && *v.MuxAssetID != ""
}
