package mux

import (
	"encoding/json"
	"fmt"
)

// Webhook event types the lifecycle reacts to.
const (
	EventAssetCreated = "video.asset.created"
	EventAssetReady   = "video.asset.ready"
	EventAssetErrored = "video.asset.errored"
)

// Event is one decoded webhook. The concrete type is one of
// AssetCreated, AssetReady, AssetErrored or Unknown.
type Event interface {
	EventType() string
}

// PlaybackID is a stream identifier plus its visibility policy.
type PlaybackID struct {
	ID     string `json:"id"`
	Policy string `json:"policy"`
}

// AssetCreated reports that an upload produced an asset.
type AssetCreated struct {
	AssetID  string
	UploadID string
}

// AssetReady reports that encoding finished.
type AssetReady struct {
	AssetID     string
	UploadID    string
	PlaybackIDs []PlaybackID
	Duration    *float64
	AspectRatio *string
}

// AssetErrored reports that encoding failed.
type AssetErrored struct {
	AssetID  string
	UploadID string
	Type     string
	Messages []string
}

// Unknown is any event type this service does not handle.
type Unknown struct {
	Type string
}

func (AssetCreated) EventType() string { return EventAssetCreated }
func (AssetReady) EventType() string { return EventAssetReady }
func (AssetErrored) EventType() string { return EventAssetErrored }
func (u Unknown) EventType() string { return u.Type }

// PublicPlaybackID returns the first playback id with a public policy.
func (e AssetReady) PublicPlaybackID() (string, bool) {
	for _, p := range e.PlaybackIDs {
		if p.Policy == PlaybackPolicyPublic && p.ID != "" {
			return p.ID, true
		}
	}
	return "", false
}

// FirstMessage returns the first non-empty error message.
func (e AssetErrored) FirstMessage() (string, bool) {
	for _, m := range e.Messages {
		if m != "" {
			return m, true
		}
	}
	return "", false
}

type envelope struct {
	Type string          `json:"type"`
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

type assetData struct {
	ID          string       `json:"id"`
	UploadID    string       `json:"upload_id"`
	PlaybackIDs []PlaybackID `json:"playback_ids"`
	Duration    *float64     `json:"duration"`
	AspectRatio *string      `json:"aspect_ratio"`
	Errors      *struct {
		Type     string   `json:"type"`
		Messages []string `json:"messages"`
	} `json:"errors"`
}

// ParseEvent decodes a raw webhook body.
func ParseEvent(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode webhook envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("decode webhook envelope: missing type")
	}

	switch env.Type {
	case EventAssetCreated, EventAssetReady, EventAssetErrored:
	default:
		return Unknown{Type: env.Type}, nil
	}

	var d assetData
	if err := json.Unmarshal(env.Data, &d); err != nil {
		return nil, fmt.Errorf("decode %s data: %w", env.Type, err)
	}
	switch env.Type {
	case EventAssetCreated:
		return AssetCreated{AssetID: d.ID, UploadID: d.UploadID}, nil
	case EventAssetReady:
		return AssetReady{
			AssetID:     d.ID,
			UploadID:    d.UploadID,
			PlaybackIDs: d.PlaybackIDs,
			Duration:    d.Duration,
			AspectRatio: d.AspectRatio,
		}, nil
	default:
		ev := AssetErrored{AssetID: d.ID, UploadID: d.UploadID}
		if d.Errors != nil {
			ev.Type = d.Errors.Type
			ev.Messages = d.Errors.Messages
		}
		return ev, nil
	}
}

// ThumbnailURL derives the still image URL for a public playback id.
func ThumbnailURL(playbackID string) string {
	return "https://image.mux.com/" + playbackID + "/thumbnail.jpg"
}
