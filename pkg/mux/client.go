package mux

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the Mux API root.
	DefaultBaseURL = "https://api.mux.com"
	// PlaybackPolicyPublic is the only policy whose playback ids are streamed without signed tokens.
	PlaybackPolicyPublic = "public"
	// DefaultVideoQuality is the fixed encoding tier requested for new assets.
	DefaultVideoQuality = "basic"

	requestTimeout = 15 * time.Second
)

// ErrNotConfigured is returned when API credentials are missing.
var ErrNotConfigured = errors.New("video provider not configured")

// Config holds client credentials and request defaults.
type Config struct {
	TokenID      string
	TokenSecret  string
	BaseURL      string
	CORSOrigin   string
	VideoQuality string
	HTTPClient   *http.Client
}

// Client calls the Mux Video REST API. It holds no state beyond its configuration.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient builds a client from explicit configuration.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.VideoQuality == "" {
		cfg.VideoQuality = DefaultVideoQuality
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: requestTimeout}
	}
	return &Client{cfg: cfg, http: hc, logger: logger}
}

// Configured reports whether API credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.TokenID != "" && c.cfg.TokenSecret != ""
}

// DirectUpload is a single-use upload target.
type DirectUpload struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

// APIError is a non-2xx response from Mux.
type APIError struct {
	StatusCode int
	Type       string
	Messages   []string
}

func (e *APIError) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("mux api %d %s: %s", e.StatusCode, e.Type, strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("mux api %d %s", e.StatusCode, e.Type)
}

type newAssetSettings struct {
	PlaybackPolicy []string `json:"playback_policy"`
	VideoQuality   string   `json:"video_quality,omitempty"`
}

type createUploadRequest struct {
	CORSOrigin       string           `json:"cors_origin"`
	NewAssetSettings newAssetSettings `json:"new_asset_settings"`
}

// CreateDirectUpload requests an upload URL whose asset gets a public playback policy.
func (c *Client) CreateDirectUpload(ctx context.Context) (*DirectUpload, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	body := createUploadRequest{
		CORSOrigin: c.cfg.CORSOrigin,
		NewAssetSettings: newAssetSettings{
			PlaybackPolicy: []string{PlaybackPolicyPublic},
			VideoQuality:   c.cfg.VideoQuality,
		},
	}
	var out struct {
		Data DirectUpload `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/video/v1/uploads", body, &out); err != nil {
		return nil, err
	}
	if out.Data.ID == "" || out.Data.URL == "" {
		return nil, fmt.Errorf("mux api: upload response missing id or url")
	}
	c.logger.Debug("mux direct upload created", zap.String("upload_id", out.Data.ID))
	return &out.Data, nil
}

// DeleteAsset removes an asset. Deleting an asset that no longer exists is not an error.
func (c *Client) DeleteAsset(ctx context.Context, assetID string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	if assetID == "" {
		return fmt.Errorf("mux api: empty asset id")
	}
	err := c.do(ctx, http.MethodDelete, "/video/v1/assets/"+url.PathEscape(assetID), nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		c.logger.Info("mux asset already gone", zap.String("asset_id", assetID))
		return nil
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var reqBody io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.cfg.TokenID, c.cfg.TokenSecret)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody struct {
			Error struct {
				Type     string   `json:"type"`
				Messages []string `json:"messages"`
			} `json:"error"`
		}
		if raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); len(raw) > 0 {
			if json.Unmarshal(raw, &errBody) == nil {
				apiErr.Type = errBody.Error.Type
				apiErr.Messages = errBody.Error.Messages
			}
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
