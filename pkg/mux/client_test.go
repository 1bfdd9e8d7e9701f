package mux

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDirectUpload(t *testing.T) {
	var got createUploadRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/video/v1/uploads", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "id", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"up-1","url":"https://storage.mux.com/up-1","status":"waiting"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{TokenID: "id", TokenSecret: "secret", BaseURL: srv.URL}, nil)
	up, err := c.CreateDirectUpload(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "up-1", up.ID)
	assert.Equal(t, "https://storage.mux.com/up-1", up.URL)
	assert.Equal(t, []string{PlaybackPolicyPublic}, got.NewAssetSettings.PlaybackPolicy)
	assert.Equal(t, DefaultVideoQuality, got.NewAssetSettings.VideoQuality)
	assert.Equal(t, "*", got.CORSOrigin)
}

func TestCreateDirectUploadProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_parameters","messages":["cors_origin is invalid"]}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{TokenID: "id", TokenSecret: "secret", BaseURL: srv.URL}, nil)
	_, err := c.CreateDirectUpload(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "cors_origin is invalid")
}

func TestClientNotConfigured(t *testing.T) {
	c := NewClient(Config{}, nil)

	assert.False(t, c.Configured())
	_, err := c.CreateDirectUpload(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, c.DeleteAsset(context.Background(), "asset-1"), ErrNotConfigured)
}

func TestDeleteAsset(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/video/v1/assets/asset-1":
			w.WriteHeader(http.StatusNoContent)
		case "/video/v1/assets/gone":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewClient(Config{TokenID: "id", TokenSecret: "secret", BaseURL: srv.URL + "/"}, nil)
	require.NoError(t, c.DeleteAsset(context.Background(), "asset-1"))
	require.NoError(t, c.DeleteAsset(context.Background(), "gone"))
	require.Error(t, c.DeleteAsset(context.Background(), "boom"))
	require.Error(t, c.DeleteAsset(context.Background(), ""))

	assert.Equal(t, []string{"/video/v1/assets/asset-1", "/video/v1/assets/gone", "/video/v1/assets/boom"}, paths)
}
