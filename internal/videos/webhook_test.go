package videos

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachhub/backend/internal/models"
	"github.com/coachhub/backend/pkg/mux"
)

const testSecret = "whsec_test"

var webhookNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

func newWebhookRouter(events EventHandler, secret string) *gin.Engine {
	h := NewWebhookHandler(events, secret, nil)
	h.SetClock(func() time.Time { return webhookNow })
	r := gin.New()
	r.POST("/mux/webhook", h.Receive)
	return r
}

func deliver(r *gin.Engine, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/mux/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(mux.SignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type recordingEvents struct {
	events []mux.Event
	err    error
	panic  bool
}

func (r *recordingEvents) HandleEvent(_ context.Context, ev mux.Event) error {
	if r.panic {
		panic("boom")
	}
	r.events = append(r.events, ev)
	return r.err
}

const readyBody = `{"type":"video.asset.ready","data":{"id":"asset-1","upload_id":"up-1","playback_ids":[{"id":"pb-1","policy":"public"}],"duration":120.5,"aspect_ratio":"16:9"}}`

func TestWebhookAppliesSignedEvent(t *testing.T) {
	store := newMemStore()
	v := store.put(models.Video{
		OwnerProfileID: uuid.New(), MuxUploadID: "up-1", MuxAssetID: ptr("asset-1"),
		Status: models.VideoStatusProcessing, Title: "t", CreatedAt: t0,
	})
	svc := NewService(store, fakeProfiles{}, nil, nil, nil)
	r := newWebhookRouter(svc, testSecret)

	w := deliver(r, readyBody, mux.SignatureFor([]byte(readyBody), testSecret, webhookNow))
	require.Equal(t, http.StatusOK, w.Code)

	got, err := store.GetByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VideoStatusReady, got.Status)
	assert.Equal(t, "pb-1", *got.MuxPlaybackID)
	assert.Equal(t, 120.5, *got.Duration)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	events := &recordingEvents{}
	r := newWebhookRouter(events, testSecret)

	cases := map[string]string{
		"missing":    "",
		"wrong key":  mux.SignatureFor([]byte(readyBody), "other", webhookNow),
		"stale":      mux.SignatureFor([]byte(readyBody), testSecret, webhookNow.Add(-time.Hour)),
		"malformed":  "v1=abc",
		"other body": mux.SignatureFor([]byte(`{}`), testSecret, webhookNow),
	}
	for name, sig := range cases {
		t.Run(name, func(t *testing.T) {
			w := deliver(r, readyBody, sig)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "invalid signature")
		})
	}
	assert.Empty(t, events.events)
}

func TestWebhookWithoutSecret(t *testing.T) {
	events := &recordingEvents{}
	r := newWebhookRouter(events, "")

	w := deliver(r, readyBody, mux.SignatureFor([]byte(readyBody), "", webhookNow))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, events.events)
}

func TestWebhookAcknowledgesAfterVerification(t *testing.T) {
	cases := map[string]struct {
		body   string
		events *recordingEvents
		seen   int
	}{
		"unknown type": {body: `{"type":"video.upload.cancelled","data":{"id":"up-1"}}`, events: &recordingEvents{}, seen: 1},
		"undecodable":  {body: `not json`, events: &recordingEvents{}, seen: 0},
		"handler error": {
			body:   readyBody,
			events: &recordingEvents{err: assert.AnError},
			seen:   1,
		},
		"handler panic": {body: readyBody, events: &recordingEvents{panic: true}, seen: 0},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := newWebhookRouter(tc.events, testSecret)
			w := deliver(r, tc.body, mux.SignatureFor([]byte(tc.body), testSecret, webhookNow))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), `"received":true`)
			assert.Len(t, tc.events.events, tc.seen)
		})
	}
}
