package queue_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachhub/backend/pkg/queue"
)

func newQueue(t *testing.T) (*queue.Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return queue.NewQueue(client, nil), mr
}

func TestEnqueueDequeueAssetDelete(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()
	videoID := uuid.New()

	require.NoError(t, q.EnqueueAssetDelete(ctx, queue.AssetDeletePayload{VideoID: videoID, AssetID: "asset-1"}))

	job, key, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, queue.QueueAssets, key)
	assert.Equal(t, queue.JobTypeAssetDelete, job.Type)
	assert.Equal(t, 0, job.Attempt)

	var payload queue.AssetDeletePayload
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.Equal(t, videoID, payload.VideoID)
	assert.Equal(t, "asset-1", payload.AssetID)
}

func TestEnqueueEmailUsesEmailList(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()

	require.NoError(t, q.EnqueueEmail(ctx, queue.EmailPayload{EmailType: "verify_email", RecipientEmail: "a@example.com"}))

	n, err := q.Len(ctx, queue.QueueEmails)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	job, key, err := q.Dequeue(ctx, queue.QueueEmails)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, queue.QueueEmails, key)
	assert.Equal(t, queue.JobTypeEmail, job.Type)
}

func TestRetryMovesToDLQAfterMaxRetries(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()

	require.NoError(t, q.EnqueueAssetDelete(ctx, queue.AssetDeletePayload{AssetID: "asset-1"}))
	job, _, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)

	for i := 1; i < queue.MaxRetries; i++ {
		require.NoError(t, q.Retry(ctx, job))
		n, err := q.Len(ctx, queue.QueueAssets)
		require.NoError(t, err)
		require.Equal(t, int64(1), n, "attempt %d should go back to the asset list", i)
		job, _, err = q.Dequeue(ctx)
		require.NoError(t, err)
		require.Equal(t, i, job.Attempt)
	}

	require.NoError(t, q.Retry(ctx, job))
	assets, err := q.Len(ctx, queue.QueueAssets)
	require.NoError(t, err)
	dlq, err := q.Len(ctx, queue.QueueDLQ)
	require.NoError(t, err)
	assert.Equal(t, int64(0), assets)
	assert.Equal(t, int64(1), dlq)
}

func TestDequeueSkipsInvalidPayload(t *testing.T) {
	q, mr := newQueue(t)
	_, err := mr.Lpush(queue.QueueAssets, "not json")
	require.NoError(t, err)

	job, _, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
}
