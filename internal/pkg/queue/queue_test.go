package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, cleanup
}

func TestNewQueue(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "test_queue")

	assert.NotNil(t, q)
	assert.Equal(t, "test_queue", q.queueName)
	assert.Equal(t, client, q.client)
}

func TestQueue_Push(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "test_queue")
	ctx := context.Background()

	t.Run("push single message", func(t *testing.T) {
		msg := &JobMessage{
			JobID:   1,
			DealID:  100,
			UserID:  10,
			JobType: "parse_contract",
		}

		err := q.Push(ctx, msg)
		require.NoError(t, err)

		length, err := q.Length(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), length)
	})

	t.Run("push multiple messages", func(t *testing.T) {
		client.Del(ctx, "test_queue2")

		q2 := NewQueue(client, "test_queue2")

		for i := 0; i < 5; i++ {
			msg := &JobMessage{
				JobID: int64(i),
			}
			err := q2.Push(ctx, msg)
			require.NoError(t, err)
		}

		length, err := q2.Length(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5), length)
	})
}

func TestQueue_Pop(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("pop from queue with messages", func(t *testing.T) {
		q := NewQueue(client, "test_pop_queue")

		msg := &JobMessage{
			JobID:     42,
			DealID:    200,
			UserID:    20,
			JobType:   "generate_version",
			CRID:      7,
			VersionID: 3,
		}

		err := q.Push(ctx, msg)
		require.NoError(t, err)

		result, err := q.Pop(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, result)

		assert.Equal(t, int64(42), result.JobID)
		assert.Equal(t, int64(200), result.DealID)
		assert.Equal(t, int64(20), result.UserID)
		assert.Equal(t, "generate_version", result.JobType)
		assert.Equal(t, int64(7), result.CRID)
		assert.Equal(t, int64(3), result.VersionID)
	})

	t.Run("pop FIFO order", func(t *testing.T) {
		q := NewQueue(client, "test_fifo_queue")

		for i := 1; i <= 3; i++ {
			msg := &JobMessage{JobID: int64(i)}
			err := q.Push(ctx, msg)
			require.NoError(t, err)
		}

		for i := 1; i <= 3; i++ {
			result, err := q.Pop(ctx, time.Second)
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, int64(i), result.JobID)
		}
	})

	t.Run("pop from empty queue times out", func(t *testing.T) {
		q := NewQueue(client, "test_empty_queue")

		result, err := q.Pop(ctx, 10*time.Millisecond)

		// miniredis 对 BRPop 超时的支持不完整，nil 或 error 都可接受
		if err == nil {
			assert.Nil(t, result)
		}
	})
}

func TestQueue_RoundTrip(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	q := NewQueue(client, "test_roundtrip")

	original := &JobMessage{
		JobID:        999,
		DealID:       888,
		UserID:       777,
		JobType:      "generate_initial_contract",
		TemplateSlug: "far_bar_asis",
		DealDetails:  []byte(`{"buyer_name":"John Smith"}`),
	}

	err := q.Push(ctx, original)
	require.NoError(t, err)

	result, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, original.JobID, result.JobID)
	assert.Equal(t, original.DealID, result.DealID)
	assert.Equal(t, original.UserID, result.UserID)
	assert.Equal(t, original.JobType, result.JobType)
	assert.Equal(t, original.TemplateSlug, result.TemplateSlug)
	assert.JSONEq(t, string(original.DealDetails), string(result.DealDetails))
}

func TestQueue_MultipleQueues(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()

	q1 := NewQueue(client, "queue_1")
	q2 := NewQueue(client, "queue_2")

	err := q1.Push(ctx, &JobMessage{JobID: 1})
	require.NoError(t, err)

	err = q2.Push(ctx, &JobMessage{JobID: 2})
	require.NoError(t, err)

	len1, _ := q1.Length(ctx)
	len2, _ := q2.Length(ctx)
	assert.Equal(t, int64(1), len1)
	assert.Equal(t, int64(1), len2)

	result1, _ := q1.Pop(ctx, time.Second)
	result2, _ := q2.Pop(ctx, time.Second)

	assert.Equal(t, int64(1), result1.JobID)
	assert.Equal(t, int64(2), result2.JobID)
}
