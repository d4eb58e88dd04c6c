//go:build integration

package notify

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedisQueue(t *testing.T) {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	q := NewRedisQueue(client, "test:notifications")
	q.pollTimeout = 100 * time.Millisecond

	require.NoError(t, q.Enqueue(ctx, Message{ID: "1", To: "0711111111", Body: "first"}))
	require.NoError(t, q.Enqueue(ctx, Message{ID: "2", To: "0711111111", Body: "second"}))

	first, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", first.Body)

	second, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", second.ID)

	waitCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = q.Dequeue(waitCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
