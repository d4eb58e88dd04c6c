//go:build integration

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/bongitrade/policy-service/internal/domain"
)

func TestKafkaSinkPublishesToTopic(t *testing.T) {
	ctx := context.Background()
	const topic = "policy-events-test"

	container, err := redpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v24.1.1")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	broker, err := container.KafkaSeedBroker(ctx)
	require.NoError(t, err)

	admin, err := kgo.NewClient(kgo.SeedBrokers(broker))
	require.NoError(t, err)
	t.Cleanup(admin.Close)
	_, err = kadm.NewClient(admin).CreateTopics(ctx, 1, 1, nil, topic)
	require.NoError(t, err)

	sink, err := NewKafkaSink([]string{broker}, topic, zap.NewNop())
	require.NoError(t, err)

	d := NewInMemoryDispatcher(zap.NewNop())
	sink.Register(d)
	actor := ActorFrom(&domain.Identity{UserID: "admin-1", Role: domain.RoleAdmin})
	require.NoError(t, d.Publish(ctx, New(EventPolicyActivated, "policy-1", actor, PolicyActivatedPayload{PolicyNumber: "POL-1"})))

	flushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	sink.Close(flushCtx)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	pollCtx, cancelPoll := context.WithTimeout(ctx, 15*time.Second)
	defer cancelPoll()
	fetches := consumer.PollFetches(pollCtx)
	require.Empty(t, fetches.Errors())

	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "policy-1", string(records[0].Key))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(records[0].Value, &decoded))
	assert.Equal(t, string(EventPolicyActivated), decoded["type"])
}
