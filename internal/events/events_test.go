package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/bongitrade/policy-service/internal/domain"
)

func TestDispatcherContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())
	var calls []string
	d.Subscribe(EventPolicyCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventPolicyCreated, func(context.Context, Event) error {
		calls = append(calls, "panics")
		panic("nil map")
	})
	d.Subscribe(EventPolicyCreated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventClaimSubmitted, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), New(EventPolicyCreated, "p-1", Actor{}, nil)))
	assert.Equal(t, []string{"first", "panics", "second"}, calls)
}

func TestActorFrom(t *testing.T) {
	assert.Equal(t, Actor{}, ActorFrom(nil))
	actor := ActorFrom(&domain.Identity{UserID: "u-1", Role: domain.RoleEmployee})
	require.NotNil(t, actor.UserID)
	assert.Equal(t, "u-1", *actor.UserID)
	assert.Equal(t, domain.RoleEmployee, actor.Role)
}

type fakeProducer struct {
	records []*kgo.Record
	flushed bool
	closed  bool
}

func (f *fakeProducer) Produce(_ context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
	f.records = append(f.records, r)
	promise(r, nil)
}

func (f *fakeProducer) Flush(context.Context) error {
	f.flushed = true
	return nil
}

func (f *fakeProducer) Close() { f.closed = true }

func TestKafkaSink(t *testing.T) {
	p := &fakeProducer{}
	sink := &KafkaSink{client: p, logger: zap.NewNop()}
	d := NewInMemoryDispatcher(zap.NewNop())
	sink.Register(d)

	event := New(EventPolicyDeactivated, "p-9", Actor{Role: domain.RoleAdmin}, PolicyDeactivatedPayload{PolicyNumber: "POL-1", Reason: "deceased"})
	require.NoError(t, d.Publish(context.Background(), event))

	require.Len(t, p.records, 1)
	assert.Equal(t, []byte("p-9"), p.records[0].Key)
	assert.Equal(t, "event_type", p.records[0].Headers[0].Key)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(p.records[0].Value, &decoded))
	assert.Equal(t, "policy_deactivated", decoded["type"])

	sink.Close(context.Background())
	assert.True(t, p.flushed)
	assert.True(t, p.closed)
}
