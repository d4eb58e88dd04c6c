package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/bongitrade/policy-service/internal/observability"
)

type recordingGateway struct {
	mu    sync.Mutex
	sent  []Message
	fail  map[string]error
	block bool
}

func (g *recordingGateway) Send(ctx context.Context, to, body string) error {
	if g.block {
		<-ctx.Done()
		return ctx.Err()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail[to]; err != nil {
		return err
	}
	g.sent = append(g.sent, Message{To: to, Body: body})
	return nil
}

func (g *recordingGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sent)
}

func TestMemoryQueue(t *testing.T) {
	q := NewMemoryQueue(1)
	require.NoError(t, q.Enqueue(context.Background(), Message{ID: "1"}))
	assert.ErrorIs(t, q.Enqueue(context.Background(), Message{ID: "2"}), ErrQueueFull)
	assert.Equal(t, 1, q.Len())

	msg, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", msg.ID)

	_, ok := q.TryDequeue()
	assert.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBlockingMemoryQueueWaitsForRoom(t *testing.T) {
	q := NewBlockingMemoryQueue(1)
	require.NoError(t, q.Enqueue(context.Background(), Message{ID: "1"}))

	done := make(chan error, 1)
	go func() { done <- q.Enqueue(context.Background(), Message{ID: "2"}) }()

	msg, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", msg.ID)
	require.NoError(t, <-done)
	assert.Equal(t, 1, q.Len())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(ctx, Message{ID: "3"}), context.DeadlineExceeded)
}

func TestDispatcherDeliversAtMostOnce(t *testing.T) {
	q := NewMemoryQueue(10)
	gw := &recordingGateway{fail: map[string]error{"bad": errors.New("provider down")}}
	d := NewDispatcher(q, gw, 2, time.Second, zap.NewNop(), observability.NewMetrics())

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, Message{ID: "a", To: "0711111111", Body: "hi"}))
	require.NoError(t, q.Enqueue(ctx, Message{ID: "b", To: "bad", Body: "hi"}))
	require.NoError(t, q.Enqueue(ctx, Message{ID: "c", To: "0722222222", Body: "hi"}))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- d.Run(runCtx) }()

	assert.Eventually(t, func() bool { return gw.count() == 2 && q.Len() == 0 }, time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 2, gw.count())
}

func TestDispatcherDrainsOnShutdown(t *testing.T) {
	q := NewMemoryQueue(10)
	gw := &recordingGateway{}
	d := NewDispatcher(q, gw, 1, time.Second, zap.NewNop(), nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Message{To: "0711111111", Body: "x"}))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, d.Run(ctx))
	assert.Equal(t, 3, gw.count())
}

func TestDispatcherSendTimeout(t *testing.T) {
	q := NewMemoryQueue(1)
	gw := &recordingGateway{block: true}
	d := NewDispatcher(q, gw, 1, 20*time.Millisecond, zap.NewNop(), nil)

	start := time.Now()
	d.deliver(context.Background(), Message{To: "x"})
	assert.Less(t, time.Since(start), time.Second)
}

type fakeCreator struct {
	params *twilioApi.CreateMessageParams
	err    error
	wait   chan struct{}
}

func (f *fakeCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	if f.wait != nil {
		<-f.wait
	}
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestTwilioGateway(t *testing.T) {
	api := &fakeCreator{}
	gw := &TwilioGateway{api: api, from: "+27000000000", logger: zap.NewNop()}

	require.NoError(t, gw.Send(context.Background(), "0711111111", "hello"))
	require.NotNil(t, api.params)
	assert.Equal(t, "0711111111", *api.params.To)
	assert.Equal(t, "+27000000000", *api.params.From)
	assert.Equal(t, "hello", *api.params.Body)

	assert.Error(t, gw.Send(context.Background(), "", "hello"))

	api.err = errors.New("invalid number")
	assert.ErrorIs(t, gw.Send(context.Background(), "0711111111", "hello"), api.err)
}

func TestTwilioGatewayHonoursContext(t *testing.T) {
	api := &fakeCreator{wait: make(chan struct{})}
	defer close(api.wait)
	gw := &TwilioGateway{api: api, from: "+1", logger: zap.NewNop()}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, gw.Send(ctx, "0711111111", "hello"), context.DeadlineExceeded)
}
