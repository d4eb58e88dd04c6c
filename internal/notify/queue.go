package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQueueFull is returned by MemoryQueue when the buffer is exhausted.
var ErrQueueFull = errors.New("notification queue full")

// Message is one notification intent.
type Message struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	To         string    `json:"to"`
	Body       string    `json:"body"`
	PolicyID   string    `json:"policy_id,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Queue buffers intents between request handling and delivery. Dequeue
// blocks until a message is available or ctx is done.
type Queue interface {
	Enqueue(ctx context.Context, msg Message) error
	Dequeue(ctx context.Context) (Message, error)
}

// MemoryQueue is an in-process buffered channel. Messages are lost on restart.
type MemoryQueue struct {
	ch    chan Message
	block bool
}

func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 1
	}
	return &MemoryQueue{ch: make(chan Message, size)}
}

// NewBlockingMemoryQueue returns a MemoryQueue whose Enqueue waits for room
// instead of failing with ErrQueueFull. A consumer must be running.
func NewBlockingMemoryQueue(size int) *MemoryQueue {
	q := NewMemoryQueue(size)
	q.block = true
	return q
}

// Enqueue never blocks unless the queue was built with NewBlockingMemoryQueue.
func (q *MemoryQueue) Enqueue(ctx context.Context, msg Message) error {
	if q.block {
		select {
		case q.ch <- msg:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case q.ch <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (Message, error) {
	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case msg := <-q.ch:
		return msg, nil
	}
}

// TryDequeue returns immediately; ok is false when the queue is empty.
func (q *MemoryQueue) TryDequeue() (Message, bool) {
	select {
	case msg := <-q.ch:
		return msg, true
	default:
		return Message{}, false
	}
}

// Len reports buffered messages.
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

// RedisQueue stores intents in a Redis list: LPUSH to enqueue, BRPOP to consume.
type RedisQueue struct {
	client      redis.UniversalClient
	key         string
	pollTimeout time.Duration
}

func NewRedisQueue(client redis.UniversalClient, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key, pollTimeout: 2 * time.Second}
}

func (q *RedisQueue) Enqueue(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// Dequeue polls with BRPOP so ctx cancellation is observed between polls.
func (q *RedisQueue) Dequeue(ctx context.Context) (Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}
		res, err := q.client.BRPop(ctx, q.pollTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return Message{}, ctx.Err()
			}
			return Message{}, fmt.Errorf("dequeue notification: %w", err)
		}
		// BRPOP returns [key, value]
		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			return Message{}, fmt.Errorf("decode notification: %w", err)
		}
		return msg, nil
	}
}
