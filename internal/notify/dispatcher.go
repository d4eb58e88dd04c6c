package notify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bongitrade/policy-service/internal/observability"
)

const (
	drainTimeout  = 5 * time.Second
	errorBackoff  = time.Second
	defaultWorker = 1
)

type drainer interface {
	TryDequeue() (Message, bool)
}

// Dispatcher drains a Queue with a fixed pool of workers. Each message is
// attempted once; failures are logged and counted, never retried.
type Dispatcher struct {
	queue       Queue
	gateway     Gateway
	workers     int
	sendTimeout time.Duration
	logger      *zap.Logger
	metrics     *observability.Metrics
}

func NewDispatcher(queue Queue, gateway Gateway, workers int, sendTimeout time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Dispatcher {
	if workers <= 0 {
		workers = defaultWorker
	}
	return &Dispatcher{
		queue:       queue,
		gateway:     gateway,
		workers:     workers,
		sendTimeout: sendTimeout,
		logger:      logger,
		metrics:     metrics,
	}
}

// Run blocks until ctx is cancelled. In-process queues are then drained
// best-effort within a short deadline.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		worker := i
		g.Go(func() error {
			d.loop(gctx, worker)
			return nil
		})
	}
	err := g.Wait()

	if q, ok := d.queue.(drainer); ok {
		d.drain(q)
	}
	return err
}

func (d *Dispatcher) loop(ctx context.Context, worker int) {
	for {
		msg, err := d.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Error("notification dequeue failed", zap.Int("worker", worker), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(errorBackoff):
			}
			continue
		}
		d.deliver(context.WithoutCancel(ctx), msg)
	}
}

func (d *Dispatcher) drain(q drainer) {
	deadline := time.Now().Add(drainTimeout)
	for time.Now().Before(deadline) {
		msg, ok := q.TryDequeue()
		if !ok {
			return
		}
		d.deliver(context.Background(), msg)
	}
	d.logger.Warn("notification drain deadline reached")
}

func (d *Dispatcher) deliver(parent context.Context, msg Message) {
	ctx := parent
	if d.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, d.sendTimeout)
		defer cancel()
	}

	err := d.gateway.Send(ctx, msg.To, msg.Body)
	fields := []zap.Field{
		zap.String("notification_id", msg.ID),
		zap.String("kind", msg.Kind),
		zap.String("to", msg.To),
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			fields = append(fields, zap.Duration("timeout", d.sendTimeout))
		}
		d.metrics.NotificationResult("failed")
		d.logger.Error("notification send failed", append(fields, zap.Error(err))...)
		return
	}
	d.metrics.NotificationResult("sent")
	d.logger.Info("notification sent", fields...)
}
