package worker

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bongitrade/policy-service/internal/config"
	"github.com/bongitrade/policy-service/internal/notify"
	"github.com/bongitrade/policy-service/internal/observability"
	"github.com/bongitrade/policy-service/internal/service"
)

// NotificationWorker turns lifecycle events into SMS intents and drains
// them through the configured gateway.
type NotificationWorker struct {
	dispatcher *notify.Dispatcher
	logger     *zap.Logger
}

// NewQueue selects the notification queue backend.
func NewQueue(cfg config.NotificationConfig, client redis.UniversalClient) notify.Queue {
	if cfg.QueueDriver == "memory" || client == nil {
		if cfg.BlockWhenFull {
			return notify.NewBlockingMemoryQueue(cfg.QueueBuffer)
		}
		return notify.NewMemoryQueue(cfg.QueueBuffer)
	}
	return notify.NewRedisQueue(client, cfg.QueueKey)
}

// NewGateway selects the SMS provider.
func NewGateway(cfg config.SMSConfig, logger *zap.Logger) notify.Gateway {
	if cfg.Provider == "twilio" {
		return notify.NewTwilioGateway(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.FromNumber, logger)
	}
	return notify.NewLogGateway(logger)
}

// StartNotificationWorker subscribes the notification handlers. Call Run to
// start delivering.
func StartNotificationWorker(notificationService *service.NotificationService, queue notify.Queue, gateway notify.Gateway, cfg config.NotificationConfig, logger *zap.Logger, metrics *observability.Metrics) *NotificationWorker {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	return &NotificationWorker{
		dispatcher: notify.NewDispatcher(queue, gateway, cfg.Workers, cfg.SendTimeout(), logger, metrics),
		logger:     logger,
	}
}

// Run delivers queued notifications until ctx is cancelled.
func (w *NotificationWorker) Run(ctx context.Context) error {
	w.logger.Info("notification worker started")
	defer w.logger.Info("notification worker stopped")
	return w.dispatcher.Run(ctx)
}
