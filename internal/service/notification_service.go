package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bongitrade/policy-service/internal/events"
	"github.com/bongitrade/policy-service/internal/notify"
	"github.com/bongitrade/policy-service/internal/observability"
)

// errNoContactPhone marks an intent skipped because the policy has no phone.
var errNoContactPhone = errors.New("no contact phone")

// NotificationService turns lifecycle events into queued SMS intents.
// Enqueue failures are logged and never reach the operation that published.
// Payment reminders are queued through QueuePaymentReminder so the caller
// can count what was accepted.
type NotificationService struct {
	dispatcher events.Dispatcher
	queue      notify.Queue
	logger     *zap.Logger
	metrics    *observability.Metrics
	brand      string
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, queue notify.Queue, brand string, logger *zap.Logger, metrics *observability.Metrics) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		queue:      queue,
		logger:     logger,
		metrics:    metrics,
		brand:      brand,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventPolicyCreated, n.handlePolicyCreated)
	n.dispatcher.Subscribe(events.EventPolicyActivated, n.handlePolicyActivated)
	n.dispatcher.Subscribe(events.EventPolicyDeactivated, n.handlePolicyDeactivated)
	n.dispatcher.Subscribe(events.EventClaimSubmitted, n.handleClaimSubmitted)
	n.dispatcher.Subscribe(events.EventClaimReviewed, n.handleClaimReviewed)
}

func (n *NotificationService) handlePolicyCreated(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.PolicyCreatedPayload)
	if !ok {
		return payloadError(event)
	}
	body := fmt.Sprintf("Hello %s, your %s policy (No: %s) has been created successfully. Welcome to %s.",
		greetingName(p.ContactName), p.PolicyType, p.PolicyNumber, n.brand)
	_ = n.enqueue(ctx, event, p.ContactPhone, body)
	return nil
}

func (n *NotificationService) handlePolicyActivated(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.PolicyActivatedPayload)
	if !ok {
		return payloadError(event)
	}
	body := fmt.Sprintf("Your %s policy (#%s) is active. Thank you for trusting us.", n.brand, p.PolicyNumber)
	_ = n.enqueue(ctx, event, p.ContactPhone, body)
	return nil
}

func (n *NotificationService) handlePolicyDeactivated(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.PolicyDeactivatedPayload)
	if !ok {
		return payloadError(event)
	}
	body := fmt.Sprintf("Your policy %s has been deactivated. Reason: %s", p.PolicyNumber, p.Reason)
	_ = n.enqueue(ctx, event, p.ContactPhone, body)
	return nil
}

func (n *NotificationService) handleClaimSubmitted(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.ClaimSubmittedPayload)
	if !ok {
		return payloadError(event)
	}
	body := fmt.Sprintf("We have received your claim on policy %s with %d document(s). We will contact you once it has been reviewed.",
		p.PolicyNumber, p.DocumentCount)
	_ = n.enqueue(ctx, event, p.ContactPhone, body)
	return nil
}

func (n *NotificationService) handleClaimReviewed(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.ClaimReviewedPayload)
	if !ok {
		return payloadError(event)
	}
	body := fmt.Sprintf("Your claim on policy %s has been %s.", p.PolicyNumber, p.Status)
	_ = n.enqueue(ctx, event, p.ContactPhone, body)
	return nil
}

// QueuePaymentReminder enqueues the reminder SMS for a
// payment_reminder_requested event. A nil error means the intent was accepted
// by the queue.
func (n *NotificationService) QueuePaymentReminder(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.PaymentReminderPayload)
	if !ok {
		return payloadError(event)
	}
	var body string
	if p.PremiumCents != nil {
		body = fmt.Sprintf("Reminder: Please pay your premium of %s for policy %s to keep your cover active.",
			FormatRand(*p.PremiumCents), p.PolicyNumber)
	} else {
		body = fmt.Sprintf("REMINDER: Dear %s, please note that your premium for policy %s is due. Please make a payment to keep your cover active.",
			greetingName(p.ContactName), p.PolicyNumber)
	}
	return n.enqueue(ctx, event, p.ContactPhone, body)
}

func (n *NotificationService) enqueue(ctx context.Context, event events.Event, to, body string) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("policy_id", event.PolicyID),
	}
	if strings.TrimSpace(to) == "" {
		n.metrics.NotificationResult("dropped")
		n.logger.Warn("notification skipped: no contact phone", fields...)
		return errNoContactPhone
	}
	msg := notify.Message{
		ID:         uuid.NewString(),
		Kind:       string(event.Type),
		To:         to,
		Body:       body,
		PolicyID:   event.PolicyID,
		EnqueuedAt: event.Timestamp,
	}
	if err := n.queue.Enqueue(ctx, msg); err != nil {
		n.metrics.NotificationResult("dropped")
		n.logger.Error("notification enqueue failed", append(fields, zap.Error(err))...)
		return err
	}
	n.metrics.NotificationResult("queued")
	return nil
}

// FormatRand renders cents as a rand amount, e.g. 15050 -> R150.50.
func FormatRand(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%sR%d.%02d", sign, cents/100, cents%100)
}

func greetingName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "client"
	}
	return name
}

func payloadError(event events.Event) error {
	return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
}
