package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/bongitrade/policy-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventPolicyCreated            EventType = "policy_created"
	EventPolicyActivated          EventType = "policy_activated"
	EventPolicyDeactivated        EventType = "policy_deactivated"
	EventClaimSubmitted           EventType = "claim_submitted"
	EventClaimReviewed            EventType = "claim_reviewed"
	EventPaymentReminderRequested EventType = "payment_reminder_requested"
)

// AllEventTypes lists every published event type.
var AllEventTypes = []EventType{
	EventPolicyCreated,
	EventPolicyActivated,
	EventPolicyDeactivated,
	EventClaimSubmitted,
	EventClaimReviewed,
	EventPaymentReminderRequested,
}

// Actor encapsulates actor metadata for an event. Public self-service
// requests have no actor.
type Actor struct {
	UserID *string     `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// ActorFrom converts an identity; nil yields the zero Actor.
func ActorFrom(identity *domain.Identity) Actor {
	if identity == nil {
		return Actor{}
	}
	id := identity.UserID
	return Actor{UserID: &id, Role: identity.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	PolicyID  string    `json:"policy_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, policyID string, actor Actor, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		PolicyID:  policyID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// PolicyCreatedPayload payload.
type PolicyCreatedPayload struct {
	PolicyNumber     string              `json:"policy_number"`
	PolicyType       string              `json:"policy_type"`
	Status           domain.PolicyStatus `json:"status"`
	ContactName      string              `json:"contact_name"`
	ContactPhone     string              `json:"contact_phone"`
	BeneficiaryCount int                 `json:"beneficiary_count"`
}

// PolicyActivatedPayload payload.
type PolicyActivatedPayload struct {
	PolicyNumber string `json:"policy_number"`
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
}

// PolicyDeactivatedPayload payload.
type PolicyDeactivatedPayload struct {
	PolicyNumber string `json:"policy_number"`
	ClaimID      string `json:"claim_id"`
	Reason       string `json:"reason"`
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
}

// ClaimSubmittedPayload payload.
type ClaimSubmittedPayload struct {
	ClaimID       string `json:"claim_id"`
	PolicyNumber  string `json:"policy_number"`
	ContactName   string `json:"contact_name"`
	ContactPhone  string `json:"contact_phone"`
	DocumentCount int    `json:"document_count"`
}

// ClaimReviewedPayload payload.
type ClaimReviewedPayload struct {
	ClaimID      string             `json:"claim_id"`
	PolicyNumber string             `json:"policy_number"`
	Status       domain.ClaimStatus `json:"status"`
	ContactName  string             `json:"contact_name"`
	ContactPhone string             `json:"contact_phone"`
}

// PaymentReminderPayload payload.
type PaymentReminderPayload struct {
	PolicyNumber string `json:"policy_number"`
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
	PremiumCents *int64 `json:"premium_cents,omitempty"`
}
