package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bongitrade/policy-service/internal/domain"
	"github.com/bongitrade/policy-service/internal/events"
	"github.com/bongitrade/policy-service/internal/observability"
	"github.com/bongitrade/policy-service/internal/repository"
	"github.com/bongitrade/policy-service/internal/storage"
	apperrors "github.com/bongitrade/policy-service/pkg/util/errorutil"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// NumberGenerator produces candidate policy numbers.
type NumberGenerator interface {
	Next() string
}

// ReminderQueue accepts payment reminders. A nil error means the reminder
// was queued for delivery.
type ReminderQueue interface {
	QueuePaymentReminder(ctx context.Context, event events.Event) error
}

// PolicyService coordinates the policy lifecycle.
type PolicyService struct {
	repos       repository.Repositories
	tx          repository.TxManager
	numbers     NumberGenerator
	documents   documentKeeper
	dispatcher  events.Dispatcher
	reminders   ReminderQueue
	logger      *zap.Logger
	metrics     *observability.Metrics
	maxAttempts int
}

// PolicyDependencies bundles collaborators for the policy service.
type PolicyDependencies struct {
	Repos        repository.Repositories
	Tx           repository.TxManager
	Numbers      NumberGenerator
	Store        storage.Store
	Dispatcher   events.Dispatcher
	Reminders    ReminderQueue
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	MaxAttempts  int
	MaxDocuments int
}

// BeneficiaryInput describes one beneficiary on creation.
type BeneficiaryInput struct {
	Name     string
	Relation string
	IDNumber *string
}

// CreatePolicyInput describes policy creation payload. OwnerID is honoured
// only for staff callers.
type CreatePolicyInput struct {
	OwnerID       *string
	PolicyType    string
	PremiumCents  *int64
	StartDate     *time.Time
	ContactName   string
	ContactPhone  string
	Beneficiaries []BeneficiaryInput
}

// ListPoliciesInput holds staff filters and paging. Page is 1-based.
type ListPoliciesInput struct {
	Status     *domain.PolicyStatus
	PolicyType *string
	OwnerID    *string
	Page       int
	PageSize   int
}

// DeactivateInput describes a staff deactivation request.
type DeactivateInput struct {
	PolicyID  string
	Reason    string
	Documents []storage.Upload
}

// PolicyDetail is a policy with its beneficiaries and claims.
type PolicyDetail struct {
	Policy        domain.Policy
	Beneficiaries []domain.Beneficiary
	Claims        []domain.Claim
}

// NewPolicyService constructs the service.
func NewPolicyService(deps PolicyDependencies) *PolicyService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := deps.MaxAttempts
	if attempts <= 0 {
		attempts = 5
	}
	return &PolicyService{
		repos:       deps.Repos,
		tx:          deps.Tx,
		numbers:     deps.Numbers,
		documents:   documentKeeper{store: deps.Store, maxDocuments: deps.MaxDocuments, logger: logger},
		dispatcher:  deps.Dispatcher,
		reminders:   deps.Reminders,
		logger:      logger,
		metrics:     deps.Metrics,
		maxAttempts: attempts,
	}
}

// CreatePolicy validates input, allocates a policy number and stores the
// policy with its beneficiaries atomically. identity may be nil for public
// self-service requests.
func (s *PolicyService) CreatePolicy(ctx context.Context, identity *domain.Identity, input CreatePolicyInput) (*domain.Policy, []domain.Beneficiary, error) {
	policy := &domain.Policy{
		PolicyType:   strings.TrimSpace(input.PolicyType),
		PremiumCents: input.PremiumCents,
		StartDate:    input.StartDate,
		ContactName:  strings.TrimSpace(input.ContactName),
		ContactPhone: strings.TrimSpace(input.ContactPhone),
		Status:       domain.PolicyStatusPending,
	}

	switch {
	case identity.IsStaff():
		policy.Status = domain.PolicyStatusActive
		policy.CreatedBy = &identity.UserID
		policy.OwnerID = input.OwnerID
	case identity != nil:
		policy.OwnerID = &identity.UserID
	}

	if policy.OwnerID != nil && (policy.ContactPhone == "" || policy.ContactName == "") {
		if err := s.fillContactFromOwner(ctx, policy); err != nil {
			return nil, nil, err
		}
	}

	beneficiaries, err := validatePolicy(policy, input.Beneficiaries)
	if err != nil {
		return nil, nil, err
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		policy.PolicyNumber = s.numbers.Next()
		err = s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
			if err := repos.Policies.Create(ctx, policy); err != nil {
				return err
			}
			for i := range beneficiaries {
				beneficiaries[i].PolicyID = policy.ID
				if err := repos.Beneficiaries.Create(ctx, &beneficiaries[i]); err != nil {
					return fmt.Errorf("create beneficiary %d: %w", i, err)
				}
			}
			return nil
		})
		if errors.Is(err, repository.ErrDuplicatePolicyNumber) {
			s.metrics.PolicyNumberCollision()
			s.logger.Warn("policy number collision, regenerating",
				zap.String("policy_number", policy.PolicyNumber),
				zap.Int("attempt", attempt))
			continue
		}
		if errors.Is(err, repository.ErrUnknownReference) || errors.Is(err, repository.ErrInvalidID) {
			return nil, nil, apperrors.NewValidationError("owner does not exist", map[string]any{"field": "owner_id"})
		}
		if err != nil {
			return nil, nil, apperrors.NewInternalError(err)
		}

		s.metrics.PolicyCreated(string(policy.Status))
		s.publishEvent(ctx, events.New(events.EventPolicyCreated, policy.ID, events.ActorFrom(identity), events.PolicyCreatedPayload{
			PolicyNumber:     policy.PolicyNumber,
			PolicyType:       policy.PolicyType,
			Status:           policy.Status,
			ContactName:      policy.ContactName,
			ContactPhone:     policy.ContactPhone,
			BeneficiaryCount: len(beneficiaries),
		}))
		return policy, beneficiaries, nil
	}

	return nil, nil, apperrors.NewInternalError(fmt.Errorf("could not allocate a unique policy number after %d attempts", s.maxAttempts))
}

func (s *PolicyService) fillContactFromOwner(ctx context.Context, policy *domain.Policy) error {
	owner, err := s.repos.Users.GetByID(ctx, *policy.OwnerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewValidationError("owner does not exist", map[string]any{"field": "owner_id"})
		}
		return apperrors.NewInternalError(err)
	}
	if policy.ContactPhone == "" && owner.Phone != nil {
		policy.ContactPhone = strings.TrimSpace(*owner.Phone)
	}
	if policy.ContactName == "" {
		policy.ContactName = owner.Name
	}
	return nil
}

func validatePolicy(policy *domain.Policy, inputs []BeneficiaryInput) ([]domain.Beneficiary, error) {
	details := map[string]any{}
	if policy.PolicyType == "" {
		details["policy_type"] = "required"
	}
	if policy.ContactPhone == "" {
		details["contact_phone"] = "required"
	}
	if policy.PremiumCents != nil && *policy.PremiumCents < 0 {
		details["premium_amount"] = "must not be negative"
	}

	beneficiaries := make([]domain.Beneficiary, 0, len(inputs))
	for i, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			details[fmt.Sprintf("beneficiaries[%d].name", i)] = "required"
			continue
		}
		var idNumber *string
		if in.IDNumber != nil {
			if trimmed := strings.TrimSpace(*in.IDNumber); trimmed != "" {
				idNumber = &trimmed
			}
		}
		beneficiaries = append(beneficiaries, domain.Beneficiary{
			Name:     name,
			Relation: strings.TrimSpace(in.Relation),
			IDNumber: idNumber,
		})
	}

	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid policy", details)
	}
	return beneficiaries, nil
}

// ListPolicies returns the caller's policies. Clients only ever see their
// own policies whatever filters they pass.
func (s *PolicyService) ListPolicies(ctx context.Context, identity *domain.Identity, input ListPoliciesInput) ([]domain.Policy, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}

	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := input.Page
	if page <= 0 {
		page = 1
	}

	filter := repository.PolicyFilter{Limit: pageSize, Offset: (page - 1) * pageSize}
	if identity.IsStaff() {
		if input.Status != nil && !input.Status.Valid() {
			return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": *input.Status})
		}
		filter.Status = input.Status
		filter.PolicyType = input.PolicyType
		filter.OwnerID = input.OwnerID
	} else {
		ownerID := identity.UserID
		filter.OwnerID = &ownerID
	}

	policies, err := s.repos.Policies.List(ctx, filter)
	if errors.Is(err, repository.ErrInvalidID) {
		return nil, apperrors.NewValidationError("invalid owner_id filter", map[string]any{"field": "owner_id"})
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return policies, nil
}

// GetPolicyDetail loads a policy with its beneficiaries and claims. A client
// asking for someone else's policy gets NotFound.
func (s *PolicyService) GetPolicyDetail(ctx context.Context, identity *domain.Identity, policyID string) (*PolicyDetail, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	policy, err := s.visiblePolicy(ctx, identity, policyID)
	if err != nil {
		return nil, err
	}

	beneficiaries, err := s.repos.Beneficiaries.ListByPolicy(ctx, policy.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	claims, err := s.repos.Claims.ListByPolicy(ctx, policy.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &PolicyDetail{Policy: *policy, Beneficiaries: beneficiaries, Claims: claims}, nil
}

func (s *PolicyService) visiblePolicy(ctx context.Context, identity *domain.Identity, policyID string) (*domain.Policy, error) {
	policy, err := s.repos.Policies.GetByID(ctx, policyID)
	if err != nil {
		return nil, asDomainError(err, "policy", policyID)
	}
	if !identity.IsStaff() && !identity.Owns(policy.OwnerID) {
		return nil, apperrors.NewNotFound("policy", map[string]any{"id": policyID})
	}
	return policy, nil
}

// ActivatePolicy moves a pending policy to active.
func (s *PolicyService) ActivatePolicy(ctx context.Context, identity *domain.Identity, policyID string) (*domain.Policy, error) {
	if err := requireStaff(identity); err != nil {
		return nil, err
	}

	var policy *domain.Policy
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		policy, err = repos.Policies.GetByIDForUpdate(ctx, policyID)
		if err != nil {
			return err
		}
		if !policy.Status.CanTransitionTo(domain.PolicyStatusActive) {
			return transitionConflict(policy, domain.PolicyStatusActive)
		}
		policy.Status = domain.PolicyStatusActive
		return repos.Policies.Update(ctx, policy)
	})
	if err != nil {
		return nil, asDomainError(err, "policy", policyID)
	}

	s.publishEvent(ctx, events.New(events.EventPolicyActivated, policy.ID, events.ActorFrom(identity), events.PolicyActivatedPayload{
		PolicyNumber: policy.PolicyNumber,
		ContactName:  policy.ContactName,
		ContactPhone: policy.ContactPhone,
	}))
	return policy, nil
}

// DeactivatePolicy records a deactivation claim with its documents and moves
// the policy to deactivated in one transaction. A policy already in a
// terminal state yields Conflict and is left untouched.
func (s *PolicyService) DeactivatePolicy(ctx context.Context, identity *domain.Identity, input DeactivateInput) (*domain.Policy, *domain.Claim, error) {
	if err := requireStaff(identity); err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(input.PolicyID) == "" {
		return nil, nil, apperrors.NewValidationError("policy_id is required", map[string]any{"field": "policy_id"})
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, nil, apperrors.NewValidationError("reason is required", map[string]any{"field": "reason"})
	}
	if err := s.documents.validate(input.Documents); err != nil {
		return nil, nil, err
	}

	current, err := s.repos.Policies.GetByID(ctx, input.PolicyID)
	if err != nil {
		return nil, nil, asDomainError(err, "policy", input.PolicyID)
	}
	if current.Status.IsTerminal() {
		return nil, nil, transitionConflict(current, domain.PolicyStatusDeactivated)
	}

	docs, err := s.documents.save(ctx, current.ID, input.Documents)
	if err != nil {
		return nil, nil, err
	}

	var (
		policy *domain.Policy
		claim  *domain.Claim
	)
	err = s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		policy, err = repos.Policies.GetByIDForUpdate(ctx, input.PolicyID)
		if err != nil {
			return err
		}
		if !policy.Status.CanTransitionTo(domain.PolicyStatusDeactivated) {
			return transitionConflict(policy, domain.PolicyStatusDeactivated)
		}

		now := time.Now().UTC()
		policy.Status = domain.PolicyStatusDeactivated
		policy.DeactivationReason = &reason
		policy.DeactivatedAt = &now
		if err := repos.Policies.Update(ctx, policy); err != nil {
			return err
		}

		claim = &domain.Claim{
			PolicyID:    policy.ID,
			Kind:        domain.ClaimKindDeactivation,
			Reason:      reason,
			Status:      domain.ClaimStatusApproved,
			SubmittedBy: &identity.UserID,
			ReviewedBy:  &identity.UserID,
			ReviewedAt:  &now,
			Documents:   docs,
		}
		return repos.Claims.Create(ctx, claim)
	})
	if err != nil {
		s.documents.discard(ctx, docs)
		return nil, nil, asDomainError(err, "policy", input.PolicyID)
	}

	s.metrics.PolicyDeactivated()
	s.publishEvent(ctx, events.New(events.EventPolicyDeactivated, policy.ID, events.ActorFrom(identity), events.PolicyDeactivatedPayload{
		PolicyNumber: policy.PolicyNumber,
		ClaimID:      claim.ID,
		Reason:       reason,
		ContactName:  policy.ContactName,
		ContactPhone: policy.ContactPhone,
	}))
	return policy, claim, nil
}

// SendPaymentReminders queues a reminder for one active policy, or for every
// active policy when policyID is nil. It returns the number the queue
// accepted; policies without a phone or refused by a full queue are skipped.
func (s *PolicyService) SendPaymentReminders(ctx context.Context, identity *domain.Identity, policyID *string) (int, error) {
	var policies []domain.Policy
	if policyID != nil {
		policy, err := s.repos.Policies.GetByID(ctx, *policyID)
		if err != nil {
			return 0, asDomainError(err, "policy", *policyID)
		}
		if policy.Status != domain.PolicyStatusActive {
			return 0, apperrors.NewConflict("reminders are only sent for active policies", map[string]any{
				"policy_id": policy.ID,
				"status":    policy.Status,
			})
		}
		policies = []domain.Policy{*policy}
	} else {
		active := domain.PolicyStatusActive
		var err error
		policies, err = s.repos.Policies.List(ctx, repository.PolicyFilter{Status: &active})
		if err != nil {
			return 0, apperrors.NewInternalError(err)
		}
	}

	actor := events.ActorFrom(identity)
	queued := 0
	for _, policy := range policies {
		event := events.New(events.EventPaymentReminderRequested, policy.ID, actor, events.PaymentReminderPayload{
			PolicyNumber: policy.PolicyNumber,
			ContactName:  policy.ContactName,
			ContactPhone: policy.ContactPhone,
			PremiumCents: policy.PremiumCents,
		})
		s.publishEvent(ctx, event)
		if s.reminders == nil {
			continue
		}
		if err := s.reminders.QueuePaymentReminder(ctx, event); err != nil {
			continue
		}
		queued++
	}
	s.logger.Info("payment reminders requested",
		zap.Int("eligible", len(policies)),
		zap.Int("queued", queued))
	return queued, nil
}

func (s *PolicyService) publishEvent(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, event)
}

// publishEvent detaches from request cancellation so subscribers can enqueue
// after the client has gone away.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	_ = dispatcher.Publish(context.WithoutCancel(ctx), event)
}

func transitionConflict(policy *domain.Policy, target domain.PolicyStatus) error {
	return apperrors.NewConflict(
		fmt.Sprintf("policy cannot move from %s to %s", policy.Status, target),
		map[string]any{"policy_id": policy.ID, "status": policy.Status},
	)
}
