package service

import (
	"context"
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

// ClaimService handles claim submission and review.
type ClaimService struct {
	repos      repository.Repositories
	tx         repository.TxManager
	documents  documentKeeper
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// ClaimDependencies bundles collaborators for the claim service.
type ClaimDependencies struct {
	Repos        repository.Repositories
	Tx           repository.TxManager
	Store        storage.Store
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	MaxDocuments int
}

// SubmitClaimInput describes a claim submission.
type SubmitClaimInput struct {
	PolicyID  string
	Reason    string
	Documents []storage.Upload
}

// NewClaimService constructs the service.
func NewClaimService(deps ClaimDependencies) *ClaimService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClaimService{
		repos:      deps.Repos,
		tx:         deps.Tx,
		documents:  documentKeeper{store: deps.Store, maxDocuments: deps.MaxDocuments, logger: logger},
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

// SubmitClaim stores the documents and records a pending claim. Policy
// status is unchanged until the claim is reviewed.
func (s *ClaimService) SubmitClaim(ctx context.Context, identity *domain.Identity, input SubmitClaimInput) (*domain.Claim, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.PolicyID) == "" {
		return nil, apperrors.NewValidationError("policy_id is required", map[string]any{"field": "policy_id"})
	}
	if err := s.documents.validate(input.Documents); err != nil {
		return nil, err
	}

	current, err := s.repos.Policies.GetByID(ctx, input.PolicyID)
	if err != nil {
		return nil, asDomainError(err, "policy", input.PolicyID)
	}
	if !identity.IsStaff() && !identity.Owns(current.OwnerID) {
		return nil, apperrors.NewNotFound("policy", map[string]any{"id": input.PolicyID})
	}
	if current.Status.IsTerminal() {
		return nil, claimConflict(current)
	}

	docs, err := s.documents.save(ctx, current.ID, input.Documents)
	if err != nil {
		return nil, err
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
		if policy.Status.IsTerminal() {
			return claimConflict(policy)
		}
		claim = &domain.Claim{
			PolicyID:    policy.ID,
			Kind:        domain.ClaimKindPayout,
			Reason:      strings.TrimSpace(input.Reason),
			Status:      domain.ClaimStatusPending,
			SubmittedBy: &identity.UserID,
			Documents:   docs,
		}
		return repos.Claims.Create(ctx, claim)
	})
	if err != nil {
		s.documents.discard(ctx, docs)
		return nil, asDomainError(err, "policy", input.PolicyID)
	}

	s.metrics.ClaimRecorded("submitted")
	publishEvent(ctx, s.dispatcher, events.New(events.EventClaimSubmitted, policy.ID, events.ActorFrom(identity), events.ClaimSubmittedPayload{
		ClaimID:       claim.ID,
		PolicyNumber:  policy.PolicyNumber,
		ContactName:   policy.ContactName,
		ContactPhone:  policy.ContactPhone,
		DocumentCount: len(claim.Documents),
	}))
	return claim, nil
}

// ReviewClaim approves or rejects a pending claim. Approval moves the policy
// to claimed; the claim and policy rows are locked for the duration.
func (s *ClaimService) ReviewClaim(ctx context.Context, identity *domain.Identity, claimID string, approve bool) (*domain.Claim, error) {
	if err := requireStaff(identity); err != nil {
		return nil, err
	}

	var (
		claim  *domain.Claim
		policy *domain.Policy
	)
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		claim, err = repos.Claims.GetByIDForUpdate(ctx, claimID)
		if err != nil {
			return asDomainError(err, "claim", claimID)
		}
		if claim.Status != domain.ClaimStatusPending {
			return apperrors.NewConflict("claim has already been reviewed", map[string]any{
				"claim_id": claim.ID,
				"status":   claim.Status,
			})
		}

		policy, err = repos.Policies.GetByIDForUpdate(ctx, claim.PolicyID)
		if err != nil {
			return asDomainError(err, "policy", claim.PolicyID)
		}

		now := time.Now().UTC()
		claim.ReviewedBy = &identity.UserID
		claim.ReviewedAt = &now
		claim.Status = domain.ClaimStatusRejected
		if approve {
			if !policy.Status.CanTransitionTo(domain.PolicyStatusClaimed) {
				return transitionConflict(policy, domain.PolicyStatusClaimed)
			}
			policy.Status = domain.PolicyStatusClaimed
			if err := repos.Policies.Update(ctx, policy); err != nil {
				return err
			}
			claim.Status = domain.ClaimStatusApproved
		}
		return repos.Claims.Update(ctx, claim)
	})
	if err != nil {
		return nil, asDomainError(err, "claim", claimID)
	}

	s.metrics.ClaimRecorded(string(claim.Status))
	publishEvent(ctx, s.dispatcher, events.New(events.EventClaimReviewed, policy.ID, events.ActorFrom(identity), events.ClaimReviewedPayload{
		ClaimID:      claim.ID,
		PolicyNumber: policy.PolicyNumber,
		Status:       claim.Status,
		ContactName:  policy.ContactName,
		ContactPhone: policy.ContactPhone,
	}))
	return claim, nil
}

func claimConflict(policy *domain.Policy) error {
	return apperrors.NewConflict("claims cannot be submitted for a closed policy", map[string]any{
		"policy_id": policy.ID,
		"status":    policy.Status,
	})
}
