package dto

import (
	"time"

	"github.com/bongitrade/policy-service/internal/domain"
)

// ReviewClaimRequest payload.
type ReviewClaimRequest struct {
	Approve *bool `json:"approve"`
}

// ClaimResponse is the public view of a claim.
type ClaimResponse struct {
	ID          string             `json:"id"`
	PolicyID    string             `json:"policy_id"`
	Kind        domain.ClaimKind   `json:"kind"`
	Reason      string             `json:"reason"`
	Status      domain.ClaimStatus `json:"status"`
	SubmittedBy *string            `json:"submitted_by"`
	SubmittedAt time.Time          `json:"submitted_at"`
	ReviewedBy  *string            `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time         `json:"reviewed_at,omitempty"`
	Documents   []DocumentResponse `json:"documents"`
}

// DocumentResponse metadata.
type DocumentResponse struct {
	ID          string `json:"id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// DeactivationResponse reports the deactivated policy and its recorded claim.
type DeactivationResponse struct {
	Policy PolicyResponse `json:"policy"`
	Claim  ClaimResponse  `json:"claim"`
}
