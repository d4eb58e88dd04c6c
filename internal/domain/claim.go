package domain

import "time"

// ClaimStatus enumerates review states for claims.
type ClaimStatus string

const (
	ClaimStatusPending  ClaimStatus = "pending"
	ClaimStatusApproved ClaimStatus = "approved"
	ClaimStatusRejected ClaimStatus = "rejected"
)

// ClaimKind distinguishes client payout claims from staff deactivations.
type ClaimKind string

const (
	ClaimKindPayout       ClaimKind = "claim"
	ClaimKindDeactivation ClaimKind = "deactivation"
)

// Claim records a request to act on a policy, backed by documents.
type Claim struct {
	ID          string
	PolicyID    string
	Kind        ClaimKind
	Reason      string
	Status      ClaimStatus
	SubmittedBy *string
	SubmittedAt time.Time
	ReviewedBy  *string
	ReviewedAt  *time.Time
	Documents   []Document
}

// Document references one stored upload attached to a claim.
type Document struct {
	ID          string
	ClaimID     string
	Position    int
	StorageKey  string
	FileName    string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
}
