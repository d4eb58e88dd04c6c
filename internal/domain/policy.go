package domain

import "time"

// PolicyStatus enumerates lifecycle states for policies.
type PolicyStatus string

const (
	PolicyStatusPending     PolicyStatus = "pending"
	PolicyStatusActive      PolicyStatus = "active"
	PolicyStatusDeactivated PolicyStatus = "deactivated"
	PolicyStatusClaimed     PolicyStatus = "claimed"
)

var policyTransitions = map[PolicyStatus][]PolicyStatus{
	PolicyStatusPending:     {PolicyStatusActive, PolicyStatusDeactivated},
	PolicyStatusActive:      {PolicyStatusDeactivated, PolicyStatusClaimed},
	PolicyStatusDeactivated: {},
	PolicyStatusClaimed:     {},
}

// Valid reports whether s is a known status.
func (s PolicyStatus) Valid() bool {
	_, ok := policyTransitions[s]
	return ok
}

// IsTerminal reports whether no further transition is possible.
func (s PolicyStatus) IsTerminal() bool {
	return s.Valid() && len(policyTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s PolicyStatus) CanTransitionTo(next PolicyStatus) bool {
	for _, candidate := range policyTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Policy is the insurance contract aggregate.
type Policy struct {
	ID                 string
	PolicyNumber       string
	OwnerID            *string
	PolicyType         string
	PremiumCents       *int64
	Status             PolicyStatus
	ContactName        string
	ContactPhone       string
	StartDate          *time.Time
	CreatedBy          *string
	DeactivationReason *string
	DeactivatedAt      *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Beneficiary is a party entitled to the payout of a policy.
type Beneficiary struct {
	ID        string
	PolicyID  string
	Name      string
	Relation  string
	IDNumber  *string
	CreatedAt time.Time
}
