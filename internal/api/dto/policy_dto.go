package dto

import (
	"time"

	"github.com/bongitrade/policy-service/internal/domain"
)

// BeneficiaryRequest is one beneficiary in a create request.
type BeneficiaryRequest struct {
	Name     string  `json:"name"`
	Relation string  `json:"relation"`
	IDNumber *string `json:"id_number"`
}

// CreatePolicyRequest payload. PremiumAmount is in rand, StartDate is
// YYYY-MM-DD or RFC3339. OwnerID is only honoured for staff callers.
type CreatePolicyRequest struct {
	PolicyType    string               `json:"policy_type"`
	PremiumAmount *float64             `json:"premium_amount"`
	StartDate     *string              `json:"start_date"`
	ContactName   string               `json:"contact_name"`
	ContactPhone  string               `json:"contact_phone"`
	OwnerID       *string              `json:"owner_id"`
	Beneficiaries []BeneficiaryRequest `json:"beneficiaries"`
}

// ReminderRequest payload. A nil PolicyID targets every active policy.
type ReminderRequest struct {
	PolicyID *string `json:"policy_id"`
}

// ReminderResponse reports how many reminders were queued.
type ReminderResponse struct {
	Queued int `json:"queued"`
}

// PolicyResponse is the public view of a policy.
type PolicyResponse struct {
	ID                 string              `json:"id"`
	PolicyNumber       string              `json:"policy_number"`
	OwnerID            *string             `json:"owner_id"`
	PolicyType         string              `json:"policy_type"`
	PremiumAmount      *float64            `json:"premium_amount"`
	Status             domain.PolicyStatus `json:"status"`
	ContactName        string              `json:"contact_name"`
	ContactPhone       string              `json:"contact_phone"`
	StartDate          *string             `json:"start_date"`
	DeactivationReason *string             `json:"deactivation_reason,omitempty"`
	DeactivatedAt      *time.Time          `json:"deactivated_at,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// BeneficiaryResponse is the public view of a beneficiary.
type BeneficiaryResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Relation string  `json:"relation"`
	IDNumber *string `json:"id_number,omitempty"`
}

// PolicyDetailResponse is a policy with its beneficiaries and claims.
type PolicyDetailResponse struct {
	Policy        PolicyResponse        `json:"policy"`
	Beneficiaries []BeneficiaryResponse `json:"beneficiaries"`
	Claims        []ClaimResponse       `json:"claims"`
}

// CreatePolicyResponse is returned on successful creation.
type CreatePolicyResponse struct {
	ID            string                `json:"id"`
	PolicyNumber  string                `json:"policy_number"`
	Status        domain.PolicyStatus   `json:"status"`
	Beneficiaries []BeneficiaryResponse `json:"beneficiaries"`
}
