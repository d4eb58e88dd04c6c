package handlers

import (
	"github.com/bongitrade/policy-service/internal/api/dto"
	"github.com/bongitrade/policy-service/internal/domain"
)

const dateLayout = "2006-01-02"

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:       user.ID,
		Name:     user.Name,
		Username: user.Username,
		Email:    user.Email,
		Phone:    user.Phone,
		Role:     string(user.Role),
	}
}

func policyResponse(policy *domain.Policy) dto.PolicyResponse {
	resp := dto.PolicyResponse{
		ID:                 policy.ID,
		PolicyNumber:       policy.PolicyNumber,
		OwnerID:            policy.OwnerID,
		PolicyType:         policy.PolicyType,
		Status:             policy.Status,
		ContactName:        policy.ContactName,
		ContactPhone:       policy.ContactPhone,
		DeactivationReason: policy.DeactivationReason,
		DeactivatedAt:      policy.DeactivatedAt,
		CreatedAt:          policy.CreatedAt,
		UpdatedAt:          policy.UpdatedAt,
	}
	if policy.PremiumCents != nil {
		amount := float64(*policy.PremiumCents) / 100
		resp.PremiumAmount = &amount
	}
	if policy.StartDate != nil {
		date := policy.StartDate.Format(dateLayout)
		resp.StartDate = &date
	}
	return resp
}

func beneficiaryResponses(beneficiaries []domain.Beneficiary) []dto.BeneficiaryResponse {
	resp := make([]dto.BeneficiaryResponse, 0, len(beneficiaries))
	for _, b := range beneficiaries {
		resp = append(resp, dto.BeneficiaryResponse{
			ID:       b.ID,
			Name:     b.Name,
			Relation: b.Relation,
			IDNumber: b.IDNumber,
		})
	}
	return resp
}

func claimResponse(claim *domain.Claim) dto.ClaimResponse {
	docs := make([]dto.DocumentResponse, 0, len(claim.Documents))
	for _, doc := range claim.Documents {
		docs = append(docs, dto.DocumentResponse{
			ID:          doc.ID,
			FileName:    doc.FileName,
			ContentType: doc.ContentType,
			SizeBytes:   doc.SizeBytes,
		})
	}
	return dto.ClaimResponse{
		ID:          claim.ID,
		PolicyID:    claim.PolicyID,
		Kind:        claim.Kind,
		Reason:      claim.Reason,
		Status:      claim.Status,
		SubmittedBy: claim.SubmittedBy,
		SubmittedAt: claim.SubmittedAt,
		ReviewedBy:  claim.ReviewedBy,
		ReviewedAt:  claim.ReviewedAt,
		Documents:   docs,
	}
}
