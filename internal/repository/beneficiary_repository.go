package repository

import (
	"context"

	"github.com/bongitrade/policy-service/internal/domain"
)

// BeneficiaryRepository persists the parties attached to a policy.
type BeneficiaryRepository interface {
	Create(ctx context.Context, beneficiary *domain.Beneficiary) error
	ListByPolicy(ctx context.Context, policyID string) ([]domain.Beneficiary, error)
}

type beneficiaryRepository struct {
	db Querier
}

func (r *beneficiaryRepository) Create(ctx context.Context, beneficiary *domain.Beneficiary) error {
	const query = `
        INSERT INTO beneficiaries (policy_id, name, relation, id_number)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		beneficiary.PolicyID,
		beneficiary.Name,
		beneficiary.Relation,
		beneficiary.IDNumber,
	).Scan(&beneficiary.ID, &beneficiary.CreatedAt)
	return translate(err)
}

func (r *beneficiaryRepository) ListByPolicy(ctx context.Context, policyID string) ([]domain.Beneficiary, error) {
	const query = `
        SELECT id, policy_id, name, relation, id_number, created_at
        FROM beneficiaries WHERE policy_id=$1
        ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, query, policyID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	beneficiaries := make([]domain.Beneficiary, 0)
	for rows.Next() {
		var b domain.Beneficiary
		if err := rows.Scan(&b.ID, &b.PolicyID, &b.Name, &b.Relation, &b.IDNumber, &b.CreatedAt); err != nil {
			return nil, err
		}
		beneficiaries = append(beneficiaries, b)
	}
	return beneficiaries, translate(rows.Err())
}
