package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/bongitrade/policy-service/internal/domain"
)

// PolicyFilter captures list parameters. Nil fields are not filtered on.
type PolicyFilter struct {
	OwnerID    *string
	Status     *domain.PolicyStatus
	PolicyType *string
	Limit      int
	Offset     int
}

// PolicyRepository encapsulates policy persistence.
type PolicyRepository interface {
	Create(ctx context.Context, policy *domain.Policy) error
	Update(ctx context.Context, policy *domain.Policy) error
	GetByID(ctx context.Context, id string) (*domain.Policy, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Policy, error)
	List(ctx context.Context, filter PolicyFilter) ([]domain.Policy, error)
}

type policyRepository struct {
	db Querier
}

const policyColumns = `id, policy_number, owner_id, policy_type, premium_cents, status, contact_name, contact_phone,
               start_date, created_by, deactivation_reason, deactivated_at, created_at, updated_at`

func (r *policyRepository) Create(ctx context.Context, policy *domain.Policy) error {
	const query = `
        INSERT INTO policies (policy_number, owner_id, policy_type, premium_cents, status, contact_name, contact_phone, start_date, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		policy.PolicyNumber,
		policy.OwnerID,
		policy.PolicyType,
		policy.PremiumCents,
		policy.Status,
		policy.ContactName,
		policy.ContactPhone,
		policy.StartDate,
		policy.CreatedBy,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
	return translate(err)
}

// Update persists the mutable lifecycle fields.
func (r *policyRepository) Update(ctx context.Context, policy *domain.Policy) error {
	const query = `
        UPDATE policies SET status=$1, deactivation_reason=$2, deactivated_at=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	err := r.db.QueryRow(ctx, query,
		policy.Status,
		policy.DeactivationReason,
		policy.DeactivatedAt,
		policy.ID,
	).Scan(&policy.UpdatedAt)
	return translate(err)
}

func (r *policyRepository) GetByID(ctx context.Context, id string) (*domain.Policy, error) {
	return r.fetchSingle(ctx, `SELECT `+policyColumns+` FROM policies WHERE id=$1`, id)
}

func (r *policyRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Policy, error) {
	return r.fetchSingle(ctx, `SELECT `+policyColumns+` FROM policies WHERE id=$1 FOR UPDATE`, id)
}

func (r *policyRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Policy, error) {
	policy, err := scanPolicy(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, translate(err)
	}
	return policy, nil
}

func (r *policyRepository) List(ctx context.Context, filter PolicyFilter) ([]domain.Policy, error) {
	query, args := buildPolicyListQuery(filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	policies := make([]domain.Policy, 0)
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, *policy)
	}
	return policies, translate(rows.Err())
}

func buildPolicyListQuery(filter PolicyFilter) (string, []any) {
	var p predicates
	if filter.OwnerID != nil {
		p.add("owner_id=$%d", *filter.OwnerID)
	}
	if filter.Status != nil {
		p.add("status=$%d", *filter.Status)
	}
	if filter.PolicyType != nil {
		p.add("policy_type=$%d", *filter.PolicyType)
	}
	query := `SELECT ` + policyColumns + ` FROM policies` + p.where() + ` ORDER BY created_at DESC, id`
	query += p.page(filter.Limit, filter.Offset)
	return query, p.args
}

func scanPolicy(row pgx.Row) (*domain.Policy, error) {
	var policy domain.Policy
	if err := row.Scan(
		&policy.ID,
		&policy.PolicyNumber,
		&policy.OwnerID,
		&policy.PolicyType,
		&policy.PremiumCents,
		&policy.Status,
		&policy.ContactName,
		&policy.ContactPhone,
		&policy.StartDate,
		&policy.CreatedBy,
		&policy.DeactivationReason,
		&policy.DeactivatedAt,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &policy, nil
}
