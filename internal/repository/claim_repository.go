package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bongitrade/policy-service/internal/domain"
)

// ClaimRepository persists claims together with their document rows.
type ClaimRepository interface {
	// Create inserts the claim and one claim_documents row per document.
	Create(ctx context.Context, claim *domain.Claim) error
	Update(ctx context.Context, claim *domain.Claim) error
	GetByID(ctx context.Context, id string) (*domain.Claim, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Claim, error)
	ListByPolicy(ctx context.Context, policyID string) ([]domain.Claim, error)
}

type claimRepository struct {
	db Querier
}

const claimColumns = `id, policy_id, kind, reason, status, submitted_by, submitted_at, reviewed_by, reviewed_at`

func (r *claimRepository) Create(ctx context.Context, claim *domain.Claim) error {
	const query = `
        INSERT INTO claims (policy_id, kind, reason, status, submitted_by, reviewed_by, reviewed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, submitted_at`
	if err := r.db.QueryRow(ctx, query,
		claim.PolicyID,
		claim.Kind,
		claim.Reason,
		claim.Status,
		claim.SubmittedBy,
		claim.ReviewedBy,
		claim.ReviewedAt,
	).Scan(&claim.ID, &claim.SubmittedAt); err != nil {
		return translate(err)
	}

	const docQuery = `
        INSERT INTO claim_documents (claim_id, position, storage_key, file_name, content_type, size_bytes)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	for i := range claim.Documents {
		doc := &claim.Documents[i]
		doc.ClaimID = claim.ID
		doc.Position = i
		if err := r.db.QueryRow(ctx, docQuery,
			doc.ClaimID,
			doc.Position,
			doc.StorageKey,
			doc.FileName,
			doc.ContentType,
			doc.SizeBytes,
		).Scan(&doc.ID, &doc.CreatedAt); err != nil {
			return fmt.Errorf("insert claim document %d: %w", i, translate(err))
		}
	}
	return nil
}

// Update persists the review outcome.
func (r *claimRepository) Update(ctx context.Context, claim *domain.Claim) error {
	const query = `UPDATE claims SET status=$1, reviewed_by=$2, reviewed_at=$3 WHERE id=$4`
	cmd, err := r.db.Exec(ctx, query, claim.Status, claim.ReviewedBy, claim.ReviewedAt, claim.ID)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *claimRepository) GetByID(ctx context.Context, id string) (*domain.Claim, error) {
	return r.fetchSingle(ctx, `SELECT `+claimColumns+` FROM claims WHERE id=$1`, id)
}

func (r *claimRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Claim, error) {
	return r.fetchSingle(ctx, `SELECT `+claimColumns+` FROM claims WHERE id=$1 FOR UPDATE`, id)
}

func (r *claimRepository) fetchSingle(ctx context.Context, query, id string) (*domain.Claim, error) {
	claim, err := scanClaim(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	docs, err := r.documents(ctx, []string{claim.ID})
	if err != nil {
		return nil, err
	}
	claim.Documents = docs[claim.ID]
	return claim, nil
}

func (r *claimRepository) ListByPolicy(ctx context.Context, policyID string) ([]domain.Claim, error) {
	rows, err := r.db.Query(ctx, `SELECT `+claimColumns+` FROM claims WHERE policy_id=$1 ORDER BY submitted_at, id`, policyID)
	if err != nil {
		return nil, translate(err)
	}
	claims := make([]domain.Claim, 0)
	ids := make([]string, 0)
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		claims = append(claims, *claim)
		ids = append(ids, claim.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	if len(ids) == 0 {
		return claims, nil
	}

	docs, err := r.documents(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range claims {
		claims[i].Documents = docs[claims[i].ID]
	}
	return claims, nil
}

func (r *claimRepository) documents(ctx context.Context, claimIDs []string) (map[string][]domain.Document, error) {
	const query = `
        SELECT id, claim_id, position, storage_key, file_name, content_type, size_bytes, created_at
        FROM claim_documents WHERE claim_id = ANY($1::uuid[])
        ORDER BY claim_id, position`
	rows, err := r.db.Query(ctx, query, claimIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.Document, len(claimIDs))
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.ClaimID, &d.Position, &d.StorageKey, &d.FileName, &d.ContentType, &d.SizeBytes, &d.CreatedAt); err != nil {
			return nil, err
		}
		out[d.ClaimID] = append(out[d.ClaimID], d)
	}
	return out, rows.Err()
}

func scanClaim(row pgx.Row) (*domain.Claim, error) {
	var claim domain.Claim
	if err := row.Scan(
		&claim.ID,
		&claim.PolicyID,
		&claim.Kind,
		&claim.Reason,
		&claim.Status,
		&claim.SubmittedBy,
		&claim.SubmittedAt,
		&claim.ReviewedBy,
		&claim.ReviewedAt,
	); err != nil {
		return nil, err
	}
	return &claim, nil
}
