package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx so repositories run
// unchanged inside or outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner starts a database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repositories groups every repository bound to the same Querier.
type Repositories struct {
	Users         UserRepository
	Policies      PolicyRepository
	Beneficiaries BeneficiaryRepository
	Claims        ClaimRepository
}

// NewRepositories binds all repositories to q.
func NewRepositories(q Querier) Repositories {
	return Repositories{
		Users:         &userRepository{db: q},
		Policies:      &policyRepository{db: q},
		Beneficiaries: &beneficiaryRepository{db: q},
		Claims:        &claimRepository{db: q},
	}
}

// TxManager runs fn with repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}

type pgTxManager struct {
	db TxBeginner
}

// NewTxManager returns a TxManager backed by db.
func NewTxManager(db TxBeginner) TxManager {
	return &pgTxManager{db: db}
}

func (m *pgTxManager) WithinTx(ctx context.Context, fn func(repos Repositories) error) error {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(NewRepositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
