package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (f *fakeTx) Commit(context.Context) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	if f.committed {
		return pgx.ErrTxClosed
	}
	f.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx  *fakeTx
	err error
}

func (f *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tx, nil
}

func TestWithinTxCommitsOnSuccess(t *testing.T) {
	tx := &fakeTx{}
	m := NewTxManager(&fakeBeginner{tx: tx})

	called := false
	err := m.WithinTx(context.Background(), func(repos Repositories) error {
		called = true
		assert.NotNil(t, repos.Policies)
		assert.NotNil(t, repos.Claims)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.True(t, tx.committed)
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	tx := &fakeTx{}
	m := NewTxManager(&fakeBeginner{tx: tx})

	err := m.WithinTx(context.Background(), func(Repositories) error {
		return ErrDuplicatePolicyNumber
	})
	assert.ErrorIs(t, err, ErrDuplicatePolicyNumber)
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}

func TestWithinTxBeginAndCommitFailures(t *testing.T) {
	boom := errors.New("boom")

	err := NewTxManager(&fakeBeginner{err: boom}).WithinTx(context.Background(), func(Repositories) error {
		t.Fatal("fn must not run")
		return nil
	})
	assert.ErrorIs(t, err, boom)

	tx := &fakeTx{commitErr: boom}
	err = NewTxManager(&fakeBeginner{tx: tx}).WithinTx(context.Background(), func(Repositories) error { return nil })
	assert.ErrorIs(t, err, boom)
	assert.True(t, tx.rolledBack)
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(pgx.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, translate(fmt.Errorf("scan: %w", pgx.ErrNoRows)), ErrNotFound)

	dupNumber := &pgconn.PgError{Code: "23505", ConstraintName: "policies_policy_number_key"}
	assert.ErrorIs(t, translate(dupNumber), ErrDuplicatePolicyNumber)

	dupEmail := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	assert.ErrorIs(t, translate(dupEmail), ErrDuplicateUser)

	secondAdmin := &pgconn.PgError{Code: "23505", ConstraintName: "users_single_admin_idx"}
	assert.ErrorIs(t, translate(secondAdmin), ErrAdminExists)

	unknownOwner := &pgconn.PgError{Code: "23503", ConstraintName: "policies_owner_id_fkey"}
	err := translate(unknownOwner)
	assert.ErrorIs(t, err, ErrUnknownReference)
	assert.Contains(t, err.Error(), "policies_owner_id_fkey")

	badUUID := &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`}
	assert.ErrorIs(t, translate(badUUID), ErrInvalidID)
	assert.ErrorIs(t, translate(fmt.Errorf("query: %w", badUUID)), ErrNotFound)

	other := &pgconn.PgError{Code: "23514", ConstraintName: "policies_status_check"}
	assert.Same(t, other, translate(other))
}
