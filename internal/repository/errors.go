package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidID is returned for identifiers Postgres cannot parse as a UUID.
	// No row can carry such an id, so it matches ErrNotFound as well.
	ErrInvalidID = fmt.Errorf("malformed identifier: %w", ErrNotFound)
	// ErrUnknownReference signals a foreign key pointing at a missing row.
	ErrUnknownReference = errors.New("referenced record does not exist")
	// ErrDuplicatePolicyNumber signals a policy_number unique violation.
	ErrDuplicatePolicyNumber = errors.New("policy number already exists")
	// ErrDuplicateUser signals a username or email unique violation.
	ErrDuplicateUser = errors.New("user already exists")
	// ErrAdminExists signals a second admin row under the single-admin index.
	ErrAdminExists = errors.New("admin already exists")
)

const (
	uniqueViolation           = "23505"
	foreignKeyViolation       = "23503"
	invalidTextRepresentation = "22P02"
)

var constraintErrors = map[string]error{
	"policies_policy_number_key": ErrDuplicatePolicyNumber,
	"users_username_key":         ErrDuplicateUser,
	"users_email_key":            ErrDuplicateUser,
	"users_single_admin_idx":     ErrAdminExists,
}

// translate maps driver errors onto repository sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolation:
		if sentinel, ok := constraintErrors[pgErr.ConstraintName]; ok {
			return sentinel
		}
	case foreignKeyViolation:
		return fmt.Errorf("%w: %s", ErrUnknownReference, pgErr.ConstraintName)
	case invalidTextRepresentation:
		return ErrInvalidID
	}
	return err
}
