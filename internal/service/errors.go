package service

import (
	"errors"

	"github.com/bongitrade/policy-service/internal/domain"
	"github.com/bongitrade/policy-service/internal/repository"
	apperrors "github.com/bongitrade/policy-service/pkg/util/errorutil"
)

// asDomainError passes DomainErrors through, maps ErrNotFound for resource
// and wraps anything else as internal.
func asDomainError(err error, resource string, id string) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return apperrors.NewInternalError(err)
}

func requireStaff(identity *domain.Identity) error {
	if err := requireIdentity(identity); err != nil {
		return err
	}
	if !identity.IsStaff() {
		return apperrors.NewForbidden("staff role required")
	}
	return nil
}

func requireIdentity(identity *domain.Identity) error {
	if identity == nil || identity.UserID == "" {
		return apperrors.NewUnauthorized("authentication required")
	}
	return nil
}
