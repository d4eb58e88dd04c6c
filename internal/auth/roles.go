package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bongitrade/policy-service/internal/domain"
	apperrors "github.com/bongitrade/policy-service/pkg/util/errorutil"
)

// RequireRoles ensures the caller has one of the allowed roles.
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if _, exists := allowedSet[identity.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireStaff allows admins and employees.
func RequireStaff() fiber.Handler {
	return RequireRoles(domain.RoleAdmin, domain.RoleEmployee)
}

// RequireAdmin allows admins only.
func RequireAdmin() fiber.Handler {
	return RequireRoles(domain.RoleAdmin)
}
