package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/bongitrade/policy-service/internal/api/dto"
	"github.com/bongitrade/policy-service/internal/auth"
	"github.com/bongitrade/policy-service/internal/service"
	apperrors "github.com/bongitrade/policy-service/pkg/util/errorutil"
)

// AuthHandler exposes login, registration and staff account endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /register. The new account is always a client.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.auth.Register(c.UserContext(), service.AccountInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{"user_id": user.ID, "user": userResponse(user)},
	})
}

// Login handles POST /login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.auth.Login(c.UserContext(), req.Identifier(), req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": userResponse(result.User),
			"auth": dto.AuthResponse{
				Token:     result.Token,
				Role:      string(result.User.Role),
				ExpiresAt: result.ExpiresAt,
			},
		},
	})
}

// AddEmployee handles POST /add-employee.
func (h *AuthHandler) AddEmployee(c *fiber.Ctx) error {
	identity, _ := auth.IdentityFromContext(c)
	var req dto.AddEmployeeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.auth.AddEmployee(c.UserContext(), identity, service.AccountInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": userResponse(user)})
}
