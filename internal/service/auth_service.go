package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/bongitrade/policy-service/internal/auth"
	"github.com/bongitrade/policy-service/internal/domain"
	"github.com/bongitrade/policy-service/internal/repository"
	apperrors "github.com/bongitrade/policy-service/pkg/util/errorutil"
)

const minPasswordLength = 8

// AuthService coordinates registration, login and staff account creation.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Tokens     *auth.TokenManager
	BcryptCost int
}

// AccountInput describes a new account. At least one of Username or Email is required.
type AccountInput struct {
	Name     string
	Username string
	Email    string
	Password string
	Phone    string
}

// LoginResult carries the issued token.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   deps.Tokens,
		bcryptCost: deps.BcryptCost,
	}
}

// Register creates a client account. Staff roles are never granted here.
func (s *AuthService) Register(ctx context.Context, input AccountInput) (*domain.User, error) {
	if strings.TrimSpace(input.Email) == "" {
		return nil, apperrors.NewValidationError("email is required", map[string]any{"field": "email"})
	}
	return s.createAccount(ctx, input, domain.RoleClient)
}

// AddEmployee lets an admin create an employee account.
func (s *AuthService) AddEmployee(ctx context.Context, identity *domain.Identity, input AccountInput) (*domain.User, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if identity.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	if strings.TrimSpace(input.Username) == "" {
		return nil, apperrors.NewValidationError("username is required", map[string]any{"field": "username"})
	}
	return s.createAccount(ctx, input, domain.RoleEmployee)
}

// BootstrapAdmin creates the first admin. It refuses once any admin exists;
// users_single_admin_idx rejects a concurrent second insert.
func (s *AuthService) BootstrapAdmin(ctx context.Context, input AccountInput) (*domain.User, error) {
	count, err := s.users.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if count > 0 {
		return nil, apperrors.NewConflict("an admin account already exists", nil)
	}
	return s.createAccount(ctx, input, domain.RoleAdmin)
}

// Login accepts a username or an email as login.
func (s *AuthService) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	login = normalizeLogin(login)
	if login == "" || password == "" {
		return nil, apperrors.NewValidationError("login and password are required", nil)
	}

	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			auth.BurnCompare(password)
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.NewInternalError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) createAccount(ctx context.Context, input AccountInput, role domain.Role) (*domain.User, error) {
	user, err := buildAccount(input, role)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash

	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateUser):
			return nil, apperrors.NewConflict("username or email already registered", nil)
		case errors.Is(err, repository.ErrAdminExists):
			return nil, apperrors.NewConflict("an admin account already exists", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

func buildAccount(input AccountInput, role domain.Role) (*domain.User, error) {
	details := map[string]any{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		details["name"] = "required"
	}
	if len(input.Password) < minPasswordLength {
		details["password"] = "must be at least 8 characters"
	}

	user := &domain.User{Name: name, Role: role}
	if username := strings.TrimSpace(input.Username); username != "" {
		if strings.Contains(username, "@") {
			details["username"] = "must not contain @"
		}
		user.Username = &username
	}
	if email := normalizeLogin(input.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			details["email"] = "invalid"
		}
		user.Email = &email
	}
	if user.Username == nil && user.Email == nil {
		details["username"] = "username or email required"
	}
	if phone := strings.TrimSpace(input.Phone); phone != "" {
		user.Phone = &phone
	}

	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid account", details)
	}
	return user, nil
}

// normalizeLogin lowercases emails; usernames stay case-sensitive.
func normalizeLogin(login string) string {
	login = strings.TrimSpace(login)
	if strings.Contains(login, "@") {
		return strings.ToLower(login)
	}
	return login
}
