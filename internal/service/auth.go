package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"mwas-backend/internal/auth"
	"mwas-backend/internal/model"
	"mwas-backend/internal/store"
)

type AuthService struct {
	users   store.Users
	revoked store.Revocations
	hasher  *auth.Hasher
	signer  *auth.Signer
	logger  *slog.Logger
}

func NewAuthService(users store.Users, revoked store.Revocations, hasher *auth.Hasher, signer *auth.Signer, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:   users,
		revoked: revoked,
		hasher:  hasher,
		signer:  signer,
		logger:  logger,
	}
}

type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginResult never carries the password hash.
type LoginResult struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup stores a new user with a hashed password. Nothing is written unless
// every field is present and the role is one of user, therapist, admin.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" || in.Role == "" {
		return nil, fmt.Errorf("%w: name, email, password, and role are required", ErrValidation)
	}
	role := model.Role(in.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("%w: invalid role", ErrValidation)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	u := &model.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email already exists", ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user signed up", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Login looks the account up by email and role together, so a wrong role is
// reported exactly like a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password, role string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" || role == "" {
		return nil, fmt.Errorf("%w: email, password, and role are required", ErrValidation)
	}

	r := model.Role(role)
	if !r.Valid() {
		s.logger.Warn("login with unknown role", "email", email)
		return nil, ErrInvalidCredentials
	}

	u, err := s.users.UserByEmailAndRole(ctx, email, r)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("login for unknown account", "email", email)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Check(u.PasswordHash, password) {
		s.logger.Warn("invalid password", "user_id", u.ID)
		return nil, ErrInvalidCredentials
	}

	tok, err := s.signer.MakeToken(u.ID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	s.logger.Info("login successful", "user_id", u.ID)
	return &LoginResult{Token: tok, User: u.Public()}, nil
}

// Logout revokes the presented token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, c *auth.Claims) error {
	if c.ExpiresAt == nil {
		return ErrInvalidCredentials
	}
	if err := s.revoked.Revoke(ctx, c.ID, c.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.logger.Info("logout", "user_id", c.UserID())
	return nil
}
