package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"mwas-backend/internal/model"
	"mwas-backend/internal/store"
)

// UserService backs the admin user collection and platform stats.
type UserService struct {
	st     store.Store
	logger *slog.Logger
}

func NewUserService(st store.Store, logger *slog.Logger) *UserService {
	return &UserService{st: st, logger: logger}
}

func (s *UserService) List(ctx context.Context) ([]model.PublicUser, error) {
	list, err := s.st.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]model.PublicUser, 0, len(list))
	for i := range list {
		out = append(out, list[i].Public())
	}
	return out, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*model.PublicUser, error) {
	u, err := s.st.UserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: user not found", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	pu := u.Public()
	return &pu, nil
}

// Update changes name and/or email. The role cannot be changed.
func (s *UserService) Update(ctx context.Context, id, name, email string) (*model.PublicUser, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" && email == "" {
		return nil, fmt.Errorf("%w: name or email is required", ErrValidation)
	}
	u, err := s.st.UpdateUser(ctx, id, name, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("%w: user not found", ErrNotFound)
	case errors.Is(err, store.ErrDuplicate):
		return nil, fmt.Errorf("%w: email already exists", ErrConflict)
	case err != nil:
		return nil, fmt.Errorf("update user: %w", err)
	}
	pu := u.Public()
	return &pu, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	err := s.st.DeleteUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: user not found", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

func (s *UserService) Stats(ctx context.Context) (*model.Stats, error) {
	var (
		st  model.Stats
		err error
	)
	if st.Users, err = s.st.CountUsers(ctx); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if st.Therapists, err = s.st.CountTherapists(ctx); err != nil {
		return nil, fmt.Errorf("count therapists: %w", err)
	}
	if st.Appointments, err = s.st.CountAppointments(ctx); err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}
	if st.Chats, err = s.st.CountChats(ctx); err != nil {
		return nil, fmt.Errorf("count chats: %w", err)
	}
	return &st, nil
}
