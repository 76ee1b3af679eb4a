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

type TherapistService struct {
	st     store.Store
	logger *slog.Logger
}

func NewTherapistService(st store.Store, logger *slog.Logger) *TherapistService {
	return &TherapistService{st: st, logger: logger}
}

type ProfileInput struct {
	Specialization string       `json:"specialization"`
	Bio            string       `json:"bio"`
	Experience     int          `json:"experience"`
	Availability   []model.Slot `json:"availability"`
}

func validSlots(slots []model.Slot) error {
	for i, s := range slots {
		if strings.TrimSpace(s.Day) == "" || strings.TrimSpace(s.Start) == "" || strings.TrimSpace(s.End) == "" {
			return fmt.Errorf("%w: availability[%d] needs day, start and end", ErrValidation, i)
		}
	}
	return nil
}

// CreateProfile registers the therapist profile owned by userID. A user owns
// at most one profile.
func (s *TherapistService) CreateProfile(ctx context.Context, userID string, in ProfileInput) (*model.Therapist, error) {
	spec := strings.TrimSpace(in.Specialization)
	if spec == "" {
		return nil, fmt.Errorf("%w: specialization is required", ErrValidation)
	}
	if in.Experience < 0 {
		return nil, fmt.Errorf("%w: experience cannot be negative", ErrValidation)
	}
	if err := validSlots(in.Availability); err != nil {
		return nil, err
	}

	t := &model.Therapist{
		UserID:         userID,
		Specialization: spec,
		Bio:            strings.TrimSpace(in.Bio),
		Experience:     in.Experience,
		Availability:   in.Availability,
	}
	err := s.st.CreateTherapist(ctx, t)
	if errors.Is(err, store.ErrDuplicate) {
		// setting availability first leaves a profile with no specialization
		err = s.st.CompleteTherapist(ctx, t)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: therapist profile already exists", ErrConflict)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create therapist: %w", err)
	}
	s.logger.Info("therapist profile created", "therapist_id", t.ID, "user_id", userID)
	return t, nil
}

func (s *TherapistService) SetAvailability(ctx context.Context, userID string, slots []model.Slot) (*model.Therapist, error) {
	if slots == nil {
		return nil, fmt.Errorf("%w: availability must be an array", ErrValidation)
	}
	if err := validSlots(slots); err != nil {
		return nil, err
	}
	t, err := s.st.UpsertAvailability(ctx, userID, slots)
	if err != nil {
		return nil, fmt.Errorf("update availability: %w", err)
	}
	return t, nil
}

// List returns every profile with its owner's name and email.
func (s *TherapistService) List(ctx context.Context) ([]model.TherapistView, error) {
	list, err := s.st.ListTherapists(ctx)
	if err != nil {
		return nil, fmt.Errorf("list therapists: %w", err)
	}
	out := make([]model.TherapistView, 0, len(list))
	for _, t := range list {
		v := model.TherapistView{Therapist: t}
		u, err := s.st.UserByID(ctx, t.UserID)
		switch {
		case err == nil:
			pu := model.PublicUser{ID: u.ID, Name: u.Name, Email: u.Email}
			v.User = &pu
		case !errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("resolve therapist user: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}
