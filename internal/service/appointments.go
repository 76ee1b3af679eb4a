package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mwas-backend/internal/model"
	"mwas-backend/internal/store"
)

// datetimeLayouts are tried in order when parsing a booking request.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseDatetime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: datetime must be an ISO-8601 timestamp", ErrValidation)
}

type AppointmentService struct {
	st     store.Store
	logger *slog.Logger
}

func NewAppointmentService(st store.Store, logger *slog.Logger) *AppointmentService {
	return &AppointmentService{st: st, logger: logger}
}

// Book creates a pending appointment for userID. The status is always
// pending regardless of what the client asked for.
func (s *AppointmentService) Book(ctx context.Context, userID, therapistID, datetime string) (*model.Appointment, error) {
	therapistID = strings.TrimSpace(therapistID)
	if therapistID == "" || strings.TrimSpace(datetime) == "" {
		return nil, fmt.Errorf("%w: therapistId and datetime are required", ErrValidation)
	}
	when, err := parseDatetime(datetime)
	if err != nil {
		return nil, err
	}

	th, err := s.st.UserByID(ctx, therapistID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && th.Role != model.RoleTherapist) {
		return nil, fmt.Errorf("%w: therapist not found", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find therapist: %w", err)
	}

	a := &model.Appointment{
		UserID:      userID,
		TherapistID: therapistID,
		Datetime:    when,
		Status:      model.StatusPending,
	}
	if err := s.st.CreateAppointment(ctx, a); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	s.logger.Info("appointment booked", "appointment_id", a.ID, "user_id", userID, "therapist_id", therapistID)
	return a, nil
}

// Decide confirms or rejects a pending appointment assigned to therapistID.
// Appointments that do not exist and appointments owned by another
// therapist are both reported as ErrNotFound.
func (s *AppointmentService) Decide(ctx context.Context, therapistID, id, status string) (*model.Appointment, error) {
	st := model.Status(status)
	if !st.Decision() {
		return nil, fmt.Errorf("%w: status must be confirmed or rejected", ErrValidation)
	}

	a, err := s.st.DecideAppointment(ctx, id, therapistID, st)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("%w: appointment not found", ErrNotFound)
	case errors.Is(err, store.ErrNotPending):
		return nil, ErrAlreadyDecided
	case err != nil:
		return nil, fmt.Errorf("decide appointment: %w", err)
	}
	s.logger.Info("appointment decided", "appointment_id", a.ID, "therapist_id", therapistID, "status", a.Status)
	return a, nil
}

// ListForTherapist returns the caller's appointments. requested may repeat
// the caller's own id; any other value is refused.
func (s *AppointmentService) ListForTherapist(ctx context.Context, callerID, requested string) ([]model.AppointmentView, error) {
	if requested != "" && requested != callerID {
		return nil, fmt.Errorf("%w: cannot list another therapist's appointments", ErrForbidden)
	}
	return s.list(ctx, store.AppointmentFilter{TherapistID: callerID})
}

func (s *AppointmentService) ListForUser(ctx context.Context, userID string) ([]model.AppointmentView, error) {
	return s.list(ctx, store.AppointmentFilter{UserID: userID})
}

// ListAll is the admin view. An empty therapistID lists everything.
func (s *AppointmentService) ListAll(ctx context.Context, therapistID string) ([]model.AppointmentView, error) {
	return s.list(ctx, store.AppointmentFilter{TherapistID: therapistID})
}

func (s *AppointmentService) list(ctx context.Context, f store.AppointmentFilter) ([]model.AppointmentView, error) {
	list, err := s.st.ListAppointments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return s.populate(ctx, list)
}

// populate resolves both parties of every appointment, looking each id up
// at most once.
func (s *AppointmentService) populate(ctx context.Context, list []model.Appointment) ([]model.AppointmentView, error) {
	users := make(map[string]*model.User)
	profiles := make(map[string]*model.Therapist)

	lookupUser := func(id string) (*model.User, error) {
		if u, ok := users[id]; ok {
			return u, nil
		}
		u, err := s.st.UserByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			u, err = nil, nil
		}
		if err != nil {
			return nil, err
		}
		users[id] = u
		return u, nil
	}
	lookupProfile := func(id string) (*model.Therapist, error) {
		if p, ok := profiles[id]; ok {
			return p, nil
		}
		p, err := s.st.TherapistByUser(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			p, err = nil, nil
		}
		if err != nil {
			return nil, err
		}
		profiles[id] = p
		return p, nil
	}

	out := make([]model.AppointmentView, 0, len(list))
	for _, a := range list {
		v := model.AppointmentView{Appointment: a}

		u, err := lookupUser(a.UserID)
		if err != nil {
			return nil, fmt.Errorf("resolve user: %w", err)
		}
		if u != nil {
			pu := u.Public()
			pu.Role = ""
			v.User = &pu
		}

		tu, err := lookupUser(a.TherapistID)
		if err != nil {
			return nil, fmt.Errorf("resolve therapist: %w", err)
		}
		if tu != nil {
			ref := &model.TherapistRef{ID: tu.ID, Name: tu.Name, Email: tu.Email}
			p, err := lookupProfile(a.TherapistID)
			if err != nil {
				return nil, fmt.Errorf("resolve therapist profile: %w", err)
			}
			if p != nil {
				ref.Specialization = p.Specialization
			}
			v.Therapist = ref
		}
		out = append(out, v)
	}
	return out, nil
}
