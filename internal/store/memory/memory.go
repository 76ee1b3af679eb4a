// Package memory is a process-local Store used for development (DB_TYPE=memory)
// and unit tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mwas-backend/internal/model"
	"mwas-backend/internal/store"
)

type Store struct {
	mu           sync.RWMutex
	users        map[string]model.User
	therapists   map[string]model.Therapist
	appointments map[string]model.Appointment
	chats        map[string]model.Chat
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:        make(map[string]model.User),
		therapists:   make(map[string]model.Therapist),
		appointments: make(map[string]model.Appointment),
		chats:        make(map[string]model.Chat),
	}
}

func (s *Store) Ping(context.Context) error  { return nil }
func (s *Store) Close(context.Context) error { return nil }

// ----- users -----

func (s *Store) emailTaken(email, exceptID string) bool {
	for _, u := range s.users {
		if u.ID != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailTaken(u.Email, "") {
		return store.ErrDuplicate
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = *u
	return nil
}

func (s *Store) UserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UserByEmailAndRole(ctx context.Context, email string, role model.Role) (*model.User, error) {
	u, err := s.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u.Role != role {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) ListUsers(context.Context) ([]model.User, error) {
	s.mu.RLock()
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	s.mu.RUnlock()
	// newest first
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateUser(_ context.Context, id, name, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if email != "" && s.emailTaken(email, id) {
		return nil, store.ErrDuplicate
	}
	if name != "" {
		u.Name = name
	}
	if email != "" {
		u.Email = email
	}
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return &u, nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) CountUsers(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

// ----- therapists -----

func (s *Store) therapistByUser(userID string) (model.Therapist, bool) {
	for _, t := range s.therapists {
		if t.UserID == userID {
			return t, true
		}
	}
	return model.Therapist{}, false
}

func (s *Store) CreateTherapist(_ context.Context, t *model.Therapist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.therapistByUser(t.UserID); ok {
		return store.ErrDuplicate
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Availability == nil {
		t.Availability = []model.Slot{}
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	s.therapists[t.ID] = *t
	return nil
}

func (s *Store) CompleteTherapist(_ context.Context, t *model.Therapist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.therapistByUser(t.UserID)
	if !ok || cur.Specialization != "" {
		return store.ErrNotFound
	}
	cur.Specialization = t.Specialization
	cur.Bio = t.Bio
	cur.Experience = t.Experience
	if t.Availability != nil {
		cur.Availability = append([]model.Slot{}, t.Availability...)
	}
	cur.UpdatedAt = time.Now().UTC()
	s.therapists[cur.ID] = cur
	*t = cur
	return nil
}

func (s *Store) TherapistByUser(_ context.Context, userID string) (*model.Therapist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.therapistByUser(userID)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (s *Store) ListTherapists(context.Context) ([]model.Therapist, error) {
	s.mu.RLock()
	out := make([]model.Therapist, 0, len(s.therapists))
	for _, t := range s.therapists {
		out = append(out, t)
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpsertAvailability(_ context.Context, userID string, slots []model.Slot) (*model.Therapist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	t, ok := s.therapistByUser(userID)
	if !ok {
		t = model.Therapist{ID: uuid.NewString(), UserID: userID, CreatedAt: now}
	}
	t.Availability = append([]model.Slot{}, slots...)
	t.UpdatedAt = now
	s.therapists[t.ID] = t
	return &t, nil
}

func (s *Store) CountTherapists(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.therapists)), nil
}

// ----- appointments -----

func (s *Store) CreateAppointment(_ context.Context, a *model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	s.appointments[a.ID] = *a
	return nil
}

func (s *Store) DecideAppointment(_ context.Context, id, therapistID string, status model.Status) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok || a.TherapistID != therapistID {
		return nil, store.ErrNotFound
	}
	if a.Status != model.StatusPending {
		return nil, store.ErrNotPending
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	s.appointments[id] = a
	return &a, nil
}

func (s *Store) AppointmentByID(_ context.Context, id string) (*model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *Store) ListAppointments(_ context.Context, f store.AppointmentFilter) ([]model.Appointment, error) {
	s.mu.RLock()
	out := []model.Appointment{}
	for _, a := range s.appointments {
		if f.UserID != "" && a.UserID != f.UserID {
			continue
		}
		if f.TherapistID != "" && a.TherapistID != f.TherapistID {
			continue
		}
		out = append(out, a)
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Datetime.Before(out[j].Datetime) })
	return out, nil
}

func (s *Store) CountAppointments(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.appointments)), nil
}

// ----- chats -----

func (s *Store) CreateChat(_ context.Context, c *model.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	s.chats[c.ID] = *c
	return nil
}

func (s *Store) CountChats(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.chats)), nil
}
