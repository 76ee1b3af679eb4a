// Package store defines the persistence contracts shared by the mongo,
// postgres and in-memory backends.
package store

import (
	"context"
	"errors"
	"time"

	"mwas-backend/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique field (user email, therapist
	// owner) is already taken.
	ErrDuplicate = errors.New("duplicate")
	// ErrNotPending is returned by DecideAppointment when the appointment
	// exists and is owned by the caller but has already been decided.
	ErrNotPending = errors.New("appointment is not pending")
)

type Users interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByID(ctx context.Context, id string) (*model.User, error)
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	// UserByEmailAndRole matches on both fields; a role mismatch is a miss.
	UserByEmailAndRole(ctx context.Context, email string, role model.Role) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, id, name, email string) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int64, error)
}

type Therapists interface {
	CreateTherapist(ctx context.Context, t *model.Therapist) error
	// CompleteTherapist fills specialization, bio and experience (and
	// availability when non-nil) into the bare profile owned by t.UserID,
	// i.e. one created by UpsertAvailability with no specialization yet.
	// It returns ErrNotFound when no such bare profile exists and updates t
	// in place on success.
	CompleteTherapist(ctx context.Context, t *model.Therapist) error
	TherapistByUser(ctx context.Context, userID string) (*model.Therapist, error)
	ListTherapists(ctx context.Context) ([]model.Therapist, error)
	// UpsertAvailability replaces the availability of the profile owned by
	// userID, creating a bare profile when none exists.
	UpsertAvailability(ctx context.Context, userID string, slots []model.Slot) (*model.Therapist, error)
	CountTherapists(ctx context.Context) (int64, error)
}

// AppointmentFilter narrows ListAppointments. Empty fields match everything.
type AppointmentFilter struct {
	UserID      string
	TherapistID string
}

type Appointments interface {
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	// DecideAppointment moves a pending appointment owned by therapistID to
	// status in a single conditional write. It returns ErrNotFound when the
	// id/therapist pair does not exist and ErrNotPending when it does but is
	// no longer pending.
	DecideAppointment(ctx context.Context, id, therapistID string, status model.Status) (*model.Appointment, error)
	AppointmentByID(ctx context.Context, id string) (*model.Appointment, error)
	ListAppointments(ctx context.Context, f AppointmentFilter) ([]model.Appointment, error)
	CountAppointments(ctx context.Context) (int64, error)
}

type Chats interface {
	CreateChat(ctx context.Context, c *model.Chat) error
	CountChats(ctx context.Context) (int64, error)
}

type Store interface {
	Users
	Therapists
	Appointments
	Chats
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Revocations is the deny-list of token ids invalidated by logout.
type Revocations interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
