package model

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleTherapist Role = "therapist"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleTherapist, RoleAdmin:
		return true
	}
	return false
}

// Status of an appointment. pending is the only non-terminal state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
)

// Decision reports whether s is a status a therapist may move a pending
// appointment into.
func (s Status) Decision() bool {
	return s == StatusConfirmed || s == StatusRejected
}

type User struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password"`
	Role         Role      `json:"role" bson:"role"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}

// PublicUser is the subset of a user that is safe to hand to any caller.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role,omitempty"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Slot is one weekly availability window, e.g. {Monday 09:00 17:00}.
type Slot struct {
	Day   string `json:"day" bson:"day"`
	Start string `json:"start" bson:"start"`
	End   string `json:"end" bson:"end"`
}

type Therapist struct {
	ID             string    `json:"id" bson:"_id"`
	UserID         string    `json:"user" bson:"user"`
	Specialization string    `json:"specialization" bson:"specialization"`
	Bio            string    `json:"bio,omitempty" bson:"bio,omitempty"`
	Experience     int       `json:"experience,omitempty" bson:"experience,omitempty"`
	Availability   []Slot    `json:"availability" bson:"availability"`
	CreatedAt      time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updated_at"`
}

// TherapistView is a therapist profile with its owning user resolved.
type TherapistView struct {
	Therapist
	User *PublicUser `json:"userInfo,omitempty"`
}

type Appointment struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"userId" bson:"user_id"`
	TherapistID string    `json:"therapistId" bson:"therapist_id"`
	Datetime    time.Time `json:"datetime" bson:"datetime"`
	Status      Status    `json:"status" bson:"status"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

// TherapistRef is the display subset of the therapist side of an appointment.
type TherapistRef struct {
	ID             string `json:"id"`
	Name           string `json:"name,omitempty"`
	Email          string `json:"email,omitempty"`
	Specialization string `json:"specialization,omitempty"`
}

// AppointmentView is an appointment with both parties resolved for display.
// A party that no longer exists is left nil.
type AppointmentView struct {
	Appointment
	User      *PublicUser   `json:"user,omitempty"`
	Therapist *TherapistRef `json:"therapist,omitempty"`
}

type Chat struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"userId" bson:"user_id"`
	Message   string    `json:"message" bson:"message"`
	Response  string    `json:"response" bson:"response"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

type Stats struct {
	Users        int64 `json:"users"`
	Therapists   int64 `json:"therapists"`
	Appointments int64 `json:"appointments"`
	Chats        int64 `json:"chats"`
}
