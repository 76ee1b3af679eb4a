package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"mwas-backend/internal/model"
	"mwas-backend/internal/store"
)

const appointmentCols = `id, user_id, therapist_id, datetime, status, created_at, updated_at`

func scanAppointment(row scanner) (*model.Appointment, error) {
	a := &model.Appointment{}
	if err := row.Scan(&a.ID, &a.UserID, &a.TherapistID, &a.Datetime, &a.Status,
		&a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	return a, nil
}

func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO appointments (id, user_id, therapist_id, datetime, status)
		 VALUES ($1,$2,$3,$4,$5)
		 RETURNING created_at, updated_at`,
		a.ID, a.UserID, a.TherapistID, a.Datetime, a.Status,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return translate(err)
}

func (s *Store) DecideAppointment(ctx context.Context, id, therapistID string, status model.Status) (*model.Appointment, error) {
	a, err := scanAppointment(s.pool.QueryRow(ctx,
		`UPDATE appointments SET status = $3, updated_at = NOW()
		 WHERE id = $1 AND therapist_id = $2 AND status = 'pending'
		 RETURNING `+appointmentCols, id, therapistID, status))
	if err == nil || !errors.Is(err, store.ErrNotFound) {
		return a, err
	}

	var owned bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM appointments WHERE id = $1 AND therapist_id = $2)`,
		id, therapistID,
	).Scan(&owned); err != nil {
		return nil, err
	}
	if !owned {
		return nil, store.ErrNotFound
	}
	return nil, store.ErrNotPending
}

func (s *Store) AppointmentByID(ctx context.Context, id string) (*model.Appointment, error) {
	return scanAppointment(s.pool.QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id))
}

func (s *Store) ListAppointments(ctx context.Context, f store.AppointmentFilter) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+appointmentCols+` FROM appointments
		 WHERE ($1 = '' OR user_id = $1)
		   AND ($2 = '' OR therapist_id = $2)
		 ORDER BY datetime`, f.UserID, f.TherapistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) CountAppointments(ctx context.Context) (int64, error) {
	return s.count(ctx, "appointments")
}
