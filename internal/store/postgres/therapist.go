package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"mwas-backend/internal/model"
)

const therapistCols = `id, user_id, specialization, bio, experience, availability, created_at, updated_at`

func scanTherapist(row scanner) (*model.Therapist, error) {
	t := &model.Therapist{}
	var slotsJSON []byte
	if err := row.Scan(&t.ID, &t.UserID, &t.Specialization, &t.Bio, &t.Experience,
		&slotsJSON, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	t.Availability = []model.Slot{}
	if len(slotsJSON) > 0 {
		if err := json.Unmarshal(slotsJSON, &t.Availability); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func slotsJSON(slots []model.Slot) ([]byte, error) {
	if slots == nil {
		slots = []model.Slot{}
	}
	return json.Marshal(slots)
}

func (s *Store) CreateTherapist(ctx context.Context, t *model.Therapist) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Availability == nil {
		t.Availability = []model.Slot{}
	}
	av, err := slotsJSON(t.Availability)
	if err != nil {
		return err
	}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO therapists (id, user_id, specialization, bio, experience, availability)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING created_at, updated_at`,
		t.ID, t.UserID, t.Specialization, t.Bio, t.Experience, av,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	return translate(err)
}

func (s *Store) CompleteTherapist(ctx context.Context, t *model.Therapist) error {
	// NULL keeps the stored availability
	var av any
	if t.Availability != nil {
		b, err := slotsJSON(t.Availability)
		if err != nil {
			return err
		}
		av = b
	}
	out, err := scanTherapist(s.pool.QueryRow(ctx,
		`UPDATE therapists
		 SET specialization = $2, bio = $3, experience = $4,
		     availability = COALESCE($5::jsonb, availability), updated_at = NOW()
		 WHERE user_id = $1 AND specialization = ''
		 RETURNING `+therapistCols,
		t.UserID, t.Specialization, t.Bio, t.Experience, av))
	if err != nil {
		return err
	}
	*t = *out
	return nil
}

func (s *Store) TherapistByUser(ctx context.Context, userID string) (*model.Therapist, error) {
	return scanTherapist(s.pool.QueryRow(ctx,
		`SELECT `+therapistCols+` FROM therapists WHERE user_id = $1`, userID))
}

func (s *Store) ListTherapists(ctx context.Context) ([]model.Therapist, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+therapistCols+` FROM therapists ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Therapist{}
	for rows.Next() {
		t, err := scanTherapist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *Store) UpsertAvailability(ctx context.Context, userID string, slots []model.Slot) (*model.Therapist, error) {
	av, err := slotsJSON(slots)
	if err != nil {
		return nil, err
	}
	return scanTherapist(s.pool.QueryRow(ctx,
		`INSERT INTO therapists (id, user_id, availability) VALUES ($1,$2,$3)
		 ON CONFLICT (user_id) DO UPDATE
		 SET availability = EXCLUDED.availability, updated_at = NOW()
		 RETURNING `+therapistCols,
		uuid.NewString(), userID, av))
}

func (s *Store) CountTherapists(ctx context.Context) (int64, error) {
	return s.count(ctx, "therapists")
}
