package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mwas-backend/internal/model"
	"mwas-backend/internal/store"
)

func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	_, err := s.col(colAppointments).InsertOne(ctx, a)
	return translate(err)
}

func (s *Store) DecideAppointment(ctx context.Context, id, therapistID string, status model.Status) (*model.Appointment, error) {
	owned := bson.M{"_id": id, "therapist_id": therapistID}

	a := &model.Appointment{}
	err := s.col(colAppointments).FindOneAndUpdate(ctx,
		bson.M{"_id": id, "therapist_id": therapistID, "status": model.StatusPending},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(a)
	if err == nil {
		return a, nil
	}
	if err = translate(err); err != store.ErrNotFound {
		return nil, err
	}

	// lost the condition: either not ours / missing, or already decided
	n, err := s.col(colAppointments).CountDocuments(ctx, owned)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}
	return nil, store.ErrNotPending
}

func (s *Store) AppointmentByID(ctx context.Context, id string) (*model.Appointment, error) {
	a := &model.Appointment{}
	if err := s.col(colAppointments).FindOne(ctx, bson.M{"_id": id}).Decode(a); err != nil {
		return nil, translate(err)
	}
	return a, nil
}

func (s *Store) ListAppointments(ctx context.Context, f store.AppointmentFilter) ([]model.Appointment, error) {
	filter := bson.M{}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.TherapistID != "" {
		filter["therapist_id"] = f.TherapistID
	}
	cur, err := s.col(colAppointments).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "datetime", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := []model.Appointment{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CountAppointments(ctx context.Context) (int64, error) {
	return s.col(colAppointments).CountDocuments(ctx, bson.M{})
}
