package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mwas-backend/internal/model"
)

func (s *Store) CreateTherapist(ctx context.Context, t *model.Therapist) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Availability == nil {
		t.Availability = []model.Slot{}
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	_, err := s.col(colTherapists).InsertOne(ctx, t)
	return translate(err)
}

func (s *Store) CompleteTherapist(ctx context.Context, t *model.Therapist) error {
	set := bson.M{
		"specialization": t.Specialization,
		"bio":            t.Bio,
		"experience":     t.Experience,
		"updated_at":     time.Now().UTC(),
	}
	if t.Availability != nil {
		set["availability"] = t.Availability
	}
	out := &model.Therapist{}
	err := s.col(colTherapists).FindOneAndUpdate(ctx,
		bson.M{"user": t.UserID, "specialization": ""},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(out)
	if err != nil {
		return translate(err)
	}
	*t = *out
	return nil
}

func (s *Store) TherapistByUser(ctx context.Context, userID string) (*model.Therapist, error) {
	t := &model.Therapist{}
	if err := s.col(colTherapists).FindOne(ctx, bson.M{"user": userID}).Decode(t); err != nil {
		return nil, translate(err)
	}
	return t, nil
}

func (s *Store) ListTherapists(ctx context.Context) ([]model.Therapist, error) {
	cur, err := s.col(colTherapists).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := []model.Therapist{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpsertAvailability(ctx context.Context, userID string, slots []model.Slot) (*model.Therapist, error) {
	if slots == nil {
		slots = []model.Slot{}
	}
	now := time.Now().UTC()
	t := &model.Therapist{}
	err := s.col(colTherapists).FindOneAndUpdate(ctx,
		bson.M{"user": userID},
		bson.M{
			"$set": bson.M{"availability": slots, "updated_at": now},
			"$setOnInsert": bson.M{
				"_id":            uuid.NewString(),
				"specialization": "",
				"created_at":     now,
			},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(t)
	if err != nil {
		return nil, translate(err)
	}
	return t, nil
}

func (s *Store) CountTherapists(ctx context.Context) (int64, error) {
	return s.col(colTherapists).CountDocuments(ctx, bson.M{})
}
