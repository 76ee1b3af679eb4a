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

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := s.col(colUsers).InsertOne(ctx, u)
	return translate(err)
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*model.User, error) {
	u := &model.User{}
	if err := s.col(colUsers).FindOne(ctx, filter).Decode(u); err != nil {
		return nil, translate(err)
	}
	return u, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Store) UserByEmailAndRole(ctx context.Context, email string, role model.Role) (*model.User, error) {
	return s.findUser(ctx, bson.M{"email": email, "role": role})
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	cur, err := s.col(colUsers).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	out := []model.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpdateUser(ctx context.Context, id, name, email string) (*model.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if name != "" {
		set["name"] = name
	}
	if email != "" {
		set["email"] = email
	}
	u := &model.User{}
	err := s.col(colUsers).FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(u)
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.col(colUsers).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	return s.col(colUsers).CountDocuments(ctx, bson.M{})
}
