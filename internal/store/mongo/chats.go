package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"mwas-backend/internal/model"
)

func (s *Store) CreateChat(ctx context.Context, c *model.Chat) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	_, err := s.col(colChats).InsertOne(ctx, c)
	return translate(err)
}

func (s *Store) CountChats(ctx context.Context) (int64, error) {
	return s.col(colChats).CountDocuments(ctx, bson.M{})
}
