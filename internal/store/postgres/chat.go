package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mwas-backend/internal/model"
)

func (s *Store) CreateChat(ctx context.Context, c *model.Chat) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chats (id, user_id, message, response, timestamp) VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.UserID, c.Message, c.Response, c.Timestamp,
	)
	return translate(err)
}

func (s *Store) CountChats(ctx context.Context) (int64, error) {
	return s.count(ctx, "chats")
}
