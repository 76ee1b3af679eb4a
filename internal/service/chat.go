package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mwas-backend/internal/model"
	"mwas-backend/internal/store"
)

// Responder produces the assistant's reply to a chat message.
type Responder interface {
	Reply(ctx context.Context, message string) (string, error)
}

// CannedResponder echoes the message back with a fixed calming tip.
type CannedResponder struct{}

func (CannedResponder) Reply(_ context.Context, message string) (string, error) {
	return fmt.Sprintf("You said: %s. Here's a calming tip: take a deep breath!", message), nil
}

type ChatService struct {
	chats     store.Chats
	responder Responder
	logger    *slog.Logger
}

func NewChatService(chats store.Chats, r Responder, logger *slog.Logger) *ChatService {
	if r == nil {
		r = CannedResponder{}
	}
	return &ChatService{chats: chats, responder: r, logger: logger}
}

// Send stores the message together with the generated reply.
func (s *ChatService) Send(ctx context.Context, userID, message string) (*model.Chat, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrValidation)
	}
	reply, err := s.responder.Reply(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("generate reply: %w", err)
	}
	c := &model.Chat{
		UserID:    userID,
		Message:   message,
		Response:  reply,
		Timestamp: time.Now().UTC(),
	}
	if err := s.chats.CreateChat(ctx, c); err != nil {
		return nil, fmt.Errorf("save chat: %w", err)
	}
	s.logger.Debug("chat stored", "chat_id", c.ID, "user_id", userID)
	return c, nil
}
