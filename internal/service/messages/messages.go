// Package messages delivers direct messages between members.
package messages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/messages"
	"yoga-studio/internal/lib/sanitize"
	"yoga-studio/internal/repository"

	"github.com/google/uuid"
)

const MaxBodyLength = 4000

var ErrMessageNotFound = apperr.NotFound("Message not found")

type Service struct {
	store *repository.Store
	now   func() time.Time
}

func New(store *repository.Store) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) Send(ctx context.Context, senderID, recipientID uint, body string) (*messages.Message, error) {
	const op = "messages.Send"

	body = strings.TrimSpace(sanitize.Text(body))
	switch {
	case body == "":
		return nil, apperr.Validation("Message body is required")
	case len(body) > MaxBodyLength:
		return nil, apperr.Validation("Message is longer than %d characters", MaxBodyLength)
	case recipientID == 0:
		return nil, apperr.Validation("recipient_id is required")
	case recipientID == senderID:
		return nil, apperr.Validation("You cannot message yourself")
	}

	if _, err := s.store.Users.GetByID(ctx, recipientID); err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("Recipient not found")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m := &messages.Message{SenderID: senderID, RecipientID: recipientID, Body: body}
	if err := s.store.Messages.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}

func (s *Service) Inbox(ctx context.Context, userID uint, page repository.Page) ([]messages.Message, error) {
	list, err := s.store.Messages.Inbox(ctx, userID, page)
	if err != nil {
		return nil, fmt.Errorf("messages.Inbox: %w", err)
	}
	return list, nil
}

func (s *Service) Conversation(ctx context.Context, userID, otherID uint, page repository.Page) ([]messages.Message, error) {
	list, err := s.store.Messages.Conversation(ctx, userID, otherID, page)
	if err != nil {
		return nil, fmt.Errorf("messages.Conversation: %w", err)
	}
	return list, nil
}

// MarkRead is allowed for the recipient only; repeated calls keep the
// first read time.
func (s *Service) MarkRead(ctx context.Context, userID uint, id uuid.UUID) (*messages.Message, error) {
	const op = "messages.MarkRead"

	m, err := s.store.Messages.GetByID(ctx, id)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if m.RecipientID != userID {
		return nil, apperr.Forbidden("Only the recipient can mark a message as read")
	}
	if m.ReadAt != nil {
		return m, nil
	}
	at := s.now()
	if err := s.store.Messages.MarkRead(ctx, id, at); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	m.ReadAt = &at
	return m, nil
}
