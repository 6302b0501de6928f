// Package community runs the members' post feed and its moderation.
package community

import (
	"context"
	"fmt"
	"strings"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/access"
	"yoga-studio/internal/domain/community"
	"yoga-studio/internal/lib/sanitize"
	"yoga-studio/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	MaxPostLength   = 5000
	MaxReasonLength = 500
)

var ErrPostNotFound = apperr.NotFound("Post not found")

type Service struct {
	store *repository.Store
	log   *logrus.Logger
}

func New(store *repository.Store, log *logrus.Logger) *Service {
	return &Service{store: store, log: log}
}

func (s *Service) Feed(ctx context.Context, page repository.Page) ([]community.Post, error) {
	list, err := s.store.Posts.Feed(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("community.Feed: %w", err)
	}
	return list, nil
}

func (s *Service) Create(ctx context.Context, authorID uint, body, imageURL string) (*community.Post, error) {
	clean, err := s.clean(body)
	if err != nil {
		return nil, err
	}
	p := &community.Post{AuthorID: authorID, Content: clean, ImageURL: strings.TrimSpace(imageURL)}
	if err := s.store.Posts.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("community.Create: %w", err)
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, actor access.Actor, id uuid.UUID, body string, imageURL *string) (*community.Post, error) {
	p, err := s.authored(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	clean, err := s.clean(body)
	if err != nil {
		return nil, err
	}
	p.Content = clean
	if imageURL != nil {
		p.ImageURL = strings.TrimSpace(*imageURL)
	}
	if err := s.store.Posts.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("community.Update: %w", err)
	}
	return p, nil
}

// Delete soft-deletes the post; the author or an admin may do it.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	if _, err := s.authored(ctx, actor, id); err != nil {
		return err
	}
	if err := s.store.Posts.Delete(ctx, id); err != nil {
		return fmt.Errorf("community.Delete: %w", err)
	}
	return nil
}

func (s *Service) Like(ctx context.Context, id uuid.UUID) (*community.Post, error) {
	if err := s.store.Posts.Like(ctx, id); err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("community.Like: %w", err)
	}
	return s.find(ctx, id)
}

// Flag hides the post from the feed until a moderator reviews it.
func (s *Service) Flag(ctx context.Context, reporterID uint, id uuid.UUID, reason string) error {
	reason = strings.TrimSpace(sanitize.Text(reason))
	switch {
	case reason == "":
		return apperr.Validation("A reason is required to flag a post")
	case len(reason) > MaxReasonLength:
		return apperr.Validation("Reason is longer than %d characters", MaxReasonLength)
	}

	p, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	p.Flagged = true
	p.FlagReason = reason
	if err := s.store.Posts.Update(ctx, p); err != nil {
		return fmt.Errorf("community.Flag: %w", err)
	}
	s.log.WithFields(logrus.Fields{"post_id": id, "reporter_id": reporterID}).Info("Post flagged")
	return nil
}

func (s *Service) Flagged(ctx context.Context, page repository.Page) ([]community.Post, error) {
	list, err := s.store.Posts.Flagged(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("community.Flagged: %w", err)
	}
	return list, nil
}

// Moderate approves a post back into the feed or removes it.
func (s *Service) Moderate(ctx context.Context, id uuid.UUID, action string) error {
	const op = "community.Moderate"

	p, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	switch action {
	case community.ModerationApprove:
		p.Flagged = false
		p.FlagReason = ""
		if err := s.store.Posts.Update(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	case community.ModerationRemove:
		if err := s.store.Posts.Delete(ctx, id); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	default:
		return apperr.Validation("Action must be approve or remove")
	}
	return nil
}

func (s *Service) clean(body string) (string, error) {
	clean := strings.TrimSpace(sanitize.HTML(body))
	switch {
	case clean == "":
		return "", apperr.Validation("Post content is required")
	case len(clean) > MaxPostLength:
		return "", apperr.Validation("Post is longer than %d characters", MaxPostLength)
	}
	return clean, nil
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*community.Post, error) {
	p, err := s.store.Posts.GetByID(ctx, id)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("community.find: %w", err)
	}
	return p, nil
}

func (s *Service) authored(ctx context.Context, actor access.Actor, id uuid.UUID) (*community.Post, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.AuthorID != actor.UserID && !actor.IsAdmin() {
		return nil, apperr.Forbidden("Only the author can change this post")
	}
	return p, nil
}
