package memstore

import (
	"context"
	"fmt"
	"time"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/community"
	"yoga-studio/internal/domain/messages"
	"yoga-studio/internal/repository"

	"github.com/google/uuid"
)

type messageRepo struct{ s *state }

func (r *messageRepo) Create(_ context.Context, m *messages.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = r.s.now()
	cp := *m
	r.s.messages[m.ID] = &cp
	return nil
}

func (r *messageRepo) GetByID(_ context.Context, id uuid.UUID) (*messages.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.messages[id]
	if !ok {
		return nil, fmt.Errorf("memstore.Messages.GetByID: %w", apperr.ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (r *messageRepo) filter(keep func(*messages.Message) bool, page repository.Page) []messages.Message {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	list := []messages.Message{}
	for _, m := range r.s.messages {
		if keep(m) {
			list = append(list, *m)
		}
	}
	sortByCreatedDesc(list, func(m messages.Message) time.Time { return m.CreatedAt })
	return paginate(list, page)
}

func (r *messageRepo) Inbox(_ context.Context, userID uint, page repository.Page) ([]messages.Message, error) {
	return r.filter(func(m *messages.Message) bool { return m.RecipientID == userID }, page), nil
}

func (r *messageRepo) Conversation(_ context.Context, a, b uint, page repository.Page) ([]messages.Message, error) {
	return r.filter(func(m *messages.Message) bool {
		return (m.SenderID == a && m.RecipientID == b) || (m.SenderID == b && m.RecipientID == a)
	}, page), nil
}

func (r *messageRepo) MarkRead(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.messages[id]
	if !ok {
		return fmt.Errorf("memstore.Messages.MarkRead: %w", apperr.ErrNotFound)
	}
	if m.ReadAt == nil {
		m.ReadAt = &at
	}
	return nil
}

type postRepo struct{ s *state }

func (r *postRepo) Create(_ context.Context, p *community.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = r.s.now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	r.s.posts[p.ID] = &cp
	return nil
}

func (r *postRepo) GetByID(_ context.Context, id uuid.UUID) (*community.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.posts[id]
	if !ok || p.DeletedAt.Valid {
		return nil, fmt.Errorf("memstore.Posts.GetByID: %w", apperr.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (r *postRepo) list(flagged bool, page repository.Page) []community.Post {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	list := []community.Post{}
	for _, p := range r.s.posts {
		if p.DeletedAt.Valid || p.Flagged != flagged {
			continue
		}
		list = append(list, *p)
	}
	sortByCreatedDesc(list, func(p community.Post) time.Time { return p.CreatedAt })
	return paginate(list, page)
}

func (r *postRepo) Feed(_ context.Context, page repository.Page) ([]community.Post, error) {
	return r.list(false, page), nil
}

func (r *postRepo) Flagged(_ context.Context, page repository.Page) ([]community.Post, error) {
	return r.list(true, page), nil
}

func (r *postRepo) Update(_ context.Context, p *community.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.posts[p.ID]
	if !ok || existing.DeletedAt.Valid {
		return fmt.Errorf("memstore.Posts.Update: %w", apperr.ErrNotFound)
	}
	p.UpdatedAt = r.s.now()
	cp := *p
	r.s.posts[p.ID] = &cp
	return nil
}

func (r *postRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.posts[id]
	if !ok || p.DeletedAt.Valid {
		return fmt.Errorf("memstore.Posts.Delete: %w", apperr.ErrNotFound)
	}
	p.DeletedAt.Time = r.s.now()
	p.DeletedAt.Valid = true
	return nil
}

func (r *postRepo) Like(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.posts[id]
	if !ok || p.DeletedAt.Valid {
		return fmt.Errorf("memstore.Posts.Like: %w", apperr.ErrNotFound)
	}
	p.Likes++
	return nil
}
