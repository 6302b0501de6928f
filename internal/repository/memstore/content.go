package memstore

import (
	"context"
	"fmt"
	"time"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/content"
	"yoga-studio/internal/domain/goals"
	"yoga-studio/internal/repository"
)

type contentRepo struct{ s *state }

func (r *contentRepo) Create(_ context.Context, c *content.Content) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c.ID = r.s.nextID()
	c.CreatedAt = r.s.now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	r.s.contents[c.ID] = &cp
	return nil
}

func (r *contentRepo) GetByID(_ context.Context, id uint) (*content.Content, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.contents[id]
	if !ok {
		return nil, fmt.Errorf("memstore.Contents.GetByID: %w", apperr.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (r *contentRepo) List(_ context.Context, f repository.ContentFilter) ([]content.Content, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	list := []content.Content{}
	for _, c := range r.s.contents {
		switch {
		case f.Type != "" && c.Type != f.Type:
			continue
		case f.Category != "" && c.Category != f.Category:
			continue
		case f.PublishedOnly && !c.Published:
			continue
		}
		cp := *c
		cp.Body = ""
		list = append(list, cp)
	}
	sortByCreatedDesc(list, func(c content.Content) time.Time { return c.CreatedAt })
	return paginate(list, f.Page), int64(len(list)), nil
}

func (r *contentRepo) Update(_ context.Context, c *content.Content) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.contents[c.ID]; !ok {
		return fmt.Errorf("memstore.Contents.Update: %w", apperr.ErrNotFound)
	}
	c.UpdatedAt = r.s.now()
	cp := *c
	r.s.contents[c.ID] = &cp
	return nil
}

func (r *contentRepo) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.contents[id]; !ok {
		return fmt.Errorf("memstore.Contents.Delete: %w", apperr.ErrNotFound)
	}
	for key := range r.s.interactions {
		if key.parentID == id {
			delete(r.s.interactions, key)
		}
	}
	delete(r.s.contents, id)
	return nil
}

type interactionRepo struct{ s *state }

func (r *interactionRepo) Get(_ context.Context, userID, contentID uint) (*content.Interaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	i, ok := r.s.interactions[enrollKey{parentID: contentID, userID: userID}]
	if !ok {
		return nil, fmt.Errorf("memstore.Interactions.Get: %w", apperr.ErrNotFound)
	}
	cp := *i
	return &cp, nil
}

func (r *interactionRepo) Upsert(_ context.Context, i *content.Interaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := enrollKey{parentID: i.ContentID, userID: i.UserID}
	now := r.s.now()
	if existing, ok := r.s.interactions[key]; ok {
		i.ID = existing.ID
		i.CreatedAt = existing.CreatedAt
	} else {
		i.ID = r.s.nextID()
		i.CreatedAt = now
	}
	i.UpdatedAt = now
	cp := *i
	r.s.interactions[key] = &cp
	return nil
}

func (r *interactionRepo) ListByUser(_ context.Context, userID uint) ([]content.Interaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	list := []content.Interaction{}
	for key, i := range r.s.interactions {
		if key.userID == userID {
			list = append(list, *i)
		}
	}
	sortByCreatedDesc(list, func(i content.Interaction) time.Time { return i.UpdatedAt })
	return list, nil
}

type goalRepo struct{ s *state }

func (r *goalRepo) Create(_ context.Context, g *goals.Goal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	g.ID = r.s.nextID()
	if g.Status == "" {
		g.Status = goals.StatusActive
	}
	g.CreatedAt = r.s.now()
	g.UpdatedAt = g.CreatedAt
	cp := *g
	r.s.goals[g.ID] = &cp
	return nil
}

func (r *goalRepo) GetByID(_ context.Context, id uint) (*goals.Goal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	g, ok := r.s.goals[id]
	if !ok {
		return nil, fmt.Errorf("memstore.Goals.GetByID: %w", apperr.ErrNotFound)
	}
	cp := *g
	return &cp, nil
}

func (r *goalRepo) ListByUser(_ context.Context, userID uint) ([]goals.Goal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	list := []goals.Goal{}
	for _, g := range r.s.goals {
		if g.UserID == userID {
			list = append(list, *g)
		}
	}
	sortByCreatedDesc(list, func(g goals.Goal) time.Time { return g.CreatedAt })
	return list, nil
}

func (r *goalRepo) Update(_ context.Context, g *goals.Goal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.goals[g.ID]; !ok {
		return fmt.Errorf("memstore.Goals.Update: %w", apperr.ErrNotFound)
	}
	g.UpdatedAt = r.s.now()
	cp := *g
	r.s.goals[g.ID] = &cp
	return nil
}

func (r *goalRepo) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.goals[id]; !ok {
		return fmt.Errorf("memstore.Goals.Delete: %w", apperr.ErrNotFound)
	}
	delete(r.s.goals, id)
	return nil
}
