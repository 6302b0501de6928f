// Package goals tracks members' personal practice goals.
package goals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/goals"
	"yoga-studio/internal/repository"
)

var ErrGoalNotFound = apperr.NotFound("Goal not found")

type Service struct {
	store *repository.Store
}

func New(store *repository.Store) *Service {
	return &Service{store: store}
}

type Input struct {
	Title       string
	Description string
	Target      int
	Unit        string
	Deadline    *time.Time
}

// Patch fields left nil are kept.
type Patch struct {
	Title       *string
	Description *string
	Target      *int
	Progress    *int
	Unit        *string
	Deadline    *time.Time
	Status      *string
}

func (s *Service) Create(ctx context.Context, userID uint, in Input) (*goals.Goal, error) {
	g := &goals.Goal{
		UserID:      userID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Target:      in.Target,
		Unit:        strings.TrimSpace(in.Unit),
		Deadline:    in.Deadline,
		Status:      goals.StatusActive,
	}
	if err := validate(g); err != nil {
		return nil, err
	}
	if err := s.store.Goals.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("goals.Create: %w", err)
	}
	return g, nil
}

func (s *Service) List(ctx context.Context, userID uint) ([]goals.Goal, error) {
	list, err := s.store.Goals.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("goals.List: %w", err)
	}
	return list, nil
}

// Get hides goals of other users behind a not-found.
func (s *Service) Get(ctx context.Context, userID, id uint) (*goals.Goal, error) {
	g, err := s.store.Goals.GetByID(ctx, id)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, ErrGoalNotFound
		}
		return nil, fmt.Errorf("goals.Get: %w", err)
	}
	if g.UserID != userID {
		return nil, ErrGoalNotFound
	}
	return g, nil
}

func (s *Service) Update(ctx context.Context, userID, id uint, p Patch) (*goals.Goal, error) {
	g, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if p.Title != nil {
		g.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.Target != nil {
		g.Target = *p.Target
	}
	if p.Progress != nil {
		g.Progress = *p.Progress
	}
	if p.Unit != nil {
		g.Unit = strings.TrimSpace(*p.Unit)
	}
	if p.Deadline != nil {
		g.Deadline = p.Deadline
	}
	if p.Status != nil {
		g.Status = *p.Status
	}
	if err := validate(g); err != nil {
		return nil, err
	}
	g.Reconcile()

	if err := s.store.Goals.Update(ctx, g); err != nil {
		return nil, fmt.Errorf("goals.Update: %w", err)
	}
	return g, nil
}

func (s *Service) Delete(ctx context.Context, userID, id uint) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.Goals.Delete(ctx, id); err != nil {
		return fmt.Errorf("goals.Delete: %w", err)
	}
	return nil
}

func validate(g *goals.Goal) error {
	switch {
	case g.Title == "":
		return apperr.Validation("Title is required")
	case g.Target <= 0:
		return apperr.Validation("Target must be greater than zero")
	case g.Progress < 0:
		return apperr.Validation("Progress cannot be negative")
	case !goals.ValidStatus(g.Status):
		return apperr.Validation("Status must be active, completed or abandoned")
	}
	return nil
}
