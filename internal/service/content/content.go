// Package content serves the studio's article, video and audio library and
// each member's interactions with it.
package content

import (
	"context"
	"fmt"
	"strings"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/access"
	"yoga-studio/internal/domain/content"
	"yoga-studio/internal/lib/sanitize"
	"yoga-studio/internal/repository"
)

var (
	ErrContentNotFound = apperr.NotFound("Content not found")
	ErrPremiumOnly     = apperr.PaymentRequired("This content requires a premium membership")
)

// PolicyResolver tells what the caller's role and membership allow.
type PolicyResolver interface {
	Policy(ctx context.Context, actor access.Actor) (access.Policy, error)
}

type Service struct {
	store    *repository.Store
	policies PolicyResolver
}

func New(store *repository.Store, policies PolicyResolver) *Service {
	return &Service{store: store, policies: policies}
}

type Input struct {
	Title     string
	Summary   string
	Body      string
	Type      string
	MediaURL  string
	Category  string
	IsPremium bool
	Published bool
}

// List returns published items only; the body is left out.
func (s *Service) List(ctx context.Context, f repository.ContentFilter) ([]content.Content, int64, error) {
	f.PublishedOnly = true
	list, total, err := s.store.Contents.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("content.List: %w", err)
	}
	return list, total, nil
}

// Get returns the full item. Drafts are visible to authors and admins only,
// premium items to members whose plan includes premium content.
func (s *Service) Get(ctx context.Context, actor access.Actor, id uint) (*content.Content, error) {
	const op = "content.Get"

	c, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Published && c.AuthorID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrContentNotFound
	}
	if !c.IsPremium {
		return c, nil
	}

	policy, err := s.policies.Policy(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !policy.Has(access.CapPremiumContent) {
		return nil, ErrPremiumOnly
	}
	return c, nil
}

func (s *Service) Create(ctx context.Context, actor access.Actor, in Input) (*content.Content, error) {
	c := &content.Content{AuthorID: actor.UserID}
	apply(c, in)
	if err := validate(c); err != nil {
		return nil, err
	}
	if err := s.store.Contents.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("content.Create: %w", err)
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, actor access.Actor, id uint, in Input) (*content.Content, error) {
	c, err := s.managed(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	apply(c, in)
	if err := validate(c); err != nil {
		return nil, err
	}
	if err := s.store.Contents.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("content.Update: %w", err)
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, actor access.Actor, id uint) error {
	if _, err := s.managed(ctx, actor, id); err != nil {
		return err
	}
	if err := s.store.Contents.Delete(ctx, id); err != nil {
		return fmt.Errorf("content.Delete: %w", err)
	}
	return nil
}

// InteractionInput carries the fields a member may set; nil leaves a field unchanged.
type InteractionInput struct {
	Liked      *bool
	Bookmarked *bool
	Completed  *bool
	Progress   *int
}

// Interact creates or updates the caller's interaction with a published item.
func (s *Service) Interact(ctx context.Context, userID, contentID uint, in InteractionInput) (*content.Interaction, error) {
	const op = "content.Interact"

	c, err := s.find(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if !c.Published {
		return nil, ErrContentNotFound
	}

	i, err := s.store.Interactions.Get(ctx, userID, contentID)
	switch {
	case apperr.IsKind(err, apperr.KindNotFound):
		i = &content.Interaction{UserID: userID, ContentID: contentID}
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if in.Liked != nil {
		i.Liked = *in.Liked
	}
	if in.Bookmarked != nil {
		i.Bookmarked = *in.Bookmarked
	}
	if in.Progress != nil {
		i.Progress = *in.Progress
		if *in.Progress < 100 && in.Completed == nil {
			i.Completed = false
		}
	}
	if in.Completed != nil {
		i.Completed = *in.Completed
	}
	i.Normalize()

	if err := s.store.Interactions.Upsert(ctx, i); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return i, nil
}

func (s *Service) Interactions(ctx context.Context, userID uint) ([]content.Interaction, error) {
	list, err := s.store.Interactions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("content.Interactions: %w", err)
	}
	return list, nil
}

func (s *Service) find(ctx context.Context, id uint) (*content.Content, error) {
	c, err := s.store.Contents.GetByID(ctx, id)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, ErrContentNotFound
		}
		return nil, fmt.Errorf("content.find: %w", err)
	}
	return c, nil
}

// managed loads an item the actor may edit: its author or an admin.
func (s *Service) managed(ctx context.Context, actor access.Actor, id uint) (*content.Content, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.AuthorID != actor.UserID && !actor.IsAdmin() {
		return nil, apperr.Forbidden("Only the author or an admin can change this content")
	}
	return c, nil
}

func apply(c *content.Content, in Input) {
	c.Title = strings.TrimSpace(in.Title)
	c.Summary = strings.TrimSpace(in.Summary)
	c.Body = sanitize.HTML(in.Body)
	c.Type = strings.ToLower(strings.TrimSpace(in.Type))
	c.MediaURL = strings.TrimSpace(in.MediaURL)
	c.Category = strings.TrimSpace(in.Category)
	c.IsPremium = in.IsPremium
	c.Published = in.Published
}

func validate(c *content.Content) error {
	switch {
	case c.Title == "":
		return apperr.Validation("Title is required")
	case !content.ValidType(c.Type):
		return apperr.Validation("Type must be article, video or audio")
	case c.Type != content.TypeArticle && c.MediaURL == "":
		return apperr.Validation("media_url is required for %s content", c.Type)
	}
	return nil
}
