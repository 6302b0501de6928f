// Package admin builds the back-office views of users, revenue and activity.
package admin

import (
	"context"
	"fmt"
	"time"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/billing"
	"yoga-studio/internal/domain/subscriptions"
	"yoga-studio/internal/domain/users"
	"yoga-studio/internal/infra/cache"
	"yoga-studio/internal/repository"

	"github.com/sirupsen/logrus"
)

const statsTTL = time.Minute

var ErrUserNotFound = apperr.NotFound("User not found")

type Service struct {
	store *repository.Store
	cache cache.Cache
	log   *logrus.Logger
	now   func() time.Time
}

func New(store *repository.Store, c cache.Cache, log *logrus.Logger) *Service {
	return &Service{store: store, cache: c, log: log, now: time.Now}
}

type Stats struct {
	UsersByRole         map[string]int64 `json:"users_by_role"`
	TotalUsers          int64            `json:"total_users"`
	Revenue             map[string]int64 `json:"revenue"`
	ActiveSubscriptions int64            `json:"active_subscriptions"`
	UpcomingClasses     int64            `json:"upcoming_classes"`
	GeneratedAt         time.Time        `json:"generated_at"`
}

// Stats is cached for a minute; a cache outage falls back to the database.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	const op = "admin.Stats"

	var cached Stats
	if ok, err := s.cache.Get(ctx, cache.KeyAdminStats, &cached); err != nil {
		s.log.WithError(err).Warn("Admin stats cache read failed")
	} else if ok {
		return &cached, nil
	}

	now := s.now()
	byRole, err := s.store.Users.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	revenue, err := s.store.Payments.Revenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	active, err := s.store.Subscriptions.CountActive(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	upcoming, err := s.store.Classes.CountUpcoming(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	st := &Stats{
		UsersByRole:         byRole,
		Revenue:             revenue,
		ActiveSubscriptions: active,
		UpcomingClasses:     upcoming,
		GeneratedAt:         now,
	}
	for _, n := range byRole {
		st.TotalUsers += n
	}

	if err := s.cache.Set(ctx, cache.KeyAdminStats, st, statsTTL); err != nil {
		s.log.WithError(err).Warn("Admin stats cache write failed")
	}
	return st, nil
}

func (s *Service) Users(ctx context.Context, page repository.Page) ([]users.User, int64, error) {
	list, total, err := s.store.Users.List(ctx, page)
	if err != nil {
		return nil, 0, fmt.Errorf("admin.Users: %w", err)
	}
	return list, total, nil
}

type UserDetail struct {
	User         *users.User                 `json:"user"`
	Payments     []billing.Payment           `json:"payments"`
	Subscription *subscriptions.Subscription `json:"subscription"`
}

func (s *Service) User(ctx context.Context, id uint) (*UserDetail, error) {
	const op = "admin.User"

	u, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	payments, err := s.store.Payments.ListByUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sub, err := s.store.Subscriptions.GetByUser(ctx, id)
	if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &UserDetail{User: u, Payments: payments, Subscription: sub}, nil
}

// SetRole changes a user's role. Admins cannot demote themselves.
func (s *Service) SetRole(ctx context.Context, adminID, userID uint, role string) (*users.User, error) {
	const op = "admin.SetRole"

	if !users.ValidRole(role) {
		return nil, apperr.Validation("Role must be user, instructor or admin")
	}
	if adminID == userID && role != users.RoleAdmin {
		return nil, apperr.Validation("You cannot remove your own admin role")
	}

	u, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if u.Role == role {
		return u, nil
	}
	u.Role = role
	if err := s.store.Users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Delete(ctx, cache.KeyAdminStats); err != nil {
		s.log.WithError(err).Warn("Admin stats cache invalidation failed")
	}
	s.log.WithFields(logrus.Fields{"admin_id": adminID, "user_id": userID, "role": role}).Info("User role changed")
	return u, nil
}
