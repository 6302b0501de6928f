// Package subscriptions manages plans and the membership order lifecycle.
package subscriptions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/access"
	"yoga-studio/internal/domain/billing"
	"yoga-studio/internal/domain/plans"
	"yoga-studio/internal/domain/subscriptions"
	"yoga-studio/internal/infra/cache"
	"yoga-studio/internal/infra/gateway"
	"yoga-studio/internal/infra/mailer"
	"yoga-studio/internal/infra/metrics"
	"yoga-studio/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const plansTTL = 5 * time.Minute

var (
	ErrPlanNotFound         = apperr.NotFound("Plan not found")
	ErrPlanInactive         = apperr.Validation("Plan is not available")
	ErrSubscriptionNotFound = apperr.NotFound("No subscription found")
)

type Service struct {
	store   *repository.Store
	gw      gateway.Gateway
	cache   cache.Cache
	mail    mailer.Mailer
	metrics *metrics.Metrics
	log     *logrus.Logger
	now     func() time.Time
}

func New(store *repository.Store, gw gateway.Gateway, c cache.Cache, mail mailer.Mailer, m *metrics.Metrics, log *logrus.Logger) *Service {
	return &Service{store: store, gw: gw, cache: c, mail: mail, metrics: m, log: log, now: time.Now}
}

type PlanInput struct {
	Name             string
	Description      string
	MonthlyPrice     int64
	Currency         string
	ClassesPerMonth  int
	OnlineAccess     bool
	PremiumContent   bool
	PersonalCoaching bool
	IsActive         *bool
}

// ActivePlans is served from the cache when possible.
func (s *Service) ActivePlans(ctx context.Context) ([]plans.SubscriptionPlan, error) {
	var list []plans.SubscriptionPlan
	hit, err := s.cache.Get(ctx, cache.KeyActivePlans, &list)
	if err != nil {
		s.log.WithError(err).Warn("Plan cache read failed")
	}
	if hit {
		return list, nil
	}

	list, err = s.store.Plans.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("subscriptions.ActivePlans: %w", err)
	}
	if err := s.cache.Set(ctx, cache.KeyActivePlans, list, plansTTL); err != nil {
		s.log.WithError(err).Warn("Plan cache write failed")
	}
	return list, nil
}

func (s *Service) AllPlans(ctx context.Context) ([]plans.SubscriptionPlan, error) {
	list, err := s.store.Plans.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("subscriptions.AllPlans: %w", err)
	}
	return list, nil
}

func (s *Service) Plan(ctx context.Context, id uint) (*plans.SubscriptionPlan, error) {
	p, err := s.store.Plans.GetByID(ctx, id)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("subscriptions.Plan: %w", err)
	}
	return p, nil
}

func (s *Service) CreatePlan(ctx context.Context, in PlanInput) (*plans.SubscriptionPlan, error) {
	p := &plans.SubscriptionPlan{IsActive: true}
	apply(p, in)
	if err := validatePlan(p); err != nil {
		return nil, err
	}
	if err := s.store.Plans.Create(ctx, p); err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			return nil, apperr.Conflict("A plan with this name already exists")
		}
		return nil, fmt.Errorf("subscriptions.CreatePlan: %w", err)
	}
	s.invalidatePlans(ctx)
	return p, nil
}

func (s *Service) UpdatePlan(ctx context.Context, id uint, in PlanInput) (*plans.SubscriptionPlan, error) {
	p, err := s.Plan(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(p, in)
	if err := validatePlan(p); err != nil {
		return nil, err
	}
	if err := s.store.Plans.Update(ctx, p); err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			return nil, apperr.Conflict("A plan with this name already exists")
		}
		return nil, fmt.Errorf("subscriptions.UpdatePlan: %w", err)
	}
	s.invalidatePlans(ctx)
	return p, nil
}

func (s *Service) DeletePlan(ctx context.Context, id uint) error {
	if err := s.store.Plans.Delete(ctx, id); err != nil {
		switch {
		case apperr.IsKind(err, apperr.KindNotFound):
			return ErrPlanNotFound
		case apperr.IsKind(err, apperr.KindConflict):
			return apperr.Conflict("Plan has subscribers; deactivate it instead")
		}
		return fmt.Errorf("subscriptions.DeletePlan: %w", err)
	}
	s.invalidatePlans(ctx)
	return nil
}

// Checkout is the client's handle on a pending subscription order.
type Checkout struct {
	Order        *gateway.Order              `json:"order"`
	Payment      *billing.Payment            `json:"payment"`
	Subscription *subscriptions.Subscription `json:"subscription"`
}

// CreateOrder opens a gateway order for plan at cycle and replaces the
// user's subscription with a pending one. The gateway is called first so a
// provider outage leaves the current subscription untouched.
func (s *Service) CreateOrder(ctx context.Context, userID, planID uint, cycle string) (*Checkout, error) {
	const op = "subscriptions.CreateOrder"

	cycle = strings.ToLower(strings.TrimSpace(cycle))
	if !plans.ValidCycle(cycle) {
		return nil, apperr.Validation("Billing cycle must be monthly, quarterly or yearly")
	}
	plan, err := s.Plan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, ErrPlanInactive
	}

	amount := plans.PriceFor(plan.MonthlyPrice, cycle)
	order, err := s.gw.CreateOrder(ctx, gateway.OrderRequest{
		Amount:   amount,
		Currency: plan.Currency,
		Receipt:  "sub_" + uuid.NewString()[:18],
		Notes: map[string]string{
			"purpose":       billing.PurposeSubscription,
			"plan_id":       fmt.Sprint(plan.ID),
			"billing_cycle": cycle,
			"user_id":       fmt.Sprint(userID),
		},
	})
	if err != nil {
		return nil, apperr.Internal("Failed to create payment order", err)
	}

	now := s.now()
	sub := &subscriptions.Subscription{
		UserID:       userID,
		PlanID:       plan.ID,
		BillingCycle: cycle,
		Amount:       amount,
		Currency:     plan.Currency,
		Status:       subscriptions.StatusPending,
		StartDate:    now,
		EndDate:      plans.PeriodEnd(now, cycle),
		OrderID:      order.ID,
	}
	if err := s.store.Subscriptions.ReplaceForUser(ctx, sub); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sub.Plan = plan

	payment := &billing.Payment{
		UserID:         userID,
		Purpose:        billing.PurposeSubscription,
		SubscriptionID: &sub.ID,
		PlanID:         &plan.ID,
		Amount:         amount,
		Currency:       plan.Currency,
		Provider:       s.gw.Name(),
		OrderID:        order.ID,
		Status:         billing.StatusPending,
	}
	if err := s.store.Payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.Payment(payment.Purpose, payment.Status)
	return &Checkout{Order: order, Payment: payment, Subscription: sub}, nil
}

// Activate starts the paid period of a pending subscription. Calling it on
// an active subscription is a no-op.
func (s *Service) Activate(ctx context.Context, subscriptionID uint) error {
	const op = "subscriptions.Activate"

	sub, err := s.store.Subscriptions.GetByID(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if sub.Status == subscriptions.StatusActive {
		return nil
	}
	if !subscriptions.CanTransition(sub.Status, subscriptions.StatusActive) {
		return apperr.Validation("Subscription is %s", sub.Status)
	}
	sub.Activate(s.now())
	if err := s.store.Subscriptions.Update(ctx, sub); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.WithFields(logrus.Fields{"user_id": sub.UserID, "subscription_id": sub.ID}).Info("Subscription activated")

	if u, err := s.store.Users.GetByID(ctx, sub.UserID); err == nil && sub.Plan != nil {
		err = s.mail.Send(ctx, mailer.SubscriptionEmail(u.Email, u.Name, sub.Plan.Name, sub.EndDate))
		s.metrics.Mail("subscription", err)
		if err != nil {
			s.log.WithError(err).WithField("user_id", u.ID).Warn("Subscription email not sent")
		}
	}
	return nil
}

func (s *Service) Current(ctx context.Context, userID uint) (*subscriptions.Subscription, error) {
	sub, err := s.store.Subscriptions.GetByUser(ctx, userID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("subscriptions.Current: %w", err)
	}
	if sub.Expire(s.now()) {
		if err := s.store.Subscriptions.Update(ctx, sub); err != nil {
			return nil, fmt.Errorf("subscriptions.Current: %w", err)
		}
	}
	return sub, nil
}

// Policy resolves what role and subscription allow the user to do now.
func (s *Service) Policy(ctx context.Context, actor access.Actor) (access.Policy, error) {
	sub, err := s.Current(ctx, actor.UserID)
	if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		return access.Policy{}, err
	}
	return access.ComputePolicy(s.now(), actor.Role, sub), nil
}

func (s *Service) Cancel(ctx context.Context, userID uint) (*subscriptions.Subscription, error) {
	sub, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !subscriptions.CanTransition(sub.Status, subscriptions.StatusCancelled) {
		return nil, apperr.Validation("Only an active subscription can be cancelled")
	}
	sub.Status = subscriptions.StatusCancelled
	if err := s.store.Subscriptions.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("subscriptions.Cancel: %w", err)
	}
	return sub, nil
}

func (s *Service) List(ctx context.Context, page repository.Page) ([]subscriptions.Subscription, int64, error) {
	list, total, err := s.store.Subscriptions.List(ctx, page)
	if err != nil {
		return nil, 0, fmt.Errorf("subscriptions.List: %w", err)
	}
	return list, total, nil
}

func (s *Service) ExpireDue(ctx context.Context) (int64, error) {
	n, err := s.store.Subscriptions.ExpireDue(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("subscriptions.ExpireDue: %w", err)
	}
	return n, nil
}

func (s *Service) invalidatePlans(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.KeyActivePlans); err != nil {
		s.log.WithError(err).Warn("Plan cache invalidation failed")
	}
}

func apply(p *plans.SubscriptionPlan, in PlanInput) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.MonthlyPrice = in.MonthlyPrice
	p.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	p.ClassesPerMonth = in.ClassesPerMonth
	p.OnlineAccess = in.OnlineAccess
	p.PremiumContent = in.PremiumContent
	p.PersonalCoaching = in.PersonalCoaching
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}

func validatePlan(p *plans.SubscriptionPlan) error {
	switch {
	case p.Name == "":
		return apperr.Validation("Plan name is required")
	case p.MonthlyPrice <= 0:
		return apperr.Validation("Monthly price must be greater than zero")
	case len(p.Currency) != 3:
		return apperr.Validation("Currency must be a 3-letter code")
	case p.ClassesPerMonth < plans.UnlimitedClasses:
		return apperr.Validation("Classes per month must be -1 (unlimited) or more")
	}
	return nil
}
