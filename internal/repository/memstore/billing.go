package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/billing"
	"yoga-studio/internal/domain/plans"
	"yoga-studio/internal/domain/subscriptions"
	"yoga-studio/internal/repository"
)

type paymentRepo struct{ s *state }

func (r *paymentRepo) Create(_ context.Context, p *billing.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.payments {
		if existing.OrderID == p.OrderID {
			return fmt.Errorf("memstore.Payments.Create: %w", apperr.ErrConflict)
		}
	}
	p.ID = r.s.nextID()
	if p.Status == "" {
		p.Status = billing.StatusPending
	}
	p.CreatedAt = r.s.now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	r.s.payments[p.ID] = &cp
	return nil
}

func (r *paymentRepo) GetByOrderID(_ context.Context, orderID string) (*billing.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.payments {
		if p.OrderID == orderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("memstore.Payments.GetByOrderID: %w", apperr.ErrNotFound)
}

func (r *paymentRepo) Update(_ context.Context, p *billing.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.payments[p.ID]; !ok {
		return fmt.Errorf("memstore.Payments.Update: %w", apperr.ErrNotFound)
	}
	p.UpdatedAt = r.s.now()
	cp := *p
	r.s.payments[p.ID] = &cp
	return nil
}

func (r *paymentRepo) ListByUser(_ context.Context, userID uint) ([]billing.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	list := []billing.Payment{}
	for _, p := range r.s.payments {
		if p.UserID == userID {
			list = append(list, *p)
		}
	}
	sortPayments(list)
	return list, nil
}

func (r *paymentRepo) List(_ context.Context, page repository.Page) ([]billing.Payment, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	list := make([]billing.Payment, 0, len(r.s.payments))
	for _, p := range r.s.payments {
		list = append(list, *p)
	}
	sortPayments(list)
	return paginate(list, page), int64(len(list)), nil
}

func (r *paymentRepo) Revenue(_ context.Context) (map[string]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := map[string]int64{}
	for _, p := range r.s.payments {
		if p.Status == billing.StatusCompleted {
			out[p.Currency] += p.Amount
		}
	}
	return out, nil
}

// sortPayments orders newest first, falling back to id for equal timestamps.
func sortPayments(list []billing.Payment) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

type planRepo struct{ s *state }

func (r *planRepo) Create(_ context.Context, p *plans.SubscriptionPlan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.plans {
		if existing.Name == p.Name {
			return fmt.Errorf("memstore.Plans.Create: %w", apperr.ErrConflict)
		}
	}
	p.ID = r.s.nextID()
	p.CreatedAt = r.s.now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	r.s.plans[p.ID] = &cp
	return nil
}

func (r *planRepo) GetByID(_ context.Context, id uint) (*plans.SubscriptionPlan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.plans[id]
	if !ok {
		return nil, fmt.Errorf("memstore.Plans.GetByID: %w", apperr.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (r *planRepo) List(_ context.Context, activeOnly bool) ([]plans.SubscriptionPlan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	list := []plans.SubscriptionPlan{}
	for _, p := range r.s.plans {
		if activeOnly && !p.IsActive {
			continue
		}
		list = append(list, *p)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].MonthlyPrice < list[j].MonthlyPrice })
	return list, nil
}

func (r *planRepo) Update(_ context.Context, p *plans.SubscriptionPlan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.plans[p.ID]; !ok {
		return fmt.Errorf("memstore.Plans.Update: %w", apperr.ErrNotFound)
	}
	p.UpdatedAt = r.s.now()
	cp := *p
	r.s.plans[p.ID] = &cp
	return nil
}

func (r *planRepo) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.plans[id]; !ok {
		return fmt.Errorf("memstore.Plans.Delete: %w", apperr.ErrNotFound)
	}
	for _, sub := range r.s.subscriptions {
		if sub.PlanID == id {
			return fmt.Errorf("memstore.Plans.Delete: %w", repository.ErrInUse)
		}
	}
	delete(r.s.plans, id)
	return nil
}

type subscriptionRepo struct{ s *state }

// withPlan copies sub and attaches its plan like a gorm Preload.
func (r *subscriptionRepo) withPlan(sub *subscriptions.Subscription) subscriptions.Subscription {
	cp := *sub
	cp.Plan = nil
	if p, ok := r.s.plans[sub.PlanID]; ok {
		pc := *p
		cp.Plan = &pc
	}
	return cp
}

func (r *subscriptionRepo) store(sub *subscriptions.Subscription) {
	sub.Expire(r.s.now())
	cp := *sub
	cp.Plan = nil
	r.s.subscriptions[sub.ID] = &cp
}

func (r *subscriptionRepo) ReplaceForUser(_ context.Context, sub *subscriptions.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, existing := range r.s.subscriptions {
		if existing.UserID == sub.UserID {
			delete(r.s.subscriptions, id)
		}
	}
	sub.ID = r.s.nextID()
	sub.CreatedAt = r.s.now()
	sub.UpdatedAt = sub.CreatedAt
	r.store(sub)
	return nil
}

func (r *subscriptionRepo) GetByID(_ context.Context, id uint) (*subscriptions.Subscription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sub, ok := r.s.subscriptions[id]
	if !ok {
		return nil, fmt.Errorf("memstore.Subscriptions.GetByID: %w", apperr.ErrNotFound)
	}
	out := r.withPlan(sub)
	return &out, nil
}

func (r *subscriptionRepo) GetByUser(_ context.Context, userID uint) (*subscriptions.Subscription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var latest *subscriptions.Subscription
	for _, sub := range r.s.subscriptions {
		if sub.UserID != userID {
			continue
		}
		if latest == nil || sub.CreatedAt.After(latest.CreatedAt) || (sub.CreatedAt.Equal(latest.CreatedAt) && sub.ID > latest.ID) {
			latest = sub
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("memstore.Subscriptions.GetByUser: %w", apperr.ErrNotFound)
	}
	out := r.withPlan(latest)
	return &out, nil
}

func (r *subscriptionRepo) Update(_ context.Context, sub *subscriptions.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.subscriptions[sub.ID]; !ok {
		return fmt.Errorf("memstore.Subscriptions.Update: %w", apperr.ErrNotFound)
	}
	sub.UpdatedAt = r.s.now()
	r.store(sub)
	return nil
}

func (r *subscriptionRepo) CountByUser(_ context.Context, userID uint) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, sub := range r.s.subscriptions {
		if sub.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *subscriptionRepo) List(_ context.Context, page repository.Page) ([]subscriptions.Subscription, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	list := make([]subscriptions.Subscription, 0, len(r.s.subscriptions))
	for _, sub := range r.s.subscriptions {
		list = append(list, r.withPlan(sub))
	}
	sortByCreatedDesc(list, func(s subscriptions.Subscription) time.Time { return s.CreatedAt })
	return paginate(list, page), int64(len(list)), nil
}

func (r *subscriptionRepo) ExpireDue(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, sub := range r.s.subscriptions {
		if sub.Expire(now) {
			n++
		}
	}
	return n, nil
}

func (r *subscriptionRepo) CountActive(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, sub := range r.s.subscriptions {
		if sub.IsActive(now) {
			n++
		}
	}
	return n, nil
}
