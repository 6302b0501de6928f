package repository

import (
	"context"
	"time"

	"yoga-studio/internal/domain/billing"
	"yoga-studio/internal/domain/plans"
	"yoga-studio/internal/domain/subscriptions"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type paymentRepo struct {
	db *gorm.DB
}

func (r *paymentRepo) Create(ctx context.Context, p *billing.Payment) error {
	const op = "repository.Payments.Create"
	return translate(op, r.db.WithContext(ctx).Create(p).Error)
}

func (r *paymentRepo) GetByOrderID(ctx context.Context, orderID string) (*billing.Payment, error) {
	const op = "repository.Payments.GetByOrderID"

	var p billing.Payment
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&p).Error; err != nil {
		return nil, translate(op, err)
	}
	return &p, nil
}

func (r *paymentRepo) Update(ctx context.Context, p *billing.Payment) error {
	const op = "repository.Payments.Update"
	return translate(op, r.db.WithContext(ctx).Save(p).Error)
}

func (r *paymentRepo) ListByUser(ctx context.Context, userID uint) ([]billing.Payment, error) {
	const op = "repository.Payments.ListByUser"

	var list []billing.Payment
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error
	return list, translate(op, err)
}

func (r *paymentRepo) List(ctx context.Context, page Page) ([]billing.Payment, int64, error) {
	const op = "repository.Payments.List"

	page = page.Normalize()
	q := r.db.WithContext(ctx).Model(&billing.Payment{}).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(op, err)
	}
	var list []billing.Payment
	err := q.Order("created_at DESC").Limit(page.Limit).Offset(page.Offset()).Find(&list).Error
	return list, total, translate(op, err)
}

func (r *paymentRepo) Revenue(ctx context.Context) (map[string]int64, error) {
	const op = "repository.Payments.Revenue"

	var rows []struct {
		Currency string
		Total    int64
	}
	err := r.db.WithContext(ctx).Model(&billing.Payment{}).
		Select("currency, COALESCE(SUM(amount), 0) AS total").
		Where("status = ?", billing.StatusCompleted).
		Group("currency").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(op, err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Currency] = row.Total
	}
	return out, nil
}

type planRepo struct {
	db *gorm.DB
}

func (r *planRepo) Create(ctx context.Context, p *plans.SubscriptionPlan) error {
	const op = "repository.Plans.Create"
	return translate(op, r.db.WithContext(ctx).Create(p).Error)
}

func (r *planRepo) GetByID(ctx context.Context, id uint) (*plans.SubscriptionPlan, error) {
	const op = "repository.Plans.GetByID"

	var p plans.SubscriptionPlan
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(op, err)
	}
	return &p, nil
}

func (r *planRepo) List(ctx context.Context, activeOnly bool) ([]plans.SubscriptionPlan, error) {
	const op = "repository.Plans.List"

	q := r.db.WithContext(ctx)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var list []plans.SubscriptionPlan
	err := q.Order("monthly_price ASC").Find(&list).Error
	return list, translate(op, err)
}

func (r *planRepo) Update(ctx context.Context, p *plans.SubscriptionPlan) error {
	const op = "repository.Plans.Update"
	return translate(op, r.db.WithContext(ctx).Save(p).Error)
}

func (r *planRepo) Delete(ctx context.Context, id uint) error {
	const op = "repository.Plans.Delete"

	res := r.db.WithContext(ctx).Delete(&plans.SubscriptionPlan{}, id)
	if res.Error == nil && res.RowsAffected == 0 {
		return translate(op, gorm.ErrRecordNotFound)
	}
	return translate(op, res.Error)
}

type subscriptionRepo struct {
	db *gorm.DB
}

func (r *subscriptionRepo) ReplaceForUser(ctx context.Context, s *subscriptions.Subscription) error {
	const op = "repository.Subscriptions.ReplaceForUser"

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", s.UserID).Delete(&subscriptions.Subscription{}).Error; err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(s).Error
	})
	return translate(op, err)
}

func (r *subscriptionRepo) GetByID(ctx context.Context, id uint) (*subscriptions.Subscription, error) {
	const op = "repository.Subscriptions.GetByID"

	var s subscriptions.Subscription
	if err := r.db.WithContext(ctx).Preload("Plan").First(&s, id).Error; err != nil {
		return nil, translate(op, err)
	}
	return &s, nil
}

func (r *subscriptionRepo) GetByUser(ctx context.Context, userID uint) (*subscriptions.Subscription, error) {
	const op = "repository.Subscriptions.GetByUser"

	var s subscriptions.Subscription
	err := r.db.WithContext(ctx).Preload("Plan").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&s).Error
	if err != nil {
		return nil, translate(op, err)
	}
	return &s, nil
}

func (r *subscriptionRepo) Update(ctx context.Context, s *subscriptions.Subscription) error {
	const op = "repository.Subscriptions.Update"
	return translate(op, r.db.WithContext(ctx).Omit(clause.Associations).Save(s).Error)
}

func (r *subscriptionRepo) CountByUser(ctx context.Context, userID uint) (int64, error) {
	const op = "repository.Subscriptions.CountByUser"

	var n int64
	err := r.db.WithContext(ctx).Model(&subscriptions.Subscription{}).Where("user_id = ?", userID).Count(&n).Error
	return n, translate(op, err)
}

func (r *subscriptionRepo) List(ctx context.Context, page Page) ([]subscriptions.Subscription, int64, error) {
	const op = "repository.Subscriptions.List"

	page = page.Normalize()
	q := r.db.WithContext(ctx).Model(&subscriptions.Subscription{}).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(op, err)
	}
	var list []subscriptions.Subscription
	err := q.Preload("Plan").Order("created_at DESC").Limit(page.Limit).Offset(page.Offset()).Find(&list).Error
	return list, total, translate(op, err)
}

// ExpireDue bulk-expires active subscriptions whose end date has passed.
func (r *subscriptionRepo) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	const op = "repository.Subscriptions.ExpireDue"

	res := r.db.WithContext(ctx).Model(&subscriptions.Subscription{}).
		Where("status = ? AND end_date < ?", subscriptions.StatusActive, now).
		UpdateColumn("status", subscriptions.StatusExpired)
	return res.RowsAffected, translate(op, res.Error)
}

func (r *subscriptionRepo) CountActive(ctx context.Context, now time.Time) (int64, error) {
	const op = "repository.Subscriptions.CountActive"

	var n int64
	err := r.db.WithContext(ctx).Model(&subscriptions.Subscription{}).
		Where("status = ? AND end_date > ?", subscriptions.StatusActive, now).
		Count(&n).Error
	return n, translate(op, err)
}
