package subscriptions

import (
	"time"

	"yoga-studio/internal/domain/plans"

	"gorm.io/gorm"
)

const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

// Subscription is a user's time-bounded access to a plan. The order path keeps
// one row per user by deleting the previous one.
type Subscription struct {
	ID           uint                    `gorm:"primaryKey" json:"id"`
	UserID       uint                    `gorm:"not null;index" json:"user_id"`
	PlanID       uint                    `gorm:"not null" json:"plan_id"`
	Plan         *plans.SubscriptionPlan `json:"plan,omitempty"`
	BillingCycle string                  `gorm:"type:varchar(20);not null" json:"billing_cycle"`
	Amount       int64                   `gorm:"not null" json:"amount"`
	Currency     string                  `gorm:"type:varchar(3);not null" json:"currency"`
	Status       string                  `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	StartDate    time.Time               `json:"start_date"`
	EndDate      time.Time               `gorm:"index" json:"end_date"`
	OrderID      string                  `gorm:"index" json:"order_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var transitions = map[string][]string{
	StatusPending: {StatusActive},
	StatusActive:  {StatusCancelled, StatusExpired},
}

func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Expire marks an active subscription past its end date as expired.
func (s *Subscription) Expire(now time.Time) bool {
	if s.Status == StatusActive && !s.EndDate.IsZero() && now.After(s.EndDate) {
		s.Status = StatusExpired
		return true
	}
	return false
}

// IsActive reports whether the subscription currently grants access.
func (s *Subscription) IsActive(now time.Time) bool {
	return s.Status == StatusActive && now.Before(s.EndDate)
}

// Activate starts the paid period at now.
func (s *Subscription) Activate(now time.Time) {
	s.Status = StatusActive
	s.StartDate = now
	s.EndDate = plans.PeriodEnd(now, s.BillingCycle)
}

func (s *Subscription) BeforeSave(tx *gorm.DB) error {
	s.Expire(time.Now())
	return nil
}
