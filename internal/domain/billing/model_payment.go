package billing

import "time"

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"

	PurposeClass        = "class"
	PurposeSubscription = "subscription"
)

// Payment records one gateway order and its outcome. Amounts are minor units.
type Payment struct {
	ID               uint    `gorm:"primaryKey" json:"id"`
	UserID           uint    `gorm:"not null;index" json:"user_id"`
	Purpose          string  `gorm:"type:varchar(20);not null" json:"purpose"`
	ClassID          *uint   `gorm:"index" json:"class_id,omitempty"`
	SubscriptionID   *uint   `gorm:"index" json:"subscription_id,omitempty"`
	PlanID           *uint   `json:"plan_id,omitempty"`
	Amount           int64   `gorm:"not null" json:"amount"`
	Currency         string  `gorm:"type:varchar(3);not null" json:"currency"`
	Provider         string  `gorm:"type:varchar(20);not null" json:"provider"`
	OrderID          string  `gorm:"not null;uniqueIndex:idx_payments_order_id" json:"order_id"`
	GatewayPaymentID *string `json:"gateway_payment_id,omitempty"`
	Status           string  `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	FailureReason    string  `json:"failure_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// A failed attempt may still complete when the gateway later reports a
// capture for the same order.
var transitions = map[string][]string{
	StatusPending:   {StatusCompleted, StatusFailed},
	StatusFailed:    {StatusCompleted},
	StatusCompleted: {StatusRefunded},
}

func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (p *Payment) IsPending() bool { return p.Status == StatusPending }
func (p *Payment) IsCompleted() bool { return p.Status == StatusCompleted }
