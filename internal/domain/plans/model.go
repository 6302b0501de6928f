package plans

import "time"

// UnlimitedClasses as ClassesPerMonth lets a plan book any number of classes.
const UnlimitedClasses = -1

// SubscriptionPlan is admin-managed reference data. MonthlyPrice is in minor units.
type SubscriptionPlan struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	Name             string `gorm:"not null;uniqueIndex:idx_plans_name" json:"name"`
	Description      string `json:"description"`
	MonthlyPrice     int64  `gorm:"not null" json:"monthly_price"`
	Currency         string `gorm:"type:varchar(3);not null" json:"currency"`
	ClassesPerMonth  int    `gorm:"not null;default:0" json:"classes_per_month"`
	OnlineAccess     bool   `json:"online_access"`
	PremiumContent   bool   `json:"premium_content"`
	PersonalCoaching bool   `json:"personal_coaching"`
	IsActive         bool   `gorm:"index" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GrantsClassAccess reports whether subscribers may book paid classes.
func (p *SubscriptionPlan) GrantsClassAccess() bool {
	return p.ClassesPerMonth != 0
}

func (p *SubscriptionPlan) Unlimited() bool {
	return p.ClassesPerMonth < 0
}
