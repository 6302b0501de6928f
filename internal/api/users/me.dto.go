package users

import "time"

type MeResponse struct {
	User       UserDTO        `json:"user"`
	Membership *MembershipDTO `json:"membership"`
	Access     AccessDTO      `json:"access"`
}

/* ---------- USER ---------- */

type UserDTO struct {
	ID           uint    `json:"id"`
	Email        string  `json:"email"`
	Name         string  `json:"name"`
	Lastname     string  `json:"lastname"`
	Tel          *string `json:"tel"`
	Role         string  `json:"role"`
	IsVerified   bool    `json:"is_verified"`
	AuthProvider string  `json:"auth_provider"`
	HasPassword  bool    `json:"has_password"`
	Bio          string  `json:"bio"`
	AvatarURL    *string `json:"avatar_url"`
}

/* ---------- MEMBERSHIP ---------- */

type MembershipDTO struct {
	Status       string    `json:"status"`
	BillingCycle string    `json:"billing_cycle"`
	Amount       int64     `json:"amount"`
	Currency     string    `json:"currency"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	DaysLeft     *int      `json:"days_left"`
	Plan         *PlanDTO  `json:"plan"`
}

type PlanDTO struct {
	ID               uint   `json:"id"`
	Name             string `json:"name"`
	MonthlyPrice     int64  `json:"monthly_price"`
	Currency         string `json:"currency"`
	ClassesPerMonth  int    `json:"classes_per_month"`
	OnlineAccess     bool   `json:"online_access"`
	PremiumContent   bool   `json:"premium_content"`
	PersonalCoaching bool   `json:"personal_coaching"`
}

/* ---------- ACCESS ---------- */

type AccessDTO struct {
	State        string   `json:"state"` // none|pending|active|lapsed
	Capabilities []string `json:"capabilities"`
}

/* ---------- DASHBOARD ---------- */

type DashboardResponse struct {
	Me              MeResponse `json:"me"`
	UpcomingClasses any        `json:"upcoming_classes"`
	Teaching        any        `json:"teaching,omitempty"`
	RecentPayments  any        `json:"recent_payments"`
	Goals           any        `json:"goals"`
}
