package users

import (
	"time"

	"yoga-studio/internal/domain/access"
	"yoga-studio/internal/domain/plans"
	"yoga-studio/internal/domain/subscriptions"
	"yoga-studio/internal/domain/users"
)

func BuildUserDTO(u *users.User) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Lastname:     u.Lastname,
		Tel:          stringPtrIfNotEmpty(u.Tel),
		Role:         u.Role,
		IsVerified:   u.IsVerified,
		AuthProvider: u.AuthProvider,
		HasPassword:  u.HasPassword(),
		Bio:          u.Bio,
		AvatarURL:    stringPtrIfNotEmpty(u.AvatarURL),
	}
}

func BuildPlanDTO(p *plans.SubscriptionPlan) *PlanDTO {
	if p == nil {
		return nil
	}
	return &PlanDTO{
		ID:               p.ID,
		Name:             p.Name,
		MonthlyPrice:     p.MonthlyPrice,
		Currency:         p.Currency,
		ClassesPerMonth:  p.ClassesPerMonth,
		OnlineAccess:     p.OnlineAccess,
		PremiumContent:   p.PremiumContent,
		PersonalCoaching: p.PersonalCoaching,
	}
}

func BuildMembershipDTO(now time.Time, s *subscriptions.Subscription) *MembershipDTO {
	if s == nil {
		return nil
	}
	dto := &MembershipDTO{
		Status:       s.Status,
		BillingCycle: s.BillingCycle,
		Amount:       s.Amount,
		Currency:     s.Currency,
		StartsAt:     s.StartDate,
		EndsAt:       s.EndDate,
		Plan:         BuildPlanDTO(s.Plan),
	}
	if s.IsActive(now) {
		d := int(s.EndDate.Sub(now).Hours() / 24)
		dto.DaysLeft = &d
	}
	return dto
}

func BuildAccessDTO(p access.Policy) AccessDTO {
	caps := make([]string, 0, len(p.Capabilities))
	for _, c := range p.Capabilities {
		caps = append(caps, string(c))
	}
	return AccessDTO{State: string(p.State), Capabilities: caps}
}

func stringPtrIfNotEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
