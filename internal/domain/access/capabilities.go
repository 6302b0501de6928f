package access

import (
	"yoga-studio/internal/domain/plans"
	"yoga-studio/internal/domain/users"
)

// CapabilitiesFor lists what the role and the subscription plan allow.
func CapabilitiesFor(role string, state AccessState, plan *plans.SubscriptionPlan) []Capability {
	caps := []Capability{}

	switch role {
	case users.RoleAdmin:
		caps = append(caps, CapManageClasses, CapManageContent, CapModerate, CapPremiumContent)
	case users.RoleInstructor:
		caps = append(caps, CapManageClasses, CapManageContent, CapPremiumContent)
	}

	if state != AccessActive || plan == nil {
		return caps
	}

	if plan.GrantsClassAccess() {
		caps = append(caps, CapBookClasses)
	}
	if plan.OnlineAccess {
		caps = append(caps, CapOnlineClasses)
	}
	if plan.PremiumContent && !contains(caps, CapPremiumContent) {
		caps = append(caps, CapPremiumContent)
	}
	if plan.PersonalCoaching {
		caps = append(caps, CapPersonalCoaching)
	}
	return caps
}

func contains(caps []Capability, c Capability) bool {
	for _, have := range caps {
		if have == c {
			return true
		}
	}
	return false
}
