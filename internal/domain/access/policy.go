package access

import (
	"time"

	"yoga-studio/internal/domain/classes"
	"yoga-studio/internal/domain/plans"
	"yoga-studio/internal/domain/subscriptions"
	"yoga-studio/internal/domain/users"
)

type Policy struct {
	Role         string       `json:"role"`
	State        AccessState  `json:"state"`
	Capabilities []Capability `json:"capabilities"`
}

func ComputePolicy(now time.Time, role string, sub *subscriptions.Subscription) Policy {
	state := ComputeAccessState(now, sub)

	var plan *plans.SubscriptionPlan
	if sub != nil {
		plan = sub.Plan
	}
	return Policy{
		Role:         role,
		State:        state,
		Capabilities: CapabilitiesFor(role, state, plan),
	}
}

func (p Policy) Has(c Capability) bool {
	return contains(p.Capabilities, c)
}

// CanManageClass allows the owning instructor and any admin.
func CanManageClass(userID uint, role string, c *classes.Class) bool {
	if role == users.RoleAdmin {
		return true
	}
	return role == users.RoleInstructor && c.OwnedBy(userID)
}
