package access

import (
	"time"

	"yoga-studio/internal/domain/subscriptions"
)

// ComputeAccessState interprets a user's subscription row at now.
func ComputeAccessState(now time.Time, sub *subscriptions.Subscription) AccessState {
	if sub == nil {
		return AccessNone
	}

	switch sub.Status {
	case subscriptions.StatusPending:
		return AccessPending
	case subscriptions.StatusActive:
		if sub.IsActive(now) {
			return AccessActive
		}
		return AccessLapsed
	case subscriptions.StatusCancelled, subscriptions.StatusExpired:
		return AccessLapsed
	default:
		return AccessNone
	}
}
