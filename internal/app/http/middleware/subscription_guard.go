package middleware

import (
	"context"
	"net/http"

	"yoga-studio/internal/api/response"
	"yoga-studio/internal/domain/access"

	"github.com/gin-gonic/gin"
)

const KeyPolicy = "policy"

// PolicyResolver computes what the caller's role and membership allow.
type PolicyResolver interface {
	Policy(ctx context.Context, actor access.Actor) (access.Policy, error)
}

// RequireCapability resolves the caller's policy and rejects the request when
// it lacks capability. Membership capabilities answer 402 so clients can
// offer a plan; role capabilities answer 403.
func RequireCapability(policies PolicyResolver, capability access.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		policy, err := policies.Policy(c.Request.Context(), Actor(c))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if !policy.Has(capability) {
			if membershipCapability(capability) {
				response.Fail(c, http.StatusPaymentRequired, "Your membership does not include this feature")
				return
			}
			response.Fail(c, http.StatusForbidden, "Access denied")
			return
		}

		c.Set(KeyPolicy, policy)
		c.Next()
	}
}

func membershipCapability(c access.Capability) bool {
	switch c {
	case access.CapBookClasses, access.CapOnlineClasses, access.CapPremiumContent, access.CapPersonalCoaching:
		return true
	}
	return false
}
