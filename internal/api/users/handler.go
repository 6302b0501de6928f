// Package users serves the caller's own profile and dashboard.
package users

import (
	"context"
	"time"

	"yoga-studio/internal/api/response"
	"yoga-studio/internal/app/http/middleware"
	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/access"
	"yoga-studio/internal/domain/billing"
	"yoga-studio/internal/domain/classes"
	"yoga-studio/internal/domain/goals"
	"yoga-studio/internal/domain/subscriptions"
	"yoga-studio/internal/domain/users"
	authsvc "yoga-studio/internal/service/auth"

	"github.com/gin-gonic/gin"
)

const recentPayments = 5

// Memberships resolves the caller's subscription and policy.
type Memberships interface {
	Current(ctx context.Context, userID uint) (*subscriptions.Subscription, error)
	Policy(ctx context.Context, actor access.Actor) (access.Policy, error)
}

type ClassLister interface {
	Enrolled(ctx context.Context, userID uint) ([]classes.Class, error)
	Teaching(ctx context.Context, actor access.Actor) ([]classes.Class, error)
}

type PaymentLister interface {
	ListMine(ctx context.Context, userID uint) ([]billing.Payment, error)
}

type GoalLister interface {
	List(ctx context.Context, userID uint) ([]goals.Goal, error)
}

// Activity provides the dashboard lists.
type Activity struct {
	Classes  ClassLister
	Payments PaymentLister
	Goals    GoalLister
}

type Handler struct {
	profiles    *authsvc.Service
	memberships Memberships
	activity    Activity
	now         func() time.Time
}

func NewHandler(profiles *authsvc.Service, memberships Memberships, activity Activity) *Handler {
	return &Handler{profiles: profiles, memberships: memberships, activity: activity, now: time.Now}
}

func (h *Handler) GetCurrentUser(c *gin.Context) {
	me, err := h.me(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, me)
}

func (h *Handler) UpdateCurrentUser(c *gin.Context) {
	var input struct {
		Name      *string `json:"name"`
		Lastname  *string `json:"lastname"`
		Tel       *string `json:"tel"`
		Bio       *string `json:"bio"`
		AvatarURL *string `json:"avatar_url" binding:"omitempty,http_url"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	u, err := h.profiles.UpdateProfile(c.Request.Context(), middleware.UserID(c), authsvc.ProfileInput{
		Name:      input.Name,
		Lastname:  input.Lastname,
		Tel:       input.Tel,
		Bio:       input.Bio,
		AvatarURL: input.AvatarURL,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, BuildUserDTO(u))
}

func (h *Handler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	actor := middleware.Actor(c)

	me, err := h.me(ctx, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	enrolled, err := h.activity.Classes.Enrolled(ctx, actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	upcoming := make([]classes.Class, 0, len(enrolled))
	now := h.now()
	for _, cl := range enrolled {
		if cl.Status == classes.StatusScheduled && cl.ScheduledAt.After(now) {
			upcoming = append(upcoming, cl)
		}
	}

	payments, err := h.activity.Payments.ListMine(ctx, actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(payments) > recentPayments {
		payments = payments[:recentPayments]
	}

	myGoals, err := h.activity.Goals.List(ctx, actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	dash := DashboardResponse{Me: *me, UpcomingClasses: upcoming, RecentPayments: payments, Goals: myGoals}
	if actor.Role == users.RoleInstructor || actor.Role == users.RoleAdmin {
		teaching, err := h.activity.Classes.Teaching(ctx, actor)
		if err != nil {
			response.Error(c, err)
			return
		}
		dash.Teaching = teaching
	}
	response.OK(c, dash)
}

func (h *Handler) me(ctx context.Context, actor access.Actor) (*MeResponse, error) {
	u, err := h.profiles.Me(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	sub, err := h.memberships.Current(ctx, actor.UserID)
	if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}
	// role from the stored user so a changed role shows before the token is reissued
	policy, err := h.memberships.Policy(ctx, access.Actor{UserID: u.ID, Role: u.Role})
	if err != nil {
		return nil, err
	}

	return &MeResponse{
		User:       BuildUserDTO(u),
		Membership: BuildMembershipDTO(h.now(), sub),
		Access:     BuildAccessDTO(policy),
	}, nil
}
