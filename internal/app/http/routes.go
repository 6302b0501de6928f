package routes

import (
	"fmt"
	"net/http"

	adminapi "yoga-studio/internal/api/admin"
	authapi "yoga-studio/internal/api/auth"
	"yoga-studio/internal/api/billing"
	classesapi "yoga-studio/internal/api/classes"
	communityapi "yoga-studio/internal/api/community"
	contentapi "yoga-studio/internal/api/content"
	goalsapi "yoga-studio/internal/api/goals"
	messagesapi "yoga-studio/internal/api/messages"
	"yoga-studio/internal/api/plans"
	"yoga-studio/internal/api/response"
	"yoga-studio/internal/api/users"
	"yoga-studio/internal/app/http/middleware"
	"yoga-studio/internal/domain/access"
	"yoga-studio/internal/domain/classes"
	domainplans "yoga-studio/internal/domain/plans"
	roles "yoga-studio/internal/domain/users"
	"yoga-studio/internal/infra/metrics"
	"yoga-studio/internal/lib/jwt"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// rawFields are request keys the sanitizer must leave byte-exact. URLs are
// checked by binding tags and "body" is cleaned by the owning service.
var rawFields = []string{
	"password", "current_password", "new_password", "token", "code", "signature",
	"meeting_link", "image_url", "media_url", "avatar_url",
	"body",
}

type Handlers struct {
	Auth      *authapi.Handler
	Users     *users.Handler
	Classes   *classesapi.Handler
	Billing   *billing.Handler
	Plans     *plans.Handler
	Content   *contentapi.Handler
	Goals     *goalsapi.Handler
	Messages  *messagesapi.Handler
	Community *communityapi.Handler
	Admin     *adminapi.Handler
}

type Options struct {
	Tokens      *jwt.Maker
	Policies    middleware.PolicyResolver
	Metrics     *metrics.Metrics
	AuthLimiter *middleware.RateLimiter
}

// RegisterValidators adds the domain tags used in request bindings.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("routes.RegisterValidators: unexpected validator engine %T", binding.Validator.Engine())
	}
	response.UseJSONNames(v)
	if err := v.RegisterValidation("yogalevel", func(fl validator.FieldLevel) bool {
		return classes.ValidLevel(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("routes.RegisterValidators: %w", err)
	}
	if err := v.RegisterValidation("billingcycle", func(fl validator.FieldLevel) bool {
		return domainplans.ValidCycle(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("routes.RegisterValidators: %w", err)
	}
	return nil
}

func RegisterRoutes(r *gin.Engine, h Handlers, opts Options) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	api := r.Group("/api")

	// The gateway signs the raw body, so the webhook skips sanitizing.
	api.POST("/payments/webhook", h.Billing.Webhook)

	public := api.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware(rawFields...))

	authGroup := public.Group("/auth")
	if opts.AuthLimiter != nil {
		authGroup.Use(opts.AuthLimiter.Middleware())
	}
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/verify-otp", h.Auth.VerifyOTP)
	authGroup.POST("/resend-otp", h.Auth.ResendOTP)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/forgot-password", h.Auth.ForgotPassword)
	authGroup.POST("/reset-password", h.Auth.ResetPassword)
	authGroup.GET("/google", h.Auth.GoogleStart)
	authGroup.GET("/google/callback", h.Auth.GoogleCallback)

	public.GET("/classes", h.Classes.List)
	public.GET("/classes/:id", h.Classes.Get)
	public.GET("/plans", h.Plans.ListPlans)
	public.GET("/plans/:id", h.Plans.GetPlan)
	public.GET("/content", h.Content.List)

	// Authenticated
	auth := public.Group("/")
	auth.Use(middleware.AuthMiddleware(opts.Tokens))

	auth.POST("/auth/change-password", h.Auth.ChangePassword)

	auth.GET("/users/me", h.Users.GetCurrentUser)
	auth.PUT("/users/me", h.Users.UpdateCurrentUser)
	auth.GET("/users/me/dashboard", h.Users.Dashboard)

	auth.GET("/classes/my", h.Classes.Mine)
	auth.POST("/classes/:id/enroll", h.Classes.Enroll)
	auth.DELETE("/classes/:id/enroll", h.Classes.Unenroll)
	auth.GET("/classes/:id/ticket", h.Classes.Ticket)

	teaching := auth.Group("/")
	teaching.Use(middleware.RequireCapability(opts.Policies, access.CapManageClasses))
	teaching.GET("/classes/teaching", h.Classes.Teaching)
	teaching.POST("/classes", h.Classes.Create)
	teaching.PUT("/classes/:id", h.Classes.Update)
	teaching.DELETE("/classes/:id", h.Classes.Delete)
	teaching.GET("/classes/:id/roster", h.Classes.Roster)

	auth.POST("/payments/create-order", h.Billing.CreateClassOrder)
	auth.POST("/payments/verify", h.Billing.Verify)
	auth.GET("/payments/my", h.Billing.PaymentHistory)

	auth.POST("/subscriptions/create-order", h.Billing.Subscribe)
	auth.GET("/subscriptions/me", h.Billing.MySubscription)
	auth.POST("/subscriptions/cancel", h.Billing.CancelSubscription)
	auth.GET("/subscriptions/access", h.Billing.Access)

	auth.GET("/content/:id", h.Content.Get)
	auth.GET("/interactions", h.Content.MyInteractions)
	auth.PUT("/interactions/:id", h.Content.Interact)

	authoring := auth.Group("/")
	authoring.Use(middleware.RequireCapability(opts.Policies, access.CapManageContent))
	authoring.POST("/content", h.Content.Create)
	authoring.PUT("/content/:id", h.Content.Update)
	authoring.DELETE("/content/:id", h.Content.Delete)

	auth.GET("/goals", h.Goals.List)
	auth.POST("/goals", h.Goals.Create)
	auth.GET("/goals/:id", h.Goals.Get)
	auth.PUT("/goals/:id", h.Goals.Update)
	auth.DELETE("/goals/:id", h.Goals.Delete)

	auth.GET("/messages", h.Messages.Inbox)
	auth.POST("/messages", h.Messages.Send)
	auth.GET("/messages/with/:userId", h.Messages.Conversation)
	auth.PUT("/messages/:id/read", h.Messages.MarkRead)
	auth.GET("/chat/ws", h.Messages.Stream)

	auth.GET("/community", h.Community.Feed)
	auth.POST("/community", h.Community.Create)
	auth.PUT("/community/:id", h.Community.Update)
	auth.DELETE("/community/:id", h.Community.Delete)
	auth.POST("/community/:id/like", h.Community.Like)
	auth.POST("/community/:id/flag", h.Community.Flag)

	// Admin routes
	admin := auth.Group("/admin")
	admin.Use(middleware.RequireRole(roles.RoleAdmin))
	admin.GET("/dashboard", h.Admin.Dashboard)
	admin.GET("/users", h.Admin.ListUsers)
	admin.GET("/users/:id", h.Admin.GetUser)
	admin.PUT("/users/:id/role", h.Admin.SetRole)
	admin.GET("/payments", h.Billing.AllPayments)
	admin.GET("/subscriptions", h.Billing.AllSubscriptions)
	admin.GET("/plans", h.Plans.AllPlans)
	admin.POST("/plans", h.Plans.CreatePlan)
	admin.PUT("/plans/:id", h.Plans.UpdatePlan)
	admin.DELETE("/plans/:id", h.Plans.DeletePlan)
	admin.GET("/community/flagged", h.Community.Flagged)
	admin.PUT("/community/:id/moderate", h.Community.Moderate)
}
