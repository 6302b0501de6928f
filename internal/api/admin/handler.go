// Package admin serves the back-office dashboard and user management.
package admin

import (
	"time"

	"yoga-studio/internal/api/response"
	"yoga-studio/internal/app/http/middleware"
	"yoga-studio/internal/domain/users"
	adminsvc "yoga-studio/internal/service/admin"

	"github.com/gin-gonic/gin"
)

type AdminUser struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Lastname     string    `json:"lastname"`
	Tel          string    `json:"tel"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	AuthProvider string    `json:"auth_provider"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
}

func toAdminUser(u users.User) AdminUser {
	return AdminUser{
		ID:           u.ID,
		Name:         u.Name,
		Lastname:     u.Lastname,
		Tel:          u.Tel,
		Email:        u.Email,
		Role:         u.Role,
		AuthProvider: u.AuthProvider,
		IsVerified:   u.IsVerified,
		CreatedAt:    u.CreatedAt,
	}
}

type Handler struct {
	svc *adminsvc.Service
}

func NewHandler(svc *adminsvc.Service) *Handler {
	return &Handler{svc: svc}
}

type roleRequest struct {
	Role string `json:"role" binding:"required,oneof=user instructor admin"`
}

func (h *Handler) Dashboard(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

func (h *Handler) ListUsers(c *gin.Context) {
	page := response.PageFrom(c)
	list, total, err := h.svc.Users(c.Request.Context(), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]AdminUser, 0, len(list))
	for _, u := range list {
		out = append(out, toAdminUser(u))
	}
	response.List(c, out, total, page)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := response.UintParam(c, "id")
	if !ok {
		return
	}
	detail, err := h.svc.User(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{
		"user":         toAdminUser(*detail.User),
		"payments":     detail.Payments,
		"subscription": detail.Subscription,
	})
}

func (h *Handler) SetRole(c *gin.Context) {
	id, ok := response.UintParam(c, "id")
	if !ok {
		return
	}
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	u, err := h.svc.SetRole(c.Request.Context(), middleware.UserID(c), id, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toAdminUser(*u))
}
