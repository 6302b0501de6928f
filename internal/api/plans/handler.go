// Package plans serves the membership plan catalog and its admin CRUD.
package plans

import (
	"net/http"

	"yoga-studio/internal/api/response"
	"yoga-studio/internal/service/subscriptions"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *subscriptions.Service
}

func NewHandler(svc *subscriptions.Service) *Handler {
	return &Handler{svc: svc}
}

// planRequest prices are in minor units per month. classes_per_month uses
// -1 for unlimited.
type planRequest struct {
	Name             string `json:"name" binding:"required"`
	Description      string `json:"description"`
	MonthlyPrice     int64  `json:"monthly_price" binding:"min=0"`
	Currency         string `json:"currency" binding:"omitempty,len=3"`
	ClassesPerMonth  int    `json:"classes_per_month" binding:"min=-1"`
	OnlineAccess     bool   `json:"online_access"`
	PremiumContent   bool   `json:"premium_content"`
	PersonalCoaching bool   `json:"personal_coaching"`
	IsActive         *bool  `json:"is_active"`
}

func (r planRequest) input() subscriptions.PlanInput {
	return subscriptions.PlanInput{
		Name:             r.Name,
		Description:      r.Description,
		MonthlyPrice:     r.MonthlyPrice,
		Currency:         r.Currency,
		ClassesPerMonth:  r.ClassesPerMonth,
		OnlineAccess:     r.OnlineAccess,
		PremiumContent:   r.PremiumContent,
		PersonalCoaching: r.PersonalCoaching,
		IsActive:         r.IsActive,
	}
}

// ListPlans returns the active catalog, cheapest first.
func (h *Handler) ListPlans(c *gin.Context) {
	list, err := h.svc.ActivePlans(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

func (h *Handler) AllPlans(c *gin.Context) {
	list, err := h.svc.AllPlans(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

func (h *Handler) GetPlan(c *gin.Context) {
	id, ok := response.UintParam(c, "id")
	if !ok {
		return
	}
	plan, err := h.svc.Plan(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, plan)
}

func (h *Handler) CreatePlan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	plan, err := h.svc.CreatePlan(c.Request.Context(), req.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, plan)
}

func (h *Handler) UpdatePlan(c *gin.Context) {
	id, ok := response.UintParam(c, "id")
	if !ok {
		return
	}
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	plan, err := h.svc.UpdatePlan(c.Request.Context(), id, req.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, plan)
}

func (h *Handler) DeletePlan(c *gin.Context) {
	id, ok := response.UintParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeletePlan(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Plan deleted")
}
