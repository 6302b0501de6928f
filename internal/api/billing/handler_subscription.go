package billing

import (
	"net/http"

	"yoga-studio/internal/api/response"
	"yoga-studio/internal/app/http/middleware"
	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/subscriptions"

	"github.com/gin-gonic/gin"
)

type subscriptionOrderRequest struct {
	PlanID       uint   `json:"plan_id" binding:"required"`
	BillingCycle string `json:"billing_cycle" binding:"required,billingcycle"`
}

// Subscribe starts a membership order. The pending subscription replaces
// the current one only after the gateway accepted the order.
func (h *Handler) Subscribe(c *gin.Context) {
	var req subscriptionOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	checkout, err := h.subscriptions.CreateOrder(c.Request.Context(), middleware.UserID(c), req.PlanID, req.BillingCycle)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Envelope{
		Success: true,
		Message: "Subscription order created",
		Data:    gin.H{"provider": h.payments.Provider(), "checkout": checkout},
	})
}

// MySubscription answers with null data when the user never subscribed.
func (h *Handler) MySubscription(c *gin.Context) {
	sub, err := h.subscriptions.Current(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			response.OK(c, (*subscriptions.Subscription)(nil))
			return
		}
		response.Error(c, err)
		return
	}
	response.OK(c, sub)
}

func (h *Handler) CancelSubscription(c *gin.Context) {
	sub, err := h.subscriptions.Cancel(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Envelope{Success: true, Message: "Subscription cancelled", Data: sub})
}

func (h *Handler) Access(c *gin.Context) {
	policy, err := h.subscriptions.Policy(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, policy)
}

func (h *Handler) AllSubscriptions(c *gin.Context) {
	page := response.PageFrom(c)
	list, total, err := h.subscriptions.List(c.Request.Context(), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, list, total, page)
}
