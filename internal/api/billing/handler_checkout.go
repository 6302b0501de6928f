package billing

import (
	"net/http"

	"yoga-studio/internal/api/response"
	"yoga-studio/internal/app/http/middleware"
	"yoga-studio/internal/service/payments"

	"github.com/gin-gonic/gin"
)

type classOrderRequest struct {
	ClassID uint `json:"class_id" binding:"required"`
}

type verifyRequest struct {
	OrderID   string `json:"order_id" binding:"required"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// CreateClassOrder opens a gateway order for a paid drop-in class.
func (h *Handler) CreateClassOrder(c *gin.Context) {
	var req classOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	checkout, err := h.payments.CreateClassOrder(c.Request.Context(), middleware.UserID(c), req.ClassID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Envelope{
		Success: true,
		Message: "Order created",
		Data:    gin.H{"provider": h.payments.Provider(), "checkout": checkout},
	})
}

// Verify confirms a checkout the client completed with the provider.
func (h *Handler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	p, err := h.payments.Verify(c.Request.Context(), middleware.UserID(c), payments.VerifyInput{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Envelope{Success: true, Message: "Payment verified", Data: p})
}
