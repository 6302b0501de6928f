package billing

import (
	"yoga-studio/internal/api/response"
	"yoga-studio/internal/app/http/middleware"

	"github.com/gin-gonic/gin"
)

func (h *Handler) PaymentHistory(c *gin.Context) {
	list, err := h.payments.ListMine(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

func (h *Handler) AllPayments(c *gin.Context) {
	page := response.PageFrom(c)
	list, total, err := h.payments.ListAll(c.Request.Context(), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, list, total, page)
}
