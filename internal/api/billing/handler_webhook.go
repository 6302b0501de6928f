package billing

import (
	"errors"
	"io"
	"net/http"

	"yoga-studio/internal/api/response"

	"github.com/gin-gonic/gin"
)

// Webhook receives provider notifications. Signature checks happen in the
// gateway adapter, so the raw body is passed through untouched.
func (h *Handler) Webhook(c *gin.Context) {
	payload, err := readBody(c, maxWebhookBody)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, "Payload too large")
			return
		}
		response.Fail(c, http.StatusServiceUnavailable, "Error reading request body")
		return
	}

	if err := h.payments.HandleWebhook(c.Request.Context(), payload, c.Request.Header); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func readBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
