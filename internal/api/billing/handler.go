// Package billing exposes class checkout, payment verification, gateway
// webhooks and membership orders.
package billing

import (
	"yoga-studio/internal/service/payments"
	"yoga-studio/internal/service/subscriptions"
)

// maxWebhookBody caps gateway notification payloads.
const maxWebhookBody = 65536

type Handler struct {
	payments      *payments.Service
	subscriptions *subscriptions.Service
}

func NewHandler(p *payments.Service, s *subscriptions.Service) *Handler {
	return &Handler{payments: p, subscriptions: s}
}
