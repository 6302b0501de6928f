// Package gateway is the port every payment provider adapter implements.
package gateway

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrInvalidSignature = errors.New("gateway: invalid signature")
	ErrNotCaptured      = errors.New("gateway: payment not captured")
)

// OrderRequest describes an order in minor currency units.
type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

// Order is what the client needs to open the provider checkout.
type Order struct {
	ID           string `json:"order_id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Provider     string `json:"provider"`
	KeyID        string `json:"key_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
}

type EventType string

const (
	EventPaymentCaptured EventType = "payment_captured"
	EventPaymentFailed   EventType = "payment_failed"
	EventIgnored         EventType = "ignored"
)

// Event is a verified webhook notification reduced to what fulfilment needs.
type Event struct {
	Type      EventType
	Raw       string
	OrderID   string
	PaymentID string
	Reason    string
}

type Gateway interface {
	Name() string
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	// VerifyPayment checks the confirmation the client relays after checkout.
	VerifyPayment(ctx context.Context, orderID, paymentID, signature string) error
	// ParseWebhook authenticates payload with the provider signature header.
	ParseWebhook(payload []byte, header http.Header) (*Event, error)
}
