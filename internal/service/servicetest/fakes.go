// Package servicetest holds doubles shared by the service tests.
package servicetest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"yoga-studio/internal/infra/gateway"
	"yoga-studio/internal/infra/mailer"
	"yoga-studio/internal/infra/razorpay"
)

const (
	KeySecret     = "key_secret"
	WebhookSecret = "hook_secret"
)

type Mailer struct {
	mu   sync.Mutex
	Sent []mailer.Message
	Err  error
}

func (m *Mailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, msg)
	return m.Err
}

func (m *Mailer) Subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Sent))
	for _, msg := range m.Sent {
		out = append(out, msg.Subject)
	}
	return out
}

// Gateway signs and parses like Razorpay but creates orders locally.
type Gateway struct {
	*razorpay.Client

	mu       sync.Mutex
	Requests []gateway.OrderRequest
	Fail     bool
}

func NewGateway() *Gateway {
	return &Gateway{Client: razorpay.New("rzp_test_key", KeySecret, WebhookSecret)}
}

var ErrGatewayDown = errors.New("gateway unavailable")

func (g *Gateway) CreateOrder(_ context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Fail {
		return nil, ErrGatewayDown
	}
	g.Requests = append(g.Requests, req)
	return &gateway.Order{
		ID:       fmt.Sprintf("order_%d", len(g.Requests)),
		Amount:   req.Amount,
		Currency: strings.ToUpper(req.Currency),
		Provider: razorpay.Name,
		KeyID:    "rzp_test_key",
	}, nil
}

// PaymentSignature is what the checkout widget hands back for a capture.
func PaymentSignature(orderID, paymentID string) string {
	return razorpay.Sign(orderID+"|"+paymentID, KeySecret)
}

// CapturedWebhook builds a signed payment.captured notification.
func CapturedWebhook(orderID, paymentID string) ([]byte, string) {
	body := fmt.Sprintf(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":%q,"order_id":%q,"status":"captured"}}}}`, paymentID, orderID)
	return []byte(body), razorpay.Sign(body, WebhookSecret)
}

// FailedWebhook builds a signed payment.failed notification.
func FailedWebhook(orderID, reason string) ([]byte, string) {
	body := fmt.Sprintf(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_failed","order_id":%q,"status":"failed","error_description":%q}}}}`, orderID, reason)
	return []byte(body), razorpay.Sign(body, WebhookSecret)
}
