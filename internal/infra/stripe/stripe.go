// Package stripe adapts Stripe PaymentIntents to the gateway port.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"yoga-studio/internal/domain/billing"
	"yoga-studio/internal/infra/gateway"

	stripego "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
	"github.com/stripe/stripe-go/v75/webhook"
	"github.com/tidwall/gjson"
)

const (
	Name            = "stripe"
	SignatureHeader = "Stripe-Signature"
)

type intentAPI interface {
	New(params *stripego.PaymentIntentParams) (*stripego.PaymentIntent, error)
	Get(id string, params *stripego.PaymentIntentParams) (*stripego.PaymentIntent, error)
}

type Client struct {
	publishableKey string
	webhookSecret  string
	intents        intentAPI
}

func New(secretKey, publishableKey, webhookSecret string) *Client {
	sc := client.New(secretKey, nil)
	return &Client{
		publishableKey: publishableKey,
		webhookSecret:  webhookSecret,
		intents:        sc.PaymentIntents,
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	const op = "stripe.CreateOrder"

	params := &stripego.PaymentIntentParams{
		Amount:   stripego.Int64(req.Amount),
		Currency: stripego.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripego.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripego.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("receipt", req.Receipt)
	for k, v := range req.Notes {
		params.AddMetadata(k, v)
	}

	pi, err := c.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &gateway.Order{
		ID:           pi.ID,
		Amount:       req.Amount,
		Currency:     strings.ToUpper(req.Currency),
		Provider:     Name,
		KeyID:        c.publishableKey,
		ClientSecret: pi.ClientSecret,
	}, nil
}

// VerifyPayment asks Stripe for the intent status; Stripe has no client-side
// signature, so paymentID must match the intent id.
func (c *Client) VerifyPayment(ctx context.Context, orderID, paymentID, _ string) error {
	const op = "stripe.VerifyPayment"

	if paymentID != "" && paymentID != orderID {
		return gateway.ErrInvalidSignature
	}
	params := &stripego.PaymentIntentParams{}
	params.Context = ctx
	pi, err := c.intents.Get(orderID, params)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if NormalizeIntentStatus(string(pi.Status)) != billing.StatusCompleted {
		return gateway.ErrNotCaptured
	}
	return nil
}

func (c *Client) ParseWebhook(payload []byte, header http.Header) (*gateway.Event, error) {
	event, err := webhook.ConstructEventWithOptions(
		payload,
		header.Get(SignatureHeader),
		c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return nil, errors.Join(gateway.ErrInvalidSignature, err)
	}

	raw := event.Data.Raw
	intentID := gjson.GetBytes(raw, "id").String()
	ev := &gateway.Event{
		Type:      gateway.EventIgnored,
		Raw:       string(event.Type),
		OrderID:   intentID,
		PaymentID: intentID,
	}

	switch event.Type {
	case "payment_intent.succeeded":
		ev.Type = gateway.EventPaymentCaptured
	case "payment_intent.payment_failed", "payment_intent.canceled":
		ev.Type = gateway.EventPaymentFailed
		ev.Reason = gjson.GetBytes(raw, "last_payment_error.message").String()
		if ev.Reason == "" {
			ev.Reason = gjson.GetBytes(raw, "cancellation_reason").String()
		}
	}
	return ev, nil
}
