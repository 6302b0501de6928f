// Package razorpay adapts the Razorpay Orders API and webhook signatures to
// the gateway port.
package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"yoga-studio/internal/infra/gateway"

	rzp "github.com/razorpay/razorpay-go"
	"github.com/tidwall/gjson"
)

const (
	Name            = "razorpay"
	SignatureHeader = "X-Razorpay-Signature"
)

// orderAPI is the subset of the Razorpay SDK used here.
type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type Client struct {
	keyID         string
	keySecret     string
	webhookSecret string
	orders        orderAPI
}

func New(keyID, keySecret, webhookSecret string) *Client {
	sdk := rzp.NewClient(keyID, keySecret)
	return &Client{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		orders:        sdk.Order,
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	const op = "razorpay.CreateOrder"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	notes := map[string]interface{}{}
	for k, v := range req.Notes {
		notes[k] = v
	}
	resp, err := c.orders.Create(map[string]interface{}{
		"amount":   req.Amount,
		"currency": strings.ToUpper(req.Currency),
		"receipt":  req.Receipt,
		"notes":    notes,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id, _ := resp["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("%s: response without order id", op)
	}
	return &gateway.Order{
		ID:       id,
		Amount:   req.Amount,
		Currency: strings.ToUpper(req.Currency),
		Provider: Name,
		KeyID:    c.keyID,
	}, nil
}

// VerifyPayment checks hex(HMAC-SHA256(order_id|payment_id, key_secret)).
func (c *Client) VerifyPayment(_ context.Context, orderID, paymentID, signature string) error {
	if orderID == "" || paymentID == "" || signature == "" {
		return gateway.ErrInvalidSignature
	}
	if !validSignature(orderID+"|"+paymentID, signature, c.keySecret) {
		return gateway.ErrInvalidSignature
	}
	return nil
}

func (c *Client) ParseWebhook(payload []byte, header http.Header) (*gateway.Event, error) {
	if !validSignature(string(payload), header.Get(SignatureHeader), c.webhookSecret) {
		return nil, gateway.ErrInvalidSignature
	}
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("razorpay.ParseWebhook: malformed payload")
	}

	doc := gjson.ParseBytes(payload)
	name := doc.Get("event").String()
	ev := &gateway.Event{
		Type:      gateway.EventIgnored,
		Raw:       name,
		OrderID:   doc.Get("payload.payment.entity.order_id").String(),
		PaymentID: doc.Get("payload.payment.entity.id").String(),
	}

	switch name {
	case "payment.captured":
		ev.Type = gateway.EventPaymentCaptured
	case "order.paid":
		ev.Type = gateway.EventPaymentCaptured
		if id := doc.Get("payload.order.entity.id").String(); id != "" {
			ev.OrderID = id
		}
	case "payment.failed":
		ev.Type = gateway.EventPaymentFailed
		ev.Reason = doc.Get("payload.payment.entity.error_description").String()
	}
	return ev, nil
}

// Sign returns the hex HMAC-SHA256 of payload, as Razorpay computes it.
func Sign(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func validSignature(payload, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := Sign(payload, secret)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
