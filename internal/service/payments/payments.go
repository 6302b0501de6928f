// Package payments creates gateway orders for class bookings, confirms
// captured payments and fulfils them.
package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/billing"
	"yoga-studio/internal/domain/classes"
	"yoga-studio/internal/infra/gateway"
	"yoga-studio/internal/infra/metrics"
	"yoga-studio/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrPaymentNotFound    = apperr.NotFound("Payment not found")
	ErrVerificationFailed = apperr.Validation("Payment verification failed")
	ErrInvalidWebhook     = apperr.Validation("Invalid webhook signature")
	ErrNotCaptured        = apperr.Validation("Payment has not been captured yet")
	ErrFreeClass          = apperr.Validation("This class is free; enroll directly")
)

const (
	reasonClassFull    = "class filled before capture; refund due"
	reasonSubscription = "subscription was replaced before capture; refund due"
)

// Enroller books a user whose class payment completed.
type Enroller interface {
	EnrollPaid(ctx context.Context, classID, userID uint) error
}

// Activator starts a subscription whose payment completed.
type Activator interface {
	Activate(ctx context.Context, subscriptionID uint) error
}

type Service struct {
	store     *repository.Store
	gw        gateway.Gateway
	enroller  Enroller
	activator Activator
	metrics   *metrics.Metrics
	log       *logrus.Logger
}

func New(store *repository.Store, gw gateway.Gateway, enroller Enroller, activator Activator, m *metrics.Metrics, log *logrus.Logger) *Service {
	return &Service{store: store, gw: gw, enroller: enroller, activator: activator, metrics: m, log: log}
}

// Checkout is returned to the client to open the provider's payment form.
type Checkout struct {
	Order   *gateway.Order   `json:"order"`
	Payment *billing.Payment `json:"payment"`
}

func (s *Service) Provider() string { return s.gw.Name() }

func (s *Service) CreateClassOrder(ctx context.Context, userID, classID uint) (*Checkout, error) {
	const op = "payments.CreateClassOrder"

	c, err := s.store.Classes.GetByID(ctx, classID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("Class not found")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	switch {
	case c.Status != classes.StatusScheduled:
		return nil, apperr.Validation("Class is not open for enrollment")
	case c.IsFree():
		return nil, ErrFreeClass
	case c.IsFull():
		return nil, repository.ErrClassFull
	}
	enrolled, err := s.store.Classes.IsEnrolled(ctx, classID, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if enrolled {
		return nil, repository.ErrAlreadyEnrolled
	}

	order, err := s.gw.CreateOrder(ctx, gateway.OrderRequest{
		Amount:   c.Price,
		Currency: c.Currency,
		Receipt:  Receipt("class"),
		Notes: map[string]string{
			"purpose":  billing.PurposeClass,
			"class_id": fmt.Sprint(c.ID),
			"user_id":  fmt.Sprint(userID),
		},
	})
	if err != nil {
		return nil, apperr.Internal("Failed to create payment order", err)
	}

	p := &billing.Payment{
		UserID:   userID,
		Purpose:  billing.PurposeClass,
		ClassID:  &c.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Provider: s.gw.Name(),
		OrderID:  order.ID,
		Status:   billing.StatusPending,
	}
	if err := s.store.Payments.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.Payment(p.Purpose, p.Status)
	return &Checkout{Order: order, Payment: p}, nil
}

// Receipt builds a short unique receipt for the gateway.
func Receipt(prefix string) string {
	return prefix + "_" + uuid.NewString()[:18]
}

type VerifyInput struct {
	OrderID   string
	PaymentID string
	Signature string
}

// Verify confirms the checkout result the client relays. A completed
// payment is returned as is. A bad signature leaves the payment pending
// since only the gateway's own notification may settle it.
func (s *Service) Verify(ctx context.Context, userID uint, in VerifyInput) (*billing.Payment, error) {
	const op = "payments.Verify"

	p, err := s.store.Payments.GetByOrderID(ctx, in.OrderID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.UserID != userID {
		return nil, ErrPaymentNotFound
	}
	if p.IsCompleted() {
		return p, nil
	}
	if !p.IsPending() {
		return nil, apperr.Validation("Payment is %s", p.Status)
	}

	err = s.gw.VerifyPayment(ctx, in.OrderID, in.PaymentID, in.Signature)
	switch {
	case err == nil:
	case errors.Is(err, gateway.ErrInvalidSignature):
		s.log.WithFields(logrus.Fields{"order_id": p.OrderID, "user_id": userID}).Warn("Payment verification rejected: bad signature")
		return nil, ErrVerificationFailed
	case errors.Is(err, gateway.ErrNotCaptured):
		return nil, ErrNotCaptured
	default:
		return nil, apperr.Internal("Failed to verify payment", err)
	}

	if err := s.complete(ctx, p, in.PaymentID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// HandleWebhook authenticates and applies a gateway notification. Unknown
// orders and event types are acknowledged without changes.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, header http.Header) error {
	const op = "payments.HandleWebhook"
	provider := s.gw.Name()

	ev, err := s.gw.ParseWebhook(payload, header)
	if err != nil {
		s.metrics.Webhook(provider, "rejected")
		if errors.Is(err, gateway.ErrInvalidSignature) {
			s.log.WithField("provider", provider).Warn("Webhook rejected: bad signature")
			return ErrInvalidWebhook
		}
		return apperr.Validation("Malformed webhook payload")
	}

	logger := s.log.WithFields(logrus.Fields{"provider": provider, "event": ev.Raw, "order_id": ev.OrderID})
	if ev.Type == gateway.EventIgnored || ev.OrderID == "" {
		s.metrics.Webhook(provider, "ignored")
		logger.Debug("Webhook ignored")
		return nil
	}

	p, err := s.store.Payments.GetByOrderID(ctx, ev.OrderID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			s.metrics.Webhook(provider, "unknown_order")
			logger.Info("Webhook for unknown order")
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	switch ev.Type {
	case gateway.EventPaymentCaptured:
		if p.IsCompleted() {
			s.metrics.Webhook(provider, "duplicate")
			return nil
		}
		if !billing.CanTransition(p.Status, billing.StatusCompleted) {
			logger.WithField("status", p.Status).Warn("Capture for a payment that cannot complete")
			s.metrics.Webhook(provider, "ignored")
			return nil
		}
		if p.Status == billing.StatusFailed {
			logger.WithField("reason", p.FailureReason).Warn("Capture supersedes an earlier failure")
		}
		if err := s.complete(ctx, p, ev.PaymentID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	case gateway.EventPaymentFailed:
		if !p.IsPending() {
			s.metrics.Webhook(provider, "ignored")
			return nil
		}
		reason := ev.Reason
		if reason == "" {
			reason = "payment failed at gateway"
		}
		if err := s.fail(ctx, p, reason); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	s.metrics.Webhook(provider, "processed")
	logger.Info("Webhook processed")
	return nil
}

func (s *Service) ListMine(ctx context.Context, userID uint) ([]billing.Payment, error) {
	list, err := s.store.Payments.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("payments.ListMine: %w", err)
	}
	return list, nil
}

func (s *Service) ListAll(ctx context.Context, page repository.Page) ([]billing.Payment, int64, error) {
	list, total, err := s.store.Payments.List(ctx, page)
	if err != nil {
		return nil, 0, fmt.Errorf("payments.ListAll: %w", err)
	}
	return list, total, nil
}

func (s *Service) complete(ctx context.Context, p *billing.Payment, gatewayPaymentID string) error {
	if !billing.CanTransition(p.Status, billing.StatusCompleted) {
		return apperr.Validation("Payment is %s", p.Status)
	}
	p.Status = billing.StatusCompleted
	p.FailureReason = ""
	if gatewayPaymentID != "" {
		id := gatewayPaymentID
		p.GatewayPaymentID = &id
	}
	if err := s.store.Payments.Update(ctx, p); err != nil {
		return err
	}
	s.metrics.Payment(p.Purpose, p.Status)
	s.log.WithFields(logrus.Fields{"order_id": p.OrderID, "user_id": p.UserID, "purpose": p.Purpose}).Info("Payment completed")
	return s.fulfil(ctx, p)
}

func (s *Service) fail(ctx context.Context, p *billing.Payment, reason string) error {
	p.Status = billing.StatusFailed
	p.FailureReason = reason
	if err := s.store.Payments.Update(ctx, p); err != nil {
		return err
	}
	s.metrics.Payment(p.Purpose, p.Status)
	s.log.WithFields(logrus.Fields{"order_id": p.OrderID, "reason": reason}).Warn("Payment failed")
	return nil
}

// fulfil delivers what a completed payment bought. Delivery problems that
// need a refund are recorded on the payment rather than returned.
func (s *Service) fulfil(ctx context.Context, p *billing.Payment) error {
	var err error
	switch p.Purpose {
	case billing.PurposeClass:
		if p.ClassID == nil {
			return nil
		}
		err = s.enroller.EnrollPaid(ctx, *p.ClassID, p.UserID)
		if errors.Is(err, repository.ErrClassFull) || apperr.IsKind(err, apperr.KindNotFound) {
			return s.flagRefund(ctx, p, reasonClassFull)
		}
	case billing.PurposeSubscription:
		if p.SubscriptionID == nil {
			return nil
		}
		err = s.activator.Activate(ctx, *p.SubscriptionID)
		if apperr.IsKind(err, apperr.KindNotFound) {
			return s.flagRefund(ctx, p, reasonSubscription)
		}
	}
	return err
}

func (s *Service) flagRefund(ctx context.Context, p *billing.Payment, reason string) error {
	p.FailureReason = reason
	s.log.WithFields(logrus.Fields{"order_id": p.OrderID, "user_id": p.UserID}).Warn("Paid order could not be fulfilled: " + reason)
	return s.store.Payments.Update(ctx, p)
}
