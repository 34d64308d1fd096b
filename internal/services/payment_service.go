package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/devacunetixtech/acucommerce/internal/domain"
	"github.com/devacunetixtech/acucommerce/internal/infra/paystack"
	"github.com/devacunetixtech/acucommerce/internal/infra/rabbitmq"
	"github.com/devacunetixtech/acucommerce/internal/metrics"
	"github.com/devacunetixtech/acucommerce/internal/repository"
	log "github.com/sirupsen/logrus"
)

var (
	ErrPaymentNotSuccessful = errors.New("payment was not successful")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
)

const chargeSuccessEvent = "charge.success"

// WebhookEvent is the provider's event envelope. Metadata echoes what we sent
// at initialize time, so order_id is read from it before falling back to
// parsing the reference, with order_number as the last-resort lookup.
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Metadata  struct {
			OrderID     string `json:"order_id"`
			OrderNumber string `json:"order_number"`
			UserID      string `json:"user_id"`
		} `json:"metadata"`
	} `json:"data"`
}

type PaymentService struct {
	orders      repository.OrderRepository
	gateway     paystack.Gateway
	publisher   rabbitmq.PublisherInterface
	secretKey   string // shared secret for webhook signatures
	callbackURL string
}

func NewPaymentService(orders repository.OrderRepository, gateway paystack.Gateway, pub rabbitmq.PublisherInterface, secretKey, appURL string) *PaymentService {
	return &PaymentService{
		orders:      orders,
		gateway:     gateway,
		publisher:   pub,
		secretKey:   secretKey,
		callbackURL: strings.TrimRight(appURL, "/") + "/checkout/verify",
	}
}

// InitializePayment asks the provider for an authorization URL for the order.
// The transaction reference is {orderID}-{unixMillis}; both reconciliation
// paths recover the order id from it with OrderIDFromReference.
func (s *PaymentService) InitializePayment(ctx context.Context, userID, orderID, email string) (*paystack.InitializeResponse, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.UserID != userID {
		return nil, ErrNotOrderOwner
	}

	reference := fmt.Sprintf("%s-%d", order.ID, time.Now().UnixMilli())

	return s.gateway.Initialize(ctx, paystack.InitializeRequest{
		Email:       email,
		Amount:      order.Total,
		CallbackURL: s.callbackURL,
		Reference:   reference,
		Metadata: map[string]any{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
			"user_id":      userID,
		},
	})
}

// VerifyPayment is the pull reconciliation path, triggered by the client
// returning from the provider redirect. The returned bool reports whether the
// order had already been reconciled, in which case nothing was mutated.
func (s *PaymentService) VerifyPayment(ctx context.Context, reference string) (*domain.Order, bool, error) {
	verification, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return nil, false, err
	}
	if verification.Status != "success" {
		return nil, false, ErrPaymentNotSuccessful
	}

	order, err := s.orders.FindByID(ctx, OrderIDFromReference(reference))
	if err != nil {
		return nil, false, err
	}
	if order == nil {
		return nil, false, ErrOrderNotFound
	}

	if order.PaymentInfo.Status == domain.PaymentStatusCompleted {
		return order, true, nil
	}

	if err := s.completePayment(ctx, order, reference, verification.Amount); err != nil {
		return nil, false, err
	}
	return order, false, nil
}

// HandleWebhook is the push reconciliation path. The HMAC signature is the
// sole authentication for it. Events other than charge.success, and events
// naming unknown orders, are acknowledged without side effects so the
// provider does not keep retrying.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.verifySignature(body, signature) {
		return ErrInvalidSignature
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("parse webhook body: %w", err)
	}

	if event.Event != chargeSuccessEvent {
		return nil
	}

	orderID := event.Data.Metadata.OrderID
	if orderID == "" {
		orderID = OrderIDFromReference(event.Data.Reference)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil && event.Data.Metadata.OrderNumber != "" {
		order, err = s.orders.FindByOrderNumber(ctx, event.Data.Metadata.OrderNumber)
		if err != nil {
			return err
		}
	}
	if order == nil {
		log.WithFields(log.Fields{
			"reference": event.Data.Reference,
			"order_id":  orderID,
		}).Warn("Webhook for unknown order acknowledged")
		return nil
	}

	// Same no-op guard as the verify path; at-least-once delivery must not
	// rewrite payment fields.
	if order.PaymentInfo.Status == domain.PaymentStatusCompleted {
		return nil
	}

	return s.completePayment(ctx, order, event.Data.Reference, event.Data.Amount)
}

// completePayment performs the joint pending -> completed / pending ->
// processing transition shared by both reconciliation paths. amountKobo is
// the provider-reported amount in minor units.
func (s *PaymentService) completePayment(ctx context.Context, order *domain.Order, reference string, amountKobo int64) error {
	now := time.Now()
	order.PaymentInfo.Status = domain.PaymentStatusCompleted
	order.PaymentInfo.Reference = reference
	order.PaymentInfo.PaystackAmount = float64(amountKobo) / 100
	order.PaymentInfo.PaidAt = &now
	order.Status = domain.OrderStatusProcessing

	if err := s.orders.Save(ctx, order); err != nil {
		return err
	}

	metrics.PaymentAmount.Observe(order.PaymentInfo.PaystackAmount)
	log.WithFields(log.Fields{
		"order_number": order.OrderNumber,
		"reference":    reference,
	}).Info("Payment reconciled")

	go s.publishPaymentCompleted(context.Background(), order)
	return nil
}

func (s *PaymentService) publishPaymentCompleted(ctx context.Context, order *domain.Order) {
	evt := domain.PaymentCompletedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Reference:   order.PaymentInfo.Reference,
		Amount:      order.PaymentInfo.PaystackAmount,
		PaidAt:      *order.PaymentInfo.PaidAt,
	}

	if err := s.publisher.Publish(ctx, "payment.completed", evt); err != nil {
		log.WithField("order_number", order.OrderNumber).Errorf("Failed to publish event: %v", err)
	}
}

func (s *PaymentService) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(s.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// OrderIDFromReference strips the trailing timestamp segment from a
// {orderID}-{unixMillis} reference. Order ids contain hyphens themselves, so
// everything up to the final segment belongs to the id.
func OrderIDFromReference(reference string) string {
	parts := strings.Split(reference, "-")
	if len(parts) < 2 {
		return reference
	}
	return strings.Join(parts[:len(parts)-1], "-")
}
