package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/devacunetixtech/acucommerce/internal/domain"
	"github.com/devacunetixtech/acucommerce/internal/infra/paystack"
	"github.com/devacunetixtech/acucommerce/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "sk_test_acucommerce"
	testAppURL  = "https://shop.example.com"
	testOrderID = "9b2c6c1e-55d4-4d3a-8a77-0a1b2c3d4e5f"
)

func pendingOrder() *domain.Order {
	return &domain.Order{
		ID:           testOrderID,
		OrderNumber:  "ORD-TEST-00001",
		UserID:       testUserID,
		Subtotal:     20000,
		ShippingCost: 2500,
		Tax:          1500,
		Total:        24000,
		Status:       domain.OrderStatusPending,
		PaymentInfo:  domain.PaymentInfo{
			Method: "paystack",
			Status: domain.PaymentStatusPending,
		},
	}
}

func signBody(body []byte) string {
	mac := hmac.New(sha512.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newPaymentService(orderRepo *mocks.MockOrderRepository, gateway *mocks.MockGateway, pub *mocks.MockPublisher) *PaymentService {
	return NewPaymentService(orderRepo, gateway, pub, testSecret, testAppURL)
}

func TestPaymentService_InitializePayment(t *testing.T) {
	orderRepo := new(mocks.MockOrderRepository)
	gateway := new(mocks.MockGateway)
	pub := new(mocks.MockPublisher)

	order := pendingOrder()
	orderRepo.On("FindByID", mock.Anything, testOrderID).Return(order, nil)

	var captured paystack.InitializeRequest
	gateway.On("Initialize", mock.Anything, mock.AnythingOfType("paystack.InitializeRequest")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(paystack.InitializeRequest)
		}).
		Return(&paystack.InitializeResponse{
			AuthorizationURL: "https://checkout.paystack.com/abc123",
			AccessCode:       "abc123",
			Reference:        testOrderID + "-1700000000000",
		}, nil)

	service := newPaymentService(orderRepo, gateway, pub)
	resp, err := service.InitializePayment(context.Background(), testUserID, testOrderID, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc123", resp.AuthorizationURL)

	assert.Equal(t, "ada@example.com", captured.Email)
	assert.Equal(t, 24000.0, captured.Amount)
	assert.Equal(t, testAppURL+"/checkout/verify", captured.CallbackURL)
	assert.Equal(t, testOrderID, OrderIDFromReference(captured.Reference))
	assert.Equal(t, testOrderID, captured.Metadata["order_id"])
	assert.Equal(t, order.OrderNumber, captured.Metadata["order_number"])
}

func TestPaymentService_InitializePayment_Ownership(t *testing.T) {
	orderRepo := new(mocks.MockOrderRepository)
	gateway := new(mocks.MockGateway)

	order := pendingOrder()
	order.UserID = "someone-else"
	orderRepo.On("FindByID", mock.Anything, testOrderID).Return(order, nil)

	service := newPaymentService(orderRepo, gateway, new(mocks.MockPublisher))
	_, err := service.InitializePayment(context.Background(), testUserID, testOrderID, "ada@example.com")
	assert.ErrorIs(t, err, ErrNotOrderOwner)
	gateway.AssertNotCalled(t, "Initialize", mock.Anything, mock.Anything)
}

func TestPaymentService_VerifyPayment(t *testing.T) {
	reference := fmt.Sprintf("%s-%d", testOrderID, time.Now().UnixMilli())

	tests := []struct {
		name            string
		setupMocks      func(*mocks.MockOrderRepository, *mocks.MockGateway)
		expectedError   error
		alreadyVerified bool
		expectSave      bool
		check           func(*testing.T, *domain.Order)
	}{
		{
			name: "successful verification completes payment",
			setupMocks: func(orderRepo *mocks.MockOrderRepository, gateway *mocks.MockGateway) {
				gateway.On("Verify", mock.Anything, reference).
					Return(&paystack.VerifyResponse{Status: "success", Amount: 2400000, Reference: reference}, nil)
				orderRepo.On("FindByID", mock.Anything, testOrderID).Return(pendingOrder(), nil)
				orderRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil)
			},
			expectSave: true,
			check: func(t *testing.T, order *domain.Order) {
				assert.Equal(t, domain.PaymentStatusCompleted, order.PaymentInfo.Status)
				assert.Equal(t, domain.OrderStatusProcessing, order.Status)
				assert.Equal(t, reference, order.PaymentInfo.Reference)
				assert.Equal(t, 24000.0, order.PaymentInfo.PaystackAmount) // kobo -> naira
				require.NotNil(t, order.PaymentInfo.PaidAt)
			},
		},
		{
			name: "provider reports failure",
			setupMocks: func(orderRepo *mocks.MockOrderRepository, gateway *mocks.MockGateway) {
				gateway.On("Verify", mock.Anything, reference).
					Return(&paystack.VerifyResponse{Status: "failed", Amount: 0}, nil)
			},
			expectedError: ErrPaymentNotSuccessful,
		},
		{
			name: "order not found",
			setupMocks: func(orderRepo *mocks.MockOrderRepository, gateway *mocks.MockGateway) {
				gateway.On("Verify", mock.Anything, reference).
					Return(&paystack.VerifyResponse{Status: "success", Amount: 2400000}, nil)
				orderRepo.On("FindByID", mock.Anything, testOrderID).Return(nil, nil)
			},
			expectedError: ErrOrderNotFound,
		},
		{
			name: "already completed is a no-op",
			setupMocks: func(orderRepo *mocks.MockOrderRepository, gateway *mocks.MockGateway) {
				gateway.On("Verify", mock.Anything, reference).
					Return(&paystack.VerifyResponse{Status: "success", Amount: 2400000}, nil)
				order := pendingOrder()
				paidAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
				order.PaymentInfo.Status = domain.PaymentStatusCompleted
				order.PaymentInfo.PaidAt = &paidAt
				order.PaymentInfo.PaystackAmount = 24000
				order.Status = domain.OrderStatusProcessing
				orderRepo.On("FindByID", mock.Anything, testOrderID).Return(order, nil)
			},
			alreadyVerified: true,
			check: func(t *testing.T, order *domain.Order) {
				require.NotNil(t, order.PaymentInfo.PaidAt)
				assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), *order.PaymentInfo.PaidAt)
				assert.Equal(t, 24000.0, order.PaymentInfo.PaystackAmount)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orderRepo := new(mocks.MockOrderRepository)
			gateway := new(mocks.MockGateway)
			pub := new(mocks.MockPublisher)
			pub.On("Publish", mock.Anything, "payment.completed", mock.Anything).Return(nil).Maybe()

			tt.setupMocks(orderRepo, gateway)

			service := newPaymentService(orderRepo, gateway, pub)
			order, alreadyVerified, err := service.VerifyPayment(context.Background(), reference)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, order)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.alreadyVerified, alreadyVerified)
				tt.check(t, order)
			}

			if !tt.expectSave {
				orderRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
			}
			gateway.AssertExpectations(t)
		})
	}
}

// Verifying twice must not rewrite payment fields the second time.
func TestPaymentService_VerifyPayment_Idempotent(t *testing.T) {
	reference := fmt.Sprintf("%s-%d", testOrderID, time.Now().UnixMilli())

	orderRepo := new(mocks.MockOrderRepository)
	gateway := new(mocks.MockGateway)
	pub := new(mocks.MockPublisher)
	pub.On("Publish", mock.Anything, "payment.completed", mock.Anything).Return(nil).Maybe()

	order := pendingOrder()
	gateway.On("Verify", mock.Anything, reference).
		Return(&paystack.VerifyResponse{Status: "success", Amount: 2400000}, nil)
	orderRepo.On("FindByID", mock.Anything, testOrderID).Return(order, nil)
	orderRepo.On("Save", mock.Anything, mock.Anything).Return(nil).Once()

	service := newPaymentService(orderRepo, gateway, pub)

	first, alreadyVerified, err := service.VerifyPayment(context.Background(), reference)
	require.NoError(t, err)
	assert.False(t, alreadyVerified)
	firstPaidAt := *first.PaymentInfo.PaidAt
	firstAmount := first.PaymentInfo.PaystackAmount

	second, alreadyVerified, err := service.VerifyPayment(context.Background(), reference)
	require.NoError(t, err)
	assert.True(t, alreadyVerified)
	assert.Equal(t, firstPaidAt, *second.PaymentInfo.PaidAt)
	assert.Equal(t, firstAmount, second.PaymentInfo.PaystackAmount)

	orderRepo.AssertExpectations(t) // Save exactly once
}

func webhookBody(event, reference, orderID string, amount int64) []byte {
	return []byte(fmt.Sprintf(
		`{"event":%q,"data":{"reference":%q,"amount":%d,"metadata":{"order_id":%q,"order_number":"ORD-TEST-00001"}}}`,
		event, reference, amount, orderID,
	))
}

func TestPaymentService_HandleWebhook(t *testing.T) {
	reference := fmt.Sprintf("%s-%d", testOrderID, time.Now().UnixMilli())

	tests := []struct {
		name          string
		body          []byte
		signature     func([]byte) string
		setupMocks    func(*mocks.MockOrderRepository)
		expectedError error
		expectSave    bool
	}{
		{
			name:      "charge success completes payment",
			body:      webhookBody("charge.success", reference, testOrderID, 2400000),
			signature: signBody,
			setupMocks: func(orderRepo *mocks.MockOrderRepository) {
				orderRepo.On("FindByID", mock.Anything, testOrderID).Return(pendingOrder(), nil)
				orderRepo.On("Save", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
					return o.PaymentInfo.Status == domain.PaymentStatusCompleted &&
						o.Status == domain.OrderStatusProcessing &&
						o.PaymentInfo.Reference == reference &&
						o.PaymentInfo.PaidAt != nil
				})).Return(nil)
			},
			expectSave: true,
		},
		{
			name:          "invalid signature rejected without mutation",
			body:          webhookBody("charge.success", reference, testOrderID, 2400000),
			signature:     func([]byte) string { return "deadbeef" },
			setupMocks:    func(*mocks.MockOrderRepository) {},
			expectedError: ErrInvalidSignature,
		},
		{
			name:       "non-charge events acknowledged without side effects",
			body:       webhookBody("transfer.success", reference, testOrderID, 2400000),
			signature:  signBody,
			setupMocks: func(*mocks.MockOrderRepository) {},
		},
		{
			name:      "unknown order acknowledged",
			body:      webhookBody("charge.success", reference, testOrderID, 2400000),
			signature: signBody,
			setupMocks: func(orderRepo *mocks.MockOrderRepository) {
				orderRepo.On("FindByID", mock.Anything, testOrderID).Return(nil, nil)
				orderRepo.On("FindByOrderNumber", mock.Anything, "ORD-TEST-00001").Return(nil, nil)
			},
		},
		{
			name:      "redelivery of completed order is a no-op",
			body:      webhookBody("charge.success", reference, testOrderID, 2400000),
			signature: signBody,
			setupMocks: func(orderRepo *mocks.MockOrderRepository) {
				order := pendingOrder()
				order.PaymentInfo.Status = domain.PaymentStatusCompleted
				order.Status = domain.OrderStatusProcessing
				orderRepo.On("FindByID", mock.Anything, testOrderID).Return(order, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orderRepo := new(mocks.MockOrderRepository)
			pub := new(mocks.MockPublisher)
			pub.On("Publish", mock.Anything, "payment.completed", mock.Anything).Return(nil).Maybe()

			tt.setupMocks(orderRepo)

			service := newPaymentService(orderRepo, new(mocks.MockGateway), pub)
			err := service.HandleWebhook(context.Background(), tt.body, tt.signature(tt.body))

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				orderRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
			}
			if !tt.expectSave {
				orderRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
			}
			orderRepo.AssertExpectations(t)
		})
	}
}

// The webhook prefers the order id carried in the event metadata over the
// reference parse.
func TestPaymentService_HandleWebhook_MetadataPreferred(t *testing.T) {
	otherID := "11111111-2222-3333-4444-555555555555"
	body := webhookBody("charge.success", "not-a-real-reference-123", otherID, 2400000)

	orderRepo := new(mocks.MockOrderRepository)
	pub := new(mocks.MockPublisher)
	pub.On("Publish", mock.Anything, "payment.completed", mock.Anything).Return(nil).Maybe()

	order := pendingOrder()
	order.ID = otherID
	orderRepo.On("FindByID", mock.Anything, otherID).Return(order, nil)
	orderRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	service := newPaymentService(orderRepo, new(mocks.MockGateway), pub)
	require.NoError(t, service.HandleWebhook(context.Background(), body, signBody(body)))

	orderRepo.AssertExpectations(t)
}

// When the metadata carries no order id and the reference does not resolve,
// the order number is the last-resort lookup.
func TestPaymentService_HandleWebhook_OrderNumberFallback(t *testing.T) {
	body := webhookBody("charge.success", "legacy-ref-123", "", 2400000)

	orderRepo := new(mocks.MockOrderRepository)
	pub := new(mocks.MockPublisher)
	pub.On("Publish", mock.Anything, "payment.completed", mock.Anything).Return(nil).Maybe()

	orderRepo.On("FindByID", mock.Anything, "legacy-ref").Return(nil, nil)
	orderRepo.On("FindByOrderNumber", mock.Anything, "ORD-TEST-00001").Return(pendingOrder(), nil)
	orderRepo.On("Save", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
		return o.PaymentInfo.Status == domain.PaymentStatusCompleted
	})).Return(nil)

	service := newPaymentService(orderRepo, new(mocks.MockGateway), pub)
	require.NoError(t, service.HandleWebhook(context.Background(), body, signBody(body)))

	orderRepo.AssertExpectations(t)
}

func TestOrderIDFromReference(t *testing.T) {
	tests := []struct {
		reference string
		expected  string
	}{
		{testOrderID + "-1700000000000", testOrderID},
		{"abc-123", "abc"},
		{"noseparator", "noseparator"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, OrderIDFromReference(tt.reference))
	}
}

// Full happy path: order creation through verify reconciliation, checking the
// documented totals for a 20000 single-item cart.
func TestOrderPaymentLifecycle(t *testing.T) {
	orderRepo := new(mocks.MockOrderRepository)
	productRepo := new(mocks.MockProductRepository)
	cartRepo := new(mocks.MockCartRepository)
	gateway := new(mocks.MockGateway)
	pub := new(mocks.MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	productRepo.On("FindByID", mock.Anything, testProductID).
		Return(testProduct(testProductID, "Air Strider", 20000, testVariant("42", "black", 3)), nil)
	orderRepo.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	cartRepo.On("Clear", mock.Anything, testUserID).Return(nil)

	orderService := NewOrderService(orderRepo, productRepo, cartRepo, pub)
	order, err := orderService.CreateOrder(context.Background(), testUserID, validOrderInput(1, 20000))
	require.NoError(t, err)

	assert.Equal(t, 20000.0, order.Subtotal)
	assert.Equal(t, 2500.0, order.ShippingCost)
	assert.Equal(t, 1500.0, order.Tax)
	assert.Equal(t, 24000.0, order.Total)
	assert.Equal(t, domain.OrderStatusPending, order.Status)

	reference := fmt.Sprintf("%s-%d", order.ID, time.Now().UnixMilli())
	gateway.On("Verify", mock.Anything, reference).
		Return(&paystack.VerifyResponse{Status: "success", Amount: int64(order.Total * 100)}, nil)
	orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	orderRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	paymentService := newPaymentService(orderRepo, gateway, pub)
	verified, alreadyVerified, err := paymentService.VerifyPayment(context.Background(), reference)
	require.NoError(t, err)
	assert.False(t, alreadyVerified)
	assert.Equal(t, domain.OrderStatusProcessing, verified.Status)
	assert.Equal(t, domain.PaymentStatusCompleted, verified.PaymentInfo.Status)
	assert.Equal(t, 24000.0, verified.PaymentInfo.PaystackAmount)
}
