package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/devacunetixtech/acucommerce/internal/domain"
	"github.com/devacunetixtech/acucommerce/internal/infra/rabbitmq"
	"github.com/devacunetixtech/acucommerce/internal/metrics"
	"github.com/devacunetixtech/acucommerce/internal/repository"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	freeShippingThreshold = 50000 // naira; orders at or above ship free
	flatShippingFee       = 2500
	taxRate               = 0.075 // 7.5% VAT
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = repository.ErrInsufficientStock
	ErrNotOrderOwner     = errors.New("order does not belong to user")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError reports every missing or malformed field at once.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + strings.Join(e.Fields, ", ")
}

type OrderItemInput struct {
	ProductID string
	Size      string
	Color     string
	Quantity  int
	Price     float64 // client-supplied unit price; an accepted trust boundary
}

type CreateOrderInput struct {
	Items           []OrderItemInput
	ShippingAddress domain.ShippingAddress
	PaymentMethod   string
}

func (in *CreateOrderInput) validate() error {
	var missing []string
	if len(in.Items) == 0 {
		missing = append(missing, "items")
	}
	for i, it := range in.Items {
		if it.ProductID == "" || it.Size == "" || it.Color == "" || it.Quantity < 1 {
			missing = append(missing, fmt.Sprintf("items[%d]", i))
		}
	}
	addr := in.ShippingAddress
	for field, v := range map[string]string{
		"shippingAddress.fullName": addr.FullName,
		"shippingAddress.phone":    addr.Phone,
		"shippingAddress.street":   addr.Street,
		"shippingAddress.city":     addr.City,
		"shippingAddress.state":    addr.State,
		"shippingAddress.zipCode":  addr.ZipCode,
		"shippingAddress.country":  addr.Country,
	} {
		if v == "" {
			missing = append(missing, field)
		}
	}
	if in.PaymentMethod == "" {
		missing = append(missing, "paymentMethod")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

type OrderService struct {
	orders      repository.OrderRepository
	products    repository.ProductRepository
	carts       repository.CartRepository
	publisher   rabbitmq.PublisherInterface
	redisClient *redis.Client
}

func NewOrderService(orders repository.OrderRepository, products repository.ProductRepository, carts repository.CartRepository, pub rabbitmq.PublisherInterface) *OrderService {
	return &OrderService{
		orders:    orders,
		products:  products,
		carts:     carts,
		publisher: pub,
	}
}

func (s *OrderService) SetRedisClient(client *redis.Client) {
	s.redisClient = client
}

// CreateOrder validates the cart-derived items, computes totals, and persists
// the order together with all stock decrements in one transaction. The cart
// clear afterwards is best effort.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, in CreateOrderInput) (*domain.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var (
		subtotal   float64
		orderItems []domain.OrderItem
		deductions []repository.StockDeduction
	)

	for _, item := range in.Items {
		product, err := s.getProductWithCache(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
		}

		variant := product.FindVariant(item.Size, item.Color)
		if variant == nil || variant.Stock < item.Quantity {
			return nil, fmt.Errorf("%w for %s", ErrInsufficientStock, product.Name)
		}

		subtotal += item.Price * float64(item.Quantity)
		orderItems = append(orderItems, domain.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Image:     product.MainImage(),
			Size:      item.Size,
			Color:     item.Color,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
		deductions = append(deductions, repository.StockDeduction{
			ProductID:   product.ID,
			ProductName: product.Name,
			Size:        item.Size,
			Color:       item.Color,
			Quantity:    item.Quantity,
		})
	}

	shippingCost := float64(flatShippingFee)
	if subtotal >= freeShippingThreshold {
		shippingCost = 0
	}
	tax := subtotal * taxRate
	discount := 0.0
	total := subtotal + shippingCost + tax - discount

	order := &domain.Order{
		ID:              uuid.NewString(),
		OrderNumber:     generateOrderNumber(),
		UserID:          userID,
		Items:           orderItems,
		Subtotal:        subtotal,
		ShippingCost:    shippingCost,
		Tax:             tax,
		Discount:        discount,
		Total:           total,
		ShippingAddress: in.ShippingAddress,
		PaymentInfo: domain.PaymentInfo{
			Method: in.PaymentMethod,
			Status: domain.PaymentStatusPending,
		},
		Status: domain.OrderStatusPending,
	}

	if err := s.orders.Create(ctx, order, deductions); err != nil {
		metrics.OrdersTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	metrics.OrdersTotal.WithLabelValues("created").Inc()

	if err := s.carts.Clear(ctx, userID); err != nil {
		log.WithFields(log.Fields{
			"user_id":      userID,
			"order_number": order.OrderNumber,
		}).Warnf("Failed to clear cart after order creation: %v", err)
	}

	go s.publishOrderCreated(context.Background(), order)

	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
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
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID string, page, limit int) ([]domain.Order, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return s.orders.FindByUser(ctx, userID, (page-1)*limit, limit)
}

// UpdateStatus applies an administrative status change, honoring the order
// state machine. A cancellation of a paid order marks the payment refunded.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, trackingNumber string) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !order.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, status)
	}

	order.Status = status
	if trackingNumber != "" {
		order.TrackingNumber = trackingNumber
	}
	if status == domain.OrderStatusCancelled && order.PaymentInfo.Status == domain.PaymentStatusCompleted {
		order.PaymentInfo.Status = domain.PaymentStatusRefunded
	}

	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) getProductWithCache(ctx context.Context, productID string) (*domain.Product, error) {
	cacheKey := "product:" + productID

	if s.redisClient != nil {
		cached, err := s.redisClient.Get(ctx, cacheKey).Result()
		if err == nil {
			var product domain.Product
			if err := json.Unmarshal([]byte(cached), &product); err == nil {
				return &product, nil
			}
		}
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if s.redisClient != nil && product != nil {
		if data, err := json.Marshal(product); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, time.Minute)
		}
	}

	return product, nil
}

// WarmupProductCache primes the cache for the given products concurrently.
func (s *OrderService) WarmupProductCache(ctx context.Context, productIDs []string) error {
	if s.redisClient == nil {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, id := range productIDs {
		id := id
		g.Go(func() error {
			product, err := s.products.FindByID(ctx, id)
			if err != nil {
				log.Warnf("Failed to warm up cache for product %s: %v", id, err)
				return nil
			}
			if product != nil {
				if data, err := json.Marshal(product); err == nil {
					s.redisClient.Set(ctx, "product:"+id, data, 5*time.Minute)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *OrderService) publishOrderCreated(ctx context.Context, order *domain.Order) {
	evt := domain.OrderCreatedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Total:       order.Total,
		CreatedAt:   order.CreatedAt,
	}

	if err := s.publisher.Publish(ctx, "order.created", evt); err != nil {
		log.WithField("order_number", order.OrderNumber).Errorf("Failed to publish event: %v", err)
	}
}

const orderNumberAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// generateOrderNumber builds ORD-{base36 millis}-{5 random base36 chars},
// uppercased. The random suffix keeps numbers distinct within a millisecond.
func generateOrderNumber() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)

	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		// fall back to the timestamp's low bits; collisions remain negligible
		for i := range buf {
			buf[i] = byte(time.Now().UnixNano() >> (i * 8))
		}
	}
	for i := range buf {
		buf[i] = orderNumberAlphabet[int(buf[i])%len(orderNumberAlphabet)]
	}

	return strings.ToUpper(fmt.Sprintf("ORD-%s-%s", ts, buf))
}
