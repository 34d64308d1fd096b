package repository

import (
	"context"
	"errors"

	"github.com/devacunetixtech/acucommerce/internal/domain"
)

// ErrInsufficientStock is returned when a conditional stock decrement affects
// no rows, i.e. the variant is missing or its stock fell below the requested
// quantity after the service-level check.
var ErrInsufficientStock = errors.New("insufficient stock")

// StockDeduction names one variant decrement to apply atomically with the
// order insert. ProductName is carried only for error messages.
type StockDeduction struct {
	ProductID   string
	ProductName string
	Size        string
	Color       string
	Quantity    int
}

type OrderRepository interface {
	// Create persists the order and applies all stock deductions in a single
	// transaction; any failed deduction aborts the whole operation.
	Create(ctx context.Context, order *domain.Order, deductions []StockDeduction) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	FindByUser(ctx context.Context, userID string, offset, limit int) ([]domain.Order, int64, error)
	Save(ctx context.Context, order *domain.Order) error
}
