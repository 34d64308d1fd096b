package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/devacunetixtech/acucommerce/internal/domain"
	"github.com/devacunetixtech/acucommerce/internal/repository"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) repository.OrderRepository {
	return &orderRepo{db: db}
}

// Create runs the stock deductions and the order insert in one transaction.
// Each deduction is a conditional decrement guarded by `stock >= quantity`;
// zero affected rows means another request won the stock and the whole
// transaction rolls back, including deductions already applied for earlier
// line items.
func (r *orderRepo) Create(ctx context.Context, order *domain.Order, deductions []repository.StockDeduction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range deductions {
			res := tx.Exec(`
				UPDATE variants
				SET stock = stock - ?
				WHERE product_id = ? AND size = ? AND color = ? AND stock >= ?`,
				d.Quantity, d.ProductID, d.Size, d.Color, d.Quantity,
			)
			if res.Error != nil {
				return fmt.Errorf("decrement stock: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w for %s", repository.ErrInsufficientStock, d.ProductName)
			}
		}

		if err := tx.Create(order).Error; err != nil {
			log.WithField("order_number", order.OrderNumber).Errorf("insert order: %v", err)
			return err
		}
		return nil
	})
}

func (r *orderRepo) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&o, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&o, "order_number = ?", orderNumber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) FindByUser(ctx context.Context, userID string, offset, limit int) ([]domain.Order, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Order{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []domain.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *orderRepo) Save(ctx context.Context, order *domain.Order) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: false}).Save(order).Error
}
