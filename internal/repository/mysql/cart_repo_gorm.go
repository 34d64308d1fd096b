package mysql

import (
	"context"
	"errors"

	"github.com/devacunetixtech/acucommerce/internal/domain"
	"github.com/devacunetixtech/acucommerce/internal/repository"
	"gorm.io/gorm"
)

type cartRepo struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) repository.CartRepository {
	return &cartRepo{db: db}
}

func (r *cartRepo) FindByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	var c domain.Cart
	err := r.db.WithContext(ctx).Preload("Items").First(&c, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Save replaces the cart's item set so removals stick.
func (r *cartRepo) Save(ctx context.Context, cart *domain.Cart) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&domain.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Save(cart).Error
	})
}

func (r *cartRepo) Clear(ctx context.Context, userID string) error {
	cart, err := r.FindByUser(ctx, userID)
	if err != nil || cart == nil {
		return err
	}
	return r.db.WithContext(ctx).Where("cart_id = ?", cart.ID).Delete(&domain.CartItem{}).Error
}
