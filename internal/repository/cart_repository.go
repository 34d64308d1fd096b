package repository

import (
	"context"

	"github.com/devacunetixtech/acucommerce/internal/domain"
)

type CartRepository interface {
	// FindByUser returns the user's cart with items; (nil, nil) if none exists.
	FindByUser(ctx context.Context, userID string) (*domain.Cart, error)
	// Save upserts the cart and replaces its item set.
	Save(ctx context.Context, cart *domain.Cart) error
	// Clear removes all items from the user's cart. Clearing a missing cart is
	// not an error.
	Clear(ctx context.Context, userID string) error
}
