package repository

import (
	"context"

	"github.com/devacunetixtech/acucommerce/internal/domain"
)

type ProductRepository interface {
	// FindByID loads a product with its variants; (nil, nil) if absent.
	FindByID(ctx context.Context, id string) (*domain.Product, error)
}
