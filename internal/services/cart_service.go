package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/devacunetixtech/acucommerce/internal/domain"
	"github.com/devacunetixtech/acucommerce/internal/repository"
	"github.com/google/uuid"
)

var ErrCartItemNotFound = errors.New("cart item not found")

type AddCartItemInput struct {
	ProductID string
	Size      string
	Color     string
	Quantity  int
}

type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository) *CartService {
	return &CartService{carts: carts, products: products}
}

// GetCart returns the user's cart, creating an empty one on first access.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart = &domain.Cart{ID: uuid.NewString(), UserID: userID}
		if err := s.carts.Save(ctx, cart); err != nil {
			return nil, err
		}
	}
	return cart, nil
}

// AddItem snapshots the product's name, image, price and current variant
// stock onto the cart line. Adding the same (product, size, color) again
// merges quantities.
func (s *CartService) AddItem(ctx context.Context, userID string, in AddCartItemInput) (*domain.Cart, error) {
	if in.Quantity < 1 {
		return nil, &ValidationError{Fields: []string{"quantity"}}
	}

	product, err := s.products.FindByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, in.ProductID)
	}

	variant := product.FindVariant(in.Size, in.Color)
	if variant == nil || variant.Stock < in.Quantity {
		return nil, fmt.Errorf("%w for %s", ErrInsufficientStock, product.Name)
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range cart.Items {
		it := &cart.Items[i]
		if it.ProductID == in.ProductID && it.Size == in.Size && it.Color == in.Color {
			if variant.Stock < it.Quantity+in.Quantity {
				return nil, fmt.Errorf("%w for %s", ErrInsufficientStock, product.Name)
			}
			it.Quantity += in.Quantity
			it.Stock = variant.Stock
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, domain.CartItem{
			CartID:    cart.ID,
			ProductID: product.ID,
			Name:      product.Name,
			Image:     product.MainImage(),
			Price:     product.Price,
			Size:      in.Size,
			Color:     in.Color,
			Quantity:  in.Quantity,
			Stock:     variant.Stock,
		})
	}

	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) UpdateItem(ctx context.Context, userID string, itemID uint64, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, &ValidationError{Fields: []string{"quantity"}}
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			if cart.Items[i].Stock < quantity {
				return nil, fmt.Errorf("%w for %s", ErrInsufficientStock, cart.Items[i].Name)
			}
			cart.Items[i].Quantity = quantity
			if err := s.carts.Save(ctx, cart); err != nil {
				return nil, err
			}
			return cart, nil
		}
	}
	return nil, ErrCartItemNotFound
}

func (s *CartService) RemoveItem(ctx context.Context, userID string, itemID uint64) (*domain.Cart, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			if err := s.carts.Save(ctx, cart); err != nil {
				return nil, err
			}
			return cart, nil
		}
	}
	return nil, ErrCartItemNotFound
}

func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	return s.carts.Clear(ctx, userID)
}
