package services

import (
	"github.com/devacunetixtech/acucommerce/internal/domain"
)

func testProduct(id, name string, price float64, variants ...domain.Variant) *domain.Product {
	return &domain.Product{
		ID:       id,
		Name:     name,
		Price:    price,
		Images:   []string{"https://cdn.example.com/" + id + ".jpg"},
		Variants: variants,
		IsActive: true,
	}
}

func testVariant(size, color string, stock int) domain.Variant {
	return domain.Variant{
		Size:  size,
		Color: color,
		Stock: stock,
		SKU:   "SKU-" + size + "-" + color,
	}
}

func testAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		FullName: "Ada Obi",
		Phone:    "+2348012345678",
		Street:   "12 Marina Road",
		City:     "Lagos",
		State:    "Lagos",
		ZipCode:  "101241",
		Country:  "Nigeria",
	}
}

const (
	testUserID    = "6a1f1e2d-0f1b-4c3a-9a51-8f2f3f0c9b11"
	testProductID = "f4c0a67e-34b2-4af1-a1d7-2f1f9e4b8a01"
)
