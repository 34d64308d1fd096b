package domain

import "time"

// Variant is a purchasable (size, color) combination of a product.
// Stock is never written through this struct directly; decrements go through
// the conditional update in the product repository.
type Variant struct {
	ID        uint64 `json:"-" gorm:"primaryKey;autoIncrement"`
	ProductID string `json:"-" gorm:"size:36;index;not null"`
	Size      string `json:"size" gorm:"size:16;not null"`
	Color     string `json:"color" gorm:"size:32;not null"`
	Stock     int    `json:"stock" gorm:"not null;default:0"`
	SKU       string `json:"sku" gorm:"size:64;uniqueIndex;not null"`
}

type Product struct {
	ID          string    `json:"id" gorm:"size:36;primaryKey"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description" gorm:"type:text"`
	Category    string    `json:"category" gorm:"size:32;index"`
	Subcategory string    `json:"subcategory" gorm:"size:64"`
	Brand       string    `json:"brand" gorm:"size:64"`
	Gender      string    `json:"gender" gorm:"size:16"`
	Price       float64   `json:"price" gorm:"not null"`
	Discount    float64   `json:"discount" gorm:"default:0"`
	Images      []string  `json:"images" gorm:"serializer:json"`
	Variants    []Variant `json:"variants" gorm:"foreignKey:ProductID"`
	Featured    bool      `json:"featured" gorm:"default:false"`
	IsActive    bool      `json:"isActive" gorm:"default:true"`
	CreatedAt   time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// FindVariant returns the variant matching size and color, or nil.
func (p *Product) FindVariant(size, color string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].Size == size && p.Variants[i].Color == color {
			return &p.Variants[i]
		}
	}
	return nil
}

// MainImage returns the first product image, used for line-item snapshots.
func (p *Product) MainImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
