package domain

import "time"

type CartItem struct {
	ID        uint64  `json:"id" gorm:"primaryKey;autoIncrement"`
	CartID    string  `json:"-" gorm:"size:36;index;not null"`
	ProductID string  `json:"productId" gorm:"size:36;not null"`
	Name      string  `json:"name" gorm:"not null"`
	Image     string  `json:"image"`
	Price     float64 `json:"price" gorm:"not null"`
	Size      string  `json:"size" gorm:"size:16;not null"`
	Color     string  `json:"color" gorm:"size:32;not null"`
	Quantity  int     `json:"quantity" gorm:"not null"`
	Stock     int     `json:"stock" gorm:"not null"` // variant stock at add time
}

type Cart struct {
	ID        string     `json:"id" gorm:"size:36;primaryKey"`
	UserID    string     `json:"userId" gorm:"size:36;uniqueIndex;not null"`
	Items     []CartItem `json:"items" gorm:"foreignKey:CartID"`
	CreatedAt time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
}
