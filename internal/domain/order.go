package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type OrderItem struct {
	ID        uint64  `json:"-" gorm:"primaryKey;autoIncrement"`
	OrderID   string  `json:"-" gorm:"size:36;index;not null"`
	ProductID string  `json:"productId" gorm:"size:36;not null"`
	Name      string  `json:"name" gorm:"not null"`
	Image     string  `json:"image"`
	Size      string  `json:"size" gorm:"size:16;not null"`
	Color     string  `json:"color" gorm:"size:32;not null"`
	Quantity  int     `json:"quantity" gorm:"not null"`
	Price     float64 `json:"price" gorm:"not null"`
}

type ShippingAddress struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Street   string `json:"street"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zipCode"`
	Country  string `json:"country"`
}

type PaymentInfo struct {
	Method         string        `json:"method" gorm:"size:32;not null"`
	Reference      string        `json:"paystackReference,omitempty" gorm:"size:64;index"`
	PaystackAmount float64       `json:"paystackAmount,omitempty"`
	PaidAt         *time.Time    `json:"paidAt,omitempty"`
	Status         PaymentStatus `json:"status" gorm:"type:enum('pending','completed','failed','refunded');default:'pending'"`
}

type Order struct {
	ID              string          `json:"id" gorm:"size:36;primaryKey"`
	OrderNumber     string          `json:"orderNumber" gorm:"size:32;uniqueIndex;not null"`
	UserID          string          `json:"userId" gorm:"size:36;index;not null"`
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	Subtotal        float64         `json:"subtotal" gorm:"not null"`
	ShippingCost    float64         `json:"shippingCost" gorm:"default:0"`
	Tax             float64         `json:"tax" gorm:"default:0"`
	Discount        float64         `json:"discount" gorm:"default:0"`
	Total           float64         `json:"total" gorm:"not null"`
	ShippingAddress ShippingAddress `json:"shippingAddress" gorm:"embedded;embeddedPrefix:ship_"`
	PaymentInfo     PaymentInfo     `json:"paymentInfo" gorm:"embedded;embeddedPrefix:payment_"`
	Status          OrderStatus     `json:"status" gorm:"type:enum('pending','processing','shipped','delivered','cancelled');default:'pending'"`
	TrackingNumber  string          `json:"trackingNumber,omitempty" gorm:"size:64"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}

// IsTerminal reports whether no further status transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo enforces the pending -> processing -> shipped -> delivered
// chain, with cancellation allowed from any non-terminal state.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	switch s {
	case OrderStatusPending:
		return next == OrderStatusProcessing
	case OrderStatusProcessing:
		return next == OrderStatusShipped
	case OrderStatusShipped:
		return next == OrderStatusDelivered
	}
	return false
}
