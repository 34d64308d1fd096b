package domain

import "time"

type OrderCreatedEvent struct {
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	UserID      string    `json:"userId"`
	Total       float64   `json:"total"`
	CreatedAt   time.Time `json:"createdAt"`
}

type PaymentCompletedEvent struct {
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	Reference   string    `json:"reference"`
	Amount      float64   `json:"amount"`
	PaidAt      time.Time `json:"paidAt"`
}
