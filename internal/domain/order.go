package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const OrderStatusPending OrderStatus = "pending"

type Order struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Status OrderStatus
	Total  Money
	Items  []OrderItem

	CreatedAt time.Time
}

// OrderItem captures the product price at the time the order was placed.
type OrderItem struct {
	ProductID uuid.UUID
	Quantity  int
	Price     Money
}

func OrderItemsFromCart(items []CartLineItem) []OrderItem {
	result := make([]OrderItem, 0, len(items))
	for _, item := range items {
		result = append(result, OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Product.Price,
		})
	}
	return result
}
