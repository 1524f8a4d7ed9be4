package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Product is the read-only snapshot of catalog attributes joined onto a cart line.
type Product struct {
	ID       uuid.UUID
	Name     string
	Price    Money
	ImageURL string
}

type User struct {
	ID    uuid.UUID
	Email string
}

type Cart struct {
	OwnerID uuid.UUID
	Items   []CartLineItem
}

// CartLineItem is unique by ProductID within one user's cart.
type CartLineItem struct {
	ProductID uuid.UUID
	Quantity  int
	Product   Product

	CreatedAt time.Time
}

func (i CartLineItem) LineTotal() Money {
	return i.Product.Price.Mul(i.Quantity)
}

// Subtotal is the sum of quantity times product price over all items.
func (c Cart) Subtotal() (Money, error) {
	return Subtotal(c.Items)
}

func Subtotal(items []CartLineItem) (Money, error) {
	var total Money

	for _, item := range items {
		sum, err := total.Add(item.LineTotal())
		if err != nil {
			return Money{}, fmt.Errorf("product[%s]: %w", item.ProductID, err)
		}
		total = sum
	}

	return total, nil
}

// ItemCount returns the total number of units in the cart.
func (c Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// FindItemIndex returns the index of the line item for productID, or -1.
func (c Cart) FindItemIndex(productID uuid.UUID) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}
