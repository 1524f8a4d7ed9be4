package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID            uuid.UUID
	Name          string
	PriceAmount   decimal.Decimal
	PriceCurrency string
	ImageUrl      string
}

// CartItemRow is a cart_items row joined with its product.
type CartItemRow struct {
	ProductID     uuid.UUID
	Quantity      int32
	CreatedAt     time.Time
	ProductName   string
	PriceAmount   decimal.Decimal
	PriceCurrency string
	ImageUrl      string
}

type Order struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Status        string
	TotalAmount   decimal.Decimal
	TotalCurrency string
	CreatedAt     time.Time
}
