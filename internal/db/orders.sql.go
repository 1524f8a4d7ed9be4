package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const createOrder = `
INSERT INTO orders (user_id, status, total_amount, total_currency)
VALUES ($1, $2, $3, $4)
RETURNING id, user_id, status, total_amount, total_currency, created_at
`

type CreateOrderParams struct {
	UserID        uuid.UUID
	Status        string
	TotalAmount   decimal.Decimal
	TotalCurrency string
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.UserID,
		arg.Status,
		arg.TotalAmount,
		arg.TotalCurrency,
	)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Status,
		&i.TotalAmount,
		&i.TotalCurrency,
		&i.CreatedAt,
	)
	return i, err
}

const createOrderItem = `
INSERT INTO order_items (order_id, product_id, quantity, price_amount, price_currency)
VALUES ($1, $2, $3, $4, $5)
`

type CreateOrderItemParams struct {
	OrderID       uuid.UUID
	ProductID     uuid.UUID
	Quantity      int32
	PriceAmount   decimal.Decimal
	PriceCurrency string
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) error {
	_, err := q.db.Exec(ctx, createOrderItem,
		arg.OrderID,
		arg.ProductID,
		arg.Quantity,
		arg.PriceAmount,
		arg.PriceCurrency,
	)
	return err
}
